// Package runlock 同じチャンネルへの同期処理が重ならないようにする Redis ロック
package runlock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultTTL RUN_TIMEOUT が未設定の場合のロックの有効期間
const DefaultTTL = 10 * time.Minute

// ErrHeld 他の実行がロックを保持している
var ErrHeld = errors.New("run lock is held by another run")

// releaseScript 自分が取得したロックだけを削除する
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`

// Locker チャンネル単位の実行ロック
type Locker struct {
	redis    *redis.Client
	ttl      time.Duration
	newToken func() string
}

// Lock 取得済みのロック
type Lock struct {
	locker *Locker
	key    string
	token  string
}

// NewLocker ttl が0以下の場合は DefaultTTL を使う
func NewLocker(client *redis.Client, ttl time.Duration) *Locker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Locker{redis: client, ttl: ttl, newToken: uuid.NewString}
}

// NewLockerFromURL redis:// 形式のURLからクライアントを作成
func NewLockerFromURL(redisURL string, ttl time.Duration) (*Locker, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("REDIS_URLの解析に失敗しました: %w", err)
	}
	return NewLocker(redis.NewClient(opts), ttl), nil
}

// Key チャンネルのロックキー
func Key(channelID string) string {
	return "eventsync:lock:" + channelID
}

// Acquire ロックを取得する。保持されている場合は ErrHeld を返す
func (l *Locker) Acquire(ctx context.Context, channelID string) (*Lock, error) {
	lock := &Lock{locker: l, key: Key(channelID), token: l.newToken()}

	ok, err := l.redis.SetNX(ctx, lock.key, lock.token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("ロックの取得に失敗しました: %w", err)
	}
	if !ok {
		return nil, ErrHeld
	}
	return lock, nil
}

// Release ロックを解放する。期限切れ後に他の実行が取り直したロックは削除しない
func (l *Lock) Release(ctx context.Context) error {
	if err := l.locker.redis.Eval(ctx, releaseScript, []string{l.key}, l.token).Err(); err != nil {
		return fmt.Errorf("ロックの解放に失敗しました: %w", err)
	}
	return nil
}

// Close Redisとの接続を閉じる
func (l *Locker) Close() error {
	return l.redis.Close()
}
