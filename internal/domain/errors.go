package domain

import "errors"

// Domain errors.
var (
	// ErrFeedUnavailable フィードの取得・解析に失敗した。実行を中断する
	ErrFeedUnavailable = errors.New("feed unavailable")
	// ErrChannelOperation チャンネルへの投稿・削除・取得に失敗した。操作単位で切り離す
	ErrChannelOperation = errors.New("channel operation failed")
	// ErrMalformedEvent フィードの1件を正規化できなかった。スキップする
	ErrMalformedEvent = errors.New("malformed event")
	// ErrAuthentication チャットプラットフォームの認証に失敗した。実行を中断する
	ErrAuthentication = errors.New("authentication failed")
)
