package domain

import "time"

// Announcement チャンネルに投稿済みのメッセージ
// ローカルには保存しない。チャンネルの履歴そのものが状態になる。
type Announcement struct {
	ID        string
	ChannelID string
	AuthorID  string
	CreatedAt time.Time
	Content   string
}

// IsAuthoredBy 指定したアカウントが投稿したメッセージかどうか
func (a Announcement) IsAuthoredBy(botID string) bool {
	return botID != "" && a.AuthorID == botID
}

// IsStale カットオフより前に投稿されたかどうか。告知したイベントの日時は見ない
func (a Announcement) IsStale(cutoff time.Time) bool {
	return a.CreatedAt.Before(cutoff)
}
