package usecase

import (
	"context"

	"github.com/k-negishi/event-sync-notifier/internal/domain"
)

// FeedClient 外部フィードからイベントを取得するポート
// 取得・解析の失敗は domain.ErrFeedUnavailable を包んで返す。
type FeedClient interface {
	Fetch(ctx context.Context) ([]domain.Event, error)
}

// ChannelGateway チャットチャンネルを操作するポート
// 各操作は独立しており、個別に失敗しうる。
type ChannelGateway interface {
	FetchRecentMessages(ctx context.Context, channelID string, limit int) ([]domain.Announcement, error)
	PostMessage(ctx context.Context, channelID, text string) error
	DeleteMessage(ctx context.Context, message domain.Announcement) error
}

// RunRecorder 実行結果を記録するポート
type RunRecorder interface {
	RecordRun(report RunReport)
}

type nopRecorder struct{}

func (nopRecorder) RecordRun(RunReport) {}
