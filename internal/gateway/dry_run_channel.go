package gateway

import (
	"context"
	"log/slog"

	"github.com/k-negishi/event-sync-notifier/internal/domain"
)

// recentMessagesFetcher 履歴の読み出しだけを行うチャンネル
type recentMessagesFetcher interface {
	FetchRecentMessages(ctx context.Context, channelID string, limit int) ([]domain.Announcement, error)
}

// DryRunChannel 読み出しは実際のチャンネルに委譲し、投稿と削除はログに出すだけのChannelGateway
type DryRunChannel struct {
	reader recentMessagesFetcher
	logger *slog.Logger
}

// NewDryRunChannel reader が nil の場合は履歴を空として扱う
func NewDryRunChannel(reader recentMessagesFetcher, logger *slog.Logger) *DryRunChannel {
	if logger == nil {
		logger = slog.Default()
	}
	return &DryRunChannel{reader: reader, logger: logger.With("dry_run", true)}
}

func (c *DryRunChannel) FetchRecentMessages(ctx context.Context, channelID string, limit int) ([]domain.Announcement, error) {
	if c.reader == nil {
		return nil, nil
	}
	return c.reader.FetchRecentMessages(ctx, channelID, limit)
}

func (c *DryRunChannel) PostMessage(_ context.Context, channelID, text string) error {
	c.logger.Info("投稿をスキップしました", "channel_id", channelID, "text", text)
	return nil
}

func (c *DryRunChannel) DeleteMessage(_ context.Context, message domain.Announcement) error {
	c.logger.Info("削除をスキップしました",
		"channel_id", message.ChannelID,
		"message_id", message.ID,
		"created_at", message.CreatedAt)
	return nil
}
