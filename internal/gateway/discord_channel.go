package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"

	"github.com/k-negishi/event-sync-notifier/internal/domain"
)

// discordPageSize Discord APIが1回で返すメッセージ数の上限
const discordPageSize = 100

// messageAPI DiscordのREST操作のうち使用するもの
type messageAPI interface {
	ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string, options ...discordgo.RequestOption) ([]*discordgo.Message, error)
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
}

// DiscordChannel Discordを使用したChannelGatewayの実装
// セッションの接続と切断は呼び出し側が管理する。
type DiscordChannel struct {
	session *discordgo.Session
	api     messageAPI
	botID   string
}

// NewDiscordChannel ボットトークンからDiscordセッションを作成
func NewDiscordChannel(token string) (*DiscordChannel, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discordセッションの作成に失敗しました: %w", err)
	}
	return &DiscordChannel{session: s, api: s}, nil
}

// Connect 認証情報を検証してゲートウェイに接続する
func (c *DiscordChannel) Connect(ctx context.Context) error {
	user, err := c.session.User("@me", discordgo.WithContext(ctx))
	if err != nil {
		return channelError("ログイン", err)
	}
	c.botID = user.ID

	if err := c.session.Open(); err != nil {
		return channelError("ゲートウェイ接続", err)
	}
	return nil
}

// Disconnect ゲートウェイから切断する
func (c *DiscordChannel) Disconnect() error {
	return c.session.Close()
}

// BotID ログイン中のボットのユーザーID。Connect 前は空
func (c *DiscordChannel) BotID() string {
	return c.botID
}

// FetchRecentMessages 新しい順に最大 limit 件のメッセージを取得
func (c *DiscordChannel) FetchRecentMessages(ctx context.Context, channelID string, limit int) ([]domain.Announcement, error) {
	if limit <= 0 {
		return []domain.Announcement{}, nil
	}
	announcements := make([]domain.Announcement, 0, limit)
	beforeID := ""

	for len(announcements) < limit {
		pageSize := min(limit-len(announcements), discordPageSize)
		page, err := c.api.ChannelMessages(channelID, pageSize, beforeID, "", "", discordgo.WithContext(ctx))
		if err != nil {
			return nil, channelError("メッセージ履歴の取得", err)
		}
		for _, m := range page {
			announcements = append(announcements, toAnnouncement(channelID, m))
		}
		if len(page) < pageSize {
			break
		}
		beforeID = page[len(page)-1].ID
	}

	return announcements, nil
}

// PostMessage メッセージを投稿
func (c *DiscordChannel) PostMessage(ctx context.Context, channelID, text string) error {
	if _, err := c.api.ChannelMessageSend(channelID, text, discordgo.WithContext(ctx)); err != nil {
		return channelError("メッセージの投稿", err)
	}
	return nil
}

// DeleteMessage メッセージを削除
func (c *DiscordChannel) DeleteMessage(ctx context.Context, message domain.Announcement) error {
	if err := c.api.ChannelMessageDelete(message.ChannelID, message.ID, discordgo.WithContext(ctx)); err != nil {
		return channelError("メッセージの削除", err)
	}
	return nil
}

func toAnnouncement(channelID string, m *discordgo.Message) domain.Announcement {
	a := domain.Announcement{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		CreatedAt: m.Timestamp,
		Content:   m.Content,
	}
	if a.ChannelID == "" {
		a.ChannelID = channelID
	}
	if m.Author != nil {
		a.AuthorID = m.Author.ID
	}
	return a
}

// channelError Discordのエラーをドメインエラーに変換
// 401 のみ認証エラーとして扱う。
func channelError(op string, err error) error {
	var restErr *discordgo.RESTError
	if errors.Is(err, discordgo.ErrUnauthorized) ||
		(errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == http.StatusUnauthorized) {
		return fmt.Errorf("%w: %sに失敗しました: %w", domain.ErrAuthentication, op, err)
	}
	return fmt.Errorf("%w: %sに失敗しました: %w", domain.ErrChannelOperation, op, err)
}
