// Package app 設定から各ゲートウェイを組み立てて同期処理を1回実行する
package app

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/k-negishi/event-sync-notifier/internal/config"
	"github.com/k-negishi/event-sync-notifier/internal/gateway"
	"github.com/k-negishi/event-sync-notifier/internal/i18n"
	"github.com/k-negishi/event-sync-notifier/internal/metrics"
	"github.com/k-negishi/event-sync-notifier/internal/runlock"
	"github.com/k-negishi/event-sync-notifier/internal/usecase"
)

const pushTimeout = 10 * time.Second

// channelSession 接続済みのチャンネル
type channelSession interface {
	usecase.ChannelGateway
	BotID() string
	Disconnect() error
}

// runLocker 実行ロック
type runLocker interface {
	Acquire(ctx context.Context, channelID string) (*runlock.Lock, error)
	Close() error
}

// App 1回分の同期処理の組み立て
type App struct {
	cfg      *config.Config
	recorder *metrics.Recorder

	newFeed        func(ctx context.Context, cfg *config.Config) (usecase.FeedClient, error)
	connectChannel func(ctx context.Context, cfg *config.Config) (channelSession, error)
	newLocker      func(cfg *config.Config) (runLocker, error)
}

// New 設定から App を作成
func New(cfg *config.Config) *App {
	return &App{
		cfg:            cfg,
		recorder:       metrics.NewRecorder(),
		newFeed:        newFeedClient,
		connectChannel: connectDiscord,
		newLocker:      newRunLocker,
	}
}

// Run 同期処理を1回実行する
// ロックを他の実行が保持している場合は何もせず成功として返す。
func (a *App) Run(ctx context.Context) (report usecase.RunReport, err error) {
	if a.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.RunTimeout)
		defer cancel()
	}
	defer a.pushMetrics(context.WithoutCancel(ctx))

	if a.cfg.RedisURL != "" {
		release, err := a.acquireLock(ctx)
		if errors.Is(err, runlock.ErrHeld) {
			slog.Info("他の実行が進行中のためスキップします", "channel_id", a.cfg.DiscordChannelID)
			a.recorder.RecordSkipped()
			return usecase.RunReport{State: usecase.StateIdle}, nil
		}
		if err != nil {
			return a.failed(err)
		}
		defer release()
	}

	feed, err := a.newFeed(ctx, a.cfg)
	if err != nil {
		return a.failed(err)
	}

	session, err := a.connectChannel(ctx, a.cfg)
	if err != nil {
		return a.failed(err)
	}
	defer func() {
		if err := session.Disconnect(); err != nil {
			slog.Warn("チャンネルからの切断に失敗しました", "error", err)
		}
	}()

	var channel usecase.ChannelGateway = session
	if a.cfg.DryRun {
		channel = gateway.NewDryRunChannel(session, slog.Default())
	}

	settings := usecase.SyncSettings{
		ChannelID:         a.cfg.DiscordChannelID,
		BotID:             cmp.Or(a.cfg.DiscordBotID, session.BotID()),
		WindowPolicy:      a.cfg.WindowPolicy,
		PruneCutoffPolicy: a.cfg.PruneCutoffPolicy,
		MessageFetchLimit: a.cfg.MessageFetchLimit,
		Concurrency:       a.cfg.PostConcurrency,
		Location:          a.cfg.Location(),
		Labels:            i18n.NewTranslator().Labels(a.cfg.Locale),
	}

	uc := usecase.NewSyncEventsUseCase(feed, channel, a.recorder, settings)
	return uc.Execute(ctx)
}

// failed 同期処理の開始前に失敗した実行を記録する
func (a *App) failed(err error) (usecase.RunReport, error) {
	report := usecase.RunReport{State: usecase.StateFailed}
	a.recorder.RecordRun(report)
	return report, err
}

func (a *App) acquireLock(ctx context.Context) (func(), error) {
	locker, err := a.newLocker(a.cfg)
	if err != nil {
		return nil, err
	}

	lock, err := locker.Acquire(ctx, a.cfg.DiscordChannelID)
	if err != nil {
		_ = locker.Close()
		return nil, err
	}

	return func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			slog.Warn("実行ロックの解放に失敗しました", "error", err)
		}
		_ = locker.Close()
	}, nil
}

func (a *App) pushMetrics(ctx context.Context) {
	if a.cfg.PushgatewayURL == "" {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, pushTimeout)
	defer cancel()
	if err := a.recorder.Push(ctx, a.cfg.PushgatewayURL, a.cfg.DiscordChannelID); err != nil {
		slog.Warn("メトリクスの送信に失敗しました", "error", err)
	}
}

// newFeedClient 設定されたフィードの種類に応じたクライアントを作成
func newFeedClient(ctx context.Context, cfg *config.Config) (usecase.FeedClient, error) {
	switch cfg.FeedKind {
	case config.FeedKindRSS:
		return gateway.NewRSSFeedClient(cfg.FeedURL, cfg.Location()), nil
	case config.FeedKindJSON:
		return gateway.NewJSONFeedClient(cfg.FeedURL), nil
	case config.FeedKindGoogleCalendar:
		creds, err := cfg.GoogleCredentialsJSON()
		if err != nil {
			return nil, err
		}
		return gateway.NewGoogleCalendarFeedClient(ctx, creds, cfg.FeedURL, cfg.Location())
	default:
		return nil, fmt.Errorf("不明なフィードの種類です: %q", cfg.FeedKind)
	}
}

func connectDiscord(ctx context.Context, cfg *config.Config) (channelSession, error) {
	discord, err := gateway.NewDiscordChannel(cfg.DiscordBotToken)
	if err != nil {
		return nil, err
	}
	if err := discord.Connect(ctx); err != nil {
		return nil, err
	}
	slog.Info("Discordに接続しました", "bot_id", discord.BotID())
	return discord, nil
}

func newRunLocker(cfg *config.Config) (runLocker, error) {
	return runlock.NewLockerFromURL(cfg.RedisURL, cfg.RunTimeout)
}

// NewLogger LOG_LEVEL に応じたロガーを作成。Lambda では JSON で出力する
func NewLogger(w io.Writer, level slog.Level, jsonFormat bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if jsonFormat {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
