package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/k-negishi/event-sync-notifier/internal/domain"
	"github.com/k-negishi/event-sync-notifier/internal/formatter"
)

// RunState 同期処理の状態
type RunState string

const (
	StateIdle      RunState = "idle"
	StatePruning   RunState = "pruning"
	StateFetching  RunState = "fetching"
	StateFiltering RunState = "filtering"
	StatePosting   RunState = "posting"
	StateFailed    RunState = "failed"
)

// DefaultMessageFetchLimit 削除判定のために遡るメッセージ数
const DefaultMessageFetchLimit = 100

// SyncSettings 同期処理の設定
type SyncSettings struct {
	ChannelID         string
	BotID             string
	WindowPolicy      domain.WindowPolicy
	PruneCutoffPolicy domain.PruneCutoffPolicy
	MessageFetchLimit int
	Concurrency       int
	Location          *time.Location
	Labels            formatter.Labels
}

// RunReport 1回の実行結果
type RunReport struct {
	RunID         string
	State         RunState
	Pruned        int
	PruneFailures int
	Fetched       int
	Selected      int
	Posted        int
	PostFailures  int
	Duration      time.Duration
}

// SyncEventsUseCase イベント同期ユースケース
// 古い告知の削除、フィードの取得と絞り込み、新しい告知の投稿を1回だけ行う。
// 繰り返しの実行は外部のスケジューラに任せる。
type SyncEventsUseCase struct {
	feed     FeedClient
	channel  ChannelGateway
	recorder RunRecorder
	settings SyncSettings
	clock    func() time.Time
}

// NewSyncEventsUseCase ユースケースを生成
func NewSyncEventsUseCase(feed FeedClient, channel ChannelGateway, recorder RunRecorder, settings SyncSettings) *SyncEventsUseCase {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if settings.MessageFetchLimit <= 0 {
		settings.MessageFetchLimit = DefaultMessageFetchLimit
	}
	if settings.Concurrency <= 0 {
		settings.Concurrency = 1
	}
	if settings.Location == nil {
		settings.Location = time.UTC
	}
	if settings.WindowPolicy == "" {
		settings.WindowPolicy = domain.WindowToday
	}
	if settings.PruneCutoffPolicy == "" {
		settings.PruneCutoffPolicy = domain.CutoffNow
	}
	if settings.Labels == (formatter.Labels{}) {
		settings.Labels = formatter.DefaultLabels()
	}
	return &SyncEventsUseCase{
		feed:     feed,
		channel:  channel,
		recorder: recorder,
		settings: settings,
		clock:    time.Now,
	}
}

// Execute 削除 → 取得 → 絞り込み → 投稿 を実行する
// 投稿の一部が失敗した場合も全件の完了を待ち、失敗をまとめて返す。
func (uc *SyncEventsUseCase) Execute(ctx context.Context) (report RunReport, err error) {
	now := uc.clock()
	report = RunReport{RunID: uuid.NewString(), State: StateIdle}
	logger := slog.With("run_id", report.RunID, "channel_id", uc.settings.ChannelID)

	defer func() {
		report.Duration = uc.clock().Sub(now)
		if err != nil && !errors.Is(err, domain.ErrChannelOperation) {
			uc.transition(&report, logger, StateFailed)
			logger.Error("同期処理を中断しました", "error", err)
		}
		uc.recorder.RecordRun(report)
	}()

	if err = uc.prune(ctx, &report, logger, now); err != nil {
		return report, err
	}

	uc.transition(&report, logger, StateFetching)
	events, err := uc.feed.Fetch(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrFeedUnavailable) && !errors.Is(err, domain.ErrAuthentication) {
			err = fmt.Errorf("%w: %w", domain.ErrFeedUnavailable, err)
		}
		return report, err
	}
	report.Fetched = len(events)

	uc.transition(&report, logger, StateFiltering)
	selected := SelectEvents(events, now, uc.settings.WindowPolicy, uc.settings.Location)
	report.Selected = len(selected)
	logger.Info("イベントを絞り込みました",
		"fetched", report.Fetched,
		"selected", report.Selected,
		"window", uc.settings.WindowPolicy)

	if len(selected) == 0 {
		logger.Info("新しいイベントはありません")
		uc.transition(&report, logger, StateIdle)
		return report, nil
	}

	uc.transition(&report, logger, StatePosting)
	err = uc.post(ctx, &report, logger, selected)
	if err == nil || errors.Is(err, domain.ErrChannelOperation) {
		uc.transition(&report, logger, StateIdle)
	}
	return report, err
}

// prune 自分が投稿した古い告知を削除する
// 個々の削除の失敗はログに残して続行する。認証エラーのみ中断する。
func (uc *SyncEventsUseCase) prune(ctx context.Context, report *RunReport, logger *slog.Logger, now time.Time) error {
	uc.transition(report, logger, StatePruning)

	if uc.settings.BotID == "" {
		logger.Warn("ボットのIDが不明なため削除をスキップします")
		return nil
	}

	messages, err := uc.channel.FetchRecentMessages(ctx, uc.settings.ChannelID, uc.settings.MessageFetchLimit)
	if err != nil {
		if errors.Is(err, domain.ErrAuthentication) {
			return err
		}
		report.PruneFailures++
		logger.Warn("メッセージ履歴の取得に失敗したため削除をスキップします", "error", err)
		return nil
	}

	cutoff := uc.settings.PruneCutoffPolicy.Cutoff(now, uc.settings.Location)
	stale := make([]domain.Announcement, 0, len(messages))
	for _, m := range messages {
		if m.IsAuthoredBy(uc.settings.BotID) && m.IsStale(cutoff) {
			stale = append(stale, m)
		}
	}
	logger.Info("削除対象の告知を判定しました",
		"scanned", len(messages),
		"stale", len(stale),
		"cutoff", cutoff.Format(time.RFC3339))

	var authErr error
	for i, err := range uc.fanOut(ctx, len(stale), func(ctx context.Context, i int) error {
		return uc.channel.DeleteMessage(ctx, stale[i])
	}) {
		if err == nil {
			report.Pruned++
			continue
		}
		report.PruneFailures++
		logger.Warn("告知の削除に失敗しました", "message_id", stale[i].ID, "error", err)
		if authErr == nil && errors.Is(err, domain.ErrAuthentication) {
			authErr = err
		}
	}
	return authErr
}

// post 絞り込んだイベントを告知として投稿する
func (uc *SyncEventsUseCase) post(ctx context.Context, report *RunReport, logger *slog.Logger, events []domain.Event) error {
	var failures []error
	var authErr error

	for i, err := range uc.fanOut(ctx, len(events), func(ctx context.Context, i int) error {
		text := formatter.Render(events[i], uc.settings.Location, uc.settings.Labels)
		return uc.channel.PostMessage(ctx, uc.settings.ChannelID, text)
	}) {
		if err == nil {
			report.Posted++
			logger.Debug("告知を投稿しました", "event_id", events[i].ID, "title", events[i].Title)
			continue
		}
		report.PostFailures++
		logger.Warn("告知の投稿に失敗しました", "event_id", events[i].ID, "link", events[i].Link, "error", err)
		failures = append(failures, fmt.Errorf("%s: %w", events[i].Link, err))
		if authErr == nil && errors.Is(err, domain.ErrAuthentication) {
			authErr = err
		}
	}

	logger.Info("告知を投稿しました", "posted", report.Posted, "failed", report.PostFailures)

	if authErr != nil {
		return authErr
	}
	if len(failures) > 0 {
		return fmt.Errorf("%w: %d/%d 件の投稿に失敗しました: %w",
			domain.ErrChannelOperation, len(failures), len(events), errors.Join(failures...))
	}
	return nil
}

// fanOut n 件の操作を並行に実行し、全件の完了を待って結果を添字順に返す
// 1件の失敗で他の操作は取り消さない。
func (uc *SyncEventsUseCase) fanOut(ctx context.Context, n int, op func(ctx context.Context, i int) error) []error {
	errs := make([]error, n)

	var g errgroup.Group
	g.SetLimit(uc.settings.Concurrency)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			errs[i] = op(ctx, i)
			return nil
		})
	}
	_ = g.Wait()

	return errs
}

func (uc *SyncEventsUseCase) transition(report *RunReport, logger *slog.Logger, next RunState) {
	if report.State == next {
		return
	}
	logger.Debug("状態遷移", "from", report.State, "to", next)
	report.State = next
}
