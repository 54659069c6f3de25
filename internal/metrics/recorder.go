// Package metrics 同期処理の実行結果を Prometheus のメトリクスとして記録する
package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/k-negishi/event-sync-notifier/internal/usecase"
)

const (
	namespace = "eventsync"
	jobName   = "event_sync_notifier"

	// StateSkipped 他の実行がロックを保持していたため実行しなかった
	StateSkipped = "skipped"
)

// Recorder usecase.RunRecorder の Prometheus 実装
// 1回の実行ごとにプロセスが終わるため、レジストリは専用のものを使い Pushgateway に送る。
type Recorder struct {
	registry *prometheus.Registry

	posted   prometheus.Counter
	pruned   prometheus.Counter
	failures *prometheus.CounterVec
	selected prometheus.Gauge
	duration prometheus.Histogram
	runs     *prometheus.CounterVec
}

// NewRecorder メトリクスを登録したレコーダーを作成
func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Recorder{
		registry: registry,
		posted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "announcements_posted_total",
			Help:      "Announcements posted to the channel",
		}),
		pruned: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "announcements_pruned_total",
			Help:      "Stale announcements deleted from the channel",
		}),
		failures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operation_failures_total",
			Help:      "Channel operations that failed",
		}, []string{"operation"}),
		selected: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "events_selected",
			Help:      "Events selected for the target date in the last run",
		}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a sync run",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
		}),
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Sync runs by final state",
		}, []string{"state"}),
	}
}

// RecordRun 実行結果をメトリクスに反映
func (r *Recorder) RecordRun(report usecase.RunReport) {
	r.posted.Add(float64(report.Posted))
	r.pruned.Add(float64(report.Pruned))
	r.failures.WithLabelValues("post").Add(float64(report.PostFailures))
	r.failures.WithLabelValues("prune").Add(float64(report.PruneFailures))
	r.selected.Set(float64(report.Selected))
	r.duration.Observe(report.Duration.Seconds())
	r.runs.WithLabelValues(string(report.State)).Inc()
}

// RecordSkipped ロックを取得できずに実行を見送ったことを記録
func (r *Recorder) RecordSkipped() {
	r.runs.WithLabelValues(StateSkipped).Inc()
}

// Registry メトリクスのレジストリ
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Push Pushgatewayにメトリクスを送信
func (r *Recorder) Push(ctx context.Context, gatewayURL, channelID string) error {
	err := push.New(gatewayURL, jobName).
		Gatherer(r.registry).
		Grouping("channel", channelID).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("メトリクスの送信に失敗しました: %w", err)
	}
	return nil
}
