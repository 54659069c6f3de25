package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/k-negishi/event-sync-notifier/internal/app"
	"github.com/k-negishi/event-sync-notifier/internal/config"
	"github.com/k-negishi/event-sync-notifier/internal/domain"
)

// LambdaEvent Lambda実行時のイベント構造体
type LambdaEvent struct {
	// EventBridge Schedulerからの実行なので特に使用しない
}

// LambdaResponse Lambda実行結果のレスポンス
type LambdaResponse struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
}

// handler Lambda関数のメインハンドラー
func handler(ctx context.Context, _ LambdaEvent) (LambdaResponse, error) {
	// 設定を読み込み
	cfg, err := config.Load(ctx, config.Options{})
	if err != nil {
		slog.Error("設定の読み込みに失敗しました", "error", err)
		return LambdaResponse{
			StatusCode: 500,
			Message:    "設定読み込みエラー",
		}, err
	}
	slog.SetDefault(app.NewLogger(os.Stdout, cfg.Level(), true))

	report, err := app.New(cfg).Run(ctx)
	switch {
	case errors.Is(err, domain.ErrChannelOperation):
		// 一部の投稿に失敗しても他の投稿は完了している
		return LambdaResponse{
			StatusCode: 500,
			Message:    fmt.Sprintf("一部の告知の投稿に失敗しました (%d/%d)", report.PostFailures, report.Selected),
		}, err
	case err != nil:
		return LambdaResponse{
			StatusCode: 500,
			Message:    "同期処理エラー",
		}, err
	case report.Selected == 0:
		return LambdaResponse{
			StatusCode: 200,
			Message:    "新しいイベントなし",
		}, nil
	}

	return LambdaResponse{
		StatusCode: 200,
		Message:    fmt.Sprintf("告知投稿完了 (%d件)", report.Posted),
	}, nil
}

func main() {
	slog.SetDefault(app.NewLogger(os.Stdout, slog.LevelInfo, true))
	lambda.Start(handler)
}
