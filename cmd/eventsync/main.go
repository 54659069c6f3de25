// Command eventsync はフィードの新しいイベントをDiscordに告知する処理を1回だけ実行する。
// cron などのスケジューラから呼び出す。
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jessevdk/go-flags"

	"github.com/k-negishi/event-sync-notifier/internal/app"
	"github.com/k-negishi/event-sync-notifier/internal/config"
)

type options struct {
	ConfigFile string `long:"config" short:"c" env:"CONFIG_FILE" description:"YAML configuration file (environment variables take precedence)"`
	EnvFile    string `long:"env-file" description:"dotenv file to load (default: .env)"`
	DryRun     bool   `long:"dry-run" description:"Log posts and deletes instead of performing them"`
	Debug      bool   `long:"debug" description:"Enable debug logging"`
}

func main() {
	os.Exit(run())
}

func run() int {
	var opts options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			return 0
		}
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx, config.Options{ConfigFile: opts.ConfigFile, EnvFile: opts.EnvFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "設定の読み込みに失敗しました: %v\n", err)
		return 1
	}
	if opts.DryRun {
		cfg.DryRun = true
	}

	level := cfg.Level()
	if opts.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(app.NewLogger(os.Stderr, level, false))

	report, err := app.New(cfg).Run(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			slog.Error("同期処理に失敗しました", "error", err, "state", report.State)
		}
		return 1
	}

	slog.Info("同期処理が完了しました",
		"run_id", report.RunID,
		"pruned", report.Pruned,
		"selected", report.Selected,
		"posted", report.Posted,
		"duration", report.Duration)
	return 0
}
