package config

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/k-negishi/event-sync-notifier/internal/domain"
)

// FeedKind フィードの種類
type FeedKind string

const (
	FeedKindRSS            FeedKind = "rss"
	FeedKindJSON           FeedKind = "json"
	FeedKindGoogleCalendar FeedKind = "gcal"
)

const (
	defaultBotTokenParam    = "/event-sync-notifier/discord-bot-token"
	defaultGoogleCredsParam = "/event-sync-notifier/google-creds"
)

var snowflakePattern = regexp.MustCompile(`^\d+$`)

// Config アプリケーション設定構造体
type Config struct {
	// Discord設定
	DiscordBotToken  string
	DiscordChannelID string
	DiscordBotID     string

	// フィード設定
	FeedKind          FeedKind
	FeedURL           string
	GoogleCredentials string

	// 同期設定
	WindowPolicy      domain.WindowPolicy
	PruneCutoffPolicy domain.PruneCutoffPolicy
	MessageFetchLimit int
	PostConcurrency   int
	RunTimeout        time.Duration
	Timezone          string
	Locale            string

	// その他設定
	PushgatewayURL string
	RedisURL       string
	LogLevel       string
	DryRun         bool

	location *time.Location

	// AWS関連（本番環境でのみ使用）
	ssmClient ssmParameterGetter
}

// Options 読み込み元の指定。空の場合は環境変数とカレントディレクトリの .env を使う
type Options struct {
	ConfigFile string
	EnvFile    string
}

// ssmParameterGetter Parameter Storeからの取得に使う操作
type ssmParameterGetter interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// fileConfig 設定ファイル(YAML)の構造体。環境変数が優先される
type fileConfig struct {
	Discord struct {
		ChannelID string `yaml:"channel_id"`
		BotID     string `yaml:"bot_id"`
	} `yaml:"discord"`
	Feed struct {
		Kind string `yaml:"kind"`
		URL  string `yaml:"url"`
	} `yaml:"feed"`
	Sync struct {
		Window            string `yaml:"window"`
		PruneCutoff       string `yaml:"prune_cutoff"`
		MessageFetchLimit int    `yaml:"message_fetch_limit"`
		Concurrency       int    `yaml:"concurrency"`
		Timeout           string `yaml:"timeout"`
		Timezone          string `yaml:"timezone"`
		Locale            string `yaml:"locale"`
	} `yaml:"sync"`
	PushgatewayURL string `yaml:"pushgateway_url"`
	RedisURL       string `yaml:"redis_url"`
	LogLevel       string `yaml:"log_level"`
	DryRun         bool   `yaml:"dry_run"`
}

// Load 環境に応じて設定を読み込み
func Load(ctx context.Context, opts Options) (*Config, error) {
	// AWS Lambda環境かどうか判定
	if os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" {
		return loadAWSConfig(ctx, opts)
	}
	return loadLocalConfig(opts)
}

// loadLocalConfig ローカル開発環境用の設定読み込み
func loadLocalConfig(opts Options) (*Config, error) {
	// .envファイルを読み込み（存在する場合のみ）
	var envFiles []string
	if opts.EnvFile != "" {
		envFiles = append(envFiles, opts.EnvFile)
	}
	if err := godotenv.Load(envFiles...); err != nil {
		// .envファイルが存在しない場合はエラーにしない
		slog.Warn(".envファイルが見つかりません", "error", err)
	}

	cfg, err := newConfig(opts.ConfigFile)
	if err != nil {
		return nil, err
	}
	cfg.DiscordBotToken = getEnvOrDefault("DISCORD_BOT_TOKEN", "")
	cfg.GoogleCredentials = getEnvOrDefault("GOOGLE_CREDENTIALS", "")

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadAWSConfig AWS Lambda環境用の設定読み込み
func loadAWSConfig(ctx context.Context, opts Options) (*Config, error) {
	// AWS設定を初期化
	awsConfig, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("AWS設定の読み込みに失敗しました: %w", err)
	}

	return loadWithParameterStore(ctx, opts, ssm.NewFromConfig(awsConfig))
}

func loadWithParameterStore(ctx context.Context, opts Options, client ssmParameterGetter) (*Config, error) {
	cfg, err := newConfig(opts.ConfigFile)
	if err != nil {
		return nil, err
	}
	cfg.ssmClient = client

	// Parameter Storeから機密情報を取得
	if err := cfg.loadFromParameterStore(ctx); err != nil {
		return nil, fmt.Errorf("Parameter Storeからの設定読み込みに失敗しました: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newConfig 設定ファイルと環境変数から機密情報以外の設定を組み立てる
func newConfig(path string) (*Config, error) {
	file, err := loadFile(cmp.Or(path, getEnvOrDefault("CONFIG_FILE", "")))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DiscordChannelID: getEnvOrDefault("DISCORD_CHANNEL_ID", file.Discord.ChannelID),
		DiscordBotID:     getEnvOrDefault("DISCORD_BOT_ID", file.Discord.BotID),
		FeedKind:         FeedKind(strings.ToLower(getEnvOrDefault("FEED_KIND", cmp.Or(file.Feed.Kind, string(FeedKindRSS))))),
		FeedURL:          getEnvOrDefault("FEED_URL", file.Feed.URL),
		Timezone:         getEnvOrDefault("TIMEZONE", cmp.Or(file.Sync.Timezone, "UTC")),
		Locale:           getEnvOrDefault("LOCALE", cmp.Or(file.Sync.Locale, "en")),
		PushgatewayURL:   getEnvOrDefault("PUSHGATEWAY_URL", file.PushgatewayURL),
		RedisURL:         getEnvOrDefault("REDIS_URL", file.RedisURL),
		LogLevel:         getEnvOrDefault("LOG_LEVEL", cmp.Or(file.LogLevel, "INFO")),
	}

	if cfg.WindowPolicy, err = domain.ParseWindowPolicy(getEnvOrDefault("WINDOW_POLICY", cmp.Or(file.Sync.Window, string(domain.WindowToday)))); err != nil {
		return nil, err
	}
	if cfg.PruneCutoffPolicy, err = domain.ParsePruneCutoffPolicy(getEnvOrDefault("PRUNE_CUTOFF_POLICY", cmp.Or(file.Sync.PruneCutoff, string(domain.CutoffNow)))); err != nil {
		return nil, err
	}
	if cfg.MessageFetchLimit, err = getEnvInt("MESSAGE_FETCH_LIMIT", cmp.Or(file.Sync.MessageFetchLimit, 100)); err != nil {
		return nil, err
	}
	if cfg.PostConcurrency, err = getEnvInt("POST_CONCURRENCY", cmp.Or(file.Sync.Concurrency, 1)); err != nil {
		return nil, err
	}
	if cfg.RunTimeout, err = getEnvDuration("RUN_TIMEOUT", file.Sync.Timeout); err != nil {
		return nil, err
	}
	if cfg.DryRun, err = getEnvBool("DRY_RUN", file.DryRun); err != nil {
		return nil, err
	}

	if cfg.location, err = time.LoadLocation(cfg.Timezone); err != nil {
		return nil, fmt.Errorf("タイムゾーン %s の読み込みに失敗しました: %w", cfg.Timezone, err)
	}

	return cfg, nil
}

// loadFile 設定ファイルを読み込む。パスが空の場合は空の設定を返す
func loadFile(path string) (fileConfig, error) {
	var file fileConfig
	if path == "" {
		return file, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return file, fmt.Errorf("設定ファイル %s の読み込みに失敗しました: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return file, fmt.Errorf("設定ファイル %s の解析に失敗しました: %w", path, err)
	}
	return file, nil
}

// validate 必須設定項目の確認
func (c *Config) validate() error {
	if c.DiscordBotToken == "" {
		return fmt.Errorf("DISCORD_BOT_TOKEN環境変数が設定されていません")
	}
	if c.DiscordChannelID == "" {
		return fmt.Errorf("DISCORD_CHANNEL_ID環境変数が設定されていません")
	}
	if !snowflakePattern.MatchString(c.DiscordChannelID) {
		return fmt.Errorf("DISCORD_CHANNEL_IDは数字のみで指定してください: %q", c.DiscordChannelID)
	}
	if c.DiscordBotID != "" && !snowflakePattern.MatchString(c.DiscordBotID) {
		return fmt.Errorf("DISCORD_BOT_IDは数字のみで指定してください: %q", c.DiscordBotID)
	}
	if c.FeedURL == "" {
		return fmt.Errorf("FEED_URL環境変数が設定されていません")
	}

	switch c.FeedKind {
	case FeedKindRSS, FeedKindJSON:
	case FeedKindGoogleCalendar:
		if c.GoogleCredentials == "" {
			return fmt.Errorf("GOOGLE_CREDENTIALS環境変数が設定されていません")
		}
	default:
		return fmt.Errorf("不明なフィードの種類です: %q (rss|json|gcal)", c.FeedKind)
	}

	if c.MessageFetchLimit <= 0 {
		return fmt.Errorf("MESSAGE_FETCH_LIMITは1以上で指定してください: %d", c.MessageFetchLimit)
	}
	if c.PostConcurrency <= 0 {
		return fmt.Errorf("POST_CONCURRENCYは1以上で指定してください: %d", c.PostConcurrency)
	}
	if c.RunTimeout < 0 {
		return fmt.Errorf("RUN_TIMEOUTは0以上で指定してください: %s", c.RunTimeout)
	}
	return nil
}

// loadFromParameterStore Parameter Storeから機密情報を読み込み
func (c *Config) loadFromParameterStore(ctx context.Context) error {
	// Discord Bot Tokenを取得
	tokenParam := getEnvOrDefault("DISCORD_BOT_TOKEN_PARAM", defaultBotTokenParam)
	token, err := c.getParameter(ctx, tokenParam, true)
	if err != nil {
		return fmt.Errorf("Discord Bot Tokenの取得に失敗しました: %w", err)
	}
	c.DiscordBotToken = token

	// Google認証情報はカレンダーを使う場合のみ取得
	if c.FeedKind == FeedKindGoogleCalendar {
		googleCredsParam := getEnvOrDefault("GOOGLE_CREDS_PARAM", defaultGoogleCredsParam)
		googleCreds, err := c.getParameter(ctx, googleCredsParam, true)
		if err != nil {
			return fmt.Errorf("Google認証情報の取得に失敗しました: %w", err)
		}
		c.GoogleCredentials = googleCreds
	}

	return nil
}

// getParameter Parameter Storeから指定されたパラメータを取得
func (c *Config) getParameter(ctx context.Context, paramName string, withDecryption bool) (string, error) {
	input := &ssm.GetParameterInput{
		Name:           aws.String(paramName),
		WithDecryption: aws.Bool(withDecryption),
	}

	result, err := c.ssmClient.GetParameter(ctx, input)
	if err != nil {
		return "", fmt.Errorf("パラメータ %s の取得に失敗しました: %w", paramName, err)
	}

	if result.Parameter == nil || result.Parameter.Value == nil || *result.Parameter.Value == "" {
		return "", fmt.Errorf("パラメータ %s が空の値です", paramName)
	}

	return *result.Parameter.Value, nil
}

// Location 設定されたタイムゾーン
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

// Level LOG_LEVEL を slog のレベルに変換。不明な値は INFO
func (c *Config) Level() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// GoogleCredentialsJSON Google認証情報をJSONとして検証して返す
func (c *Config) GoogleCredentialsJSON() ([]byte, error) {
	data := []byte(c.GoogleCredentials)
	if !json.Valid(data) {
		return nil, fmt.Errorf("Google認証情報のJSON解析に失敗しました")
	}
	return data, nil
}

// getEnvOrDefault 環境変数を取得し、存在しない場合はデフォルト値を返す
func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := getEnvOrDefault(key, "")
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%sは整数で指定してください: %w", key, err)
	}
	return n, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := getEnvOrDefault(key, "")
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%sは true/false で指定してください: %w", key, err)
	}
	return b, nil
}

func getEnvDuration(key, defaultValue string) (time.Duration, error) {
	value := getEnvOrDefault(key, defaultValue)
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%sは期間(例: 5m)で指定してください: %w", key, err)
	}
	return d, nil
}
