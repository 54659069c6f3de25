package i18n

import (
	"embed"
	"log/slog"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/language"

	"github.com/k-negishi/event-sync-notifier/internal/formatter"
)

//go:embed active.*.toml
var localeFS embed.FS

// Translator go-i18n の Bundle を薄くラップした見出しカタログ
type Translator struct {
	bundle          *i18n.Bundle
	defaultLanguage language.Tag
}

// NewTranslator 埋め込みの active.*.toml を読み込んだ Translator を作成
// 既定言語は常に英語。英語の見出しが投稿フォーマットの基準になる。
func NewTranslator() *Translator {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	for _, file := range []string{"active.en.toml", "active.fr.toml"} {
		if _, err := bundle.LoadMessageFileFS(localeFS, file); err != nil {
			slog.Warn("翻訳ファイルの読み込みに失敗しました", "file", file, "error", err)
		}
	}

	return &Translator{
		bundle:          bundle,
		defaultLanguage: language.English,
	}
}

// T キーに対応する文言を返す。見つからない場合は fallback を返す
func (t *Translator) T(locale, key, fallback string) string {
	languages := []string{}
	if locale != "" {
		languages = append(languages, locale)
	}
	languages = append(languages, t.defaultLanguage.String())

	localizer := i18n.NewLocalizer(t.bundle, languages...)
	msg, err := localizer.Localize(&i18n.LocalizeConfig{MessageID: key})
	if err != nil {
		slog.Debug("翻訳が見つかりません", "key", key, "locales", languages, "error", err)
		return fallback
	}
	return msg
}

// Labels 指定ロケールの見出しを組み立てる
func (t *Translator) Labels(locale string) formatter.Labels {
	d := formatter.DefaultLabels()
	return formatter.Labels{
		When:        t.T(locale, "label.when", d.When),
		Where:       t.T(locale, "label.where", d.Where),
		Online:      t.T(locale, "label.online", d.Online),
		RSVP:        t.T(locale, "label.rsvp", d.RSVP),
		Unlimited:   t.T(locale, "label.unlimited", d.Unlimited),
		Hosts:       t.T(locale, "label.hosts", d.Hosts),
		Description: t.T(locale, "label.description", d.Description),
		Link:        t.T(locale, "label.link", d.Link),
	}
}
