package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/k-negishi/event-sync-notifier/internal/domain"
)

// Labels 告知メッセージの見出し文言
type Labels struct {
	When        string
	Where       string
	Online      string
	RSVP        string
	Unlimited   string
	Hosts       string
	Description string
	Link        string
}

// DefaultLabels 英語の見出し。投稿フォーマットの基準
func DefaultLabels() Labels {
	return Labels{
		When:        "When",
		Where:       "Where",
		Online:      "Online",
		RSVP:        "RSVP Slots Available",
		Unlimited:   "Unlimited",
		Hosts:       "Host(s)",
		Description: "Description",
		Link:        "Event Link",
	}
}

// Render イベントを告知メッセージの本文に変換
// 現在時刻には依存しない。同じ入力には常に同じ文字列を返す。
func Render(event domain.Event, loc *time.Location, labels Labels) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("**%s**\n\n", event.Title))
	b.WriteString(fmt.Sprintf("%s: %s\n", labels.When, FormatStartTime(event.StartTime, loc)))
	b.WriteString(fmt.Sprintf("%s: %s\n", labels.Where, formatWhere(event, labels)))
	b.WriteString(fmt.Sprintf("%s: %s\n", labels.RSVP, formatCapacity(event.RSVPCapacity, labels)))
	b.WriteString(fmt.Sprintf("%s: %s\n", labels.Hosts, strings.Join(event.Hosts, ", ")))
	b.WriteString(fmt.Sprintf("%s: \"%s\"\n", labels.Description, event.Description))
	b.WriteString(fmt.Sprintf("%s: %s\n\n", labels.Link, event.Link))

	return b.String()
}

// FormatStartTime 例: "Friday, June 7th, 2024 at 7:00 PM EDT"
func FormatStartTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	if loc == nil {
		loc = time.UTC
	}
	t = t.In(loc)
	return fmt.Sprintf("%s, %s %s, %d at %s",
		t.Weekday(),
		t.Month(),
		humanize.Ordinal(t.Day()),
		t.Year(),
		t.Format("3:04 PM MST"))
}

func formatWhere(event domain.Event, labels Labels) string {
	if event.IsOnline {
		return labels.Online
	}
	parts := make([]string, 0, 6)
	for _, f := range event.Location.Fields() {
		if f = strings.TrimSpace(f); f != "" {
			parts = append(parts, f)
		}
	}
	return strings.Join(parts, ", ")
}

func formatCapacity(c domain.RSVPCapacity, labels Labels) string {
	if c.IsUnlimited() {
		return labels.Unlimited
	}
	return c.String()
}
