package gateway

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/k-negishi/event-sync-notifier/internal/domain"
)

// startLinePattern Meetup のRSSに含まれる開催日時の行 (例: "Friday, June 7 at 7:00 PM")
var startLinePattern = regexp.MustCompile(
	`(?:Monday|Tuesday|Wednesday|Thursday|Friday|Saturday|Sunday), ` +
		`(January|February|March|April|May|June|July|August|September|October|November|December) ` +
		`(\d{1,2}) at (\d{1,2}):(\d{2}) ([AP]M)`)

var digitsPattern = regexp.MustCompile(`^\d+$`)

const onlineEventMarker = "Online event"

// RSSFeedClient Meetup形式のRSSフィードを使用したFeedClientの実装
type RSSFeedClient struct {
	url        string
	httpClient *http.Client
	parser     *gofeed.Parser
	location   *time.Location
	clock      func() time.Time
}

// NewRSSFeedClient RSSフィードクライアントを作成
func NewRSSFeedClient(url string, loc *time.Location) *RSSFeedClient {
	return &RSSFeedClient{
		url:        url,
		httpClient: newFeedHTTPClient(),
		parser:     gofeed.NewParser(),
		location:   loc,
		clock:      time.Now,
	}
}

// Fetch フィードを取得してイベントに正規化する
func (c *RSSFeedClient) Fetch(ctx context.Context) ([]domain.Event, error) {
	body, err := fetchFeedBody(ctx, c.httpClient, c.url, "application/rss+xml, application/xml")
	if err != nil {
		return nil, err
	}

	feed, err := c.parser.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: RSSの解析に失敗しました: %w", domain.ErrFeedUnavailable, err)
	}

	now := c.clock().In(c.location)
	events := make([]domain.Event, 0, len(feed.Items))
	for _, item := range feed.Items {
		event, err := c.normalizeItem(item, feed.Title, now)
		if err != nil {
			slog.Warn("イベントの変換をスキップしました", "guid", item.GUID, "error", err)
			continue
		}
		events = append(events, event)
	}

	slog.Debug("RSSフィードを取得しました", "feed", feed.Title, "items", len(feed.Items), "events", len(events))
	return events, nil
}

// normalizeItem RSSの1件をドメインエンティティに変換
// 開催日時は本文の日付行から読み取り、グループ名・数字だけの段落・GUIDは説明に含めない。
func (c *RSSFeedClient) normalizeItem(item *gofeed.Item, feedTitle string, now time.Time) (domain.Event, error) {
	link := cmp.Or(item.Link, item.GUID)
	if link == "" {
		return domain.Event{}, fmt.Errorf("%w: リンクがありません", domain.ErrMalformedEvent)
	}

	event := domain.Event{
		ID:           cmp.Or(item.GUID, item.Link),
		Title:        strings.TrimSpace(item.Title),
		RSVPCapacity: domain.UnlimitedRSVP,
		Hosts:        itemHosts(item),
		Link:         link,
	}

	var description []string
	for _, p := range paragraphs(cmp.Or(item.Content, item.Description)) {
		if start, ok := parseStartLine(p, now, c.location); ok {
			if event.StartTime.IsZero() {
				event.StartTime = start
			}
			continue
		}
		switch {
		case p == onlineEventMarker:
			event.IsOnline = true
		case digitsPattern.MatchString(p), p == item.GUID, p == item.Link:
			// 参加者数やURLだけの段落
		case feedTitle != "" && strings.Contains(p, feedTitle):
			// グループ名
		default:
			description = append(description, p)
		}
	}
	event.Description = strings.Join(description, "\n")

	if !event.HasStartTime() {
		return domain.Event{}, fmt.Errorf("%w: 開催日時が見つかりません: %s", domain.ErrMalformedEvent, link)
	}
	return event, nil
}

// parseStartLine 日付行を解析する。年は含まれないため now から推定する
// 半年以上前の日付になる場合は翌年のイベントとみなす。
func parseStartLine(line string, now time.Time, loc *time.Location) (time.Time, bool) {
	m := startLinePattern.FindStringSubmatch(line)
	if m == nil {
		return time.Time{}, false
	}

	value := fmt.Sprintf("%s %s %d %s:%s %s", m[1], m[2], now.Year(), m[3], m[4], m[5])
	start, err := time.ParseInLocation("January 2 2006 3:04 PM", value, loc)
	if err != nil {
		return time.Time{}, false
	}
	if start.Before(now.AddDate(0, -6, 0)) {
		start = start.AddDate(1, 0, 0)
	}
	return start, true
}

func itemHosts(item *gofeed.Item) []string {
	var hosts []string
	for _, author := range item.Authors {
		if author == nil {
			continue
		}
		if name := strings.TrimSpace(cmp.Or(author.Name, author.Email)); name != "" {
			hosts = append(hosts, name)
		}
	}
	if len(hosts) == 0 && item.Author != nil {
		if name := strings.TrimSpace(cmp.Or(item.Author.Name, item.Author.Email)); name != "" {
			hosts = append(hosts, name)
		}
	}
	return hosts
}
