package gateway

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/k-negishi/event-sync-notifier/internal/domain"
)

const (
	untitledEvent = "(untitled)"
	// calendarLookAheadDays 前日から数えて取得する日数
	calendarLookAheadDays = 8
)

// GoogleCalendarFeedClient Google Calendar APIを使用したFeedClientの実装
type GoogleCalendarFeedClient struct {
	service    *calendar.Service
	calendarID string
	location   *time.Location
	clock      func() time.Time
}

// NewGoogleCalendarFeedClient サービスアカウントの認証情報でクライアントを作成
func NewGoogleCalendarFeedClient(ctx context.Context, credentialsJSON []byte, calendarID string, loc *time.Location) (*GoogleCalendarFeedClient, error) {
	// サービスアカウント認証でCalendar APIクライアントを作成
	creds, err := google.CredentialsFromJSON(ctx, credentialsJSON, calendar.CalendarReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("google認証情報の読み込みに失敗しました: %w", err)
	}

	return newGoogleCalendarFeedClient(ctx, calendarID, loc, option.WithCredentials(creds))
}

func newGoogleCalendarFeedClient(ctx context.Context, calendarID string, loc *time.Location, opts ...option.ClientOption) (*GoogleCalendarFeedClient, error) {
	service, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("google Calendar APIサービスの作成に失敗しました: %w", err)
	}

	return &GoogleCalendarFeedClient{
		service:    service,
		calendarID: calendarID,
		location:   loc,
		clock:      time.Now,
	}, nil
}

// Fetch 前日0時から1週間先までの予定を取得
func (c *GoogleCalendarFeedClient) Fetch(ctx context.Context) ([]domain.Event, error) {
	timeMin := domain.StartOfDay(c.clock(), c.location).AddDate(0, 0, -1)
	timeMax := timeMin.AddDate(0, 0, calendarLookAheadDays)

	call := c.service.Events.List(c.calendarID).
		TimeMin(timeMin.Format(time.RFC3339)).
		TimeMax(timeMax.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(250)

	var events []domain.Event
	err := call.Pages(ctx, func(page *calendar.Events) error {
		for _, item := range page.Items {
			event, err := c.convertToEvent(item)
			if err != nil {
				slog.Warn("イベントの変換をスキップしました", "id", item.Id, "error", err)
				continue
			}
			events = append(events, event)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: カレンダーイベントの取得に失敗しました: %w", domain.ErrFeedUnavailable, err)
	}

	return events, nil
}

// convertToEvent Google Calendar APIのイベントをドメインエンティティに変換
func (c *GoogleCalendarFeedClient) convertToEvent(item *calendar.Event) (domain.Event, error) {
	event := domain.Event{
		ID:           item.Id,
		Title:        cmp.Or(strings.TrimSpace(item.Summary), untitledEvent),
		Location:     domain.Location{Name: strings.TrimSpace(item.Location)},
		RSVPCapacity: domain.UnlimitedRSVP,
		Description:  htmlToText(item.Description),
		Link:         item.HtmlLink,
	}

	if event.Link == "" {
		return domain.Event{}, fmt.Errorf("%w: リンクがありません", domain.ErrMalformedEvent)
	}

	// 会場がなく会議URLだけがある予定はオンライン扱い
	if event.Location.Name == "" && (item.HangoutLink != "" || item.ConferenceData != nil) {
		event.IsOnline = true
	}

	if item.Organizer != nil {
		if host := cmp.Or(item.Organizer.DisplayName, item.Organizer.Email); host != "" {
			event.Hosts = []string{host}
		}
	}

	switch {
	case item.Start == nil:
		return domain.Event{}, fmt.Errorf("%w: 開始時刻が設定されていません", domain.ErrMalformedEvent)
	case item.Start.DateTime != "":
		// 時刻指定ありのイベント
		start, err := time.Parse(time.RFC3339, item.Start.DateTime)
		if err != nil {
			return domain.Event{}, fmt.Errorf("%w: 開始時刻の解析に失敗しました: %w", domain.ErrMalformedEvent, err)
		}
		event.StartTime = start.In(c.location)
	case item.Start.Date != "":
		// 終日イベント
		start, err := time.ParseInLocation("2006-01-02", item.Start.Date, c.location)
		if err != nil {
			return domain.Event{}, fmt.Errorf("%w: 開始日の解析に失敗しました: %w", domain.ErrMalformedEvent, err)
		}
		event.StartTime = start
	default:
		return domain.Event{}, fmt.Errorf("%w: 開始時刻が設定されていません", domain.ErrMalformedEvent)
	}

	return event, nil
}
