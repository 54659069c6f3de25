package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/k-negishi/event-sync-notifier/internal/domain"
)

// JSONFeedClient Meetup形式のJSONイベント一覧を使用したFeedClientの実装
type JSONFeedClient struct {
	url        string
	httpClient *http.Client
}

// jsonEventsDocument イベント一覧のレスポンス構造体
type jsonEventsDocument struct {
	Events []jsonEvent `json:"events"`
}

// jsonEvent イベント1件の構造体
type jsonEvent struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	DateTime    string     `json:"dateTime"`
	IsOnline    bool       `json:"isOnline"`
	Venue       *jsonVenue `json:"venue"`
	RSVPLimit   *int       `json:"rsvpLimit"`
	Hosts       []jsonHost `json:"hosts"`
	Description string     `json:"description"`
	EventURL    string     `json:"eventUrl"`
}

type jsonVenue struct {
	Name       string `json:"name"`
	Address    string `json:"address"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

type jsonHost struct {
	Name string `json:"name"`
}

// NewJSONFeedClient JSONフィードクライアントを作成
func NewJSONFeedClient(url string) *JSONFeedClient {
	return &JSONFeedClient{
		url:        url,
		httpClient: newFeedHTTPClient(),
	}
}

// Fetch イベント一覧を取得して正規化する
func (c *JSONFeedClient) Fetch(ctx context.Context) ([]domain.Event, error) {
	body, err := fetchFeedBody(ctx, c.httpClient, c.url, "application/json")
	if err != nil {
		return nil, err
	}

	var document jsonEventsDocument
	if err := json.Unmarshal(body, &document); err != nil {
		return nil, fmt.Errorf("%w: JSONの解析に失敗しました: %w", domain.ErrFeedUnavailable, err)
	}

	events := make([]domain.Event, 0, len(document.Events))
	for _, record := range document.Events {
		event, err := convertJSONEvent(record)
		if err != nil {
			slog.Warn("イベントの変換をスキップしました", "id", record.ID, "error", err)
			continue
		}
		events = append(events, event)
	}
	return events, nil
}

// convertJSONEvent JSONの1件をドメインエンティティに変換
func convertJSONEvent(record jsonEvent) (domain.Event, error) {
	if record.EventURL == "" {
		return domain.Event{}, fmt.Errorf("%w: eventUrl がありません", domain.ErrMalformedEvent)
	}

	start, err := time.Parse(time.RFC3339, record.DateTime)
	if err != nil {
		return domain.Event{}, fmt.Errorf("%w: 開始時刻の解析に失敗しました: %w", domain.ErrMalformedEvent, err)
	}

	event := domain.Event{
		ID:           record.ID,
		Title:        strings.TrimSpace(record.Title),
		StartTime:    start,
		IsOnline:     record.IsOnline,
		RSVPCapacity: domain.UnlimitedRSVP,
		Description:  htmlToText(record.Description),
		Link:         record.EventURL,
	}

	if record.RSVPLimit != nil && *record.RSVPLimit >= 0 {
		event.RSVPCapacity = domain.RSVPCapacity(*record.RSVPLimit)
	}

	if record.Venue != nil {
		event.Location = domain.Location{
			Name:       record.Venue.Name,
			Street:     record.Venue.Address,
			City:       record.Venue.City,
			Region:     record.Venue.State,
			PostalCode: record.Venue.PostalCode,
			Country:    record.Venue.Country,
		}
	}

	for _, host := range record.Hosts {
		if name := strings.TrimSpace(host.Name); name != "" {
			event.Hosts = append(event.Hosts, name)
		}
	}

	return event, nil
}
