package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/k-negishi/event-sync-notifier/internal/domain"
)

const meetupRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:dc="http://purl.org/dc/elements/1.1/">
  <channel>
    <title>Introverts Hangout</title>
    <link>https://www.meetup.com/introverts-hangout/</link>
    <description>Events</description>
    <item>
      <title> Coffee &amp; Conversation </title>
      <link>https://www.meetup.com/introverts-hangout/events/300000001/</link>
      <guid>https://www.meetup.com/introverts-hangout/events/300000001/</guid>
      <dc:creator>Jane Doe</dc:creator>
      <description><![CDATA[<p>Introverts Hangout</p><p>Quiet coffee meetup downtown.</p><p>Bring a book.</p><p>Friday, June 7 at 7:00 PM</p><p>12</p><p>https://www.meetup.com/introverts-hangout/events/300000001/</p>]]></description>
    </item>
    <item>
      <title>Board Games Online</title>
      <link>https://www.meetup.com/introverts-hangout/events/300000002/</link>
      <guid>https://www.meetup.com/introverts-hangout/events/300000002/</guid>
      <description><![CDATA[<p>Online event</p><p>Play together remotely.</p><p>Saturday, June 8 at 12:30 PM</p>]]></description>
    </item>
    <item>
      <title>No date here</title>
      <link>https://www.meetup.com/introverts-hangout/events/300000003/</link>
      <guid>https://www.meetup.com/introverts-hangout/events/300000003/</guid>
      <description><![CDATA[<p>Details to be announced.</p>]]></description>
    </item>
  </channel>
</rss>`

func newTestRSSFeedClient(url string, now time.Time) *RSSFeedClient {
	c := NewRSSFeedClient(url, time.UTC)
	c.clock = func() time.Time { return now }
	return c
}

func TestRSSFeedClient_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, defaultUserAgent, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(meetupRSS))
	}))
	defer server.Close()

	c := newTestRSSFeedClient(server.URL, time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC))

	events, err := c.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 2)

	coffee := events[0]
	assert.Equal(t, "Coffee & Conversation", coffee.Title)
	assert.Equal(t, time.Date(2024, 6, 7, 19, 0, 0, 0, time.UTC), coffee.StartTime)
	assert.Equal(t, "Quiet coffee meetup downtown.\nBring a book.", coffee.Description)
	assert.Equal(t, []string{"Jane Doe"}, coffee.Hosts)
	assert.Equal(t, "https://www.meetup.com/introverts-hangout/events/300000001/", coffee.Link)
	assert.True(t, coffee.RSVPCapacity.IsUnlimited())
	assert.False(t, coffee.IsOnline)

	games := events[1]
	assert.True(t, games.IsOnline)
	assert.Equal(t, time.Date(2024, 6, 8, 12, 30, 0, 0, time.UTC), games.StartTime)
	assert.Equal(t, "Play together remotely.", games.Description)
	assert.Empty(t, games.Hosts)
}

func TestRSSFeedClient_Fetch_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"message":"maintenance"}`))
	}))
	defer server.Close()

	c := newTestRSSFeedClient(server.URL, time.Now())

	events, err := c.Fetch(context.Background())
	assert.Nil(t, events)
	assert.ErrorIs(t, err, domain.ErrFeedUnavailable)
	assert.Contains(t, err.Error(), "Status: 503")
	assert.Contains(t, err.Error(), "maintenance")
}

func TestRSSFeedClient_Fetch_InvalidXML(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html><body>not a feed"))
	}))
	defer server.Close()

	c := newTestRSSFeedClient(server.URL, time.Now())

	_, err := c.Fetch(context.Background())
	assert.ErrorIs(t, err, domain.ErrFeedUnavailable)
}

func TestRSSFeedClient_Fetch_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	c := newTestRSSFeedClient(url, time.Now())

	_, err := c.Fetch(context.Background())
	assert.ErrorIs(t, err, domain.ErrFeedUnavailable)
}

func TestNormalizeItem_MissingDateLine(t *testing.T) {
	c := newTestRSSFeedClient("", time.Now())

	_, err := c.normalizeItem(&gofeed.Item{
		Title:       "TBA",
		Link:        "https://example.com/events/1",
		Description: "<p>Soon</p>",
	}, "Group", time.Now())
	assert.ErrorIs(t, err, domain.ErrMalformedEvent)
}

func TestParseStartLine(t *testing.T) {
	now := time.Date(2024, 12, 20, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		line     string
		expected time.Time
		ok       bool
	}{
		{"same year", "Monday, December 30 at 6:05 PM", time.Date(2024, 12, 30, 18, 5, 0, 0, time.UTC), true},
		{"rolls into next year", "Friday, January 10 at 9:00 AM", time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC), true},
		{"noon", "Sunday, December 22 at 12:00 PM", time.Date(2024, 12, 22, 12, 0, 0, 0, time.UTC), true},
		{"midnight", "Sunday, December 22 at 12:00 AM", time.Date(2024, 12, 22, 0, 0, 0, 0, time.UTC), true},
		{"recent past stays", "Tuesday, October 1 at 7:00 PM", time.Date(2024, 10, 1, 19, 0, 0, 0, time.UTC), true},
		{"embedded in sentence", "Starts Monday, December 30 at 6:05 PM sharp", time.Date(2024, 12, 30, 18, 5, 0, 0, time.UTC), true},
		{"not a date", "Bring snacks", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseStartLine(tt.line, now, time.UTC)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestParagraphs(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, paragraphs("<p> a </p><p></p><p>b</p>"))
	assert.Equal(t, []string{"plain text"}, paragraphs("plain text"))
	assert.Empty(t, paragraphs(""))
	assert.Equal(t, "Hello world\nBye", htmlToText("<p>Hello <b>world</b></p><p>Bye</p>"))
}
