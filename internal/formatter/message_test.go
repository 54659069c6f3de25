package formatter

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/k-negishi/event-sync-notifier/internal/domain"
)

func newYorkLocation(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	return loc
}

func sampleEvent() domain.Event {
	return domain.Event{
		ID:        "301234567",
		Title:     "Board Game Night",
		StartTime: time.Date(2024, 6, 7, 23, 0, 0, 0, time.UTC),
		Location: domain.Location{
			Name:       "The Hangout Cafe",
			Street:     "12 Main St",
			City:       "Springfield",
			Region:     "IL",
			PostalCode: "62701",
			Country:    "us",
		},
		RSVPCapacity: 20,
		Hosts:        []string{"Alice", "Bob"},
		Description:  "Bring your favorite game.",
		Link:         "https://www.meetup.com/example/events/301234567/",
	}
}

func TestRender_FullLayout(t *testing.T) {
	loc := newYorkLocation(t)

	expected := "**Board Game Night**\n" +
		"\n" +
		"When: Friday, June 7th, 2024 at 7:00 PM EDT\n" +
		"Where: The Hangout Cafe, 12 Main St, Springfield, IL, 62701, us\n" +
		"RSVP Slots Available: 20\n" +
		"Host(s): Alice, Bob\n" +
		"Description: \"Bring your favorite game.\"\n" +
		"Event Link: https://www.meetup.com/example/events/301234567/\n" +
		"\n"

	assert.Equal(t, expected, Render(sampleEvent(), loc, DefaultLabels()))
}

func TestRender_IsDeterministic(t *testing.T) {
	loc := newYorkLocation(t)
	event := sampleEvent()

	first := Render(event, loc, DefaultLabels())
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Render(event, loc, DefaultLabels()))
	}
}

func TestRender_Where(t *testing.T) {
	loc := time.UTC

	tests := []struct {
		name     string
		mutate   func(e *domain.Event)
		expected string
	}{
		{
			name: "オンラインは住所があっても Online",
			mutate: func(e *domain.Event) {
				e.IsOnline = true
			},
			expected: "Where: Online\n",
		},
		{
			name: "空のフィールドは省略",
			mutate: func(e *domain.Event) {
				e.Location = domain.Location{Name: "Library", City: "Springfield", Country: "us"}
			},
			expected: "Where: Library, Springfield, us\n",
		},
		{
			name: "全フィールド空はラベルのみ",
			mutate: func(e *domain.Event) {
				e.Location = domain.Location{}
			},
			expected: "Where: \n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := sampleEvent()
			tt.mutate(&event)
			assert.Contains(t, Render(event, loc, DefaultLabels()), tt.expected)
		})
	}
}

func TestRender_EmptyHostsAndUnlimited(t *testing.T) {
	event := sampleEvent()
	event.Hosts = nil
	event.RSVPCapacity = domain.UnlimitedRSVP

	out := Render(event, time.UTC, DefaultLabels())

	assert.Contains(t, out, "Host(s): \n")
	assert.Contains(t, out, "RSVP Slots Available: Unlimited\n")
}

func TestRender_DescriptionPassesQuotesThrough(t *testing.T) {
	event := sampleEvent()
	event.Description = `He said "hi"`

	out := Render(event, time.UTC, DefaultLabels())

	assert.Contains(t, out, "Description: \"He said \"hi\"\"\n")
}

func TestRender_StartsWithEmphasizedTitle(t *testing.T) {
	out := Render(sampleEvent(), time.UTC, DefaultLabels())
	assert.True(t, strings.HasPrefix(out, "**Board Game Night**\n\n"))
	assert.True(t, strings.HasSuffix(out, "/301234567/\n\n"))
}

func TestFormatStartTime(t *testing.T) {
	loc := time.UTC
	tests := []struct {
		in       time.Time
		expected string
	}{
		{time.Date(2024, 1, 1, 0, 5, 0, 0, loc), "Monday, January 1st, 2024 at 12:05 AM UTC"},
		{time.Date(2024, 1, 2, 12, 0, 0, 0, loc), "Tuesday, January 2nd, 2024 at 12:00 PM UTC"},
		{time.Date(2024, 1, 3, 13, 30, 0, 0, loc), "Wednesday, January 3rd, 2024 at 1:30 PM UTC"},
		{time.Date(2024, 1, 11, 9, 0, 0, 0, loc), "Thursday, January 11th, 2024 at 9:00 AM UTC"},
		{time.Date(2024, 1, 22, 18, 45, 0, 0, loc), "Monday, January 22nd, 2024 at 6:45 PM UTC"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatStartTime(tt.in, loc))
		})
	}

	assert.Equal(t, "", FormatStartTime(time.Time{}, loc))
}

func TestFormatStartTime_NilLocationUsesUTC(t *testing.T) {
	in := time.Date(2024, 1, 15, 9, 0, 0, 0, newYorkLocation(t))
	assert.Equal(t, "Monday, January 15th, 2024 at 2:00 PM UTC", FormatStartTime(in, nil))
}
