package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/k-negishi/event-sync-notifier/internal/domain"
)

func TestSelectEvents_Today(t *testing.T) {
	loc := time.UTC
	reference := time.Date(2024, 1, 15, 8, 0, 0, 0, loc)

	events := []domain.Event{
		{ID: "yesterday", StartTime: time.Date(2024, 1, 14, 19, 0, 0, 0, loc)},
		{ID: "today", StartTime: time.Date(2024, 1, 15, 19, 0, 0, 0, loc)},
		{ID: "tomorrow", StartTime: time.Date(2024, 1, 16, 19, 0, 0, 0, loc)},
	}

	selected := SelectEvents(events, reference, domain.WindowToday, loc)
	assert.Len(t, selected, 1)
	assert.Equal(t, "today", selected[0].ID)
}

func TestSelectEvents_Tomorrow(t *testing.T) {
	loc := time.UTC
	reference := time.Date(2024, 1, 15, 8, 0, 0, 0, loc)

	events := []domain.Event{
		{ID: "today", StartTime: time.Date(2024, 1, 15, 19, 0, 0, 0, loc)},
		{ID: "tomorrow", StartTime: time.Date(2024, 1, 16, 19, 0, 0, 0, loc)},
	}

	selected := SelectEvents(events, reference, domain.WindowTomorrow, loc)
	assert.Len(t, selected, 1)
	assert.Equal(t, "tomorrow", selected[0].ID)
}

func TestSelectEvents_CalendarDateNotClockTime(t *testing.T) {
	loc := time.UTC
	reference := time.Date(2024, 1, 15, 23, 59, 0, 0, loc)

	events := []domain.Event{
		{ID: "midnight-start", StartTime: time.Date(2024, 1, 15, 0, 0, 0, 0, loc)},
		{ID: "late", StartTime: time.Date(2024, 1, 15, 23, 59, 59, 0, loc)},
		{ID: "next-midnight", StartTime: time.Date(2024, 1, 16, 0, 0, 0, 0, loc)},
	}

	selected := SelectEvents(events, reference, domain.WindowToday, loc)
	assert.Len(t, selected, 2)
	assert.Equal(t, "midnight-start", selected[0].ID)
	assert.Equal(t, "late", selected[1].ID)
}

func TestSelectEvents_UsesConfiguredTimezone(t *testing.T) {
	jst := time.FixedZone("JST", 9*60*60)
	reference := time.Date(2024, 1, 15, 9, 0, 0, 0, jst)

	// UTC では 1/14 だが JST では 1/15
	event := domain.Event{ID: "early", StartTime: time.Date(2024, 1, 14, 22, 0, 0, 0, time.UTC)}

	assert.Len(t, SelectEvents([]domain.Event{event}, reference, domain.WindowToday, jst), 1)
	assert.Empty(t, SelectEvents([]domain.Event{event}, reference, domain.WindowToday, time.UTC))
}

func TestSelectEvents_ExcludesUnparsedStartTime(t *testing.T) {
	loc := time.UTC
	reference := time.Date(2024, 1, 15, 8, 0, 0, 0, loc)

	events := []domain.Event{
		{ID: "no-start"},
		{ID: "today", StartTime: time.Date(2024, 1, 15, 19, 0, 0, 0, loc)},
	}

	selected := SelectEvents(events, reference, domain.WindowToday, loc)
	assert.Len(t, selected, 1)
	assert.Equal(t, "today", selected[0].ID)
}

func TestSelectEvents_PreservesFeedOrder(t *testing.T) {
	loc := time.UTC
	reference := time.Date(2024, 1, 15, 8, 0, 0, 0, loc)

	events := []domain.Event{
		{ID: "c", StartTime: time.Date(2024, 1, 15, 21, 0, 0, 0, loc)},
		{ID: "a", StartTime: time.Date(2024, 1, 15, 9, 0, 0, 0, loc)},
		{ID: "b", StartTime: time.Date(2024, 1, 15, 12, 0, 0, 0, loc)},
	}

	selected := SelectEvents(events, reference, domain.WindowToday, loc)
	assert.Equal(t, []string{"c", "a", "b"}, []string{selected[0].ID, selected[1].ID, selected[2].ID})
}

func TestSelectEvents_Empty(t *testing.T) {
	assert.Empty(t, SelectEvents(nil, time.Now(), domain.WindowToday, time.UTC))
}
