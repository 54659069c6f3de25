package usecase

import (
	"time"

	"github.com/k-negishi/event-sync-notifier/internal/domain"
)

// SelectEvents 対象日に開始するイベントだけを抜き出す
// 時刻ではなく暦日で比較する。開始時刻が解析できなかったイベントは含めない。
// 順序はフィードの並びのまま。
func SelectEvents(events []domain.Event, referenceDate time.Time, policy domain.WindowPolicy, loc *time.Location) []domain.Event {
	target := policy.TargetDate(referenceDate, loc)

	selected := make([]domain.Event, 0, len(events))
	for _, event := range events {
		if !event.HasStartTime() {
			continue
		}
		if domain.SameDate(event.StartTime, target, loc) {
			selected = append(selected, event)
		}
	}
	return selected
}
