package domain

import (
	"fmt"
	"strings"
	"time"
)

// WindowPolicy 投稿対象とする日付
type WindowPolicy string

const (
	WindowToday    WindowPolicy = "today"
	WindowTomorrow WindowPolicy = "tomorrow"
)

// ParseWindowPolicy 文字列から WindowPolicy を取得
func ParseWindowPolicy(s string) (WindowPolicy, error) {
	switch p := WindowPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case WindowToday, WindowTomorrow:
		return p, nil
	default:
		return "", fmt.Errorf("不明なウィンドウポリシーです: %q (today|tomorrow)", s)
	}
}

// TargetDate 基準日から対象日の0時を求める
func (p WindowPolicy) TargetDate(reference time.Time, loc *time.Location) time.Time {
	day := StartOfDay(reference, loc)
	if p == WindowTomorrow {
		return day.AddDate(0, 0, 1)
	}
	return day
}

// PruneCutoffPolicy 投稿済みメッセージを削除する基準
type PruneCutoffPolicy string

const (
	CutoffNow       PruneCutoffPolicy = "now"
	CutoffYesterday PruneCutoffPolicy = "yesterday"
)

// ParsePruneCutoffPolicy 文字列から PruneCutoffPolicy を取得
func ParsePruneCutoffPolicy(s string) (PruneCutoffPolicy, error) {
	switch p := PruneCutoffPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case CutoffNow, CutoffYesterday:
		return p, nil
	default:
		return "", fmt.Errorf("不明な削除ポリシーです: %q (now|yesterday)", s)
	}
}

// Cutoff これより前に投稿されたメッセージが削除対象になる
// 古さは告知したイベントの開催日時ではなく投稿日時で判定する。
func (p PruneCutoffPolicy) Cutoff(now time.Time, loc *time.Location) time.Time {
	if p == CutoffYesterday {
		return StartOfDay(now, loc).AddDate(0, 0, -1)
	}
	return now
}

// StartOfDay 指定タイムゾーンでの日付の0時
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// SameDate 指定タイムゾーンで同じ暦日かどうか
func SameDate(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}
