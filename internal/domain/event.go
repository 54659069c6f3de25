package domain

import (
	"strconv"
	"time"
)

// Event フィードから取得したイベントのドメインエンティティ
// 実行ごとに取得し直すため、実行をまたいで保持しない。
type Event struct {
	ID           string
	Title        string
	StartTime    time.Time // ゼロ値 = 開始時刻を解析できなかった
	IsOnline     bool
	Location     Location
	RSVPCapacity RSVPCapacity
	Hosts        []string
	Description  string
	Link         string
}

// Location 会場の住所。オフラインイベントでのみ意味を持つ
type Location struct {
	Name       string
	Street     string
	City       string
	Region     string
	PostalCode string
	Country    string
}

// Fields 表示順に並べた住所フィールド
func (l Location) Fields() []string {
	return []string{l.Name, l.Street, l.City, l.Region, l.PostalCode, l.Country}
}

// RSVPCapacity 参加枠数。UnlimitedRSVP は上限なし
type RSVPCapacity int

// UnlimitedRSVP 参加枠の上限なし
const UnlimitedRSVP RSVPCapacity = -1

// IsUnlimited 上限なしかどうか
func (c RSVPCapacity) IsUnlimited() bool {
	return c < 0
}

func (c RSVPCapacity) String() string {
	if c.IsUnlimited() {
		return "Unlimited"
	}
	return strconv.Itoa(int(c))
}

// HasStartTime 開始時刻が解析済みかどうか
func (e Event) HasStartTime() bool {
	return !e.StartTime.IsZero()
}
