// Package model はドメインモデルを定義する。
package model

import "time"

// Conference はカンファレンスを表す。
// OrganizerIDは主催者プロフィールのID（祖先キーに相当）。
// MonthはStartDateから導出され、StartDate未設定時は0。
type Conference struct {
	ID             string
	Name           string
	Description    string
	Topics         []string
	City           string
	StartDate      *time.Time // 日付のみ（時刻部は常にゼロ）
	EndDate        *time.Time
	Month          int
	MaxAttendees   int
	SeatsAvailable int
	OrganizerID    string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// DeriveMonth はStartDateからMonthを再計算する。
// StartDateが未設定の場合は0になる。
func (c *Conference) DeriveMonth() {
	if c.StartDate != nil {
		c.Month = int(c.StartDate.Month())
	} else {
		c.Month = 0
	}
}

// FreeInterval は1か月内の空き日区間（両端含む）を表す。
type FreeInterval struct {
	FromDay int
	ToDay   int
}
