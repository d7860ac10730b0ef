package model

import (
	"fmt"
	"time"
)

// Session はカンファレンス内のセッションを表す。
// ConferenceIDは所属カンファレンスのID（祖先キーに相当）。
// Dateは日付のみ、StartTime/EndTimeは時刻のみを保持する
// （時刻はゼロ日付 0000-01-01 上のtime.Timeとして表現する）。
type Session struct {
	ID            string
	ConferenceID  string
	Name          string
	Highlights    string
	TypeOfSession string
	Date          time.Time
	StartTime     time.Time
	EndTime       time.Time
	Location      string
	SpeakerID     string
	CreatedAt     time.Time
}

// Duration はStartTimeからEndTimeまでの所要時間を "1h30m" 形式で返す。
// EndTimeがStartTimeより前の場合は空文字を返す。
func (s *Session) Duration() string {
	d := s.EndTime.Sub(s.StartTime)
	if d < 0 {
		return ""
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h == 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dh%dm", h, m)
}
