// Package schedule は主催者の空き日程の計算を提供する。
package schedule

import "github.com/hitoshi/confman/internal/model"

// monthDays は各月の日数。2月は常に28日として扱う（うるう年は考慮しない）。
var monthDays = [12]int{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

// DaysInMonth は指定月（1〜12）の日数を返す。範囲外は0。
func DaysInMonth(month int) int {
	if month < 1 || month > 12 {
		return 0
	}
	return monthDays[month-1]
}

// FreeIntervals は1〜days日のうちoccupiedに含まれない日を、
// 連続区間（両端含む）の昇順リストとして返す。
// 全日空きなら [1, days] の単一区間、全日埋まりなら空リストになる。
func FreeIntervals(occupied map[int]bool, days int) []model.FreeInterval {
	var intervals []model.FreeInterval
	start := 0
	for day := 1; day <= days; day++ {
		if occupied[day] {
			if start != 0 {
				intervals = append(intervals, model.FreeInterval{FromDay: start, ToDay: day - 1})
				start = 0
			}
			continue
		}
		if start == 0 {
			start = day
		}
	}
	if start != 0 {
		intervals = append(intervals, model.FreeInterval{FromDay: start, ToDay: days})
	}
	return intervals
}
