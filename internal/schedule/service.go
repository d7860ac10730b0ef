package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/hitoshi/confman/internal/model"
	"github.com/hitoshi/confman/internal/repository"
)

// Service は空き日程計算のサービス層。
type Service struct {
	confRepo repository.ConferenceRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(confRepo repository.ConferenceRepository) *Service {
	return &Service{confRepo: confRepo}
}

// FreeIntervalsForMonth は指定主催者の指定年月の空き日区間を返す。
// その月に開始するカンファレンスの開催期間（開始日〜終了日、月内に
// 切り詰め）を埋まり日として扱う。月は1〜12、年は1〜2999の範囲。
func (s *Service) FreeIntervalsForMonth(ctx context.Context, organizerID string, year, month int) ([]model.FreeInterval, error) {
	if month < 1 || month > 12 || year < 1 || year > 2999 {
		return nil, model.NewInvalidMonthYearError(month, year)
	}

	confs, err := s.confRepo.ListByOrganizerAndMonth(ctx, organizerID, year, month)
	if err != nil {
		return nil, fmt.Errorf("カンファレンス一覧の取得に失敗しました: %w", err)
	}

	days := DaysInMonth(month)
	occupied := make(map[int]bool)
	for _, conf := range confs {
		if conf.StartDate == nil {
			continue
		}
		from := conf.StartDate.Day()
		to := from
		if conf.EndDate != nil {
			to = clampToMonth(*conf.EndDate, year, month, days)
		}
		for d := from; d <= to && d <= days; d++ {
			occupied[d] = true
		}
	}

	return FreeIntervals(occupied, days), nil
}

// clampToMonth は終了日を指定年月の範囲内に切り詰めた日番号を返す。
func clampToMonth(end time.Time, year, month, days int) int {
	if end.Year() > year || (end.Year() == year && int(end.Month()) > month) {
		return days
	}
	if end.Year() < year || int(end.Month()) < month {
		return 0
	}
	return end.Day()
}
