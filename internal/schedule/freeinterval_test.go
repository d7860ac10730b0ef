package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/confman/internal/model"
	"github.com/hitoshi/confman/internal/query"
)

// --- モック ---

type mockConfRepo struct {
	listByOrganizerAndMonthFn func(ctx context.Context, organizerID string, year, month int) ([]*model.Conference, error)
}

func (m *mockConfRepo) FindByID(ctx context.Context, id string) (*model.Conference, error) {
	return nil, nil
}
func (m *mockConfRepo) Create(ctx context.Context, conf *model.Conference) error { return nil }
func (m *mockConfRepo) Update(ctx context.Context, conf *model.Conference) error { return nil }
func (m *mockConfRepo) ListByOrganizer(ctx context.Context, organizerID string) ([]*model.Conference, error) {
	return nil, nil
}
func (m *mockConfRepo) ListByIDs(ctx context.Context, ids []string) ([]*model.Conference, error) {
	return nil, nil
}
func (m *mockConfRepo) ListByOrganizerAndMonth(ctx context.Context, organizerID string, year, month int) ([]*model.Conference, error) {
	return m.listByOrganizerAndMonthFn(ctx, organizerID, year, month)
}
func (m *mockConfRepo) QueryPlan(ctx context.Context, plan *query.Plan) ([]*model.Conference, error) {
	return nil, nil
}
func (m *mockConfRepo) ListLowSeats(ctx context.Context, threshold int) ([]*model.Conference, error) {
	return nil, nil
}

// --- テスト ---

func TestFreeIntervals(t *testing.T) {
	tests := []struct {
		name     string
		occupied []int
		days     int
		want     []model.FreeInterval
	}{
		{
			name:     "埋まり日なしは月全体が1区間",
			occupied: nil,
			days:     31,
			want:     []model.FreeInterval{{FromDay: 1, ToDay: 31}},
		},
		{
			name:     "末日のみ埋まり",
			occupied: []int{5},
			days:     5,
			want:     []model.FreeInterval{{FromDay: 1, ToDay: 4}},
		},
		{
			name:     "全日埋まりは空リスト",
			occupied: []int{1, 2, 3},
			days:     3,
			want:     nil,
		},
		{
			name:     "中日の埋まりで2区間に分割",
			occupied: []int{3},
			days:     5,
			want:     []model.FreeInterval{{FromDay: 1, ToDay: 2}, {FromDay: 4, ToDay: 5}},
		},
		{
			name:     "初日のみ埋まり",
			occupied: []int{1},
			days:     28,
			want:     []model.FreeInterval{{FromDay: 2, ToDay: 28}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			occ := make(map[int]bool)
			for _, d := range tt.occupied {
				occ[d] = true
			}
			got := FreeIntervals(occ, tt.days)
			if len(got) != len(tt.want) {
				t.Fatalf("FreeIntervals() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("interval[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestDaysInMonth(t *testing.T) {
	// 2月はうるう年に関係なく常に28日
	if got := DaysInMonth(2); got != 28 {
		t.Errorf("DaysInMonth(2) = %d, want 28", got)
	}
	if got := DaysInMonth(1); got != 31 {
		t.Errorf("DaysInMonth(1) = %d, want 31", got)
	}
	if got := DaysInMonth(4); got != 30 {
		t.Errorf("DaysInMonth(4) = %d, want 30", got)
	}
	if got := DaysInMonth(13); got != 0 {
		t.Errorf("DaysInMonth(13) = %d, want 0", got)
	}
}

// TestService_FreeIntervalsForMonth は開催期間の月内切り詰めを含めて検証する。
func TestService_FreeIntervalsForMonth(t *testing.T) {
	date := func(y, m, d int) *time.Time {
		t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
		return &t
	}
	repo := &mockConfRepo{
		listByOrganizerAndMonthFn: func(ctx context.Context, organizerID string, year, month int) ([]*model.Conference, error) {
			return []*model.Conference{
				{ID: "c1", StartDate: date(2026, 6, 10), EndDate: date(2026, 6, 12)},
				{ID: "c2", StartDate: date(2026, 6, 28), EndDate: date(2026, 7, 3)},
			}, nil
		},
	}
	svc := NewService(repo)

	got, err := svc.FreeIntervalsForMonth(context.Background(), "org-1", 2026, 6)
	if err != nil {
		t.Fatalf("FreeIntervalsForMonth returned error: %v", err)
	}
	want := []model.FreeInterval{{FromDay: 1, ToDay: 9}, {FromDay: 13, ToDay: 27}}
	if len(got) != len(want) {
		t.Fatalf("FreeIntervalsForMonth() = %v, want %v", got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Errorf("interval[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

// TestService_FreeIntervalsForMonth_InvalidInput は月・年の範囲チェックを検証する。
func TestService_FreeIntervalsForMonth_InvalidInput(t *testing.T) {
	svc := NewService(&mockConfRepo{})

	tests := []struct {
		name  string
		year  int
		month int
	}{
		{name: "月が0", year: 2026, month: 0},
		{name: "月が13", year: 2026, month: 13},
		{name: "年が0", year: 0, month: 6},
		{name: "年が3000", year: 3000, month: 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.FreeIntervalsForMonth(context.Background(), "org-1", tt.year, tt.month)
			var apiErr *model.APIError
			if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeInvalidMonthYear {
				t.Errorf("error = %v, want code %s", err, model.ErrCodeInvalidMonthYear)
			}
		})
	}
}
