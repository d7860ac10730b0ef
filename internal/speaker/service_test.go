package speaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/confman/internal/keyref"
	"github.com/hitoshi/confman/internal/model"
	"github.com/hitoshi/confman/internal/query"
)

// --- モック ---

type mockSpeakerRepo struct {
	findByIDFn func(ctx context.Context, id string) (*model.Speaker, error)
	createFn   func(ctx context.Context, speaker *model.Speaker) error
	listAllFn  func(ctx context.Context) ([]*model.Speaker, error)
}

func (m *mockSpeakerRepo) FindByID(ctx context.Context, id string) (*model.Speaker, error) {
	return m.findByIDFn(ctx, id)
}
func (m *mockSpeakerRepo) Create(ctx context.Context, speaker *model.Speaker) error {
	return m.createFn(ctx, speaker)
}
func (m *mockSpeakerRepo) AppendSessionRef(ctx context.Context, speakerID, ref string) error {
	return nil
}
func (m *mockSpeakerRepo) ListAll(ctx context.Context) ([]*model.Speaker, error) {
	return m.listAllFn(ctx)
}

type mockSessionRepo struct {
	listBySpeakerFn func(ctx context.Context, speakerID string) ([]*model.Session, error)
}

func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	return nil, nil
}
func (m *mockSessionRepo) Create(ctx context.Context, sess *model.Session) error { return nil }
func (m *mockSessionRepo) ListByConference(ctx context.Context, conferenceID string) ([]*model.Session, error) {
	return nil, nil
}
func (m *mockSessionRepo) ListByConferenceAndType(ctx context.Context, conferenceID, typeOfSession string) ([]*model.Session, error) {
	return nil, nil
}
func (m *mockSessionRepo) ListBySpeaker(ctx context.Context, speakerID string) ([]*model.Session, error) {
	return m.listBySpeakerFn(ctx, speakerID)
}
func (m *mockSessionRepo) ListByIDs(ctx context.Context, ids []string) ([]*model.Session, error) {
	return nil, nil
}
func (m *mockSessionRepo) ListEarlyNonMatching(ctx context.Context, before time.Time, excludeType string) ([]*model.Session, error) {
	return nil, nil
}
func (m *mockSessionRepo) ListByDateWindow(ctx context.Context, from, to time.Time) ([]*model.Session, error) {
	return nil, nil
}
func (m *mockSessionRepo) CountBySpeakerAndConference(ctx context.Context, speakerID, conferenceID string) (int, error) {
	return 0, nil
}
func (m *mockSessionRepo) QueryPlan(ctx context.Context, plan *query.Plan) ([]*model.Session, error) {
	return nil, nil
}

func wantAPIError(t *testing.T, err error, code string) {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != code {
		t.Fatalf("error = %v, want code %s", err, code)
	}
}

// --- テスト ---

// TestService_Create はスピーカー作成と連絡先バリデーションを検証する。
func TestService_Create(t *testing.T) {
	var created *model.Speaker
	repo := &mockSpeakerRepo{
		createFn: func(ctx context.Context, speaker *model.Speaker) error {
			created = speaker
			return nil
		},
	}
	svc := NewService(repo, &mockSessionRepo{})

	sp, err := svc.Create(context.Background(), CreateInput{
		Name:   "Rob",
		Phones: []string{"800-555-1234", "+1-800-555-1234"},
		Emails: []string{"rob@example.com"},
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created == nil || created.ID != sp.ID {
		t.Error("スピーカーが永続化されていない")
	}
}

// TestService_Create_Validation は不正な入力が拒否されることを検証する。
func TestService_Create_Validation(t *testing.T) {
	svc := NewService(&mockSpeakerRepo{}, &mockSessionRepo{})

	tests := []struct {
		name     string
		input    CreateInput
		wantCode string
	}{
		{
			name:     "名前なし",
			input:    CreateInput{},
			wantCode: model.ErrCodeNameRequired,
		},
		{
			name:     "電話番号の形式不正",
			input:    CreateInput{Name: "Rob", Phones: []string{"12345"}},
			wantCode: model.ErrCodeInvalidSpeakerContact,
		},
		{
			name:     "国番号が長すぎる",
			input:    CreateInput{Name: "Rob", Phones: []string{"+123-800-555-1234"}},
			wantCode: model.ErrCodeInvalidSpeakerContact,
		},
		{
			name:     "メールアドレスの形式不正",
			input:    CreateInput{Name: "Rob", Emails: []string{"not-an-email"}},
			wantCode: model.ErrCodeInvalidSpeakerContact,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.input)
			wantAPIError(t, err, tt.wantCode)
		})
	}
}

// TestService_FreeIntervals は担当セッションの開催日が埋まり日として
// 扱われることを検証する。
func TestService_FreeIntervals(t *testing.T) {
	speakerRepo := &mockSpeakerRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Speaker, error) {
			return &model.Speaker{ID: id, Name: "Rob"}, nil
		},
	}
	sessionRepo := &mockSessionRepo{
		listBySpeakerFn: func(ctx context.Context, speakerID string) ([]*model.Session, error) {
			return []*model.Session{
				{ID: "s1", Date: time.Date(2015, 6, 1, 0, 0, 0, 0, time.UTC)},
				{ID: "s2", Date: time.Date(2015, 6, 2, 0, 0, 0, 0, time.UTC)},
				// 別の月のセッションは無視される
				{ID: "s3", Date: time.Date(2015, 7, 10, 0, 0, 0, 0, time.UTC)},
			}, nil
		},
	}
	svc := NewService(speakerRepo, sessionRepo)

	ref := keyref.Encode(keyref.KindSpeaker, "sp-1")
	intervals, err := svc.FreeIntervals(context.Background(), ref, 2015, 6)
	if err != nil {
		t.Fatalf("FreeIntervals() error = %v", err)
	}

	want := []model.FreeInterval{{FromDay: 3, ToDay: 30}}
	if len(intervals) != len(want) || intervals[0] != want[0] {
		t.Errorf("FreeIntervals() = %v, want %v", intervals, want)
	}
}

// TestService_FreeIntervals_InvalidMonthYear は月・年の範囲検証を検証する。
func TestService_FreeIntervals_InvalidMonthYear(t *testing.T) {
	svc := NewService(&mockSpeakerRepo{}, &mockSessionRepo{})
	ref := keyref.Encode(keyref.KindSpeaker, "sp-1")

	tests := []struct {
		name  string
		year  int
		month int
	}{
		{name: "月が0", year: 2015, month: 0},
		{name: "月が13", year: 2015, month: 13},
		{name: "年が0", year: 0, month: 6},
		{name: "年が3000", year: 3000, month: 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.FreeIntervals(context.Background(), ref, tt.year, tt.month)
			wantAPIError(t, err, model.ErrCodeInvalidMonthYear)
		})
	}
}

// TestService_Get_WrongKind は種別違いのキーがSPEAKER_NOT_FOUNDになることを検証する。
func TestService_Get_WrongKind(t *testing.T) {
	svc := NewService(&mockSpeakerRepo{}, &mockSessionRepo{})

	ref := keyref.Encode(keyref.KindConference, "conf-1")
	_, err := svc.Get(context.Background(), ref)
	wantAPIError(t, err, model.ErrCodeSpeakerNotFound)
}
