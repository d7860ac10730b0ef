package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/confman/internal/keyref"
	"github.com/hitoshi/confman/internal/model"
	"github.com/hitoshi/confman/internal/query"
	"github.com/hitoshi/confman/internal/repository"
)

// --- モック ---

// memLedgerStore はインメモリのLedgerStore実装。
// トランザクションの直列化された実行を模倣する。
type memLedgerStore struct {
	profile *model.Profile
	conf    *model.Conference
}

func (m *memLedgerStore) ProfileForUpdate(ctx context.Context, id string) (*model.Profile, error) {
	if m.profile == nil || m.profile.ID != id {
		return nil, nil
	}
	return m.profile, nil
}

func (m *memLedgerStore) ConferenceForUpdate(ctx context.Context, id string) (*model.Conference, error) {
	if m.conf == nil || m.conf.ID != id {
		return nil, nil
	}
	return m.conf, nil
}

func (m *memLedgerStore) UpdateProfileLists(ctx context.Context, profile *model.Profile) error {
	m.profile = profile
	return nil
}

func (m *memLedgerStore) UpdateConferenceSeats(ctx context.Context, conferenceID string, seats int) error {
	m.conf.SeatsAvailable = seats
	return nil
}

// fakeTxRunner は共有ストアに対してfnを逐次実行する。
type fakeTxRunner struct {
	store *memLedgerStore
}

func (r *fakeTxRunner) RunInTx(ctx context.Context, fn func(repository.LedgerStore) error) error {
	return fn(r.store)
}

type mockSessionRepo struct {
	findByIDFn func(ctx context.Context, id string) (*model.Session, error)
}

func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	return m.findByIDFn(ctx, id)
}
func (m *mockSessionRepo) Create(ctx context.Context, sess *model.Session) error { return nil }
func (m *mockSessionRepo) ListByConference(ctx context.Context, conferenceID string) ([]*model.Session, error) {
	return nil, nil
}
func (m *mockSessionRepo) ListByConferenceAndType(ctx context.Context, conferenceID, typeOfSession string) ([]*model.Session, error) {
	return nil, nil
}
func (m *mockSessionRepo) ListBySpeaker(ctx context.Context, speakerID string) ([]*model.Session, error) {
	return nil, nil
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

func newTestStore(seats int) *memLedgerStore {
	return &memLedgerStore{
		profile: &model.Profile{ID: "profile-1"},
		conf:    &model.Conference{ID: "conf-1", Name: "Go Conference", SeatsAvailable: seats},
	}
}

func wantAPIError(t *testing.T, err error, code string) {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != code {
		t.Fatalf("error = %v, want code %s", err, code)
	}
}

// --- テスト ---

// TestService_Register は参加登録と座席減算を検証する。
func TestService_Register(t *testing.T) {
	store := newTestStore(10)
	svc := NewService(&fakeTxRunner{store: store}, nil)
	confRef := keyref.Encode(keyref.KindConference, "conf-1")

	if err := svc.Register(context.Background(), "profile-1", confRef); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if !store.profile.ConferenceKeysToAttend.Contains(confRef) {
		t.Error("conference ref not added to attend list")
	}
	if store.conf.SeatsAvailable != 9 {
		t.Errorf("SeatsAvailable = %d, want 9", store.conf.SeatsAvailable)
	}
}

// TestService_Register_Duplicate は重複登録で座席が二重減算されないことを検証する。
func TestService_Register_Duplicate(t *testing.T) {
	store := newTestStore(10)
	svc := NewService(&fakeTxRunner{store: store}, nil)
	confRef := keyref.Encode(keyref.KindConference, "conf-1")

	if err := svc.Register(context.Background(), "profile-1", confRef); err != nil {
		t.Fatalf("first Register returned error: %v", err)
	}
	err := svc.Register(context.Background(), "profile-1", confRef)
	wantAPIError(t, err, model.ErrCodeAlreadyRegistered)

	if store.conf.SeatsAvailable != 9 {
		t.Errorf("SeatsAvailable = %d, want 9 (decremented once)", store.conf.SeatsAvailable)
	}
	if len(store.profile.ConferenceKeysToAttend) != 1 {
		t.Errorf("attend list length = %d, want 1", len(store.profile.ConferenceKeysToAttend))
	}
}

// TestService_Register_LastSeat は残席1への並行登録で片方だけが成功することを検証する。
// トランザクションはロックにより直列化されるため、逐次実行と等価になる。
func TestService_Register_LastSeat(t *testing.T) {
	store := newTestStore(1)
	svc := NewService(&fakeTxRunner{store: store}, nil)
	confRef := keyref.Encode(keyref.KindConference, "conf-1")

	if err := svc.Register(context.Background(), "profile-1", confRef); err != nil {
		t.Fatalf("first Register returned error: %v", err)
	}

	store.profile = &model.Profile{ID: "profile-2"}
	err := svc.Register(context.Background(), "profile-2", confRef)
	wantAPIError(t, err, model.ErrCodeNoSeatsAvailable)

	if store.conf.SeatsAvailable != 0 {
		t.Errorf("SeatsAvailable = %d, want 0", store.conf.SeatsAvailable)
	}
}

// TestService_Register_InvalidRef は不正キー・種別違いキーを検証する。
func TestService_Register_InvalidRef(t *testing.T) {
	store := newTestStore(10)
	svc := NewService(&fakeTxRunner{store: store}, nil)

	tests := []struct {
		name string
		ref  string
	}{
		{name: "デコード不能な文字列", ref: "%%%not-base64%%%"},
		{name: "種別がセッションのキー", ref: keyref.Encode(keyref.KindSession, "conf-1")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.Register(context.Background(), "profile-1", tt.ref)
			wantAPIError(t, err, model.ErrCodeConferenceNotFound)
		})
	}
}

// TestService_Unregister は登録取り消しと座席返却を検証する。
func TestService_Unregister(t *testing.T) {
	store := newTestStore(10)
	svc := NewService(&fakeTxRunner{store: store}, nil)
	confRef := keyref.Encode(keyref.KindConference, "conf-1")

	if err := svc.Register(context.Background(), "profile-1", confRef); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	removed, err := svc.Unregister(context.Background(), "profile-1", confRef)
	if err != nil {
		t.Fatalf("Unregister returned error: %v", err)
	}
	if !removed {
		t.Error("removed = false, want true")
	}
	if store.conf.SeatsAvailable != 10 {
		t.Errorf("SeatsAvailable = %d, want 10", store.conf.SeatsAvailable)
	}
}

// TestService_Unregister_NotRegistered は未登録状態での取り消しが
// 座席数を変えないno-opであることを検証する。
func TestService_Unregister_NotRegistered(t *testing.T) {
	store := newTestStore(10)
	svc := NewService(&fakeTxRunner{store: store}, nil)
	confRef := keyref.Encode(keyref.KindConference, "conf-1")

	removed, err := svc.Unregister(context.Background(), "profile-1", confRef)
	if err != nil {
		t.Fatalf("Unregister returned error: %v", err)
	}
	if removed {
		t.Error("removed = true, want false")
	}
	if store.conf.SeatsAvailable != 10 {
		t.Errorf("SeatsAvailable = %d, want 10 (unchanged)", store.conf.SeatsAvailable)
	}
}

// TestService_AddToWishlist はウィッシュリスト追加を検証する。
func TestService_AddToWishlist(t *testing.T) {
	store := newTestStore(10)
	sessRef := keyref.Encode(keyref.KindSession, "sess-1")
	sessionRepo := &mockSessionRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
			if id == "sess-1" {
				return &model.Session{ID: "sess-1", ConferenceID: "conf-1", Name: "Keynote"}, nil
			}
			return nil, nil
		},
	}
	svc := NewService(&fakeTxRunner{store: store}, sessionRepo)

	if err := svc.AddToWishlist(context.Background(), "profile-1", sessRef); err != nil {
		t.Fatalf("AddToWishlist returned error: %v", err)
	}
	if !store.profile.WishlistOfSessionKeys.Contains(sessRef) {
		t.Error("session ref not added to wishlist")
	}

	err := svc.AddToWishlist(context.Background(), "profile-1", sessRef)
	wantAPIError(t, err, model.ErrCodeAlreadyInWishlist)
}

// TestService_AddToWishlist_SessionNotFound は存在しないセッションの追加を検証する。
func TestService_AddToWishlist_SessionNotFound(t *testing.T) {
	store := newTestStore(10)
	sessionRepo := &mockSessionRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
			return nil, nil
		},
	}
	svc := NewService(&fakeTxRunner{store: store}, sessionRepo)

	err := svc.AddToWishlist(context.Background(), "profile-1", keyref.Encode(keyref.KindSession, "ghost"))
	wantAPIError(t, err, model.ErrCodeSessionNotFound)
}

// TestService_RemoveFromWishlist は削除とno-opの両方を検証する。
func TestService_RemoveFromWishlist(t *testing.T) {
	store := newTestStore(10)
	sessRef := keyref.Encode(keyref.KindSession, "sess-1")
	store.profile.WishlistOfSessionKeys.Add(sessRef)
	svc := NewService(&fakeTxRunner{store: store}, nil)

	removed, err := svc.RemoveFromWishlist(context.Background(), "profile-1", sessRef)
	if err != nil {
		t.Fatalf("RemoveFromWishlist returned error: %v", err)
	}
	if !removed {
		t.Error("removed = false, want true")
	}

	removed, err = svc.RemoveFromWishlist(context.Background(), "profile-1", sessRef)
	if err != nil {
		t.Fatalf("second RemoveFromWishlist returned error: %v", err)
	}
	if removed {
		t.Error("removed = true, want false")
	}
}
