// Package session はセッション管理のドメインロジックを提供する。
package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/confman/internal/keyref"
	"github.com/hitoshi/confman/internal/model"
	"github.com/hitoshi/confman/internal/query"
	"github.com/hitoshi/confman/internal/repository"
	"github.com/hitoshi/confman/internal/security"
)

// 未指定フィールドに適用する既定値
const defaultTypeOfSession = "Keynote"

var (
	defaultDate      = time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)
	defaultStartTime = time.Date(0, 1, 1, 8, 0, 0, 0, time.UTC)
	defaultEndTime   = time.Date(0, 1, 1, 8, 30, 0, 0, time.UTC)
)

// FeaturedUpdater はセッション追加後の注目スピーカー再計算のインターフェース。
type FeaturedUpdater interface {
	UpdateFeaturedSpeaker(ctx context.Context, speakerID, conferenceID string) error
}

// Service はセッション管理のサービス層。
type Service struct {
	sessionRepo repository.SessionRepository
	confRepo    repository.ConferenceRepository
	speakerRepo repository.SpeakerRepository
	profileRepo repository.ProfileRepository
	compiler    *query.Compiler
	sanitizer   security.ContentSanitizerService
	featured    FeaturedUpdater
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	sessionRepo repository.SessionRepository,
	confRepo repository.ConferenceRepository,
	speakerRepo repository.SpeakerRepository,
	profileRepo repository.ProfileRepository,
	compiler *query.Compiler,
	sanitizer security.ContentSanitizerService,
	featured FeaturedUpdater,
) *Service {
	return &Service{
		sessionRepo: sessionRepo,
		confRepo:    confRepo,
		speakerRepo: speakerRepo,
		profileRepo: profileRepo,
		compiler:    compiler,
		sanitizer:   sanitizer,
		featured:    featured,
	}
}

// CreateInput はセッション作成の入力。nilのフィールドには既定値を適用する。
type CreateInput struct {
	Name          string
	Highlights    string
	TypeOfSession *string
	Date          *time.Time
	StartTime     *time.Time
	EndTime       *time.Time
	Location      string
	SpeakerRef    string
}

// Create はセッションを作成する。所属カンファレンスの主催者のみが実行できる。
// スピーカーが指定された場合はスピーカー側のセッション参照一覧に追記し、
// 同一カンファレンスで2つ以上のセッションを担当することになったら
// 注目スピーカーを更新する。
func (s *Service) Create(ctx context.Context, organizerID, conferenceRef string, input CreateInput) (*model.Session, error) {
	conferenceID, err := keyref.DecodeAs(conferenceRef, keyref.KindConference)
	if err != nil {
		return nil, model.NewConferenceNotFoundError(conferenceRef)
	}
	conf, err := s.confRepo.FindByID(ctx, conferenceID)
	if err != nil {
		return nil, fmt.Errorf("カンファレンスの取得に失敗しました: %w", err)
	}
	if conf == nil {
		return nil, model.NewConferenceNotFoundError(conferenceRef)
	}
	if conf.OrganizerID != organizerID {
		return nil, model.NewNotOrganizerError()
	}
	if input.Name == "" {
		return nil, model.NewNameRequiredError("セッション")
	}

	speakerID := ""
	if input.SpeakerRef != "" {
		speakerID, err = keyref.DecodeAs(input.SpeakerRef, keyref.KindSpeaker)
		if err != nil {
			return nil, model.NewSpeakerNotFoundError(input.SpeakerRef)
		}
		speaker, err := s.speakerRepo.FindByID(ctx, speakerID)
		if err != nil {
			return nil, fmt.Errorf("スピーカーの取得に失敗しました: %w", err)
		}
		if speaker == nil {
			return nil, model.NewSpeakerNotFoundError(input.SpeakerRef)
		}
	}

	sess := &model.Session{
		ID:            uuid.New().String(),
		ConferenceID:  conferenceID,
		Name:          input.Name,
		Highlights:    s.sanitizer.Sanitize(input.Highlights),
		TypeOfSession: defaultTypeOfSession,
		Date:          defaultDate,
		StartTime:     defaultStartTime,
		EndTime:       defaultEndTime,
		Location:      input.Location,
		SpeakerID:     speakerID,
		CreatedAt:     time.Now(),
	}
	if input.TypeOfSession != nil {
		sess.TypeOfSession = *input.TypeOfSession
	}
	if input.Date != nil {
		sess.Date = *input.Date
	}
	if input.StartTime != nil {
		sess.StartTime = *input.StartTime
		// 終了時刻未指定なら開始時刻と同じにする
		sess.EndTime = *input.StartTime
	}
	if input.EndTime != nil {
		sess.EndTime = *input.EndTime
	}

	if err := s.sessionRepo.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("セッションの作成に失敗しました: %w", err)
	}

	if speakerID != "" {
		sessionRef := keyref.Encode(keyref.KindSession, sess.ID)
		if err := s.speakerRepo.AppendSessionRef(ctx, speakerID, sessionRef); err != nil {
			return nil, fmt.Errorf("スピーカーのセッション参照の追記に失敗しました: %w", err)
		}
		// 注目スピーカーの更新失敗は作成の成否に影響させない
		if err := s.featured.UpdateFeaturedSpeaker(ctx, speakerID, conferenceID); err != nil {
			slog.Warn("注目スピーカーの更新に失敗しました",
				"speaker_id", speakerID, "conference_id", conferenceID, "error", err)
		}
	}

	slog.Info("セッションを作成しました", "session_id", sess.ID, "conference_id", conferenceID)
	return sess, nil
}

// Get は外部参照キーでセッションを取得する。
func (s *Service) Get(ctx context.Context, sessionRef string) (*model.Session, error) {
	id, err := keyref.DecodeAs(sessionRef, keyref.KindSession)
	if err != nil {
		return nil, model.NewSessionNotFoundError(sessionRef)
	}
	sess, err := s.sessionRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("セッションの取得に失敗しました: %w", err)
	}
	if sess == nil {
		return nil, model.NewSessionNotFoundError(sessionRef)
	}
	return sess, nil
}

// resolveConference は外部参照キーをカンファレンスIDに解決し、存在を確認する。
func (s *Service) resolveConference(ctx context.Context, conferenceRef string) (string, error) {
	id, err := keyref.DecodeAs(conferenceRef, keyref.KindConference)
	if err != nil {
		return "", model.NewConferenceNotFoundError(conferenceRef)
	}
	conf, err := s.confRepo.FindByID(ctx, id)
	if err != nil {
		return "", fmt.Errorf("カンファレンスの取得に失敗しました: %w", err)
	}
	if conf == nil {
		return "", model.NewConferenceNotFoundError(conferenceRef)
	}
	return id, nil
}

// ByConference は指定カンファレンスの全セッションを返す。
func (s *Service) ByConference(ctx context.Context, conferenceRef string) ([]*model.Session, error) {
	id, err := s.resolveConference(ctx, conferenceRef)
	if err != nil {
		return nil, err
	}
	sessions, err := s.sessionRepo.ListByConference(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("セッション一覧の取得に失敗しました: %w", err)
	}
	return sessions, nil
}

// ByConferenceAndType は指定カンファレンスの指定タイプのセッションを返す。
func (s *Service) ByConferenceAndType(ctx context.Context, conferenceRef, typeOfSession string) ([]*model.Session, error) {
	id, err := s.resolveConference(ctx, conferenceRef)
	if err != nil {
		return nil, err
	}
	sessions, err := s.sessionRepo.ListByConferenceAndType(ctx, id, typeOfSession)
	if err != nil {
		return nil, fmt.Errorf("セッション一覧の取得に失敗しました: %w", err)
	}
	return sessions, nil
}

// BySpeaker は指定スピーカーの担当セッションを、スピーカー側の
// 参照一覧の追記順のまま返す。
func (s *Service) BySpeaker(ctx context.Context, speakerRef string) ([]*model.Session, error) {
	speakerID, err := keyref.DecodeAs(speakerRef, keyref.KindSpeaker)
	if err != nil {
		return nil, model.NewSpeakerNotFoundError(speakerRef)
	}
	speaker, err := s.speakerRepo.FindByID(ctx, speakerID)
	if err != nil {
		return nil, fmt.Errorf("スピーカーの取得に失敗しました: %w", err)
	}
	if speaker == nil {
		return nil, model.NewSpeakerNotFoundError(speakerRef)
	}
	return s.listByRefs(ctx, speaker.SessionRefs)
}

// Wishlist は指定プロフィールのウィッシュリストのセッションを追加順のまま返す。
func (s *Service) Wishlist(ctx context.Context, profileID string) ([]*model.Session, error) {
	profile, err := s.profileRepo.FindByID(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("プロフィールの取得に失敗しました: %w", err)
	}
	if profile == nil {
		return nil, model.NewProfileNotFoundError()
	}
	return s.listByRefs(ctx, profile.WishlistOfSessionKeys)
}

// WishlistByConference はウィッシュリストのうち指定カンファレンスの
// セッションのみを追加順のまま返す。
func (s *Service) WishlistByConference(ctx context.Context, profileID, conferenceRef string) ([]*model.Session, error) {
	conferenceID, err := s.resolveConference(ctx, conferenceRef)
	if err != nil {
		return nil, err
	}
	sessions, err := s.Wishlist(ctx, profileID)
	if err != nil {
		return nil, err
	}
	var filtered []*model.Session
	for _, sess := range sessions {
		if sess.ConferenceID == conferenceID {
			filtered = append(filtered, sess)
		}
	}
	return filtered, nil
}

// listByRefs は参照キー一覧のセッションを参照順のまま返す。
// 不正なキーや削除済みセッションは読み飛ばす。
func (s *Service) listByRefs(ctx context.Context, refs model.RefSet) ([]*model.Session, error) {
	var ids []string
	for _, ref := range refs {
		id, err := keyref.DecodeAs(ref, keyref.KindSession)
		if err != nil {
			slog.Warn("セッション参照一覧に不正なキーが含まれています", "ref", ref)
			continue
		}
		ids = append(ids, id)
	}

	sessions, err := s.sessionRepo.ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("セッション一覧の取得に失敗しました: %w", err)
	}
	byID := make(map[string]*model.Session, len(sessions))
	for _, sess := range sessions {
		byID[sess.ID] = sess
	}

	var ordered []*model.Session
	for _, id := range ids {
		if sess, ok := byID[id]; ok {
			ordered = append(ordered, sess)
		}
	}
	return ordered, nil
}

// Query はフィルタ条件でセッションを検索する。
func (s *Service) Query(ctx context.Context, filters []query.Filter) ([]*model.Session, error) {
	plan, err := s.compiler.Compile(filters)
	if err != nil {
		return nil, err
	}
	sessions, err := s.sessionRepo.QueryPlan(ctx, plan)
	if err != nil {
		return nil, fmt.Errorf("セッションの検索に失敗しました: %w", err)
	}
	return sessions, nil
}

// EarlyNonMatching は開始時刻がmaxStartTime（"HH:MM:SS"）より前で、
// かつタイプがexcludeType以外のセッションを返す。
func (s *Service) EarlyNonMatching(ctx context.Context, maxStartTime, excludeType string) ([]*model.Session, error) {
	before, err := time.Parse("15:04:05", maxStartTime)
	if err != nil {
		return nil, model.NewInvalidRequestError(
			fmt.Sprintf("時刻の形式が不正です: %s", maxStartTime))
	}
	sessions, err := s.sessionRepo.ListEarlyNonMatching(ctx, before, excludeType)
	if err != nil {
		return nil, fmt.Errorf("セッションの検索に失敗しました: %w", err)
	}
	return sessions, nil
}

// InDateWindow は空席のあるカンファレンスのセッションのうち、
// 開催日が[from, to]（両端含む）のものを返す。
func (s *Service) InDateWindow(ctx context.Context, from, to time.Time) ([]*model.Session, error) {
	if to.Before(from) {
		return nil, model.NewInvalidRequestError("終了日が開始日より前です")
	}
	sessions, err := s.sessionRepo.ListByDateWindow(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("セッションの検索に失敗しました: %w", err)
	}
	return sessions, nil
}
