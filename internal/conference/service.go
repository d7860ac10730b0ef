// Package conference はカンファレンス管理のドメインロジックを提供する。
package conference

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/confman/internal/keyref"
	"github.com/hitoshi/confman/internal/mailer"
	"github.com/hitoshi/confman/internal/model"
	"github.com/hitoshi/confman/internal/query"
	"github.com/hitoshi/confman/internal/repository"
	"github.com/hitoshi/confman/internal/security"
)

// 未指定フィールドに適用する既定値
const (
	defaultCity = "Default City"
)

var defaultTopics = []string{"Default", "Topic"}

// Service はカンファレンス管理のサービス層。
type Service struct {
	confRepo    repository.ConferenceRepository
	profileRepo repository.ProfileRepository
	compiler    *query.Compiler
	sanitizer   security.ContentSanitizerService
	mailer      mailer.Mailer
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	confRepo repository.ConferenceRepository,
	profileRepo repository.ProfileRepository,
	compiler *query.Compiler,
	sanitizer security.ContentSanitizerService,
	m mailer.Mailer,
) *Service {
	return &Service{
		confRepo:    confRepo,
		profileRepo: profileRepo,
		compiler:    compiler,
		sanitizer:   sanitizer,
		mailer:      m,
	}
}

// CreateInput はカンファレンス作成の入力。
// nilのフィールドには既定値を適用する。
type CreateInput struct {
	Name         string
	Description  string
	Topics       []string
	City         *string
	StartDate    *time.Time
	EndDate      *time.Time
	MaxAttendees *int
}

// Create はカンファレンスを作成する。作成者が主催者になる。
// 空席数は最大参加者数で初期化され、月は開始日から導出される。
func (s *Service) Create(ctx context.Context, organizerID string, input CreateInput) (*model.Conference, error) {
	if input.Name == "" {
		return nil, model.NewNameRequiredError("カンファレンス")
	}

	now := time.Now()
	conf := &model.Conference{
		ID:          uuid.New().String(),
		Name:        input.Name,
		Description: s.sanitizer.Sanitize(input.Description),
		Topics:      input.Topics,
		City:        defaultCity,
		StartDate:   input.StartDate,
		EndDate:     input.EndDate,
		OrganizerID: organizerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if conf.Topics == nil {
		conf.Topics = defaultTopics
	}
	if input.City != nil {
		conf.City = *input.City
	}
	if input.MaxAttendees != nil {
		conf.MaxAttendees = *input.MaxAttendees
	}
	conf.SeatsAvailable = conf.MaxAttendees
	conf.DeriveMonth()

	if err := s.confRepo.Create(ctx, conf); err != nil {
		return nil, fmt.Errorf("カンファレンスの作成に失敗しました: %w", err)
	}

	// 確認メールの失敗は作成の成否に影響させない
	if organizer, err := s.profileRepo.FindByID(ctx, organizerID); err == nil && organizer != nil && organizer.MainEmail != "" {
		if err := s.mailer.SendConferenceConfirmation(ctx, organizer.MainEmail, conf.Name); err != nil {
			slog.Warn("確認メールの送信に失敗しました", "conference_id", conf.ID, "error", err)
		}
	}

	slog.Info("カンファレンスを作成しました", "conference_id", conf.ID, "organizer_id", organizerID)
	return conf, nil
}

// UpdateInput はカンファレンス更新の入力。nilのフィールドは変更しない。
type UpdateInput struct {
	Name         *string
	Description  *string
	Topics       []string
	City         *string
	StartDate    *time.Time
	EndDate      *time.Time
	MaxAttendees *int
}

// Update はカンファレンスを更新する。主催者のみが実行できる。
// 開始日を変更した場合は月を再導出する。
func (s *Service) Update(ctx context.Context, organizerID, conferenceRef string, input UpdateInput) (*model.Conference, error) {
	conf, err := s.Get(ctx, conferenceRef)
	if err != nil {
		return nil, err
	}
	if conf.OrganizerID != organizerID {
		return nil, model.NewNotOrganizerError()
	}

	if input.Name != nil {
		if *input.Name == "" {
			return nil, model.NewNameRequiredError("カンファレンス")
		}
		conf.Name = *input.Name
	}
	if input.Description != nil {
		conf.Description = s.sanitizer.Sanitize(*input.Description)
	}
	if input.Topics != nil {
		conf.Topics = input.Topics
	}
	if input.City != nil {
		conf.City = *input.City
	}
	if input.StartDate != nil {
		conf.StartDate = input.StartDate
	}
	if input.EndDate != nil {
		conf.EndDate = input.EndDate
	}
	if input.MaxAttendees != nil {
		conf.MaxAttendees = *input.MaxAttendees
	}
	conf.DeriveMonth()

	if err := s.confRepo.Update(ctx, conf); err != nil {
		return nil, fmt.Errorf("カンファレンスの更新に失敗しました: %w", err)
	}
	return conf, nil
}

// Get は外部参照キーでカンファレンスを取得する。
// キーが不正・種別違い・該当なしのいずれもCONFERENCE_NOT_FOUNDになる。
func (s *Service) Get(ctx context.Context, conferenceRef string) (*model.Conference, error) {
	id, err := keyref.DecodeAs(conferenceRef, keyref.KindConference)
	if err != nil {
		return nil, model.NewConferenceNotFoundError(conferenceRef)
	}
	conf, err := s.confRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("カンファレンスの取得に失敗しました: %w", err)
	}
	if conf == nil {
		return nil, model.NewConferenceNotFoundError(conferenceRef)
	}
	return conf, nil
}

// ListCreated は指定プロフィールが主催するカンファレンス一覧を返す。
func (s *Service) ListCreated(ctx context.Context, organizerID string) ([]*model.Conference, error) {
	confs, err := s.confRepo.ListByOrganizer(ctx, organizerID)
	if err != nil {
		return nil, fmt.Errorf("主催カンファレンス一覧の取得に失敗しました: %w", err)
	}
	return confs, nil
}

// ListCreatedInMonth は指定プロフィールが主催するカンファレンスのうち、
// 指定年月に開始するものを返す。月は1〜12、年は1〜2999の範囲。
func (s *Service) ListCreatedInMonth(ctx context.Context, organizerID string, year, month int) ([]*model.Conference, error) {
	if month < 1 || month > 12 || year < 1 || year > 2999 {
		return nil, model.NewInvalidMonthYearError(month, year)
	}
	confs, err := s.confRepo.ListByOrganizerAndMonth(ctx, organizerID, year, month)
	if err != nil {
		return nil, fmt.Errorf("主催カンファレンス一覧の取得に失敗しました: %w", err)
	}
	return confs, nil
}

// ConferenceWithOrganizer はカンファレンスと主催者表示名の組。
type ConferenceWithOrganizer struct {
	Conference    *model.Conference
	OrganizerName string
}

// ListToAttend は指定プロフィールの参加予定カンファレンスを
// 登録順のまま、主催者表示名付きで返す。
func (s *Service) ListToAttend(ctx context.Context, profileID string) ([]ConferenceWithOrganizer, error) {
	profile, err := s.profileRepo.FindByID(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("プロフィールの取得に失敗しました: %w", err)
	}
	if profile == nil {
		return nil, model.NewProfileNotFoundError()
	}

	var ids []string
	for _, ref := range profile.ConferenceKeysToAttend {
		id, err := keyref.DecodeAs(ref, keyref.KindConference)
		if err != nil {
			slog.Warn("参加予定一覧に不正なキーが含まれています", "profile_id", profileID, "ref", ref)
			continue
		}
		ids = append(ids, id)
	}

	confs, err := s.confRepo.ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("参加予定カンファレンスの取得に失敗しました: %w", err)
	}
	byID := make(map[string]*model.Conference, len(confs))
	var organizerIDs []string
	for _, conf := range confs {
		byID[conf.ID] = conf
		organizerIDs = append(organizerIDs, conf.OrganizerID)
	}

	organizers, err := s.profileRepo.ListByIDs(ctx, organizerIDs)
	if err != nil {
		return nil, fmt.Errorf("主催者プロフィールの取得に失敗しました: %w", err)
	}
	nameByID := make(map[string]string, len(organizers))
	for _, org := range organizers {
		nameByID[org.ID] = org.DisplayName
	}

	// 参加予定一覧の登録順を保持する
	var results []ConferenceWithOrganizer
	for _, id := range ids {
		conf, ok := byID[id]
		if !ok {
			continue
		}
		results = append(results, ConferenceWithOrganizer{
			Conference:    conf,
			OrganizerName: nameByID[conf.OrganizerID],
		})
	}
	return results, nil
}

// Attendees は指定カンファレンスの参加者プロフィール一覧を返す。
func (s *Service) Attendees(ctx context.Context, conferenceRef string) ([]*model.Profile, error) {
	if _, err := s.Get(ctx, conferenceRef); err != nil {
		return nil, err
	}
	profiles, err := s.profileRepo.ListByConferenceKey(ctx, conferenceRef)
	if err != nil {
		return nil, fmt.Errorf("参加者一覧の取得に失敗しました: %w", err)
	}
	return profiles, nil
}

// Query はフィルタ条件でカンファレンスを検索する。
func (s *Service) Query(ctx context.Context, filters []query.Filter) ([]*model.Conference, error) {
	plan, err := s.compiler.Compile(filters)
	if err != nil {
		return nil, err
	}
	confs, err := s.confRepo.QueryPlan(ctx, plan)
	if err != nil {
		return nil, fmt.Errorf("カンファレンスの検索に失敗しました: %w", err)
	}
	return confs, nil
}
