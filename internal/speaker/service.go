// Package speaker はスピーカー管理のドメインロジックを提供する。
package speaker

import (
	"context"
	"fmt"
	"net/mail"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/confman/internal/keyref"
	"github.com/hitoshi/confman/internal/model"
	"github.com/hitoshi/confman/internal/repository"
	"github.com/hitoshi/confman/internal/schedule"
)

// phonePattern は受け付ける電話番号の形式。
// 例: 800-555-1234, +1-800-555-1234
var phonePattern = regexp.MustCompile(`^(\+?\d{1,2}-)?\d{3}-\d{3}-\d{4}$`)

// Service はスピーカー管理のサービス層。
type Service struct {
	speakerRepo repository.SpeakerRepository
	sessionRepo repository.SessionRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(speakerRepo repository.SpeakerRepository, sessionRepo repository.SessionRepository) *Service {
	return &Service{
		speakerRepo: speakerRepo,
		sessionRepo: sessionRepo,
	}
}

// CreateInput はスピーカー作成の入力。
type CreateInput struct {
	Name    string
	Phones  []string
	Emails  []string
	Website string
	Company string
}

// Create はスピーカーを作成する。電話番号・メールアドレスは形式を検証する。
func (s *Service) Create(ctx context.Context, input CreateInput) (*model.Speaker, error) {
	if input.Name == "" {
		return nil, model.NewNameRequiredError("スピーカー")
	}
	for _, phone := range input.Phones {
		if !phonePattern.MatchString(phone) {
			return nil, model.NewInvalidSpeakerContactError(
				fmt.Sprintf("電話番号の形式が不正です: %s", phone))
		}
	}
	for _, email := range input.Emails {
		if _, err := mail.ParseAddress(email); err != nil {
			return nil, model.NewInvalidSpeakerContactError(
				fmt.Sprintf("メールアドレスの形式が不正です: %s", email))
		}
	}

	speaker := &model.Speaker{
		ID:        uuid.New().String(),
		Name:      input.Name,
		Phones:    input.Phones,
		Emails:    input.Emails,
		Website:   input.Website,
		Company:   input.Company,
		CreatedAt: time.Now(),
	}
	if err := s.speakerRepo.Create(ctx, speaker); err != nil {
		return nil, fmt.Errorf("スピーカーの作成に失敗しました: %w", err)
	}
	return speaker, nil
}

// Get は外部参照キーでスピーカーを取得する。
func (s *Service) Get(ctx context.Context, speakerRef string) (*model.Speaker, error) {
	id, err := keyref.DecodeAs(speakerRef, keyref.KindSpeaker)
	if err != nil {
		return nil, model.NewSpeakerNotFoundError(speakerRef)
	}
	speaker, err := s.speakerRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("スピーカーの取得に失敗しました: %w", err)
	}
	if speaker == nil {
		return nil, model.NewSpeakerNotFoundError(speakerRef)
	}
	return speaker, nil
}

// List は全スピーカーを名前順で返す。
func (s *Service) List(ctx context.Context) ([]*model.Speaker, error) {
	speakers, err := s.speakerRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("スピーカー一覧の取得に失敗しました: %w", err)
	}
	return speakers, nil
}

// FreeIntervals は指定スピーカーの指定年月の空き日区間を返す。
// 担当セッションの開催日を埋まり日として扱う。月は1〜12、年は1〜2999の範囲。
func (s *Service) FreeIntervals(ctx context.Context, speakerRef string, year, month int) ([]model.FreeInterval, error) {
	if month < 1 || month > 12 || year < 1 || year > 2999 {
		return nil, model.NewInvalidMonthYearError(month, year)
	}

	speaker, err := s.Get(ctx, speakerRef)
	if err != nil {
		return nil, err
	}

	sessions, err := s.sessionRepo.ListBySpeaker(ctx, speaker.ID)
	if err != nil {
		return nil, fmt.Errorf("セッション一覧の取得に失敗しました: %w", err)
	}

	days := schedule.DaysInMonth(month)
	occupied := make(map[int]bool)
	for _, sess := range sessions {
		if sess.Date.Year() == year && int(sess.Date.Month()) == month {
			occupied[sess.Date.Day()] = true
		}
	}

	return schedule.FreeIntervals(occupied, days), nil
}
