// Package profile はプロフィール管理のドメインロジックを提供する。
package profile

import (
	"context"
	"fmt"

	"github.com/hitoshi/confman/internal/model"
	"github.com/hitoshi/confman/internal/repository"
)

// Service はプロフィール管理のサービス層。
type Service struct {
	profileRepo repository.ProfileRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(profileRepo repository.ProfileRepository) *Service {
	return &Service{profileRepo: profileRepo}
}

// Get は指定IDのプロフィールを返す。
func (s *Service) Get(ctx context.Context, profileID string) (*model.Profile, error) {
	profile, err := s.profileRepo.FindByID(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("プロフィールの取得に失敗しました: %w", err)
	}
	if profile == nil {
		return nil, model.NewProfileNotFoundError()
	}
	return profile, nil
}

// SaveInput はプロフィール更新の入力。nilのフィールドは変更しない。
type SaveInput struct {
	DisplayName  *string
	TeeShirtSize *string
}

// Save はプロフィールの表示名・Tシャツサイズを更新して返す。
// Tシャツサイズは定義済みの列挙値のみ受け付ける。
func (s *Service) Save(ctx context.Context, profileID string, input SaveInput) (*model.Profile, error) {
	profile, err := s.Get(ctx, profileID)
	if err != nil {
		return nil, err
	}

	if input.DisplayName != nil {
		profile.DisplayName = *input.DisplayName
	}
	if input.TeeShirtSize != nil {
		size := model.TeeShirtSize(*input.TeeShirtSize)
		if !model.ValidTeeShirtSize(size) {
			return nil, model.NewInvalidRequestError(
				fmt.Sprintf("未定義のTシャツサイズです: %s", *input.TeeShirtSize))
		}
		profile.TeeShirtSize = size
	}

	if err := s.profileRepo.Update(ctx, profile); err != nil {
		return nil, fmt.Errorf("プロフィールの更新に失敗しました: %w", err)
	}
	return profile, nil
}
