// Package auth はOAuth認証フロー、ログインセッション管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/confman/internal/model"
	"github.com/hitoshi/confman/internal/repository"
)

// OAuthUserInfo はOAuthプロバイダーから取得したユーザー情報を表す。
type OAuthUserInfo struct {
	ProviderUserID string
	Email          string
	Name           string
	Provider       string // "google", "github" 等
}

// OAuthProvider はOAuth認証プロバイダーのインターフェース。
// 将来的に複数IdP（Google, GitHub等）に対応するための抽象化。
type OAuthProvider interface {
	// GetLoginURL はOAuth認証URLを生成する。
	GetLoginURL(state string) string
	// ExchangeCode は認可コードをトークンに交換し、ユーザー情報を取得する。
	ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error)
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	oauth            OAuthProvider
	profileRepo      repository.ProfileRepository
	identRepo        repository.IdentityRepository
	loginSessionRepo repository.LoginSessionRepository
	config           ServiceConfig
}

// NewService はServiceを生成する。
func NewService(
	oauth OAuthProvider,
	profileRepo repository.ProfileRepository,
	identRepo repository.IdentityRepository,
	loginSessionRepo repository.LoginSessionRepository,
	config ServiceConfig,
) *Service {
	return &Service{
		oauth:            oauth,
		profileRepo:      profileRepo,
		identRepo:        identRepo,
		loginSessionRepo: loginSessionRepo,
		config:           config,
	}
}

// GetLoginURL はOAuth認証URLを生成する。
func (s *Service) GetLoginURL(state string) string {
	return s.oauth.GetLoginURL(state)
}

// HandleCallback はOAuthコールバックを処理し、ログインセッションを発行する。
// 初回ログインの場合はプロフィールとidentityを同時に自動作成する。
// 表示名はプロバイダーの名前、Tシャツサイズは未指定で初期化する。
func (s *Service) HandleCallback(ctx context.Context, code string) (*model.LoginSession, error) {
	userInfo, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange oauth code: %w", err)
	}

	identity, err := s.identRepo.FindByProviderAndProviderUserID(ctx, userInfo.Provider, userInfo.ProviderUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find identity: %w", err)
	}

	var profileID string

	if identity != nil {
		profileID = identity.ProfileID
		slog.Info("existing profile logged in",
			slog.String("profile_id", profileID),
			slog.String("provider", userInfo.Provider),
		)
	} else {
		newProfileID := uuid.New().String()
		now := time.Now()

		newProfile := &model.Profile{
			ID:           newProfileID,
			DisplayName:  userInfo.Name,
			MainEmail:    userInfo.Email,
			TeeShirtSize: model.TeeShirtNotSpecified,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		newIdentity := &model.Identity{
			ID:             uuid.New().String(),
			ProfileID:      newProfileID,
			Provider:       userInfo.Provider,
			ProviderUserID: userInfo.ProviderUserID,
			CreatedAt:      now,
		}

		if err := s.profileRepo.CreateWithIdentity(ctx, newProfile, newIdentity); err != nil {
			return nil, fmt.Errorf("failed to create profile and identity: %w", err)
		}

		profileID = newProfileID
		slog.Info("new profile created",
			slog.String("profile_id", profileID),
			slog.String("email", userInfo.Email),
			slog.String("provider", userInfo.Provider),
		)
	}

	session, err := s.createLoginSession(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("failed to create login session: %w", err)
	}

	return session, nil
}

// Logout はログインセッションを破棄する。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}

	if err := s.loginSessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete login session: %w", err)
	}

	slog.Info("profile logged out", slog.String("session_id", sessionID))
	return nil
}

// GetCurrentProfile はログインセッションから現在のプロフィールを取得する。
func (s *Service) GetCurrentProfile(ctx context.Context, sessionID string) (*model.Profile, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session ID is required")
	}

	session, err := s.loginSessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find login session: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("login session not found or expired")
	}

	profile, err := s.profileRepo.FindByID(ctx, session.ProfileID)
	if err != nil {
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}
	if profile == nil {
		return nil, fmt.Errorf("profile not found")
	}

	return profile, nil
}

// createLoginSession はログインセッションを作成し永続化する。
func (s *Service) createLoginSession(ctx context.Context, profileID string) (*model.LoginSession, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	session := &model.LoginSession{
		ID:        sessionID,
		ProfileID: profileID,
		ExpiresAt: time.Now().Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: time.Now(),
	}

	if err := s.loginSessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save login session: %w", err)
	}

	return session, nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
