// Package ledger は参加登録・ウィッシュリストの台帳操作を提供する。
// 座席数とプロフィール側のリストは必ず同一トランザクション内で更新され、
// 部分的な効果が観測されることはない。
package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/confman/internal/keyref"
	"github.com/hitoshi/confman/internal/model"
	"github.com/hitoshi/confman/internal/repository"
)

// Service は台帳操作のサービス層。
type Service struct {
	txRunner    repository.TxRunner
	sessionRepo repository.SessionRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(txRunner repository.TxRunner, sessionRepo repository.SessionRepository) *Service {
	return &Service{
		txRunner:    txRunner,
		sessionRepo: sessionRepo,
	}
}

// Register はプロフィールをカンファレンスに参加登録する。
//   - 既に登録済みの場合はALREADY_REGISTERED
//   - 空席がない場合はNO_SEATS_AVAILABLE
//
// 登録成功時はプロフィールの参加予定一覧への追記と空席数の減算が
// 不可分に行われる。
func (s *Service) Register(ctx context.Context, profileID, conferenceRef string) error {
	conferenceID, err := keyref.DecodeAs(conferenceRef, keyref.KindConference)
	if err != nil {
		return model.NewConferenceNotFoundError(conferenceRef)
	}

	err = s.txRunner.RunInTx(ctx, func(store repository.LedgerStore) error {
		profile, err := store.ProfileForUpdate(ctx, profileID)
		if err != nil {
			return err
		}
		if profile == nil {
			return model.NewProfileNotFoundError()
		}

		conf, err := store.ConferenceForUpdate(ctx, conferenceID)
		if err != nil {
			return err
		}
		if conf == nil {
			return model.NewConferenceNotFoundError(conferenceRef)
		}

		if profile.ConferenceKeysToAttend.Contains(conferenceRef) {
			return model.NewAlreadyRegisteredError()
		}
		if conf.SeatsAvailable <= 0 {
			return model.NewNoSeatsAvailableError()
		}

		profile.ConferenceKeysToAttend.Add(conferenceRef)
		if err := store.UpdateProfileLists(ctx, profile); err != nil {
			return err
		}
		if err := store.UpdateConferenceSeats(ctx, conf.ID, conf.SeatsAvailable-1); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.Info("参加登録が完了しました", "profile_id", profileID, "conference_id", conferenceID)
	return nil
}

// Unregister はカンファレンスへの参加登録を取り消す。
// 登録されていなかった場合は何もせずfalseを返す（エラーにしない）。
// 取り消し時は参加予定一覧からの削除と空席数の加算が不可分に行われる。
func (s *Service) Unregister(ctx context.Context, profileID, conferenceRef string) (bool, error) {
	conferenceID, err := keyref.DecodeAs(conferenceRef, keyref.KindConference)
	if err != nil {
		return false, model.NewConferenceNotFoundError(conferenceRef)
	}

	removed := false
	err = s.txRunner.RunInTx(ctx, func(store repository.LedgerStore) error {
		removed = false

		profile, err := store.ProfileForUpdate(ctx, profileID)
		if err != nil {
			return err
		}
		if profile == nil {
			return model.NewProfileNotFoundError()
		}

		if !profile.ConferenceKeysToAttend.Remove(conferenceRef) {
			return nil
		}

		conf, err := store.ConferenceForUpdate(ctx, conferenceID)
		if err != nil {
			return err
		}
		if conf == nil {
			return model.NewConferenceNotFoundError(conferenceRef)
		}

		if err := store.UpdateProfileLists(ctx, profile); err != nil {
			return err
		}
		if err := store.UpdateConferenceSeats(ctx, conf.ID, conf.SeatsAvailable+1); err != nil {
			return err
		}
		removed = true
		return nil
	})
	if err != nil {
		return false, err
	}

	if removed {
		slog.Info("参加登録を取り消しました", "profile_id", profileID, "conference_id", conferenceID)
	}
	return removed, nil
}

// AddToWishlist はセッションをウィッシュリストに追加する。
//   - セッションが存在しない場合はSESSION_NOT_FOUND
//   - 既に追加済みの場合はALREADY_IN_WISHLIST
func (s *Service) AddToWishlist(ctx context.Context, profileID, sessionRef string) error {
	sessionID, err := keyref.DecodeAs(sessionRef, keyref.KindSession)
	if err != nil {
		return model.NewSessionNotFoundError(sessionRef)
	}

	sess, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("セッションの取得に失敗しました: %w", err)
	}
	if sess == nil {
		return model.NewSessionNotFoundError(sessionRef)
	}

	err = s.txRunner.RunInTx(ctx, func(store repository.LedgerStore) error {
		profile, err := store.ProfileForUpdate(ctx, profileID)
		if err != nil {
			return err
		}
		if profile == nil {
			return model.NewProfileNotFoundError()
		}

		if !profile.WishlistOfSessionKeys.Add(sessionRef) {
			return model.NewAlreadyInWishlistError()
		}
		return store.UpdateProfileLists(ctx, profile)
	})
	if err != nil {
		return err
	}

	slog.Info("ウィッシュリストに追加しました", "profile_id", profileID, "session_id", sessionID)
	return nil
}

// RemoveFromWishlist はセッションをウィッシュリストから取り除く。
// 含まれていなかった場合は何もせずfalseを返す（エラーにしない）。
func (s *Service) RemoveFromWishlist(ctx context.Context, profileID, sessionRef string) (bool, error) {
	if _, err := keyref.DecodeAs(sessionRef, keyref.KindSession); err != nil {
		return false, model.NewSessionNotFoundError(sessionRef)
	}

	removed := false
	err := s.txRunner.RunInTx(ctx, func(store repository.LedgerStore) error {
		removed = false

		profile, err := store.ProfileForUpdate(ctx, profileID)
		if err != nil {
			return err
		}
		if profile == nil {
			return model.NewProfileNotFoundError()
		}

		if !profile.WishlistOfSessionKeys.Remove(sessionRef) {
			return nil
		}
		if err := store.UpdateProfileLists(ctx, profile); err != nil {
			return err
		}
		removed = true
		return nil
	})
	if err != nil {
		return false, err
	}

	return removed, nil
}
