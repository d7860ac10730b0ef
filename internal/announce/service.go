// Package announce は残席わずかの告知と注目スピーカーの管理を提供する。
package announce

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hitoshi/confman/internal/cache"
	"github.com/hitoshi/confman/internal/repository"
)

const (
	announcementKey    = "announcement:low_seats"
	featuredKeyPrefix  = "featured_speaker:"
	announcementPrefix = "Last chance to attend! The following conferences are nearly sold out: "
)

// Service は告知のサービス層。
type Service struct {
	store       cache.Store
	confRepo    repository.ConferenceRepository
	sessionRepo repository.SessionRepository
	speakerRepo repository.SpeakerRepository
	threshold   int
	ttl         time.Duration
}

// NewService はServiceの新しいインスタンスを生成する。
// thresholdは「残席わずか」とみなす空席数の上限。
func NewService(
	store cache.Store,
	confRepo repository.ConferenceRepository,
	sessionRepo repository.SessionRepository,
	speakerRepo repository.SpeakerRepository,
	threshold int,
	ttl time.Duration,
) *Service {
	return &Service{
		store:       store,
		confRepo:    confRepo,
		sessionRepo: sessionRepo,
		speakerRepo: speakerRepo,
		threshold:   threshold,
		ttl:         ttl,
	}
}

// RefreshAnnouncement は残席わずか（0 < 空席数 <= threshold）の
// カンファレンスを集計して告知文を更新する。
// 該当がない場合は既存の告知を削除し、空文字を返す。
func (s *Service) RefreshAnnouncement(ctx context.Context) (string, error) {
	confs, err := s.confRepo.ListLowSeats(ctx, s.threshold)
	if err != nil {
		return "", fmt.Errorf("残席わずかカンファレンスの取得に失敗しました: %w", err)
	}

	if len(confs) == 0 {
		if err := s.store.Delete(ctx, announcementKey); err != nil {
			return "", err
		}
		return "", nil
	}

	names := make([]string, len(confs))
	for i, conf := range confs {
		names[i] = conf.Name
	}
	announcement := announcementPrefix + strings.Join(names, ", ")

	if err := s.store.Set(ctx, announcementKey, announcement, s.ttl); err != nil {
		return "", err
	}
	slog.Info("残席わずかの告知を更新しました", "conferences", len(confs))
	return announcement, nil
}

// Announcement は現在の告知文を返す。告知がない場合は空文字。
func (s *Service) Announcement(ctx context.Context) (string, error) {
	value, ok, err := s.store.Get(ctx, announcementKey)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", nil
	}
	return value, nil
}

// UpdateFeaturedSpeaker はセッション追加後に注目スピーカーを再計算する。
// 指定スピーカーが同一カンファレンス内で2つ以上のセッションを担当する場合、
// 「スピーカー名: セッション名1, セッション名2」の形式で保存する。
func (s *Service) UpdateFeaturedSpeaker(ctx context.Context, speakerID, conferenceID string) error {
	if speakerID == "" {
		return nil
	}

	count, err := s.sessionRepo.CountBySpeakerAndConference(ctx, speakerID, conferenceID)
	if err != nil {
		return fmt.Errorf("セッション数の取得に失敗しました: %w", err)
	}
	if count <= 1 {
		return nil
	}

	speaker, err := s.speakerRepo.FindByID(ctx, speakerID)
	if err != nil {
		return fmt.Errorf("スピーカーの取得に失敗しました: %w", err)
	}
	if speaker == nil {
		return nil
	}

	sessions, err := s.sessionRepo.ListBySpeaker(ctx, speakerID)
	if err != nil {
		return fmt.Errorf("セッション一覧の取得に失敗しました: %w", err)
	}

	var names []string
	for _, sess := range sessions {
		if sess.ConferenceID == conferenceID {
			names = append(names, sess.Name)
		}
	}

	message := speaker.Name + ": " + strings.Join(names, ", ")
	if err := s.store.Set(ctx, featuredKeyPrefix+conferenceID, message, 0); err != nil {
		return err
	}
	slog.Info("注目スピーカーを更新しました",
		"speaker_id", speakerID, "conference_id", conferenceID, "sessions", len(names))
	return nil
}

// FeaturedSpeaker は指定カンファレンスの注目スピーカー文を返す。
// 未設定の場合は空文字。
func (s *Service) FeaturedSpeaker(ctx context.Context, conferenceID string) (string, error) {
	value, ok, err := s.store.Get(ctx, featuredKeyPrefix+conferenceID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", nil
	}
	return value, nil
}
