// Package cleanup は期限切れログインセッションの自動削除ジョブを提供する。
// expires_atを過ぎたログインセッションを定期バッチで削除する。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/confman/internal/repository"
)

// CleanupJob は期限切れログインセッションの自動削除ジョブ。
// 定期実行のバッチジョブとして設計されており、冪等な削除処理を保証する。
type CleanupJob struct {
	loginSessionRepo repository.LoginSessionRepository
	logger           *slog.Logger
}

// NewCleanupJob は新しいCleanupJobを生成する。
func NewCleanupJob(loginSessionRepo repository.LoginSessionRepository, logger *slog.Logger) *CleanupJob {
	return &CleanupJob{
		loginSessionRepo: loginSessionRepo,
		logger:           logger,
	}
}

// Run は期限切れのログインセッションを削除する。
// 冪等: 削除対象がない場合でもエラーにならない。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	deletedCount, err := j.loginSessionRepo.DeleteExpired(ctx, start)
	if err != nil {
		j.logger.Error("ログインセッションのクリーンアップに失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("ログインセッションのクリーンアップに失敗: %w", err)
	}

	duration := time.Since(start)
	j.logger.Info("ログインセッションのクリーンアップが完了しました",
		slog.Int64("deleted_count", deletedCount),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}
