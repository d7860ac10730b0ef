package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/hitoshi/confman/internal/model"
)

// LedgerStore は座席・参加リストの台帳トランザクション内で使える操作の集合。
// ForUpdate系は行ロックを取得するため、同一エンティティへの並行操作は
// 直列化される。
type LedgerStore interface {
	// ProfileForUpdate は指定プロフィールをロック付きで取得する。
	// 見つからない場合はnilを返す。
	ProfileForUpdate(ctx context.Context, id string) (*model.Profile, error)

	// ConferenceForUpdate は指定カンファレンスをロック付きで取得する。
	// 見つからない場合はnilを返す。
	ConferenceForUpdate(ctx context.Context, id string) (*model.Conference, error)

	// UpdateProfileLists は参加予定・ウィッシュリストを更新する。
	UpdateProfileLists(ctx context.Context, profile *model.Profile) error

	// UpdateConferenceSeats は空席数を更新する。
	UpdateConferenceSeats(ctx context.Context, conferenceID string, seats int) error
}

// TxRunner は台帳トランザクションを実行する。
// fnがエラーを返した場合はロールバックし、そのエラーをそのまま返す。
// コミット競合（シリアライゼーション失敗・デッドロック）は上限回数まで
// 再試行し、使い切った場合はTRANSIENT_FAILUREを返す。
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(LedgerStore) error) error
}

// PostgresTxRunner はPostgreSQLを使用したTxRunner。
type PostgresTxRunner struct {
	db          *sql.DB
	maxAttempts int

	// OnRetry は再試行のたびに呼ばれるフック。メトリクス記録用（nil可）。
	OnRetry func()
}

// NewPostgresTxRunner はPostgresTxRunnerを生成する。
func NewPostgresTxRunner(db *sql.DB, maxAttempts int) *PostgresTxRunner {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &PostgresTxRunner{db: db, maxAttempts: maxAttempts}
}

// RunInTx はfnをトランザクション内で実行する。
func (r *PostgresTxRunner) RunInTx(ctx context.Context, fn func(LedgerStore) error) error {
	var lastErr error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		err := r.runOnce(ctx, fn)
		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return err
		}
		lastErr = err
		if r.OnRetry != nil {
			r.OnRetry()
		}
		slog.Warn("台帳トランザクションの競合を検出、再試行します",
			"attempt", attempt, "max_attempts", r.maxAttempts, "error", err)
	}
	slog.Error("台帳トランザクションの再試行上限に到達しました", "error", lastErr)
	return model.NewTransientFailureError()
}

func (r *PostgresTxRunner) runOnce(ctx context.Context, fn func(LedgerStore) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&txLedgerStore{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}
	return nil
}

// isRetryable はシリアライゼーション失敗またはデッドロックかを判定する。
func isRetryable(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == "40001" || pqErr.Code == "40P01"
}

// txLedgerStore はトランザクションに束縛されたLedgerStore実装。
type txLedgerStore struct {
	tx *sql.Tx
}

// ProfileForUpdate は指定プロフィールをロック付きで取得する。
func (s *txLedgerStore) ProfileForUpdate(ctx context.Context, id string) (*model.Profile, error) {
	row := s.tx.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE id = $1 FOR UPDATE`,
		id,
	)
	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("プロフィールのロック取得に失敗しました: %w", err)
	}
	return p, nil
}

// ConferenceForUpdate は指定カンファレンスをロック付きで取得する。
func (s *txLedgerStore) ConferenceForUpdate(ctx context.Context, id string) (*model.Conference, error) {
	row := s.tx.QueryRowContext(ctx,
		`SELECT `+conferenceColumns+` FROM conferences WHERE id = $1 FOR UPDATE`,
		id,
	)
	conf, err := scanConference(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("カンファレンスのロック取得に失敗しました: %w", err)
	}
	return conf, nil
}

// UpdateProfileLists は参加予定・ウィッシュリストを更新する。
func (s *txLedgerStore) UpdateProfileLists(ctx context.Context, profile *model.Profile) error {
	_, err := s.tx.ExecContext(ctx,
		`UPDATE profiles
		 SET conference_keys_to_attend = $2, wishlist_of_session_keys = $3, updated_at = NOW()
		 WHERE id = $1`,
		profile.ID,
		pq.Array([]string(profile.ConferenceKeysToAttend)),
		pq.Array([]string(profile.WishlistOfSessionKeys)),
	)
	if err != nil {
		return fmt.Errorf("参加リストの更新に失敗しました: %w", err)
	}
	return nil
}

// UpdateConferenceSeats は空席数を更新する。
func (s *txLedgerStore) UpdateConferenceSeats(ctx context.Context, conferenceID string, seats int) error {
	_, err := s.tx.ExecContext(ctx,
		`UPDATE conferences SET seats_available = $2, updated_at = NOW() WHERE id = $1`,
		conferenceID, seats,
	)
	if err != nil {
		return fmt.Errorf("空席数の更新に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ TxRunner = (*PostgresTxRunner)(nil)
var _ LedgerStore = (*txLedgerStore)(nil)
