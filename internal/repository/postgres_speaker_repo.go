package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/confman/internal/model"
)

// PostgresSpeakerRepo はPostgreSQLを使用したスピーカーリポジトリ。
type PostgresSpeakerRepo struct {
	db *sql.DB
}

// NewPostgresSpeakerRepo はPostgresSpeakerRepoを生成する。
func NewPostgresSpeakerRepo(db *sql.DB) *PostgresSpeakerRepo {
	return &PostgresSpeakerRepo{db: db}
}

const speakerColumns = `id, name, phones, emails, website, company, session_refs, created_at`

func scanSpeaker(row rowScanner) (*model.Speaker, error) {
	sp := &model.Speaker{}
	var refs []string
	err := row.Scan(
		&sp.ID, &sp.Name, pq.Array(&sp.Phones), pq.Array(&sp.Emails),
		&sp.Website, &sp.Company, pq.Array(&refs), &sp.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	sp.SessionRefs = model.RefSet(refs)
	return sp, nil
}

// FindByID は指定IDのスピーカーを取得する。見つからない場合はnilを返す。
func (r *PostgresSpeakerRepo) FindByID(ctx context.Context, id string) (*model.Speaker, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+speakerColumns+` FROM speakers WHERE id = $1`,
		id,
	)
	sp, err := scanSpeaker(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("スピーカーの取得に失敗しました: %w", err)
	}
	return sp, nil
}

// Create はスピーカーを作成する。
func (r *PostgresSpeakerRepo) Create(ctx context.Context, sp *model.Speaker) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO speakers (id, name, phones, emails, website, company, session_refs, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		sp.ID, sp.Name, pq.Array(sp.Phones), pq.Array(sp.Emails),
		sp.Website, sp.Company, pq.Array([]string(sp.SessionRefs)), sp.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("スピーカーの作成に失敗しました: %w", err)
	}
	return nil
}

// AppendSessionRef はスピーカーのセッション参照一覧にrefを追記する。
// 既に含まれている場合は何もしない。
func (r *PostgresSpeakerRepo) AppendSessionRef(ctx context.Context, speakerID, ref string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE speakers
		 SET session_refs = array_append(session_refs, $2)
		 WHERE id = $1 AND NOT ($2 = ANY(session_refs))`,
		speakerID, ref,
	)
	if err != nil {
		return fmt.Errorf("セッション参照の追記に失敗しました: %w", err)
	}
	// 既に含まれている場合は0行更新で正常終了
	if _, err := result.RowsAffected(); err != nil {
		return fmt.Errorf("更新結果の取得に失敗しました: %w", err)
	}
	return nil
}

// ListAll は全スピーカーを名前順で返す。
func (r *PostgresSpeakerRepo) ListAll(ctx context.Context) ([]*model.Speaker, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+speakerColumns+` FROM speakers ORDER BY name ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("スピーカー一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var speakers []*model.Speaker
	for rows.Next() {
		sp, err := scanSpeaker(rows)
		if err != nil {
			return nil, fmt.Errorf("スピーカー行の読み取りに失敗しました: %w", err)
		}
		speakers = append(speakers, sp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("スピーカー一覧の走査に失敗しました: %w", err)
	}
	return speakers, nil
}

// compile-time interface check
var _ SpeakerRepository = (*PostgresSpeakerRepo)(nil)
