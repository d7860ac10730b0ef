package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/hitoshi/confman/internal/model"
	"github.com/hitoshi/confman/internal/query"
)

// PostgresSessionRepo はPostgreSQLを使用したセッションリポジトリ。
type PostgresSessionRepo struct {
	db *sql.DB
}

// NewPostgresSessionRepo はPostgresSessionRepoを生成する。
func NewPostgresSessionRepo(db *sql.DB) *PostgresSessionRepo {
	return &PostgresSessionRepo{db: db}
}

const sessionColumns = `id, conference_id, name, highlights, type_of_session,
	 date, start_time, end_time, location, speaker_id, created_at`

func scanSession(row rowScanner) (*model.Session, error) {
	sess := &model.Session{}
	var speakerID sql.NullString
	err := row.Scan(
		&sess.ID, &sess.ConferenceID, &sess.Name, &sess.Highlights, &sess.TypeOfSession,
		&sess.Date, &sess.StartTime, &sess.EndTime, &sess.Location, &speakerID, &sess.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	sess.SpeakerID = speakerID.String
	return sess, nil
}

// nullableID は空文字をNULLに変換する。
func nullableID(id string) sql.NullString {
	return sql.NullString{String: id, Valid: id != ""}
}

// FindByID は指定IDのセッションを取得する。見つからない場合はnilを返す。
func (r *PostgresSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = $1`,
		id,
	)
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("セッションの取得に失敗しました: %w", err)
	}
	return sess, nil
}

// Create はセッションを作成する。
func (r *PostgresSessionRepo) Create(ctx context.Context, sess *model.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, conference_id, name, highlights, type_of_session,
		     date, start_time, end_time, location, speaker_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		sess.ID, sess.ConferenceID, sess.Name, sess.Highlights, sess.TypeOfSession,
		sess.Date, sess.StartTime.Format("15:04:05"), sess.EndTime.Format("15:04:05"),
		sess.Location, nullableID(sess.SpeakerID), sess.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("セッションの作成に失敗しました: %w", err)
	}
	return nil
}

func (r *PostgresSessionRepo) querySessions(ctx context.Context, q string, args ...any) ([]*model.Session, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("セッション一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var sessions []*model.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("セッション行の読み取りに失敗しました: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("セッション一覧の走査に失敗しました: %w", err)
	}
	return sessions, nil
}

// ListByConference は指定カンファレンスの全セッションを返す。
func (r *PostgresSessionRepo) ListByConference(ctx context.Context, conferenceID string) ([]*model.Session, error) {
	return r.querySessions(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE conference_id = $1 ORDER BY date ASC, start_time ASC`,
		conferenceID,
	)
}

// ListByConferenceAndType は指定カンファレンスの指定タイプのセッションを返す。
func (r *PostgresSessionRepo) ListByConferenceAndType(ctx context.Context, conferenceID, typeOfSession string) ([]*model.Session, error) {
	return r.querySessions(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE conference_id = $1 AND type_of_session = $2
		 ORDER BY date ASC, start_time ASC`,
		conferenceID, typeOfSession,
	)
}

// ListBySpeaker は指定スピーカーの全セッションを返す（カンファレンス横断）。
func (r *PostgresSessionRepo) ListBySpeaker(ctx context.Context, speakerID string) ([]*model.Session, error) {
	return r.querySessions(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE speaker_id = $1 ORDER BY date ASC, start_time ASC`,
		speakerID,
	)
}

// ListByIDs は指定ID群のセッションを返す。順序は保証しない。
func (r *PostgresSessionRepo) ListByIDs(ctx context.Context, ids []string) ([]*model.Session, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.querySessions(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = ANY($1)`,
		pq.Array(ids),
	)
}

// ListEarlyNonMatching は開始時刻がbefore未満かつタイプがexcludeType以外の
// セッションを返す。
func (r *PostgresSessionRepo) ListEarlyNonMatching(ctx context.Context, before time.Time, excludeType string) ([]*model.Session, error) {
	return r.querySessions(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE start_time < $1 AND type_of_session <> $2
		 ORDER BY start_time ASC, name ASC`,
		before.Format("15:04:05"), excludeType,
	)
}

// ListByDateWindow は空席のあるカンファレンスのセッションのうち、
// 開催日が[from, to]（両端含む）のものを返す。
func (r *PostgresSessionRepo) ListByDateWindow(ctx context.Context, from, to time.Time) ([]*model.Session, error) {
	return r.querySessions(ctx,
		`SELECT s.id, s.conference_id, s.name, s.highlights, s.type_of_session,
		     s.date, s.start_time, s.end_time, s.location, s.speaker_id, s.created_at
		 FROM sessions s
		 JOIN conferences c ON s.conference_id = c.id
		 WHERE c.seats_available > 0 AND s.date >= $1 AND s.date <= $2
		 ORDER BY s.date ASC, s.start_time ASC`,
		from, to,
	)
}

// CountBySpeakerAndConference は指定カンファレンス内で指定スピーカーが担当する
// セッション数を返す。
func (r *PostgresSessionRepo) CountBySpeakerAndConference(ctx context.Context, speakerID, conferenceID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sessions WHERE speaker_id = $1 AND conference_id = $2`,
		speakerID, conferenceID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("セッション数の取得に失敗しました: %w", err)
	}
	return count, nil
}

// QueryPlan はコンパイル済みクエリプランを実行する。
func (r *PostgresSessionRepo) QueryPlan(ctx context.Context, plan *query.Plan) ([]*model.Session, error) {
	q := `SELECT ` + sessionColumns + ` FROM sessions`
	conds, args := planToSQL(plan, 1)
	if len(conds) > 0 {
		q += ` WHERE ` + strings.Join(conds, " AND ")
	}
	q += ` ORDER BY ` + planOrderBy(plan)
	return r.querySessions(ctx, q, args...)
}

// compile-time interface check
var _ SessionRepository = (*PostgresSessionRepo)(nil)
