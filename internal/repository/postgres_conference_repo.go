package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/hitoshi/confman/internal/model"
	"github.com/hitoshi/confman/internal/query"
)

// PostgresConferenceRepo はPostgreSQLを使用したカンファレンスリポジトリ。
type PostgresConferenceRepo struct {
	db *sql.DB
}

// NewPostgresConferenceRepo はPostgresConferenceRepoを生成する。
func NewPostgresConferenceRepo(db *sql.DB) *PostgresConferenceRepo {
	return &PostgresConferenceRepo{db: db}
}

const conferenceColumns = `id, name, description, topics, city, start_date, end_date,
	 month, max_attendees, seats_available, organizer_id, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConference(row rowScanner) (*model.Conference, error) {
	conf := &model.Conference{}
	var startDate, endDate sql.NullTime
	err := row.Scan(
		&conf.ID, &conf.Name, &conf.Description, pq.Array(&conf.Topics), &conf.City,
		&startDate, &endDate, &conf.Month, &conf.MaxAttendees, &conf.SeatsAvailable,
		&conf.OrganizerID, &conf.CreatedAt, &conf.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if startDate.Valid {
		t := startDate.Time
		conf.StartDate = &t
	}
	if endDate.Valid {
		t := endDate.Time
		conf.EndDate = &t
	}
	return conf, nil
}

// FindByID は指定IDのカンファレンスを取得する。見つからない場合はnilを返す。
func (r *PostgresConferenceRepo) FindByID(ctx context.Context, id string) (*model.Conference, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+conferenceColumns+` FROM conferences WHERE id = $1`,
		id,
	)
	conf, err := scanConference(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("カンファレンスの取得に失敗しました: %w", err)
	}
	return conf, nil
}

// Create はカンファレンスを作成する。
func (r *PostgresConferenceRepo) Create(ctx context.Context, conf *model.Conference) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO conferences (id, name, description, topics, city, start_date, end_date,
		     month, max_attendees, seats_available, organizer_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		conf.ID, conf.Name, conf.Description, pq.Array(conf.Topics), conf.City,
		conf.StartDate, conf.EndDate, conf.Month, conf.MaxAttendees, conf.SeatsAvailable,
		conf.OrganizerID, conf.CreatedAt, conf.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("カンファレンスの作成に失敗しました: %w", err)
	}
	return nil
}

// Update はカンファレンスを更新する。seats_availableは対象外。
func (r *PostgresConferenceRepo) Update(ctx context.Context, conf *model.Conference) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE conferences
		 SET name = $2, description = $3, topics = $4, city = $5, start_date = $6,
		     end_date = $7, month = $8, max_attendees = $9, updated_at = NOW()
		 WHERE id = $1`,
		conf.ID, conf.Name, conf.Description, pq.Array(conf.Topics), conf.City,
		conf.StartDate, conf.EndDate, conf.Month, conf.MaxAttendees,
	)
	if err != nil {
		return fmt.Errorf("カンファレンスの更新に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新結果の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("カンファレンスが見つかりません: %s", conf.ID)
	}
	return nil
}

func (r *PostgresConferenceRepo) queryConferences(ctx context.Context, q string, args ...any) ([]*model.Conference, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("カンファレンス一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var confs []*model.Conference
	for rows.Next() {
		conf, err := scanConference(rows)
		if err != nil {
			return nil, fmt.Errorf("カンファレンス行の読み取りに失敗しました: %w", err)
		}
		confs = append(confs, conf)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("カンファレンス一覧の走査に失敗しました: %w", err)
	}
	return confs, nil
}

// ListByOrganizer は指定プロフィールが主催するカンファレンス一覧を返す。
func (r *PostgresConferenceRepo) ListByOrganizer(ctx context.Context, organizerID string) ([]*model.Conference, error) {
	return r.queryConferences(ctx,
		`SELECT `+conferenceColumns+` FROM conferences
		 WHERE organizer_id = $1 ORDER BY created_at ASC`,
		organizerID,
	)
}

// ListByIDs は指定ID群のカンファレンスを返す。順序は保証しない。
func (r *PostgresConferenceRepo) ListByIDs(ctx context.Context, ids []string) ([]*model.Conference, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.queryConferences(ctx,
		`SELECT `+conferenceColumns+` FROM conferences WHERE id = ANY($1)`,
		pq.Array(ids),
	)
}

// ListByOrganizerAndMonth は指定主催者のカンファレンスのうち、指定年月に開始するものを返す。
func (r *PostgresConferenceRepo) ListByOrganizerAndMonth(ctx context.Context, organizerID string, year, month int) ([]*model.Conference, error) {
	return r.queryConferences(ctx,
		`SELECT `+conferenceColumns+` FROM conferences
		 WHERE organizer_id = $1
		   AND start_date IS NOT NULL
		   AND EXTRACT(YEAR FROM start_date) = $2
		   AND EXTRACT(MONTH FROM start_date) = $3
		 ORDER BY start_date ASC`,
		organizerID, year, month,
	)
}

// QueryPlan はコンパイル済みクエリプランを実行する。
func (r *PostgresConferenceRepo) QueryPlan(ctx context.Context, plan *query.Plan) ([]*model.Conference, error) {
	q := `SELECT ` + conferenceColumns + ` FROM conferences`
	conds, args := planToSQL(plan, 1)
	if len(conds) > 0 {
		q += ` WHERE ` + strings.Join(conds, " AND ")
	}
	q += ` ORDER BY ` + planOrderBy(plan)
	return r.queryConferences(ctx, q, args...)
}

// ListLowSeats は空席数が 0 < seats_available <= threshold のカンファレンス一覧を返す。
func (r *PostgresConferenceRepo) ListLowSeats(ctx context.Context, threshold int) ([]*model.Conference, error) {
	return r.queryConferences(ctx,
		`SELECT `+conferenceColumns+` FROM conferences
		 WHERE seats_available > 0 AND seats_available <= $1
		 ORDER BY name ASC`,
		threshold,
	)
}

// compile-time interface check
var _ ConferenceRepository = (*PostgresConferenceRepo)(nil)
