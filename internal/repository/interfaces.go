// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/hitoshi/confman/internal/model"
	"github.com/hitoshi/confman/internal/query"
)

// ProfileRepository はプロフィールデータの永続化インターフェース。
type ProfileRepository interface {
	// FindByID は指定IDのプロフィールを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Profile, error)

	// CreateWithIdentity はプロフィールとidentityを同一トランザクションで作成する。
	CreateWithIdentity(ctx context.Context, profile *model.Profile, identity *model.Identity) error

	// Update はプロフィールの表示名・Tシャツサイズを更新する。
	// 参加予定・ウィッシュリストはLedgerStore経由でのみ更新する。
	Update(ctx context.Context, profile *model.Profile) error

	// ListByConferenceKey は指定カンファレンスキーを参加予定に含む
	// プロフィールの一覧を返す。
	ListByConferenceKey(ctx context.Context, conferenceKey string) ([]*model.Profile, error)

	// ListByIDs は指定ID群のプロフィールを返す。順序は保証しない。
	ListByIDs(ctx context.Context, ids []string) ([]*model.Profile, error)
}

// IdentityRepository は外部IdP紐付け情報の永続化インターフェース。
type IdentityRepository interface {
	// FindByProviderAndProviderUserID はproviderとprovider_user_idでidentityを検索する。
	// 見つからない場合はnilを返す。
	FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error)
}

// LoginSessionRepository はログインセッションの永続化インターフェース。
type LoginSessionRepository interface {
	// Create はログインセッションを作成する。
	Create(ctx context.Context, session *model.LoginSession) error
	// FindByID は指定IDのログインセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.LoginSession, error)
	// DeleteByID は指定IDのログインセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteExpired は期限切れのログインセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// ConferenceRepository はカンファレンスデータの永続化インターフェース。
type ConferenceRepository interface {
	// FindByID は指定IDのカンファレンスを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Conference, error)

	// Create はカンファレンスを作成する。
	Create(ctx context.Context, conf *model.Conference) error

	// Update はカンファレンスを更新する。
	// seats_availableはLedgerStore経由でのみ更新する。
	Update(ctx context.Context, conf *model.Conference) error

	// ListByOrganizer は指定プロフィールが主催するカンファレンス一覧を返す。
	ListByOrganizer(ctx context.Context, organizerID string) ([]*model.Conference, error)

	// ListByIDs は指定ID群のカンファレンスを返す。順序は保証しない。
	ListByIDs(ctx context.Context, ids []string) ([]*model.Conference, error)

	// ListByOrganizerAndMonth は指定主催者のカンファレンスのうち、
	// 指定年月に開始するものを返す。
	ListByOrganizerAndMonth(ctx context.Context, organizerID string, year, month int) ([]*model.Conference, error)

	// QueryPlan はコンパイル済みクエリプランを実行する。
	QueryPlan(ctx context.Context, plan *query.Plan) ([]*model.Conference, error)

	// ListLowSeats は空席数が 0 < seats_available <= threshold の
	// カンファレンス一覧を返す。
	ListLowSeats(ctx context.Context, threshold int) ([]*model.Conference, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// FindByID は指定IDのセッションを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)

	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error

	// ListByConference は指定カンファレンスの全セッションを返す。
	ListByConference(ctx context.Context, conferenceID string) ([]*model.Session, error)

	// ListByConferenceAndType は指定カンファレンスの指定タイプの
	// セッションを返す。
	ListByConferenceAndType(ctx context.Context, conferenceID, typeOfSession string) ([]*model.Session, error)

	// ListBySpeaker は指定スピーカーの全セッションを返す（カンファレンス横断）。
	ListBySpeaker(ctx context.Context, speakerID string) ([]*model.Session, error)

	// ListByIDs は指定ID群のセッションを返す。順序は保証しない。
	ListByIDs(ctx context.Context, ids []string) ([]*model.Session, error)

	// ListEarlyNonMatching は開始時刻がbefore未満かつタイプがexcludeType
	// 以外のセッションを返す。
	ListEarlyNonMatching(ctx context.Context, before time.Time, excludeType string) ([]*model.Session, error)

	// ListByDateWindow は開催日が[from, to]（両端含む）のセッションを返す。
	ListByDateWindow(ctx context.Context, from, to time.Time) ([]*model.Session, error)

	// CountBySpeakerAndConference は指定カンファレンス内で指定スピーカーが
	// 担当するセッション数を返す。
	CountBySpeakerAndConference(ctx context.Context, speakerID, conferenceID string) (int, error)

	// QueryPlan はコンパイル済みクエリプランを実行する。
	QueryPlan(ctx context.Context, plan *query.Plan) ([]*model.Session, error)
}

// SpeakerRepository はスピーカーデータの永続化インターフェース。
type SpeakerRepository interface {
	// FindByID は指定IDのスピーカーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Speaker, error)

	// Create はスピーカーを作成する。
	Create(ctx context.Context, speaker *model.Speaker) error

	// AppendSessionRef はスピーカーのセッション参照一覧にrefを追記する。
	// 既に含まれている場合は何もしない。
	AppendSessionRef(ctx context.Context, speakerID, ref string) error

	// ListAll は全スピーカーを名前順で返す。
	ListAll(ctx context.Context) ([]*model.Speaker, error)
}

// TxBeginner はトランザクション開始用のインターフェース。
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}
