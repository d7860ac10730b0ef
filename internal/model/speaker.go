package model

import "time"

// Speaker はスピーカーを表す。
// SessionRefsはこのスピーカーが担当するセッションの外部参照キーの一覧で、
// セッション作成時に追記されるのみ（削除されない）。
type Speaker struct {
	ID          string
	Name        string
	Phones      []string
	Emails      []string
	Website     string
	Company     string
	SessionRefs RefSet
	CreatedAt   time.Time
}
