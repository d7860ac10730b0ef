package model

import "time"

// TeeShirtSize はTシャツサイズの列挙値。
type TeeShirtSize string

// Tシャツサイズの定義済み値
const (
	TeeShirtNotSpecified TeeShirtSize = "NOT_SPECIFIED"
)

// teeShirtSizes は受け付けるTシャツサイズの一覧。
var teeShirtSizes = map[TeeShirtSize]bool{
	TeeShirtNotSpecified: true,
	"XS_M":               true,
	"XS_W":               true,
	"S_M":                true,
	"S_W":                true,
	"M_M":                true,
	"M_W":                true,
	"L_M":                true,
	"L_W":                true,
	"XL_M":               true,
	"XL_W":               true,
	"XXL_M":              true,
	"XXL_W":              true,
	"XXXL_M":             true,
	"XXXL_W":             true,
}

// ValidTeeShirtSize は指定値が定義済みのTシャツサイズかを返す。
func ValidTeeShirtSize(s TeeShirtSize) bool {
	return teeShirtSizes[s]
}

// Profile は利用者プロフィールを表す。ID = ユーザーID。
// ConferenceKeysToAttendとWishlistOfSessionKeysは
// ledgerサービスのアトミックな操作の中でのみ変更される。
type Profile struct {
	ID                     string
	DisplayName            string
	MainEmail              string
	TeeShirtSize           TeeShirtSize
	ConferenceKeysToAttend RefSet
	WishlistOfSessionKeys  RefSet
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// Identity は外部IdPとの紐付け情報を表す。
// 将来的に複数のIdP（Google, GitHub等）に対応可能な構造。
type Identity struct {
	ID             string
	ProfileID      string
	Provider       string
	ProviderUserID string
	CreatedAt      time.Time
}

// LoginSession はユーザーのログインセッションを表す。
type LoginSession struct {
	ID        string
	ProfileID string
	ExpiresAt time.Time
	CreatedAt time.Time
}
