// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, conflict, query, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidFilter           = "INVALID_FILTER"
	ErrCodeMultipleInequalityField = "MULTIPLE_INEQUALITY_FIELDS"
	ErrCodeConferenceNotFound      = "CONFERENCE_NOT_FOUND"
	ErrCodeSessionNotFound         = "SESSION_NOT_FOUND"
	ErrCodeSpeakerNotFound         = "SPEAKER_NOT_FOUND"
	ErrCodeProfileNotFound         = "PROFILE_NOT_FOUND"
	ErrCodeAlreadyRegistered       = "ALREADY_REGISTERED"
	ErrCodeNoSeatsAvailable        = "NO_SEATS_AVAILABLE"
	ErrCodeAlreadyInWishlist       = "ALREADY_IN_WISHLIST"
	ErrCodeTransientFailure        = "TRANSIENT_FAILURE"
	ErrCodeNotOrganizer            = "NOT_ORGANIZER"
	ErrCodeInvalidRequest          = "INVALID_REQUEST"
	ErrCodeNameRequired            = "NAME_REQUIRED"
	ErrCodeInvalidSpeakerContact   = "INVALID_SPEAKER_CONTACT"
	ErrCodeInvalidMonthYear        = "INVALID_MONTH_YEAR"
)

// NewInvalidFilterError は未知のフィールド名または演算子によるフィルタエラーを生成する。
func NewInvalidFilterError(field, operator string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidFilter,
		Message:  fmt.Sprintf("無効なフィルタです: field=%s operator=%s", field, operator),
		Category: "query",
		Action:   "フィールド名と演算子（EQ, GT, GTEQ, LT, LTEQ, NE）を確認してください。",
	}
}

// NewInvalidFilterValueError はフィルタ値が対象フィールドの型に合わない場合のエラーを生成する。
func NewInvalidFilterValueError(field, value string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidFilter,
		Message:  fmt.Sprintf("フィルタ値を解釈できません: field=%s value=%q", field, value),
		Category: "query",
		Action:   "日付はYYYY-MM-DD、時刻はHH:MM:SS、数値フィールドは整数で指定してください。",
	}
}

// NewMultipleInequalityFieldsError は複数フィールドへの不等式フィルタエラーを生成する。
// 日付フィールドへの等価フィルタは2つの不等式に書き換えられるため、不等式として扱われる。
func NewMultipleInequalityFieldsError(first, second string) *APIError {
	return &APIError{
		Code:     ErrCodeMultipleInequalityField,
		Message:  fmt.Sprintf("不等式フィルタは1つのフィールドにのみ使用できます: %s と %s", first, second),
		Category: "query",
		Action:   "不等式（および日付への等価）フィルタを1つのフィールドにまとめてください。",
	}
}

// NewConferenceNotFoundError はカンファレンス未検出エラーを生成する。
func NewConferenceNotFoundError(ref string) *APIError {
	return &APIError{
		Code:     ErrCodeConferenceNotFound,
		Message:  fmt.Sprintf("指定されたカンファレンスが見つかりません: %s", ref),
		Category: "validation",
		Action:   "カンファレンスキーを確認してください。",
	}
}

// NewSessionNotFoundError はセッション未検出エラーを生成する。
func NewSessionNotFoundError(ref string) *APIError {
	return &APIError{
		Code:     ErrCodeSessionNotFound,
		Message:  fmt.Sprintf("指定されたセッションが見つかりません: %s", ref),
		Category: "validation",
		Action:   "セッションキーを確認してください。",
	}
}

// NewSpeakerNotFoundError はスピーカー未検出エラーを生成する。
func NewSpeakerNotFoundError(ref string) *APIError {
	return &APIError{
		Code:     ErrCodeSpeakerNotFound,
		Message:  fmt.Sprintf("指定されたスピーカーが見つかりません: %s", ref),
		Category: "validation",
		Action:   "スピーカーキーを確認してください。",
	}
}

// NewProfileNotFoundError はプロフィール未検出エラーを生成する。
func NewProfileNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeProfileNotFound,
		Message:  "プロフィールが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewAlreadyRegisteredError は重複登録エラーを生成する。
func NewAlreadyRegisteredError() *APIError {
	return &APIError{
		Code:     ErrCodeAlreadyRegistered,
		Message:  "このカンファレンスには既に参加登録済みです。",
		Category: "conflict",
		Action:   "参加予定一覧から登録状況を確認してください。",
	}
}

// NewNoSeatsAvailableError は満席エラーを生成する。
func NewNoSeatsAvailableError() *APIError {
	return &APIError{
		Code:     ErrCodeNoSeatsAvailable,
		Message:  "このカンファレンスには空席がありません。",
		Category: "conflict",
		Action:   "キャンセルが出るまでお待ちいただくか、他のカンファレンスをご検討ください。",
	}
}

// NewAlreadyInWishlistError はウィッシュリスト重複エラーを生成する。
func NewAlreadyInWishlistError() *APIError {
	return &APIError{
		Code:     ErrCodeAlreadyInWishlist,
		Message:  "このセッションは既にウィッシュリストに追加済みです。",
		Category: "conflict",
		Action:   "ウィッシュリストを確認してください。",
	}
}

// NewTransientFailureError はコミット競合のリトライ上限到達エラーを生成する。
// 呼び出し側には部分的な効果は一切観測されない。
func NewTransientFailureError() *APIError {
	return &APIError{
		Code:     ErrCodeTransientFailure,
		Message:  "同時更新の競合により処理を完了できませんでした。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewNotOrganizerError は主催者以外による変更操作のエラーを生成する。
func NewNotOrganizerError() *APIError {
	return &APIError{
		Code:     ErrCodeNotOrganizer,
		Message:  "この操作はカンファレンスの主催者のみが実行できます。",
		Category: "auth",
		Action:   "主催者アカウントでログインしてください。",
	}
}

// NewInvalidRequestError はリクエスト形式の一般的なバリデーションエラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("リクエストが不正です: %s", reason),
		Category: "validation",
		Action:   "リクエスト内容を確認してください。",
	}
}

// NewNameRequiredError は必須のnameフィールド欠落エラーを生成する。
func NewNameRequiredError(kind string) *APIError {
	return &APIError{
		Code:     ErrCodeNameRequired,
		Message:  fmt.Sprintf("%s の name フィールドは必須です。", kind),
		Category: "validation",
		Action:   "name を指定してください。",
	}
}

// NewInvalidSpeakerContactError はスピーカーの連絡先バリデーションエラーを生成する。
func NewInvalidSpeakerContactError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidSpeakerContact,
		Message:  fmt.Sprintf("スピーカーの連絡先が不正です: %s", reason),
		Category: "validation",
		Action:   "電話番号は (+)(X)X-XXX-XXX-XXXX 形式、メールアドレスは有効な形式で指定してください。",
	}
}

// NewInvalidMonthYearError は空き時間照会の月・年バリデーションエラーを生成する。
func NewInvalidMonthYearError(month, year int) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidMonthYear,
		Message:  fmt.Sprintf("無効な月または年です: month=%d year=%d", month, year),
		Category: "validation",
		Action:   "月は1〜12、年は1〜2999の範囲で指定してください。",
	}
}
