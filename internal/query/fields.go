// Package query はクライアント指定のフィルタ条件を
// 実行可能なクエリプランへ変換する。
package query

// FieldType はフィルタ対象フィールドの値型。
type FieldType int

// フィールド値型の定義
const (
	TypeString FieldType = iota
	TypeInt
	TypeDate       // "2006-01-02"
	TypeTime       // "15:04:05"
	TypeStringList // 文字列配列カラム（要素単位で比較）
	TypeSpeakerRef // スピーカーの外部参照キー（内部IDに解決して比較）
	TypeUnmatched  // 対応カラムがなく決して一致しないフィールド
)

// FieldDef はフィルタ名と格納カラムの対応を表す。
type FieldDef struct {
	Column string
	Type   FieldType
}

// ConferenceFields はカンファレンス検索で受け付けるフィルタ名の一覧。
// TYPE_OF_SESSIONはカンファレンスに対応カラムがないが、受け付けた上で
// 空の結果を返す（拒否はしない）。
var ConferenceFields = map[string]FieldDef{
	"NAME":            {Column: "name", Type: TypeString},
	"CITY":            {Column: "city", Type: TypeString},
	"TOPIC":           {Column: "topics", Type: TypeStringList},
	"MONTH":           {Column: "month", Type: TypeInt},
	"MAX_ATTENDEES":   {Column: "max_attendees", Type: TypeInt},
	"SEATS_AVAILABLE": {Column: "seats_available", Type: TypeInt},
	"START_DATE":      {Column: "start_date", Type: TypeDate},
	"END_DATE":        {Column: "end_date", Type: TypeDate},
	"TYPE_OF_SESSION": {Column: "", Type: TypeUnmatched},
}

// SessionFields はセッション検索で受け付けるフィルタ名の一覧。
var SessionFields = map[string]FieldDef{
	"NAME":            {Column: "name", Type: TypeString},
	"SPEAKER":         {Column: "speaker_id", Type: TypeSpeakerRef},
	"TYPE_OF_SESSION": {Column: "type_of_session", Type: TypeString},
	"DATE":            {Column: "date", Type: TypeDate},
	"START_TIME":      {Column: "start_time", Type: TypeTime},
	"END_TIME":        {Column: "end_time", Type: TypeTime},
	"LOCATION":        {Column: "location", Type: TypeString},
}

// Operators は受け付ける比較演算子の一覧。
var Operators = map[string]string{
	"EQ":   "=",
	"GT":   ">",
	"GTEQ": ">=",
	"LT":   "<",
	"LTEQ": "<=",
	"NE":   "!=",
}
