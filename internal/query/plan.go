package query

// Predicate はクエリプラン内の1つの比較条件。
// Valueはフィールド型に応じてstring / int / time.Timeのいずれか。
type Predicate struct {
	Column   string
	Type     FieldType
	Operator string // "=", ">", ">=", "<", "<=", "!="
	Value    any
}

// Plan はコンパイル済みのクエリプラン。
// Predicatesは入力フィルタの順序を保持する（日付EQの書き換えで
// 生成された対は元のフィルタの位置に連続して並ぶ）。
type Plan struct {
	Predicates []Predicate
	// InequalityColumn は不等式条件が付いたカラム。なければ空。
	// ソート時はこのカラムを第一キーにする必要がある。
	InequalityColumn string
	// OrderBy はソートカラムの並び。InequalityColumnがあれば先頭に置く。
	OrderBy []string
}

// HasInequality は不等式条件を含むかを返す。
func (p *Plan) HasInequality() bool {
	return p.InequalityColumn != ""
}
