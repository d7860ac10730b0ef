package query

import (
	"fmt"
	"strconv"
	"time"

	"github.com/hitoshi/confman/internal/keyref"
	"github.com/hitoshi/confman/internal/model"
)

// Filter はクライアントから受け取る1つのフィルタ条件。
type Filter struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    string `json:"value"`
}

// Compiler はフィルタ列をクエリプランへコンパイルする。
// singleInequality が有効な場合、不等式フィルタを複数の異なる
// フィールドに適用しようとするとエラーになる。
type Compiler struct {
	fields           map[string]FieldDef
	singleInequality bool
	maxFilters       int
}

// NewCompiler は指定のフィールドカタログを使うCompilerを生成する。
func NewCompiler(fields map[string]FieldDef, singleInequality bool, maxFilters int) *Compiler {
	return &Compiler{
		fields:           fields,
		singleInequality: singleInequality,
		maxFilters:       maxFilters,
	}
}

// Compile はフィルタ列を検証・変換してクエリプランを返す。
//
//   - 未知のフィールド名・演算子はエラー
//   - 値はフィールド型に従って解釈し、失敗したらエラー
//   - 日付フィールドへのEQは [>= 当日, < 翌日] の対に書き換える
//     （書き換え後の条件も不等式として数える）
//   - 条件の並び順は入力順を保持する
func (c *Compiler) Compile(filters []Filter) (*Plan, error) {
	if len(filters) > c.maxFilters {
		return nil, model.NewInvalidRequestError(
			fmt.Sprintf("フィルタ数が上限(%d)を超えています", c.maxFilters))
	}

	plan := &Plan{}
	inequalityField := ""

	for _, f := range filters {
		def, ok := c.fields[f.Field]
		if !ok {
			return nil, model.NewInvalidFilterError(f.Field, f.Operator)
		}
		op, ok := Operators[f.Operator]
		if !ok {
			return nil, model.NewInvalidFilterError(f.Field, f.Operator)
		}

		value, err := parseValue(def.Type, f.Value)
		if err != nil {
			return nil, model.NewInvalidFilterValueError(f.Field, f.Value)
		}

		// 日付EQは当日全体を覆う半開区間に書き換える
		if def.Type == TypeDate && op == "=" {
			day := value.(time.Time)
			if c.singleInequality && inequalityField != "" && inequalityField != f.Field {
				return nil, model.NewMultipleInequalityFieldsError(inequalityField, f.Field)
			}
			if inequalityField == "" {
				inequalityField = f.Field
				plan.InequalityColumn = def.Column
			}
			plan.Predicates = append(plan.Predicates,
				Predicate{Column: def.Column, Type: def.Type, Operator: ">=", Value: day},
				Predicate{Column: def.Column, Type: def.Type, Operator: "<", Value: day.AddDate(0, 0, 1)},
			)
			continue
		}

		if op != "=" {
			if c.singleInequality && inequalityField != "" && inequalityField != f.Field {
				return nil, model.NewMultipleInequalityFieldsError(inequalityField, f.Field)
			}
			if inequalityField == "" {
				inequalityField = f.Field
				plan.InequalityColumn = def.Column
			}
		}

		plan.Predicates = append(plan.Predicates,
			Predicate{Column: def.Column, Type: def.Type, Operator: op, Value: value})
	}

	// 不等式カラムを第一ソートキーに、次いで名前順
	if plan.InequalityColumn != "" && plan.InequalityColumn != "name" {
		plan.OrderBy = []string{plan.InequalityColumn, "name"}
	} else {
		plan.OrderBy = []string{"name"}
	}

	return plan, nil
}

// parseValue はフィールド型に従ってフィルタ値を解釈する。
func parseValue(t FieldType, raw string) (any, error) {
	switch t {
	case TypeInt:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, err
		}
		return n, nil
	case TypeDate:
		d, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return nil, err
		}
		return d, nil
	case TypeTime:
		tm, err := time.Parse("15:04:05", raw)
		if err != nil {
			return nil, err
		}
		return tm, nil
	case TypeSpeakerRef:
		// カラムには内部IDが入っているため、外部参照キーを解決して比較する
		id, err := keyref.DecodeAs(raw, keyref.KindSpeaker)
		if err != nil {
			return nil, err
		}
		return id, nil
	default:
		return raw, nil
	}
}
