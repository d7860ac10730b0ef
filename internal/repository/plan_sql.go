package repository

import (
	"fmt"
	"strings"
	"time"

	"github.com/hitoshi/confman/internal/query"
)

// planToSQL はクエリプランをWHERE句の条件列とバインド引数に変換する。
// 条件はプランの述語順のまま並べる。startIndexは最初のプレースホルダ番号。
func planToSQL(plan *query.Plan, startIndex int) (conds []string, args []any) {
	n := startIndex
	for _, p := range plan.Predicates {
		// 対応カラムを持たないフィールドへの条件は決して一致しない
		if p.Type == query.TypeUnmatched {
			conds = append(conds, "FALSE")
			continue
		}

		op := p.Operator
		if op == "!=" {
			op = "<>"
		}

		value := p.Value
		if p.Type == query.TypeTime {
			value = p.Value.(time.Time).Format("15:04:05")
		}

		if p.Type == query.TypeStringList {
			// 配列カラムは「いずれかの要素が条件を満たす」比較。
			// ANY(col) は値を左辺に取るため演算子の向きを反転する。
			conds = append(conds, fmt.Sprintf("$%d %s ANY(%s)", n, flipOperator(op), p.Column))
		} else {
			conds = append(conds, fmt.Sprintf("%s %s $%d", p.Column, op, n))
		}
		args = append(args, value)
		n++
	}
	return conds, args
}

// flipOperator は比較の左右を入れ替えたときの演算子を返す。
func flipOperator(op string) string {
	switch op {
	case ">":
		return "<"
	case ">=":
		return "<="
	case "<":
		return ">"
	case "<=":
		return ">="
	default:
		return op // = と <> は対称
	}
}

// planOrderBy はプランのソート指定をORDER BY句に変換する。
func planOrderBy(plan *query.Plan) string {
	if len(plan.OrderBy) == 0 {
		return "name ASC"
	}
	cols := make([]string, len(plan.OrderBy))
	for i, c := range plan.OrderBy {
		cols[i] = c + " ASC"
	}
	return strings.Join(cols, ", ")
}
