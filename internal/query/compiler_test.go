package query

import (
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/confman/internal/keyref"
	"github.com/hitoshi/confman/internal/model"
)

func newTestCompiler() *Compiler {
	return NewCompiler(ConferenceFields, true, 20)
}

func TestCompile_PreservesFilterOrder(t *testing.T) {
	c := newTestCompiler()

	plan, err := c.Compile([]Filter{
		{Field: "CITY", Operator: "EQ", Value: "London"},
		{Field: "TOPIC", Operator: "EQ", Value: "Medical Innovations"},
		{Field: "MONTH", Operator: "GT", Value: "6"},
	})
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	wantColumns := []string{"city", "topics", "month"}
	if len(plan.Predicates) != len(wantColumns) {
		t.Fatalf("len(Predicates) = %d, want %d", len(plan.Predicates), len(wantColumns))
	}
	for i, col := range wantColumns {
		if plan.Predicates[i].Column != col {
			t.Errorf("Predicates[%d].Column = %s, want %s", i, plan.Predicates[i].Column, col)
		}
	}
	if plan.InequalityColumn != "month" {
		t.Errorf("InequalityColumn = %s, want month", plan.InequalityColumn)
	}
	if len(plan.OrderBy) != 2 || plan.OrderBy[0] != "month" || plan.OrderBy[1] != "name" {
		t.Errorf("OrderBy = %v, want [month name]", plan.OrderBy)
	}
}

func TestCompile_MultipleInequalityFields(t *testing.T) {
	tests := []struct {
		name    string
		filters []Filter
		wantErr bool
	}{
		{
			name: "異なるフィールドへの不等式2つはエラー",
			filters: []Filter{
				{Field: "MONTH", Operator: "GT", Value: "6"},
				{Field: "MAX_ATTENDEES", Operator: "LT", Value: "100"},
			},
			wantErr: true,
		},
		{
			name: "同一フィールドへの不等式2つは許容",
			filters: []Filter{
				{Field: "MONTH", Operator: "GT", Value: "3"},
				{Field: "MONTH", Operator: "LT", Value: "9"},
			},
			wantErr: false,
		},
		{
			name: "不等式1つと等価の組み合わせは許容",
			filters: []Filter{
				{Field: "CITY", Operator: "EQ", Value: "Tokyo"},
				{Field: "MONTH", Operator: "GT", Value: "6"},
			},
			wantErr: false,
		},
		{
			name: "NEは不等式として数える",
			filters: []Filter{
				{Field: "CITY", Operator: "NE", Value: "Tokyo"},
				{Field: "MONTH", Operator: "GT", Value: "6"},
			},
			wantErr: true,
		},
		{
			name: "日付EQと別フィールドの不等式はエラー",
			filters: []Filter{
				{Field: "START_DATE", Operator: "EQ", Value: "2026-06-01"},
				{Field: "MONTH", Operator: "GT", Value: "3"},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestCompiler()
			_, err := c.Compile(tt.filters)
			if tt.wantErr {
				var apiErr *model.APIError
				if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeMultipleInequalityField {
					t.Errorf("Compile() error = %v, want code %s", err, model.ErrCodeMultipleInequalityField)
				}
				return
			}
			if err != nil {
				t.Errorf("Compile() error = %v, want nil", err)
			}
		})
	}
}

func TestCompile_DateEQRewrite(t *testing.T) {
	c := newTestCompiler()

	plan, err := c.Compile([]Filter{
		{Field: "START_DATE", Operator: "EQ", Value: "2026-06-15"},
	})
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if len(plan.Predicates) != 2 {
		t.Fatalf("len(Predicates) = %d, want 2", len(plan.Predicates))
	}

	day := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)
	p0, p1 := plan.Predicates[0], plan.Predicates[1]
	if p0.Operator != ">=" || !p0.Value.(time.Time).Equal(day) {
		t.Errorf("Predicates[0] = %s %v, want >= %v", p0.Operator, p0.Value, day)
	}
	next := day.AddDate(0, 0, 1)
	if p1.Operator != "<" || !p1.Value.(time.Time).Equal(next) {
		t.Errorf("Predicates[1] = %s %v, want < %v", p1.Operator, p1.Value, next)
	}
	if plan.InequalityColumn != "start_date" {
		t.Errorf("InequalityColumn = %s, want start_date", plan.InequalityColumn)
	}
}

func TestCompile_InvalidFilter(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
	}{
		{name: "未知のフィールド", filter: Filter{Field: "COLOR", Operator: "EQ", Value: "red"}},
		{name: "未知の演算子", filter: Filter{Field: "CITY", Operator: "LIKE", Value: "To%"}},
		{name: "整数フィールドに非数値", filter: Filter{Field: "MONTH", Operator: "EQ", Value: "June"}},
		{name: "日付フィールドに不正な日付", filter: Filter{Field: "START_DATE", Operator: "GT", Value: "someday"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestCompiler()
			_, err := c.Compile([]Filter{tt.filter})
			var apiErr *model.APIError
			if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeInvalidFilter {
				t.Errorf("Compile() error = %v, want code %s", err, model.ErrCodeInvalidFilter)
			}
		})
	}
}

// TestCompile_SpeakerRefResolution はスピーカーフィルタの外部参照キーが
// 内部IDに解決されることを検証する。
func TestCompile_SpeakerRefResolution(t *testing.T) {
	c := NewCompiler(SessionFields, true, 20)

	ref := keyref.Encode(keyref.KindSpeaker, "speaker-uuid-1")
	plan, err := c.Compile([]Filter{
		{Field: "SPEAKER", Operator: "EQ", Value: ref},
	})
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if len(plan.Predicates) != 1 {
		t.Fatalf("len(Predicates) = %d, want 1", len(plan.Predicates))
	}
	p := plan.Predicates[0]
	if p.Column != "speaker_id" {
		t.Errorf("Column = %s, want speaker_id", p.Column)
	}
	if p.Value != "speaker-uuid-1" {
		t.Errorf("Value = %v, want speaker-uuid-1", p.Value)
	}
}

// TestCompile_SpeakerRefInvalid は解決できないスピーカーキーが
// INVALID_FILTERになることを検証する。
func TestCompile_SpeakerRefInvalid(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{name: "base64として不正", value: "!!!not-a-ref!!!"},
		{name: "種別違いのキー", value: keyref.Encode(keyref.KindConference, "conf-1")},
		{name: "生のUUID", value: "speaker-uuid-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCompiler(SessionFields, true, 20)
			_, err := c.Compile([]Filter{
				{Field: "SPEAKER", Operator: "EQ", Value: tt.value},
			})
			var apiErr *model.APIError
			if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeInvalidFilter {
				t.Errorf("Compile() error = %v, want code %s", err, model.ErrCodeInvalidFilter)
			}
		})
	}
}

// TestCompile_ConferenceTypeOfSession はカンファレンス検索のTYPE_OF_SESSIONが
// 拒否されず、決して一致しない述語にコンパイルされることを検証する。
func TestCompile_ConferenceTypeOfSession(t *testing.T) {
	c := newTestCompiler()

	plan, err := c.Compile([]Filter{
		{Field: "TYPE_OF_SESSION", Operator: "EQ", Value: "Workshop"},
	})
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if len(plan.Predicates) != 1 {
		t.Fatalf("len(Predicates) = %d, want 1", len(plan.Predicates))
	}
	if plan.Predicates[0].Type != TypeUnmatched {
		t.Errorf("Type = %v, want TypeUnmatched", plan.Predicates[0].Type)
	}
}

func TestCompile_SingleInequalityDisabled(t *testing.T) {
	c := NewCompiler(ConferenceFields, false, 20)

	plan, err := c.Compile([]Filter{
		{Field: "MONTH", Operator: "GT", Value: "6"},
		{Field: "MAX_ATTENDEES", Operator: "LT", Value: "100"},
	})
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if len(plan.Predicates) != 2 {
		t.Errorf("len(Predicates) = %d, want 2", len(plan.Predicates))
	}
}
