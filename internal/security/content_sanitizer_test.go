package security

import (
	"strings"
	"testing"
)

// TestSanitize_AllowedTags は許可タグが正しく通過することを検証する。
func TestSanitize_AllowedTags(t *testing.T) {
	sanitizer := NewContentSanitizer()

	tests := []struct {
		name         string
		input        string
		wantContains []string
	}{
		{
			name:         "pタグが許可される",
			input:        "<p>基調講演の概要</p>",
			wantContains: []string{"<p>基調講演の概要</p>"},
		},
		{
			name:         "brタグが許可される",
			input:        "1日目<br>2日目",
			wantContains: []string{"<br>", "1日目", "2日目"},
		},
		{
			name:         "aタグが許可される",
			input:        `<a href="https://example.com">公式サイト</a>`,
			wantContains: []string{"<a", "href", "https://example.com", "公式サイト", "</a>"},
		},
		{
			name:         "リストタグが許可される",
			input:        "<ul><li>Go</li><li>分散システム</li></ul>",
			wantContains: []string{"<ul>", "<li>Go</li>", "<li>分散システム</li>", "</ul>"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizer.Sanitize(tt.input)
			for _, want := range tt.wantContains {
				if !strings.Contains(got, want) {
					t.Errorf("Sanitize(%q) = %q, want containing %q", tt.input, got, want)
				}
			}
		})
	}
}

// TestSanitize_RemovesDangerousContent は危険なタグ・属性の除去を検証する。
func TestSanitize_RemovesDangerousContent(t *testing.T) {
	sanitizer := NewContentSanitizer()

	tests := []struct {
		name        string
		input       string
		wantAbsent  []string
		wantPresent []string
	}{
		{
			name:        "scriptタグが除去される",
			input:       `<p>概要</p><script>alert("x")</script>`,
			wantAbsent:  []string{"<script>", "alert"},
			wantPresent: []string{"<p>概要</p>"},
		},
		{
			name:       "iframeタグが除去される",
			input:      `<iframe src="https://evil.example"></iframe>`,
			wantAbsent: []string{"<iframe"},
		},
		{
			name:        "onclickイベント属性が除去される",
			input:       `<p onclick="steal()">案内</p>`,
			wantAbsent:  []string{"onclick"},
			wantPresent: []string{"案内"},
		},
		{
			name:       "javascriptスキームのリンクが除去される",
			input:      `<a href="javascript:alert(1)">リンク</a>`,
			wantAbsent: []string{"javascript:"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizer.Sanitize(tt.input)
			for _, absent := range tt.wantAbsent {
				if strings.Contains(got, absent) {
					t.Errorf("Sanitize(%q) = %q, must not contain %q", tt.input, got, absent)
				}
			}
			for _, present := range tt.wantPresent {
				if !strings.Contains(got, present) {
					t.Errorf("Sanitize(%q) = %q, want containing %q", tt.input, got, present)
				}
			}
		})
	}
}

// TestSanitize_Idempotent は同一入力に対する冪等性を検証する。
func TestSanitize_Idempotent(t *testing.T) {
	sanitizer := NewContentSanitizer()
	input := `<p>概要</p><script>x()</script><ul><li>Go</li></ul>`

	first := sanitizer.Sanitize(input)
	second := sanitizer.Sanitize(first)
	if first != second {
		t.Errorf("Sanitize is not idempotent: first = %q, second = %q", first, second)
	}
}
