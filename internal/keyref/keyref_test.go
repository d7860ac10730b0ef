package keyref

import (
	"errors"
	"testing"
)

// TestEncodeDecode はエンコードしたキーが元の種別とIDに復元できることを検証する。
func TestEncodeDecode(t *testing.T) {
	ref := Encode(KindConference, "abc-123")

	kind, id, err := Decode(ref)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if kind != KindConference || id != "abc-123" {
		t.Errorf("Decode() = (%s, %s), want (%s, %s)", kind, id, KindConference, "abc-123")
	}
}

// TestDecode_Invalid は解釈できない参照キーがErrInvalidRefになることを検証する。
func TestDecode_Invalid(t *testing.T) {
	tests := []struct {
		name string
		ref  string
	}{
		{name: "空文字", ref: ""},
		{name: "base64として不正", ref: "!!!not-base64!!!"},
		{name: "区切りなし", ref: Encode("", "")}, // "/"のみ
		{name: "種別が空", ref: Encode("", "abc")},
		{name: "IDが空", ref: Encode(KindSession, "")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Decode(tt.ref)
			if !errors.Is(err, ErrInvalidRef) {
				t.Errorf("Decode(%q) error = %v, want ErrInvalidRef", tt.ref, err)
			}
		})
	}
}

// TestDecodeAs_KindMismatch は種別違いのキーがErrKindMismatchになることを検証する。
func TestDecodeAs_KindMismatch(t *testing.T) {
	ref := Encode(KindSpeaker, "sp-1")

	_, err := DecodeAs(ref, KindConference)
	if !errors.Is(err, ErrKindMismatch) {
		t.Errorf("DecodeAs() error = %v, want ErrKindMismatch", err)
	}
}

// TestDecodeAs はキーの種別が一致する場合にIDを返すことを検証する。
func TestDecodeAs(t *testing.T) {
	ref := Encode(KindSession, "sess-42")

	id, err := DecodeAs(ref, KindSession)
	if err != nil {
		t.Fatalf("DecodeAs() error = %v", err)
	}
	if id != "sess-42" {
		t.Errorf("DecodeAs() = %s, want sess-42", id)
	}
}
