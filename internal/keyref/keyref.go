// Package keyref はエンティティの外部参照キーを扱う。
// 参照キーは "種別/ID" をbase64url（パディングなし）でエンコードした
// 不透明な文字列で、URLにそのまま埋め込める。
package keyref

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// エンティティ種別
const (
	KindConference = "Conference"
	KindSession    = "Session"
	KindSpeaker    = "Speaker"
	KindProfile    = "Profile"
)

// ErrInvalidRef は参照キーとして解釈できない文字列を示す。
var ErrInvalidRef = errors.New("invalid reference key")

// ErrKindMismatch は参照キーの種別が期待と異なることを示す。
var ErrKindMismatch = errors.New("reference key kind mismatch")

// Encode は種別とIDから外部参照キーを生成する。
func Encode(kind, id string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(kind + "/" + id))
}

// Decode は外部参照キーを種別とIDに復元する。
// デコード不能・形式不正の場合はErrInvalidRefを返す。
func Decode(ref string) (kind, id string, err error) {
	raw, err := base64.RawURLEncoding.DecodeString(ref)
	if err != nil {
		return "", "", fmt.Errorf("%w: %s", ErrInvalidRef, ref)
	}
	parts := strings.SplitN(string(raw), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%w: %s", ErrInvalidRef, ref)
	}
	return parts[0], parts[1], nil
}

// DecodeAs は外部参照キーを復元し、種別がwantKindであることを検証する。
// 種別不一致はErrKindMismatchを返す。呼び出し側はこれを
// 「該当エンティティなし」として扱う（不正キーで内部構造を推測させない）。
func DecodeAs(ref, wantKind string) (string, error) {
	kind, id, err := Decode(ref)
	if err != nil {
		return "", err
	}
	if kind != wantKind {
		return "", fmt.Errorf("%w: got %s, want %s", ErrKindMismatch, kind, wantKind)
	}
	return id, nil
}
