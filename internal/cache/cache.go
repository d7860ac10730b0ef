// Package cache は告知・注目スピーカーなど短命データのキー値ストアを提供する。
package cache

import (
	"context"
	"time"
)

// Store はキー値ストアのインターフェース。
// ttlが0の場合は無期限に保持する。
type Store interface {
	// Get は指定キーの値を返す。キーが存在しない（または期限切れ）の場合は
	// 第2戻り値がfalseになる。
	Get(ctx context.Context, key string) (string, bool, error)

	// Set は指定キーに値を保存する。
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Delete は指定キーを削除する。存在しないキーの削除はエラーにしない。
	Delete(ctx context.Context, key string) error
}
