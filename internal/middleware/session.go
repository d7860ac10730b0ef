// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hitoshi/confman/internal/model"
)

const sessionCookieName = "session_id"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// profileIDContextKey はリクエストコンテキストにプロフィールIDを格納するためのキー。
var profileIDContextKey = contextKey("profile_id")

// LoginSessionFinder はログインセッションの検索に必要なインターフェース。
// repository.LoginSessionRepositoryの部分集合として定義する。
type LoginSessionFinder interface {
	FindByID(ctx context.Context, id string) (*model.LoginSession, error)
}

// NewSessionMiddleware はHTTP Only Cookieからログインセッションを読み取り、
// 有効性を検証するミドルウェアを返す。
// 認証済みプロフィールIDをリクエストコンテキストに注入する。
// 未認証リクエストには401 Unauthorizedを返す。
func NewSessionMiddleware(sessionFinder LoginSessionFinder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(sessionCookieName)
			if err != nil || cookie.Value == "" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			session, err := sessionFinder.FindByID(r.Context(), cookie.Value)
			if err != nil {
				slog.Error("failed to find login session",
					slog.String("error", err.Error()),
				)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if session == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), profileIDContextKey, session.ProfileID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ProfileIDFromContext はリクエストコンテキストからプロフィールIDを取得する。
// セッションミドルウェアを通過したリクエストでのみ有効。
func ProfileIDFromContext(ctx context.Context) (string, error) {
	profileID, ok := ctx.Value(profileIDContextKey).(string)
	if !ok || profileID == "" {
		return "", fmt.Errorf("profile ID not found in context")
	}
	return profileID, nil
}

// ContextWithProfileID はコンテキストにプロフィールIDを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithProfileID(ctx context.Context, profileID string) context.Context {
	return context.WithValue(ctx, profileIDContextKey, profileID)
}
