// Package mailer は通知メールの送信を提供する。
package mailer

import (
	"context"
	"log/slog"
)

// Mailer は通知メール送信のインターフェース。
type Mailer interface {
	// SendConferenceConfirmation はカンファレンス作成の確認メールを送信する。
	SendConferenceConfirmation(ctx context.Context, to, conferenceName string) error
}

// LogMailer は実際には送信せず構造化ログに記録するMailer実装。
// メール基盤が構成されるまでの既定実装。
type LogMailer struct{}

// NewLogMailer はLogMailerを生成する。
func NewLogMailer() *LogMailer {
	return &LogMailer{}
}

// SendConferenceConfirmation は確認メールの内容をログに記録する。
func (m *LogMailer) SendConferenceConfirmation(ctx context.Context, to, conferenceName string) error {
	slog.Info("カンファレンス作成の確認メールを送信します",
		"to", to, "conference", conferenceName)
	return nil
}

// compile-time interface check
var _ Mailer = (*LogMailer)(nil)
