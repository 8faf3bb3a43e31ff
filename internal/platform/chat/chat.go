// Package chat provides a logging Messenger for running the core without a
// chat-platform connection. Real deployments plug a platform adapter that
// satisfies verify.Messenger and roles.RoleRegistry.
package chat

import (
	"context"
	"log/slog"
)

// LogMessenger records outbound messages instead of delivering them.
type LogMessenger struct {
	Logger *slog.Logger
}

func (m LogMessenger) SendDirect(ctx context.Context, userID, text string) error {
	m.Logger.InfoContext(ctx, "direct message (log only)", "user_id", userID, "text", text)
	return nil
}

func (m LogMessenger) SetNickname(ctx context.Context, communityID, userID, nick string) error {
	m.Logger.InfoContext(ctx, "nickname update (log only)",
		"community_id", communityID, "user_id", userID, "nick", nick)
	return nil
}

func (m LogMessenger) CommunityName(_ context.Context, communityID string) (string, error) {
	return communityID, nil
}

func (m LogMessenger) UserName(_ context.Context, _ string, userID string) (string, error) {
	return userID, nil
}
