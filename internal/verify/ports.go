package verify

import "context"

// Messenger is the chat-platform message surface the verification core
// depends on. Implementations wrap the platform client; tests use fakes.
type Messenger interface {
	// SendDirect delivers a private notice to the user.
	SendDirect(ctx context.Context, userID, text string) error
	// SetNickname renames the user within one community.
	SetNickname(ctx context.Context, communityID, userID, nick string) error
	// CommunityName resolves the display name used in notices.
	CommunityName(ctx context.Context, communityID string) (string, error)
	// UserName resolves the user's base name for nickname composition.
	UserName(ctx context.Context, communityID, userID string) (string, error)
}

// EmailSender is the outbound email transport. Failure is surfaced as an
// error; timeouts are the transport's responsibility.
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}
