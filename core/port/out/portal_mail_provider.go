package out

import (
	"context"

	"portal_server/core/domain"

	"golang.org/x/oauth2"
)

// MailProvider is the Gmail API surface the portal uses. Every call runs with
// the caller's token source so refreshed tokens can be persisted.
type MailProvider interface {
	ProfileEmail(ctx context.Context, ts oauth2.TokenSource) (string, error)
	UnreadCount(ctx context.Context, ts oauth2.TokenSource) (int64, error)
	// ListUnreadIDs pages through unread inbox ids. limit <= 0 means no limit.
	ListUnreadIDs(ctx context.Context, ts oauth2.TokenSource, limit int) ([]string, error)
	GetSummary(ctx context.Context, ts oauth2.TokenSource, id string) (*domain.MessageSummary, error)
	GetMessage(ctx context.Context, ts oauth2.TokenSource, id string) (*domain.MessageDetail, error)
	GetAttachment(ctx context.Context, ts oauth2.TokenSource, messageID, attachmentID string) ([]byte, error)
	MarkRead(ctx context.Context, ts oauth2.TokenSource, id string) error
	Trash(ctx context.Context, ts oauth2.TokenSource, id string) error
}
