package mail

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"portal_server/core/domain"
	"portal_server/core/port/out"
	"portal_server/core/service/auth"
	"portal_server/pkg/apperr"
	"portal_server/pkg/httputil"
	"portal_server/pkg/logger"
	"portal_server/pkg/resilience"

	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"
)

const (
	previewConcurrency = 5
	defaultCallTimeout = 30 * time.Second
)

// TokenSourceProvider yields a Gmail token source for a portal user.
type TokenSourceProvider interface {
	TokenSource(ctx context.Context, email string) (oauth2.TokenSource, error)
}

// Service serves the Gmail tile: unread counts, previews, message detail and actions.
type Service struct {
	tokens     TokenSourceProvider
	provider   out.MailProvider
	maxPreview int
}

func NewService(tokens TokenSourceProvider, provider out.MailProvider, maxPreview int) *Service {
	if maxPreview < 0 {
		maxPreview = 0
	}
	return &Service{tokens: tokens, provider: provider, maxPreview: maxPreview}
}

// UnreadCount returns the estimated number of unread inbox messages.
func (s *Service) UnreadCount(ctx context.Context, email string) (int64, error) {
	ctx, cancel := withDeadline(ctx)
	defer cancel()

	ts, err := s.tokens.TokenSource(ctx, email)
	if err != nil {
		return 0, err
	}
	n, err := s.provider.UnreadCount(ctx, ts)
	if err != nil {
		return 0, s.wrap(err, "unread", email)
	}
	return n, nil
}

// Preview lists unread inbox messages up to the configured limit. Messages
// whose metadata cannot be fetched are skipped.
func (s *Service) Preview(ctx context.Context, email string) ([]domain.MessageSummary, error) {
	ctx, cancel := withDeadline(ctx)
	defer cancel()

	ts, err := s.tokens.TokenSource(ctx, email)
	if err != nil {
		return nil, err
	}

	ids, err := s.provider.ListUnreadIDs(ctx, ts, s.maxPreview)
	if err != nil {
		return nil, s.wrap(err, "preview.list", email)
	}
	if s.maxPreview > 0 && len(ids) > s.maxPreview {
		ids = ids[:s.maxPreview]
	}
	if len(ids) == 0 {
		return []domain.MessageSummary{}, nil
	}

	results := make([]*domain.MessageSummary, len(ids))
	var (
		mu      sync.Mutex
		skipped int
		revoked error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(previewConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			summary, err := s.provider.GetSummary(gctx, ts, id)
			if err != nil {
				mu.Lock()
				skipped++
				if revoked == nil && auth.IsRevokedGrant(err) {
					revoked = err
				}
				mu.Unlock()
				return nil
			}
			results[i] = summary
			return nil
		})
	}
	_ = g.Wait()

	if revoked != nil {
		return nil, s.wrap(revoked, "preview.get", email)
	}
	if skipped > 0 {
		logger.WithFields(map[string]any{"user": email, "skipped": skipped, "total": len(ids)}).
			Warn("[Gmail] preview skipped messages that failed to load")
	}

	messages := make([]domain.MessageSummary, 0, len(ids))
	for _, m := range results {
		if m != nil {
			messages = append(messages, *m)
		}
	}
	return messages, nil
}

// Message returns the full view of one message. Body falls back to the snippet.
func (s *Service) Message(ctx context.Context, email, id string) (*domain.MessageDetail, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperr.MissingField("id")
	}
	ctx, cancel := withDeadline(ctx)
	defer cancel()

	ts, err := s.tokens.TokenSource(ctx, email)
	if err != nil {
		return nil, err
	}
	msg, err := s.provider.GetMessage(ctx, ts, id)
	if err != nil {
		return nil, s.wrap(err, "message", email)
	}
	if msg.Attachments == nil {
		msg.Attachments = []domain.Attachment{}
	}
	return msg, nil
}

// Attachment downloads one attachment. name and mimeType come from the client's
// earlier listing and are sanitized here.
func (s *Service) Attachment(ctx context.Context, email, messageID, attachmentID, name, mimeType string) (*domain.AttachmentContent, error) {
	if messageID == "" || attachmentID == "" {
		return nil, apperr.BadRequest("message id and attachment id are required")
	}
	ctx, cancel := withDeadline(ctx)
	defer cancel()

	ts, err := s.tokens.TokenSource(ctx, email)
	if err != nil {
		return nil, err
	}
	data, err := s.provider.GetAttachment(ctx, ts, messageID, attachmentID)
	if err != nil {
		return nil, s.wrap(err, "attachment", email)
	}

	if !httputil.IsMediaType(mimeType) {
		mimeType = "application/octet-stream"
	}
	return &domain.AttachmentContent{
		Data:     data,
		Filename: httputil.SanitizeFilename(name),
		MimeType: mimeType,
	}, nil
}

// MarkRead removes the UNREAD label.
func (s *Service) MarkRead(ctx context.Context, email, id string) error {
	return s.action(ctx, email, id, "read", s.provider.MarkRead)
}

// Trash moves the message to trash.
func (s *Service) Trash(ctx context.Context, email, id string) error {
	return s.action(ctx, email, id, "trash", s.provider.Trash)
}

func (s *Service) action(ctx context.Context, email, id, op string, fn func(context.Context, oauth2.TokenSource, string) error) error {
	if strings.TrimSpace(id) == "" {
		return apperr.MissingField("id")
	}
	ctx, cancel := withDeadline(ctx)
	defer cancel()

	ts, err := s.tokens.TokenSource(ctx, email)
	if err != nil {
		return err
	}
	if err := fn(ctx, ts, id); err != nil {
		return s.wrap(err, op, email)
	}
	logger.WithFields(map[string]any{"user": email, "message_id": id}).Info("[Gmail] %s", op)
	return nil
}

// wrap maps provider errors onto the application taxonomy and logs them.
func (s *Service) wrap(err error, op, email string) error {
	log := logger.WithError(err).WithFields(map[string]any{"user": email, "operation": "gmail." + op})
	switch {
	case apperr.IsAppError(err):
		return err
	case auth.IsRevokedGrant(err):
		log.Warn("[Gmail] grant revoked, reconnect required")
		return apperr.ReconnectRequired(err)
	case errors.Is(err, out.ErrNotFound):
		return apperr.NotFound("message")
	case errors.Is(err, resilience.ErrCircuitOpen):
		log.Warn("[Gmail] circuit open")
		return apperr.ServiceUnavailable("gmail", err)
	case errors.Is(err, context.DeadlineExceeded):
		log.Error("[Gmail] timed out")
		return apperr.ServiceUnavailable("gmail", err)
	default:
		log.Error("[Gmail] call failed")
		return apperr.ExternalError("gmail", err)
	}
}

func withDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, defaultCallTimeout)
}
