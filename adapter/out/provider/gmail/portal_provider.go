// Package gmail implements the portal's Gmail API adapter.
package gmail

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"portal_server/core/domain"
	"portal_server/core/port/out"
	"portal_server/pkg/crypto"
	"portal_server/pkg/httputil"
	"portal_server/pkg/resilience"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const (
	userID      = "me"
	labelInbox  = "INBOX"
	labelUnread = "UNREAD"
	queryUnread = "is:unread"
	maxPageSize = 100
)

var summaryHeaders = []string{"From", "Subject", "Date"}

// Provider implements out.MailProvider on the Gmail REST API.
type Provider struct {
	httpClient *http.Client
	endpoint   string
	cb         *resilience.Breaker
}

// Option customises a Provider.
type Option func(*Provider)

// WithHTTPClient sets the base client used under the OAuth transport.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) { p.httpClient = c }
}

// WithEndpoint overrides the Gmail API base URL.
func WithEndpoint(url string) Option {
	return func(p *Provider) { p.endpoint = url }
}

// NewProvider creates a Gmail provider guarded by the "gmail-api" breaker.
func NewProvider(opts ...Option) *Provider {
	settings := resilience.DefaultSettings("gmail-api")
	settings.IsFailure = isUpstreamFailure

	p := &Provider{cb: resilience.NewBreaker(settings)}
	for _, opt := range opts {
		opt(p)
	}
	if p.httpClient == nil {
		p.httpClient = httputil.NewClient(httputil.GoogleClientConfig())
	}
	return p
}

var _ out.MailProvider = (*Provider)(nil)

func (p *Provider) service(ctx context.Context, ts oauth2.TokenSource) (*gmail.Service, error) {
	client := &http.Client{
		Transport: &oauth2.Transport{Source: ts, Base: p.httpClient.Transport},
		Timeout:   p.httpClient.Timeout,
	}
	opts := []option.ClientOption{option.WithHTTPClient(client)}
	if p.endpoint != "" {
		opts = append(opts, option.WithEndpoint(p.endpoint))
	}
	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}
	return svc, nil
}

func (p *Provider) execute(fn func() error) error {
	err := p.cb.Execute(fn)
	if err == nil {
		return nil
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
		return fmt.Errorf("%w: %v", out.ErrNotFound, err)
	}
	return err
}

// isUpstreamFailure keeps client errors and revoked grants from tripping the breaker.
func isUpstreamFailure(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			return false
		}
	}
	var retrieveErr *oauth2.RetrieveError
	return !errors.As(err, &retrieveErr)
}

// ProfileEmail returns the address of the account the token belongs to.
func (p *Provider) ProfileEmail(ctx context.Context, ts oauth2.TokenSource) (string, error) {
	svc, err := p.service(ctx, ts)
	if err != nil {
		return "", err
	}

	var profile *gmail.Profile
	err = p.execute(func() error {
		var apiErr error
		profile, apiErr = svc.Users.GetProfile(userID).Context(ctx).Do()
		return apiErr
	})
	if err != nil {
		return "", fmt.Errorf("get profile: %w", err)
	}
	return profile.EmailAddress, nil
}

// UnreadCount returns Gmail's estimate of unread inbox messages.
func (p *Provider) UnreadCount(ctx context.Context, ts oauth2.TokenSource) (int64, error) {
	svc, err := p.service(ctx, ts)
	if err != nil {
		return 0, err
	}

	var resp *gmail.ListMessagesResponse
	err = p.execute(func() error {
		var apiErr error
		resp, apiErr = svc.Users.Messages.List(userID).
			LabelIds(labelInbox).
			Q(queryUnread).
			Context(ctx).
			Do()
		return apiErr
	})
	if err != nil {
		return 0, fmt.Errorf("list unread: %w", err)
	}
	return resp.ResultSizeEstimate, nil
}

// ListUnreadIDs pages through unread inbox ids until limit is reached or the
// listing is exhausted.
func (p *Provider) ListUnreadIDs(ctx context.Context, ts oauth2.TokenSource, limit int) ([]string, error) {
	svc, err := p.service(ctx, ts)
	if err != nil {
		return nil, err
	}

	pageSize := int64(maxPageSize)
	if limit > 0 && limit < maxPageSize {
		pageSize = int64(limit)
	}

	ids := []string{}
	pageToken := ""
	for {
		var resp *gmail.ListMessagesResponse
		err := p.execute(func() error {
			call := svc.Users.Messages.List(userID).
				LabelIds(labelInbox).
				Q(queryUnread).
				MaxResults(pageSize)
			if pageToken != "" {
				call = call.PageToken(pageToken)
			}
			var apiErr error
			resp, apiErr = call.Context(ctx).Do()
			return apiErr
		})
		if err != nil {
			return nil, fmt.Errorf("list unread: %w", err)
		}

		for _, m := range resp.Messages {
			ids = append(ids, m.Id)
		}

		pageToken = resp.NextPageToken
		if pageToken == "" || (limit > 0 && len(ids) >= limit) {
			break
		}
	}

	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

// GetSummary fetches the From, Subject and Date headers and the snippet.
func (p *Provider) GetSummary(ctx context.Context, ts oauth2.TokenSource, id string) (*domain.MessageSummary, error) {
	svc, err := p.service(ctx, ts)
	if err != nil {
		return nil, err
	}

	var msg *gmail.Message
	err = p.execute(func() error {
		var apiErr error
		msg, apiErr = svc.Users.Messages.Get(userID, id).
			Format("metadata").
			MetadataHeaders(summaryHeaders...).
			Context(ctx).
			Do()
		return apiErr
	})
	if err != nil {
		return nil, fmt.Errorf("get message %s: %w", id, err)
	}

	var headers []*gmail.MessagePartHeader
	if msg.Payload != nil {
		headers = msg.Payload.Headers
	}
	return &domain.MessageSummary{
		ID:      msg.Id,
		From:    header(headers, "From"),
		Subject: header(headers, "Subject"),
		Date:    header(headers, "Date"),
		Snippet: msg.Snippet,
	}, nil
}

// GetMessage fetches and decodes a full message.
func (p *Provider) GetMessage(ctx context.Context, ts oauth2.TokenSource, id string) (*domain.MessageDetail, error) {
	svc, err := p.service(ctx, ts)
	if err != nil {
		return nil, err
	}

	var msg *gmail.Message
	err = p.execute(func() error {
		var apiErr error
		msg, apiErr = svc.Users.Messages.Get(userID, id).Format("full").Context(ctx).Do()
		return apiErr
	})
	if err != nil {
		return nil, fmt.Errorf("get message %s: %w", id, err)
	}

	return parseMessage(msg), nil
}

func parseMessage(msg *gmail.Message) *domain.MessageDetail {
	detail := &domain.MessageDetail{ID: msg.Id, Attachments: []domain.Attachment{}}
	if msg.Payload == nil {
		detail.Body = msg.Snippet
		return detail
	}

	for _, h := range msg.Payload.Headers {
		switch h.Name {
		case "From":
			detail.From = h.Value
		case "Subject":
			detail.Subject = h.Value
		case "Date":
			detail.Date = h.Value
		}
	}

	detail.Body = ExtractText(msg.Payload)
	if detail.Body == "" {
		detail.Body = msg.Snippet
	}
	detail.HTML = ExtractHTML(msg.Payload)
	detail.Attachments = CollectAttachments(msg.Payload)
	return detail
}

// GetAttachment downloads and decodes an attachment body.
func (p *Provider) GetAttachment(ctx context.Context, ts oauth2.TokenSource, messageID, attachmentID string) ([]byte, error) {
	svc, err := p.service(ctx, ts)
	if err != nil {
		return nil, err
	}

	var body *gmail.MessagePartBody
	err = p.execute(func() error {
		var apiErr error
		body, apiErr = svc.Users.Messages.Attachments.Get(userID, messageID, attachmentID).Context(ctx).Do()
		return apiErr
	})
	if err != nil {
		return nil, fmt.Errorf("get attachment: %w", err)
	}

	data, err := crypto.DecodeBase64URL(body.Data)
	if err != nil {
		return nil, fmt.Errorf("decode attachment: %w", err)
	}
	return data, nil
}

// MarkRead removes the UNREAD label.
func (p *Provider) MarkRead(ctx context.Context, ts oauth2.TokenSource, id string) error {
	svc, err := p.service(ctx, ts)
	if err != nil {
		return err
	}

	err = p.execute(func() error {
		_, apiErr := svc.Users.Messages.Modify(userID, id, &gmail.ModifyMessageRequest{
			RemoveLabelIds: []string{labelUnread},
		}).Context(ctx).Do()
		return apiErr
	})
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	return nil
}

// Trash moves a message to the trash.
func (p *Provider) Trash(ctx context.Context, ts oauth2.TokenSource, id string) error {
	svc, err := p.service(ctx, ts)
	if err != nil {
		return err
	}

	err = p.execute(func() error {
		_, apiErr := svc.Users.Messages.Trash(userID, id).Context(ctx).Do()
		return apiErr
	})
	if err != nil {
		return fmt.Errorf("trash: %w", err)
	}
	return nil
}
