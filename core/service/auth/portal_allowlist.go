package auth

import (
	"context"
	"net/mail"

	"portal_server/core/domain"
	"portal_server/core/port/out"
	"portal_server/pkg/apperr"
	"portal_server/pkg/logger"
)

const maxAllowlistSize = 500

// AllowlistService decides who may log in. The stored list wins when present;
// otherwise the static list from the environment applies.
type AllowlistService struct {
	repo     out.AllowlistRepository
	fallback []string
}

// NewAllowlistService creates the service. repo may be nil, in which case the
// allowlist is the fallback list and cannot be edited.
func NewAllowlistService(repo out.AllowlistRepository, fallback []string) *AllowlistService {
	normalized, _ := NormalizeEmails(fallback)
	return &AllowlistService{repo: repo, fallback: normalized}
}

// Get returns the effective allowlist.
func (s *AllowlistService) Get(ctx context.Context) (*domain.Allowlist, error) {
	if s.repo != nil {
		emails, found, err := s.repo.Get(ctx)
		if err != nil {
			return nil, apperr.StorageError("load allowlist", err)
		}
		if found {
			return &domain.Allowlist{Emails: emails, Source: domain.AllowlistSourceKV, Editable: true}, nil
		}
	}
	return &domain.Allowlist{
		Emails:   append([]string{}, s.fallback...),
		Source:   domain.AllowlistSourceEnv,
		Editable: s.repo != nil,
	}, nil
}

// IsAllowed reports whether email may hold a session. An empty allowlist admits nobody.
func (s *AllowlistService) IsAllowed(ctx context.Context, email string) (bool, error) {
	list, err := s.Get(ctx)
	if err != nil {
		return false, err
	}
	return list.Contains(email), nil
}

// Update replaces the stored allowlist on behalf of submitter. The new list must
// be non-empty and must still contain the submitter.
func (s *AllowlistService) Update(ctx context.Context, submitter string, emails []string) (*domain.Allowlist, error) {
	if s.repo == nil {
		return nil, apperr.ReadOnly("allowlist")
	}
	submitter = domain.NormalizeEmail(submitter)

	allowed, err := s.IsAllowed(ctx, submitter)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, apperr.Forbidden("only allowed users can change the allowlist")
	}

	normalized, invalid := NormalizeEmails(emails)
	if len(invalid) > 0 {
		return nil, apperr.InvalidInput("emails", "invalid address").WithDetail("invalid", invalid)
	}
	if len(normalized) == 0 {
		return nil, apperr.BadRequest("allowlist cannot be empty")
	}
	if len(normalized) > maxAllowlistSize {
		return nil, apperr.BadRequest("allowlist is too long")
	}

	list := &domain.Allowlist{Emails: normalized, Source: domain.AllowlistSourceKV, Editable: true}
	if !list.Contains(submitter) {
		logger.WithField("user", submitter).Warn("[Allowlist] rejected update that would lock out submitter")
		return nil, apperr.SelfLockout()
	}

	if err := s.repo.Put(ctx, normalized); err != nil {
		return nil, apperr.StorageError("save allowlist", err)
	}
	logger.WithFields(map[string]any{"user": submitter, "count": len(normalized)}).Info("[Allowlist] updated")
	return list, nil
}

// NormalizeEmails trims, lowercases and dedupes addresses, preserving order.
// Entries that are not bare addresses are returned separately.
func NormalizeEmails(in []string) (valid, invalid []string) {
	seen := make(map[string]struct{}, len(in))
	for _, raw := range in {
		email := domain.NormalizeEmail(raw)
		if email == "" {
			continue
		}
		addr, err := mail.ParseAddress(email)
		if err != nil || addr.Address != email {
			invalid = append(invalid, raw)
			continue
		}
		if _, ok := seen[email]; ok {
			continue
		}
		seen[email] = struct{}{}
		valid = append(valid, email)
	}
	return valid, invalid
}
