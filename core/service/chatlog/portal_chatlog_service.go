// Package chatlog syncs the blood-pressure chat log and its read-only sharing.
package chatlog

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"portal_server/core/domain"
	"portal_server/core/port/out"
	"portal_server/core/service/auth"
	"portal_server/pkg/apperr"
)

const (
	MaxEntries     = 5000
	MaxEntryLength = 4000
	MaxViewers     = 20
	maxReading     = 400
)

var validRoles = map[string]struct{}{"user": {}, "assistant": {}, "system": {}}

type Service struct {
	repo out.ChatLogRepository
	now  func() time.Time
}

func NewService(repo out.ChatLogRepository) *Service {
	return &Service{repo: repo, now: time.Now}
}

func (s *Service) Get(ctx context.Context, owner string) (*domain.ChatLog, error) {
	log, err := s.repo.GetLog(ctx, owner)
	if err != nil {
		return nil, apperr.StorageError("get chat log", err)
	}
	return log, nil
}

// Replace overwrites the owner's log with entries.
func (s *Service) Replace(ctx context.Context, owner string, entries []domain.ChatEntry) (*domain.ChatLog, error) {
	if len(entries) > MaxEntries {
		return nil, apperr.InvalidInput("entries", fmt.Sprintf("at most %d entries", MaxEntries))
	}
	now := s.now().UTC()
	cleaned := make([]domain.ChatEntry, 0, len(entries))
	for i, e := range entries {
		if err := validateEntry(i, &e, now); err != nil {
			return nil, err
		}
		cleaned = append(cleaned, e)
	}

	log := &domain.ChatLog{Owner: owner, Entries: cleaned, UpdatedAt: now}
	if err := s.repo.SaveLog(ctx, log); err != nil {
		return nil, apperr.StorageError("save chat log", err)
	}
	return log, nil
}

func validateEntry(i int, e *domain.ChatEntry, now time.Time) error {
	field := fmt.Sprintf("entries[%d]", i)
	e.Role = strings.ToLower(strings.TrimSpace(e.Role))
	if _, ok := validRoles[e.Role]; !ok {
		return apperr.InvalidInput(field, "unknown role")
	}
	if utf8.RuneCountInString(e.Text) > MaxEntryLength {
		return apperr.InvalidInput(field, "text too long")
	}
	for _, v := range []*int{e.Systolic, e.Diastolic, e.Pulse} {
		if v != nil && (*v <= 0 || *v > maxReading) {
			return apperr.InvalidInput(field, "reading out of range")
		}
	}
	if e.At.IsZero() {
		e.At = now
	}
	return nil
}

func (s *Service) Viewers(ctx context.Context, owner string) ([]string, error) {
	viewers, err := s.repo.GetViewers(ctx, owner)
	if err != nil {
		return nil, apperr.StorageError("get viewers", err)
	}
	return viewers, nil
}

// SetViewers replaces who may read the owner's log. The owner is dropped from the list.
func (s *Service) SetViewers(ctx context.Context, owner string, viewers []string) ([]string, error) {
	valid, invalid := auth.NormalizeEmails(viewers)
	if len(invalid) > 0 {
		return nil, apperr.InvalidInput("viewers", "invalid email address").WithDetail("invalid", invalid)
	}

	owner = domain.NormalizeEmail(owner)
	cleaned := make([]string, 0, len(valid))
	for _, v := range valid {
		if v != owner {
			cleaned = append(cleaned, v)
		}
	}
	if len(cleaned) > MaxViewers {
		return nil, apperr.InvalidInput("viewers", fmt.Sprintf("at most %d viewers", MaxViewers))
	}

	if err := s.repo.SetViewers(ctx, owner, cleaned); err != nil {
		return nil, apperr.StorageError("save viewers", err)
	}
	return cleaned, nil
}

// SharedWithMe lists owners who share their log with viewer.
func (s *Service) SharedWithMe(ctx context.Context, viewer string) ([]string, error) {
	owners, err := s.repo.SharedWith(ctx, viewer)
	if err != nil {
		return nil, apperr.StorageError("list shared logs", err)
	}
	return owners, nil
}

// GetShared returns owner's log if viewer is on its ACL.
func (s *Service) GetShared(ctx context.Context, viewer, owner string) (*domain.ChatLog, error) {
	owner = domain.NormalizeEmail(owner)
	viewers, err := s.Viewers(ctx, owner)
	if err != nil {
		return nil, err
	}
	for _, v := range viewers {
		if v == viewer {
			return s.Get(ctx, owner)
		}
	}
	return nil, apperr.Forbidden("chat log is not shared with you")
}
