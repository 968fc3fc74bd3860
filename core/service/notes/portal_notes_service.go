// Package notes implements the per-user notes panel.
package notes

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"portal_server/core/domain"
	"portal_server/core/port/out"
	"portal_server/pkg/apperr"

	"github.com/google/uuid"
)

const (
	MaxNotes      = 200
	MaxNoteLength = 10000
)

// Service keeps each user's notes newest first.
type Service struct {
	repo out.NotesRepository
	now  func() time.Time
}

func NewService(repo out.NotesRepository) *Service {
	return &Service{repo: repo, now: time.Now}
}

func (s *Service) List(ctx context.Context, owner string) ([]domain.Note, error) {
	notes, err := s.repo.List(ctx, owner)
	if err != nil {
		return nil, apperr.StorageError("list notes", err)
	}
	return notes, nil
}

func (s *Service) Create(ctx context.Context, owner, text string) (*domain.Note, error) {
	text, err := validateText(text)
	if err != nil {
		return nil, err
	}

	notes, err := s.List(ctx, owner)
	if err != nil {
		return nil, err
	}
	if len(notes) >= MaxNotes {
		return nil, apperr.Conflict(fmt.Sprintf("note limit of %d reached", MaxNotes))
	}

	now := s.now().UTC()
	note := domain.Note{ID: uuid.NewString(), Text: text, CreatedAt: now, UpdatedAt: now}
	notes = append([]domain.Note{note}, notes...)

	if err := s.repo.Replace(ctx, owner, notes); err != nil {
		return nil, apperr.StorageError("save notes", err)
	}
	return &note, nil
}

func (s *Service) Update(ctx context.Context, owner, id, text string) (*domain.Note, error) {
	text, err := validateText(text)
	if err != nil {
		return nil, err
	}

	notes, err := s.List(ctx, owner)
	if err != nil {
		return nil, err
	}
	for i := range notes {
		if notes[i].ID != id {
			continue
		}
		notes[i].Text = text
		notes[i].UpdatedAt = s.now().UTC()
		if err := s.repo.Replace(ctx, owner, notes); err != nil {
			return nil, apperr.StorageError("save notes", err)
		}
		return &notes[i], nil
	}
	return nil, apperr.NotFound("note")
}

func (s *Service) Delete(ctx context.Context, owner, id string) error {
	notes, err := s.List(ctx, owner)
	if err != nil {
		return err
	}
	kept := make([]domain.Note, 0, len(notes))
	for _, n := range notes {
		if n.ID != id {
			kept = append(kept, n)
		}
	}
	if len(kept) == len(notes) {
		return apperr.NotFound("note")
	}
	if err := s.repo.Replace(ctx, owner, kept); err != nil {
		return apperr.StorageError("save notes", err)
	}
	return nil
}

func validateText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", apperr.MissingField("text")
	}
	if utf8.RuneCountInString(text) > MaxNoteLength {
		return "", apperr.InvalidInput("text", fmt.Sprintf("at most %d characters", MaxNoteLength))
	}
	return text, nil
}
