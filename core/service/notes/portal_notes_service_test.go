package notes

import (
	"context"
	"strings"
	"testing"
	"time"

	"portal_server/core/domain"
	"portal_server/pkg/apperr"
)

type memNotes struct {
	data map[string][]domain.Note
}

func (m *memNotes) List(ctx context.Context, owner string) ([]domain.Note, error) {
	return append([]domain.Note{}, m.data[owner]...), nil
}

func (m *memNotes) Replace(ctx context.Context, owner string, notes []domain.Note) error {
	m.data[owner] = notes
	return nil
}

func newTestService() (*Service, *memNotes) {
	repo := &memNotes{data: map[string][]domain.Note{}}
	s := NewService(repo)
	tick := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		tick = tick.Add(time.Minute)
		return tick
	}
	return s, repo
}

func TestCreate_NewestFirst(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService()

	first, err := s.Create(ctx, "a@example.com", " first ")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if first.Text != "first" || first.ID == "" {
		t.Errorf("Create() = %+v", first)
	}
	second, _ := s.Create(ctx, "a@example.com", "second")

	list, _ := s.List(ctx, "a@example.com")
	if len(list) != 2 || list[0].ID != second.ID || list[1].ID != first.ID {
		t.Errorf("List() = %+v", list)
	}
	if other, _ := s.List(ctx, "b@example.com"); len(other) != 0 {
		t.Errorf("other user's notes = %+v", other)
	}
}

func TestCreate_Validation(t *testing.T) {
	ctx := context.Background()
	s, repo := newTestService()

	if _, err := s.Create(ctx, "a@example.com", "   "); !apperr.HasCode(err, apperr.CodeMissingField) {
		t.Errorf("Create(blank) error = %v", err)
	}
	if _, err := s.Create(ctx, "a@example.com", strings.Repeat("ż", MaxNoteLength+1)); !apperr.HasCode(err, apperr.CodeInvalidInput) {
		t.Errorf("Create(too long) error = %v", err)
	}
	if _, err := s.Create(ctx, "a@example.com", strings.Repeat("ż", MaxNoteLength)); err != nil {
		t.Errorf("Create(max length) error = %v", err)
	}

	repo.data["a@example.com"] = make([]domain.Note, MaxNotes)
	if _, err := s.Create(ctx, "a@example.com", "one more"); !apperr.HasCode(err, apperr.CodeConflict) {
		t.Errorf("Create(over limit) error = %v", err)
	}
}

func TestUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService()
	note, _ := s.Create(ctx, "a@example.com", "draft")

	updated, err := s.Update(ctx, "a@example.com", note.ID, "final")
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Text != "final" || !updated.UpdatedAt.After(note.CreatedAt) {
		t.Errorf("Update() = %+v", updated)
	}
	if _, err := s.Update(ctx, "b@example.com", note.ID, "x"); !apperr.HasCode(err, apperr.CodeNotFound) {
		t.Errorf("Update(other owner) error = %v", err)
	}

	if err := s.Delete(ctx, "a@example.com", note.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := s.Delete(ctx, "a@example.com", note.ID); !apperr.HasCode(err, apperr.CodeNotFound) {
		t.Errorf("Delete(again) error = %v", err)
	}
}
