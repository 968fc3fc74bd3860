package persistence

import (
	"context"
	"fmt"

	"portal_server/core/domain"
	"portal_server/core/port/out"
	"portal_server/pkg/kv"
)

const notesKeyPrefix = "portal:notes:"

// KVNotesRepository stores each user's notes as one JSON list.
type KVNotesRepository struct {
	kv *kv.Store
}

func NewKVNotesRepository(store *kv.Store) *KVNotesRepository {
	return &KVNotesRepository{kv: store}
}

var _ out.NotesRepository = (*KVNotesRepository)(nil)

func (r *KVNotesRepository) List(ctx context.Context, owner string) ([]domain.Note, error) {
	notes := []domain.Note{}
	if _, err := r.kv.GetJSON(ctx, notesKeyPrefix+owner, &notes); err != nil {
		return nil, fmt.Errorf("load notes: %w", err)
	}
	return notes, nil
}

func (r *KVNotesRepository) Replace(ctx context.Context, owner string, notes []domain.Note) error {
	if err := r.kv.SetJSON(ctx, notesKeyPrefix+owner, notes, 0); err != nil {
		return fmt.Errorf("save notes: %w", err)
	}
	return nil
}
