package persistence

import (
	"context"
	"fmt"

	"portal_server/core/port/out"
	"portal_server/pkg/kv"
)

const allowlistKey = "portal:allowlist"

// KVAllowlistRepository stores the allowlist as a JSON array in Redis.
type KVAllowlistRepository struct {
	kv *kv.Store
}

func NewKVAllowlistRepository(store *kv.Store) *KVAllowlistRepository {
	return &KVAllowlistRepository{kv: store}
}

var _ out.AllowlistRepository = (*KVAllowlistRepository)(nil)

func (r *KVAllowlistRepository) Get(ctx context.Context) ([]string, bool, error) {
	var emails []string
	found, err := r.kv.GetJSON(ctx, allowlistKey, &emails)
	if err != nil {
		return nil, false, fmt.Errorf("load allowlist: %w", err)
	}
	return emails, found, nil
}

func (r *KVAllowlistRepository) Put(ctx context.Context, emails []string) error {
	if err := r.kv.SetJSON(ctx, allowlistKey, emails, 0); err != nil {
		return fmt.Errorf("save allowlist: %w", err)
	}
	return nil
}
