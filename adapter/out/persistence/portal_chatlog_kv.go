package persistence

import (
	"context"
	"fmt"
	"sort"

	"portal_server/core/domain"
	"portal_server/core/port/out"
	"portal_server/pkg/kv"

	"github.com/redis/go-redis/v9"
)

const (
	chatLogKeyPrefix     = "portal:chatlog:"
	chatViewersKeyPrefix = "portal:chatlog:acl:"
	chatSharedKeyPrefix  = "portal:chatlog:shared:"
)

// KVChatLogRepository stores chat logs as JSON and the sharing ACL as Redis
// sets, with a reverse index from viewer to owners.
type KVChatLogRepository struct {
	kv *kv.Store
}

func NewKVChatLogRepository(store *kv.Store) *KVChatLogRepository {
	return &KVChatLogRepository{kv: store}
}

var _ out.ChatLogRepository = (*KVChatLogRepository)(nil)

func (r *KVChatLogRepository) GetLog(ctx context.Context, owner string) (*domain.ChatLog, error) {
	log := &domain.ChatLog{Owner: owner, Entries: []domain.ChatEntry{}}
	if _, err := r.kv.GetJSON(ctx, chatLogKeyPrefix+owner, log); err != nil {
		return nil, fmt.Errorf("load chat log: %w", err)
	}
	if log.Entries == nil {
		log.Entries = []domain.ChatEntry{}
	}
	return log, nil
}

func (r *KVChatLogRepository) SaveLog(ctx context.Context, log *domain.ChatLog) error {
	if err := r.kv.SetJSON(ctx, chatLogKeyPrefix+log.Owner, log, 0); err != nil {
		return fmt.Errorf("save chat log: %w", err)
	}
	return nil
}

func (r *KVChatLogRepository) GetViewers(ctx context.Context, owner string) ([]string, error) {
	viewers, err := r.kv.SetMembers(ctx, chatViewersKeyPrefix+owner)
	if err != nil {
		return nil, fmt.Errorf("load viewers: %w", err)
	}
	sort.Strings(viewers)
	return viewers, nil
}

func (r *KVChatLogRepository) SetViewers(ctx context.Context, owner string, viewers []string) error {
	current, err := r.kv.SetMembers(ctx, chatViewersKeyPrefix+owner)
	if err != nil {
		return fmt.Errorf("load viewers: %w", err)
	}

	want := make(map[string]struct{}, len(viewers))
	for _, v := range viewers {
		want[v] = struct{}{}
	}

	client := r.kv.Client()
	_, err = client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, v := range current {
			if _, ok := want[v]; !ok {
				pipe.SRem(ctx, chatSharedKeyPrefix+v, owner)
			}
		}
		pipe.Del(ctx, chatViewersKeyPrefix+owner)
		for v := range want {
			pipe.SAdd(ctx, chatViewersKeyPrefix+owner, v)
			pipe.SAdd(ctx, chatSharedKeyPrefix+v, owner)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save viewers: %w", err)
	}
	return nil
}

func (r *KVChatLogRepository) SharedWith(ctx context.Context, viewer string) ([]string, error) {
	owners, err := r.kv.SetMembers(ctx, chatSharedKeyPrefix+viewer)
	if err != nil {
		return nil, fmt.Errorf("load shared logs: %w", err)
	}
	sort.Strings(owners)
	return owners, nil
}
