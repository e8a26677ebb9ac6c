package state

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/procurebot/relay/internal/relay/model"
	logx "github.com/procurebot/relay/pkg/logger"
)

const DefaultMaxUsers = 10000

// MemoryStore is an in-process store bounded by least-recently-used eviction.
type MemoryStore struct {
	cache *lru.Cache[string, model.UserState]
}

func NewMemoryStore(maxUsers int) (*MemoryStore, error) {
	if maxUsers <= 0 {
		maxUsers = DefaultMaxUsers
	}
	cache, err := lru.NewWithEvict(maxUsers, func(userID string, st model.UserState) {
		logx.Debug().Str("user", userID).Time("last_active", st.LastActive).Msg("evicted idle user state")
	})
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}
	return &MemoryStore{cache: cache}, nil
}

func (m *MemoryStore) Load(_ context.Context, userID string) (*model.UserState, bool, error) {
	if st, ok := m.cache.Get(userID); ok {
		return &st, false, nil
	}
	return model.NewUserState(userID), true, nil
}

func (m *MemoryStore) Save(_ context.Context, st *model.UserState) error {
	if st == nil || st.UserID == "" {
		return fmt.Errorf("save user state: missing user id")
	}
	m.cache.Add(st.UserID, *st)
	return nil
}

func (m *MemoryStore) Len(_ context.Context) (int, error) {
	return m.cache.Len(), nil
}

var _ Store = (*MemoryStore)(nil)
