package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	errx "github.com/procurebot/relay/internal/core/error"
	"github.com/procurebot/relay/internal/relay/model"
	logx "github.com/procurebot/relay/pkg/logger"
)

const keyPrefix = "relay:user:"

// RedisStore keeps user state as JSON, one key per user. The TTL is extended
// on every save so idle users expire on their own.
type RedisStore struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisStore(rdb redis.Cmdable, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (r *RedisStore) userKey(userID string) string {
	return fmt.Sprintf("%s%s:state", keyPrefix, userID)
}

func (r *RedisStore) Load(ctx context.Context, userID string) (*model.UserState, bool, error) {
	key := r.userKey(userID)
	raw, err := r.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.NewUserState(userID), true, nil
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to load user state from redis")
		return nil, false, errx.WrapRedis(err)
	}

	var st model.UserState
	if err := json.Unmarshal(raw, &st); err != nil {
		logx.Error().Err(err).Str("user", userID).Msg("failed to unmarshal user state")
		return nil, false, fmt.Errorf("unmarshal user state: %w", err)
	}
	if st.UserID == "" {
		st.UserID = userID
	}
	return &st, false, nil
}

func (r *RedisStore) Save(ctx context.Context, st *model.UserState) error {
	if st == nil || st.UserID == "" {
		return fmt.Errorf("save user state: missing user id")
	}
	b, err := json.Marshal(st)
	if err != nil {
		logx.Error().Err(err).Str("user", st.UserID).Msg("failed to marshal user state")
		return fmt.Errorf("marshal user state: %w", err)
	}
	key := r.userKey(st.UserID)
	// extend TTL on touch
	if err := r.rdb.Set(ctx, key, b, r.ttl).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to save user state to redis")
		return errx.WrapRedis(err)
	}
	return nil
}

func (r *RedisStore) Len(ctx context.Context) (int, error) {
	n := 0
	iter := r.rdb.Scan(ctx, 0, keyPrefix+"*:state", 100).Iterator()
	for iter.Next(ctx) {
		n++
	}
	if err := iter.Err(); err != nil {
		logx.Error().Err(err).Msg("failed to count user states in redis")
		return 0, errx.WrapRedis(err)
	}
	return n, nil
}

var _ Store = (*RedisStore)(nil)
