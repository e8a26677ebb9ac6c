// Package history records chat users the relay has talked to.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	errx "github.com/procurebot/relay/internal/core/error"
	logx "github.com/procurebot/relay/pkg/logger"
)

const (
	usersKey   = "relay:users"
	userPrefix = "relay:user_doc:"
)

// UserDoc is the stored record for one user.
type UserDoc struct {
	Type      string    `json:"type"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type RedisRecorder struct {
	rdb redis.Cmdable
	now func() time.Time
}

func NewRedisRecorder(rdb redis.Cmdable) *RedisRecorder {
	return &RedisRecorder{rdb: rdb, now: time.Now}
}

func (r *RedisRecorder) docKey(userID string) string {
	return userPrefix + userID
}

// AddUser stores a user doc unless one already exists for userID.
func (r *RedisRecorder) AddUser(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("add user: empty user id")
	}
	b, err := json.Marshal(UserDoc{Type: "user", Name: userID, CreatedAt: r.now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal user doc: %w", err)
	}

	key := r.docKey(userID)
	created, err := r.rdb.SetNX(ctx, key, b, 0).Result()
	if err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to store user doc")
		return errx.WrapRedis(err)
	}
	if !created {
		logx.Debug().Str("user", userID).Msg("user doc exists")
		return nil
	}
	if err := r.rdb.SAdd(ctx, usersKey, userID).Err(); err != nil {
		logx.Error().Err(err).Str("key", usersKey).Msg("failed to index user")
		return errx.WrapRedis(err)
	}
	logx.Info().Str("user", userID).Msg("created user doc")
	return nil
}

// FindUser returns the stored doc for userID, or nil when there is none.
func (r *RedisRecorder) FindUser(ctx context.Context, userID string) (*UserDoc, error) {
	raw, err := r.rdb.Get(ctx, r.docKey(userID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, errx.WrapRedis(err)
	}
	var doc UserDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal user doc: %w", err)
	}
	return &doc, nil
}

// Count returns the number of recorded users.
func (r *RedisRecorder) Count(ctx context.Context) (int64, error) {
	n, err := r.rdb.SCard(ctx, usersKey).Result()
	if err != nil {
		return 0, errx.WrapRedis(err)
	}
	return n, nil
}
