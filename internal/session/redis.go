package session

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each session as a redis hash with a sliding idle TTL.
type RedisStore struct {
	rdb     *redis.Client
	idleTTL time.Duration
}

func NewRedisStore(rdb *redis.Client, idleTTL time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, idleTTL: idleTTL}
}

func key(accountID string) string {
	return "account:session:" + accountID
}

func (s *RedisStore) Create(ctx context.Context, accountID string, sess Session) error {
	fields := map[string]any{
		"sid":        sess.SID,
		"email":      sess.Email,
		"name":       sess.Name,
		"created_at": sess.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	pipe := s.rdb.Pipeline()
	pipe.Del(ctx, key(accountID))
	pipe.HSet(ctx, key(accountID), fields)
	pipe.Expire(ctx, key(accountID), s.idleTTL)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStore) Get(ctx context.Context, accountID string) (Session, bool, error) {
	data, err := s.rdb.HGetAll(ctx, key(accountID)).Result()
	if err != nil {
		return Session{}, false, err
	}
	if len(data) == 0 {
		return Session{}, false, nil
	}
	sess := Session{
		SID:   data["sid"],
		Email: data["email"],
		Name:  data["name"],
	}
	if t, perr := time.Parse(time.RFC3339Nano, data["created_at"]); perr == nil {
		sess.CreatedAt = t
	}
	return sess, true, nil
}

func (s *RedisStore) Touch(ctx context.Context, accountID string) error {
	return s.rdb.Expire(ctx, key(accountID), s.idleTTL).Err()
}

func (s *RedisStore) Destroy(ctx context.Context, accountID string) error {
	return s.rdb.Del(ctx, key(accountID)).Err()
}

var _ Store = (*RedisStore)(nil)
