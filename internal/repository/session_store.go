package repository

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionStore records issued token ids in Redis so logout can invalidate a
// credential before it expires. A nil store disables the check entirely.
type SessionStore struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewSessionStore(addr, password string, ttl time.Duration) *SessionStore {
	return &SessionStore{
		Client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
		TTL: ttl,
	}
}

func sessionKey(tokenID string) string {
	return "session:" + tokenID
}

func (s *SessionStore) Save(ctx context.Context, tokenID, userID string) error {
	return s.Client.Set(ctx, sessionKey(tokenID), userID, s.TTL).Err()
}

// IsValid reports whether the token id is still registered.
func (s *SessionStore) IsValid(ctx context.Context, tokenID string) bool {
	_, err := s.Client.Get(ctx, sessionKey(tokenID)).Result()
	return err == nil
}

func (s *SessionStore) Delete(ctx context.Context, tokenID string) error {
	return s.Client.Del(ctx, sessionKey(tokenID)).Err()
}

func (s *SessionStore) Ping(ctx context.Context) error {
	return s.Client.Ping(ctx).Err()
}
