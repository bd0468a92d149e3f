package local

import (
	"context"
	"errors"
	"time"

	"identity-service/internal/identity"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const activationPrefix = "activation:"

// ActivationStore keeps one-time password-establishment tokens in Redis. The
// TTL bounds how long an invitation stays valid; GETDEL makes consumption
// single-use even when two activation attempts race.
type ActivationStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewActivationStore(rdb *redis.Client, ttl time.Duration) *ActivationStore {
	return &ActivationStore{rdb: rdb, ttl: ttl}
}

// Create issues a fresh one-time token bound to the given account.
func (s *ActivationStore) Create(ctx context.Context, uid string) (string, error) {
	token := uuid.New().String()
	if err := s.rdb.Set(ctx, activationPrefix+token, uid, s.ttl).Err(); err != nil {
		return "", err
	}
	return token, nil
}

// Consume redeems a token and returns the bound account UID. A second
// consume of the same token fails.
func (s *ActivationStore) Consume(ctx context.Context, token string) (string, error) {
	uid, err := s.rdb.GetDel(ctx, activationPrefix+token).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", identity.ErrActivationInvalid
		}
		return "", err
	}
	return uid, nil
}
