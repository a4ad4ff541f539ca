package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	IdempotencyTTL = 24 * time.Hour
	// durée de réservation d'une clé pendant le traitement de la première requête
	IdempotencyLock = time.Minute

	pendingMarker = "pending"
)

// IdempotencyStore mémorise la réponse d'une requête rejouable (en-tête Idempotency-Key)
type IdempotencyStore struct {
	redis redis.UniversalClient
	ttl   time.Duration
}

func NewIdempotencyStore(rdb redis.UniversalClient, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = IdempotencyTTL
	}
	return &IdempotencyStore{redis: rdb, ttl: ttl}
}

func idempotencyKey(scope, owner, key string) string {
	sum := sha256.Sum256([]byte(key))
	return fmt.Sprintf("idem:%s:%s:%s", scope, owner, hex.EncodeToString(sum[:12]))
}

// Replay : état d'une clé déjà vue
type Replay struct {
	Found   bool
	Pending bool
	Body    []byte
}

// Begin réserve la clé. Si elle existe déjà, renvoie la réponse mémorisée ou Pending.
func (s *IdempotencyStore) Begin(ctx context.Context, scope, owner, key string) (Replay, error) {
	k := idempotencyKey(scope, owner, key)

	ok, err := s.redis.SetNX(ctx, k, pendingMarker, IdempotencyLock).Result()
	if err != nil {
		return Replay{}, err
	}
	if ok {
		return Replay{}, nil
	}

	body, err := s.redis.Get(ctx, k).Bytes()
	if err == redis.Nil {
		// expirée entre SETNX et GET : on retente une fois
		return s.Begin(ctx, scope, owner, key)
	}
	if err != nil {
		return Replay{}, err
	}
	if string(body) == pendingMarker {
		return Replay{Found: true, Pending: true}, nil
	}
	return Replay{Found: true, Body: body}, nil
}

// Complete remplace la réservation par la réponse finale
func (s *IdempotencyStore) Complete(ctx context.Context, scope, owner, key string, body []byte) error {
	return s.redis.Set(ctx, idempotencyKey(scope, owner, key), body, s.ttl).Err()
}

// Abort libère la clé pour qu'une nouvelle tentative soit traitée
func (s *IdempotencyStore) Abort(ctx context.Context, scope, owner, key string) error {
	return s.redis.Del(ctx, idempotencyKey(scope, owner, key)).Err()
}
