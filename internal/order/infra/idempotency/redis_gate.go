// Package idempotency implements Component A, the idempotency gate, atop
// the shared CacheHandler abstraction.
package idempotency

import (
	"context"
	"fmt"

	"github.com/fqueis/moutsti-order-service/internal/order/domain"
	"github.com/fqueis/moutsti-order-service/shared/infra/cache"
)

const keyPrefix = "idempotency:order:"

const (
	valueProcessing = "PROCESSING"
	valueProcessed  = "PROCESSED"
)

// RedisGate is the production IdempotencyGate. Unlike the source
// repository's Get-then-Set implementation, TryClaim relies solely on
// SetNX for the initial decision — there is no read-check-write window, so
// concurrent claims for the same key resolve to exactly one Claimed result
// (invariant 1).
type RedisGate struct {
	cache cache.CacheHandler
}

func NewRedisGate(cacheHandler cache.CacheHandler) domain.IdempotencyGate {
	return &RedisGate{cache: cacheHandler}
}

func (g *RedisGate) TryClaim(ctx context.Context, idempotencyKey string) (domain.ClaimResult, error) {
	key := buildKey(idempotencyKey)

	claimed, err := g.cache.SetNX(key, valueProcessing, domain.ProcessingTTL)
	if err != nil {
		return domain.UnknownValue, fmt.Errorf("%w: tryClaim SetNX: %v", domain.ErrTransient, err)
	}
	if claimed {
		return domain.Claimed, nil
	}

	current, err := g.cache.Get(key)
	if err != nil {
		// The key existed a moment ago for SetNX to fail, but expired or was
		// evicted before our Get. Treat as corrupted state rather than retry.
		return domain.UnknownValue, nil
	}

	switch current {
	case valueProcessing:
		return domain.AlreadyProcessing, nil
	case valueProcessed:
		return domain.AlreadyProcessed, nil
	default:
		return domain.UnknownValue, nil
	}
}

func (g *RedisGate) MarkCompleted(ctx context.Context, idempotencyKey string) error {
	if err := g.cache.Set(buildKey(idempotencyKey), valueProcessed, domain.ProcessedTTL); err != nil {
		return fmt.Errorf("%w: markCompleted: %v", domain.ErrTransient, err)
	}
	return nil
}

func (g *RedisGate) Release(ctx context.Context, idempotencyKey string) error {
	return g.cache.Delete(buildKey(idempotencyKey))
}

func buildKey(idempotencyKey string) string {
	return keyPrefix + idempotencyKey
}
