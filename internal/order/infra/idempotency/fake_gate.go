package idempotency

import (
	"context"
	"sync"
	"time"

	"github.com/fqueis/moutsti-order-service/internal/order/domain"
)

// FakeGate is an in-memory IdempotencyGate for tests, including the
// concurrency property tests in spec §8 invariant 1 — it uses a mutex to
// make TryClaim atomic the same way Redis's SetNX does.
type FakeGate struct {
	mu      sync.Mutex
	entries map[string]fakeEntry
}

type fakeEntry struct {
	value     string
	expiresAt time.Time
}

func NewFakeGate() *FakeGate {
	return &FakeGate{entries: make(map[string]fakeEntry)}
}

func (g *FakeGate) TryClaim(ctx context.Context, idempotencyKey string) (domain.ClaimResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now()
	if entry, ok := g.entries[idempotencyKey]; ok && entry.expiresAt.After(now) {
		switch entry.value {
		case valueProcessing:
			return domain.AlreadyProcessing, nil
		case valueProcessed:
			return domain.AlreadyProcessed, nil
		default:
			return domain.UnknownValue, nil
		}
	}

	g.entries[idempotencyKey] = fakeEntry{value: valueProcessing, expiresAt: now.Add(domain.ProcessingTTL)}
	return domain.Claimed, nil
}

func (g *FakeGate) MarkCompleted(ctx context.Context, idempotencyKey string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.entries[idempotencyKey] = fakeEntry{value: valueProcessed, expiresAt: time.Now().Add(domain.ProcessedTTL)}
	return nil
}

func (g *FakeGate) Release(ctx context.Context, idempotencyKey string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.entries, idempotencyKey)
	return nil
}
