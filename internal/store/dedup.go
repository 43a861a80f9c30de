package store

import (
	"context"
	"time"

	pkgsecrets "github.com/Checker-Finance/commerce-adapters/pkg/secrets"
)

// MemoryDedup keeps webhook message claims in process memory. Claims are
// lost on restart and not shared between replicas; used when Redis is absent.
type MemoryDedup struct {
	claims *pkgsecrets.Cache[struct{}]
	stop   chan struct{}
}

// NewMemoryDedup starts a dedup cache with the given TTL.
func NewMemoryDedup(ttl time.Duration) *MemoryDedup {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	d := &MemoryDedup{claims: pkgsecrets.NewCache[struct{}](ttl), stop: make(chan struct{})}
	go d.claims.StartCleaner(10*time.Minute, d.stop)
	return d
}

func (d *MemoryDedup) Claim(_ context.Context, messageID string) (bool, error) {
	return d.claims.PutIfAbsent(messageID, struct{}{}), nil
}

func (d *MemoryDedup) Release(_ context.Context, messageID string) error {
	d.claims.Bust(messageID)
	return nil
}

// Close stops the background cleaner.
func (d *MemoryDedup) Close() {
	close(d.stop)
}
