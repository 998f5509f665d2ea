// Package clock counts down the current player's action window between ledger reads.
package clock

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Clock is re-synced from every snapshot and ticks locally in between.
// The ledger stays authoritative; the local count only decides when a
// force fold may be offered.
type Clock struct {
	tick time.Duration

	mu         sync.RWMutex
	remaining  uint64
	nextPlayer common.Address
	synced     bool

	startOnce sync.Once
}

func New(tick time.Duration) *Clock {
	if tick <= 0 {
		tick = time.Second
	}
	return &Clock{tick: tick}
}

// Sync replaces the local count with the ledger's.
func (c *Clock) Sync(remaining uint64, nextPlayer common.Address) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.remaining = remaining
	c.nextPlayer = nextPlayer
	c.synced = true
}

// Tick decrements the count, never below zero.
func (c *Clock) Tick() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.remaining > 0 {
		c.remaining--
	}
}

func (c *Clock) Remaining() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.remaining
}

func (c *Clock) NextPlayer() common.Address {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.nextPlayer
}

// Expired is false until the first Sync.
func (c *Clock) Expired() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.synced && c.remaining == 0
}

// ForceFoldOfferable reports whether self may force the stalled player out.
func (c *Clock) ForceFoldOfferable(self common.Address) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.synced && c.remaining == 0 && c.nextPlayer != self
}

// Start ticks in the background until ctx is done.
func (c *Clock) Start(ctx context.Context) {
	c.startOnce.Do(func() {
		go c.run(ctx)
	})
}

func (c *Clock) run(ctx context.Context) {
	ticker := time.NewTicker(c.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Tick()
		}
	}
}
