package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"
)

// Cache shares recent snapshots between readers of the same game and player.
type Cache interface {
	Get(ctx context.Context, contract, self common.Address) (*Snapshot, error)
	Set(ctx context.Context, snap *Snapshot, ttl time.Duration) error
}

type RedisCache struct {
	rdb *redis.Client
}

func NewRedisCache(rdb *redis.Client) *RedisCache {
	return &RedisCache{rdb: rdb}
}

func buildSnapshotKey(contract, self common.Address) string {
	return fmt.Sprintf("zkpoker:snapshot:%s:%s", strings.ToLower(contract.Hex()), strings.ToLower(self.Hex()))
}

// Get returns nil without error on a miss.
func (c *RedisCache) Get(ctx context.Context, contract, self common.Address) (*Snapshot, error) {
	raw, err := c.rdb.Get(ctx, buildSnapshotKey(contract, self)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode cached snapshot: %w", err)
	}
	return &snap, nil
}

func (c *RedisCache) Set(ctx context.Context, snap *Snapshot, ttl time.Duration) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, buildSnapshotKey(snap.Contract, snap.Self), raw, ttl).Err()
}
