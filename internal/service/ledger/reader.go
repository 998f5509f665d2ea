package ledger

import (
	"context"
	"sync"
	"time"

	"zkpoker-client/pkg/logger"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

type ReaderConfig struct {
	Interval time.Duration
	CacheTTL time.Duration
}

func defaultReaderConfig() ReaderConfig {
	return ReaderConfig{
		Interval: 2 * time.Second,
		CacheTTL: time.Second,
	}
}

// Reader polls one game for one player and fans each fresh snapshot out to listeners.
type Reader struct {
	source Source
	self   common.Address
	cache  Cache
	cfg    ReaderConfig
	log    *zap.Logger

	mu        sync.RWMutex
	latest    *Snapshot
	listeners []func(*Snapshot)

	startOnce sync.Once
}

func NewReader(source Source, self common.Address, cache Cache, cfg ReaderConfig) *Reader {
	def := defaultReaderConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.CacheTTL < 0 {
		cfg.CacheTTL = 0
	}
	return &Reader{
		source: source,
		self:   self,
		cache:  cache,
		cfg:    cfg,
		log:    logger.With(source.Address().Hex(), self.Hex()),
	}
}

func (r *Reader) Source() Source { return r.source }

func (r *Reader) Self() common.Address { return r.self }

// Latest returns the most recent snapshot, or nil before the first read.
func (r *Reader) Latest() *Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.latest
}

// OnSnapshot registers fn to run after every successful read.
func (r *Reader) OnSnapshot(fn func(*Snapshot)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

// Refresh reads the ledger directly, bypassing the cache.
func (r *Reader) Refresh(ctx context.Context) (*Snapshot, error) {
	snap, err := r.source.ReadSnapshot(ctx, r.self)
	if err != nil {
		return nil, err
	}
	if r.cache != nil && r.cfg.CacheTTL > 0 {
		if err := r.cache.Set(ctx, snap, r.cfg.CacheTTL); err != nil {
			r.log.Warn("snapshot cache write failed", zap.Error(err))
		}
	}
	r.publish(snap)
	return snap, nil
}

// Poll serves a cached snapshot when one is fresh, otherwise it refreshes.
func (r *Reader) Poll(ctx context.Context) (*Snapshot, error) {
	if r.cache != nil && r.cfg.CacheTTL > 0 {
		snap, err := r.cache.Get(ctx, r.source.Address(), r.self)
		if err != nil {
			r.log.Warn("snapshot cache read failed", zap.Error(err))
		} else if snap != nil {
			snap = snap.Aged(time.Now())
			r.publish(snap)
			return snap, nil
		}
	}
	return r.Refresh(ctx)
}

func (r *Reader) publish(snap *Snapshot) {
	r.mu.Lock()
	r.latest = snap
	listeners := make([]func(*Snapshot), len(r.listeners))
	copy(listeners, r.listeners)
	r.mu.Unlock()

	for _, fn := range listeners {
		fn(snap)
	}
}

// Start launches the poll loop once; it stops with ctx.
func (r *Reader) Start(ctx context.Context) {
	r.startOnce.Do(func() {
		go r.run(ctx)
	})
}

func (r *Reader) run(ctx context.Context) {
	if _, err := r.Refresh(ctx); err != nil {
		r.log.Warn("initial ledger read failed", zap.Error(err))
	}

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.Poll(ctx); err != nil && ctx.Err() == nil {
				r.log.Warn("ledger poll failed", zap.Error(err))
			}
		}
	}
}
