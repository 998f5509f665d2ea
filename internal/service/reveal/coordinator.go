// Package reveal submits this player's decryption shares for pending cards,
// at most once per distinct pending set.
package reveal

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"zkpoker-client/internal/cards"
	"zkpoker-client/internal/service/engine"
	"zkpoker-client/internal/service/ledger"
	appErr "zkpoker-client/pkg/errors"
	"zkpoker-client/pkg/logger"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Category string

const (
	Hole      Category = "hole"
	Community Category = "community"
)

type KeySource interface {
	GetKey(ctx context.Context, addr common.Address) (engine.Key, error)
}

type Refresher interface {
	Refresh(ctx context.Context) (*ledger.Snapshot, error)
}

// CardKey identifies a pending set independent of order: sorted, de-duplicated,
// comma-joined decimal indices. An empty set yields "".
func CardKey(indices []uint8) string {
	if len(indices) == 0 {
		return ""
	}
	sorted := append([]uint8(nil), indices...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	parts := make([]string, 0, len(sorted))
	for i, idx := range sorted {
		if i > 0 && sorted[i-1] == idx {
			continue
		}
		parts = append(parts, strconv.Itoa(int(idx)))
	}
	return strings.Join(parts, ",")
}

// Status is a point-in-time view of a coordinator's guard.
type Status struct {
	Category         Category  `json:"category"`
	Submitting       bool      `json:"submitting"`
	LastSubmittedKey string    `json:"lastSubmittedKey"`
	LastError        string    `json:"lastError,omitempty"`
	LastAttemptAt    time.Time `json:"lastAttemptAt,omitempty"`
}

type Coordinator struct {
	category Category
	writer   ledger.Writer
	engine   engine.Gateway
	keys     KeySource
	refresh  Refresher
	log      *zap.Logger

	mu               sync.Mutex
	inFlight         bool
	lastSubmittedKey string
	lastErr          error
	lastAttemptAt    time.Time
}

func New(category Category, writer ledger.Writer, gw engine.Gateway, keys KeySource, refresh Refresher) *Coordinator {
	return &Coordinator{
		category: category,
		writer:   writer,
		engine:   gw,
		keys:     keys,
		refresh:  refresh,
		log:      logger.Log.With(zap.String("category", string(category))),
	}
}

func (c *Coordinator) Category() Category { return c.category }

func (c *Coordinator) pending(snap *ledger.Snapshot) []uint8 {
	if snap == nil {
		return nil
	}
	if c.category == Hole {
		return snap.PendingHole
	}
	return snap.PendingCommunity
}

func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := Status{
		Category:         c.category,
		Submitting:       c.inFlight,
		LastSubmittedKey: c.lastSubmittedKey,
		LastAttemptAt:    c.lastAttemptAt,
	}
	if c.lastErr != nil {
		st.LastError = appErr.Classify(c.lastErr).Message
	}
	return st
}

// IsSkip reports whether err is a guard refusal rather than a failure.
func IsSkip(err error) bool {
	return errors.Is(err, appErr.ErrSubmissionInFlight) ||
		errors.Is(err, appErr.ErrNothingPending) ||
		errors.Is(err, appErr.ErrWalletNotConnected) ||
		errors.Is(err, appErr.ErrAlreadySubmitted) ||
		errors.Is(err, appErr.ErrDeckNotReady)
}

// Trigger starts an attempt in the background when the guards pass. Triggers
// that arrive while a submission is running are dropped, not queued.
func (c *Coordinator) Trigger(ctx context.Context, snap *ledger.Snapshot) bool {
	pending := c.pending(snap)
	c.mu.Lock()
	err := c.checkLocked(snap, pending, CardKey(pending))
	c.mu.Unlock()
	if err != nil {
		return false
	}
	go func() {
		if _, err := c.Run(ctx, snap); err != nil && !IsSkip(err) {
			c.log.Warn("reveal submission failed", zap.Error(err))
		}
	}()
	return true
}

// Run makes one guarded attempt against snap and blocks until it finishes.
func (c *Coordinator) Run(ctx context.Context, snap *ledger.Snapshot) (*ledger.Receipt, error) {
	pending := c.pending(snap)
	cardKey := CardKey(pending)

	c.mu.Lock()
	if err := c.checkLocked(snap, pending, cardKey); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.inFlight = true
	c.lastAttemptAt = time.Now()
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.inFlight = false
		c.mu.Unlock()
	}()

	log := c.log.With(zap.String("cardKey", cardKey), zap.String("submissionID", uuid.NewString()))
	log.Info("submitting reveal shares", zap.Int("cards", len(pending)))

	receipt, err := c.submit(ctx, snap, pending)
	if err != nil {
		c.mu.Lock()
		c.lastErr = err
		c.mu.Unlock()
		return nil, err
	}

	// recorded before the refresh so the refreshed snapshot cannot re-submit the same set
	c.mu.Lock()
	c.lastSubmittedKey = cardKey
	c.lastErr = nil
	c.mu.Unlock()

	log.Info("reveal shares confirmed", zap.String("tx", receipt.TxHash.Hex()))
	if c.refresh != nil {
		if _, err := c.refresh.Refresh(ctx); err != nil {
			log.Warn("refresh after reveal failed", zap.Error(err))
		}
	}
	return receipt, nil
}

func (c *Coordinator) checkLocked(snap *ledger.Snapshot, pending []uint8, cardKey string) error {
	if c.inFlight {
		return appErr.ErrSubmissionInFlight
	}
	if len(pending) == 0 {
		return appErr.ErrNothingPending
	}
	if c.writer.Signer() == (common.Address{}) {
		return appErr.ErrWalletNotConnected
	}
	if cardKey == c.lastSubmittedKey {
		return appErr.ErrAlreadySubmitted
	}
	if len(snap.Deck) == 0 {
		return appErr.ErrDeckNotReady
	}
	for _, idx := range pending {
		if _, ok := snap.DeckCard(idx); !ok {
			return fmt.Errorf("card %d: %w", idx, appErr.ErrDeckNotReady)
		}
	}
	return nil
}

func (c *Coordinator) submit(ctx context.Context, snap *ledger.Snapshot, pending []uint8) (*ledger.Receipt, error) {
	self := c.writer.Signer()
	key, err := c.keys.GetKey(ctx, self)
	if err != nil {
		return nil, err
	}

	masked := make([]cards.MaskedCard, len(pending))
	for i, idx := range pending {
		masked[i], _ = snap.DeckCard(idx)
	}

	shares, err := c.engine.RevealShares(ctx, masked, key.SK)
	if err != nil {
		return nil, err
	}

	tokens := make([]ledger.RevealToken, len(shares))
	for i, s := range shares {
		tokens[i] = ledger.RevealToken{Player: self, Share: s.Card}
	}
	return c.writer.AddRevealTokens(ctx, pending, tokens)
}
