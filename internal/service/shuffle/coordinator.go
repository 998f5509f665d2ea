// Package shuffle performs this player's turn in the joint deck shuffle.
package shuffle

import (
	"context"
	"sync"

	"zkpoker-client/internal/cards"
	"zkpoker-client/internal/service/engine"
	"zkpoker-client/internal/service/ledger"
	"zkpoker-client/internal/service/stage"
	appErr "zkpoker-client/pkg/errors"
	"zkpoker-client/pkg/logger"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

type KeySource interface {
	GetKey(ctx context.Context, addr common.Address) (engine.Key, error)
}

type Refresher interface {
	Refresh(ctx context.Context) (*ledger.Snapshot, error)
}

type Coordinator struct {
	game    ledger.Game
	engine  engine.Gateway
	keys    KeySource
	refresh Refresher
	log     *zap.Logger

	mu       sync.Mutex
	inFlight bool
}

func New(game ledger.Game, gw engine.Gateway, keys KeySource, refresh Refresher) *Coordinator {
	return &Coordinator{
		game:    game,
		engine:  gw,
		keys:    keys,
		refresh: refresh,
		log:     logger.Log.With(zap.String("contract", game.Address().Hex())),
	}
}

func (c *Coordinator) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

// Shuffle contributes one shuffle. The first shuffler masks a fresh deck
// under the joint key and publishes the key refresh with it; everyone after
// re-shuffles the deck currently on the ledger. Ordering between players is
// enforced by the ledger, and a rejection is returned as is.
func (c *Coordinator) Shuffle(ctx context.Context, snap *ledger.Snapshot) (*ledger.Receipt, error) {
	if stage.Resolve(snap) != stage.Shuffle {
		return nil, appErr.ErrWrongStage
	}
	if snap.SelfShuffled {
		return nil, appErr.ErrAlreadyShuffled
	}
	self := c.game.Signer()
	if self == (common.Address{}) {
		return nil, appErr.ErrWalletNotConnected
	}

	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return nil, appErr.ErrActionInFlight
	}
	c.inFlight = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.inFlight = false
		c.mu.Unlock()
	}()

	if _, err := c.keys.GetKey(ctx, self); err != nil {
		return nil, err
	}

	total, err := c.game.TotalShuffles(ctx)
	if err != nil {
		return nil, err
	}
	gameKey, err := c.game.GameKey(ctx)
	if err != nil {
		return nil, err
	}

	var receipt *ledger.Receipt
	if total == 0 {
		receipt, err = c.first(ctx, gameKey)
	} else {
		receipt, err = c.next(ctx, gameKey)
	}
	if err != nil {
		return nil, err
	}

	c.log.Info("shuffle confirmed",
		zap.Uint64("position", total),
		zap.String("tx", receipt.TxHash.Hex()),
	)
	if _, err := c.refresh.Refresh(ctx); err != nil {
		c.log.Warn("refresh after shuffle failed", zap.Error(err))
	}
	return receipt, nil
}

func (c *Coordinator) first(ctx context.Context, gameKey cards.Point) (*ledger.Receipt, error) {
	pkc, masked, err := c.engine.InitMaskedDeck(ctx, gameKey)
	if err != nil {
		return nil, err
	}
	shuffled, err := c.engine.FirstShuffle(ctx, gameKey, masked)
	if err != nil {
		return nil, err
	}
	return c.game.InitShuffle(ctx, pkc, shuffled.Cards)
}

func (c *Coordinator) next(ctx context.Context, gameKey cards.Point) (*ledger.Receipt, error) {
	deck, err := c.game.Deck(ctx)
	if err != nil {
		return nil, err
	}
	if len(deck) == 0 {
		return nil, appErr.ErrDeckNotReady
	}
	shuffled, err := c.engine.Shuffle(ctx, deck, gameKey)
	if err != nil {
		return nil, err
	}
	return c.game.Shuffle(ctx, shuffled.Cards)
}
