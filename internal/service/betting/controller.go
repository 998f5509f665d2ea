// Package betting validates turn actions locally and submits them one at a time.
package betting

import (
	"context"
	"math/big"
	"sync"

	"zkpoker-client/internal/service/ledger"
	"zkpoker-client/internal/service/stage"
	appErr "zkpoker-client/pkg/errors"
	"zkpoker-client/pkg/logger"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

type Clock interface {
	ForceFoldOfferable(self common.Address) bool
}

type Refresher interface {
	Refresh(ctx context.Context) (*ledger.Snapshot, error)
}

// Options is what the local player may do against a snapshot.
type Options struct {
	MyTurn       bool     `json:"myTurn"`
	CallAmount   *big.Int `json:"callAmount"`
	CanCheck     bool     `json:"canCheck"`
	CanCall      bool     `json:"canCall"`
	CanBet       bool     `json:"canBet"`
	CanFold      bool     `json:"canFold"`
	CanForceFold bool     `json:"canForceFold"`
	// LastOpponent warns that folding now hands the pot to the only other player.
	LastOpponent bool `json:"lastOpponent"`
}

// CallAmount is max(0, highest bet - own bet).
func CallAmount(snap *ledger.Snapshot) *big.Int {
	if snap == nil {
		return new(big.Int)
	}
	highest, self, _ := snap.Amounts()
	diff := highest.Sub(highest, self)
	if diff.Sign() < 0 {
		return new(big.Int)
	}
	return diff
}

type Controller struct {
	game    ledger.Writer
	clock   Clock
	refresh Refresher
	log     *zap.Logger

	mu       sync.Mutex
	inFlight string
}

func New(game ledger.Writer, clock Clock, refresh Refresher) *Controller {
	return &Controller{
		game:    game,
		clock:   clock,
		refresh: refresh,
		log:     logger.Log.With(zap.String("component", "betting")),
	}
}

func (c *Controller) Options(snap *ledger.Snapshot) Options {
	call := CallAmount(snap)
	turn := stage.Resolve(snap) == stage.Betting && snap.IsMyTurn() && snap.IsPlayer
	opts := Options{
		MyTurn:     turn,
		CallAmount: call,
		CanCheck:   turn && call.Sign() == 0,
		CanCall:    turn && call.Sign() > 0,
		CanBet:     turn,
		CanFold:    turn,
	}
	if snap != nil {
		opts.CanForceFold = forceFoldStage(snap) && snap.IsPlayer && c.clock.ForceFoldOfferable(snap.Self)
		opts.LastOpponent = snap.IsPlayer && snap.ActivePlayers() == 2
	}
	return opts
}

func forceFoldStage(snap *ledger.Snapshot) bool {
	switch stage.Resolve(snap) {
	case stage.Shuffle, stage.Betting, stage.Showdown:
		return true
	default:
		return false
	}
}

func (c *Controller) requireTurn(snap *ledger.Snapshot) error {
	if c.game.Signer() == (common.Address{}) {
		return appErr.ErrWalletNotConnected
	}
	if stage.Resolve(snap) != stage.Betting {
		return appErr.ErrWrongStage
	}
	if !snap.IsPlayer || !snap.IsMyTurn() {
		return appErr.ErrNotYourTurn
	}
	return nil
}

// Bet places amount, which must cover the call amount. Calling is a bet of
// exactly the call amount; anything above it raises.
func (c *Controller) Bet(ctx context.Context, snap *ledger.Snapshot, amount *big.Int) (*ledger.Receipt, error) {
	if err := c.requireTurn(snap); err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, appErr.ErrInvalidAmount
	}
	if amount.Cmp(CallAmount(snap)) < 0 {
		return nil, appErr.ErrBetTooLow
	}
	value := new(big.Int).Set(amount)
	return c.submit(ctx, "bet", func() (*ledger.Receipt, error) {
		return c.game.PlaceBet(ctx, value)
	}, zap.String("amount", value.String()))
}

func (c *Controller) Call(ctx context.Context, snap *ledger.Snapshot) (*ledger.Receipt, error) {
	if err := c.requireTurn(snap); err != nil {
		return nil, err
	}
	call := CallAmount(snap)
	if call.Sign() == 0 {
		return c.Check(ctx, snap)
	}
	return c.submit(ctx, "call", func() (*ledger.Receipt, error) {
		return c.game.PlaceBet(ctx, call)
	}, zap.String("amount", call.String()))
}

// Check is a zero bet and is only valid when nothing is owed.
func (c *Controller) Check(ctx context.Context, snap *ledger.Snapshot) (*ledger.Receipt, error) {
	if err := c.requireTurn(snap); err != nil {
		return nil, err
	}
	if CallAmount(snap).Sign() > 0 {
		return nil, appErr.ErrCannotCheck
	}
	return c.submit(ctx, "check", func() (*ledger.Receipt, error) {
		return c.game.PlaceBet(ctx, new(big.Int))
	})
}

func (c *Controller) Fold(ctx context.Context, snap *ledger.Snapshot) (*ledger.Receipt, error) {
	if err := c.requireTurn(snap); err != nil {
		return nil, err
	}
	return c.submit(ctx, "fold", func() (*ledger.Receipt, error) {
		return c.game.Fold(ctx)
	})
}

// ForceFold removes the stalled player once the action clock has run out.
// The ledger re-checks the deadline.
func (c *Controller) ForceFold(ctx context.Context, snap *ledger.Snapshot) (*ledger.Receipt, error) {
	if c.game.Signer() == (common.Address{}) {
		return nil, appErr.ErrWalletNotConnected
	}
	if snap == nil || !forceFoldStage(snap) {
		return nil, appErr.ErrWrongStage
	}
	if !snap.IsPlayer || !c.clock.ForceFoldOfferable(snap.Self) {
		return nil, appErr.ErrForceFoldNotReady
	}
	return c.submit(ctx, "force-fold", func() (*ledger.Receipt, error) {
		return c.game.ForceFold(ctx)
	}, zap.String("stalled", snap.NextPlayer.Hex()))
}

func (c *Controller) submit(ctx context.Context, action string, send func() (*ledger.Receipt, error), fields ...zap.Field) (*ledger.Receipt, error) {
	c.mu.Lock()
	if c.inFlight != "" {
		c.mu.Unlock()
		return nil, appErr.ErrActionInFlight
	}
	c.inFlight = action
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.inFlight = ""
		c.mu.Unlock()
	}()

	log := c.log.With(append(fields, zap.String("action", action))...)
	receipt, err := send()
	if err != nil {
		log.Warn("action rejected", zap.Error(err))
		return nil, err
	}
	log.Info("action confirmed", zap.String("tx", receipt.TxHash.Hex()))

	if c.refresh != nil {
		if _, err := c.refresh.Refresh(ctx); err != nil {
			log.Warn("refresh after action failed", zap.Error(err))
		}
	}
	return receipt, nil
}

// Pending names the action currently awaiting confirmation, or "".
func (c *Controller) Pending() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}
