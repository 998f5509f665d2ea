// Package showdown holds the local choice of three community cards and submits it.
package showdown

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"zkpoker-client/internal/cards"
	"zkpoker-client/internal/service/hand"
	"zkpoker-client/internal/service/ledger"
	"zkpoker-client/internal/service/stage"
	appErr "zkpoker-client/pkg/errors"
	"zkpoker-client/pkg/logger"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

const (
	CommunitySize = 5
	ChooseSize    = 3
)

type Refresher interface {
	Refresh(ctx context.Context) (*ledger.Snapshot, error)
}

type Controller struct {
	game    ledger.Writer
	refresh Refresher
	log     *zap.Logger

	mu       sync.Mutex
	selected []int
	inFlight bool
}

func New(game ledger.Writer, refresh Refresher) *Controller {
	return &Controller{
		game:    game,
		refresh: refresh,
		log:     logger.Log.With(zap.String("component", "showdown")),
	}
}

// Validate accepts exactly three distinct community positions.
func Validate(positions []int) error {
	if len(positions) != ChooseSize {
		return appErr.ErrSelectionSize
	}
	return checkPositions(positions)
}

func checkPositions(positions []int) error {
	seen := make(map[int]bool, len(positions))
	for _, p := range positions {
		if p < 0 || p >= CommunitySize {
			return fmt.Errorf("position %d: %w", p, appErr.ErrInvalidPosition)
		}
		if seen[p] {
			return appErr.ErrDuplicateSelection
		}
		seen[p] = true
	}
	return nil
}

// Toggle adds or removes a community position; a fourth card is refused.
func (c *Controller) Toggle(pos int) ([]int, error) {
	if pos < 0 || pos >= CommunitySize {
		return nil, fmt.Errorf("position %d: %w", pos, appErr.ErrInvalidPosition)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, p := range c.selected {
		if p == pos {
			c.selected = append(c.selected[:i], c.selected[i+1:]...)
			return c.copyLocked(), nil
		}
	}
	if len(c.selected) >= ChooseSize {
		return nil, appErr.ErrSelectionFull
	}
	c.selected = append(c.selected, pos)
	return c.copyLocked(), nil
}

// Select replaces the selection wholesale.
func (c *Controller) Select(positions []int) error {
	if len(positions) > ChooseSize {
		return appErr.ErrSelectionFull
	}
	if err := checkPositions(positions); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selected = append([]int(nil), positions...)
	return nil
}

func (c *Controller) Selected() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.copyLocked()
}

func (c *Controller) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selected = nil
}

func (c *Controller) copyLocked() []int {
	out := append([]int(nil), c.selected...)
	sort.Ints(out)
	return out
}

// Submit sends the current selection as deck indices. Nothing reaches the
// ledger unless the selection is exactly three distinct positions.
func (c *Controller) Submit(ctx context.Context, snap *ledger.Snapshot) (*ledger.Receipt, error) {
	positions := c.Selected()
	if err := Validate(positions); err != nil {
		return nil, err
	}
	if c.game.Signer() == (common.Address{}) {
		return nil, appErr.ErrWalletNotConnected
	}
	if stage.Resolve(snap) != stage.Showdown {
		return nil, appErr.ErrWrongStage
	}
	if len(snap.CommunityCards) < CommunitySize {
		return nil, appErr.ErrCardsNotRevealed
	}

	var chosen [ChooseSize]uint8
	for i, p := range positions {
		chosen[i] = snap.CommunityCards[p]
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

	receipt, err := c.game.ChooseCards(ctx, chosen)
	if err != nil {
		c.log.Warn("choose cards rejected", zap.Ints("positions", positions), zap.Error(err))
		return nil, err
	}
	c.log.Info("community cards chosen",
		zap.Ints("positions", positions),
		zap.String("tx", receipt.TxHash.Hex()),
	)
	c.Clear()

	if c.refresh != nil {
		if _, err := c.refresh.Refresh(ctx); err != nil {
			c.log.Warn("refresh after choose cards failed", zap.Error(err))
		}
	}
	return receipt, nil
}

func five(h hand.Hand, positions []int) ([5]cards.Card, error) {
	var out [5]cards.Card
	if len(h.Hole) != 2 || !hand.Known(h.Hole) || len(h.Community) < CommunitySize {
		return out, appErr.ErrCardsNotRevealed
	}
	out[0], out[1] = h.Hole[0], h.Hole[1]
	for i, p := range positions {
		c := h.Community[p]
		if !c.Valid() {
			return out, appErr.ErrCardsNotRevealed
		}
		out[2+i] = c
	}
	return out, nil
}

// Preview names the hand the selection would make with the player's hole cards.
func Preview(h hand.Hand, positions []int) (string, error) {
	if err := Validate(positions); err != nil {
		return "", err
	}
	cs, err := five(h, positions)
	if err != nil {
		return "", err
	}
	return cards.Describe(cs[:])
}

// Suggest returns the strongest three-card choice and its name.
func Suggest(h hand.Hand) ([]int, string, error) {
	var (
		best      []int
		bestScore int16 = -1
	)
	for a := 0; a < CommunitySize; a++ {
		for b := a + 1; b < CommunitySize; b++ {
			for c := b + 1; c < CommunitySize; c++ {
				pick := []int{a, b, c}
				cs, err := five(h, pick)
				if err != nil {
					return nil, "", err
				}
				score, err := cards.Eval5(cs)
				if err != nil {
					return nil, "", err
				}
				if score > bestScore {
					best, bestScore = pick, score
				}
			}
		}
	}
	name, err := Preview(h, best)
	if err != nil {
		return nil, "", err
	}
	return best, name, nil
}
