package evm

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"zkpoker-client/internal/cards"
	"zkpoker-client/internal/service/ledger"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"
)

type pointABI struct {
	X *big.Int
	Y *big.Int
}

type playerABI struct {
	Addr      common.Address
	PublicKey pointABI
}

type revealTokenABI struct {
	Player common.Address
	Token  pointABI
}

func toPointABI(p cards.Point) (pointABI, error) {
	x, y, err := p.Big()
	if err != nil {
		return pointABI{}, err
	}
	return pointABI{X: x, Y: y}, nil
}

// Game is one deployed game contract.
type Game struct {
	client   *Client
	addr     common.Address
	contract *bind.BoundContract
}

var _ ledger.Game = (*Game)(nil)

func (g *Game) Address() common.Address { return g.addr }

func (g *Game) Signer() common.Address { return g.client.signer }

func (g *Game) call(opts *bind.CallOpts, method string, args ...interface{}) ([]interface{}, error) {
	var out []interface{}
	if err := g.contract.Call(opts, &out, method, args...); err != nil {
		return nil, fmt.Errorf("call %s: %w", method, decodeRevert(gameABI, err))
	}
	return out, nil
}

func (g *Game) callUint(opts *bind.CallOpts, method string, args ...interface{}) (*big.Int, error) {
	out, err := g.call(opts, method, args...)
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

func (g *Game) callUint64(opts *bind.CallOpts, method string, args ...interface{}) (uint64, error) {
	v, err := g.callUint(opts, method, args...)
	if err != nil {
		return 0, err
	}
	return v.Uint64(), nil
}

func (g *Game) callBool(opts *bind.CallOpts, method string, args ...interface{}) (bool, error) {
	out, err := g.call(opts, method, args...)
	if err != nil {
		return false, err
	}
	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

func (g *Game) callIndices(opts *bind.CallOpts, method string, args ...interface{}) ([]uint8, error) {
	out, err := g.call(opts, method, args...)
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new([]uint8)).(*[]uint8), nil
}

// ReadSnapshot reads every field at one block so the snapshot is consistent.
func (g *Game) ReadSnapshot(ctx context.Context, self common.Address) (*ledger.Snapshot, error) {
	head, err := g.client.eth.BlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("read block number: %w", err)
	}
	opts := &bind.CallOpts{Context: ctx, BlockNumber: new(big.Int).SetUint64(head)}

	snap := &ledger.Snapshot{Contract: g.addr, Self: self}
	eg, egCtx := errgroup.WithContext(ctx)
	opts.Context = egCtx

	eg.Go(func() (err error) { snap.TotalPlayers, err = g.callUint64(opts, "_totalPlayers"); return })
	eg.Go(func() (err error) { snap.TotalShuffles, err = g.callUint64(opts, "_totalShuffles"); return })
	eg.Go(func() (err error) { snap.TotalFolds, err = g.callUint64(opts, "_totalFolds"); return })
	eg.Go(func() (err error) { snap.GameStarted, err = g.callBool(opts, "_gameStarted"); return })
	eg.Go(func() (err error) { snap.HighestBet, err = g.callUint(opts, "_highestBet"); return })
	eg.Go(func() (err error) { snap.SelfBet, err = g.callUint(opts, "_bets", self); return })
	eg.Go(func() (err error) { snap.Pot, err = g.callUint(opts, "getPotAmount"); return })
	eg.Go(func() (err error) { snap.RemainingSeconds, err = g.callUint64(opts, "getTimeRemaining"); return })
	eg.Go(func() (err error) { snap.SelfShuffled, err = g.callBool(opts, "_shuffled", self); return })
	eg.Go(func() (err error) { snap.IsPlayer, err = g.callBool(opts, "_isPlayer", self); return })
	eg.Go(func() (err error) { snap.PlayerCards, err = g.callIndices(opts, "getPlayerCards", self); return })
	eg.Go(func() (err error) { snap.CommunityCards, err = g.callIndices(opts, "getCommunityCards"); return })
	eg.Go(func() error {
		out, err := g.call(opts, "_currentRound")
		if err != nil {
			return err
		}
		snap.CurrentRound = ledger.Round(*abi.ConvertType(out[0], new(uint8)).(*uint8))
		return nil
	})
	eg.Go(func() error {
		out, err := g.call(opts, "winner")
		if err != nil {
			return err
		}
		snap.Winner = *abi.ConvertType(out[0], new(common.Address)).(*common.Address)
		snap.WinnerAmount = *abi.ConvertType(out[1], new(*big.Int)).(**big.Int)
		return nil
	})
	eg.Go(func() error {
		out, err := g.call(opts, "nextPlayer")
		if err != nil {
			return err
		}
		p := *abi.ConvertType(out[0], new(playerABI)).(*playerABI)
		snap.NextPlayer = p.Addr
		return nil
	})
	eg.Go(func() error {
		deck, err := g.deck(opts)
		snap.Deck = deck
		return err
	})
	eg.Go(func() error {
		pending, err := g.callIndices(opts, "getPendingPlayerRevealTokens", self)
		snap.PendingHole = ledger.NonZero(pending)
		return err
	})
	eg.Go(func() error {
		pending, err := g.callIndices(opts, "getPendingCommunityRevealTokens", self)
		snap.PendingCommunity = ledger.NonZero(pending)
		return err
	})

	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	snap.ReadAt = time.Now()
	return snap, nil
}

func (g *Game) TotalShuffles(ctx context.Context) (uint64, error) {
	return g.callUint64(&bind.CallOpts{Context: ctx}, "_totalShuffles")
}

func (g *Game) IsPlayer(ctx context.Context, addr common.Address) (bool, error) {
	return g.callBool(&bind.CallOpts{Context: ctx}, "_isPlayer", addr)
}

func (g *Game) GameKey(ctx context.Context) (cards.Point, error) {
	out, err := g.call(&bind.CallOpts{Context: ctx}, "gameKey")
	if err != nil {
		return cards.Point{}, err
	}
	key := *abi.ConvertType(out[0], new([2]*big.Int)).(*[2]*big.Int)
	return cards.PointFromBig(key[0], key[1]), nil
}

func (g *Game) Deck(ctx context.Context) ([]cards.MaskedCard, error) {
	return g.deck(&bind.CallOpts{Context: ctx})
}

func (g *Game) deck(opts *bind.CallOpts) ([]cards.MaskedCard, error) {
	out, err := g.call(opts, "getDeck")
	if err != nil {
		return nil, err
	}
	raw := *abi.ConvertType(out[0], new([][4]*big.Int)).(*[][4]*big.Int)
	return cards.DeckFromBig(raw), nil
}

func (g *Game) RevealTokens(ctx context.Context, cardIndex uint8) ([]ledger.RevealToken, error) {
	out, err := g.call(&bind.CallOpts{Context: ctx}, "getRevealTokens", cardIndex)
	if err != nil {
		return nil, err
	}
	raw := *abi.ConvertType(out[0], new([]revealTokenABI)).(*[]revealTokenABI)
	tokens := make([]ledger.RevealToken, len(raw))
	for i, t := range raw {
		tokens[i] = ledger.RevealToken{Player: t.Player, Share: cards.PointFromBig(t.Token.X, t.Token.Y)}
	}
	return tokens, nil
}

func (g *Game) Results(ctx context.Context) ([]ledger.PlayerResult, error) {
	opts := &bind.CallOpts{Context: ctx}
	total, err := g.callUint64(opts, "_totalPlayers")
	if err != nil {
		return nil, err
	}

	results := make([]ledger.PlayerResult, total)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(4)
	for i := uint64(0); i < total; i++ {
		i := i
		eg.Go(func() error {
			opts := &bind.CallOpts{Context: egCtx}
			idx := new(big.Int).SetUint64(i)
			out, err := g.call(opts, "_players", idx)
			if err != nil {
				return err
			}
			addr := *abi.ConvertType(out[0], new(common.Address)).(*common.Address)
			revealed, err := g.callIndices(opts, "getPlayerRevealedCards", addr)
			if err != nil {
				return err
			}
			weight, err := g.callUint(opts, "_weights", idx)
			if err != nil {
				return err
			}
			results[i] = ledger.PlayerResult{Player: addr, Cards: revealed, Weight: weight}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("read results: %w", err)
	}
	return results, nil
}

func (g *Game) transact(ctx context.Context, method string, value *big.Int, args ...interface{}) (*ledger.Receipt, error) {
	r, err := g.client.transact(ctx, g.contract, gameABI, method, value, args...)
	if err != nil {
		return nil, err
	}
	return toReceipt(r), nil
}

func (g *Game) InitShuffle(ctx context.Context, pkc []cards.Hex, deck []cards.MaskedCard) (*ledger.Receipt, error) {
	pkcBig := make([]*big.Int, len(pkc))
	for i, h := range pkc {
		v, err := h.Big()
		if err != nil {
			return nil, fmt.Errorf("pkc %d: %w", i, err)
		}
		pkcBig[i] = v
	}
	deckBig, err := cards.DeckToBig(deck)
	if err != nil {
		return nil, err
	}
	return g.transact(ctx, "initShuffle", nil, pkcBig, deckBig)
}

func (g *Game) Shuffle(ctx context.Context, deck []cards.MaskedCard) (*ledger.Receipt, error) {
	deckBig, err := cards.DeckToBig(deck)
	if err != nil {
		return nil, err
	}
	return g.transact(ctx, "shuffle", nil, deckBig)
}

func (g *Game) AddRevealTokens(ctx context.Context, indices []uint8, tokens []ledger.RevealToken) (*ledger.Receipt, error) {
	raw := make([]revealTokenABI, len(tokens))
	for i, t := range tokens {
		share, err := toPointABI(t.Share)
		if err != nil {
			return nil, fmt.Errorf("reveal token %d: %w", i, err)
		}
		raw[i] = revealTokenABI{Player: t.Player, Token: share}
	}
	return g.transact(ctx, "addMultipleRevealTokens", nil, indices, raw)
}

func (g *Game) PlaceBet(ctx context.Context, amount *big.Int) (*ledger.Receipt, error) {
	return g.transact(ctx, "placeBet", amount, amount)
}

func (g *Game) Fold(ctx context.Context) (*ledger.Receipt, error) {
	return g.transact(ctx, "fold", nil)
}

func (g *Game) ForceFold(ctx context.Context) (*ledger.Receipt, error) {
	return g.transact(ctx, "forceFold", nil)
}

func (g *Game) DeclareWinner(ctx context.Context) (*ledger.Receipt, error) {
	return g.transact(ctx, "declareWinner", nil)
}

func (g *Game) ChooseCards(ctx context.Context, indices [3]uint8) (*ledger.Receipt, error) {
	return g.transact(ctx, "chooseCards", nil, indices)
}

func (g *Game) JoinGame(ctx context.Context, publicKey cards.Point) (*ledger.Receipt, error) {
	pk, err := toPointABI(publicKey)
	if err != nil {
		return nil, err
	}
	return g.transact(ctx, "joinGame", nil, playerABI{Addr: g.client.signer, PublicKey: pk})
}

func (g *Game) StartGame(ctx context.Context) (*ledger.Receipt, error) {
	return g.transact(ctx, "startGame", nil)
}
