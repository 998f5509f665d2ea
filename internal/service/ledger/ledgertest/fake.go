// Package ledgertest provides an in-memory game contract for tests.
package ledgertest

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"zkpoker-client/internal/cards"
	"zkpoker-client/internal/service/ledger"

	"github.com/ethereum/go-ethereum/common"
)

// Tx is one recorded write.
type Tx struct {
	Method  string
	Indices []uint8
	Tokens  []ledger.RevealToken
	Amount  *big.Int
	Deck    []cards.MaskedCard
	PKC     []cards.Hex
	Chosen  [3]uint8
}

// Fake is a scriptable game contract. State holds the fields returned by
// ReadSnapshot; Self is filled in per read.
type Fake struct {
	mu sync.Mutex

	addr   common.Address
	signer common.Address
	State  ledger.Snapshot
	Key    cards.Point
	Tokens map[uint8][]ledger.RevealToken
	Result []ledger.PlayerResult
	Seated map[common.Address]bool

	// Errs fails the named method.
	Errs map[string]error
	// Gate, when set, blocks writes until it is closed or receives.
	Gate chan struct{}
	// OnWrite runs under the lock after a successful write to mutate State.
	OnWrite func(f *Fake, tx Tx)

	Txs   []Tx
	Reads int
}

var _ ledger.Game = (*Fake)(nil)

func New(addr, signer common.Address) *Fake {
	return &Fake{
		addr:   addr,
		signer: signer,
		Tokens: make(map[uint8][]ledger.RevealToken),
		Errs:   make(map[string]error),
		Seated: make(map[common.Address]bool),
		State: ledger.Snapshot{
			HighestBet:   new(big.Int),
			SelfBet:      new(big.Int),
			Pot:          new(big.Int),
			WinnerAmount: new(big.Int),
		},
		Key: cards.Point{"0xaa", "0xbb"},
	}
}

// Update mutates State under the lock.
func (f *Fake) Update(fn func(s *ledger.Snapshot)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(&f.State)
}

func (f *Fake) SetSigner(addr common.Address) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signer = addr
}

func (f *Fake) Writes(method string) []Tx {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Tx
	for _, tx := range f.Txs {
		if tx.Method == method {
			out = append(out, tx)
		}
	}
	return out
}

func (f *Fake) ReadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Reads
}

func (f *Fake) Address() common.Address { return f.addr }

func (f *Fake) Signer() common.Address {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.signer
}

func (f *Fake) ReadSnapshot(ctx context.Context, self common.Address) (*ledger.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.Errs["ReadSnapshot"]; err != nil {
		return nil, err
	}
	f.Reads++
	snap := f.State
	snap.Contract = f.addr
	snap.Self = self
	snap.HighestBet = new(big.Int).Set(f.State.HighestBet)
	snap.SelfBet = new(big.Int).Set(f.State.SelfBet)
	snap.Pot = new(big.Int).Set(f.State.Pot)
	snap.WinnerAmount = new(big.Int).Set(f.State.WinnerAmount)
	snap.Deck = append([]cards.MaskedCard(nil), f.State.Deck...)
	snap.PendingHole = append([]uint8(nil), f.State.PendingHole...)
	snap.PendingCommunity = append([]uint8(nil), f.State.PendingCommunity...)
	snap.PlayerCards = append([]uint8(nil), f.State.PlayerCards...)
	snap.CommunityCards = append([]uint8(nil), f.State.CommunityCards...)
	snap.ReadAt = time.Now()
	return &snap, nil
}

func (f *Fake) TotalShuffles(ctx context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.Errs["TotalShuffles"]; err != nil {
		return 0, err
	}
	return f.State.TotalShuffles, nil
}

// IsPlayer reports State.IsPlayer for the signer and Seated for anyone else.
func (f *Fake) IsPlayer(ctx context.Context, addr common.Address) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.Errs["IsPlayer"]; err != nil {
		return false, err
	}
	if addr == f.signer {
		return f.State.IsPlayer, nil
	}
	return f.Seated[addr], nil
}

func (f *Fake) GameKey(ctx context.Context) (cards.Point, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.Errs["GameKey"]; err != nil {
		return cards.Point{}, err
	}
	return f.Key, nil
}

func (f *Fake) Deck(ctx context.Context) ([]cards.MaskedCard, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.Errs["Deck"]; err != nil {
		return nil, err
	}
	return append([]cards.MaskedCard(nil), f.State.Deck...), nil
}

func (f *Fake) RevealTokens(ctx context.Context, cardIndex uint8) ([]ledger.RevealToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.Errs["RevealTokens"]; err != nil {
		return nil, err
	}
	return append([]ledger.RevealToken(nil), f.Tokens[cardIndex]...), nil
}

func (f *Fake) Results(ctx context.Context) ([]ledger.PlayerResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.Errs["Results"]; err != nil {
		return nil, err
	}
	return append([]ledger.PlayerResult(nil), f.Result...), nil
}

func (f *Fake) write(ctx context.Context, tx Tx) (*ledger.Receipt, error) {
	f.mu.Lock()
	gate := f.Gate
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.Errs[tx.Method]; err != nil {
		return nil, err
	}
	f.Txs = append(f.Txs, tx)
	if f.OnWrite != nil {
		f.OnWrite(f, tx)
	}
	return &ledger.Receipt{
		TxHash:      common.BytesToHash([]byte(fmt.Sprintf("%s-%d", tx.Method, len(f.Txs)))),
		BlockNumber: uint64(len(f.Txs)),
	}, nil
}

func (f *Fake) InitShuffle(ctx context.Context, pkc []cards.Hex, deck []cards.MaskedCard) (*ledger.Receipt, error) {
	return f.write(ctx, Tx{Method: "InitShuffle", PKC: pkc, Deck: deck})
}

func (f *Fake) Shuffle(ctx context.Context, deck []cards.MaskedCard) (*ledger.Receipt, error) {
	return f.write(ctx, Tx{Method: "Shuffle", Deck: deck})
}

func (f *Fake) AddRevealTokens(ctx context.Context, indices []uint8, tokens []ledger.RevealToken) (*ledger.Receipt, error) {
	return f.write(ctx, Tx{Method: "AddRevealTokens", Indices: indices, Tokens: tokens})
}

func (f *Fake) PlaceBet(ctx context.Context, amount *big.Int) (*ledger.Receipt, error) {
	return f.write(ctx, Tx{Method: "PlaceBet", Amount: new(big.Int).Set(amount)})
}

func (f *Fake) Fold(ctx context.Context) (*ledger.Receipt, error) {
	return f.write(ctx, Tx{Method: "Fold"})
}

func (f *Fake) ForceFold(ctx context.Context) (*ledger.Receipt, error) {
	return f.write(ctx, Tx{Method: "ForceFold"})
}

func (f *Fake) DeclareWinner(ctx context.Context) (*ledger.Receipt, error) {
	return f.write(ctx, Tx{Method: "DeclareWinner"})
}

func (f *Fake) ChooseCards(ctx context.Context, indices [3]uint8) (*ledger.Receipt, error) {
	return f.write(ctx, Tx{Method: "ChooseCards", Chosen: indices})
}

func (f *Fake) JoinGame(ctx context.Context, publicKey cards.Point) (*ledger.Receipt, error) {
	return f.write(ctx, Tx{Method: "JoinGame"})
}

func (f *Fake) StartGame(ctx context.Context) (*ledger.Receipt, error) {
	return f.write(ctx, Tx{Method: "StartGame"})
}

// Dialer serves pre-registered fakes.
type Dialer struct {
	mu      sync.Mutex
	games   map[common.Address]*Fake
	Created []common.Address
	Signer  common.Address
}

func NewDialer(signer common.Address) *Dialer {
	return &Dialer{games: make(map[common.Address]*Fake), Signer: signer}
}

// Get returns the fake registered or created at addr.
func (d *Dialer) Get(addr common.Address) *Fake {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.games[addr]
}

func (d *Dialer) Add(g *Fake) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.games[g.Address()] = g
}

func (d *Dialer) Game(addr common.Address) (ledger.Game, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	g, ok := d.games[addr]
	if !ok {
		return nil, fmt.Errorf("no contract at %s", addr.Hex())
	}
	return g, nil
}

func (d *Dialer) Factory() (ledger.Factory, error) { return d, nil }

func (d *Dialer) CreateGame(ctx context.Context, salt [32]byte, revealVerifier common.Address, publicKey cards.Point) (common.Address, *ledger.Receipt, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	addr := common.BytesToAddress(salt[:20])
	g := New(addr, d.Signer)
	g.State.TotalPlayers = 1
	g.State.IsPlayer = true
	d.games[addr] = g
	d.Created = append(d.Created, addr)
	return addr, &ledger.Receipt{TxHash: common.BytesToHash(salt[:])}, nil
}

func (d *Dialer) Games(ctx context.Context) ([]common.Address, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]common.Address(nil), d.Created...), nil
}
