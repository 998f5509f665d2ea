// Package enginetest provides an in-memory engine for tests.
package enginetest

import (
	"context"
	"fmt"
	"sync"

	"zkpoker-client/internal/cards"
	"zkpoker-client/internal/service/engine"
)

// Fake returns deterministic values and records every call.
// A masked card decodes to the plaintext stored in Plain once at least
// NeedShares shares are supplied.
type Fake struct {
	mu sync.Mutex

	Err        error
	NeedShares int
	Plain      map[cards.Hex]cards.Card

	keys   int
	Calls  []string
	Shared [][]cards.MaskedCard
}

var _ engine.Gateway = (*Fake)(nil)

func New() *Fake {
	return &Fake{Plain: make(map[cards.Hex]cards.Card)}
}

// Deck builds n distinguishable masked cards.
func Deck(n int) []cards.MaskedCard {
	deck := make([]cards.MaskedCard, n)
	for i := range deck {
		deck[i] = cards.MaskedCard{
			cards.Hex(fmt.Sprintf("0x%x", 0x1000+i)),
			cards.Hex(fmt.Sprintf("0x%x", 0x2000+i)),
			cards.Hex(fmt.Sprintf("0x%x", 0x3000+i)),
			cards.Hex(fmt.Sprintf("0x%x", 0x4000+i)),
		}
	}
	return deck
}

func (f *Fake) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, call)
	return f.Err
}

func (f *Fake) CallCount(call string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.Calls {
		if c == call {
			n++
		}
	}
	return n
}

func (f *Fake) GenerateKey(ctx context.Context) (engine.Key, error) {
	if err := f.record("GenerateKey"); err != nil {
		return engine.Key{}, err
	}
	f.mu.Lock()
	f.keys++
	n := f.keys
	f.mu.Unlock()
	return engine.Key{
		SK:   cards.Hex(fmt.Sprintf("0x5e%02x", n)),
		PK:   cards.Hex(fmt.Sprintf("0x9c%02x", n)),
		PKXY: cards.Point{cards.Hex(fmt.Sprintf("0xa%02x", n)), cards.Hex(fmt.Sprintf("0xb%02x", n))},
	}, nil
}

func (f *Fake) InitMaskedDeck(ctx context.Context, gameKey cards.Point) ([]cards.Hex, []cards.MaskedCard, error) {
	if err := f.record("InitMaskedDeck"); err != nil {
		return nil, nil, err
	}
	return []cards.Hex{"0x1", "0x2"}, Deck(cards.DeckSize), nil
}

func (f *Fake) FirstShuffle(ctx context.Context, gameKey cards.Point, deck []cards.MaskedCard) (engine.Shuffled, error) {
	if err := f.record("FirstShuffle"); err != nil {
		return engine.Shuffled{}, err
	}
	return engine.Shuffled{Cards: reversed(deck), Proof: "0xproof"}, nil
}

func (f *Fake) Shuffle(ctx context.Context, deck []cards.MaskedCard, gameKey cards.Point) (engine.Shuffled, error) {
	if err := f.record("Shuffle"); err != nil {
		return engine.Shuffled{}, err
	}
	return engine.Shuffled{Cards: reversed(deck), Proof: "0xproof"}, nil
}

func (f *Fake) RevealShares(ctx context.Context, deck []cards.MaskedCard, sk cards.Hex) ([]engine.RevealShare, error) {
	if err := f.record("RevealShares"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.Shared = append(f.Shared, append([]cards.MaskedCard(nil), deck...))
	f.mu.Unlock()
	out := make([]engine.RevealShare, len(deck))
	for i, c := range deck {
		out[i] = engine.RevealShare{Card: cards.Point{c[0], sk}, Proof: "0xproof"}
	}
	return out, nil
}

func (f *Fake) Unmask(ctx context.Context, card cards.MaskedCard, sk cards.Hex, shares []cards.Point) (cards.Card, error) {
	if err := f.record("Unmask"); err != nil {
		return cards.Unknown, err
	}
	return f.plain(card, shares), nil
}

func (f *Fake) UnmaskBatch(ctx context.Context, deck []cards.MaskedCard, sk cards.Hex, shares [][]cards.Point) ([]cards.Card, error) {
	if err := f.record("UnmaskBatch"); err != nil {
		return nil, err
	}
	out := make([]cards.Card, len(deck))
	for i := range deck {
		out[i] = f.plain(deck[i], shares[i])
	}
	return out, nil
}

func (f *Fake) plain(card cards.MaskedCard, shares []cards.Point) cards.Card {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(shares) < f.NeedShares {
		return cards.Unknown
	}
	c, ok := f.Plain[card[0]]
	if !ok {
		return cards.Unknown
	}
	return c
}

func reversed(deck []cards.MaskedCard) []cards.MaskedCard {
	out := make([]cards.MaskedCard, len(deck))
	for i := range deck {
		out[len(deck)-1-i] = deck[i]
	}
	return out
}
