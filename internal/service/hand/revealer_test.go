package hand_test

import (
	"context"
	"errors"
	"testing"

	"zkpoker-client/internal/cards"
	"zkpoker-client/internal/service/engine"
	"zkpoker-client/internal/service/engine/enginetest"
	"zkpoker-client/internal/service/hand"
	"zkpoker-client/internal/service/ledger"
	"zkpoker-client/internal/service/ledger/ledgertest"

	"github.com/ethereum/go-ethereum/common"
)

var (
	gameAddr = common.HexToAddress("0x00000000000000000000000000000000000000C0")
	alice    = common.HexToAddress("0x00000000000000000000000000000000000000A1")
	bob      = common.HexToAddress("0x00000000000000000000000000000000000000B2")
	carol    = common.HexToAddress("0x00000000000000000000000000000000000000C3")
)

type staticKeys struct{}

func (staticKeys) GetKey(ctx context.Context, addr common.Address) (engine.Key, error) {
	return engine.Key{SK: "0x5e01"}, nil
}

func tokens(players ...common.Address) []ledger.RevealToken {
	out := make([]ledger.RevealToken, len(players))
	for i, p := range players {
		out[i] = ledger.RevealToken{Player: p, Share: cards.Point{"0x1", cards.Hex(p.Hex())}}
	}
	return out
}

func setup(t *testing.T) (*ledgertest.Fake, *enginetest.Fake, *hand.Revealer) {
	t.Helper()
	deck := enginetest.Deck(cards.DeckSize)
	fake := ledgertest.New(gameAddr, alice)
	fake.Update(func(s *ledger.Snapshot) {
		s.TotalPlayers = 3
		s.Deck = deck
		s.PlayerCards = []uint8{1, 2}
		s.CommunityCards = []uint8{4, 5, 6}
	})

	gw := enginetest.New()
	gw.NeedShares = 2
	// royal flush in spades once everything is open
	for idx, c := range map[int]cards.Card{1: 9, 2: 8, 4: 12, 5: 11, 6: 10} {
		gw.Plain[deck[idx][0]] = c
	}
	return fake, gw, hand.New(fake, gw, staticKeys{}, alice)
}

func read(t *testing.T, fake *ledgertest.Fake) *ledger.Snapshot {
	t.Helper()
	snap, err := fake.ReadSnapshot(context.Background(), alice)
	if err != nil {
		t.Fatalf("read snapshot failed: %v", err)
	}
	return snap
}

func TestHoleCardsIgnoreOwnToken(t *testing.T) {
	ctx := context.Background()
	fake, _, rev := setup(t)
	fake.Tokens[1] = tokens(alice, bob, carol)
	fake.Tokens[2] = tokens(alice, bob)

	h, err := rev.Reveal(ctx, read(t, fake))
	if err != nil {
		t.Fatalf("reveal failed: %v", err)
	}
	if h.Hole[0] != 9 {
		t.Fatalf("expected first hole card decrypted, got %v", h.Hole[0])
	}
	if h.Hole[1] != cards.Unknown {
		t.Fatalf("own token must not count toward a hole card, got %v", h.Hole[1])
	}
	if hand.Known(h.Hole) {
		t.Fatalf("expected hand to be incomplete")
	}
	if h.Description != "" {
		t.Fatalf("expected no description for partial hand, got %q", h.Description)
	}
}

func TestCommunityNeedsEveryToken(t *testing.T) {
	ctx := context.Background()
	fake, _, rev := setup(t)
	fake.Tokens[4] = tokens(alice, bob)
	fake.Tokens[5] = tokens(alice, bob, carol)

	h, err := rev.Reveal(ctx, read(t, fake))
	if err != nil {
		t.Fatalf("reveal failed: %v", err)
	}
	if h.Community[0] != cards.Unknown || h.Community[1] != 11 || h.Community[2] != cards.Unknown {
		t.Fatalf("unexpected community cards %v", h.Community)
	}
}

func TestResolvedCardsAreCached(t *testing.T) {
	ctx := context.Background()
	fake, gw, rev := setup(t)
	for _, idx := range []uint8{1, 2, 4, 5, 6} {
		fake.Tokens[idx] = tokens(alice, bob, carol)
	}

	h, err := rev.Reveal(ctx, read(t, fake))
	if err != nil {
		t.Fatalf("reveal failed: %v", err)
	}
	if !hand.Known(h.Hole) || !hand.Known(h.Community) {
		t.Fatalf("expected every card decrypted, got %+v", h)
	}
	if h.Description == "" {
		t.Fatalf("expected a hand description")
	}

	if _, err := rev.Reveal(ctx, read(t, fake)); err != nil {
		t.Fatalf("second reveal failed: %v", err)
	}
	if n := gw.CallCount("UnmaskBatch"); n != 1 {
		t.Fatalf("expected decrypted cards to be cached, got %d engine calls", n)
	}
}

func TestRevealSkipsIndexPadding(t *testing.T) {
	ctx := context.Background()
	fake, gw, rev := setup(t)
	fake.Update(func(s *ledger.Snapshot) {
		s.PlayerCards = []uint8{1, 2, 0}
		s.CommunityCards = []uint8{4, 5, 6, 0, 0}
	})
	for _, idx := range []uint8{1, 2, 4, 5, 6} {
		fake.Tokens[idx] = tokens(alice, bob, carol)
	}

	h, err := rev.Reveal(ctx, read(t, fake))
	if err != nil {
		t.Fatalf("reveal failed: %v", err)
	}
	if len(h.Hole) != 2 || len(h.Community) != 3 {
		t.Fatalf("expected padding dropped, got %+v", h)
	}
	if !hand.Known(h.Hole) || !hand.Known(h.Community) || h.Description == "" {
		t.Fatalf("expected a complete described hand, got %+v", h)
	}
	if n := gw.CallCount("UnmaskBatch"); n != 1 {
		t.Fatalf("expected one engine call, got %d", n)
	}
}

func TestRevealPropagatesReadError(t *testing.T) {
	fake, _, rev := setup(t)
	boom := errors.New("rpc down")
	fake.Errs["RevealTokens"] = boom

	if _, err := rev.Reveal(context.Background(), read(t, fake)); !errors.Is(err, boom) {
		t.Fatalf("expected read error, got %v", err)
	}
}
