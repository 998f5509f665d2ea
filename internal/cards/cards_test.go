package cards_test

import (
	"math/big"
	"testing"

	"zkpoker-client/internal/cards"
)

func TestCardIDMapping(t *testing.T) {
	cases := []struct {
		id   cards.Card
		suit cards.Suit
		rank cards.Rank
		str  string
	}{
		{0, cards.Spade, cards.Two, "2s"},
		{12, cards.Spade, cards.Ace, "As"},
		{13, cards.Heart, cards.Two, "2h"},
		{35, cards.Diamond, cards.Jack, "Jd"},
		{51, cards.Club, cards.Ace, "Ac"},
	}
	for _, tc := range cases {
		if tc.id.Suit() != tc.suit || tc.id.Rank() != tc.rank {
			t.Fatalf("card %d: expected suit=%d rank=%d, got suit=%d rank=%d", tc.id, tc.suit, tc.rank, tc.id.Suit(), tc.id.Rank())
		}
		if tc.id.String() != tc.str {
			t.Fatalf("card %d: expected %s, got %s", tc.id, tc.str, tc.id.String())
		}
	}
	if cards.Unknown.String() != "??" {
		t.Fatalf("unknown card should render as ??")
	}
}

func TestEval5OrdersHands(t *testing.T) {
	// four aces plus a deuce
	quads := [5]cards.Card{12, 25, 38, 51, 0}
	// 2s 4h 6d 8c Ts
	high := [5]cards.Card{0, 15, 30, 45, 8}

	q, err := cards.Eval5(quads)
	if err != nil {
		t.Fatalf("eval quads failed: %v", err)
	}
	h, err := cards.Eval5(high)
	if err != nil {
		t.Fatalf("eval high card failed: %v", err)
	}
	if q <= h {
		t.Fatalf("expected quads (%d) to outrank high card (%d)", q, h)
	}

	if _, err := cards.Eval5([5]cards.Card{0, 1, 2, 3, 52}); err == nil {
		t.Fatalf("expected error for out of range card")
	}
}

func TestHexRoundTrip(t *testing.T) {
	v, ok := new(big.Int).SetString("1f00000000000000000000000000000000000000000000000000000000000abc", 16)
	if !ok {
		t.Fatalf("bad fixture")
	}
	h := cards.HexFromBig(v)
	back, err := h.Big()
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if back.Cmp(v) != 0 {
		t.Fatalf("expected %s, got %s", v, back)
	}

	padded, err := cards.Hex("0x000000000000000000000000000000000000000000000000000000000000002a").Big()
	if err != nil || padded.Int64() != 42 {
		t.Fatalf("expected zero padded hex to parse as 42, got %v (%v)", padded, err)
	}

	if got := cards.HexFromBig(big.NewInt(42)); got != "0x000000000000000000000000000000000000000000000000000000000000002a" {
		t.Fatalf("expected 32-byte padded word, got %s", got)
	}

	if _, err := cards.Hex("0xzz").Big(); err == nil {
		t.Fatalf("expected error for invalid hex")
	}
}
