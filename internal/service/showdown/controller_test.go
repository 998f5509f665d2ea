package showdown_test

import (
	"context"
	"errors"
	"testing"

	"zkpoker-client/internal/cards"
	"zkpoker-client/internal/service/hand"
	"zkpoker-client/internal/service/ledger"
	"zkpoker-client/internal/service/ledger/ledgertest"
	"zkpoker-client/internal/service/showdown"
	appErr "zkpoker-client/pkg/errors"

	"github.com/ethereum/go-ethereum/common"
)

var (
	gameAddr = common.HexToAddress("0x00000000000000000000000000000000000000C0")
	alice    = common.HexToAddress("0x00000000000000000000000000000000000000A1")
)

func setup(t *testing.T) (*ledgertest.Fake, *showdown.Controller) {
	t.Helper()
	fake := ledgertest.New(gameAddr, alice)
	fake.Update(func(s *ledger.Snapshot) {
		s.TotalPlayers = 2
		s.TotalShuffles = 2
		s.GameStarted = true
		s.CurrentRound = ledger.RoundEnd
		s.IsPlayer = true
		s.CommunityCards = []uint8{10, 11, 12, 13, 14}
	})
	reader := ledger.NewReader(fake, alice, nil, ledger.ReaderConfig{})
	return fake, showdown.New(fake, reader)
}

func read(t *testing.T, fake *ledgertest.Fake) *ledger.Snapshot {
	t.Helper()
	snap, err := fake.ReadSnapshot(context.Background(), alice)
	if err != nil {
		t.Fatalf("read snapshot failed: %v", err)
	}
	return snap
}

func TestTwoCardSelectionRejectedLocally(t *testing.T) {
	fake, ctrl := setup(t)
	if _, err := ctrl.Toggle(0); err != nil {
		t.Fatalf("toggle failed: %v", err)
	}
	if _, err := ctrl.Toggle(2); err != nil {
		t.Fatalf("toggle failed: %v", err)
	}

	if _, err := ctrl.Submit(context.Background(), read(t, fake)); !errors.Is(err, appErr.ErrSelectionSize) {
		t.Fatalf("expected selection size error, got %v", err)
	}
	if len(fake.Txs) != 0 {
		t.Fatalf("expected no transaction, got %+v", fake.Txs)
	}
}

func TestThreeCardSelectionSubmitsDeckIndices(t *testing.T) {
	fake, ctrl := setup(t)
	for _, p := range []int{4, 0, 2} {
		if _, err := ctrl.Toggle(p); err != nil {
			t.Fatalf("toggle %d failed: %v", p, err)
		}
	}
	if _, err := ctrl.Toggle(3); !errors.Is(err, appErr.ErrSelectionFull) {
		t.Fatalf("expected fourth card refused, got %v", err)
	}

	if _, err := ctrl.Submit(context.Background(), read(t, fake)); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	writes := fake.Writes("ChooseCards")
	if len(writes) != 1 {
		t.Fatalf("expected one choose cards, got %d", len(writes))
	}
	if writes[0].Chosen != [3]uint8{10, 12, 14} {
		t.Fatalf("unexpected deck indices %v", writes[0].Chosen)
	}
	if len(ctrl.Selected()) != 0 {
		t.Fatalf("expected selection cleared after submit")
	}
}

func TestToggleRemovesAndValidates(t *testing.T) {
	_, ctrl := setup(t)
	ctrl.Toggle(1)
	sel, err := ctrl.Toggle(1)
	if err != nil || len(sel) != 0 {
		t.Fatalf("expected toggle to deselect, got %v %v", sel, err)
	}
	if _, err := ctrl.Toggle(5); !errors.Is(err, appErr.ErrInvalidPosition) {
		t.Fatalf("expected invalid position, got %v", err)
	}
	if err := ctrl.Select([]int{1, 1}); !errors.Is(err, appErr.ErrDuplicateSelection) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	if err := showdown.Validate([]int{0, 1, 2}); err != nil {
		t.Fatalf("expected valid selection, got %v", err)
	}
}

func TestSubmitOutsideShowdown(t *testing.T) {
	fake, ctrl := setup(t)
	fake.Update(func(s *ledger.Snapshot) { s.CurrentRound = ledger.RoundRiver })
	if err := ctrl.Select([]int{0, 1, 2}); err != nil {
		t.Fatalf("select failed: %v", err)
	}
	if _, err := ctrl.Submit(context.Background(), read(t, fake)); !errors.Is(err, appErr.ErrWrongStage) {
		t.Fatalf("expected wrong stage, got %v", err)
	}
}

func TestSuggestPicksStrongestHand(t *testing.T) {
	h := hand.Hand{
		// As Ah
		Hole: []cards.Card{12, 25},
		// Ad Kd Kh 2c 7h
		Community: []cards.Card{38, 37, 24, 39, 18},
	}
	pick, name, err := showdown.Suggest(h)
	if err != nil {
		t.Fatalf("suggest failed: %v", err)
	}
	if len(pick) != 3 || pick[0] != 0 || pick[1] != 1 || pick[2] != 2 {
		t.Fatalf("expected full house selection, got %v", pick)
	}
	if name == "" {
		t.Fatalf("expected hand name")
	}

	preview, err := showdown.Preview(h, []int{3, 4, 0})
	if err != nil {
		t.Fatalf("preview failed: %v", err)
	}
	if preview == name {
		t.Fatalf("expected weaker selection to differ from best, both %q", name)
	}

	h.Community[1] = cards.Unknown
	if _, _, err := showdown.Suggest(h); !errors.Is(err, appErr.ErrCardsNotRevealed) {
		t.Fatalf("expected unrevealed error, got %v", err)
	}
}
