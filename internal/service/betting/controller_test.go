package betting_test

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"zkpoker-client/internal/service/betting"
	"zkpoker-client/internal/service/clock"
	"zkpoker-client/internal/service/ledger"
	"zkpoker-client/internal/service/ledger/ledgertest"
	appErr "zkpoker-client/pkg/errors"

	"github.com/ethereum/go-ethereum/common"
)

var (
	gameAddr = common.HexToAddress("0x00000000000000000000000000000000000000C0")
	alice    = common.HexToAddress("0x00000000000000000000000000000000000000A1")
	bob      = common.HexToAddress("0x00000000000000000000000000000000000000B2")
)

func setup(t *testing.T, highest, own int64, next common.Address) (*ledgertest.Fake, *clock.Clock, *betting.Controller) {
	t.Helper()
	fake := ledgertest.New(gameAddr, alice)
	fake.Update(func(s *ledger.Snapshot) {
		s.TotalPlayers = 2
		s.TotalShuffles = 2
		s.GameStarted = true
		s.CurrentRound = ledger.RoundPreFlop
		s.HighestBet = big.NewInt(highest)
		s.SelfBet = big.NewInt(own)
		s.NextPlayer = next
		s.IsPlayer = true
	})
	clk := clock.New(time.Second)
	reader := ledger.NewReader(fake, alice, nil, ledger.ReaderConfig{})
	return fake, clk, betting.New(fake, clk, reader)
}

func read(t *testing.T, fake *ledgertest.Fake) *ledger.Snapshot {
	t.Helper()
	snap, err := fake.ReadSnapshot(context.Background(), alice)
	if err != nil {
		t.Fatalf("read snapshot failed: %v", err)
	}
	return snap
}

func TestCallAmountNeverNegative(t *testing.T) {
	cases := []struct {
		highest, own, want int64
	}{
		{100, 0, 100},
		{100, 40, 60},
		{100, 100, 0},
		{50, 80, 0},
		{0, 0, 0},
	}
	for _, tc := range cases {
		snap := &ledger.Snapshot{HighestBet: big.NewInt(tc.highest), SelfBet: big.NewInt(tc.own)}
		got := betting.CallAmount(snap)
		if got.Cmp(big.NewInt(tc.want)) != 0 {
			t.Fatalf("highest=%d own=%d: expected %d, got %s", tc.highest, tc.own, tc.want, got)
		}
	}
	if betting.CallAmount(&ledger.Snapshot{}).Sign() != 0 {
		t.Fatalf("expected zero call amount for empty snapshot")
	}
}

func TestPreFlopFacingBet(t *testing.T) {
	ctx := context.Background()
	fake, _, ctrl := setup(t, 100, 0, alice)
	snap := read(t, fake)

	opts := ctrl.Options(snap)
	if opts.CallAmount.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("expected call amount 100, got %s", opts.CallAmount)
	}
	if opts.CanCheck || !opts.CanCall || !opts.MyTurn {
		t.Fatalf("unexpected options %+v", opts)
	}
	if !opts.LastOpponent {
		t.Fatalf("expected last-opponent warning with two active players")
	}

	if _, err := ctrl.Check(ctx, snap); !errors.Is(err, appErr.ErrCannotCheck) {
		t.Fatalf("expected cannot check, got %v", err)
	}
	if _, err := ctrl.Bet(ctx, snap, big.NewInt(99)); !errors.Is(err, appErr.ErrBetTooLow) {
		t.Fatalf("expected bet too low, got %v", err)
	}
	if len(fake.Txs) != 0 {
		t.Fatalf("expected no transaction for local rejections, got %+v", fake.Txs)
	}

	if _, err := ctrl.Call(ctx, snap); err != nil {
		t.Fatalf("call failed: %v", err)
	}
	bets := fake.Writes("PlaceBet")
	if len(bets) != 1 || bets[0].Amount.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("expected call for 100, got %+v", bets)
	}

	if _, err := ctrl.Bet(ctx, snap, big.NewInt(250)); err != nil {
		t.Fatalf("raise failed: %v", err)
	}
	if bets := fake.Writes("PlaceBet"); len(bets) != 2 || bets[1].Amount.Cmp(big.NewInt(250)) != 0 {
		t.Fatalf("expected raise to 250, got %+v", bets)
	}
}

func TestCheckWhenNothingOwed(t *testing.T) {
	ctx := context.Background()
	fake, _, ctrl := setup(t, 100, 100, alice)
	snap := read(t, fake)

	if opts := ctrl.Options(snap); !opts.CanCheck || opts.CanCall {
		t.Fatalf("expected check only, got %+v", opts)
	}
	if _, err := ctrl.Check(ctx, snap); err != nil {
		t.Fatalf("check failed: %v", err)
	}
	bets := fake.Writes("PlaceBet")
	if len(bets) != 1 || bets[0].Amount.Sign() != 0 {
		t.Fatalf("expected zero bet, got %+v", bets)
	}
}

func TestActionsRequireTurn(t *testing.T) {
	ctx := context.Background()
	fake, _, ctrl := setup(t, 100, 0, bob)
	snap := read(t, fake)

	if opts := ctrl.Options(snap); opts.MyTurn || opts.CanFold || opts.CanCall {
		t.Fatalf("expected no turn actions, got %+v", opts)
	}
	if _, err := ctrl.Fold(ctx, snap); !errors.Is(err, appErr.ErrNotYourTurn) {
		t.Fatalf("expected not your turn, got %v", err)
	}
	if _, err := ctrl.Bet(ctx, snap, big.NewInt(100)); !errors.Is(err, appErr.ErrNotYourTurn) {
		t.Fatalf("expected not your turn, got %v", err)
	}

	fake.Update(func(s *ledger.Snapshot) { s.CurrentRound = ledger.RoundEnd })
	if _, err := ctrl.Fold(ctx, read(t, fake)); !errors.Is(err, appErr.ErrWrongStage) {
		t.Fatalf("expected wrong stage, got %v", err)
	}
	if len(fake.Txs) != 0 {
		t.Fatalf("expected no transactions, got %+v", fake.Txs)
	}
}

func TestForceFoldGate(t *testing.T) {
	ctx := context.Background()
	fake, clk, ctrl := setup(t, 100, 0, bob)
	snap := read(t, fake)

	clk.Sync(5, bob)
	if _, err := ctrl.ForceFold(ctx, snap); !errors.Is(err, appErr.ErrForceFoldNotReady) {
		t.Fatalf("expected not ready, got %v", err)
	}

	clk.Sync(0, bob)
	if !ctrl.Options(snap).CanForceFold {
		t.Fatalf("expected force fold offered")
	}
	if _, err := ctrl.ForceFold(ctx, snap); err != nil {
		t.Fatalf("force fold failed: %v", err)
	}
	if n := len(fake.Writes("ForceFold")); n != 1 {
		t.Fatalf("expected one force fold, got %d", n)
	}

	clk.Sync(0, alice)
	if ctrl.Options(snap).CanForceFold {
		t.Fatalf("must not offer force fold against self")
	}
}

func TestSingleActionInFlight(t *testing.T) {
	ctx := context.Background()
	fake, _, ctrl := setup(t, 0, 0, alice)
	gate := make(chan struct{})
	fake.Gate = gate
	snap := read(t, fake)

	done := make(chan error, 1)
	go func() {
		_, err := ctrl.Fold(ctx, snap)
		done <- err
	}()

	deadline := time.Now().Add(2 * time.Second)
	for ctrl.Pending() == "" {
		if time.Now().After(deadline) {
			t.Fatalf("fold never started")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if _, err := ctrl.Check(ctx, snap); !errors.Is(err, appErr.ErrActionInFlight) {
		t.Fatalf("expected action in flight, got %v", err)
	}

	close(gate)
	if err := <-done; err != nil {
		t.Fatalf("fold failed: %v", err)
	}
	if n := len(fake.Txs); n != 1 {
		t.Fatalf("expected one transaction, got %d", n)
	}
}

func TestRejectionIsNotRetried(t *testing.T) {
	ctx := context.Background()
	fake, _, ctrl := setup(t, 100, 0, alice)
	fake.Errs["PlaceBet"] = &appErr.LedgerError{Reason: "InsufficientBet"}

	_, err := ctrl.Call(ctx, read(t, fake))
	if !errors.Is(err, appErr.ErrLedgerRejected) {
		t.Fatalf("expected ledger rejection, got %v", err)
	}
	if ctrl.Pending() != "" {
		t.Fatalf("expected idle after failure")
	}
	if len(fake.Txs) != 0 {
		t.Fatalf("expected no recorded transaction, got %+v", fake.Txs)
	}
}
