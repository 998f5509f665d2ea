package shuffle_test

import (
	"context"
	"errors"
	"testing"

	"zkpoker-client/internal/service/engine"
	"zkpoker-client/internal/service/engine/enginetest"
	"zkpoker-client/internal/service/ledger"
	"zkpoker-client/internal/service/ledger/ledgertest"
	"zkpoker-client/internal/service/shuffle"
	appErr "zkpoker-client/pkg/errors"

	"github.com/ethereum/go-ethereum/common"
)

var (
	gameAddr = common.HexToAddress("0x00000000000000000000000000000000000000C0")
	alice    = common.HexToAddress("0x00000000000000000000000000000000000000A1")
)

type countingKeys struct{ calls int }

func (k *countingKeys) GetKey(ctx context.Context, addr common.Address) (engine.Key, error) {
	k.calls++
	return engine.Key{SK: "0x5e01"}, nil
}

func setup(t *testing.T, shuffles uint64) (*ledgertest.Fake, *enginetest.Fake, *countingKeys, *ledger.Reader, *shuffle.Coordinator) {
	t.Helper()
	fake := ledgertest.New(gameAddr, alice)
	fake.Update(func(s *ledger.Snapshot) {
		s.TotalPlayers = 3
		s.TotalShuffles = shuffles
		s.GameStarted = true
		if shuffles > 0 {
			s.Deck = enginetest.Deck(52)
		}
	})
	fake.OnWrite = func(f *ledgertest.Fake, tx ledgertest.Tx) {
		f.State.TotalShuffles++
		f.State.SelfShuffled = true
		f.State.Deck = tx.Deck
	}
	gw := enginetest.New()
	keys := &countingKeys{}
	reader := ledger.NewReader(fake, alice, nil, ledger.ReaderConfig{})
	return fake, gw, keys, reader, shuffle.New(fake, gw, keys, reader)
}

func read(t *testing.T, fake *ledgertest.Fake) *ledger.Snapshot {
	t.Helper()
	snap, err := fake.ReadSnapshot(context.Background(), alice)
	if err != nil {
		t.Fatalf("read snapshot failed: %v", err)
	}
	return snap
}

func TestFirstShuffleInitializesDeck(t *testing.T) {
	ctx := context.Background()
	fake, gw, keys, reader, coord := setup(t, 0)

	if _, err := coord.Shuffle(ctx, read(t, fake)); err != nil {
		t.Fatalf("shuffle failed: %v", err)
	}

	writes := fake.Writes("InitShuffle")
	if len(writes) != 1 || len(fake.Writes("Shuffle")) != 0 {
		t.Fatalf("expected one init shuffle, got %+v", fake.Txs)
	}
	if len(writes[0].PKC) == 0 || len(writes[0].Deck) != 52 {
		t.Fatalf("unexpected init shuffle payload %+v", writes[0])
	}
	if gw.CallCount("InitMaskedDeck") != 1 || gw.CallCount("FirstShuffle") != 1 || gw.CallCount("Shuffle") != 0 {
		t.Fatalf("unexpected engine calls %v", gw.Calls)
	}
	if keys.calls != 1 {
		t.Fatalf("expected key to be ensured, got %d lookups", keys.calls)
	}
	if snap := reader.Latest(); snap == nil || !snap.SelfShuffled {
		t.Fatalf("expected refreshed snapshot after shuffle")
	}
}

func TestLaterShuffleReshufflesLedgerDeck(t *testing.T) {
	ctx := context.Background()
	fake, gw, _, _, coord := setup(t, 1)
	before := read(t, fake).Deck

	if _, err := coord.Shuffle(ctx, read(t, fake)); err != nil {
		t.Fatalf("shuffle failed: %v", err)
	}

	writes := fake.Writes("Shuffle")
	if len(writes) != 1 || len(fake.Writes("InitShuffle")) != 0 {
		t.Fatalf("expected one shuffle, got %+v", fake.Txs)
	}
	if writes[0].Deck[0] != before[len(before)-1] {
		t.Fatalf("expected engine output to be submitted")
	}
	if gw.CallCount("InitMaskedDeck") != 0 {
		t.Fatalf("did not expect a fresh deck")
	}
}

func TestShuffleRefusals(t *testing.T) {
	ctx := context.Background()

	t.Run("already shuffled", func(t *testing.T) {
		fake, gw, _, _, coord := setup(t, 1)
		fake.Update(func(s *ledger.Snapshot) { s.SelfShuffled = true })
		if _, err := coord.Shuffle(ctx, read(t, fake)); !errors.Is(err, appErr.ErrAlreadyShuffled) {
			t.Fatalf("expected already shuffled, got %v", err)
		}
		if len(gw.Calls) != 0 {
			t.Fatalf("expected no engine calls, got %v", gw.Calls)
		}
	})

	t.Run("wrong stage", func(t *testing.T) {
		fake, _, _, _, coord := setup(t, 3)
		if _, err := coord.Shuffle(ctx, read(t, fake)); !errors.Is(err, appErr.ErrWrongStage) {
			t.Fatalf("expected wrong stage, got %v", err)
		}
	})

	t.Run("ledger rejects order", func(t *testing.T) {
		fake, _, _, _, coord := setup(t, 1)
		fake.Errs["Shuffle"] = &appErr.LedgerError{Reason: "NotYourTurnToShuffle"}
		_, err := coord.Shuffle(ctx, read(t, fake))
		if !errors.Is(err, appErr.ErrLedgerRejected) {
			t.Fatalf("expected ledger rejection, got %v", err)
		}
		if c := appErr.Classify(err); c.Kind != appErr.KindLedger || c.Retryable {
			t.Fatalf("unexpected classification %+v", c)
		}
		if coord.InFlight() {
			t.Fatalf("expected in-flight flag cleared")
		}
	})
}
