package stage_test

import (
	"testing"

	"zkpoker-client/internal/service/ledger"
	"zkpoker-client/internal/service/stage"

	"github.com/ethereum/go-ethereum/common"
)

var winner = common.HexToAddress("0x00000000000000000000000000000000000000B2")

func TestResolveRules(t *testing.T) {
	cases := []struct {
		name string
		snap *ledger.Snapshot
		want stage.Stage
	}{
		{"nil snapshot", nil, stage.Waiting},
		{"single player", &ledger.Snapshot{TotalPlayers: 1, GameStarted: true, TotalShuffles: 1}, stage.Waiting},
		{"not started", &ledger.Snapshot{TotalPlayers: 3, TotalShuffles: 3}, stage.Waiting},
		{"shuffling", &ledger.Snapshot{TotalPlayers: 3, TotalShuffles: 1, GameStarted: true}, stage.Shuffle},
		{"no shuffles yet", &ledger.Snapshot{TotalPlayers: 2, GameStarted: true}, stage.Shuffle},
		{"preflop", &ledger.Snapshot{TotalPlayers: 2, TotalShuffles: 2, GameStarted: true, CurrentRound: ledger.RoundPreFlop}, stage.Betting},
		{"river", &ledger.Snapshot{TotalPlayers: 2, TotalShuffles: 2, GameStarted: true, CurrentRound: ledger.RoundRiver}, stage.Betting},
		{"showdown", &ledger.Snapshot{TotalPlayers: 2, TotalShuffles: 2, GameStarted: true, CurrentRound: ledger.RoundEnd}, stage.Showdown},
		{"ended", &ledger.Snapshot{TotalPlayers: 2, TotalShuffles: 2, GameStarted: true, CurrentRound: ledger.RoundEnd, Winner: winner}, stage.Ended},
		// the single-player rule outranks everything after it
		{"single player with winner", &ledger.Snapshot{TotalPlayers: 1, TotalShuffles: 1, GameStarted: true, CurrentRound: ledger.RoundEnd, Winner: winner}, stage.Waiting},
		// shuffle mismatch outranks the round
		{"shuffle mismatch at end", &ledger.Snapshot{TotalPlayers: 3, TotalShuffles: 2, GameStarted: true, CurrentRound: ledger.RoundEnd, Winner: winner}, stage.Shuffle},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := stage.Resolve(tc.snap); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestResolveTotalAndDeterministic(t *testing.T) {
	valid := map[stage.Stage]bool{
		stage.Waiting: true, stage.Shuffle: true, stage.Betting: true, stage.Showdown: true, stage.Ended: true,
	}
	winners := []common.Address{{}, winner}

	for players := uint64(0); players <= 4; players++ {
		for shuffles := uint64(0); shuffles <= 4; shuffles++ {
			for round := ledger.RoundAnte; round <= ledger.RoundEnd+1; round++ {
				for _, started := range []bool{false, true} {
					for _, w := range winners {
						snap := &ledger.Snapshot{
							TotalPlayers:  players,
							TotalShuffles: shuffles,
							CurrentRound:  round,
							GameStarted:   started,
							Winner:        w,
						}
						first := stage.Resolve(snap)
						if !valid[first] {
							t.Fatalf("invalid stage %q for %+v", first, snap)
						}
						if again := stage.Resolve(snap); again != first {
							t.Fatalf("resolve not deterministic for %+v: %s then %s", snap, first, again)
						}
					}
				}
			}
		}
	}
}

func TestResolveToleratesRegression(t *testing.T) {
	later := &ledger.Snapshot{TotalPlayers: 2, TotalShuffles: 2, GameStarted: true, CurrentRound: ledger.RoundFlop}
	earlier := &ledger.Snapshot{TotalPlayers: 2, TotalShuffles: 1, GameStarted: true}

	if stage.Resolve(later) != stage.Betting {
		t.Fatalf("expected betting")
	}
	if stage.Resolve(earlier) != stage.Shuffle {
		t.Fatalf("an older snapshot must resolve on its own fields")
	}
}
