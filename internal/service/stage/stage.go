// Package stage derives the protocol stage from a ledger snapshot.
package stage

import "zkpoker-client/internal/service/ledger"

type Stage string

const (
	Waiting  Stage = "waiting"
	Shuffle  Stage = "shuffle"
	Betting  Stage = "betting"
	Showdown Stage = "showdown"
	Ended    Stage = "ended"
)

// Resolve is total and stateless: the first matching rule wins, and the same
// snapshot always yields the same stage. A nil snapshot is Waiting.
func Resolve(s *ledger.Snapshot) Stage {
	switch {
	case s == nil, s.TotalPlayers == 1, !s.GameStarted:
		return Waiting
	case s.TotalShuffles != s.TotalPlayers:
		return Shuffle
	case s.CurrentRound < ledger.RoundEnd:
		return Betting
	case !s.HasWinner():
		return Showdown
	default:
		return Ended
	}
}
