// Package ledger models the game contract as seen by one player and keeps a
// fresh Snapshot of it.
package ledger

import (
	"math/big"
	"time"

	"zkpoker-client/internal/cards"

	"github.com/ethereum/go-ethereum/common"
)

type Round uint8

const (
	RoundAnte Round = iota
	RoundPreFlop
	RoundFlop
	RoundTurn
	RoundRiver
	RoundEnd
)

func (r Round) String() string {
	switch r {
	case RoundAnte:
		return "ante"
	case RoundPreFlop:
		return "preflop"
	case RoundFlop:
		return "flop"
	case RoundTurn:
		return "turn"
	case RoundRiver:
		return "river"
	case RoundEnd:
		return "end"
	default:
		return "unknown"
	}
}

// RevealToken is one player's decryption share for one card index.
type RevealToken struct {
	Player common.Address `json:"player"`
	Share  cards.Point    `json:"share"`
}

// PlayerResult is a player's showdown outcome as recorded by the contract.
type PlayerResult struct {
	Player common.Address `json:"player"`
	Cards  []uint8        `json:"cards"`
	Weight *big.Int       `json:"weight"`
}

// Snapshot is one consistent read of the game contract for a given player.
// It is never mutated after construction.
type Snapshot struct {
	Contract common.Address `json:"contract"`
	Self     common.Address `json:"self"`

	TotalPlayers     uint64         `json:"totalPlayers"`
	TotalShuffles    uint64         `json:"totalShuffles"`
	TotalFolds       uint64         `json:"totalFolds"`
	CurrentRound     Round          `json:"currentRound"`
	GameStarted      bool           `json:"gameStarted"`
	Winner           common.Address `json:"winner"`
	WinnerAmount     *big.Int       `json:"winnerAmount"`
	HighestBet       *big.Int       `json:"highestBet"`
	SelfBet          *big.Int       `json:"selfBet"`
	Pot              *big.Int       `json:"pot"`
	NextPlayer       common.Address `json:"nextPlayer"`
	RemainingSeconds uint64         `json:"remainingSeconds"`
	SelfShuffled     bool           `json:"selfShuffled"`
	IsPlayer         bool           `json:"isPlayer"`

	Deck             []cards.MaskedCard `json:"deck"`
	PendingHole      []uint8            `json:"pendingHole"`
	PendingCommunity []uint8            `json:"pendingCommunity"`
	PlayerCards      []uint8            `json:"playerCards"`
	CommunityCards   []uint8            `json:"communityCards"`

	ReadAt time.Time `json:"readAt"`
}

func (s *Snapshot) IsMyTurn() bool {
	return s != nil && s.Self != (common.Address{}) && s.NextPlayer == s.Self
}

func (s *Snapshot) HasWinner() bool {
	return s != nil && s.Winner != (common.Address{})
}

// Aged returns a copy whose RemainingSeconds has counted down the time since
// the snapshot was read, floored at zero. Other fields are shared.
func (s *Snapshot) Aged(now time.Time) *Snapshot {
	if s == nil || s.ReadAt.IsZero() {
		return s
	}
	elapsed := now.Sub(s.ReadAt)
	if elapsed < time.Second {
		return s
	}
	aged := *s
	if secs := uint64(elapsed / time.Second); secs < aged.RemainingSeconds {
		aged.RemainingSeconds -= secs
	} else {
		aged.RemainingSeconds = 0
	}
	return &aged
}

// ActivePlayers counts players who have not folded.
func (s *Snapshot) ActivePlayers() uint64 {
	if s == nil || s.TotalFolds >= s.TotalPlayers {
		return 0
	}
	return s.TotalPlayers - s.TotalFolds
}

// NonZero drops the zero padding the contract uses in card-index arrays.
func NonZero(indices []uint8) []uint8 {
	out := make([]uint8, 0, len(indices))
	for _, i := range indices {
		if i != 0 {
			out = append(out, i)
		}
	}
	return out
}

// DeckCard returns the masked card at idx if the deck holds it.
func (s *Snapshot) DeckCard(idx uint8) (cards.MaskedCard, bool) {
	if s == nil || int(idx) >= len(s.Deck) {
		return cards.MaskedCard{}, false
	}
	return s.Deck[idx], true
}

func bigOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

// Amounts returns non-nil copies of the wager fields.
func (s *Snapshot) Amounts() (highest, self, pot *big.Int) {
	return new(big.Int).Set(bigOrZero(s.HighestBet)),
		new(big.Int).Set(bigOrZero(s.SelfBet)),
		new(big.Int).Set(bigOrZero(s.Pot))
}
