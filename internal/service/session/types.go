package session

import (
	"time"

	"zkpoker-client/internal/service/betting"
	"zkpoker-client/internal/service/hand"
	"zkpoker-client/internal/service/ledger"
	"zkpoker-client/internal/service/reveal"
	"zkpoker-client/internal/service/stage"
)

type ClockState struct {
	Remaining          uint64 `json:"remaining"`
	Expired            bool   `json:"expired"`
	NextPlayer         string `json:"nextPlayer"`
	ForceFoldOfferable bool   `json:"forceFoldOfferable"`
}

// State is everything a UI needs to render one game for the local player.
type State struct {
	Contract  string           `json:"contract"`
	Self      string           `json:"self"`
	Stage     stage.Stage      `json:"stage"`
	Round     string           `json:"round"`
	Snapshot  *ledger.Snapshot `json:"snapshot"`
	Clock     ClockState       `json:"clock"`
	Betting   betting.Options  `json:"betting"`
	Reveals   []reveal.Status  `json:"reveals"`
	Shuffling bool             `json:"shuffling"`
	Pending   string           `json:"pendingAction,omitempty"`
	Hand      hand.Hand        `json:"hand"`
	Selection []int            `json:"selection"`
	Winner    string           `json:"winner,omitempty"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

type OutgoingMessage struct {
	Type string      `json:"type"`
	Seq  int64       `json:"seq"`
	Data interface{} `json:"data"`
}
