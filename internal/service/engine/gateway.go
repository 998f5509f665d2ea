// Package engine is the boundary to the mental-poker crypto engine. The
// engine owns every cryptographic step; the orchestrator only moves values.
package engine

import (
	"context"

	"zkpoker-client/internal/cards"
)

// Key is a player's engine key pair. SK never leaves the process except to the engine.
type Key struct {
	SK   cards.Hex   `json:"sk"`
	PK   cards.Hex   `json:"pk"`
	PKXY cards.Point `json:"pkxy"`
}

type Shuffled struct {
	Cards []cards.MaskedCard `json:"cards"`
	Proof string             `json:"proof"`
}

// RevealShare is one player's decryption share for one masked card.
type RevealShare struct {
	Card  cards.Point `json:"card"`
	Proof string      `json:"proof"`
}

type Gateway interface {
	GenerateKey(ctx context.Context) (Key, error)
	// InitMaskedDeck returns the joint-key refresh contribution and a fresh masked deck.
	InitMaskedDeck(ctx context.Context, gameKey cards.Point) ([]cards.Hex, []cards.MaskedCard, error)
	FirstShuffle(ctx context.Context, gameKey cards.Point, deck []cards.MaskedCard) (Shuffled, error)
	Shuffle(ctx context.Context, deck []cards.MaskedCard, gameKey cards.Point) (Shuffled, error)
	RevealShares(ctx context.Context, deck []cards.MaskedCard, sk cards.Hex) ([]RevealShare, error)
	// Unmask combines shares into a plaintext card; cards.Unknown means the shares were insufficient.
	Unmask(ctx context.Context, card cards.MaskedCard, sk cards.Hex, shares []cards.Point) (cards.Card, error)
	UnmaskBatch(ctx context.Context, deck []cards.MaskedCard, sk cards.Hex, shares [][]cards.Point) ([]cards.Card, error)
}
