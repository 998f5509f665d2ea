package ledger

import (
	"context"
	"math/big"

	"zkpoker-client/internal/cards"

	"github.com/ethereum/go-ethereum/common"
)

// Receipt identifies a confirmed transaction.
type Receipt struct {
	TxHash      common.Hash `json:"txHash"`
	BlockNumber uint64      `json:"blockNumber"`
	GasUsed     uint64      `json:"gasUsed"`
}

// Source is the read side of one game contract.
type Source interface {
	Address() common.Address
	ReadSnapshot(ctx context.Context, self common.Address) (*Snapshot, error)
	TotalShuffles(ctx context.Context) (uint64, error)
	IsPlayer(ctx context.Context, addr common.Address) (bool, error)
	GameKey(ctx context.Context) (cards.Point, error)
	Deck(ctx context.Context) ([]cards.MaskedCard, error)
	RevealTokens(ctx context.Context, cardIndex uint8) ([]RevealToken, error)
	Results(ctx context.Context) ([]PlayerResult, error)
}

// Writer submits signed transactions and returns once they are mined.
// A mined but reverted transaction is returned as an error.
type Writer interface {
	// Signer is the connected wallet address, zero when read-only.
	Signer() common.Address
	InitShuffle(ctx context.Context, pkc []cards.Hex, deck []cards.MaskedCard) (*Receipt, error)
	Shuffle(ctx context.Context, deck []cards.MaskedCard) (*Receipt, error)
	AddRevealTokens(ctx context.Context, indices []uint8, tokens []RevealToken) (*Receipt, error)
	PlaceBet(ctx context.Context, amount *big.Int) (*Receipt, error)
	Fold(ctx context.Context) (*Receipt, error)
	ForceFold(ctx context.Context) (*Receipt, error)
	DeclareWinner(ctx context.Context) (*Receipt, error)
	ChooseCards(ctx context.Context, indices [3]uint8) (*Receipt, error)
	JoinGame(ctx context.Context, publicKey cards.Point) (*Receipt, error)
	StartGame(ctx context.Context) (*Receipt, error)
}

type Game interface {
	Source
	Writer
}

type Factory interface {
	CreateGame(ctx context.Context, salt [32]byte, revealVerifier common.Address, publicKey cards.Point) (common.Address, *Receipt, error)
	Games(ctx context.Context) ([]common.Address, error)
}

// Dialer opens game contracts by address.
type Dialer interface {
	Game(addr common.Address) (Game, error)
	Factory() (Factory, error)
}
