// Package lobby creates, joins and starts games. Whether this client is seated
// in a game is always read from the ledger.
package lobby

import (
	"context"
	"fmt"

	"zkpoker-client/internal/cards"
	"zkpoker-client/internal/service/ledger"
	"zkpoker-client/internal/service/stage"
	appErr "zkpoker-client/pkg/errors"
	"zkpoker-client/pkg/logger"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const listConcurrency = 8

type KeySource interface {
	PublicKey(ctx context.Context, addr common.Address) (cards.Point, error)
}

type Config struct {
	RevealVerifier common.Address
	Signer         common.Address
}

type Service struct {
	dialer ledger.Dialer
	keys   KeySource
	cfg    Config
}

func NewService(dialer ledger.Dialer, keys KeySource, cfg Config) *Service {
	return &Service{dialer: dialer, keys: keys, cfg: cfg}
}

// GameSummary is one factory game and whether the signer is seated in it.
type GameSummary struct {
	Contract string `json:"contract"`
	Seated   bool   `json:"seated"`
	TxHash   string `json:"txHash,omitempty"`
}

func (s *Service) signer() (common.Address, error) {
	if s.cfg.Signer == (common.Address{}) {
		return common.Address{}, appErr.ErrWalletNotConnected
	}
	return s.cfg.Signer, nil
}

// Game opens the contract at addr.
func (s *Service) Game(addr common.Address) (ledger.Game, error) {
	if addr == (common.Address{}) {
		return nil, appErr.ErrGameNotFound
	}
	game, err := s.dialer.Game(addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", appErr.ErrGameNotFound, err)
	}
	return game, nil
}

// CreateGame deploys a game through the factory with this player seated first.
func (s *Service) CreateGame(ctx context.Context) (*GameSummary, error) {
	self, err := s.signer()
	if err != nil {
		return nil, err
	}
	pk, err := s.keys.PublicKey(ctx, self)
	if err != nil {
		return nil, err
	}
	factory, err := s.dialer.Factory()
	if err != nil {
		return nil, err
	}

	salt := crypto.Keccak256Hash([]byte(uuid.NewString()))
	addr, receipt, err := factory.CreateGame(ctx, salt, s.cfg.RevealVerifier, pk)
	if err != nil {
		return nil, err
	}
	logger.Log.Info("game created",
		zap.String("contract", addr.Hex()),
		zap.String("tx", receipt.TxHash.Hex()),
	)
	return &GameSummary{Contract: addr.Hex(), Seated: true, TxHash: receipt.TxHash.Hex()}, nil
}

func (s *Service) JoinGame(ctx context.Context, contract common.Address) (*GameSummary, error) {
	self, err := s.signer()
	if err != nil {
		return nil, err
	}
	game, err := s.Game(contract)
	if err != nil {
		return nil, err
	}
	snap, err := game.ReadSnapshot(ctx, self)
	if err != nil {
		return nil, err
	}
	if snap.GameStarted {
		return nil, appErr.ErrWrongStage
	}
	pk, err := s.keys.PublicKey(ctx, self)
	if err != nil {
		return nil, err
	}

	receipt, err := game.JoinGame(ctx, pk)
	if err != nil {
		return nil, err
	}
	logger.With(contract.Hex(), self.Hex()).Info("game joined", zap.String("tx", receipt.TxHash.Hex()))
	return &GameSummary{Contract: contract.Hex(), Seated: true, TxHash: receipt.TxHash.Hex()}, nil
}

// StartGame needs at least two seated players and a game that has not started.
func (s *Service) StartGame(ctx context.Context, contract common.Address) (*ledger.Receipt, error) {
	self, err := s.signer()
	if err != nil {
		return nil, err
	}
	game, err := s.Game(contract)
	if err != nil {
		return nil, err
	}
	snap, err := game.ReadSnapshot(ctx, self)
	if err != nil {
		return nil, err
	}
	if snap.GameStarted || snap.TotalPlayers < 2 {
		return nil, appErr.ErrWrongStage
	}
	return game.StartGame(ctx)
}

// DeclareWinner asks the ledger to score the chosen hands once showdown is reached.
func (s *Service) DeclareWinner(ctx context.Context, contract common.Address) (*ledger.Receipt, error) {
	self, err := s.signer()
	if err != nil {
		return nil, err
	}
	game, err := s.Game(contract)
	if err != nil {
		return nil, err
	}
	snap, err := game.ReadSnapshot(ctx, self)
	if err != nil {
		return nil, err
	}
	if stage.Resolve(snap) != stage.Showdown {
		return nil, appErr.ErrWrongStage
	}
	receipt, err := game.DeclareWinner(ctx)
	if err != nil {
		return nil, err
	}
	logger.With(contract.Hex(), self.Hex()).Info("winner declared", zap.String("tx", receipt.TxHash.Hex()))
	return receipt, nil
}

// ListGames returns every factory game, newest first. With mine set only the
// games the signer is seated in are returned.
func (s *Service) ListGames(ctx context.Context, mine bool) ([]GameSummary, error) {
	if mine && s.cfg.Signer == (common.Address{}) {
		return nil, appErr.ErrWalletNotConnected
	}
	factory, err := s.dialer.Factory()
	if err != nil {
		return nil, err
	}
	addrs, err := factory.Games(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]GameSummary, len(addrs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(listConcurrency)
	for i := range addrs {
		addr := addrs[len(addrs)-1-i]
		out[i].Contract = addr.Hex()
		if s.cfg.Signer == (common.Address{}) {
			continue
		}
		g.Go(func() error {
			game, err := s.Game(addr)
			if err != nil {
				return err
			}
			seated, err := game.IsPlayer(gctx, s.cfg.Signer)
			if err != nil {
				return fmt.Errorf("read seat in %s: %w", addr.Hex(), err)
			}
			out[i].Seated = seated
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if !mine {
		return out, nil
	}
	seated := make([]GameSummary, 0, len(out))
	for _, item := range out {
		if item.Seated {
			seated = append(seated, item)
		}
	}
	return seated, nil
}
