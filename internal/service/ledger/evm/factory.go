package evm

import (
	"context"
	"fmt"
	"math/big"

	"zkpoker-client/internal/cards"
	"zkpoker-client/internal/service/ledger"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

// maxListedGames bounds Games to the most recent deployments.
const maxListedGames = 50

type Factory struct {
	client   *Client
	addr     common.Address
	contract *bind.BoundContract
}

var _ ledger.Factory = (*Factory)(nil)

func (f *Factory) callUint(opts *bind.CallOpts, method string, args ...interface{}) (*big.Int, error) {
	var out []interface{}
	if err := f.contract.Call(opts, &out, method, args...); err != nil {
		return nil, fmt.Errorf("call %s: %w", method, decodeRevert(factoryABI, err))
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

func (f *Factory) gameAt(opts *bind.CallOpts, idx *big.Int) (common.Address, error) {
	var out []interface{}
	if err := f.contract.Call(opts, &out, "_games", idx); err != nil {
		return common.Address{}, fmt.Errorf("call _games: %w", decodeRevert(factoryABI, err))
	}
	return *abi.ConvertType(out[0], new(common.Address)).(*common.Address), nil
}

// CreateGame deploys a game with the signer as first player and returns its address.
// The address is read back from the factory at the block that mined the deployment.
func (f *Factory) CreateGame(ctx context.Context, salt [32]byte, revealVerifier common.Address, publicKey cards.Point) (common.Address, *ledger.Receipt, error) {
	pk, err := toPointABI(publicKey)
	if err != nil {
		return common.Address{}, nil, err
	}
	player := playerABI{Addr: f.client.signer, PublicKey: pk}
	receipt, err := f.client.transact(ctx, f.contract, factoryABI, "createGame", nil, salt, revealVerifier, player)
	if err != nil {
		return common.Address{}, nil, err
	}

	opts := &bind.CallOpts{Context: ctx, BlockNumber: receipt.BlockNumber}
	next, err := f.callUint(opts, "_nextGameId")
	if err != nil {
		return common.Address{}, nil, err
	}
	if next.Sign() == 0 {
		return common.Address{}, nil, fmt.Errorf("factory reports no games after deployment")
	}
	addr, err := f.gameAt(opts, new(big.Int).Sub(next, big.NewInt(1)))
	if err != nil {
		return common.Address{}, nil, err
	}
	return addr, toReceipt(receipt), nil
}

// Games lists recent deployments, newest first.
func (f *Factory) Games(ctx context.Context) ([]common.Address, error) {
	opts := &bind.CallOpts{Context: ctx}
	next, err := f.callUint(opts, "_nextGameId")
	if err != nil {
		return nil, err
	}
	n := next.Int64()
	games := make([]common.Address, 0, maxListedGames)
	for i := n - 1; i >= 0 && len(games) < maxListedGames; i-- {
		addr, err := f.gameAt(opts, big.NewInt(i))
		if err != nil {
			return nil, err
		}
		games = append(games, addr)
	}
	return games, nil
}
