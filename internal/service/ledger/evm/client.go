// Package evm binds the game and factory contracts over JSON-RPC.
package evm

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"zkpoker-client/internal/config"
	"zkpoker-client/internal/service/ledger"
	appErr "zkpoker-client/pkg/errors"
	"zkpoker-client/pkg/logger"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

// Client holds the RPC connection and the optional signing key shared by
// every bound contract.
type Client struct {
	eth            *ethclient.Client
	chainID        *big.Int
	key            *ecdsa.PrivateKey
	signer         common.Address
	factory        common.Address
	confirmTimeout time.Duration
	gasLimit       uint64

	// nonces are allocated by the node; sends are serialized so two
	// coordinators never race for the same pending nonce.
	sendMu sync.Mutex
}

var _ ledger.Dialer = (*Client)(nil)

func Dial(ctx context.Context, cfg config.ChainConfig) (*Client, error) {
	eth, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.RPCURL, err)
	}

	chainID := big.NewInt(cfg.ChainID)
	if cfg.ChainID == 0 {
		if chainID, err = eth.ChainID(ctx); err != nil {
			eth.Close()
			return nil, fmt.Errorf("query chain id: %w", err)
		}
	}

	c := &Client{
		eth:            eth,
		chainID:        chainID,
		factory:        common.HexToAddress(cfg.FactoryAddress),
		confirmTimeout: cfg.ConfirmTimeout,
		gasLimit:       cfg.GasLimit,
	}
	if c.confirmTimeout <= 0 {
		c.confirmTimeout = 2 * time.Minute
	}

	key, err := parseKey(cfg.PrivateKey)
	if err != nil {
		eth.Close()
		return nil, err
	}
	if key != nil {
		c.key = key
		c.signer = crypto.PubkeyToAddress(key.PublicKey)
	}

	logger.Log.Info("connected to chain",
		zap.String("rpc", cfg.RPCURL),
		zap.String("chainID", chainID.String()),
		zap.String("signer", c.signer.Hex()),
	)
	return c, nil
}

// parseKey returns nil for an empty key.
func parseKey(raw string) (*ecdsa.PrivateKey, error) {
	pk := strings.TrimPrefix(strings.TrimSpace(raw), "0x")
	if pk == "" {
		return nil, nil
	}
	key, err := crypto.HexToECDSA(pk)
	if err != nil {
		return nil, fmt.Errorf("parse signer key: %w", err)
	}
	return key, nil
}

// SignerAddress derives the wallet address from a hex private key.
func SignerAddress(privateKey string) (common.Address, error) {
	key, err := parseKey(privateKey)
	if err != nil {
		return common.Address{}, err
	}
	if key == nil {
		return common.Address{}, appErr.ErrWalletNotConnected
	}
	return crypto.PubkeyToAddress(key.PublicKey), nil
}

func (c *Client) Close() {
	c.eth.Close()
}

// Signer is the wallet address, zero when no key is configured.
func (c *Client) Signer() common.Address { return c.signer }

func (c *Client) Game(addr common.Address) (ledger.Game, error) {
	if addr == (common.Address{}) {
		return nil, appErr.ErrGameNotFound
	}
	return &Game{
		client:   c,
		addr:     addr,
		contract: bind.NewBoundContract(addr, gameABI, c.eth, c.eth, c.eth),
	}, nil
}

func (c *Client) Factory() (ledger.Factory, error) {
	if c.factory == (common.Address{}) {
		return nil, errors.New("factory address not configured")
	}
	return &Factory{
		client:   c,
		addr:     c.factory,
		contract: bind.NewBoundContract(c.factory, factoryABI, c.eth, c.eth, c.eth),
	}, nil
}

// transact signs and sends one call, then blocks until it is mined or the
// confirm timeout elapses.
func (c *Client) transact(ctx context.Context, bc *bind.BoundContract, parsed abi.ABI, method string, value *big.Int, args ...interface{}) (*types.Receipt, error) {
	if c.key == nil {
		return nil, appErr.ErrWalletNotConnected
	}
	opts, err := bind.NewKeyedTransactorWithChainID(c.key, c.chainID)
	if err != nil {
		return nil, err
	}
	opts.Context = ctx
	opts.Value = value
	opts.GasLimit = c.gasLimit

	c.sendMu.Lock()
	tx, err := bc.Transact(opts, method, args...)
	c.sendMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, decodeRevert(parsed, err))
	}

	log := logger.Log.With(zap.String("method", method), zap.String("tx", tx.Hash().Hex()))
	log.Info("transaction submitted")

	waitCtx, cancel := context.WithTimeout(ctx, c.confirmTimeout)
	defer cancel()
	receipt, err := bind.WaitMined(waitCtx, c.eth, tx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%s: waiting for %s: %w", method, tx.Hash().Hex(), appErr.ErrTimeout)
		}
		return nil, fmt.Errorf("%s: waiting for %s: %w", method, tx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		reason := c.replay(ctx, parsed, tx, receipt.BlockNumber)
		log.Warn("transaction reverted", zap.Error(reason))
		return nil, fmt.Errorf("%s: %w", method, reason)
	}

	log.Info("transaction confirmed",
		zap.Uint64("block", receipt.BlockNumber.Uint64()),
		zap.Uint64("gasUsed", receipt.GasUsed),
	)
	return receipt, nil
}

// replay re-executes a reverted transaction as a call to recover its reason.
func (c *Client) replay(ctx context.Context, parsed abi.ABI, tx *types.Transaction, block *big.Int) error {
	msg := ethereum.CallMsg{
		From:  c.signer,
		To:    tx.To(),
		Gas:   tx.Gas(),
		Value: tx.Value(),
		Data:  tx.Data(),
	}
	_, err := c.eth.CallContract(ctx, msg, block)
	if err == nil {
		return &appErr.LedgerError{Reason: "execution reverted"}
	}
	decoded := decodeRevert(parsed, err)
	var le *appErr.LedgerError
	if errors.As(decoded, &le) {
		return decoded
	}
	return &appErr.LedgerError{Reason: "execution reverted", Cause: err}
}

func toReceipt(r *types.Receipt) *ledger.Receipt {
	return &ledger.Receipt{
		TxHash:      r.TxHash,
		BlockNumber: r.BlockNumber.Uint64(),
		GasUsed:     r.GasUsed,
	}
}
