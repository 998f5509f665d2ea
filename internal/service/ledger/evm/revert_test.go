package evm

import (
	"errors"
	"testing"

	appErr "zkpoker-client/pkg/errors"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

type rpcDataError struct {
	msg  string
	data interface{}
}

func (e *rpcDataError) Error() string          { return e.msg }
func (e *rpcDataError) ErrorData() interface{} { return e.data }

func TestDecodeRevertCustomError(t *testing.T) {
	selector := crypto.Keccak256([]byte("NotShuffled()"))[:4]
	err := decodeRevert(gameABI, &rpcDataError{msg: "execution reverted", data: hexutil.Encode(selector)})

	var le *appErr.LedgerError
	if !errors.As(err, &le) {
		t.Fatalf("expected ledger error, got %v", err)
	}
	if le.Reason != "NotShuffled" {
		t.Fatalf("expected NotShuffled, got %q", le.Reason)
	}
	if got := appErr.Classify(err).Message; got != "All players must shuffle first." {
		t.Fatalf("unexpected classification %q", got)
	}
}

func TestDecodeRevertString(t *testing.T) {
	err := decodeRevert(gameABI, errors.New("execution reverted: Bet too small"))

	var le *appErr.LedgerError
	if !errors.As(err, &le) || le.Reason != "Bet too small" {
		t.Fatalf("expected reason from message, got %v", err)
	}
}

func TestDecodeRevertPassesThroughTransportErrors(t *testing.T) {
	orig := errors.New("dial tcp 127.0.0.1:8545: connection refused")
	if err := decodeRevert(gameABI, orig); err != orig {
		t.Fatalf("expected transport error unchanged, got %v", err)
	}
	if decodeRevert(gameABI, nil) != nil {
		t.Fatalf("nil must stay nil")
	}
}

func TestABIsParse(t *testing.T) {
	for _, name := range []string{"getDeck", "addMultipleRevealTokens", "chooseCards", "placeBet", "nextPlayer"} {
		if _, ok := gameABI.Methods[name]; !ok {
			t.Fatalf("game ABI missing %s", name)
		}
	}
	if _, ok := factoryABI.Methods["createGame"]; !ok {
		t.Fatalf("factory ABI missing createGame")
	}
	if !gameABI.Methods["placeBet"].IsPayable() {
		t.Fatalf("placeBet must be payable")
	}
}
