package evm

import (
	"errors"
	"testing"

	appErr "zkpoker-client/pkg/errors"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

func TestSignerAddress(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key failed: %v", err)
	}
	want := crypto.PubkeyToAddress(key.PublicKey)

	for _, raw := range []string{hexutil.Encode(crypto.FromECDSA(key)), hexutil.Encode(crypto.FromECDSA(key))[2:]} {
		got, err := SignerAddress(raw)
		if err != nil {
			t.Fatalf("signer address failed for %q: %v", raw, err)
		}
		if got != want {
			t.Fatalf("expected %s, got %s", want.Hex(), got.Hex())
		}
	}

	if _, err := SignerAddress("  "); !errors.Is(err, appErr.ErrWalletNotConnected) {
		t.Fatalf("expected wallet not connected, got %v", err)
	}
	if _, err := SignerAddress("0xzz"); err == nil {
		t.Fatalf("expected parse error")
	}
}
