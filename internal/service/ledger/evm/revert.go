package evm

import (
	"bytes"
	"errors"
	"strings"

	appErr "zkpoker-client/pkg/errors"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

// decodeRevert turns a node error into a LedgerError naming the contract's
// custom error or revert string. Errors that are not reverts pass through.
func decodeRevert(parsed abi.ABI, err error) error {
	if err == nil {
		return nil
	}

	var de rpc.DataError
	if errors.As(err, &de) {
		if reason, ok := revertReason(parsed, de.ErrorData()); ok {
			return &appErr.LedgerError{Reason: reason, Cause: err}
		}
	}

	msg := err.Error()
	if idx := strings.Index(msg, "execution reverted"); idx >= 0 {
		reason := strings.TrimSpace(strings.TrimPrefix(msg[idx:], "execution reverted"))
		reason = strings.TrimSpace(strings.TrimPrefix(reason, ":"))
		if reason == "" {
			reason = "execution reverted"
		}
		return &appErr.LedgerError{Reason: reason, Cause: err}
	}
	return err
}

func revertReason(parsed abi.ABI, data interface{}) (string, bool) {
	s, ok := data.(string)
	if !ok {
		return "", false
	}
	raw, err := hexutil.Decode(s)
	if err != nil || len(raw) < 4 {
		return "", false
	}
	for name, e := range parsed.Errors {
		if bytes.Equal(e.ID[:4], raw[:4]) {
			return name, true
		}
	}
	if reason, err := abi.UnpackRevert(raw); err == nil {
		return reason, true
	}
	return "", false
}
