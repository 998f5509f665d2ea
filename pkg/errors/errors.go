package errors

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrGameNotFound       = errors.New("game not found")
	ErrKeyNotFound        = errors.New("player key not found")
	ErrWalletNotConnected = errors.New("wallet not connected")
	ErrWrongStage         = errors.New("action not allowed in current stage")
	ErrNotYourTurn        = errors.New("not your turn")
	ErrInvalidAmount      = errors.New("invalid bet amount")
	ErrBetTooLow          = errors.New("bet below call amount")
	ErrCannotCheck        = errors.New("cannot check while facing a bet")
	ErrForceFoldNotReady  = errors.New("force fold not available")
	ErrAlreadyShuffled    = errors.New("deck already shuffled by this player")
	ErrDeckNotReady       = errors.New("deck not populated")
	ErrNothingPending     = errors.New("no pending cards")
	ErrAlreadySubmitted   = errors.New("pending cards already submitted")
	ErrSubmissionInFlight = errors.New("submission already in flight")
	ErrActionInFlight     = errors.New("another action is in flight")
	ErrSelectionSize      = errors.New("exactly 3 community cards must be selected")
	ErrDuplicateSelection = errors.New("community card selected twice")
	ErrInvalidPosition    = errors.New("invalid community card position")
	ErrSelectionFull      = errors.New("3 community cards already selected")
	ErrCardsNotRevealed   = errors.New("cards not revealed yet")

	ErrEngine         = errors.New("crypto engine failure")
	ErrLedgerRejected = errors.New("ledger rejected transaction")
	ErrTimeout        = errors.New("operation timed out")
)

// LedgerError carries the contract's rejection reason, usually the custom error name.
type LedgerError struct {
	Reason string
	Cause  error
}

func (e *LedgerError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("execution reverted: %s", e.Reason)
	}
	return fmt.Sprintf("execution reverted: %s: %v", e.Reason, e.Cause)
}

func (e *LedgerError) Unwrap() error { return e.Cause }

func (e *LedgerError) Is(target error) bool { return target == ErrLedgerRejected }

// EngineError wraps a failure reported by the crypto engine.
type EngineError struct {
	Op    string
	Cause error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("engine %s: %v", e.Op, e.Cause)
}

func (e *EngineError) Unwrap() error { return e.Cause }

func (e *EngineError) Is(target error) bool { return target == ErrEngine }
