package errors

import (
	"context"
	"errors"
	"regexp"
	"strings"
)

type Kind string

const (
	KindValidation Kind = "validation"
	KindEngine     Kind = "engine"
	KindLedger     Kind = "ledger"
	KindTimeout    Kind = "timeout"
)

// Classified is the user-facing rendition of an error.
type Classified struct {
	Kind       Kind   `json:"kind"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
	Retryable  bool   `json:"retryable"`
}

const (
	genericFailure = "Transaction failed. Please check your bet amount and wallet balance."
	timeoutMessage = "The network took too long to respond. Please try again."
	engineMessage  = "The card engine could not complete the request. Please try again."
)

type rejection struct {
	pattern string
	message string
}

// Order matters: the first pattern found in the error text wins.
var rejections = []rejection{
	{"InvalidBetAmount", "Your bet is too low! You must match or raise the current highest bet."},
	{"IncorrectBetAmount", "The ETH amount sent doesn't match your bet amount."},
	{"InvalidBetSequence", "Not your turn yet! Please wait for other players."},
	{"NotAPlayer", "You are not in this game."},
	{"AlreadyAPlayer", "You have already joined this game."},
	{"GameNotStarted", "The game hasn't started yet."},
	{"GameAlreadyStarted", "The game has already started."},
	{"GameEnded", "The game has ended."},
	{"GameNotEnded", "The game is still in progress."},
	{"NotEnoughPlayers", "Need at least 2 players to start."},
	{"PlayerFolded", "You have already folded."},
	{"AlreadyFolded", "This player has already folded."},
	{"ActionTimeoutNotExpired", "Cannot force fold yet - timeout hasn't expired."},
	{"NotShuffled", "All players must shuffle first."},
	{"WinnerAlreadyDeclared", "Winner has already been declared."},
	{"NotACommunityCard", "Invalid card - must choose from community cards."},
	{"DuplicateCommunityCard", "Cannot choose the same card twice."},
	{"TransferFailed", "ETH transfer failed. Please try again."},
	{"NoWinningsToWithdraw", "No winnings available to withdraw."},
	{"NotWinner", "Only the winner can withdraw."},
	{"insufficient funds", "Insufficient funds in your wallet."},
	{"user rejected", "Transaction cancelled by user."},
	{"nonce too low", "Transaction nonce error. Please try again."},
	{"gas required exceeds allowance", "Gas limit too low. Try increasing gas."},
	{"execution reverted", "Transaction reverted. Check your bet amount."},
}

var suggestions = []rejection{
	{"bet is too low", "Check the current highest bet and increase your amount."},
	{"Not your turn", "Wait for other players to complete their actions."},
	{"Insufficient funds", "Add more ETH to your wallet before continuing."},
	{"shuffle first", "Wait for all players to complete shuffling."},
	{"timeout hasn't expired", "Wait for the 2-minute timeout period to complete."},
	{"cancelled", "You rejected the transaction. Try again when ready."},
}

var validationMessages = []struct {
	err error
	msg string
}{
	{ErrWalletNotConnected, "Connect a wallet to continue."},
	{ErrWrongStage, "That action is not available right now."},
	{ErrNotYourTurn, "Not your turn yet! Please wait for other players."},
	{ErrInvalidAmount, "Enter a valid bet amount."},
	{ErrBetTooLow, "Your bet is too low! You must match or raise the current highest bet."},
	{ErrCannotCheck, "You cannot check while facing a bet. Call, raise or fold."},
	{ErrForceFoldNotReady, "Cannot force fold yet - timeout hasn't expired."},
	{ErrAlreadyShuffled, "You have already shuffled the deck."},
	{ErrDeckNotReady, "The deck is not ready yet. All players must shuffle first."},
	{ErrNothingPending, "There are no cards waiting for your reveal."},
	{ErrAlreadySubmitted, "Your reveal for these cards is already on the ledger."},
	{ErrSubmissionInFlight, "A reveal is already being submitted."},
	{ErrActionInFlight, "Please wait for your previous action to confirm."},
	{ErrSelectionSize, "Please select exactly 3 community cards."},
	{ErrDuplicateSelection, "Cannot choose the same card twice."},
	{ErrInvalidPosition, "Invalid card - must choose from community cards."},
	{ErrSelectionFull, "You have already selected 3 cards."},
	{ErrCardsNotRevealed, "Cards are still being revealed."},
	{ErrGameNotFound, "Game not found."},
	{ErrKeyNotFound, "No key is registered for this address."},
	{ErrUnauthorized, "Unauthorized."},
}

var (
	technicalPrefixes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^Error:\s*`),
		regexp.MustCompile(`(?i)^execution reverted:\s*`),
		regexp.MustCompile(`(?i)^VM Exception while processing transaction:\s*`),
	}
	revertWord = regexp.MustCompile(`(?i)revert\s*`)
)

// Classify maps any orchestrator error to a kind plus a user message and optional suggestion.
func Classify(err error) Classified {
	if err == nil {
		return Classified{}
	}

	if errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return Classified{Kind: KindTimeout, Message: timeoutMessage, Retryable: true}
	}

	for _, v := range validationMessages {
		if errors.Is(err, v.err) {
			return Classified{Kind: KindValidation, Message: v.msg, Suggestion: Suggestion(v.msg)}
		}
	}

	if errors.Is(err, ErrEngine) {
		return Classified{Kind: KindEngine, Message: engineMessage, Retryable: true}
	}

	msg := LedgerMessage(ledgerText(err))
	return Classified{
		Kind:       KindLedger,
		Message:    msg,
		Suggestion: Suggestion(msg),
		Retryable:  msg == "Transaction nonce error. Please try again." || msg == "ETH transfer failed. Please try again.",
	}
}

func ledgerText(err error) string {
	var le *LedgerError
	if errors.As(err, &le) && le.Reason != "" {
		return le.Reason
	}
	return err.Error()
}

// LedgerMessage turns raw ledger or wallet error text into a readable message.
func LedgerMessage(raw string) string {
	for _, r := range rejections {
		if strings.Contains(raw, r.pattern) {
			return r.message
		}
	}
	lower := strings.ToLower(raw)
	for _, r := range rejections {
		if strings.Contains(lower, strings.ToLower(r.pattern)) {
			return r.message
		}
	}

	cleaned := raw
	for _, re := range technicalPrefixes {
		cleaned = re.ReplaceAllString(cleaned, "")
	}
	if loc := revertWord.FindStringIndex(cleaned); loc != nil {
		cleaned = cleaned[:loc[0]] + cleaned[loc[1]:]
	}
	cleaned = strings.TrimSpace(cleaned)
	if len(cleaned) < 3 || strings.Contains(cleaned, "0x") {
		return genericFailure
	}
	return cleaned
}

// Suggestion returns a follow-up hint for a classified message, or "".
func Suggestion(message string) string {
	for _, s := range suggestions {
		if strings.Contains(message, s.pattern) {
			return s.message
		}
	}
	return ""
}
