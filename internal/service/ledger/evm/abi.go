package evm

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Interface subsets of the game and factory contracts used by the client.

const gameABIJSON = `[
	{"type":"function","name":"_totalPlayers","inputs":[],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"},
	{"type":"function","name":"_totalShuffles","inputs":[],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"},
	{"type":"function","name":"_totalFolds","inputs":[],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"},
	{"type":"function","name":"_currentRound","inputs":[],"outputs":[{"name":"","type":"uint8"}],"stateMutability":"view"},
	{"type":"function","name":"_gameStarted","inputs":[],"outputs":[{"name":"","type":"bool"}],"stateMutability":"view"},
	{"type":"function","name":"_highestBet","inputs":[],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"},
	{"type":"function","name":"_bets","inputs":[{"name":"player","type":"address"}],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"},
	{"type":"function","name":"_shuffled","inputs":[{"name":"player","type":"address"}],"outputs":[{"name":"","type":"bool"}],"stateMutability":"view"},
	{"type":"function","name":"_isPlayer","inputs":[{"name":"player","type":"address"}],"outputs":[{"name":"","type":"bool"}],"stateMutability":"view"},
	{"type":"function","name":"_players","inputs":[{"name":"index","type":"uint256"}],"outputs":[{"name":"addr","type":"address"},{"name":"publicKey","type":"tuple","components":[{"name":"x","type":"uint256"},{"name":"y","type":"uint256"}]}],"stateMutability":"view"},
	{"type":"function","name":"_weights","inputs":[{"name":"index","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"},
	{"type":"function","name":"winner","inputs":[],"outputs":[{"name":"addr","type":"address"},{"name":"amount","type":"uint256"}],"stateMutability":"view"},
	{"type":"function","name":"nextPlayer","inputs":[],"outputs":[{"name":"","type":"tuple","components":[{"name":"addr","type":"address"},{"name":"publicKey","type":"tuple","components":[{"name":"x","type":"uint256"},{"name":"y","type":"uint256"}]}]}],"stateMutability":"view"},
	{"type":"function","name":"getTimeRemaining","inputs":[],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"},
	{"type":"function","name":"getPotAmount","inputs":[],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"},
	{"type":"function","name":"getDeck","inputs":[],"outputs":[{"name":"","type":"uint256[4][]"}],"stateMutability":"view"},
	{"type":"function","name":"gameKey","inputs":[],"outputs":[{"name":"","type":"uint256[2]"}],"stateMutability":"view"},
	{"type":"function","name":"getPendingPlayerRevealTokens","inputs":[{"name":"player","type":"address"}],"outputs":[{"name":"","type":"uint8[]"}],"stateMutability":"view"},
	{"type":"function","name":"getPendingCommunityRevealTokens","inputs":[{"name":"player","type":"address"}],"outputs":[{"name":"","type":"uint8[]"}],"stateMutability":"view"},
	{"type":"function","name":"getRevealTokens","inputs":[{"name":"cardIndex","type":"uint8"}],"outputs":[{"name":"","type":"tuple[]","components":[{"name":"player","type":"address"},{"name":"token","type":"tuple","components":[{"name":"x","type":"uint256"},{"name":"y","type":"uint256"}]}]}],"stateMutability":"view"},
	{"type":"function","name":"getPlayerCards","inputs":[{"name":"player","type":"address"}],"outputs":[{"name":"","type":"uint8[]"}],"stateMutability":"view"},
	{"type":"function","name":"getCommunityCards","inputs":[],"outputs":[{"name":"","type":"uint8[]"}],"stateMutability":"view"},
	{"type":"function","name":"getPlayerRevealedCards","inputs":[{"name":"player","type":"address"}],"outputs":[{"name":"","type":"uint8[]"}],"stateMutability":"view"},
	{"type":"function","name":"initShuffle","inputs":[{"name":"pkc","type":"uint256[]"},{"name":"deck","type":"uint256[4][]"}],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"shuffle","inputs":[{"name":"deck","type":"uint256[4][]"}],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"addMultipleRevealTokens","inputs":[{"name":"indexes","type":"uint8[]"},{"name":"tokens","type":"tuple[]","components":[{"name":"player","type":"address"},{"name":"token","type":"tuple","components":[{"name":"x","type":"uint256"},{"name":"y","type":"uint256"}]}]}],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"placeBet","inputs":[{"name":"amount","type":"uint256"}],"outputs":[],"stateMutability":"payable"},
	{"type":"function","name":"fold","inputs":[],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"forceFold","inputs":[],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"declareWinner","inputs":[],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"chooseCards","inputs":[{"name":"cards","type":"uint8[3]"}],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"joinGame","inputs":[{"name":"player","type":"tuple","components":[{"name":"addr","type":"address"},{"name":"publicKey","type":"tuple","components":[{"name":"x","type":"uint256"},{"name":"y","type":"uint256"}]}]}],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"startGame","inputs":[],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"error","name":"InvalidBetAmount","inputs":[]},
	{"type":"error","name":"IncorrectBetAmount","inputs":[]},
	{"type":"error","name":"InvalidBetSequence","inputs":[]},
	{"type":"error","name":"NotAPlayer","inputs":[]},
	{"type":"error","name":"AlreadyAPlayer","inputs":[]},
	{"type":"error","name":"GameNotStarted","inputs":[]},
	{"type":"error","name":"GameAlreadyStarted","inputs":[]},
	{"type":"error","name":"GameEnded","inputs":[]},
	{"type":"error","name":"GameNotEnded","inputs":[]},
	{"type":"error","name":"NotEnoughPlayers","inputs":[]},
	{"type":"error","name":"PlayerFolded","inputs":[]},
	{"type":"error","name":"AlreadyFolded","inputs":[]},
	{"type":"error","name":"ActionTimeoutNotExpired","inputs":[]},
	{"type":"error","name":"NotShuffled","inputs":[]},
	{"type":"error","name":"WinnerAlreadyDeclared","inputs":[]},
	{"type":"error","name":"NotACommunityCard","inputs":[]},
	{"type":"error","name":"DuplicateCommunityCard","inputs":[]},
	{"type":"error","name":"TransferFailed","inputs":[]},
	{"type":"error","name":"NoWinningsToWithdraw","inputs":[]},
	{"type":"error","name":"NotWinner","inputs":[]}
]`

const factoryABIJSON = `[
	{"type":"function","name":"createGame","inputs":[{"name":"salt","type":"bytes32"},{"name":"revealVerifier","type":"address"},{"name":"player","type":"tuple","components":[{"name":"addr","type":"address"},{"name":"publicKey","type":"tuple","components":[{"name":"x","type":"uint256"},{"name":"y","type":"uint256"}]}]}],"outputs":[{"name":"","type":"address"}],"stateMutability":"nonpayable"},
	{"type":"function","name":"_nextGameId","inputs":[],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"},
	{"type":"function","name":"_games","inputs":[{"name":"index","type":"uint256"}],"outputs":[{"name":"","type":"address"}],"stateMutability":"view"}
]`

var (
	gameABI    = mustParseABI(gameABIJSON)
	factoryABI = mustParseABI(factoryABIJSON)
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}
