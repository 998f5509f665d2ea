package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"zkpoker-client/internal/api"
	"zkpoker-client/internal/config"
	"zkpoker-client/internal/model"
	"zkpoker-client/internal/service"
	"zkpoker-client/internal/service/engine/enginetest"
	"zkpoker-client/internal/service/ledger"
	"zkpoker-client/internal/service/ledger/ledgertest"
	pkgAuth "zkpoker-client/pkg/auth"
	appErr "zkpoker-client/pkg/errors"
	"zkpoker-client/pkg/logger"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var (
	gameAddr = common.HexToAddress("0x00000000000000000000000000000000000000C0")
	alice    = common.HexToAddress("0x00000000000000000000000000000000000000A1")
	bob      = common.HexToAddress("0x00000000000000000000000000000000000000B2")
)

type envelope struct {
	Code  int                `json:"code"`
	Data  json.RawMessage    `json:"data"`
	Msg   string             `json:"msg"`
	Error *appErr.Classified `json:"error"`
}

func newRouter(t *testing.T) (*gin.Engine, *ledgertest.Dialer, *ledgertest.Fake) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		JWT:   config.JWTConfig{Secret: "test-secret", Expire: 1},
		Poll:  config.PollConfig{Interval: time.Hour},
		Clock: config.ClockConfig{Tick: time.Second},
	}
	config.GlobalConfig = cfg

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(model.AllModels()...); err != nil {
		t.Fatalf("failed to migrate models: %v", err)
	}

	dialer := ledgertest.NewDialer(alice)
	game := ledgertest.New(gameAddr, alice)
	game.Update(func(s *ledger.Snapshot) {
		s.TotalPlayers = 2
		s.TotalShuffles = 2
		s.GameStarted = true
		s.IsPlayer = true
		s.CurrentRound = ledger.RoundPreFlop
		s.HighestBet = big.NewInt(100)
		s.NextPlayer = alice
	})
	dialer.Add(game)

	services := service.NewContainer(db, nil, dialer, alice, enginetest.New(), cfg)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := services.Start(ctx); err != nil {
		t.Fatalf("start services failed: %v", err)
	}

	r := gin.New()
	api.RegisterRoutes(r, services)
	return r, dialer, game
}

func do(t *testing.T, r *gin.Engine, method, path, token, body string) (int, envelope) {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode response failed: %v (%s)", err, w.Body.String())
		}
	}
	return w.Code, env
}

func playerToken(t *testing.T, addr common.Address) string {
	t.Helper()
	token, err := pkgAuth.GeneratePlayerToken(addr.Hex())
	if err != nil {
		t.Fatalf("generate token failed: %v", err)
	}
	return token
}

func TestStateRequiresToken(t *testing.T) {
	r, _, _ := newRouter(t)
	path := "/v1/games/" + gameAddr.Hex() + "/state"

	if code, _ := do(t, r, http.MethodGet, path, "", ""); code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", code)
	}

	spectator, err := pkgAuth.GenerateSpectatorToken(bob.Hex())
	if err != nil {
		t.Fatalf("generate token failed: %v", err)
	}
	code, env := do(t, r, http.MethodGet, path, spectator, "")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", code, env.Msg)
	}
	var state struct {
		Stage   string `json:"stage"`
		Betting struct {
			CallAmount json.Number `json:"callAmount"`
			CanCheck   bool        `json:"canCheck"`
		} `json:"betting"`
	}
	if err := json.Unmarshal(env.Data, &state); err != nil {
		t.Fatalf("decode state failed: %v", err)
	}
	if state.Stage != "betting" || state.Betting.CallAmount.String() != "100" || state.Betting.CanCheck {
		t.Fatalf("unexpected state %+v", state)
	}

	if code, _ := do(t, r, http.MethodPost, "/v1/games/"+gameAddr.Hex()+"/fold", spectator, ""); code != http.StatusForbidden {
		t.Fatalf("expected spectator fold to be forbidden, got %d", code)
	}
}

func TestBetValidationIsClassified(t *testing.T) {
	r, _, game := newRouter(t)
	token := playerToken(t, alice)

	code, env := do(t, r, http.MethodPost, "/v1/games/"+gameAddr.Hex()+"/bet", token, `{"amount":"40"}`)
	if code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", code)
	}
	if env.Error == nil || env.Error.Kind != appErr.KindValidation || env.Error.Suggestion == "" {
		t.Fatalf("expected classified validation error, got %+v", env.Error)
	}
	if bets := game.Writes("PlaceBet"); len(bets) != 0 {
		t.Fatalf("expected no transaction, got %+v", bets)
	}

	code, env = do(t, r, http.MethodPost, "/v1/games/"+gameAddr.Hex()+"/call", token, "")
	if code != http.StatusOK {
		t.Fatalf("expected call to succeed, got %d (%s)", code, env.Msg)
	}
	if bets := game.Writes("PlaceBet"); len(bets) != 1 || bets[0].Amount.Int64() != 100 {
		t.Fatalf("unexpected bets %+v", bets)
	}
}

func TestLedgerRejectionStatus(t *testing.T) {
	r, _, game := newRouter(t)
	game.Errs["Fold"] = &appErr.LedgerError{Reason: "NotYourTurn"}

	code, env := do(t, r, http.MethodPost, "/v1/games/"+gameAddr.Hex()+"/fold", playerToken(t, alice), "")
	if code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", code)
	}
	if env.Error == nil || env.Error.Kind != appErr.KindLedger {
		t.Fatalf("expected ledger classification, got %+v", env.Error)
	}
}

func TestOtherPlayerTokenRejected(t *testing.T) {
	r, _, _ := newRouter(t)
	code, _ := do(t, r, http.MethodPost, "/v1/games/"+gameAddr.Hex()+"/check", playerToken(t, bob), "")
	if code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for a token of another address, got %d", code)
	}
}

func TestCreateAndListGames(t *testing.T) {
	r, dialer, _ := newRouter(t)
	token := playerToken(t, alice)

	code, env := do(t, r, http.MethodPost, "/v1/games", token, "")
	if code != http.StatusOK {
		t.Fatalf("create failed: %d (%s)", code, env.Msg)
	}
	if len(dialer.Created) != 1 {
		t.Fatalf("expected one created game, got %d", len(dialer.Created))
	}

	code, env = do(t, r, http.MethodGet, "/v1/games?mine=true", token, "")
	if code != http.StatusOK {
		t.Fatalf("list failed: %d", code)
	}
	var list struct {
		Items []struct {
			Contract string `json:"contract"`
			Seated   bool   `json:"seated"`
		} `json:"items"`
	}
	if err := json.Unmarshal(env.Data, &list); err != nil {
		t.Fatalf("decode list failed: %v", err)
	}
	if len(list.Items) != 1 || !list.Items[0].Seated || list.Items[0].Contract != dialer.Created[0].Hex() {
		t.Fatalf("unexpected list %+v", list.Items)
	}

	if code, _ := do(t, r, http.MethodGet, "/v1/games/nope/state", token, ""); code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad address, got %d", code)
	}
	if code, _ := do(t, r, http.MethodGet, "/v1/games/"+bob.Hex()+"/state", token, ""); code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown game, got %d", code)
	}
}

func TestLobbyWriteLogsFailedRefresh(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	previous := logger.Log
	logger.Log = zap.New(core)
	t.Cleanup(func() { logger.Log = previous })

	r, dialer, _ := newRouter(t)
	token := playerToken(t, alice)

	lobbyAddr := common.HexToAddress("0x00000000000000000000000000000000000000D4")
	game := ledgertest.New(lobbyAddr, alice)
	game.Update(func(s *ledger.Snapshot) {
		s.TotalPlayers = 2
		s.IsPlayer = true
	})
	game.OnWrite = func(f *ledgertest.Fake, tx ledgertest.Tx) {
		if tx.Method == "StartGame" {
			f.Errs["ReadSnapshot"] = errors.New("rpc down")
		}
	}
	dialer.Add(game)

	// open the session so the start is followed by a refresh
	if code, env := do(t, r, http.MethodGet, "/v1/games/"+lobbyAddr.Hex()+"/state", token, ""); code != http.StatusOK {
		t.Fatalf("state failed: %d (%s)", code, env.Msg)
	}
	if code, env := do(t, r, http.MethodPost, "/v1/games/"+lobbyAddr.Hex()+"/start", token, ""); code != http.StatusOK {
		t.Fatalf("start failed: %d (%s)", code, env.Msg)
	}
	if n := logs.FilterMessage("refresh after lobby write failed").Len(); n != 1 {
		t.Fatalf("expected one refresh warning, got %d", n)
	}
}
