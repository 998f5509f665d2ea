// Package session runs the orchestrator for one game contract and the local
// player: it polls the ledger, keeps the action clock in sync, fires the
// reveal coordinators and pushes the resulting state to subscribers.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"zkpoker-client/internal/service/betting"
	"zkpoker-client/internal/service/clock"
	"zkpoker-client/internal/service/engine"
	"zkpoker-client/internal/service/hand"
	"zkpoker-client/internal/service/ledger"
	"zkpoker-client/internal/service/reveal"
	"zkpoker-client/internal/service/showdown"
	"zkpoker-client/internal/service/shuffle"
	"zkpoker-client/internal/service/stage"
	appErr "zkpoker-client/pkg/errors"
	"zkpoker-client/pkg/logger"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

type KeySource interface {
	GetKey(ctx context.Context, addr common.Address) (engine.Key, error)
}

// Deps are shared by every session.
type Deps struct {
	Engine engine.Gateway
	Keys   KeySource
	Cache  ledger.Cache
	Reader ledger.ReaderConfig
	Tick   time.Duration
}

type Session struct {
	game   ledger.Game
	self   common.Address
	reader *ledger.Reader
	clock  *clock.Clock
	log    *zap.Logger

	hole      *reveal.Coordinator
	community *reveal.Coordinator
	shuffler  *shuffle.Coordinator
	betting   *betting.Controller
	showdown  *showdown.Controller
	revealer  *hand.Revealer

	ctx       context.Context
	cancel    context.CancelFunc
	startOnce sync.Once
	revealing atomic.Bool

	mu          sync.Mutex
	subscribers map[string]chan OutgoingMessage
	seq         int64
	hand        hand.Hand
}

func New(game ledger.Game, deps Deps) *Session {
	self := game.Signer()
	reader := ledger.NewReader(game, self, deps.Cache, deps.Reader)
	clk := clock.New(deps.Tick)
	return &Session{
		game:        game,
		self:        self,
		reader:      reader,
		clock:       clk,
		log:         logger.With(game.Address().Hex(), self.Hex()),
		hole:        reveal.New(reveal.Hole, game, deps.Engine, deps.Keys, reader),
		community:   reveal.New(reveal.Community, game, deps.Engine, deps.Keys, reader),
		shuffler:    shuffle.New(game, deps.Engine, deps.Keys, reader),
		betting:     betting.New(game, clk, reader),
		showdown:    showdown.New(game, reader),
		revealer:    hand.New(game, deps.Engine, deps.Keys, self),
		ctx:         context.Background(),
		subscribers: make(map[string]chan OutgoingMessage),
	}
}

func (s *Session) Contract() common.Address { return s.game.Address() }

func (s *Session) Self() common.Address { return s.self }

// Start begins polling and the local countdown; both stop with ctx or Stop.
func (s *Session) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		s.ctx, s.cancel = context.WithCancel(ctx)
		s.reader.OnSnapshot(s.onSnapshot)
		s.reader.Start(s.ctx)
		s.clock.Start(s.ctx)
		s.log.Info("session started")
	})
}

func (s *Session) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, ch := range s.subscribers {
		delete(s.subscribers, id)
		close(ch)
	}
}

func (s *Session) onSnapshot(snap *ledger.Snapshot) {
	s.clock.Sync(snap.RemainingSeconds, snap.NextPlayer)

	if s.hole.Trigger(s.ctx, snap) {
		s.log.Debug("hole reveal triggered", zap.String("cardKey", reveal.CardKey(snap.PendingHole)))
	}
	if s.community.Trigger(s.ctx, snap) {
		s.log.Debug("community reveal triggered", zap.String("cardKey", reveal.CardKey(snap.PendingCommunity)))
	}
	if len(snap.PlayerCards)+len(snap.CommunityCards) > 0 {
		s.revealHand(snap)
	}

	s.broadcast(snap)
}

func (s *Session) revealHand(snap *ledger.Snapshot) {
	if !s.revealing.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer s.revealing.Store(false)
		h, err := s.revealer.Reveal(s.ctx, snap)
		if err != nil {
			s.log.Warn("hand reveal failed", zap.Error(err))
			return
		}
		s.mu.Lock()
		changed := !slices.Equal(h.Hole, s.hand.Hole) || !slices.Equal(h.Community, s.hand.Community)
		s.hand = h
		s.mu.Unlock()
		if changed {
			s.broadcast(s.reader.Latest())
		}
	}()
}

// Snapshot returns the latest read, reading once if nothing has been read yet.
func (s *Session) Snapshot(ctx context.Context) (*ledger.Snapshot, error) {
	if snap := s.reader.Latest(); snap != nil {
		return snap, nil
	}
	return s.reader.Refresh(ctx)
}

func (s *Session) Refresh(ctx context.Context) (*ledger.Snapshot, error) {
	return s.reader.Refresh(ctx)
}

// State exports the current view for the local player.
func (s *Session) State(ctx context.Context) (State, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return State{}, err
	}
	return s.export(snap), nil
}

func (s *Session) export(snap *ledger.Snapshot) State {
	s.mu.Lock()
	h := s.hand
	s.mu.Unlock()

	st := State{
		Contract: s.game.Address().Hex(),
		Self:     s.self.Hex(),
		Stage:    stage.Resolve(snap),
		Snapshot: snap,
		Clock: ClockState{
			Remaining:          s.clock.Remaining(),
			Expired:            s.clock.Expired(),
			NextPlayer:         s.clock.NextPlayer().Hex(),
			ForceFoldOfferable: s.clock.ForceFoldOfferable(s.self),
		},
		Betting:   s.betting.Options(snap),
		Reveals:   []reveal.Status{s.hole.Status(), s.community.Status()},
		Shuffling: s.shuffler.InFlight(),
		Pending:   s.betting.Pending(),
		Hand:      h,
		Selection: s.showdown.Selected(),
		UpdatedAt: time.Now(),
	}
	if snap != nil {
		st.Round = snap.CurrentRound.String()
		if snap.HasWinner() {
			st.Winner = snap.Winner.Hex()
		}
	}
	return st
}

func (s *Session) Subscribe(id string) chan OutgoingMessage {
	ch := make(chan OutgoingMessage, 8)
	s.mu.Lock()
	if old, ok := s.subscribers[id]; ok {
		close(old)
	}
	s.subscribers[id] = ch
	s.mu.Unlock()

	if snap := s.reader.Latest(); snap != nil {
		s.push(id, OutgoingMessage{Type: "state", Data: s.export(snap)})
	}
	return ch
}

func (s *Session) Unsubscribe(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch, ok := s.subscribers[id]; ok {
		delete(s.subscribers, id)
		close(ch)
	}
}

func (s *Session) broadcast(snap *ledger.Snapshot) {
	if snap == nil {
		return
	}
	state := s.export(snap)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	for id, ch := range s.subscribers {
		select {
		case ch <- OutgoingMessage{Type: "state", Seq: s.seq, Data: state}:
		default:
			s.log.Warn("ws subscriber channel full", zap.String("subscriber", id))
		}
	}
}

func (s *Session) push(id string, msg OutgoingMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.subscribers[id]
	if !ok {
		return
	}
	s.seq++
	msg.Seq = s.seq
	select {
	case ch <- msg:
	default:
		s.log.Warn("ws subscriber channel full", zap.String("subscriber", id))
	}
}

// fresh reads the ledger so every action validates against current state.
func (s *Session) fresh(ctx context.Context) (*ledger.Snapshot, error) {
	return s.reader.Refresh(ctx)
}

func (s *Session) Shuffle(ctx context.Context) (*ledger.Receipt, error) {
	snap, err := s.fresh(ctx)
	if err != nil {
		return nil, err
	}
	return s.shuffler.Shuffle(ctx, snap)
}

func (s *Session) Bet(ctx context.Context, amount *big.Int) (*ledger.Receipt, error) {
	snap, err := s.fresh(ctx)
	if err != nil {
		return nil, err
	}
	return s.betting.Bet(ctx, snap, amount)
}

func (s *Session) Call(ctx context.Context) (*ledger.Receipt, error) {
	snap, err := s.fresh(ctx)
	if err != nil {
		return nil, err
	}
	return s.betting.Call(ctx, snap)
}

func (s *Session) Check(ctx context.Context) (*ledger.Receipt, error) {
	snap, err := s.fresh(ctx)
	if err != nil {
		return nil, err
	}
	return s.betting.Check(ctx, snap)
}

func (s *Session) Fold(ctx context.Context) (*ledger.Receipt, error) {
	snap, err := s.fresh(ctx)
	if err != nil {
		return nil, err
	}
	return s.betting.Fold(ctx, snap)
}

func (s *Session) ForceFold(ctx context.Context) (*ledger.Receipt, error) {
	snap, err := s.fresh(ctx)
	if err != nil {
		return nil, err
	}
	return s.betting.ForceFold(ctx, snap)
}

// Reveal runs one coordinator synchronously, for a manual retry after a failure.
func (s *Session) Reveal(ctx context.Context, category reveal.Category) (*ledger.Receipt, error) {
	snap, err := s.fresh(ctx)
	if err != nil {
		return nil, err
	}
	if category == reveal.Hole {
		return s.hole.Run(ctx, snap)
	}
	return s.community.Run(ctx, snap)
}

func (s *Session) ToggleCard(pos int) ([]int, error) {
	sel, err := s.showdown.Toggle(pos)
	if err != nil {
		return nil, err
	}
	s.broadcast(s.reader.Latest())
	return sel, nil
}

func (s *Session) SelectCards(positions []int) error {
	if err := s.showdown.Select(positions); err != nil {
		return err
	}
	s.broadcast(s.reader.Latest())
	return nil
}

func (s *Session) SubmitCards(ctx context.Context) (*ledger.Receipt, error) {
	snap, err := s.fresh(ctx)
	if err != nil {
		return nil, err
	}
	return s.showdown.Submit(ctx, snap)
}

// Hand decrypts what it can right now.
func (s *Session) Hand(ctx context.Context) (hand.Hand, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return hand.Hand{}, err
	}
	h, err := s.revealer.Reveal(ctx, snap)
	if err != nil {
		return hand.Hand{}, err
	}
	s.mu.Lock()
	s.hand = h
	s.mu.Unlock()
	return h, nil
}

// Suggest proposes the strongest three community cards for the current hand.
func (s *Session) Suggest(ctx context.Context) ([]int, string, error) {
	h, err := s.Hand(ctx)
	if err != nil {
		return nil, "", err
	}
	return showdown.Suggest(h)
}

func (s *Session) Preview(ctx context.Context, positions []int) (string, error) {
	h, err := s.Hand(ctx)
	if err != nil {
		return "", err
	}
	return showdown.Preview(h, positions)
}

func (s *Session) Results(ctx context.Context) ([]ledger.PlayerResult, error) {
	return s.game.Results(ctx)
}

// HandleAction serves actions sent over the websocket.
func (s *Session) HandleAction(ctx context.Context, subscriber, action string, data json.RawMessage) error {
	var err error
	switch action {
	case "shuffle":
		_, err = s.Shuffle(ctx)
	case "bet":
		var payload struct {
			Amount string `json:"amount"`
		}
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("%w: %v", appErr.ErrInvalidAmount, err)
		}
		amount, ok := new(big.Int).SetString(strings.TrimSpace(payload.Amount), 10)
		if !ok {
			return appErr.ErrInvalidAmount
		}
		_, err = s.Bet(ctx, amount)
	case "call":
		_, err = s.Call(ctx)
	case "check":
		_, err = s.Check(ctx)
	case "fold":
		_, err = s.Fold(ctx)
	case "force_fold":
		_, err = s.ForceFold(ctx)
	case "toggle_card":
		var payload struct {
			Position *int `json:"position"`
		}
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("%w: %v", appErr.ErrInvalidPosition, err)
		}
		if payload.Position == nil {
			return appErr.ErrInvalidPosition
		}
		_, err = s.ToggleCard(*payload.Position)
	case "submit_cards":
		_, err = s.SubmitCards(ctx)
	case "rejoin":
		snap, rerr := s.Snapshot(ctx)
		if rerr != nil {
			return rerr
		}
		s.push(subscriber, OutgoingMessage{Type: "state", Data: s.export(snap)})
	case "ping":
		s.push(subscriber, OutgoingMessage{Type: "pong", Data: map[string]string{"message": "pong"}})
	default:
		return fmt.Errorf("unsupported action %q", action)
	}
	return err
}
