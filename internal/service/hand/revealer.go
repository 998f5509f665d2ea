// Package hand decrypts the cards visible to the local player: its own hole
// cards and the community cards.
package hand

import (
	"context"
	"sync"

	"zkpoker-client/internal/cards"
	"zkpoker-client/internal/service/engine"
	"zkpoker-client/internal/service/ledger"
	"zkpoker-client/pkg/logger"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type KeySource interface {
	GetKey(ctx context.Context, addr common.Address) (engine.Key, error)
}

// Hand is the plaintext view for one snapshot. Cards that cannot be
// decrypted yet are cards.Unknown.
type Hand struct {
	Hole        []cards.Card `json:"hole"`
	Community   []cards.Card `json:"community"`
	Description string       `json:"description,omitempty"`
}

// Known reports whether every card in cs is decrypted.
func Known(cs []cards.Card) bool {
	for _, c := range cs {
		if !c.Valid() {
			return false
		}
	}
	return true
}

type Revealer struct {
	source ledger.Source
	engine engine.Gateway
	keys   KeySource
	self   common.Address
	log    *zap.Logger

	mu       sync.Mutex
	resolved map[uint8]cards.Card
}

func New(source ledger.Source, gw engine.Gateway, keys KeySource, self common.Address) *Revealer {
	return &Revealer{
		source:   source,
		engine:   gw,
		keys:     keys,
		self:     self,
		log:      logger.With(source.Address().Hex(), self.Hex()),
		resolved: make(map[uint8]cards.Card),
	}
}

type request struct {
	index     uint8
	community bool
	card      cards.MaskedCard
	shares    []cards.Point
}

// Reveal decrypts whatever the ledger's tokens allow. Hole cards combine the
// tokens of every other player, community cards the tokens of every player.
// Decrypted cards are remembered by deck index.
func (r *Revealer) Reveal(ctx context.Context, snap *ledger.Snapshot) (Hand, error) {
	if snap == nil {
		return Hand{}, nil
	}

	hole := ledger.NonZero(snap.PlayerCards)
	community := ledger.NonZero(snap.CommunityCards)

	var reqs []*request
	for _, idx := range hole {
		if req := r.pending(snap, idx, false); req != nil {
			reqs = append(reqs, req)
		}
	}
	for _, idx := range community {
		if req := r.pending(snap, idx, true); req != nil {
			reqs = append(reqs, req)
		}
	}

	if len(reqs) > 0 {
		if err := r.resolve(ctx, snap, reqs); err != nil {
			return Hand{}, err
		}
	}

	h := Hand{
		Hole:      r.lookup(hole),
		Community: r.lookup(community),
	}
	if Known(h.Hole) && len(h.Hole) > 0 {
		all := append(append([]cards.Card(nil), h.Hole...), known(h.Community)...)
		if n := len(all); n == 5 || n == 7 {
			if desc, err := cards.Describe(all); err == nil {
				h.Description = desc
			}
		}
	}
	return h, nil
}

func (r *Revealer) pending(snap *ledger.Snapshot, idx uint8, community bool) *request {
	r.mu.Lock()
	_, ok := r.resolved[idx]
	r.mu.Unlock()
	if ok {
		return nil
	}
	card, ok := snap.DeckCard(idx)
	if !ok {
		return nil
	}
	return &request{index: idx, community: community, card: card}
}

func (r *Revealer) resolve(ctx context.Context, snap *ledger.Snapshot, reqs []*request) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, req := range reqs {
		req := req
		g.Go(func() error {
			tokens, err := r.source.RevealTokens(gctx, req.index)
			if err != nil {
				return err
			}
			for _, tok := range tokens {
				if !req.community && tok.Player == r.self {
					continue
				}
				req.shares = append(req.shares, tok.Share)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var ready []*request
	for _, req := range reqs {
		if len(req.shares) >= required(snap, req.community) {
			ready = append(ready, req)
		}
	}
	if len(ready) == 0 {
		return nil
	}

	key, err := r.keys.GetKey(ctx, r.self)
	if err != nil {
		return err
	}
	deck := make([]cards.MaskedCard, len(ready))
	shares := make([][]cards.Point, len(ready))
	for i, req := range ready {
		deck[i] = req.card
		shares[i] = req.shares
	}
	plain, err := r.engine.UnmaskBatch(ctx, deck, key.SK, shares)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for i, req := range ready {
		if i < len(plain) && plain[i].Valid() {
			r.resolved[req.index] = plain[i]
			r.log.Debug("card decrypted", zap.Uint8("index", req.index), zap.Bool("community", req.community))
		}
	}
	return nil
}

// required is the number of tokens a card needs before it can be decrypted.
func required(snap *ledger.Snapshot, community bool) int {
	n := int(snap.TotalPlayers)
	if !community {
		n--
	}
	if n < 1 {
		n = 1
	}
	return n
}

func (r *Revealer) lookup(indices []uint8) []cards.Card {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]cards.Card, len(indices))
	for i, idx := range indices {
		c, ok := r.resolved[idx]
		if !ok {
			c = cards.Unknown
		}
		out[i] = c
	}
	return out
}

func known(cs []cards.Card) []cards.Card {
	out := make([]cards.Card, 0, len(cs))
	for _, c := range cs {
		if c.Valid() {
			out = append(out, c)
		}
	}
	return out
}
