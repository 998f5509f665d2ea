package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"zkpoker-client/internal/cards"
	appErr "zkpoker-client/pkg/errors"
	"zkpoker-client/pkg/logger"

	"go.uber.org/zap"
)

const maxResponseBytes = 8 << 20

// Client talks to the engine's HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

var _ Gateway = (*Client)(nil)

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) GenerateKey(ctx context.Context) (Key, error) {
	var key Key
	if err := c.do(ctx, http.MethodGet, "/api/generate-key", nil, &key); err != nil {
		return Key{}, err
	}
	if key.SK == "" || key.PKXY[0] == "" || key.PKXY[1] == "" {
		return Key{}, &appErr.EngineError{Op: "generate-key", Cause: fmt.Errorf("incomplete key")}
	}
	return key, nil
}

func (c *Client) InitMaskedDeck(ctx context.Context, gameKey cards.Point) ([]cards.Hex, []cards.MaskedCard, error) {
	req := struct {
		GameKey cards.Point `json:"gameKey"`
	}{gameKey}
	var resp struct {
		PKC         []cards.Hex        `json:"pkc"`
		MaskedCards []cards.MaskedCard `json:"maskedCards"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/get-masked-cards", req, &resp); err != nil {
		return nil, nil, err
	}
	if len(resp.MaskedCards) != cards.DeckSize {
		return nil, nil, &appErr.EngineError{Op: "get-masked-cards", Cause: fmt.Errorf("expected %d cards, got %d", cards.DeckSize, len(resp.MaskedCards))}
	}
	return resp.PKC, resp.MaskedCards, nil
}

func (c *Client) FirstShuffle(ctx context.Context, gameKey cards.Point, deck []cards.MaskedCard) (Shuffled, error) {
	req := struct {
		GameKey     cards.Point        `json:"gameKey"`
		MaskedCards []cards.MaskedCard `json:"maskedCards"`
	}{gameKey, deck}
	var resp struct {
		NewDeck []cards.MaskedCard `json:"newDeck"`
		Proof   string             `json:"proof"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/first-shuffle", req, &resp); err != nil {
		return Shuffled{}, err
	}
	if len(resp.NewDeck) != len(deck) {
		return Shuffled{}, &appErr.EngineError{Op: "first-shuffle", Cause: fmt.Errorf("deck size changed from %d to %d", len(deck), len(resp.NewDeck))}
	}
	return Shuffled{Cards: resp.NewDeck, Proof: resp.Proof}, nil
}

func (c *Client) Shuffle(ctx context.Context, deck []cards.MaskedCard, gameKey cards.Point) (Shuffled, error) {
	req := struct {
		OldDeck []cards.MaskedCard `json:"oldDeck"`
		GameKey cards.Point        `json:"gameKey"`
	}{deck, gameKey}
	var resp struct {
		Shuffled Shuffled `json:"shuffled"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/shuffle", req, &resp); err != nil {
		return Shuffled{}, err
	}
	if len(resp.Shuffled.Cards) != len(deck) {
		return Shuffled{}, &appErr.EngineError{Op: "shuffle", Cause: fmt.Errorf("deck size changed from %d to %d", len(deck), len(resp.Shuffled.Cards))}
	}
	return resp.Shuffled, nil
}

func (c *Client) RevealShares(ctx context.Context, deck []cards.MaskedCard, sk cards.Hex) ([]RevealShare, error) {
	req := struct {
		Cards []cards.MaskedCard `json:"cards"`
		SK    cards.Hex          `json:"sk"`
	}{deck, sk}
	var resp struct {
		RevealKeys []RevealShare `json:"revealKeys"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/get-reveal-tokens", req, &resp); err != nil {
		return nil, err
	}
	if len(resp.RevealKeys) != len(deck) {
		return nil, &appErr.EngineError{Op: "get-reveal-tokens", Cause: fmt.Errorf("expected %d shares, got %d", len(deck), len(resp.RevealKeys))}
	}
	return resp.RevealKeys, nil
}

func (c *Client) Unmask(ctx context.Context, card cards.MaskedCard, sk cards.Hex, shares []cards.Point) (cards.Card, error) {
	req := struct {
		Card   cards.MaskedCard `json:"card"`
		SK     cards.Hex        `json:"sk"`
		Tokens []cards.Point    `json:"tokens"`
	}{card, sk, shares}
	var resp struct {
		Result int `json:"result"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/unmask-card", req, &resp); err != nil {
		return cards.Unknown, err
	}
	return toCard(resp.Result), nil
}

func (c *Client) UnmaskBatch(ctx context.Context, deck []cards.MaskedCard, sk cards.Hex, shares [][]cards.Point) ([]cards.Card, error) {
	if len(deck) != len(shares) {
		return nil, fmt.Errorf("unmask batch: %d cards but %d share sets", len(deck), len(shares))
	}
	req := struct {
		Cards  []cards.MaskedCard `json:"cards"`
		SK     cards.Hex          `json:"sk"`
		Tokens [][]cards.Point    `json:"tokens"`
	}{deck, sk, shares}
	var resp struct {
		Result []int `json:"result"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/unmask-cards", req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Result) != len(deck) {
		return nil, &appErr.EngineError{Op: "unmask-cards", Cause: fmt.Errorf("expected %d results, got %d", len(deck), len(resp.Result))}
	}
	out := make([]cards.Card, len(resp.Result))
	for i, r := range resp.Result {
		out[i] = toCard(r)
	}
	return out, nil
}

func toCard(v int) cards.Card {
	c := cards.Card(v)
	if !c.Valid() {
		return cards.Unknown
	}
	return c
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	op := strings.TrimPrefix(path, "/api/")

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", op, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return &appErr.EngineError{Op: op, Cause: err}
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("engine %s: %w", op, ctx.Err())
		}
		return &appErr.EngineError{Op: op, Cause: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &appErr.EngineError{Op: op, Cause: err}
	}
	logger.Log.Debug("engine call",
		zap.String("op", op),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(started)),
	)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &appErr.EngineError{Op: op, Cause: fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(raw), 200))}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &appErr.EngineError{Op: op, Cause: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
