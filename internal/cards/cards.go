// Package cards holds the card and masked-deck values shared by the engine
// and ledger boundaries.
package cards

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

const DeckSize = 52

// Hex is a 0x-prefixed field element as exchanged with the engine and the ledger.
type Hex string

// HexFromBig renders v as a 32-byte zero-padded word, the form the engine expects.
func HexFromBig(v *big.Int) Hex {
	if v == nil || v.Sign() < 0 {
		v = new(big.Int)
	}
	return Hex(hexutil.Encode(common.LeftPadBytes(v.Bytes(), 32)))
}

// Big parses h, tolerating zero padding that hexutil.DecodeBig rejects.
func (h Hex) Big() (*big.Int, error) {
	s := strings.TrimPrefix(strings.TrimPrefix(string(h), "0x"), "0X")
	if s == "" {
		return nil, fmt.Errorf("empty hex value")
	}
	v, ok := new(big.Int).SetString(s, 16)
	if !ok {
		return nil, fmt.Errorf("invalid hex value %q", string(h))
	}
	return v, nil
}

// Point is an affine curve point: a public key or a reveal share.
type Point [2]Hex

func PointFromBig(x, y *big.Int) Point {
	return Point{HexFromBig(x), HexFromBig(y)}
}

func (p Point) Big() (x, y *big.Int, err error) {
	if x, err = p[0].Big(); err != nil {
		return nil, nil, err
	}
	if y, err = p[1].Big(); err != nil {
		return nil, nil, err
	}
	return x, y, nil
}

// MaskedCard is one encrypted deck entry.
type MaskedCard [4]Hex

func MaskedFromBig(v [4]*big.Int) MaskedCard {
	var m MaskedCard
	for i := range v {
		m[i] = HexFromBig(v[i])
	}
	return m
}

func (m MaskedCard) Big() ([4]*big.Int, error) {
	var out [4]*big.Int
	for i := range m {
		v, err := m[i].Big()
		if err != nil {
			return out, fmt.Errorf("masked card element %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

// DeckToBig converts a whole deck for a contract call.
func DeckToBig(deck []MaskedCard) ([][4]*big.Int, error) {
	out := make([][4]*big.Int, len(deck))
	for i, c := range deck {
		v, err := c.Big()
		if err != nil {
			return nil, fmt.Errorf("deck card %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

func DeckFromBig(raw [][4]*big.Int) []MaskedCard {
	out := make([]MaskedCard, len(raw))
	for i := range raw {
		out[i] = MaskedFromBig(raw[i])
	}
	return out
}
