package cards

import (
	"fmt"

	"github.com/paulhankin/poker"
)

type Suit int

const (
	Spade Suit = iota
	Heart
	Diamond
	Club
)

// Rank 0 is a deuce and 12 is an ace.
type Rank int

const (
	Two Rank = iota
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
	Ace
)

// Card is the plaintext id an unmask yields, 0..51. Unknown is -1.
type Card int

const Unknown Card = -1

func (c Card) Valid() bool { return c >= 0 && c < DeckSize }

func (c Card) Suit() Suit { return Suit(int(c) / 13) }

func (c Card) Rank() Rank { return Rank(int(c) % 13) }

const (
	rankRunes = "23456789TJQKA"
	suitRunes = "shdc"
)

func (c Card) String() string {
	if !c.Valid() {
		return "??"
	}
	return string(rankRunes[c.Rank()]) + string(suitRunes[c.Suit()])
}

// Poker converts to the evaluator's card encoding.
func (c Card) Poker() (poker.Card, error) {
	if !c.Valid() {
		return 0, fmt.Errorf("card %d out of range", int(c))
	}
	var suit poker.Suit
	switch c.Suit() {
	case Spade:
		suit = poker.Spade
	case Heart:
		suit = poker.Heart
	case Diamond:
		suit = poker.Diamond
	default:
		suit = poker.Club
	}
	rank := poker.Rank(int(c.Rank()) + 2)
	if c.Rank() == Ace {
		rank = poker.Rank(1)
	}
	return poker.MakeCard(suit, rank)
}

func toPoker(cs []Card) ([]poker.Card, error) {
	out := make([]poker.Card, len(cs))
	for i, c := range cs {
		pc, err := c.Poker()
		if err != nil {
			return nil, err
		}
		out[i] = pc
	}
	return out, nil
}

// Describe names the hand formed by 3, 5 or 7 cards, e.g. "pair of kings".
func Describe(cs []Card) (string, error) {
	pcs, err := toPoker(cs)
	if err != nil {
		return "", err
	}
	return poker.Describe(pcs)
}

// Eval5 scores a five card hand; higher is better.
func Eval5(cs [5]Card) (int16, error) {
	pcs, err := toPoker(cs[:])
	if err != nil {
		return 0, err
	}
	var hand [5]poker.Card
	copy(hand[:], pcs)
	return poker.Eval5(&hand), nil
}
