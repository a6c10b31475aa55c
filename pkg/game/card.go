package game

import (
	"errors"
	"fmt"
	"strconv"
)

// Suit represents a card suit. The zero value NoSuit stands for "no suit
// established", used for the lead suit before the first card of a trick and
// for the trump suit in the no-trump round.
type Suit int

const (
	NoSuit Suit = iota
	Hearts
	Diamonds
	Spades
	Clubs
)

// suits lists the real suits in deck-building order.
var suits = []Suit{Hearts, Diamonds, Spades, Clubs}

// Key returns the single lowercase letter used in card keys.
func (s Suit) Key() string {
	switch s {
	case Hearts:
		return "h"
	case Diamonds:
		return "d"
	case Spades:
		return "s"
	case Clubs:
		return "c"
	default:
		return ""
	}
}

// String returns the display name of the suit.
func (s Suit) String() string {
	switch s {
	case Hearts:
		return "Hearts"
	case Diamonds:
		return "Diamonds"
	case Spades:
		return "Spades"
	case Clubs:
		return "Clubs"
	default:
		return ""
	}
}

// Card ranks. Jack through Ace map to 11..14.
const (
	MinRank   = 2
	RankJack  = 11
	RankQueen = 12
	RankKing  = 13
	RankAce   = 14
	MaxRank   = RankAce
)

// trumpBonus is added to a card's trick value when its suit is trump.
const trumpBonus = 20

// ErrInvalidRank is returned when constructing a card with a rank outside
// [2,14] or without a suit.
var ErrInvalidRank = errors.New("game: card rank must be between 2 and 14")

// Card is an immutable rank/suit value.
type Card struct {
	rank int
	suit Suit
}

// NewCard creates a card, validating the rank and suit.
func NewCard(rank int, suit Suit) (Card, error) {
	if rank < MinRank || rank > MaxRank {
		return Card{}, fmt.Errorf("%w: got %d", ErrInvalidRank, rank)
	}
	if suit == NoSuit {
		return Card{}, errors.New("game: card must have a suit")
	}
	return Card{rank: rank, suit: suit}, nil
}

// Rank returns the card's rank (2..14).
func (c Card) Rank() int { return c.rank }

// Suit returns the card's suit.
func (c Card) Suit() Suit { return c.suit }

// Key returns the wire form of the card: lowercase rank token followed by
// the suit letter, e.g. "ah" for the Ace of Hearts or "10c" for the Ten of
// Clubs.
func (c Card) Key() string {
	return rankKey(c.rank) + c.suit.Key()
}

// String returns a human-readable form like "Ace of Hearts".
func (c Card) String() string {
	return rankLabel(c.rank) + " of " + c.suit.String()
}

// TrickValue computes the card's value within a trick. The value is the raw
// rank, plus a bonus of 20 when the card's suit is trump. Once a lead suit is
// established, a card that is neither trump nor of the lead suit cannot take
// the trick and its value collapses to 0.
func (c Card) TrickValue(trump, lead Suit) int {
	if lead != NoSuit && c.suit != trump && c.suit != lead {
		return 0
	}
	value := c.rank
	if trump != NoSuit && c.suit == trump {
		value += trumpBonus
	}
	return value
}

// PlayedCard is a card on the table, tagged with the seat that played it.
type PlayedCard struct {
	Card Card
	Seat int
}

func rankKey(rank int) string {
	switch rank {
	case RankJack:
		return "j"
	case RankQueen:
		return "q"
	case RankKing:
		return "k"
	case RankAce:
		return "a"
	default:
		return strconv.Itoa(rank)
	}
}

func rankLabel(rank int) string {
	switch rank {
	case RankJack:
		return "Jack"
	case RankQueen:
		return "Queen"
	case RankKing:
		return "King"
	case RankAce:
		return "Ace"
	default:
		return strconv.Itoa(rank)
	}
}
