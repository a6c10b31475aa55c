package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustCard(t *testing.T, rank int, suit Suit) Card {
	t.Helper()
	card, err := NewCard(rank, suit)
	require.NoError(t, err)
	return card
}

func TestNewCardValidation(t *testing.T) {
	_, err := NewCard(1, Hearts)
	require.ErrorIs(t, err, ErrInvalidRank)

	_, err = NewCard(15, Spades)
	require.ErrorIs(t, err, ErrInvalidRank)

	_, err = NewCard(10, NoSuit)
	require.Error(t, err)

	card, err := NewCard(RankAce, Clubs)
	require.NoError(t, err)
	assert.Equal(t, RankAce, card.Rank())
	assert.Equal(t, Clubs, card.Suit())
}

func TestCardKeys(t *testing.T) {
	tests := []struct {
		rank int
		suit Suit
		key  string
	}{
		{RankAce, Hearts, "ah"},
		{10, Clubs, "10c"},
		{2, Spades, "2s"},
		{RankJack, Diamonds, "jd"},
		{RankQueen, Hearts, "qh"},
		{RankKing, Clubs, "kc"},
	}
	for _, tc := range tests {
		card := mustCard(t, tc.rank, tc.suit)
		assert.Equal(t, tc.key, card.Key())
	}
}

func TestCardString(t *testing.T) {
	assert.Equal(t, "Ace of Hearts", mustCard(t, RankAce, Hearts).String())
	assert.Equal(t, "10 of Clubs", mustCard(t, 10, Clubs).String())
}

func TestTrickValue(t *testing.T) {
	aceClubs := mustCard(t, RankAce, Clubs)
	nineDiamonds := mustCard(t, 9, Diamonds)

	// No trump, no lead: raw rank.
	assert.Equal(t, 14, aceClubs.TrickValue(NoSuit, NoSuit))

	// Trump bonus.
	assert.Equal(t, 34, aceClubs.TrickValue(Clubs, NoSuit))

	// Neither trump nor lead once a lead exists: worthless.
	assert.Equal(t, 0, nineDiamonds.TrickValue(Clubs, Hearts))

	// Lead suit card keeps its rank.
	assert.Equal(t, 9, nineDiamonds.TrickValue(Clubs, Diamonds))

	// Trump card beats its raw rank even off-lead.
	assert.Equal(t, 22, mustCard(t, 2, Clubs).TrickValue(Clubs, Hearts))
}
