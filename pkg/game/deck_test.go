package game

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDeckHasAllCards(t *testing.T) {
	deck := NewDeck(rand.New(rand.NewSource(7)))
	require.Equal(t, 52, deck.Size())

	seen := make(map[string]bool)
	for {
		card, ok := deck.Draw()
		if !ok {
			break
		}
		assert.False(t, seen[card.Key()], "duplicate card %s", card.Key())
		seen[card.Key()] = true
	}
	assert.Len(t, seen, 52)
	assert.Equal(t, 0, deck.Size())

	_, ok := deck.Draw()
	assert.False(t, ok)
}

func TestDeckShuffleIsSeeded(t *testing.T) {
	a := NewDeck(rand.New(rand.NewSource(42)))
	b := NewDeck(rand.New(rand.NewSource(42)))
	for i := 0; i < 52; i++ {
		cardA, okA := a.Draw()
		cardB, okB := b.Draw()
		require.True(t, okA)
		require.True(t, okB)
		assert.Equal(t, cardA, cardB, "draw %d", i)
	}
}
