package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// craftedTable returns an in-game table with no armed timers, ready to have
// its round state set directly by the test.
func craftedTable(t *testing.T) *Table {
	t.Helper()
	tbl := NewTable(TableConfig{ID: 7, TurnTimeout: time.Hour})
	tbl.state = StateInGame
	tbl.phase = PhasePlaying
	t.Cleanup(func() { tbl.Finish() })
	return tbl
}

func TestAutoBetCountsLikelyWinners(t *testing.T) {
	tbl := craftedTable(t)
	trump := mustCard(t, 5, Clubs)
	tbl.trump = &trump
	tbl.round = 10

	p := NewComputer("bot")
	p.hand = []Card{
		mustCard(t, RankAce, Hearts), // off-trump ace counts
		mustCard(t, 9, Clubs),        // strong trump counts
		mustCard(t, 2, Diamonds),     // junk does not
	}
	withLock(tbl, func() {
		assert.Equal(t, 2, tbl.autoBetLocked(p))
	})

	// The count is clamped to the round's hand size.
	tbl.round = 1
	withLock(tbl, func() {
		assert.Equal(t, 1, tbl.autoBetLocked(p))
	})
}

func TestAutoBetWeakTrumpOnlyCountsInShortHands(t *testing.T) {
	tbl := craftedTable(t)
	trump := mustCard(t, 8, Clubs)
	tbl.trump = &trump
	tbl.round = 3

	p := NewComputer("bot")
	p.hand = []Card{
		mustCard(t, 3, Clubs),
		mustCard(t, 4, Clubs),
		mustCard(t, 2, Hearts),
	}
	// Three cards in hand: weak trumps are not counted.
	withLock(tbl, func() {
		assert.Equal(t, 0, tbl.autoBetLocked(p))
	})

	// Two cards in hand: both weak trumps count.
	p.hand = p.hand[:2]
	tbl.round = 2
	withLock(tbl, func() {
		assert.Equal(t, 2, tbl.autoBetLocked(p))
	})
}

func TestChooseCardLeading(t *testing.T) {
	tbl := craftedTable(t)
	trump := mustCard(t, 5, Clubs)
	tbl.trump = &trump

	p := NewComputer("bot")
	p.hand = []Card{
		mustCard(t, 9, Hearts),
		mustCard(t, 2, Spades),
		mustCard(t, RankAce, Clubs),
	}

	// Bet already met: dump the cheapest card.
	p.bet, p.tricksWon = 1, 1
	withLock(tbl, func() {
		card, ok := tbl.chooseCardLocked(p)
		require.True(t, ok)
		assert.Equal(t, "2s", card.Key())
	})

	// Still chasing tricks: lead the strongest non-trump.
	p.bet, p.tricksWon = 2, 1
	withLock(tbl, func() {
		card, ok := tbl.chooseCardLocked(p)
		require.True(t, ok)
		assert.Equal(t, "9h", card.Key())
	})

	// Nothing but trump left: lead the best trump.
	p.hand = []Card{mustCard(t, 2, Clubs), mustCard(t, RankAce, Clubs)}
	withLock(tbl, func() {
		card, ok := tbl.chooseCardLocked(p)
		require.True(t, ok)
		assert.Equal(t, "ac", card.Key())
	})
}

func TestChooseCardFollowing(t *testing.T) {
	tbl := craftedTable(t)
	trump := mustCard(t, 5, Clubs)
	tbl.trump = &trump
	tbl.leadSuit = Hearts
	tbl.trick = []PlayedCard{{Card: mustCard(t, RankQueen, Hearts), Seat: 0}}
	tbl.topIdx = 0

	p := NewComputer("bot")

	// Bet met: strongest card that still loses to the queen.
	p.bet, p.tricksWon = 1, 1
	p.hand = []Card{
		mustCard(t, 9, Hearts),
		mustCard(t, RankJack, Hearts),
		mustCard(t, RankAce, Hearts),
	}
	withLock(tbl, func() {
		card, ok := tbl.chooseCardLocked(p)
		require.True(t, ok)
		assert.Equal(t, "jh", card.Key())
	})

	// Bet met but every legal card wins: fall back to the cheapest.
	p.hand = []Card{mustCard(t, RankAce, Hearts), mustCard(t, RankKing, Hearts)}
	withLock(tbl, func() {
		card, ok := tbl.chooseCardLocked(p)
		require.True(t, ok)
		assert.Equal(t, "kh", card.Key())
	})

	// Chasing a trick: cheapest card that beats the queen.
	p.bet, p.tricksWon = 2, 0
	p.hand = []Card{
		mustCard(t, 9, Hearts),
		mustCard(t, RankKing, Hearts),
		mustCard(t, RankAce, Hearts),
	}
	withLock(tbl, func() {
		card, ok := tbl.chooseCardLocked(p)
		require.True(t, ok)
		assert.Equal(t, "kh", card.Key())
	})

	// Chasing but nothing can win: dump the cheapest legal card.
	p.hand = []Card{mustCard(t, 2, Hearts), mustCard(t, 3, Hearts)}
	withLock(tbl, func() {
		card, ok := tbl.chooseCardLocked(p)
		require.True(t, ok)
		assert.Equal(t, "2h", card.Key())
	})

	// Void in the lead suit: a small trump overtakes the queen.
	p.hand = []Card{mustCard(t, 2, Clubs), mustCard(t, 2, Diamonds)}
	withLock(tbl, func() {
		card, ok := tbl.chooseCardLocked(p)
		require.True(t, ok)
		assert.Equal(t, "2c", card.Key())
	})

	// An empty hand never produces a play.
	p.hand = nil
	withLock(tbl, func() {
		_, ok := tbl.chooseCardLocked(p)
		assert.False(t, ok)
	})
}
