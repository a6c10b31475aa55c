package server

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardtable/ohhell/pkg/game"
	"github.com/cardtable/ohhell/pkg/server/internal/db"
)

// fakeDB records results in memory so tests can assert on persistence
// without touching sqlite.
type fakeDB struct {
	mu      sync.Mutex
	results []gameResult
}

type gameResult struct {
	playerID string
	name     string
	score    int
	won      bool
}

func (f *fakeDB) RecordGameResult(playerID, name string, score int, won bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = append(f.results, gameResult{playerID, name, score, won})
	return nil
}

func (f *fakeDB) GetPlayerStats(playerID string) (*db.PlayerStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stats := &db.PlayerStats{ID: playerID}
	found := false
	for _, r := range f.results {
		if r.playerID != playerID {
			continue
		}
		found = true
		stats.Name = r.name
		stats.GamesPlayed++
		stats.TotalScore += r.score
		if r.won {
			stats.Wins++
		}
		if r.score > stats.BestScore {
			stats.BestScore = r.score
		}
	}
	if !found {
		return nil, fmt.Errorf("player not found")
	}
	return stats, nil
}

func (f *fakeDB) TopPlayers(limit int) ([]*db.PlayerStats, error) {
	return nil, nil
}

func (f *fakeDB) Close() error { return nil }

func (f *fakeDB) resultsFor(playerID string) []gameResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []gameResult
	for _, r := range f.results {
		if r.playerID == playerID {
			out = append(out, r)
		}
	}
	return out
}

// manualTiming keeps every table timer out of the way so tests drive all
// actions themselves.
func manualTiming() game.TableConfig {
	return game.TableConfig{
		BotTurnDelay:     time.Hour,
		OfflineTurnDelay: time.Hour,
		TurnTimeout:      time.Hour,
		TrickRevealDelay: 10 * time.Millisecond,
		RevealPause:      15 * time.Millisecond,
		IdleEndDelay:     time.Hour,
	}
}

func newTestServer(t *testing.T, timing game.TableConfig) (*Server, *fakeDB) {
	t.Helper()
	fdb := &fakeDB{}
	s := NewServer(Config{DB: fdb, Timing: timing})
	t.Cleanup(s.Stop)
	return s, fdb
}

func TestSessionReuse(t *testing.T) {
	s, _ := newTestServer(t, manualTiming())

	u1 := s.Session("alice", "Alice")
	u2 := s.Session("alice", "")
	assert.Same(t, u1, u2)
	assert.Equal(t, "Alice", u2.Name, "empty name keeps the previous one")

	u3 := s.Session("alice", "Alicia")
	assert.Same(t, u1, u3)
	assert.Equal(t, "Alicia", u3.Name)

	u4 := s.Session("bob", "")
	assert.Equal(t, "bob", u4.Name, "name defaults to the id")
}

func TestCreateJoinLeave(t *testing.T) {
	s, _ := newTestServer(t, manualTiming())

	alice := s.Session("alice", "Alice")
	id, err := s.CreateTable(alice)
	require.NoError(t, err)
	require.NotZero(t, id)

	_, err = s.CreateTable(alice)
	assert.ErrorIs(t, err, ErrAlreadySeated)

	bob := s.Session("bob", "Bob")
	assert.ErrorIs(t, s.JoinTable(bob, id+99), ErrTableNotFound)
	require.NoError(t, s.JoinTable(bob, id))
	assert.ErrorIs(t, s.JoinTable(bob, id), ErrAlreadySeated)

	// Fill the remaining seats; a sixth player bounces.
	for i := 0; i < 3; i++ {
		u := s.Session(fmt.Sprintf("user-%d", i), "")
		require.NoError(t, s.JoinTable(u, id))
	}
	late := s.Session("late", "")
	assert.ErrorIs(t, s.JoinTable(late, id), ErrTableFull)

	tbl, ok := s.TableFor(alice)
	require.True(t, ok)
	assert.Len(t, tbl.Snapshot().Seats, game.MaxSeats)

	require.NoError(t, s.LeaveTable(bob))
	assert.ErrorIs(t, s.LeaveTable(bob), ErrNotSeated)
	assert.Len(t, tbl.Snapshot().Seats, game.MaxSeats-1)

	rows := s.listTables()
	require.Len(t, rows, 1)
	assert.Equal(t, id, rows[0].ID)
	assert.Equal(t, 4, rows[0].Seats)
}

func TestLastLeaverRetiresTable(t *testing.T) {
	s, _ := newTestServer(t, manualTiming())

	alice := s.Session("alice", "Alice")
	_, err := s.CreateTable(alice)
	require.NoError(t, err)
	require.NoError(t, s.LeaveTable(alice))

	assert.Empty(t, s.listTables())
	_, ok := s.TableFor(alice)
	assert.False(t, ok)
}

func TestVoteStartsGameWhenUnanimous(t *testing.T) {
	s, _ := newTestServer(t, manualTiming())

	alice := s.Session("alice", "Alice")
	bob := s.Session("bob", "Bob")
	id, err := s.CreateTable(alice)
	require.NoError(t, err)
	require.NoError(t, s.JoinTable(bob, id))

	require.NoError(t, s.VoteStart(alice))
	tbl, _ := s.TableFor(alice)
	assert.NotEqual(t, game.StateInGame, tbl.Snapshot().State,
		"one vote of two must not start the game")

	require.NoError(t, s.VoteStart(bob))
	snap := tbl.Snapshot()
	assert.Equal(t, game.StateInGame, snap.State)
	assert.Equal(t, game.PhaseBetting, snap.Phase)
	assert.Len(t, snap.Seats, game.MaxSeats, "empty seats are backfilled")
}

func TestBetAndPlayRouting(t *testing.T) {
	timing := manualTiming()
	timing.BotTurnDelay = 2 * time.Millisecond
	s, _ := newTestServer(t, timing)

	alice := s.Session("alice", "Alice")
	bob := s.Session("bob", "Bob")
	id, err := s.CreateTable(alice)
	require.NoError(t, err)
	require.NoError(t, s.JoinTable(bob, id))
	require.NoError(t, s.VoteStart(alice))
	require.NoError(t, s.VoteStart(bob))

	unseated := s.Session("ghost", "")
	assert.ErrorIs(t, s.Bet(unseated, 0), ErrNotSeated)
	assert.ErrorIs(t, s.Play(alice, "ah"), ErrRejected, "no plays during betting")
	assert.ErrorIs(t, s.Bet(bob, 0), ErrRejected, "betting starts with seat 0")

	require.NoError(t, s.Bet(alice, 0))
	require.NoError(t, s.Bet(bob, 1))

	// Bot seats finish the betting on their own timers.
	tbl, _ := s.TableFor(alice)
	require.Eventually(t, func() bool {
		return tbl.Snapshot().Phase == game.PhasePlaying
	}, 2*time.Second, 2*time.Millisecond)

	// Round 1: alice leads and her only card is always legal.
	snap := tbl.Snapshot()
	require.Equal(t, 0, snap.CurrentTurnSeat)
	card := snap.Seats[0].Hand[0]
	assert.ErrorIs(t, s.Play(bob, "ah"), ErrRejected, "not bob's turn")
	require.NoError(t, s.Play(alice, card.Key()))
	assert.ErrorIs(t, s.Play(alice, card.Key()), ErrRejected, "card already gone")
}

func TestCompletedGameRecordsResults(t *testing.T) {
	if testing.Short() {
		t.Skip("full game simulation")
	}
	timing := game.TableConfig{
		BotTurnDelay:     time.Millisecond,
		OfflineTurnDelay: 2 * time.Millisecond,
		TurnTimeout:      3 * time.Millisecond,
		TrickRevealDelay: time.Millisecond,
		RevealPause:      2 * time.Millisecond,
		IdleEndDelay:     time.Hour,
	}
	s, fdb := newTestServer(t, timing)

	alice := s.Session("alice", "Alice")
	_, err := s.CreateTable(alice)
	require.NoError(t, err)
	require.NoError(t, s.VoteStart(alice))

	require.Eventually(t, func() bool {
		return len(fdb.resultsFor("alice")) == 1
	}, 60*time.Second, 10*time.Millisecond, "completed game never recorded")

	// The seat is released once the table retires.
	_, ok := s.TableFor(alice)
	assert.False(t, ok)
	assert.Empty(t, s.listTables())

	res := fdb.resultsFor("alice")[0]
	assert.Equal(t, "Alice", res.name)

	stats, err := s.Stats(alice)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.GamesPlayed)
	assert.Equal(t, res.score, stats.TotalScore)

	history := s.History()
	require.Len(t, history, 1)
	assert.True(t, history[0].Completed)
	assert.Len(t, history[0].Standings, game.MaxSeats)
}
