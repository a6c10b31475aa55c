package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	database, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database
}

func TestRecordGameResultAccumulates(t *testing.T) {
	database := openTestDB(t)

	require.NoError(t, database.RecordGameResult("alice", "Alice", 120, true))
	require.NoError(t, database.RecordGameResult("alice", "Alice", -40, false))
	require.NoError(t, database.RecordGameResult("alice", "Alice", 90, true))

	stats, err := database.GetPlayerStats("alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice", stats.Name)
	assert.Equal(t, 3, stats.GamesPlayed)
	assert.Equal(t, 2, stats.Wins)
	assert.Equal(t, 170, stats.TotalScore)
	assert.Equal(t, 120, stats.BestScore)
}

func TestGetPlayerStatsUnknownPlayer(t *testing.T) {
	database := openTestDB(t)
	_, err := database.GetPlayerStats("nobody")
	assert.Error(t, err)
}

func TestTopPlayersOrdering(t *testing.T) {
	database := openTestDB(t)

	require.NoError(t, database.RecordGameResult("alice", "Alice", 50, false))
	require.NoError(t, database.RecordGameResult("bob", "Bob", 200, true))
	require.NoError(t, database.RecordGameResult("carol", "Carol", 120, true))

	top, err := database.TopPlayers(2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "bob", top[0].ID)
	assert.Equal(t, "carol", top[1].ID)
}
