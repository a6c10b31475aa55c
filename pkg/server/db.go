package server

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cardtable/ohhell/pkg/server/internal/db"
)

// Database defines the persistence operations the server needs. Only lifetime
// statistics are stored; live table state is in-memory and a table dies with
// the process.
type Database interface {
	// RecordGameResult folds one finished game into a player's lifetime
	// record.
	RecordGameResult(playerID, name string, score int, won bool) error
	// GetPlayerStats returns a player's lifetime record.
	GetPlayerStats(playerID string) (*db.PlayerStats, error)
	// TopPlayers returns up to limit players ordered by total score.
	TopPlayers(limit int) ([]*db.PlayerStats, error)
	// Close closes the database connection.
	Close() error
}

// NewDatabase opens the sqlite database at dbPath, creating the parent
// directory when needed.
func NewDatabase(dbPath string) (Database, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %v", err)
	}
	return db.NewDB(dbPath)
}
