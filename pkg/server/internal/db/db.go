package db

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// DB is the sqlite-backed store for lifetime player statistics.
type DB struct {
	*sql.DB
}

// PlayerStats is one player's lifetime record across finished games.
type PlayerStats struct {
	ID          string
	Name        string
	GamesPlayed int
	Wins        int
	TotalScore  int
	BestScore   int
}

// NewDB opens the database at dbPath and creates the schema when missing.
func NewDB(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}
	return &DB{db}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS players (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			games_played INTEGER NOT NULL DEFAULT 0,
			wins INTEGER NOT NULL DEFAULT 0,
			total_score INTEGER NOT NULL DEFAULT 0,
			best_score INTEGER NOT NULL DEFAULT 0,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}

// RecordGameResult folds one finished game into the player's lifetime row,
// creating the row on first contact.
func (db *DB) RecordGameResult(playerID, name string, score int, won bool) error {
	winInc := 0
	if won {
		winInc = 1
	}
	_, err := db.Exec(`
		INSERT INTO players (id, name, games_played, wins, total_score, best_score)
		VALUES (?, ?, 1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			games_played = games_played + 1,
			wins = wins + excluded.wins,
			total_score = total_score + excluded.total_score,
			best_score = MAX(best_score, excluded.best_score),
			updated_at = CURRENT_TIMESTAMP
	`, playerID, name, winInc, score, score)
	if err != nil {
		return fmt.Errorf("failed to record game result: %v", err)
	}
	return nil
}

// GetPlayerStats returns the lifetime record for a player.
func (db *DB) GetPlayerStats(playerID string) (*PlayerStats, error) {
	stats := &PlayerStats{}
	err := db.QueryRow(`
		SELECT id, name, games_played, wins, total_score, best_score
		FROM players WHERE id = ?
	`, playerID).Scan(&stats.ID, &stats.Name, &stats.GamesPlayed, &stats.Wins,
		&stats.TotalScore, &stats.BestScore)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("player not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get player stats: %v", err)
	}
	return stats, nil
}

// TopPlayers returns up to limit players ordered by total score.
func (db *DB) TopPlayers(limit int) ([]*PlayerStats, error) {
	rows, err := db.Query(`
		SELECT id, name, games_played, wins, total_score, best_score
		FROM players ORDER BY total_score DESC, wins DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top players: %v", err)
	}
	defer rows.Close()

	var out []*PlayerStats
	for rows.Next() {
		stats := &PlayerStats{}
		if err := rows.Scan(&stats.ID, &stats.Name, &stats.GamesPlayed,
			&stats.Wins, &stats.TotalScore, &stats.BestScore); err != nil {
			return nil, err
		}
		out = append(out, stats)
	}
	return out, rows.Err()
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.DB.Close()
}
