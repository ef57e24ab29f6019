package main

import (
	"database/sql"
	"fmt"
	"log"

	_ "modernc.org/sqlite"
)

// memoryDSN is a private in-memory database. Nothing outlives the process.
const memoryDSN = ":memory:"

// DB wraps the SQLite database connection
type DB struct {
	conn *sql.DB
}

// LeaderboardRow is one pilot's totals since the server started.
type LeaderboardRow struct {
	Name   string `json:"name"`
	Kills  int    `json:"kills"`
	Deaths int    `json:"deaths"`
}

// OpenDB opens the in-memory stats database
func OpenDB() (*DB, error) {
	conn, err := sql.Open("sqlite", memoryDSN)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Every new connection to :memory: is a different database.
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite pragma: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates tables if they don't exist
func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		event_type TEXT NOT NULL,
		room_id TEXT NOT NULL DEFAULT '',
		player_name TEXT NOT NULL DEFAULT '',
		other_name TEXT NOT NULL DEFAULT '',
		data TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_type ON events(event_type);
	`
	_, err := db.conn.Exec(schema)
	if err != nil {
		log.Printf("DB migration error: %v", err)
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Leaderboard returns kill/death totals per display name, best first.
func (db *DB) Leaderboard(limit int) ([]LeaderboardRow, error) {
	rows, err := db.conn.Query(`
		SELECT name, SUM(k) AS kills, SUM(d) AS deaths FROM (
			SELECT player_name AS name, 1 AS k, 0 AS d FROM events
			WHERE event_type = ? AND player_name <> ''
			UNION ALL
			SELECT other_name AS name, 0 AS k, 1 AS d FROM events
			WHERE event_type = ?
		)
		GROUP BY name
		ORDER BY kills DESC, deaths ASC, name ASC
		LIMIT ?
	`, EvtKill, EvtKill, limit)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	defer rows.Close()

	result := make([]LeaderboardRow, 0, limit)
	for rows.Next() {
		var r LeaderboardRow
		if err := rows.Scan(&r.Name, &r.Kills, &r.Deaths); err != nil {
			return nil, fmt.Errorf("leaderboard scan: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// EventCounts returns counts of each event type since startup
func (db *DB) EventCounts() (map[string]int, error) {
	rows, err := db.conn.Query(`
		SELECT event_type, COUNT(*) FROM events
		GROUP BY event_type ORDER BY COUNT(*) DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("event counts: %w", err)
	}
	defer rows.Close()

	result := make(map[string]int)
	for rows.Next() {
		var evtType string
		var count int
		if err := rows.Scan(&evtType, &count); err != nil {
			return nil, fmt.Errorf("event counts scan: %w", err)
		}
		result[evtType] = count
	}
	return result, rows.Err()
}
