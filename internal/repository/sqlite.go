package repository

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps the maps in an embedded SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and applies the schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}

	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(FULL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}
	// One writer keeps replace transactions from contending on the file lock.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite db: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS quiz_scores (
			user_id TEXT PRIMARY KEY,
			score INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS quiz_usernames (
			user_id TEXT PRIMARY KEY,
			username TEXT NOT NULL
		);
	`)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate sqlite db: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// LoadScores reads every row of quiz_scores.
func (s *SQLiteStore) LoadScores(ctx context.Context) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_id, score FROM quiz_scores`)
	if err != nil {
		return make(map[string]int64), fmt.Errorf("failed to load scores: %w", err)
	}
	defer rows.Close()

	scores := make(map[string]int64)
	for rows.Next() {
		var (
			userID string
			score  int64
		)
		if err := rows.Scan(&userID, &score); err != nil {
			return make(map[string]int64), fmt.Errorf("failed to scan score: %w", err)
		}
		scores[userID] = score
	}
	if err := rows.Err(); err != nil {
		return make(map[string]int64), fmt.Errorf("error iterating scores: %w", err)
	}
	return scores, nil
}

// SaveScores replaces quiz_scores.
func (s *SQLiteStore) SaveScores(ctx context.Context, scores map[string]int64) error {
	err := s.replace(ctx, `DELETE FROM quiz_scores`, `INSERT INTO quiz_scores (user_id, score) VALUES (?, ?)`, func(stmt *sql.Stmt) error {
		for userID, score := range scores {
			if _, err := stmt.ExecContext(ctx, userID, score); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save scores: %w", err)
	}
	return nil
}

// LoadNames reads every row of quiz_usernames.
func (s *SQLiteStore) LoadNames(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_id, username FROM quiz_usernames`)
	if err != nil {
		return make(map[string]string), fmt.Errorf("failed to load names: %w", err)
	}
	defer rows.Close()

	names := make(map[string]string)
	for rows.Next() {
		var userID, name string
		if err := rows.Scan(&userID, &name); err != nil {
			return make(map[string]string), fmt.Errorf("failed to scan name: %w", err)
		}
		names[userID] = name
	}
	if err := rows.Err(); err != nil {
		return make(map[string]string), fmt.Errorf("error iterating names: %w", err)
	}
	return names, nil
}

// SaveNames replaces quiz_usernames.
func (s *SQLiteStore) SaveNames(ctx context.Context, names map[string]string) error {
	err := s.replace(ctx, `DELETE FROM quiz_usernames`, `INSERT INTO quiz_usernames (user_id, username) VALUES (?, ?)`, func(stmt *sql.Stmt) error {
		for userID, name := range names {
			if _, err := stmt.ExecContext(ctx, userID, name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save names: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) replace(ctx context.Context, clear, insert string, fill func(*sql.Stmt) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, clear); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return err
	}
	defer stmt.Close()

	if err := fill(stmt); err != nil {
		return err
	}
	return tx.Commit()
}
