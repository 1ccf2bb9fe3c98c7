package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps the maps in two tables and replaces each inside a transaction.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps a pool. Call Migrate before first use.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the ledger tables if they do not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS quiz_scores (
			user_id TEXT PRIMARY KEY,
			score BIGINT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS quiz_usernames (
			user_id TEXT PRIMARY KEY,
			username TEXT NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to migrate ledger tables: %w", err)
	}
	return nil
}

// LoadScores reads every row of quiz_scores.
func (s *PostgresStore) LoadScores(ctx context.Context) (map[string]int64, error) {
	rows, err := s.pool.Query(ctx, `SELECT user_id, score FROM quiz_scores`)
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
func (s *PostgresStore) SaveScores(ctx context.Context, scores map[string]int64) error {
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM quiz_scores`); err != nil {
			return err
		}
		rows := make([][]any, 0, len(scores))
		for userID, score := range scores {
			rows = append(rows, []any{userID, score})
		}
		_, err := tx.CopyFrom(ctx, pgx.Identifier{"quiz_scores"}, []string{"user_id", "score"}, pgx.CopyFromRows(rows))
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to save scores: %w", err)
	}
	return nil
}

// LoadNames reads every row of quiz_usernames.
func (s *PostgresStore) LoadNames(ctx context.Context) (map[string]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT user_id, username FROM quiz_usernames`)
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
func (s *PostgresStore) SaveNames(ctx context.Context, names map[string]string) error {
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM quiz_usernames`); err != nil {
			return err
		}
		rows := make([][]any, 0, len(names))
		for userID, name := range names {
			rows = append(rows, []any{userID, name})
		}
		_, err := tx.CopyFrom(ctx, pgx.Identifier{"quiz_usernames"}, []string{"user_id", "username"}, pgx.CopyFromRows(rows))
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to save names: %w", err)
	}
	return nil
}

// Close closes the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
