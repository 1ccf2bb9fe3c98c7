// Package repository provides durable storage for the score ledger and the
// display-name map. Every backend loads and replaces each map as a whole.
package repository

import (
	"context"
	"errors"
)

// Common errors for repository operations.
var (
	// ErrUnknownDriver is returned by Open for an unsupported storage driver.
	ErrUnknownDriver = errors.New("unknown storage driver")
)

// ScoreStore persists the user -> total score map.
type ScoreStore interface {
	// LoadScores returns the stored map. A missing store is an empty map, not an error.
	LoadScores(ctx context.Context) (map[string]int64, error)
	// SaveScores atomically replaces the stored map.
	SaveScores(ctx context.Context, scores map[string]int64) error
}

// NameStore persists the user -> display name map.
type NameStore interface {
	LoadNames(ctx context.Context) (map[string]string, error)
	SaveNames(ctx context.Context, names map[string]string) error
}

// Store is a backend that holds both maps.
type Store interface {
	ScoreStore
	NameStore
	Close() error
}
