// Package service provides the score ledger and the leaderboard built on it.
package service

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"idiom-quiz-bot/internal/gate"
	"idiom-quiz-bot/internal/metrics"
	"idiom-quiz-bot/internal/model"
	"idiom-quiz-bot/internal/repository"
)

// Ledger holds cumulative scores and display names. The in-memory maps are
// authoritative; every change is flushed to the stores and a failed flush is
// logged, never returned.
type Ledger struct {
	mu         sync.Mutex
	scores     map[string]int64
	names      map[string]string
	scoreStore repository.ScoreStore
	nameStore  repository.NameStore
	gate       gate.Checker
	metrics    *metrics.Recorder
}

// NewLedger loads both maps. A load failure leaves that map empty.
func NewLedger(
	ctx context.Context,
	scoreStore repository.ScoreStore,
	nameStore repository.NameStore,
	g gate.Checker,
	rec *metrics.Recorder,
) *Ledger {
	scores, err := scoreStore.LoadScores(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load scores, starting empty")
		scores = nil
	}
	if scores == nil {
		scores = make(map[string]int64)
	}

	names, err := nameStore.LoadNames(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load usernames, starting empty")
		names = nil
	}
	if names == nil {
		names = make(map[string]string)
	}

	log.Info().Int("scores", len(scores)).Int("names", len(names)).Msg("Ledger loaded")

	return &Ledger{
		scores:     scores,
		names:      names,
		scoreStore: scoreStore,
		nameStore:  nameStore,
		gate:       g,
		metrics:    rec,
	}
}

// ApplyDelta adds delta to the user's total when the scoring window is open
// and returns the resulting total. Outside the window nothing changes.
func (l *Ledger) ApplyDelta(ctx context.Context, userID string, delta int64) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	kind := "credit"
	if delta < 0 {
		kind = "debit"
	}

	if !l.gate.Active() {
		l.metrics.ScoreEvent(kind, false)
		log.Debug().Str("user_id", userID).Int64("delta", delta).Msg("Scoring window closed, delta not applied")
		return l.scores[userID]
	}

	l.scores[userID] += delta
	total := l.scores[userID]
	l.metrics.ScoreEvent(kind, true)

	if err := l.scoreStore.SaveScores(ctx, copyMap(l.scores)); err != nil {
		l.metrics.WriteFailure("scores")
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to persist scores")
	}

	log.Info().Str("user_id", userID).Int64("delta", delta).Int64("total", total).Msg("Score updated")
	return total
}

// Total returns the user's score, 0 when the user has none.
func (l *Ledger) Total(userID string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.scores[userID]
}

// HasEntry reports whether the user has ever been scored.
func (l *Ledger) HasEntry(userID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.scores[userID]
	return ok
}

// Name returns the stored display name.
func (l *Ledger) Name(userID string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	name, ok := l.names[userID]
	return name, ok
}

// UpsertName stores the display name, writing only when it changed.
func (l *Ledger) UpsertName(ctx context.Context, userID, name string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if old, ok := l.names[userID]; ok && old == name {
		return
	}
	l.names[userID] = name

	if err := l.nameStore.SaveNames(ctx, copyMap(l.names)); err != nil {
		l.metrics.WriteFailure("names")
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to persist usernames")
	}
}

// Snapshot returns every scored user with their display name.
func (l *Ledger) Snapshot() []model.ScoreEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries := make([]model.ScoreEntry, 0, len(l.scores))
	for userID, total := range l.scores {
		name, ok := l.names[userID]
		if !ok {
			name = model.UnknownName
		}
		entries = append(entries, model.ScoreEntry{UserID: userID, DisplayName: name, Total: total})
	}
	return entries
}

func copyMap[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
