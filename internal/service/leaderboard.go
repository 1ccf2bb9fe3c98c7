package service

import (
	"sort"

	"idiom-quiz-bot/internal/model"
)

// Leaderboard ranks ledger entries by total score, highest first.
// Equal totals are ordered by user ID ascending so a snapshot always ranks the same way.
type Leaderboard struct {
	ledger *Ledger
}

// NewLeaderboard creates a Leaderboard reading from ledger.
func NewLeaderboard(ledger *Ledger) *Leaderboard {
	return &Leaderboard{ledger: ledger}
}

// TopN returns at most limit entries in rank order.
func (b *Leaderboard) TopN(limit int) []model.ScoreEntry {
	entries := b.ranked()
	if limit < 0 {
		limit = 0
	}
	if limit < len(entries) {
		entries = entries[:limit]
	}
	return entries
}

// RankOf returns the user's 1-based rank, or 0 when the user has no ledger entry.
func (b *Leaderboard) RankOf(userID string) int {
	for i, e := range b.ranked() {
		if e.UserID == userID {
			return i + 1
		}
	}
	return 0
}

func (b *Leaderboard) ranked() []model.ScoreEntry {
	entries := b.ledger.Snapshot()
	sortEntries(entries)
	return entries
}

func sortEntries(entries []model.ScoreEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Total != entries[j].Total {
			return entries[i].Total > entries[j].Total
		}
		return entries[i].UserID < entries[j].UserID
	})
}
