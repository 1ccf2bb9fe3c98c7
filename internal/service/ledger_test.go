package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idiom-quiz-bot/internal/gate"
)

// memStore is an in-memory ScoreStore and NameStore that counts writes.
type memStore struct {
	scores      map[string]int64
	names       map[string]string
	scoreWrites int
	nameWrites  int
	loadErr     error
	saveErr     error
}

func newMemStore() *memStore {
	return &memStore{scores: map[string]int64{}, names: map[string]string{}}
}

func (m *memStore) LoadScores(context.Context) (map[string]int64, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return copyMap(m.scores), nil
}

func (m *memStore) SaveScores(_ context.Context, s map[string]int64) error {
	m.scoreWrites++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.scores = copyMap(s)
	return nil
}

func (m *memStore) LoadNames(context.Context) (map[string]string, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return copyMap(m.names), nil
}

func (m *memStore) SaveNames(_ context.Context, n map[string]string) error {
	m.nameWrites++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.names = copyMap(n)
	return nil
}

func newTestLedger(t *testing.T, store *memStore, open bool) (*Ledger, *gate.Window) {
	t.Helper()
	w := gate.NewWindow()
	w.Set(open)
	return NewLedger(context.Background(), store, store, w, nil), w
}

func TestLedger_ApplyDelta(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		open       bool
		deltas     []int64
		wantTotal  int64
		wantWrites int
		wantEntry  bool
	}{
		{"open window credits", true, []int64{3}, 3, 1, true},
		{"open window may go negative", true, []int64{-2, -2}, -4, 2, true},
		{"mixed deltas", true, []int64{3, -2, 3}, 4, 3, true},
		{"closed window is a no-op", false, []int64{3, -2}, 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			l, _ := newTestLedger(t, store, tt.open)

			var total int64
			for _, d := range tt.deltas {
				total = l.ApplyDelta(ctx, "u1", d)
			}

			assert.Equal(t, tt.wantTotal, total)
			assert.Equal(t, tt.wantTotal, l.Total("u1"))
			assert.Equal(t, tt.wantWrites, store.scoreWrites)
			assert.Equal(t, tt.wantEntry, l.HasEntry("u1"))
			if tt.wantEntry {
				assert.Equal(t, tt.wantTotal, store.scores["u1"], "store holds the full ledger")
			}
		})
	}
}

func TestLedger_GateFlipAffectsLaterDeltasOnly(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	l, w := newTestLedger(t, store, true)

	assert.Equal(t, int64(3), l.ApplyDelta(ctx, "u1", 3))
	w.Close()
	assert.Equal(t, int64(3), l.ApplyDelta(ctx, "u1", 3), "closed window returns unchanged total")
	w.Open()
	assert.Equal(t, int64(1), l.ApplyDelta(ctx, "u1", -2))
}

func TestLedger_WriteFailureKeepsMemoryState(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.saveErr = errors.New("disk full")
	l, _ := newTestLedger(t, store, true)

	assert.Equal(t, int64(3), l.ApplyDelta(ctx, "u1", 3))
	assert.Equal(t, int64(6), l.ApplyDelta(ctx, "u1", 3))
	assert.Equal(t, int64(6), l.Total("u1"))
	assert.Empty(t, store.scores)

	l.UpsertName(ctx, "u1", "小明")
	name, ok := l.Name("u1")
	assert.True(t, ok)
	assert.Equal(t, "小明", name)
}

func TestLedger_LoadFailureStartsEmpty(t *testing.T) {
	store := newMemStore()
	store.scores["u1"] = 10
	store.loadErr = errors.New("corrupt")

	l, _ := newTestLedger(t, store, true)
	assert.Equal(t, int64(0), l.Total("u1"))
	assert.Empty(t, l.Snapshot())
}

func TestLedger_LoadsExistingState(t *testing.T) {
	store := newMemStore()
	store.scores["u1"] = 10
	store.names["u1"] = "alice"

	l, _ := newTestLedger(t, store, false)
	assert.Equal(t, int64(10), l.Total("u1"))
	name, ok := l.Name("u1")
	require.True(t, ok)
	assert.Equal(t, "alice", name)
}

func TestLedger_UpsertNameWritesOnlyOnChange(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	l, _ := newTestLedger(t, store, false)

	l.UpsertName(ctx, "u1", "alice")
	l.UpsertName(ctx, "u1", "alice")
	assert.Equal(t, 1, store.nameWrites)

	l.UpsertName(ctx, "u1", "bob")
	assert.Equal(t, 2, store.nameWrites)
	assert.Equal(t, "bob", store.names["u1"])

	l.UpsertName(ctx, "u2", "")
	assert.Equal(t, 3, store.nameWrites, "a new user is written even with an empty name")
}

func TestLedger_SnapshotUsesUnknownName(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	l, _ := newTestLedger(t, store, true)

	l.ApplyDelta(ctx, "u1", 3)
	entries := l.Snapshot()
	require.Len(t, entries, 1)
	assert.Equal(t, "未知用户", entries[0].DisplayName)
}
