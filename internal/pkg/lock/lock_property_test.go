// Property-based tests for per-key serialization.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestSameKeySerializedProperty checks that read-modify-write under one key
// gives the sequential result.
func TestSameKeySerializedProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		deltas := rapid.SliceOfN(rapid.Int64Range(-5, 5), 2, 30).Draw(t, "deltas")
		key := rapid.StringMatching(`[0-9]{1,9}`).Draw(t, "key")

		ul := NewUserLock()
		var total, want int64
		var wg sync.WaitGroup
		for _, d := range deltas {
			want += d
			wg.Add(1)
			go func(d int64) {
				defer wg.Done()
				_ = ul.WithLock(context.Background(), key, func() error {
					total += d
					return nil
				})
			}(d)
		}
		wg.Wait()

		if total != want {
			t.Fatalf("total %d, want %d", total, want)
		}
		if ul.Len() != 0 {
			t.Fatalf("%d keys left after all holders released", ul.Len())
		}
	})
}

// TestDistinctKeysIndependentProperty checks that holding one key never blocks another.
func TestDistinctKeysIndependentProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(2, 10).Draw(t, "n")
		ul := NewUserLock()

		for i := 0; i < n; i++ {
			if !ul.TryLock(fmt.Sprintf("u%d", i)) {
				t.Fatalf("key u%d blocked by others", i)
			}
		}
		for i := 0; i < n; i++ {
			if ul.TryLock(fmt.Sprintf("u%d", i)) {
				t.Fatalf("key u%d acquired twice", i)
			}
		}
		for i := 0; i < n; i++ {
			ul.Unlock(fmt.Sprintf("u%d", i))
		}
		if ul.Len() != 0 {
			t.Fatalf("%d keys left", ul.Len())
		}
	})
}

func TestWithLock_PropagatesError(t *testing.T) {
	ul := NewUserLock()
	boom := errors.New("boom")

	err := ul.WithLock(context.Background(), "u1", func() error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, ul.IsLocked("u1"))
}

func TestLock_ContextCancelled(t *testing.T) {
	ul := NewUserLock()
	require.NoError(t, ul.Lock(context.Background(), "u1"))
	assert.True(t, ul.IsLocked("u1"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := ul.Lock(ctx, "u1")
	assert.ErrorIs(t, err, ErrLockTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	ul.Unlock("u1")
	assert.Equal(t, 0, ul.Len())
}

func TestLock_WaiterProceedsAfterUnlock(t *testing.T) {
	ul := NewUserLock()
	require.NoError(t, ul.Lock(context.Background(), "u1"))

	var acquired atomic.Bool
	done := make(chan struct{})
	go func() {
		defer close(done)
		if ul.Lock(context.Background(), "u1") == nil {
			acquired.Store(true)
			ul.Unlock("u1")
		}
	}()

	time.Sleep(10 * time.Millisecond)
	assert.False(t, acquired.Load())
	ul.Unlock("u1")
	<-done
	assert.True(t, acquired.Load())
	assert.Equal(t, 0, ul.Len())
}

func TestUnlock_UnknownKeyIsNoOp(t *testing.T) {
	ul := NewUserLock()
	assert.NotPanics(t, func() { ul.Unlock("nobody") })
}
