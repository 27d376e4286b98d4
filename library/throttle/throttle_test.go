package throttle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(Config{TotalNPerSec: 0, TotalBurst: 1, EachKeyNPerSec: 1, EachKeyBurst: 1})
	require.Error(t, err)

	_, err = New(Config{TotalNPerSec: 2, TotalBurst: 1, EachKeyNPerSec: 1, EachKeyBurst: 1})
	require.Error(t, err)
}

// TestAllowPerKey verifies one key exhausting its burst does not block another.
func TestAllowPerKey(t *testing.T) {
	th, err := New(Config{TotalNPerSec: 1, TotalBurst: 100, EachKeyNPerSec: 1, EachKeyBurst: 2})
	require.NoError(t, err)

	require.True(t, th.Allow("a"))
	require.True(t, th.Allow("a"))
	require.False(t, th.Allow("a"))
	require.True(t, th.Allow("b"))
}

// TestAllowTotal verifies the shared bucket caps all keys together.
func TestAllowTotal(t *testing.T) {
	th, err := New(Config{TotalNPerSec: 1, TotalBurst: 2, EachKeyNPerSec: 1, EachKeyBurst: 10})
	require.NoError(t, err)

	require.True(t, th.Allow("a"))
	require.True(t, th.Allow("b"))
	require.False(t, th.Allow("c"))
}

func (t *Throttle) keyCount() int {
	n := 0
	t.keys.Range(func(any, any) bool {
		n++
		return true
	})
	return n
}

// TestIdleKeysEvicted verifies buckets of keys unused for the idle period are dropped.
func TestIdleKeysEvicted(t *testing.T) {
	th, err := New(Config{TotalNPerSec: 100, TotalBurst: 100, EachKeyNPerSec: 1, EachKeyBurst: 2, EachKeyIdle: time.Minute})
	require.NoError(t, err)
	now := time.Date(2026, 2, 11, 0, 0, 0, 0, time.UTC)
	th.now = func() time.Time { return now }
	th.lastPrune.Store(now.UnixNano())

	require.True(t, th.Allow("a"))
	require.True(t, th.Allow("a"))
	require.False(t, th.Allow("a"))
	require.True(t, th.Allow("b"))
	require.Equal(t, 2, th.keyCount())

	now = now.Add(30 * time.Second)
	require.True(t, th.Allow("b"))
	require.Equal(t, 2, th.keyCount())

	now = now.Add(45 * time.Second)
	require.True(t, th.Allow("c"))
	require.Equal(t, 2, th.keyCount(), "a was idle for the whole period")
	require.True(t, th.Allow("a"))
}

// TestIdleNotShorterThanRefill verifies the idle period covers a full refill.
func TestIdleNotShorterThanRefill(t *testing.T) {
	th, err := New(Config{TotalNPerSec: 1, TotalBurst: 1, EachKeyNPerSec: 1, EachKeyBurst: 120, EachKeyIdle: time.Second})
	require.NoError(t, err)
	require.Equal(t, 2*time.Minute, th.cfg.EachKeyIdle)
}
