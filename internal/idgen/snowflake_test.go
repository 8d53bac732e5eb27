package idgen

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// manualClock is a hand-stepped clock for deterministic tests.
type manualClock struct {
	mu sync.Mutex
	ms int64
}

func newManualClock(ms int64) *manualClock {
	return &manualClock{ms: ms}
}

func (c *manualClock) NowMillis() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ms
}

func (c *manualClock) Set(ms int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ms = ms
}

// steppingClock advances one millisecond every stepEvery reads, so the
// sequence-overflow busy-wait terminates without real time passing.
type steppingClock struct {
	ms        int64
	calls     int
	stepEvery int
}

func (c *steppingClock) NowMillis() int64 {
	c.calls++
	if c.stepEvery > 0 && c.calls%c.stepEvery == 0 {
		c.ms++
	}
	return c.ms
}

func TestNewSnowflake(t *testing.T) {
	t.Run("valid instance ID 0", func(t *testing.T) {
		gen, err := NewSnowflake(0)
		require.NoError(t, err)
		assert.Equal(t, int64(0), gen.InstanceID())
	})

	t.Run("valid instance ID max (1023)", func(t *testing.T) {
		gen, err := NewSnowflake(1023)
		require.NoError(t, err)
		assert.Equal(t, int64(1023), gen.InstanceID())
	})

	t.Run("invalid instance ID negative", func(t *testing.T) {
		gen, err := NewSnowflake(-1)
		assert.ErrorIs(t, err, ErrInvalidInstanceID)
		assert.Nil(t, gen)
	})

	t.Run("invalid instance ID too large", func(t *testing.T) {
		gen, err := NewSnowflake(1024)
		assert.ErrorIs(t, err, ErrInvalidInstanceID)
		assert.Nil(t, gen)
	})
}

func TestSnowflake_Next(t *testing.T) {
	t.Run("composes timestamp, instance and sequence", func(t *testing.T) {
		clock := newManualClock(snowflakeEpoch + 1234)
		gen, err := NewSnowflakeWithClock(42, clock)
		require.NoError(t, err)

		id, err := gen.Next()
		require.NoError(t, err)

		assert.Equal(t, int64(1234), TimestampOf(id))
		assert.Equal(t, int64(42), InstanceOf(id))
		assert.Equal(t, int64(0), SequenceOf(id))
	})

	t.Run("sequence increments within one millisecond", func(t *testing.T) {
		clock := newManualClock(snowflakeEpoch + 1000)
		gen, err := NewSnowflakeWithClock(1, clock)
		require.NoError(t, err)

		for i := int64(0); i < 10; i++ {
			id, err := gen.Next()
			require.NoError(t, err)
			assert.Equal(t, i, SequenceOf(id))
			assert.Equal(t, int64(1000), TimestampOf(id))
		}
	})

	t.Run("sequence resets when the clock advances", func(t *testing.T) {
		clock := newManualClock(snowflakeEpoch + 1000)
		gen, err := NewSnowflakeWithClock(1, clock)
		require.NoError(t, err)

		_, err = gen.Next()
		require.NoError(t, err)
		_, err = gen.Next()
		require.NoError(t, err)

		clock.Set(snowflakeEpoch + 1001)
		id, err := gen.Next()
		require.NoError(t, err)
		assert.Equal(t, int64(0), SequenceOf(id))
		assert.Equal(t, int64(1001), TimestampOf(id))
	})

	t.Run("sequence overflow spins to the next millisecond", func(t *testing.T) {
		clock := &steppingClock{ms: snowflakeEpoch + 500, stepEvery: 100000}
		gen, err := NewSnowflakeWithClock(1, clock)
		require.NoError(t, err)

		// Exhaust the 13-bit sequence: 8192 IDs in one millisecond.
		seen := make(map[int64]bool, maxSequence+2)
		for i := 0; i <= maxSequence; i++ {
			id, err := gen.Next()
			require.NoError(t, err)
			assert.Equal(t, int64(500), TimestampOf(id))
			seen[id] = true
		}

		// The wrap forces a spin until the clock steps forward.
		id, err := gen.Next()
		require.NoError(t, err)
		assert.Equal(t, int64(501), TimestampOf(id))
		assert.Equal(t, int64(0), SequenceOf(id))
		assert.False(t, seen[id])
	})

	t.Run("clock regression fails without mutating state", func(t *testing.T) {
		clock := newManualClock(snowflakeEpoch + 5000)
		gen, err := NewSnowflakeWithClock(1, clock)
		require.NoError(t, err)

		_, err = gen.Next()
		require.NoError(t, err)

		clock.Set(snowflakeEpoch + 4000)
		_, err = gen.Next()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrClockMovedBackwards)

		var regression *ClockMovedBackwardsError
		require.ErrorAs(t, err, &regression)
		assert.Equal(t, int64(5000), regression.Last)
		assert.Equal(t, int64(4000), regression.Now)

		// Fatal for the request, not the generator: once the clock catches
		// up, generation resumes.
		clock.Set(snowflakeEpoch + 6000)
		id, err := gen.Next()
		require.NoError(t, err)
		assert.Equal(t, int64(6000), TimestampOf(id))
	})

	t.Run("monotonically increasing on the system clock", func(t *testing.T) {
		gen, err := NewSnowflake(1)
		require.NoError(t, err)

		var last int64 = -1
		for i := 0; i < 10000; i++ {
			id, err := gen.Next()
			require.NoError(t, err)
			assert.Greater(t, id, last, "IDs should be strictly increasing")
			last = id
		}
	})

	t.Run("concurrent generation produces unique IDs", func(t *testing.T) {
		gen, err := NewSnowflake(1)
		require.NoError(t, err)

		numGoroutines := 50
		idsPerGoroutine := 200

		var wg sync.WaitGroup
		var mu sync.Mutex
		seen := make(map[int64]bool)
		duplicates := 0

		for i := 0; i < numGoroutines; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < idsPerGoroutine; j++ {
					id, err := gen.Next()
					if err != nil {
						continue
					}
					mu.Lock()
					if seen[id] {
						duplicates++
					}
					seen[id] = true
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 0, duplicates, "snowflake should produce no duplicates")
		assert.Equal(t, numGoroutines*idsPerGoroutine, len(seen))
	})
}

func TestSnowflake_ComponentExtraction(t *testing.T) {
	// Hand-composed value: ts=7, instance=3, seq=5
	id := (int64(7) << timestampShift) | (int64(3) << instanceShift) | 5
	assert.Equal(t, int64(7), TimestampOf(id))
	assert.Equal(t, int64(3), InstanceOf(id))
	assert.Equal(t, int64(5), SequenceOf(id))
}

func TestSnowflake_TimestampOutOfRange(t *testing.T) {
	// A clock before the custom epoch yields a negative timestamp.
	clock := newManualClock(snowflakeEpoch - 1)
	gen, err := NewSnowflakeWithClock(0, clock)
	require.NoError(t, err)

	_, err = gen.Next()
	assert.True(t, errors.Is(err, ErrTimestampOutOfRange))
}

func BenchmarkSnowflake_Next(b *testing.B) {
	gen, _ := NewSnowflake(1)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = gen.Next()
	}
}

func BenchmarkSnowflake_ConcurrentNext(b *testing.B) {
	gen, _ := NewSnowflake(1)
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_, _ = gen.Next()
		}
	})
}
