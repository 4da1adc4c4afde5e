package debounce

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitFor = 5 * time.Second

func TestDebouncer(t *testing.T) {
	t.Parallel()

	t.Run("CoalescesTriggers", func(t *testing.T) {
		clock := clockwork.NewFakeClock()
		var calls atomic.Int32
		d := New(clock, 150*time.Millisecond, func() { calls.Add(1) })

		d.Trigger()
		clock.Advance(100 * time.Millisecond)
		d.Trigger()
		clock.Advance(100 * time.Millisecond)
		assert.Zero(t, calls.Load())
		assert.True(t, d.Pending())

		clock.Advance(50 * time.Millisecond)
		require.Eventually(t, func() bool { return calls.Load() == 1 }, waitFor, time.Millisecond)
		assert.False(t, d.Pending())

		clock.Advance(time.Second)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("Flush", func(t *testing.T) {
		clock := clockwork.NewFakeClock()
		var calls atomic.Int32
		d := New(clock, 150*time.Millisecond, func() { calls.Add(1) })

		assert.False(t, d.Flush())
		d.Trigger()
		assert.True(t, d.Flush())
		assert.Equal(t, int32(1), calls.Load())

		clock.Advance(time.Second)
		assert.Never(t, func() bool { return calls.Load() != 1 }, 50*time.Millisecond, time.Millisecond)
	})

	t.Run("Cancel", func(t *testing.T) {
		clock := clockwork.NewFakeClock()
		var calls atomic.Int32
		d := New(clock, 150*time.Millisecond, func() { calls.Add(1) })

		d.Trigger()
		assert.True(t, d.Cancel())
		assert.False(t, d.Cancel())
		clock.Advance(time.Second)
		assert.Never(t, func() bool { return calls.Load() != 0 }, 50*time.Millisecond, time.Millisecond)
	})

	t.Run("RealClock", func(t *testing.T) {
		done := make(chan struct{})
		d := New(nil, time.Millisecond, func() { close(done) })
		d.Trigger()
		select {
		case <-done:
		case <-time.After(waitFor):
			require.Fail(t, "debounced call did not run")
		}
	})
}
