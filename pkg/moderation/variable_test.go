// ABOUTME: Tests for the moderated variable
// ABOUTME: Verifies atomic concurrent pushes and rate-limited emission

package moderation

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nainya/didlcore/internal/metrics"
	"github.com/nainya/didlcore/pkg/didlerr"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestVariable_PushAndFlush(t *testing.T) {
	v := NewVariable("ContainerUpdateIDs")
	assert.Equal(t, "ContainerUpdateIDs", v.Name())

	require.NoError(t, v.Push("C1,5"))
	require.NoError(t, v.Push("C2,9"))
	require.NoError(t, v.Push("C1,6"))
	assert.Equal(t, "C1,6,C2,9", v.Snapshot())

	err := v.Push(",1")
	assert.ErrorIs(t, err, didlerr.ErrValidation)
	assert.Equal(t, "C1,6,C2,9", v.Snapshot(), "a rejected fragment leaves the snapshot intact")

	assert.Equal(t, "C1,6,C2,9", v.Flush())
	assert.Equal(t, "", v.Snapshot())
}

func TestVariable_Restore(t *testing.T) {
	v := NewVariable("ContainerUpdateIDs")

	require.NoError(t, v.Restore("C1,5,C2,9,C1,7"))
	assert.Equal(t, "C1,7,C2,9", v.Snapshot())

	require.NoError(t, v.Push("C3,1"))
	assert.Equal(t, "C1,7,C2,9,C3,1", v.Snapshot())

	err := v.Restore("C1,")
	assert.ErrorIs(t, err, didlerr.ErrValidation)
	assert.Equal(t, "C1,7,C2,9,C3,1", v.Snapshot())

	require.NoError(t, v.Restore(""))
	assert.Equal(t, "", v.Snapshot())
}

func TestVariable_ConcurrentPushes(t *testing.T) {
	v := NewVariable("ContainerUpdateIDs", WithMinInterval(0))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, v.Push(fmt.Sprintf("C%d,%d", i, i+1)))
		}(i)
	}
	wg.Wait()

	updates, err := NewAccumulator().Parse(v.Snapshot())
	require.NoError(t, err)
	assert.Len(t, updates, 50, "no update may be lost to a racing read-modify-write")
}

func TestVariable_TryEmitThrottles(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	m := metrics.NewMetrics(prometheus.NewRegistry())
	v := NewVariable("ContainerUpdateIDs",
		WithMinInterval(time.Second),
		WithClock(clock.Now),
		WithRecorder(m),
	)

	_, ok := v.TryEmit()
	assert.False(t, ok, "nothing pending")

	require.NoError(t, v.Push("C1,5"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SnapshotEntries))

	out, ok := v.TryEmit()
	assert.True(t, ok)
	assert.Equal(t, "C1,5", out)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.SnapshotEntries))

	require.NoError(t, v.Push("C2,1"))
	clock.Advance(500 * time.Millisecond)
	_, ok = v.TryEmit()
	assert.False(t, ok, "inside the minimum interval")
	assert.Equal(t, "C2,1", v.Snapshot())

	require.NoError(t, v.Push("C2,2"))
	clock.Advance(600 * time.Millisecond)
	out, ok = v.TryEmit()
	assert.True(t, ok)
	assert.Equal(t, "C2,2", out)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.EmissionsTotal.WithLabelValues("emitted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EmissionsTotal.WithLabelValues("throttled")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.UpdateMergesTotal.WithLabelValues("success")))
}

func TestVariable_Run(t *testing.T) {
	v := NewVariable("ContainerUpdateIDs", WithMinInterval(0))
	require.NoError(t, v.Push("C1,5"))

	ctx, cancel := context.WithCancel(context.Background())
	emitted := make(chan string, 1)
	done := make(chan error, 1)
	go func() {
		done <- v.Run(ctx, time.Millisecond, func(s string) {
			emitted <- s
		})
	}()

	select {
	case s := <-emitted:
		assert.Equal(t, "C1,5", s)
	case <-time.After(2 * time.Second):
		t.Fatal("no emission")
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
