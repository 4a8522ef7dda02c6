package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepClock_AdvancesByStep(t *testing.T) {
	clock := NewStepClock(time.Time{}, time.Second)

	assert.Equal(t, Epoch, clock.Now())
	assert.Equal(t, Epoch.Add(time.Second), clock.Now())
	assert.Equal(t, Epoch.Add(2*time.Second), clock.Now())
	assert.Equal(t, int64(3), clock.Calls())
}

func TestStepClock_ZeroStepIsFixed(t *testing.T) {
	start := time.Date(2023, time.March, 1, 0, 0, 0, 0, time.UTC)
	clock := NewStepClock(start, 0)

	assert.Equal(t, start, clock.Now())
	assert.Equal(t, start, clock.Now())
}

func TestStepClock_NormalizesToUTC(t *testing.T) {
	loc := time.FixedZone("X", 3600)
	start := time.Date(2023, time.March, 1, 1, 0, 0, 0, loc)
	clock := NewStepClock(start, 0)

	assert.Equal(t, time.UTC, clock.Now().Location())
}

func TestStepClock_Reset(t *testing.T) {
	clock := NewStepClock(time.Time{}, time.Minute)
	clock.Now()
	clock.Now()

	clock.Reset()

	assert.Equal(t, Epoch, clock.Now())
}

func TestStepClock_ConcurrentCallsAreUnique(t *testing.T) {
	clock := NewStepClock(time.Time{}, time.Millisecond)

	const n = 100
	var wg sync.WaitGroup
	results := make(chan time.Time, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- clock.Now()
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[time.Time]bool)
	for ts := range results {
		require.False(t, seen[ts], "duplicate timestamp %v", ts)
		seen[ts] = true
	}
	assert.Len(t, seen, n)
}

func TestSequenceIDs(t *testing.T) {
	ids := NewSequenceIDs("")

	assert.Equal(t, "tx-0001", ids.Generate())
	assert.Equal(t, "tx-0002", ids.Generate())

	ids.Reset()
	assert.Equal(t, "tx-0001", ids.Generate())
}

func TestSequenceIDs_CustomPrefix(t *testing.T) {
	ids := NewSequenceIDs("run-a-")
	assert.Equal(t, "run-a-0001", ids.Generate())
}
