package readiness

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDecideNoPreviousZeroWindowReady(t *testing.T) {
	now := time.Now()
	ready, snap := Decide(Current{Size: 100, LastWriteUtc: now, ObservedAtUtc: now}, nil, 0)
	assert.True(t, ready)
	assert.Equal(t, int64(100), snap.Size)
}

func TestDecideNoPreviousPositiveWindowNotReady(t *testing.T) {
	now := time.Now()
	ready, _ := Decide(Current{Size: 100, LastWriteUtc: now, ObservedAtUtc: now}, nil, 2*time.Second)
	assert.False(t, ready)
}

func TestDecideSizeGrowthResetsBaseline(t *testing.T) {
	t0 := time.Now()
	_, prev := Decide(Current{Size: 0, LastWriteUtc: t0, ObservedAtUtc: t0}, nil, 2*time.Second)

	t1 := t0.Add(1 * time.Second)
	ready, next := Decide(Current{Size: 100, LastWriteUtc: t1, ObservedAtUtc: t1}, &prev, 2*time.Second)
	assert.False(t, ready)
	assert.Equal(t, t1, next.LastObservedUtc)
	assert.Equal(t, int64(100), next.Size)
}

func TestDecideStableAcrossTwoCycles(t *testing.T) {
	// End-to-end scenario 5: size grows 0 -> 100 across two cycles 1s apart,
	// window 2s; stable for 2s produces ready on the later cycle.
	t0 := time.Now()
	_, snap0 := Decide(Current{Size: 0, LastWriteUtc: t0, ObservedAtUtc: t0}, nil, 2*time.Second)

	t1 := t0.Add(1 * time.Second)
	ready1, snap1 := Decide(Current{Size: 100, LastWriteUtc: t1, ObservedAtUtc: t1}, &snap0, 2*time.Second)
	assert.False(t, ready1)

	t2 := t1.Add(2100 * time.Millisecond)
	ready2, _ := Decide(Current{Size: 100, LastWriteUtc: t1, ObservedAtUtc: t2}, &snap1, 2*time.Second)
	assert.True(t, ready2)
}

func TestDecideMonotonicOnceReady(t *testing.T) {
	t0 := time.Now()
	_, snap0 := Decide(Current{Size: 50, LastWriteUtc: t0, ObservedAtUtc: t0}, nil, time.Second)

	t1 := t0.Add(2 * time.Second)
	ready1, snap1 := Decide(Current{Size: 50, LastWriteUtc: t0, ObservedAtUtc: t1}, &snap0, time.Second)
	assert.True(t, ready1)

	t2 := t1.Add(1 * time.Second)
	ready2, _ := Decide(Current{Size: 50, LastWriteUtc: t0, ObservedAtUtc: t2}, &snap1, time.Second)
	assert.True(t, ready2)
}
