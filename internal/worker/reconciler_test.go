package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blockingStore counts passes and can hold every pass open until
// released, so tests can observe the single-flight behavior.
type blockingStore struct {
	mu      sync.Mutex
	calls   int
	graces  []int
	release chan struct{} // when non-nil, RunPass blocks until closed
	err     error
	sum     PassSummary
}

func (s *blockingStore) RunPass(ctx context.Context, graceMinutes int) (PassSummary, error) {
	s.mu.Lock()
	s.calls++
	s.graces = append(s.graces, graceMinutes)
	release := s.release
	s.mu.Unlock()
	if release != nil {
		<-release
	}
	return s.sum, s.err
}

func (s *blockingStore) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestReconcilerRunsPassesOnTicks(t *testing.T) {
	store := &blockingStore{}
	rec := NewReconciler(store, 5*time.Millisecond, 15*time.Minute)
	stop := rec.Start()

	waitFor(t, func() bool { return store.callCount() >= 2 })
	stop()

	store.mu.Lock()
	defer store.mu.Unlock()
	require.NotEmpty(t, store.graces)
	assert.Equal(t, 15, store.graces[0])
}

func TestReconcilerDropsTicksWhileInFlight(t *testing.T) {
	store := &blockingStore{release: make(chan struct{})}
	rec := NewReconciler(store, 5*time.Millisecond, 15*time.Minute)
	stop := rec.Start()

	waitFor(t, func() bool { return store.callCount() == 1 })
	// Many ticks fire while the first pass is held open; none of them
	// may start a second pass.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, store.callCount())

	close(store.release)
	stop()
}

func TestReconcilerStopDrainsInFlightPass(t *testing.T) {
	store := &blockingStore{release: make(chan struct{})}
	rec := NewReconciler(store, 5*time.Millisecond, time.Minute)
	stop := rec.Start()

	waitFor(t, func() bool { return store.callCount() == 1 })

	stopped := make(chan struct{})
	go func() {
		stop()
		close(stopped)
	}()
	select {
	case <-stopped:
		t.Fatal("stop returned while a pass was still in flight")
	case <-time.After(30 * time.Millisecond):
	}

	close(store.release)
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("stop did not return after the pass finished")
	}
}

func TestReconcilerStopIsIdempotent(t *testing.T) {
	store := &blockingStore{}
	rec := NewReconciler(store, time.Hour, time.Minute)
	stop := rec.Start()

	stop()
	stop()
	rec.Stop()
}

func TestReconcilerSurvivesPassErrors(t *testing.T) {
	store := &blockingStore{err: errors.New("deadlock found")}
	rec := NewReconciler(store, 5*time.Millisecond, time.Minute)
	stop := rec.Start()

	// The loop keeps ticking through failed passes.
	waitFor(t, func() bool { return store.callCount() >= 3 })
	stop()
}

func TestReconcilerReportsSummaries(t *testing.T) {
	store := &blockingStore{sum: PassSummary{Eligible: 2, Inserted: 2, RegistrationsUpdated: 2}}
	rec := NewReconciler(store, 5*time.Millisecond, time.Minute)

	got := make(chan PassSummary, 1)
	rec.OnSummary(func(sum PassSummary) {
		select {
		case got <- sum:
		default:
		}
	})
	stop := rec.Start()
	defer stop()

	select {
	case sum := <-got:
		assert.Equal(t, 2, sum.Eligible)
		assert.Equal(t, 2, sum.Inserted)
	case <-time.After(2 * time.Second):
		t.Fatal("no summary reported")
	}
}

func TestPassSummarySkipped(t *testing.T) {
	sum := PassSummary{NoAttendance: 5, Inserted: 3}
	assert.Equal(t, 2, sum.Skipped())
}
