package worker

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// Reconciler ticks on a fixed interval and runs one reconciliation pass
// per tick.  A pass never runs concurrently with itself: a tick that
// fires while the previous pass is still in flight is dropped, not
// queued.  The in-flight flag is owned by the instance, never a package
// variable, and the stop handle closes over the same instance.
type Reconciler struct {
	store    PassStore
	interval time.Duration
	grace    time.Duration

	// onSummary, when set, receives the summary of every successful
	// pass after it is logged.  Used to publish summary events.
	onSummary func(PassSummary)

	inFlight atomic.Bool
	passWG   sync.WaitGroup
	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

// NewReconciler constructs a stopped Reconciler.  The grace duration is
// how long after a class's start instant it becomes reconcilable.
func NewReconciler(store PassStore, interval, grace time.Duration) *Reconciler {
	if store == nil {
		panic("nil store passed to NewReconciler")
	}
	return &Reconciler{
		store:    store,
		interval: interval,
		grace:    grace,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// OnSummary registers a callback invoked after each successful pass.
// Must be called before Start.
func (r *Reconciler) OnSummary(fn func(PassSummary)) { r.onSummary = fn }

// Start launches the ticking loop and returns a stop function.  The
// stop function is idempotent, prevents any future tick from firing,
// and waits for the loop goroutine to exit; an in-flight pass is
// drained, not interrupted.
func (r *Reconciler) Start() (stop func()) {
	go r.loop()
	return r.Stop
}

// Stop halts the ticking loop.  Safe to call more than once.
func (r *Reconciler) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
	<-r.done
	r.passWG.Wait()
}

func (r *Reconciler) loop() {
	defer close(r.done)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			if !r.inFlight.CompareAndSwap(false, true) {
				log.Printf("reconciler: pass still running, dropping tick")
				continue
			}
			r.passWG.Add(1)
			go func() {
				defer r.passWG.Done()
				defer r.inFlight.Store(false)
				r.runOnce()
			}()
		}
	}
}

// runOnce executes a single pass and logs its outcome.  Pass errors are
// logged and swallowed; the worker keeps ticking.
func (r *Reconciler) runOnce() {
	ctx := context.Background()
	graceMinutes := int(r.grace / time.Minute)
	sum, err := r.store.RunPass(ctx, graceMinutes)
	if err != nil {
		log.Printf("reconciler: pass failed, rolled back: %v", err)
		return
	}
	log.Printf("reconciler: pass done eligible=%d no_attendance=%d selected=%d inserted=%d registrations_updated=%d memberships_updated=%d classes_closed=%d",
		sum.Eligible, sum.NoAttendance, sum.Selected, sum.Inserted, sum.RegistrationsUpdated, sum.MembershipsUpdated, sum.ClassesClosed)
	if skipped := sum.Skipped(); skipped > 0 {
		other := skipped - sum.SkippedNoMembership
		log.Printf("reconciler: WARN skipped=%d no_eligible_membership=%d other=%d", skipped, sum.SkippedNoMembership, other)
	}
	if r.onSummary != nil {
		r.onSummary(sum)
	}
}
