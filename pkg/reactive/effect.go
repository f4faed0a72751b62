// Package reactive is the dependency-tracking kernel: proxies (as
// typed State/Object/Collection wrappers, Go having no transparent
// object proxies), an effect graph with O(1) re-subscription via
// track-ids, and tri-state dirtiness for computed values.
package reactive

import (
	"sync"
	"sync/atomic"
)

// DirtyLevel is an effect's tri-state staleness, per the data model.
type DirtyLevel uint8

const (
	NotDirty DirtyLevel = iota
	MaybeDirty
	Dirty
)

var trackIDCounter uint64

func nextTrackID() uint64 { return atomic.AddUint64(&trackIDCounter, 1) }

// globalVersion is bumped once per trigger; a Computed compares its
// last-checked version against it to decide whether a MaybeDirty
// upstream chain actually needs re-evaluating.
var globalVersion uint64

func bumpGlobalVersion() uint64 { return atomic.AddUint64(&globalVersion, 1) }

// dirtyResolver lets a Dep whose subscribers include a Computed's
// internal effect ask that computed "did your value actually change",
// without needing a heterogeneous list of *Computed[T] for every T.
type dirtyResolver interface {
	resolveDirty() DirtyLevel
}

// Effect is a subscriber in the reactivity graph: a function re-run
// when any dependency it read on its last run is written.
type Effect struct {
	fn        func()
	scheduler func()
	allowRecurse bool

	dirty   DirtyLevel
	trackID uint64
	deps    []*Dep
	depTail int
	runs    int // depth of current execution, guards self-recursion

	active bool
	onStop func()

	mu sync.Mutex
}

// EffectOptions configures Effect/NewEffect.
type EffectOptions struct {
	// Scheduler, if set, is invoked instead of re-running fn directly
	// when a dependency changes; the scheduler decides when (or
	// whether) to call Run.
	Scheduler func()
	// AllowRecurse permits the effect to re-trigger itself while it is
	// already running (writes performed inside its own fn).
	AllowRecurse bool
}

// activeEffect and shouldTrack are the running effect and the tracking
// switch, both guarded by effectStackMu. PushActiveEffect and
// PauseTracking return a restore closure that callers defer, so the
// previous state comes back on all exit paths including panics.
var effectStackMu sync.Mutex
var activeEffect *Effect
var shouldTrack = true

// PushActiveEffect installs e as the active effect and returns a
// restore closure. Callers must defer the restore.
func PushActiveEffect(e *Effect) (restore func()) {
	effectStackMu.Lock()
	prev := activeEffect
	activeEffect = e
	effectStackMu.Unlock()
	return func() {
		effectStackMu.Lock()
		activeEffect = prev
		effectStackMu.Unlock()
	}
}

// PauseTracking turns tracking off and returns a restore closure that
// turns it back on, implementing the should-track pause stack
// described in §5 ("Shared resource policy"). Sequence-mutation
// methods on Collection use this to suspend self-triggering.
func PauseTracking() (restore func()) {
	effectStackMu.Lock()
	prev := shouldTrack
	shouldTrack = false
	effectStackMu.Unlock()
	return func() {
		effectStackMu.Lock()
		shouldTrack = prev
		effectStackMu.Unlock()
	}
}

func isTrackingEnabled() bool {
	effectStackMu.Lock()
	defer effectStackMu.Unlock()
	return shouldTrack
}

func currentEffect() *Effect {
	effectStackMu.Lock()
	defer effectStackMu.Unlock()
	return activeEffect
}

// NewEffect creates and immediately runs an effect, per effect(fn,
// options) in the contract.
func NewEffect(fn func(), opts EffectOptions) *Effect {
	e := &Effect{
		fn:           fn,
		scheduler:    opts.Scheduler,
		allowRecurse: opts.AllowRecurse,
		active:       true,
	}
	e.Run()
	return e
}

// Run executes the effect-execution protocol from §4.1: bump the
// track-id, reset the dep cursor, install as active, invoke fn (which
// re-records deps under the new track-id), restore, then truncate the
// dep list back to the cursor, unsubscribing from anything not
// re-tracked this run.
func (e *Effect) Run() {
	if !e.active {
		e.fn()
		return
	}
	if e.runs > 0 && !e.allowRecurse {
		return
	}
	restore := PushActiveEffect(e)
	prevTrack := shouldTrack
	effectStackMu.Lock()
	shouldTrack = true
	effectStackMu.Unlock()

	e.trackID = nextTrackID()
	e.depTail = 0
	e.runs++
	defer func() {
		e.runs--
		e.cleanupUnusedDeps()
		effectStackMu.Lock()
		shouldTrack = prevTrack
		effectStackMu.Unlock()
		restore()
	}()
	e.dirty = NotDirty
	if l := traceLog(); l != nil {
		l.Debug("effect run", "track_id", e.trackID)
	}
	e.fn()
}

func (e *Effect) cleanupUnusedDeps() {
	for i := e.depTail; i < len(e.deps); i++ {
		e.deps[i].unsubscribe(e)
	}
	e.deps = e.deps[:e.depTail]
}

// track records that e (if any, and if tracking is enabled) read dep
// during its current run. Idempotent within one run: re-reading the
// same dep does not grow the dep list.
func (d *Dep) track(e *Effect) {
	if e == nil || !e.active {
		return
	}
	if !isTrackingEnabled() {
		return
	}
	if e.runs == 0 {
		return
	}
	d.mu.Lock()
	last, ok := d.subs[e]
	alreadyThisRun := ok && last == e.trackID
	d.subs[e] = e.trackID
	d.mu.Unlock()
	if alreadyThisRun {
		return
	}
	if e.depTail < len(e.deps) && e.deps[e.depTail] == d {
		e.depTail++
		return
	}
	if e.depTail < len(e.deps) {
		e.deps[e.depTail] = d
	} else {
		e.deps = append(e.deps, d)
	}
	e.depTail++
}

// Notify bumps e's dirty level (never downgrading it) and, if a
// scheduler is attached and e isn't already running (or allows
// recursion), enqueues the scheduler. Returns whether the level
// actually increased, so callers can skip already-dirty effects.
func (e *Effect) notify(level DirtyLevel) bool {
	if e.dirty >= level {
		return false
	}
	e.dirty = level
	if l := traceLog(); l != nil {
		l.Debug("effect notify", "track_id", e.trackID, "level", level)
	}
	if e.runs == 0 || e.allowRecurse {
		if e.scheduler != nil {
			deferOrRun(e)
		} else {
			deferOrRunEffect(e)
		}
	}
	return true
}

// resolveDirty implements "reading a MaybeDirty effect re-evaluates
// upstream computeds and settles to Dirty or NotDirty": walk this
// effect's own deps, ask any computed-backed ones to resolve
// themselves, and adopt Dirty if any of them actually changed.
func (e *Effect) resolveDirty() DirtyLevel {
	if e.dirty == NotDirty {
		return NotDirty
	}
	if e.dirty == MaybeDirty {
		settled := NotDirty
		for _, d := range e.deps[:e.depTail] {
			if d.owner == nil {
				continue
			}
			if d.owner.resolveDirty() == Dirty {
				settled = Dirty
				break
			}
		}
		e.dirty = settled
	}
	return e.dirty
}

// MaybeRun resolves a MaybeDirty effect before deciding whether to
// actually re-run it, per §4.1.
func (e *Effect) MaybeRun() {
	if !e.active {
		return
	}
	if e.resolveDirty() == Dirty {
		e.Run()
	}
}

// Stop detaches the effect from every dependency and marks it
// inactive; any in-flight scheduled job for it becomes a no-op.
func (e *Effect) Stop() {
	if !e.active {
		return
	}
	e.active = false
	for _, d := range e.deps {
		d.unsubscribe(e)
	}
	e.deps = nil
	if e.onStop != nil {
		e.onStop()
	}
}

func (e *Effect) Active() bool { return e.active }
