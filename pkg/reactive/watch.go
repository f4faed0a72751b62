package reactive

import "sync"

// FlushMode controls when a watcher's callback runs relative to the
// component render queue, per §4.1/§7's pre/post/sync flush timing.
type FlushMode uint8

const (
	FlushPre FlushMode = iota
	FlushPost
	FlushSync
)

// Scheduler is supplied by the caller (normally pkg/scheduler) to
// enqueue a watcher's flush into the pre-flush or post-flush queue;
// Watch itself only knows how to run the diff, not when. identity is
// the dedup key a re-entrant trigger during the same flush collapses
// onto, normally the watcher's own effect pointer.
type Scheduler interface {
	QueuePre(identity any, job func())
	QueuePost(identity any, job func())
}

// StopHandle stops a watcher or watchEffect, detaching it from every
// dependency it currently holds.
type StopHandle func()

// OnInvalidateFunc registers a cleanup to run before the next
// invocation of a watcher/watchEffect callback, or when it stops.
type OnInvalidateFunc func(cleanup func())

// WatchOptions configures Watch and WatchEffect.
type WatchOptions struct {
	Flush     FlushMode
	Immediate bool // Watch only: run the callback once before any change
	Deep      bool // Watch only: recursively read source's fields/elements
	Scheduler Scheduler
}

type watcher struct {
	mu        sync.Mutex
	effect    *Effect
	cleanup   func()
	scheduled bool
}

func (w *watcher) onInvalidate(fn func()) {
	w.mu.Lock()
	w.cleanup = fn
	w.mu.Unlock()
}

func (w *watcher) runCleanup() {
	w.mu.Lock()
	cleanup := w.cleanup
	w.cleanup = nil
	w.mu.Unlock()
	if cleanup != nil {
		cleanup()
	}
}

// WatchEffect runs fn immediately, tracking whatever reactive state it
// reads, and re-runs it whenever that state changes; it has no
// separate old/new value pair, matching a bare effect() call used for
// its side effect rather than its dependency-value delta.
func WatchEffect(fn func(onInvalidate OnInvalidateFunc), opts WatchOptions) StopHandle {
	w := &watcher{}
	body := func() {
		w.runCleanup()
		fn(w.onInvalidate)
	}

	e := &Effect{active: true}
	e.fn = body
	e.scheduler = flushSchedulerFor(w, e, opts)
	w.effect = e
	e.Run()

	return func() {
		w.runCleanup()
		e.Stop()
	}
}

// Watch tracks source, and calls onChange(newVal, oldVal, onInvalidate)
// whenever a read performed inside source differs (by valueEqual) from
// the previous read. Deep enables re-reading nested collection/object
// wrappers so a mutation to a nested field is observed even though the
// top-level pointer identity of source didn't change.
func Watch[T comparable](source func() T, onChange func(newVal, oldVal T, onInvalidate OnInvalidateFunc), opts WatchOptions) StopHandle {
	w := &watcher{}
	var old T
	first := true

	run := func() {
		next := source()
		if opts.Deep {
			deepRead(next)
		}
		if first {
			old = next
			first = false
			if opts.Immediate {
				w.runCleanup()
				onChange(next, next, w.onInvalidate)
			}
			return
		}
		if valueEqual(old, next) {
			return
		}
		prev := old
		old = next
		w.runCleanup()
		onChange(next, prev, w.onInvalidate)
	}

	eff := &Effect{active: true}
	eff.fn = run
	eff.scheduler = flushSchedulerFor(w, eff, opts)
	w.effect = eff
	eff.Run()

	return func() {
		w.runCleanup()
		eff.Stop()
	}
}

// deepRead recursively touches every field/element of v that exposes a
// Get/Snapshot method, forcing a dep subscription on each so a nested
// mutation invalidates the watcher even though v's own identity is
// unchanged. Best-effort: values with no such surface are read once
// and left alone (they're a plain value, already covered by valueEqual
// on the top-level read).
func deepRead(v any) {
	switch t := v.(type) {
	case interface{ deepTrack() }:
		t.deepTrack()
	default:
	}
}

func flushSchedulerFor(w *watcher, e *Effect, opts WatchOptions) func() {
	switch opts.Flush {
	case FlushSync:
		return func() { e.Run() }
	case FlushPost:
		if opts.Scheduler != nil {
			return func() { opts.Scheduler.QueuePost(e, func() { e.MaybeRun() }) }
		}
		return func() { e.Run() }
	default: // FlushPre
		if opts.Scheduler != nil {
			return func() { opts.Scheduler.QueuePre(e, func() { e.MaybeRun() }) }
		}
		return func() { e.Run() }
	}
}
