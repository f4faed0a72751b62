// Package scheduler drains the pre-flush and post-flush job queues
// described by the reactivity kernel: component render jobs and
// pre-flush watchers run first (parents before children), then
// post-flush hooks and watchers. A job scheduled during a drain joins
// the pass in progress; a per-job recursion guard aborts a flush that
// keeps re-scheduling the same job.
package scheduler

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/weftui/weft/pkg/errs"
	"github.com/weftui/weft/pkg/vdom"
)

// RenderFunc renders a component's current virtual tree.
type RenderFunc func() *vdom.VNode

// ErrorHandler observes a fiber's render or job panic. Returning true
// keeps the fiber scheduled; false unmounts it.
type ErrorHandler func(fiber *Fiber, err *errs.RuntimeError) bool

// Fiber is a component's render unit within the scheduler: a stable
// id for ordering, its last rendered tree, and the render function
// re-invoked on a pre-flush pass.
type Fiber struct {
	id     uint64
	parent *Fiber
	vnode  *vdom.VNode
	render RenderFunc

	dirty   atomic.Bool
	onError ErrorHandler

	// name is the owning component's descriptor name, used only to
	// identify the fiber in diagnostics (recursion-guard trips, error
	// logs); empty for a fiber never given one.
	name string

	userData any
}

func (f *Fiber) ID() uint64          { return f.id }
func (f *Fiber) Parent() *Fiber      { return f.parent }
func (f *Fiber) VNode() *vdom.VNode  { return f.vnode }
func (f *Fiber) SetVNode(v *vdom.VNode) { f.vnode = v }
func (f *Fiber) SetUserData(d any)   { f.userData = d }
func (f *Fiber) GetUserData() any    { return f.userData }
func (f *Fiber) SetErrorHandler(h ErrorHandler) { f.onError = h }

// SetName attaches the owning component's descriptor name to fiber,
// so a recursion-guard trip or an unhandled render error can name the
// offending component instead of just its numeric fiber id.
func (f *Fiber) SetName(name string) { f.name = name }

// Name returns the fiber's component name, or "" if none was set.
func (f *Fiber) Name() string { return f.name }

// job is one pending unit of work in the pre-flush or post-flush
// queue: identity is the dedup key a re-entrant schedule during the
// same pass collapses onto; id orders parent jobs before child jobs;
// pre breaks ties so a watcher runs before a same-id render job.
type job struct {
	identity    any
	id          uint64
	pre         bool
	seq         uint64
	fn          func()
	invalidated bool
}

// recursionLimit bounds how many times a single job identity may run
// within one flush before the loop is diagnosed as runaway. Counted
// per identity across the whole flush (which may loop drainPre/
// drainPost several times), not per job value: a re-dirtied fiber gets
// a fresh *job on every re-enqueue, so counting per-job would never
// see more than one execution and could never trip.
const recursionLimit = 100

// debugLog is the optional trace sink for flush/job lifecycle events,
// separate from a Scheduler's own error logger: SetLogger controls
// where failures get reported, SetDebugLog controls whether every
// flush pass gets traced.
var debugLog atomic.Pointer[slog.Logger]

// SetDebugLog installs logger as the trace sink for flush starts,
// drains, and job dispatch across every Scheduler in the process, or
// clears it when logger is nil.
func SetDebugLog(logger *slog.Logger) {
	debugLog.Store(logger)
}

func traceLog() *slog.Logger {
	return debugLog.Load()
}

// Scheduler owns the pre-flush and post-flush queues and drains them
// to a fixed point every time work is enqueued, per the flush
// algorithm: sort pre-flush by (id, pre-before-regular), execute with
// an advancing index so a parent job may enqueue a child's pre-flush
// watcher mid-pass, then promote pending post-flush jobs into an
// active list, sort, and execute those; loop if either queue refilled.
type Scheduler struct {
	mu  sync.Mutex
	log *slog.Logger

	fibers map[uint64]*Fiber
	nextID uint64

	preQueue    []*job
	postPending []*job

	flushing bool
	tickQueue []func()

	applyPatches func([]vdom.Patch)
	defaultError ErrorHandler

	seq uint64

	// execCounts and aborted implement the recursion guard: execCounts
	// tracks how many times each job identity has run within the flush
	// currently draining, reset when a new flush begins; aborted is set
	// once any identity crosses recursionLimit, and checked by
	// drainPre/drainPost/flush to stop dispatching further jobs rather
	// than spin forever on a render that keeps re-dirtying itself.
	execCounts map[any]int
	aborted    bool
}

// NewScheduler creates an idle scheduler; nothing runs until a job is
// enqueued via MarkDirty, QueuePre, or QueuePost.
func NewScheduler() *Scheduler {
	return &Scheduler{
		fibers: make(map[uint64]*Fiber),
		nextID: 1,
		log:    slog.Default(),
	}
}

// SetLogger overrides the default slog logger used for job failures
// and recursion-guard diagnostics.
func (s *Scheduler) SetLogger(l *slog.Logger) {
	if l != nil {
		s.log = l
	}
}

// SetPatchApplier sets the function invoked with the patches produced
// by each fiber's render/diff pass.
func (s *Scheduler) SetPatchApplier(applier func(patches []vdom.Patch)) {
	s.applyPatches = applier
}

// SetDefaultErrorHandler sets the error handler new fibers receive
// unless given their own via Fiber.SetErrorHandler.
func (s *Scheduler) SetDefaultErrorHandler(handler ErrorHandler) {
	s.defaultError = handler
}

// CreateFiber registers a new component render unit.
func (s *Scheduler) CreateFiber(render RenderFunc, parent *Fiber) *Fiber {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	f := &Fiber{id: id, parent: parent, render: render, onError: s.defaultError}
	s.fibers[id] = f
	return f
}

// RemoveFiber unregisters fiber and invalidates any pending job for
// it, per "a component unmount mid-flush calls invalidateJob to
// remove its own pending update."
func (s *Scheduler) RemoveFiber(fiber *Fiber) {
	if fiber == nil {
		return
	}
	s.mu.Lock()
	delete(s.fibers, fiber.id)
	s.mu.Unlock()
	s.InvalidateJob(fiber)
}

// GetFiber looks a fiber up by id.
func (s *Scheduler) GetFiber(id uint64) *Fiber {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fibers[id]
}

// FiberCount reports the number of registered fibers.
func (s *Scheduler) FiberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.fibers)
}

// MarkDirty schedules fiber's render job onto the pre-flush queue,
// deduplicating repeated marks before the next flush actually runs it.
func (s *Scheduler) MarkDirty(fiber *Fiber) {
	if fiber == nil {
		return
	}
	if !fiber.dirty.CompareAndSwap(false, true) {
		return
	}
	s.enqueuePre(&job{
		identity: fiber,
		id:       fiber.id,
		pre:      false,
		fn: func() {
			fiber.dirty.Store(false)
			s.renderFiber(fiber)
		},
	})
}

// QueuePre implements reactive.Scheduler for a standalone pre-flush
// watcher not bound to any component id; it sorts by insertion order
// alone against jobs of id 0. Use Bound to pin a watcher's ordering
// to an owning component.
func (s *Scheduler) QueuePre(identity any, fn func()) {
	s.enqueuePre(&job{identity: identity, id: 0, pre: true, fn: fn})
}

// QueuePost implements reactive.Scheduler for the post-flush queue.
func (s *Scheduler) QueuePost(identity any, fn func()) {
	s.enqueuePost(&job{identity: identity, id: 0, fn: fn})
}

// Bound returns a reactive.Scheduler adapter that pins a watcher's
// ordering key to id (normally the owning component's fiber id), so
// "pre-flush watchers observe props/state prior to their component's
// render" holds even though the watcher and the render job are
// separate entries in the same queue.
func (s *Scheduler) Bound(id uint64) *BoundScheduler { return &BoundScheduler{s: s, id: id} }

// BoundScheduler is a reactive.Scheduler pinned to one component id.
type BoundScheduler struct {
	s  *Scheduler
	id uint64
}

func (b *BoundScheduler) QueuePre(identity any, fn func()) {
	b.s.enqueuePre(&job{identity: identity, id: b.id, pre: true, fn: fn})
}

func (b *BoundScheduler) QueuePost(identity any, fn func()) {
	b.s.enqueuePost(&job{identity: identity, id: b.id, fn: fn})
}

func (s *Scheduler) enqueuePre(j *job) {
	s.mu.Lock()
	for _, existing := range s.preQueue {
		if !existing.invalidated && existing.identity == j.identity {
			s.mu.Unlock()
			return
		}
	}
	s.seq++
	j.seq = s.seq
	s.preQueue = append(s.preQueue, j)
	s.mu.Unlock()
	s.flush()
}

func (s *Scheduler) enqueuePost(j *job) {
	s.mu.Lock()
	for _, existing := range s.postPending {
		if !existing.invalidated && existing.identity == j.identity {
			s.mu.Unlock()
			return
		}
	}
	s.seq++
	j.seq = s.seq
	s.postPending = append(s.postPending, j)
	s.mu.Unlock()
	s.flush()
}

// InvalidateJob removes any not-yet-executed job whose identity is
// identity from both queues.
func (s *Scheduler) InvalidateJob(identity any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, j := range s.preQueue {
		if j.identity == identity {
			j.invalidated = true
		}
	}
	for _, j := range s.postPending {
		if j.identity == identity {
			j.invalidated = true
		}
	}
}

// NextTick queues fn to run after the currently draining (or about to
// drain) flush completes, or immediately if none is scheduled.
func (s *Scheduler) NextTick(fn func()) {
	s.mu.Lock()
	if !s.flushing && len(s.preQueue) == 0 && len(s.postPending) == 0 {
		s.mu.Unlock()
		fn()
		return
	}
	s.tickQueue = append(s.tickQueue, fn)
	s.mu.Unlock()
}

// flush drains the pre-flush queue then the post-flush queue to a
// fixed point, looping while either queue was refilled mid-drain. A
// second concurrent call while a flush is already running is a no-op:
// the running flush will observe the newly queued job on its next
// pass since draining loops until both queues are empty.
func (s *Scheduler) flush() {
	s.mu.Lock()
	if s.flushing {
		s.mu.Unlock()
		return
	}
	s.flushing = true
	s.execCounts = make(map[any]int)
	s.aborted = false
	s.mu.Unlock()
	if l := traceLog(); l != nil {
		l.Debug("scheduler flush start")
	}

	defer func() {
		s.mu.Lock()
		s.flushing = false
		s.execCounts = nil
		ticks := s.tickQueue
		s.tickQueue = nil
		s.mu.Unlock()
		for _, fn := range ticks {
			fn()
		}
	}()

	for {
		didWork := s.drainPre()
		didWork = s.drainPost() || didWork
		if s.isAborted() {
			return
		}
		if !didWork {
			return
		}
	}
}

func (s *Scheduler) isAborted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aborted
}

func (s *Scheduler) drainPre() bool {
	s.mu.Lock()
	if len(s.preQueue) == 0 {
		s.mu.Unlock()
		return false
	}
	queue := s.preQueue
	s.preQueue = nil
	s.mu.Unlock()

	sort.SliceStable(queue, func(i, j int) bool {
		if queue[i].id != queue[j].id {
			return queue[i].id < queue[j].id
		}
		if queue[i].pre != queue[j].pre {
			return queue[i].pre // pre-flush watcher before same-id render job
		}
		return queue[i].seq < queue[j].seq
	})

	// An advancing index lets a job scheduled mid-pass (e.g. a parent
	// render enqueuing a child's pre-flush watcher) join this same
	// drain instead of waiting a full extra flush cycle.
	for i := 0; i < len(queue); i++ {
		if s.isAborted() {
			return true
		}
		j := queue[i]
		if j.invalidated {
			continue
		}
		s.runJob(j)

		s.mu.Lock()
		if len(s.preQueue) > 0 {
			queue = append(queue, s.preQueue...)
			s.preQueue = nil
			sort.SliceStable(queue[i+1:], func(a, b int) bool {
				a, b = a+i+1, b+i+1
				if queue[a].id != queue[b].id {
					return queue[a].id < queue[b].id
				}
				if queue[a].pre != queue[b].pre {
					return queue[a].pre
				}
				return queue[a].seq < queue[b].seq
			})
		}
		s.mu.Unlock()
	}
	return true
}

func (s *Scheduler) drainPost() bool {
	s.mu.Lock()
	if len(s.postPending) == 0 {
		s.mu.Unlock()
		return false
	}
	active := s.postPending
	s.postPending = nil
	s.mu.Unlock()

	sort.SliceStable(active, func(i, j int) bool {
		if active[i].id != active[j].id {
			return active[i].id < active[j].id
		}
		return active[i].seq < active[j].seq
	})

	for _, j := range active {
		if s.isAborted() {
			return true
		}
		if !j.invalidated {
			s.runJob(j)
		}
	}
	return true
}

// componentName renders a diagnostic-friendly name for a job identity:
// a fiber's own component name if it has one, else its numeric fiber
// id, else the identity's default formatting for a bare watcher.
func componentName(identity any) string {
	if fiber, ok := identity.(*Fiber); ok {
		if fiber.name != "" {
			return fiber.name
		}
		return fmt.Sprintf("fiber#%d", fiber.id)
	}
	return fmt.Sprintf("%v", identity)
}

func (s *Scheduler) runJob(j *job) {
	s.mu.Lock()
	s.execCounts[j.identity]++
	runs := s.execCounts[j.identity]
	s.mu.Unlock()

	if l := traceLog(); l != nil {
		l.Debug("scheduler run job", "job_id", j.id, "pre", j.pre, "runs", runs)
	}
	if runs > recursionLimit {
		s.log.Error("scheduler: recursion guard tripped, aborting flush",
			"job_id", j.id, "component", componentName(j.identity))
		s.mu.Lock()
		s.aborted = true
		s.mu.Unlock()
		return
	}
	defer func() {
		if r := recover(); r != nil {
			cause, ok := r.(error)
			if !ok {
				cause = fmt.Errorf("%v", r)
			}
			s.log.Error("scheduler: job panicked", "job_id", j.id, "error", cause, "stack", string(debug.Stack()))
		}
	}()
	j.fn()
}

// renderFiber runs fiber's render function, diffs against its
// previous tree, and applies the resulting patches. A render-function
// failure is captured by the fiber's error handler (or the scheduler
// default) rather than propagating and aborting the flush of other
// jobs.
func (s *Scheduler) renderFiber(fiber *Fiber) {
	rtErr := errs.CallWithErrorHandling(errs.RenderFunctionError, "", nil, nil, func() {
		next := fiber.render()
		patches := vdom.Diff(fiber.vnode, next)
		if s.applyPatches != nil && len(patches) > 0 {
			s.applyPatches(patches)
		}
		fiber.vnode = next
	})
	if rtErr == nil {
		return
	}

	if fiber.onError != nil {
		if fiber.onError(fiber, rtErr) {
			return
		}
		s.RemoveFiber(fiber)
		return
	}

	// No handler on the fiber that raised the error: bubble it up the
	// ancestor chain, per spec.md's errorCaptured propagation ("each
	// ancestor's hook is called in order until one... handles it").
	// The originating fiber unmounts either way once it has panicked;
	// an ancestor claiming the error only suppresses the process-level
	// log, it does not resurrect the fiber that raised it.
	for p := fiber.parent; p != nil; p = p.parent {
		if p.onError != nil && p.onError(fiber, rtErr) {
			s.RemoveFiber(fiber)
			return
		}
	}
	s.log.Error("scheduler: fiber render failed", "fiber_id", fiber.id, "error", rtErr)
	s.RemoveFiber(fiber)
}
