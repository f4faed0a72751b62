package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/weftui/weft/pkg/errs"
	"github.com/weftui/weft/pkg/vdom"
)

// recordingHandler collects emitted slog.Record values so a test can
// assert on a specific diagnostic without parsing formatted log text.
type recordingHandler struct {
	mu      sync.Mutex
	records []slog.Record
}

func (h *recordingHandler) Enabled(context.Context, slog.Level) bool { return true }
func (h *recordingHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, r)
	return nil
}
func (h *recordingHandler) WithAttrs(_ []slog.Attr) slog.Handler { return h }
func (h *recordingHandler) WithGroup(_ string) slog.Handler      { return h }

func (h *recordingHandler) find(message string) (slog.Record, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, r := range h.records {
		if r.Message == message {
			return r, true
		}
	}
	return slog.Record{}, false
}

func TestScheduler_CreateFiber(t *testing.T) {
	sched := NewScheduler()

	renderCalled := false
	render := func() *vdom.VNode {
		renderCalled = true
		return vdom.NewText("test")
	}

	fiber := sched.CreateFiber(render, nil)

	if fiber == nil {
		t.Fatal("CreateFiber returned nil")
	}
	if fiber.ID() == 0 {
		t.Error("fiber id should not be 0")
	}
	if fiber.Parent() != nil {
		t.Error("parent should be nil")
	}
	if renderCalled {
		t.Error("render should not be called during creation")
	}
	if sched.FiberCount() != 1 {
		t.Errorf("expected 1 fiber, got %d", sched.FiberCount())
	}
}

func TestScheduler_MarkDirtyRendersSynchronously(t *testing.T) {
	sched := NewScheduler()

	var renderCount atomic.Int32
	var patchCount atomic.Int32

	render := func() *vdom.VNode {
		renderCount.Add(1)
		return vdom.NewElement("div", nil, vdom.NewText("test"))
	}

	sched.SetPatchApplier(func(patches []vdom.Patch) {
		patchCount.Add(int32(len(patches)))
	})

	fiber := sched.CreateFiber(render, nil)

	sched.MarkDirty(fiber)
	if renderCount.Load() != 1 {
		t.Errorf("expected render to be called once, got %d", renderCount.Load())
	}

	sched.MarkDirty(fiber)
	if renderCount.Load() != 2 {
		t.Errorf("expected render to be called twice, got %d", renderCount.Load())
	}
}

func TestScheduler_MarkDirtyDedupesWithinOneFlush(t *testing.T) {
	sched := NewScheduler()
	var renderCount atomic.Int32
	fiber := sched.CreateFiber(func() *vdom.VNode {
		renderCount.Add(1)
		return vdom.NewText("x")
	}, nil)

	sched.MarkDirty(fiber)
	sched.MarkDirty(fiber)
	sched.MarkDirty(fiber)

	if renderCount.Load() != 1 {
		t.Errorf("expected repeated marks within one flush to collapse to 1 render, got %d", renderCount.Load())
	}
}

func TestScheduler_ParentBeforeChild(t *testing.T) {
	sched := NewScheduler()
	var order []string

	parent := sched.CreateFiber(func() *vdom.VNode {
		order = append(order, "parent")
		return vdom.NewText("p")
	}, nil)
	child := sched.CreateFiber(func() *vdom.VNode {
		order = append(order, "child")
		return vdom.NewText("c")
	}, parent)

	// Enqueue the child's job before the parent's, under a single lock
	// so both land in one flush pass: ordering must still come from id,
	// not from insertion order.
	sched.mu.Lock()
	sched.seq++
	sched.preQueue = append(sched.preQueue, &job{identity: child, id: child.id, seq: sched.seq, fn: func() { sched.renderFiber(child) }})
	sched.seq++
	sched.preQueue = append(sched.preQueue, &job{identity: parent, id: parent.id, seq: sched.seq, fn: func() { sched.renderFiber(parent) }})
	sched.mu.Unlock()
	sched.flush()

	if len(order) != 2 || order[0] != "parent" || order[1] != "child" {
		t.Errorf("expected parent before child, got %v", order)
	}
}

func TestScheduler_BoundWatcherRunsBeforeSameIDRender(t *testing.T) {
	sched := NewScheduler()
	var order []string
	fiber := sched.CreateFiber(func() *vdom.VNode {
		order = append(order, "render")
		return vdom.NewText("x")
	}, nil)

	fiber.dirty.Store(true)
	sched.mu.Lock()
	sched.seq++
	sched.preQueue = append(sched.preQueue, &job{identity: fiber, id: fiber.id, fn: func() {
		fiber.dirty.Store(false)
		sched.renderFiber(fiber)
	}, seq: sched.seq})
	sched.seq++
	sched.preQueue = append(sched.preQueue, &job{identity: "watcher-a", id: fiber.id, pre: true, fn: func() { order = append(order, "watcher") }, seq: sched.seq})
	sched.mu.Unlock()
	sched.flush()

	if len(order) != 2 || order[0] != "watcher" || order[1] != "render" {
		t.Errorf("expected watcher before render for the same id, got %v", order)
	}
}

func TestScheduler_PostFlushRunsAfterPreFlush(t *testing.T) {
	sched := NewScheduler()
	var order []string

	fiber := sched.CreateFiber(func() *vdom.VNode {
		order = append(order, "render")
		return vdom.NewText("x")
	}, nil)

	sched.QueuePost("post-a", func() { order = append(order, "post") })
	sched.MarkDirty(fiber)

	if len(order) != 2 || order[0] != "render" || order[1] != "post" {
		t.Errorf("expected render before post-flush job, got %v", order)
	}
}

func TestScheduler_ErrorHandling(t *testing.T) {
	sched := NewScheduler()

	var errorHandled atomic.Bool
	shouldContinue := true

	sched.SetDefaultErrorHandler(func(f *Fiber, err *errs.RuntimeError) bool {
		errorHandled.Store(true)
		return shouldContinue
	})

	panicRender := func() *vdom.VNode { panic("test panic") }

	fiber := sched.CreateFiber(panicRender, nil)
	sched.MarkDirty(fiber)

	if !errorHandled.Load() {
		t.Error("error handler was not called")
	}
	if sched.GetFiber(fiber.ID()) == nil {
		t.Error("fiber was removed despite error handler returning true")
	}

	shouldContinue = false
	errorHandled.Store(false)

	fiber2 := sched.CreateFiber(panicRender, nil)
	sched.MarkDirty(fiber2)

	if !errorHandled.Load() {
		t.Error("error handler was not called for second fiber")
	}
	if sched.GetFiber(fiber2.ID()) != nil {
		t.Error("fiber was not removed when error handler returned false")
	}
}

func TestScheduler_ErrorBubblesToAncestorWhenOriginHasNoHandler(t *testing.T) {
	sched := NewScheduler()

	var caughtBy *Fiber
	parent := sched.CreateFiber(func() *vdom.VNode { return vdom.NewText("parent") }, nil)
	parent.SetErrorHandler(func(f *Fiber, err *errs.RuntimeError) bool {
		caughtBy = f
		return true
	})

	child := sched.CreateFiber(func() *vdom.VNode { panic("child blew up") }, parent)
	sched.MarkDirty(child)

	if caughtBy == nil || caughtBy.ID() != child.ID() {
		t.Fatalf("expected parent's handler to be invoked with the originating child fiber, got %+v", caughtBy)
	}
	if sched.GetFiber(child.ID()) != nil {
		t.Error("expected the originating child fiber to unmount even though an ancestor claimed the error")
	}
	if sched.GetFiber(parent.ID()) == nil {
		t.Error("expected the ancestor fiber itself to remain mounted")
	}
}

func TestScheduler_UnclaimedErrorLogsAndUnmountsOrigin(t *testing.T) {
	sched := NewScheduler()
	grandparent := sched.CreateFiber(func() *vdom.VNode { return vdom.NewText("gp") }, nil)
	parent := sched.CreateFiber(func() *vdom.VNode { return vdom.NewText("p") }, grandparent)
	child := sched.CreateFiber(func() *vdom.VNode { panic("boom") }, parent)

	sched.MarkDirty(child)

	if sched.GetFiber(child.ID()) != nil {
		t.Error("expected an unclaimed error to unmount the originating fiber")
	}
	if sched.GetFiber(parent.ID()) == nil || sched.GetFiber(grandparent.ID()) == nil {
		t.Error("expected ancestors with no handler to remain mounted")
	}
}

func TestScheduler_RecursionGuardAbortsSelfReDirtyingFiberInsteadOfHanging(t *testing.T) {
	sched := NewScheduler()
	handler := &recordingHandler{}
	sched.SetLogger(slog.New(handler))

	var fiber *Fiber
	var renderCount atomic.Int32
	fiber = sched.CreateFiber(func() *vdom.VNode {
		renderCount.Add(1)
		// Re-dirty itself every render: dirty was already reset to
		// false before this runs, so MarkDirty succeeds again and
		// would re-enqueue forever without the recursion guard.
		sched.MarkDirty(fiber)
		return vdom.NewText("x")
	}, nil)
	fiber.SetName("Runaway")

	done := make(chan struct{})
	go func() {
		sched.MarkDirty(fiber)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("flush did not abort; recursion guard failed to break the self re-dirtying loop")
	}

	if renderCount.Load() != int32(recursionLimit) {
		t.Errorf("expected the guard to allow exactly recursionLimit renders before aborting, got %d", renderCount.Load())
	}

	rec, ok := handler.find("scheduler: recursion guard tripped, aborting flush")
	if !ok {
		t.Fatal("expected a recursion-guard diagnostic to be logged")
	}
	var gotComponent string
	rec.Attrs(func(a slog.Attr) bool {
		if a.Key == "component" {
			gotComponent = a.Value.String()
		}
		return true
	})
	if gotComponent != "Runaway" {
		t.Errorf("expected the diagnostic to name the offending component by its descriptor name, got %q", gotComponent)
	}
}

func TestScheduler_InvalidateJobRemovesUnmountedFiber(t *testing.T) {
	sched := NewScheduler()
	var renderCount atomic.Int32
	fiber := sched.CreateFiber(func() *vdom.VNode {
		renderCount.Add(1)
		return vdom.NewText("x")
	}, nil)

	sched.mu.Lock()
	sched.flushing = true // simulate "mid-flush" so enqueue doesn't drain immediately
	sched.mu.Unlock()

	sched.enqueuePre(&job{identity: fiber, id: fiber.id, fn: func() { sched.renderFiber(fiber) }})
	sched.InvalidateJob(fiber)

	sched.mu.Lock()
	sched.flushing = false
	sched.mu.Unlock()
	sched.flush()

	if renderCount.Load() != 0 {
		t.Errorf("expected invalidated job to never run, got %d renders", renderCount.Load())
	}
}

func TestScheduler_NextTickRunsAfterFlush(t *testing.T) {
	sched := NewScheduler()
	var order []string
	fiber := sched.CreateFiber(func() *vdom.VNode {
		// Called while the flush is running, so the tick is queued
		// behind it rather than run at once.
		sched.NextTick(func() { order = append(order, "tick") })
		order = append(order, "render")
		return vdom.NewText("x")
	}, nil)

	sched.MarkDirty(fiber)

	if len(order) != 2 || order[0] != "render" || order[1] != "tick" {
		t.Errorf("expected render before the queued tick fired, got %v", order)
	}
}

func TestScheduler_NextTickRunsImmediatelyWhenIdle(t *testing.T) {
	sched := NewScheduler()
	ran := false
	sched.NextTick(func() { ran = true })
	if !ran {
		t.Error("expected NextTick to run immediately when no flush is scheduled")
	}
}

func TestScheduler_RemoveFiber(t *testing.T) {
	sched := NewScheduler()

	fiber1 := sched.CreateFiber(func() *vdom.VNode { return nil }, nil)
	fiber2 := sched.CreateFiber(func() *vdom.VNode { return nil }, fiber1)

	if sched.FiberCount() != 2 {
		t.Errorf("expected 2 fibers, got %d", sched.FiberCount())
	}

	sched.RemoveFiber(fiber1)
	if sched.FiberCount() != 1 {
		t.Errorf("expected 1 fiber after removal, got %d", sched.FiberCount())
	}
	if sched.GetFiber(fiber1.ID()) != nil {
		t.Error("fiber1 should not be found after removal")
	}
	if sched.GetFiber(fiber2.ID()) == nil {
		t.Error("fiber2 should still exist")
	}
}

func TestFiber_UserData(t *testing.T) {
	sched := NewScheduler()
	fiber := sched.CreateFiber(func() *vdom.VNode { return nil }, nil)

	type customData struct{ value string }
	data := &customData{value: "test"}
	fiber.SetUserData(data)

	retrieved, ok := fiber.GetUserData().(*customData)
	if !ok {
		t.Fatal("user data type assertion failed")
	}
	if retrieved.value != "test" {
		t.Errorf("expected user data value 'test', got %q", retrieved.value)
	}
}

func TestScheduler_NilFiber(t *testing.T) {
	sched := NewScheduler()
	sched.MarkDirty(nil)
	sched.RemoveFiber(nil)
}

func TestScheduler_ConcurrentMarkDirty(t *testing.T) {
	sched := NewScheduler()
	var renderCount atomic.Int32
	fiber := sched.CreateFiber(func() *vdom.VNode {
		renderCount.Add(1)
		return vdom.NewText("concurrent")
	}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sched.MarkDirty(fiber)
		}()
	}
	wg.Wait()

	if renderCount.Load() == 0 {
		t.Error("fiber was not rendered despite being marked dirty")
	}
	t.Logf("fiber rendered %d times out of 100 dirty marks", renderCount.Load())
}

func BenchmarkScheduler_MarkDirty(b *testing.B) {
	sched := NewScheduler()
	fiber := sched.CreateFiber(func() *vdom.VNode {
		return vdom.NewText("bench")
	}, nil)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		sched.MarkDirty(fiber)
	}
}
