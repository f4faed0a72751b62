package reactive

import "sync"

// batch implements the "schedule-pause stack" from §4.1: while active,
// scheduler callbacks that would otherwise fire immediately are
// deferred and deduplicated by effect identity, then flushed once the
// outermost batch unwinds.
var (
	batchMu      sync.Mutex
	batchDepth   int
	batchPending map[*Effect]struct{}
)

func batchActive() bool {
	batchMu.Lock()
	defer batchMu.Unlock()
	return batchDepth > 0
}

// deferOrRun is called by Effect.notify in place of calling
// e.scheduler() directly.
func deferOrRun(e *Effect) {
	batchMu.Lock()
	if batchDepth > 0 {
		if batchPending == nil {
			batchPending = make(map[*Effect]struct{})
		}
		batchPending[e] = struct{}{}
		batchMu.Unlock()
		return
	}
	batchMu.Unlock()
	e.scheduler()
}

// deferOrRunEffect is deferOrRun's counterpart for a plain effect with
// no attached scheduler: such an effect is its own scheduler and
// re-runs (through the tri-state resolver) directly, still subject to
// batching and dedup like any other subscriber.
func deferOrRunEffect(e *Effect) {
	batchMu.Lock()
	if batchDepth > 0 {
		if batchPending == nil {
			batchPending = make(map[*Effect]struct{})
		}
		batchPending[e] = struct{}{}
		batchMu.Unlock()
		return
	}
	batchMu.Unlock()
	e.MaybeRun()
}

// RunBatch executes fn with scheduler dispatch deferred until fn (and
// any nested RunBatch it starts) returns, so multiple writes in one
// synchronous block coalesce into a single flush per affected effect.
func RunBatch(fn func()) {
	batchMu.Lock()
	batchDepth++
	batchMu.Unlock()

	defer func() {
		batchMu.Lock()
		batchDepth--
		var pending []*Effect
		if batchDepth == 0 && len(batchPending) > 0 {
			pending = make([]*Effect, 0, len(batchPending))
			for e := range batchPending {
				pending = append(pending, e)
			}
			batchPending = nil
		}
		batchMu.Unlock()
		for _, e := range pending {
			if e.scheduler != nil {
				e.scheduler()
			} else {
				e.MaybeRun()
			}
		}
	}()

	fn()
}
