package reactive

import "testing"

func TestWatch_FiresOnChangeWithOldAndNew(t *testing.T) {
	count := NewState(1)
	var gotNew, gotOld int
	calls := 0

	stop := Watch(func() int { return count.Get() }, func(newVal, oldVal int, _ OnInvalidateFunc) {
		calls++
		gotNew, gotOld = newVal, oldVal
	}, WatchOptions{Flush: FlushSync})
	defer stop()

	if calls != 0 {
		t.Fatalf("expected no call before Immediate and before any change, got %d", calls)
	}

	count.Set(5)
	if calls != 1 || gotNew != 5 || gotOld != 1 {
		t.Fatalf("expected 1 call with new=5 old=1, got calls=%d new=%d old=%d", calls, gotNew, gotOld)
	}
}

func TestWatch_Immediate(t *testing.T) {
	count := NewState(9)
	calls := 0
	stop := Watch(func() int { return count.Get() }, func(newVal, oldVal int, _ OnInvalidateFunc) {
		calls++
	}, WatchOptions{Flush: FlushSync, Immediate: true})
	defer stop()

	if calls != 1 {
		t.Errorf("expected 1 immediate call, got %d", calls)
	}
}

func TestWatch_StopPreventsFurtherCalls(t *testing.T) {
	count := NewState(1)
	calls := 0
	stop := Watch(func() int { return count.Get() }, func(newVal, oldVal int, _ OnInvalidateFunc) {
		calls++
	}, WatchOptions{Flush: FlushSync})

	count.Set(2)
	stop()
	count.Set(3)

	if calls != 1 {
		t.Errorf("expected exactly 1 call before stop, got %d", calls)
	}
}

func TestWatch_OnInvalidateRunsBeforeNextCall(t *testing.T) {
	count := NewState(1)
	var invalidated bool
	stop := Watch(func() int { return count.Get() }, func(newVal, oldVal int, onInvalidate OnInvalidateFunc) {
		onInvalidate(func() { invalidated = true })
	}, WatchOptions{Flush: FlushSync})
	defer stop()

	count.Set(2)
	if invalidated {
		t.Fatalf("cleanup must not run until the callback is about to be called again")
	}
	count.Set(3)
	if !invalidated {
		t.Errorf("expected the first call's cleanup to run before the second call")
	}
}

func TestWatchEffect_ReRunsOnDependencyChange(t *testing.T) {
	count := NewState(1)
	runs := 0
	var seen int
	stop := WatchEffect(func(_ OnInvalidateFunc) {
		runs++
		seen = count.Get()
	}, WatchOptions{Flush: FlushSync})
	defer stop()

	if runs != 1 || seen != 1 {
		t.Fatalf("expected 1 initial run seeing 1, got runs=%d seen=%d", runs, seen)
	}

	count.Set(2)
	if runs != 2 || seen != 2 {
		t.Errorf("expected re-run seeing 2, got runs=%d seen=%d", runs, seen)
	}
}
