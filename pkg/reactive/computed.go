package reactive

import "sync"

// Computed is a memoized derived value with tri-state dirtiness: a
// direct write to one of its dependencies marks it Dirty, but a write
// that only reaches it through another Computed marks it merely
// MaybeDirty until something actually reads it.
type Computed[T comparable] struct {
	mu      sync.Mutex
	getter  func() T
	value   T
	hasRun  bool
	dirty   DirtyLevel
	checked uint64 // globalVersion last confirmed against

	dep    *Dep // this computed's own subscribers
	effect *Effect
}

// NewComputed builds a computed value from getter. The getter runs
// lazily, on first Get.
func NewComputed[T comparable](getter func() T) *Computed[T] {
	c := &Computed[T]{getter: getter, dirty: Dirty}
	c.dep = newDep(c)
	c.effect = &Effect{active: true}
	c.effect.fn = func() { c.value = c.getter() }
	// The scheduler fires whenever the internal effect's dirty level
	// rises: Dirty for a direct write to one of its dependencies,
	// MaybeDirty for a change reaching it through another Computed.
	// The computed adopts that level, and per §4.1 its own subscribers
	// are demoted only to MaybeDirty.
	c.effect.scheduler = func() {
		c.mu.Lock()
		if c.effect.dirty > c.dirty {
			c.dirty = c.effect.dirty
		}
		c.mu.Unlock()
		c.dep.Trigger(MaybeDirty)
	}
	return c
}

// resolveDirty implements dirtyResolver: recompute if genuinely stale,
// and report whether the recomputed value actually differs from what
// was previously observed so a downstream MaybeDirty effect can settle
// without re-running its own getter.
func (c *Computed[T]) resolveDirty() DirtyLevel {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.hasRun {
		return Dirty
	}
	if c.dirty == NotDirty {
		return NotDirty
	}
	if c.checked == globalVersion {
		c.dirty = NotDirty
		return NotDirty
	}
	if c.dirty == MaybeDirty && c.effect.resolveDirty() == NotDirty {
		// No upstream computed actually changed: keep the cached value.
		c.checked = globalVersion
		c.dirty = NotDirty
		return NotDirty
	}
	old := c.value
	c.recomputeLocked()
	c.checked = globalVersion
	if valueEqual(old, c.value) {
		c.dirty = NotDirty
		return NotDirty
	}
	c.dirty = NotDirty
	return Dirty
}

func (c *Computed[T]) recomputeLocked() {
	c.effect.Run()
	c.hasRun = true
}

// Get returns the current value, recomputing if stale and tracking
// the active effect against this computed's own dep.
func (c *Computed[T]) Get() T {
	c.dep.Track()

	c.mu.Lock()
	if !c.hasRun {
		c.recomputeLocked()
		c.checked = globalVersion
		c.dirty = NotDirty
	} else if c.dirty != NotDirty {
		c.mu.Unlock()
		c.resolveDirty()
		c.mu.Lock()
	}
	v := c.value
	c.mu.Unlock()
	return v
}
