package reactive

import (
	"fmt"
	"sync"
)

// Collection is the reactive wrapper for a Go slice/map raw value: the
// typed stand-in for JS's Array/Map/Set proxies. K is the key type
// (int for a sequence, comparable for a map); V is the element type.
// A sequence is backed by a slice (K is the int index) and a map by a
// plain map[K]V; each Collection uses only the one backing its kind,
// since Go maps have no defined iteration order and a sequence needs
// one.
type Collection[K comparable, V any] struct {
	mu    sync.Mutex
	store *Store

	isSequence bool
	isMap      bool

	// Sequence backing: seq holds the elements in index order.
	seq []V

	// Map backing.
	m map[K]V
}

// NewSequence wraps an existing slice for reactive index/length access.
func NewSequence[V any](initial []V) *Collection[int, V] {
	c := &Collection[int, V]{store: NewStore(), isSequence: true}
	c.seq = append(c.seq, initial...)
	return c
}

// NewMap wraps an existing map for reactive key access.
func NewMap[K comparable, V any](initial map[K]V) *Collection[K, V] {
	c := &Collection[K, V]{store: NewStore(), isMap: true, m: make(map[K]V, len(initial))}
	for k, v := range initial {
		c.m[k] = v
	}
	return c
}

func (c *Collection[K, V]) key(k K) string {
	if c.isSequence {
		return indexKey(any(k).(int))
	}
	return anyKeyToString(k)
}

func anyKeyToString(k any) string {
	if s, ok := k.(string); ok {
		return s
	}
	if i, ok := k.(int); ok {
		return indexKey(i)
	}
	return fmt.Sprintf("%v", k)
}

// Len returns the element count, tracking length.
func (c *Collection[K, V]) Len() int {
	c.store.Track(LengthKey)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.isSequence {
		return len(c.seq)
	}
	return len(c.m)
}

// Get reads one element, tracking its key.
func (c *Collection[K, V]) Get(k K) (V, bool) {
	c.store.Track(c.key(k))
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.isSequence {
		i := any(k).(int)
		var zero V
		if i < 0 || i >= len(c.seq) {
			return zero, false
		}
		return c.seq[i], true
	}
	v, ok := c.m[k]
	return v, ok
}

// Has tracks membership for k.
func (c *Collection[K, V]) Has(k K) bool {
	c.store.Track(HasKeyPrefix + c.key(k))
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.isSequence {
		i := any(k).(int)
		return i >= 0 && i < len(c.seq)
	}
	_, ok := c.m[k]
	return ok
}

// Set writes one element, classifying the write as ADD (key not
// previously present) or SET for Store.Trigger. On a map both kinds
// re-run iteration subscribers, since iteration also reads values.
func (c *Collection[K, V]) Set(k K, v V) {
	c.mu.Lock()
	var op OpType
	if c.isSequence {
		i := any(k).(int)
		if i >= 0 && i < len(c.seq) {
			old := c.seq[i]
			if valueEqualAny(old, v) {
				c.mu.Unlock()
				return
			}
			op = OpSet
			c.seq[i] = v
		} else if i == len(c.seq) {
			op = OpAdd
			c.seq = append(c.seq, v)
		} else {
			c.mu.Unlock()
			return
		}
	} else {
		old, existed := c.m[k]
		if existed && valueEqualAny(old, v) {
			c.mu.Unlock()
			return
		}
		if existed {
			op = OpSet
		} else {
			op = OpAdd
		}
		c.m[k] = v
	}
	c.mu.Unlock()
	c.store.Trigger(c.key(k), op, c.isSequence, c.isMap)
}

// Delete removes k, if present.
func (c *Collection[K, V]) Delete(k K) {
	c.mu.Lock()
	if c.isSequence {
		i := any(k).(int)
		if i < 0 || i >= len(c.seq) {
			c.mu.Unlock()
			return
		}
		c.seq = append(c.seq[:i], c.seq[i+1:]...)
	} else {
		if _, ok := c.m[k]; !ok {
			c.mu.Unlock()
			return
		}
		delete(c.m, k)
	}
	c.mu.Unlock()
	c.store.Trigger(c.key(k), OpDelete, c.isSequence, c.isMap)
}

// Clear empties the collection, firing every live dep at once.
func (c *Collection[K, V]) Clear() {
	c.mu.Lock()
	if c.isSequence {
		c.seq = c.seq[:0]
	} else {
		c.m = make(map[K]V)
	}
	c.mu.Unlock()
	c.store.Trigger("", OpClear, c.isSequence, c.isMap)
}

// Snapshot returns a non-reactive copy of the sequence contents for
// iteration without holding the lock across caller code.
func (c *Collection[K, V]) Snapshot() []V {
	c.store.Track(IterateKey)
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.isSequence {
		out := make([]V, 0, len(c.m))
		for _, v := range c.m {
			out = append(out, v)
		}
		return out
	}
	out := make([]V, len(c.seq))
	copy(out, c.seq)
	return out
}

// mutate runs fn with tracking paused so a sequence-mutation method
// that internally reads its own length/elements does not subscribe
// the surrounding effect to itself, per "tracking is suspended for
// [sequence-mutation methods'] duration to prevent self-triggering
// cycles."
func (c *Collection[K, V]) mutate(fn func()) {
	restore := PauseTracking()
	defer restore()
	fn()
}

// Push appends values to a sequence collection and triggers length +
// one ADD per appended element.
func (c *Collection[K, V]) Push(values ...V) int {
	var newLen int
	c.mutate(func() {
		c.mu.Lock()
		start := len(c.seq)
		c.seq = append(c.seq, values...)
		newLen = len(c.seq)
		c.mu.Unlock()
		for i := range values {
			c.store.Trigger(indexKey(start+i), OpAdd, true, false)
		}
	})
	return newLen
}

// Pop removes and returns the last element.
func (c *Collection[K, V]) Pop() (V, bool) {
	var v V
	var ok bool
	c.mutate(func() {
		c.mu.Lock()
		n := len(c.seq)
		if n == 0 {
			c.mu.Unlock()
			return
		}
		v = c.seq[n-1]
		c.seq = c.seq[:n-1]
		ok = true
		c.mu.Unlock()
		c.store.TriggerLength(n-1, n)
	})
	return v, ok
}

// Shift removes and returns the first element, shifting the rest down.
func (c *Collection[K, V]) Shift() (V, bool) {
	var v V
	var ok bool
	c.mutate(func() {
		c.mu.Lock()
		if len(c.seq) == 0 {
			c.mu.Unlock()
			return
		}
		v = c.seq[0]
		c.seq = c.seq[1:]
		ok = true
		n := len(c.seq)
		c.mu.Unlock()
		c.store.Trigger(IterateKey, OpDelete, true, false)
		c.store.TriggerLength(n, n+1)
	})
	return v, ok
}

// Unshift prepends values, shifting existing elements up.
func (c *Collection[K, V]) Unshift(values ...V) int {
	var newLen int
	c.mutate(func() {
		c.mu.Lock()
		c.seq = append(append([]V{}, values...), c.seq...)
		newLen = len(c.seq)
		c.mu.Unlock()
		c.store.Trigger(IterateKey, OpAdd, true, false)
		c.store.Dep(LengthKey).Trigger(Dirty)
	})
	return newLen
}

// Splice removes count elements starting at start and inserts insert
// in their place, JS-Array.splice style.
func (c *Collection[K, V]) Splice(start, count int, insert ...V) []V {
	var removed []V
	c.mutate(func() {
		c.mu.Lock()
		if start < 0 {
			start = 0
		}
		if start > len(c.seq) {
			start = len(c.seq)
		}
		end := start + count
		if end > len(c.seq) {
			end = len(c.seq)
		}
		removed = append(removed, c.seq[start:end]...)
		tail := append([]V{}, c.seq[end:]...)
		c.seq = append(c.seq[:start], append(append([]V{}, insert...), tail...)...)
		c.mu.Unlock()
		if len(removed) > 0 || len(insert) > 0 {
			c.store.Trigger(IterateKey, OpSet, true, false)
			c.store.Dep(LengthKey).Trigger(Dirty)
		}
	})
	return removed
}

// IndexOf returns the index of the first element equal to v under
// valueEqualAny, or -1. Tracks iteration since the result depends on
// every element up to the match.
func (c *Collection[K, V]) IndexOf(v V) int {
	c.store.Track(IterateKey)
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, e := range c.seq {
		if valueEqualAny(e, v) {
			return i
		}
	}
	return -1
}

// Includes reports whether v is present.
func (c *Collection[K, V]) Includes(v V) bool { return c.IndexOf(v) >= 0 }

// deepTrack subscribes the active effect to every element, recursing
// into nested reactive wrappers. Used by Watch's deep option.
func (c *Collection[K, V]) deepTrack() {
	for _, v := range c.Snapshot() {
		if nested, ok := any(v).(interface{ deepTrack() }); ok {
			nested.deepTrack()
		}
	}
}

// valueEqualAny is valueEqual's untyped counterpart for Collection,
// whose element type V isn't constrained to comparable (a sequence of
// slices or funcs is legal). Falls back to false for types that would
// panic on ==.
func valueEqualAny(a, b any) (eq bool) {
	af, aok := a.(float64)
	bf, bok := b.(float64)
	if aok && bok {
		if af != af && bf != bf {
			return true
		}
		return af == bf
	}
	defer func() {
		if recover() != nil {
			eq = false
		}
	}()
	return a == b
}
