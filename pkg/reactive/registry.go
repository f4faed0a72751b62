package reactive

import "sync"

// Variant selects one of the four proxy flavors the registry keeps
// separate, per "registry: mapping from raw object to its reactive
// wrapper (separately for mutable/readonly × deep/shallow)".
type Variant uint8

const (
	VariantMutableDeep Variant = iota
	VariantMutableShallow
	VariantReadonlyDeep
	VariantReadonlyShallow
)

type registry struct {
	mu    sync.Mutex
	byRaw [4]map[any]any // raw pointer -> wrapper, one map per Variant
	raws  map[any]any    // wrapper -> raw pointer, for ToRaw/Raw()
}

var globalRegistry = &registry{
	byRaw: [4]map[any]any{
		make(map[any]any), make(map[any]any), make(map[any]any), make(map[any]any),
	},
	raws: make(map[any]any),
}

// lookupOrStore returns the existing wrapper for (raw, variant) if
// present, else stores and returns newWrapper. This is what makes
// `proxy(proxy(x)) === proxy(x)` and `proxy(x) === proxy(x)` hold: the
// second call for the same raw pointer and variant returns the first
// call's wrapper instead of building a new one.
func (r *registry) lookupOrStore(raw any, variant Variant, newWrapper func() any) any {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.byRaw[variant][raw]; ok {
		return existing
	}
	w := newWrapper()
	r.byRaw[variant][raw] = w
	r.raws[w] = raw
	return w
}

// rawOf returns the underlying raw value a wrapper was built from, or
// (nil, false) if w isn't a registered wrapper (i.e. it already is raw).
func (r *registry) rawOf(w any) (raw any, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	// An unhashable value (a slice, a map) can never be a wrapper key;
	// the lookup panics on it, so report it as not a wrapper.
	defer func() {
		if recover() != nil {
			raw, ok = nil, false
		}
	}()
	raw, ok = r.raws[w]
	return raw, ok
}
