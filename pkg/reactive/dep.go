package reactive

import "sync"

// OpType classifies the mutation that produced a trigger, per §4.1.
type OpType uint8

const (
	OpAdd OpType = iota
	OpSet
	OpDelete
	OpClear
)

// Sentinel keys used for enumeration tracking. A Dep store's ordinary
// keys are whatever the wrapper type uses (a struct field name, a map
// key rendered to string, an integer index rendered to string); these
// four (HasKeyPrefix is joined to a key) are reserved and never collide
// with a real field/key because each starts with a NUL byte.
const (
	IterateKey       = "\x00iterate"
	MapKeyIterateKey = "\x00map-key-iterate"
	LengthKey        = "\x00length"
	HasKeyPrefix     = "\x00has:"
)

// Dep is the subscriber set for one (target, key) pair: a map from
// effect to the track-id it last saw. A Dep whose set becomes empty
// invokes onEmpty, mirroring "a cleanup callback invoked when the dep
// becomes empty."
//
// Rather than a single process-wide `target -> key -> Dep` table keyed
// on weak references (this module has no transparent proxies to hang
// such a table off), each reactive wrapper (State, Object,
// Collection) owns its own small store of Deps directly. This gets
// the same "targets may be collected" property for free: once nothing
// external references the wrapper, its Deps go with it, with no
// finalizer bookkeeping required.
type Dep struct {
	mu      sync.Mutex
	subs    map[*Effect]uint64
	owner   dirtyResolver // non-nil when this Dep belongs to a Computed
	onEmpty func()
}

func newDep(owner dirtyResolver) *Dep {
	return &Dep{subs: make(map[*Effect]uint64), owner: owner}
}

func (d *Dep) unsubscribe(e *Effect) {
	d.mu.Lock()
	delete(d.subs, e)
	empty := len(d.subs) == 0
	cleanup := d.onEmpty
	d.mu.Unlock()
	if empty && cleanup != nil {
		cleanup()
	}
}

// Track subscribes the currently-active effect (if any) to this dep.
func (d *Dep) Track() {
	d.track(currentEffect())
}

// Trigger notifies every still-valid subscriber at the given dirty
// level: "for each collected effect where its lookup track-id still
// equals its current track-id and its dirty-level is below the
// triggering level: bump dirty-level ... and enqueue its scheduler."
func (d *Dep) Trigger(level DirtyLevel) {
	bumpGlobalVersion()
	d.mu.Lock()
	snapshot := make([]*Effect, 0, len(d.subs))
	for e, tid := range d.subs {
		if tid == e.trackID {
			snapshot = append(snapshot, e)
		}
	}
	d.mu.Unlock()
	if l := traceLog(); l != nil {
		l.Debug("dep trigger", "level", level, "subscribers", len(snapshot))
	}
	for _, e := range snapshot {
		e.notify(level)
	}
}

// Store is a per-wrapper table of Deps keyed by property name/index,
// the "property-key -> Dep" half of the two-level index.
type Store struct {
	mu   sync.Mutex
	deps map[string]*Dep
}

func NewStore() *Store { return &Store{deps: make(map[string]*Dep)} }

// Dep returns (creating if necessary) the Dep for key.
func (s *Store) Dep(key string) *Dep { return s.depWithOwner(key, nil) }

func (s *Store) depWithOwner(key string, owner dirtyResolver) *Dep {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.deps[key]
	if !ok {
		d = newDep(owner)
		s.deps[key] = d
	}
	return d
}

// Track records a read of key against the currently active effect.
func (s *Store) Track(key string) {
	if !isTrackingEnabled() {
		return
	}
	s.Dep(key).Track()
}

// Trigger fires the dep for key plus whatever sentinel deps the
// operation implies, per the "on trigger, collect affected deps by
// key + operation" rules in §4.1.
func (s *Store) Trigger(key string, op OpType, isSequence, isMap bool) {
	if op == OpClear {
		s.mu.Lock()
		all := make([]*Dep, 0, len(s.deps))
		for _, d := range s.deps {
			all = append(all, d)
		}
		s.mu.Unlock()
		for _, d := range all {
			d.Trigger(Dirty)
		}
		return
	}

	s.Dep(key).Trigger(Dirty)

	switch op {
	case OpAdd:
		if isSequence {
			s.Dep(LengthKey).Trigger(Dirty)
		} else {
			s.Dep(IterateKey).Trigger(Dirty)
			if isMap {
				s.Dep(MapKeyIterateKey).Trigger(Dirty)
			}
		}
	case OpDelete:
		s.Dep(IterateKey).Trigger(Dirty)
		if isMap {
			s.Dep(MapKeyIterateKey).Trigger(Dirty)
		}
	case OpSet:
		if isMap {
			s.Dep(IterateKey).Trigger(Dirty)
		}
	}
}

// TriggerLength fires `length` plus every integer key >= newLen, for
// a sequence-length assignment.
func (s *Store) TriggerLength(newLen int, oldLen int) {
	s.Dep(LengthKey).Trigger(Dirty)
	for i := newLen; i < oldLen; i++ {
		s.Dep(indexKey(i)).Trigger(Dirty)
	}
}

func indexKey(i int) string {
	// Small, allocation-light integer-to-string without importing
	// strconv at every call site; sequences rarely exceed a few
	// thousand live deps at once.
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}
