package vdom

import "sync"

// Instance is a mounted component's bookkeeping: everything the
// reconciler needs about one component that isn't part of the VNode
// tree itself. VNode <-> instance and parent <-> child instance both
// form cycles in the mount tree, so instances live in an Arena indexed
// by a stable id and everything that would otherwise be a pointer back
// into the cycle is an InstanceID instead.
type Instance struct {
	ID         uint64
	ParentID   uint64
	Descriptor *ComponentDescriptor
	Props      Props
	Render     RenderFunc
	LastVNode  *VNode

	KeepAlive bool

	mu               sync.Mutex
	mountedHooks     []func()
	unmountedHooks   []func()
	activatedHooks   []func()
	deactivatedHooks []func()
}

// Arena owns every live component instance, keyed by the stable id
// stored in VNode.InstanceID. It never hands out a pointer that would
// let two instances hold direct references to each other; callers
// always go back through the arena by id.
type Arena struct {
	mu        sync.Mutex
	nextID    uint64
	instances map[uint64]*Instance
}

func NewArena() *Arena {
	return &Arena{instances: make(map[uint64]*Instance)}
}

// New allocates a fresh instance and returns it; its ID is ready to be
// stashed on the mounting VNode's InstanceID field.
func (a *Arena) New(desc *ComponentDescriptor, props Props, parentID uint64) *Instance {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nextID++
	inst := &Instance{ID: a.nextID, ParentID: parentID, Descriptor: desc, Props: props}
	a.instances[inst.ID] = inst
	return inst
}

func (a *Arena) Get(id uint64) (*Instance, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	inst, ok := a.instances[id]
	return inst, ok
}

// Remove drops an instance from the arena, running its unmounted
// hooks first. A KeepAlive-cached instance should never reach this;
// the cache holds it live in a detached state instead.
func (a *Arena) Remove(id uint64) {
	a.mu.Lock()
	inst, ok := a.instances[id]
	if ok {
		delete(a.instances, id)
	}
	a.mu.Unlock()
	if ok {
		inst.runUnmountedHooks()
	}
}

func (a *Arena) Children(parentID uint64) []*Instance {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []*Instance
	for _, inst := range a.instances {
		if inst.ParentID == parentID {
			out = append(out, inst)
		}
	}
	return out
}

func (i *Instance) OnMounted(fn func())     { i.mu.Lock(); i.mountedHooks = append(i.mountedHooks, fn); i.mu.Unlock() }
func (i *Instance) OnUnmounted(fn func())   { i.mu.Lock(); i.unmountedHooks = append(i.unmountedHooks, fn); i.mu.Unlock() }
func (i *Instance) OnActivated(fn func())   { i.mu.Lock(); i.activatedHooks = append(i.activatedHooks, fn); i.mu.Unlock() }
func (i *Instance) OnDeactivated(fn func()) { i.mu.Lock(); i.deactivatedHooks = append(i.deactivatedHooks, fn); i.mu.Unlock() }

func (i *Instance) runMountedHooks()     { i.runHooks(i.mountedHooks) }
func (i *Instance) runUnmountedHooks()   { i.runHooks(i.unmountedHooks) }
func (i *Instance) runActivatedHooks()   { i.runHooks(i.activatedHooks) }
func (i *Instance) runDeactivatedHooks() { i.runHooks(i.deactivatedHooks) }

func (i *Instance) runHooks(hooks []func()) {
	i.mu.Lock()
	snapshot := append([]func(){}, hooks...)
	i.mu.Unlock()
	for _, h := range snapshot {
		h()
	}
}

// RunMountedHooks flushes an instance's mounted-hook queue; exported
// so the scheduler's post-flush drain can call it without importing
// anything beyond this package.
func (i *Instance) RunMountedHooks() { i.runMountedHooks() }
