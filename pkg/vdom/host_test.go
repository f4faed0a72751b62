package vdom

import "testing"

// fakeHost is an in-memory Host used only to verify ApplyPatches drives
// the contract correctly; it has no notion of a real DOM.
type fakeHost struct {
	nextID   int
	children map[int][]int
	texts    map[int]string
	props    map[int]map[string]any
	removed  map[int]bool
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		children: map[int][]int{},
		texts:    map[int]string{},
		props:    map[int]map[string]any{},
		removed:  map[int]bool{},
	}
}

func (h *fakeHost) alloc() int {
	h.nextID++
	return h.nextID
}

func (h *fakeHost) CreateElement(tag, namespace string, props Props) any {
	id := h.alloc()
	h.props[id] = map[string]any{}
	return id
}
func (h *fakeHost) CreateText(text string) any {
	id := h.alloc()
	h.texts[id] = text
	return id
}
func (h *fakeHost) CreateComment(text string) any {
	id := h.alloc()
	h.texts[id] = text
	return id
}
func (h *fakeHost) SetText(node any, text string)        { h.texts[node.(int)] = text }
func (h *fakeHost) SetElementText(node any, text string)  { h.texts[node.(int)] = text }
func (h *fakeHost) Insert(child, parent, anchor any) {
	if parent == nil {
		return
	}
	p := parent.(int)
	h.children[p] = append(h.children[p], child.(int))
}
func (h *fakeHost) Remove(node any) { h.removed[node.(int)] = true }
func (h *fakeHost) ParentNode(node any) any     { return nil }
func (h *fakeHost) NextSibling(node any) any    { return nil }
func (h *fakeHost) QuerySelector(selector string) any { return nil }
func (h *fakeHost) PatchProp(el any, key string, prevValue, nextValue any, namespace string) {
	id := el.(int)
	if nextValue == nil {
		delete(h.props[id], key)
		return
	}
	h.props[id][key] = nextValue
}

func TestApplyPatches_MountsElementWithChildAndProps(t *testing.T) {
	host := newFakeHost()
	tree := NewElement("div", Props{"class": "card"}, NewText("hi"))

	patches := Diff(nil, tree)
	nodes := map[uint32]any{}
	ApplyPatches(host, patches, nodes, "")

	if len(nodes) != 1 {
		t.Fatalf("expected exactly one top-level host handle recorded, got %d", len(nodes))
	}
	var rootID int
	for _, v := range nodes {
		rootID = v.(int)
	}
	if host.props[rootID]["class"] != "card" {
		t.Errorf("expected class prop set on mount, got %v", host.props[rootID])
	}
	if len(host.children[rootID]) != 1 {
		t.Errorf("expected one child mounted under the root, got %v", host.children[rootID])
	}
}

func TestApplyPatches_RemoveDeletesNode(t *testing.T) {
	host := newFakeHost()
	prev := NewText("gone")
	nodes := map[uint32]any{}
	ApplyPatches(host, Diff(nil, prev), nodes, "")

	var id uint32
	for k := range nodes {
		id = k
	}
	handle := nodes[id]

	ApplyPatches(host, Diff(prev, nil), nodes, "")
	if !host.removed[handle.(int)] {
		t.Error("expected the host handle to be removed")
	}
	if _, ok := nodes[id]; ok {
		t.Error("expected the node map entry to be cleared on removal")
	}
}
