package vdom

// Host is the renderer contract the reconciler calls against and a
// host environment implements: everything the diff/patch pipeline
// needs to turn a Patch stream into actual mutations of whatever a
// given host's "element" concept is (a DOM node, a terminal cell, a
// native widget...). The core never inspects a host-element handle;
// it only ever passes one back to the Host that produced it.
type Host interface {
	CreateElement(tag, namespace string, props Props) any
	CreateText(text string) any
	CreateComment(text string) any

	SetText(node any, text string)
	SetElementText(node any, text string)

	// Insert places child into parent, before anchor if anchor is
	// non-nil, or appended if anchor is nil.
	Insert(child, parent, anchor any)
	Remove(node any)

	ParentNode(node any) any
	NextSibling(node any) any
	QuerySelector(selector string) any

	// PatchProp applies a single property change. The host decides
	// whether key is an attribute, a DOM property, or an event
	// listener registration; prevValue is nil on initial mount.
	PatchProp(el any, key string, prevValue, nextValue any, namespace string)
}

// ApplyPatches replays a patch stream produced by Diff/DiffBlock
// against a live host tree. nodes maps a Patch's NodeID to the host
// handle it was assigned on a prior apply pass (mount patches populate
// it as they go); callers reuse the same map across successive diffs
// against the same tree so IDs stay resolvable release over release.
func ApplyPatches(host Host, patches []Patch, nodes map[uint32]any, namespace string) {
	for _, p := range patches {
		applyPatch(host, p, nodes, namespace)
	}
}

func applyPatch(host Host, p Patch, nodes map[uint32]any, namespace string) {
	switch p.Op {
	case OpInsertNode:
		if p.Node == nil {
			return
		}
		handle := mountHostNode(host, p.Node, nodes, namespace)
		nodes[p.NodeID] = handle
		var anchor any
		if p.BeforeID != 0 {
			anchor = nodes[p.BeforeID]
		}
		var parent any
		if p.ParentID != 0 {
			parent = nodes[p.ParentID]
		}
		host.Insert(handle, parent, anchor)

	case OpRemoveNode:
		if node, ok := nodes[p.NodeID]; ok {
			host.Remove(node)
			delete(nodes, p.NodeID)
		}

	case OpReplaceText:
		if node, ok := nodes[p.NodeID]; ok {
			host.SetText(node, p.Value)
		}

	case OpSetAttribute:
		if node, ok := nodes[p.NodeID]; ok {
			host.PatchProp(node, p.Key, nil, p.Value, namespace)
		}

	case OpRemoveAttribute:
		if node, ok := nodes[p.NodeID]; ok {
			host.PatchProp(node, p.Key, nil, nil, namespace)
		}

	case OpMoveNode:
		if node, ok := nodes[p.NodeID]; ok {
			var anchor any
			if p.BeforeID != 0 {
				anchor = nodes[p.BeforeID]
			}
			var parent any
			if p.ParentID != 0 {
				parent = nodes[p.ParentID]
			}
			host.Insert(node, parent, anchor)
		}

	case OpUpdateEvents:
		// Event bit changes are surfaced through PatchProp at the
		// per-property level in this implementation; a bitmask-only
		// patch carries no host action of its own.
	}
}

// mountHostNode creates the host handle for a freshly inserted subtree,
// creating its descendants' handles as it goes. It writes nothing into
// nodes: the caller records the returned top-level handle, and nested
// nodes get no entry of their own.
func mountHostNode(host Host, v *VNode, nodes map[uint32]any, namespace string) any {
	var handle any
	switch v.Kind {
	case KindText:
		handle = host.CreateText(v.Text)
	case KindComment:
		handle = host.CreateComment(v.Text)
	case KindElement:
		ns := namespace
		switch v.Namespace {
		case "svg":
			ns = "svg"
		case "math":
			ns = "math"
		case "html":
			// Explicit re-entry from an SVG ancestor (foreignObject,
			// desc, title), or simply a compiled element that was never
			// under one; either way the host's default namespace.
			ns = ""
		default:
			// No compiler-resolved namespace (a hand-built VNode not
			// generated through the template pipeline): fall back to
			// the tag-name heuristic these two entry points need.
			if v.Tag == "svg" {
				ns = "svg"
			} else if v.Tag == "math" {
				ns = "math"
			}
		}
		handle = host.CreateElement(v.Tag, ns, v.Props)
		for key, val := range v.Props {
			if key == "key" || key == "ref" {
				continue
			}
			host.PatchProp(handle, key, nil, val, ns)
		}
		for i := range v.Kids {
			childHandle := mountHostNode(host, &v.Kids[i], nodes, ns)
			host.Insert(childHandle, handle, nil)
		}
	case KindFragment, KindComponent:
		// No host wrapper: children are inserted directly into the
		// caller-supplied parent by the OpInsertNode patches that
		// follow this one in the stream.
		for i := range v.Kids {
			mountHostNode(host, &v.Kids[i], nodes, namespace)
		}
	case KindPortal:
		target := host.QuerySelector(v.PortalTarget)
		handle = target
		for i := range v.Kids {
			childHandle := mountHostNode(host, &v.Kids[i], nodes, namespace)
			host.Insert(childHandle, target, nil)
		}
	}
	return handle
}
