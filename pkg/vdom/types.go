package vdom

// VKind represents the type-tag half of a VNode: a host-tag element, a
// text/comment leaf, a fragment, a portal, or a component descriptor.
type VKind uint8

const (
	KindElement VKind = iota
	KindText
	KindComment
	KindFragment
	KindPortal
	KindComponent
)

// PatchFlag is the compiler-to-reconciler wire contract: bit positions
// are stable across a compilation and a reconciliation pass, so a
// render function compiled once can be diffed by any reconciler
// version that agrees on these values.
type PatchFlag int32

const (
	PFText           PatchFlag = 1 << 0
	PFClass          PatchFlag = 1 << 1
	PFStyle          PatchFlag = 1 << 2
	PFProps          PatchFlag = 1 << 3
	PFFullProps      PatchFlag = 1 << 4
	PFNeedHydration  PatchFlag = 1 << 5
	PFStableFragment PatchFlag = 1 << 6
	PFKeyedFragment  PatchFlag = 1 << 7
	PFUnkeyedFragment PatchFlag = 1 << 8
	PFNeedPatch      PatchFlag = 1 << 9
	PFDynamicSlots   PatchFlag = 1 << 10
	PFDevRootFragment PatchFlag = 1 << 11
	// PFHoisted and PFBail are sentinels, not bits: a hoisted subtree
	// skips diffing entirely, and BAIL forces a full children diff
	// with no patch-flag shortcuts (whole-tree fallback).
	PFHoisted PatchFlag = -1
	PFBail    PatchFlag = -2
)

// Has reports whether every bit in want is set in f. The
// PFHoisted/PFBail sentinels are exact-match states rather than bit
// flags: when either side is one, Has is true only if f == want.
func (f PatchFlag) Has(want PatchFlag) bool {
	if f < 0 || want < 0 {
		return f == want
	}
	return f&want == want
}

// ShapeFlag classifies what a VNode's children field holds and, for a
// component VNode, what kind of component it is.
type ShapeFlag int32

const (
	SFElement                ShapeFlag = 1 << 0
	SFFunctionalComponent    ShapeFlag = 1 << 1
	SFStatefulComponent      ShapeFlag = 1 << 2
	SFTextChildren           ShapeFlag = 1 << 3
	SFArrayChildren          ShapeFlag = 1 << 4
	SFSlotsChildren          ShapeFlag = 1 << 5
	SFTeleport               ShapeFlag = 1 << 6
	SFSuspense               ShapeFlag = 1 << 7
	SFComponentShouldKeepAlive ShapeFlag = 1 << 8
	SFComponentKeptAlive     ShapeFlag = 1 << 9
)

func (f ShapeFlag) Has(want ShapeFlag) bool { return f&want == want }

// VNodeFlags carries the coarse dev-facing hints the teacher's own
// diff.go already switches on (FlagHasEvents, FlagHasKey, ...); kept
// alongside the wire-contract PatchFlag/ShapeFlag bitmasks above
// rather than folded into them, since patch-flags describe *what
// changed* while these describe *what this node structurally is*.
type VNodeFlags uint8

const (
	FlagStatic VNodeFlags = 1 << iota
	FlagHasKey
	FlagHasRef
	FlagHasEvents
	FlagDirty
)

// Props represents the properties/attributes of a VNode.
type Props map[string]any

// ComponentDescriptor identifies a component VNode's implementation:
// its render/setup function and a display name used in error
// diagnostics ("recursive-update overflow ... identifying the
// offending component by descriptor name").
type ComponentDescriptor struct {
	Name  string
	Setup func(props Props) RenderFunc
}

// RenderFunc is a mounted component instance's render closure,
// capturing whatever reactive state its setup function produced.
type RenderFunc func() *VNode

// VNode is a virtual DOM node: a type-tag, props, children, and the
// bitmask/back-reference bookkeeping the reconciler needs to skip
// static work and support KeepAlive. A mounted VNode must never be
// shared between two mounted positions; clone before reusing a
// hoisted or cached tree at a second position.
type VNode struct {
	Kind VKind

	// Tag is the host element tag name; only set when Kind == KindElement.
	Tag string

	// Namespace is the compiler-resolved namespace for a KindElement
	// VNode: "" means "no explicit resolution, infer from the tag name
	// the way a hand-built tree always has" (mountHostNode's legacy
	// svg/math tag check), while "svg", "math", and "html" are explicit
	// results of the parser's namespace-inheritance rule (§4.3) baked
	// in at compile time — "html" specifically distinguishes a
	// resolved-back-to-HTML override (foreignObject/desc/title under an
	// SVG ancestor) from "unresolved".
	Namespace string

	// Component is the descriptor for a KindComponent VNode.
	Component *ComponentDescriptor

	Props Props
	Kids  []VNode

	// DynamicChildren is the block-scoped flat list of descendant
	// VNodes with dynamic content, populated by the compiler for a
	// block root; the block fast path diffs this instead of Kids when
	// both the previous and next VNode are blocks of equal length.
	DynamicChildren []*VNode

	// DynamicProps lists prop names the compiler knows can change,
	// consulted when PatchFlags.Has(PFProps) instead of a full key scan.
	DynamicProps []string

	Key string

	Flags       VNodeFlags
	PatchFlags  PatchFlag
	ShapeFlags  ShapeFlag

	Text         string
	PortalTarget string

	// InstanceID is a stable identifier for the mounted component
	// instance this VNode belongs to, once mounted; kept as an id
	// rather than a direct pointer so a KeepAlive cache entry and its
	// live counterpart can each hold a reference without forming a
	// reference cycle the garbage collector can't break on its own
	// (Go's GC handles cycles fine, but a stable id also survives
	// serialization to a host boundary, which a pointer wouldn't).
	InstanceID uint64

	// HostRef is the host-element handle populated on first mount; nil
	// until then, per the "mounted VNode has a non-null host-element
	// reference" invariant.
	HostRef any
}

// NewElement creates a new element VNode with flags derived from props.
func NewElement(tag string, props Props, children ...*VNode) *VNode {
	flags := VNodeFlags(0)
	shape := SFElement

	if props != nil {
		for k := range props {
			if len(k) > 2 && k[0] == 'o' && k[1] == 'n' {
				flags |= FlagHasEvents
				break
			}
		}
		if _, hasKey := props["key"]; hasKey {
			flags |= FlagHasKey
		}
		if _, hasRef := props["ref"]; hasRef {
			flags |= FlagHasRef
		}
	}

	kids := make([]VNode, 0, len(children))
	for _, child := range children {
		if child != nil {
			kids = append(kids, *child)
		}
	}
	if len(kids) == 1 && kids[0].Kind == KindText {
		shape |= SFTextChildren
	} else if len(kids) > 0 {
		shape |= SFArrayChildren
	}

	return &VNode{
		Kind:       KindElement,
		Tag:        tag,
		Props:      props,
		Kids:       kids,
		Flags:      flags,
		ShapeFlags: shape,
	}
}

// WithNamespace sets v's resolved namespace and returns v, for
// chaining onto a NewElement/CreateVNode/CreateBlock call in generated
// code without widening those constructors' signatures.
func (v *VNode) WithNamespace(ns string) *VNode {
	v.Namespace = ns
	return v
}

// NewText creates a new text VNode.
func NewText(text string) *VNode {
	return &VNode{Kind: KindText, Text: text}
}

// NewComment creates a new comment VNode, used as the placeholder a
// failed render function's sub-tree is replaced by so reconciliation
// can continue past the failure.
func NewComment(text string) *VNode {
	return &VNode{Kind: KindComment, Text: text}
}

// NewFragment creates a new fragment VNode.
func NewFragment(children ...*VNode) *VNode {
	kids := make([]VNode, 0, len(children))
	for _, child := range children {
		if child != nil {
			kids = append(kids, *child)
		}
	}
	return &VNode{Kind: KindFragment, Kids: kids, ShapeFlags: SFArrayChildren}
}

// NewPortal creates a new portal VNode.
func NewPortal(target string, children ...*VNode) *VNode {
	kids := make([]VNode, 0, len(children))
	for _, child := range children {
		if child != nil {
			kids = append(kids, *child)
		}
	}
	return &VNode{Kind: KindPortal, PortalTarget: target, Kids: kids}
}

// NewComponent creates a component VNode. children given here become
// slots, never element children.
func NewComponent(desc *ComponentDescriptor, props Props, slots ...*VNode) *VNode {
	kids := make([]VNode, 0, len(slots))
	for _, s := range slots {
		if s != nil {
			kids = append(kids, *s)
		}
	}
	shape := SFStatefulComponent
	if len(kids) > 0 {
		shape |= SFSlotsChildren
	}
	return &VNode{
		Kind:       KindComponent,
		Component:  desc,
		Props:      props,
		Kids:       kids,
		ShapeFlags: shape,
	}
}

func (v VNode) IsElement() bool   { return v.Kind == KindElement }
func (v VNode) IsText() bool      { return v.Kind == KindText }
func (v VNode) IsComment() bool   { return v.Kind == KindComment }
func (v VNode) IsFragment() bool  { return v.Kind == KindFragment }
func (v VNode) IsPortal() bool    { return v.Kind == KindPortal }
func (v VNode) IsComponent() bool { return v.Kind == KindComponent }

// IsBlock reports whether this VNode captured a dynamicChildren
// sequence, making it eligible for the block fast path.
func (v VNode) IsBlock() bool { return v.DynamicChildren != nil }

func (v VNode) HasFlag(flag VNodeFlags) bool { return v.Flags&flag != 0 }

// GetKey returns the key of this node, handling the Props map safely.
func (v VNode) GetKey() string {
	if v.Props != nil {
		if key, ok := v.Props["key"].(string); ok {
			return key
		}
	}
	return v.Key
}

// MarkKeepAlive sets the shape-flag a component VNode carries while
// wrapped in a KeepAlive boundary, distinct from
// SFComponentKeptAlive which the reconciler sets once that specific
// instance has actually been served from the cache rather than freshly
// mounted.
func (v *VNode) MarkKeepAlive() { v.ShapeFlags |= SFComponentShouldKeepAlive }

// CacheKey returns the KeepAliveCache key for this component VNode:
// its own key when set, otherwise its component descriptor's Name.
func (v VNode) CacheKey() string {
	if key := v.GetKey(); key != "" {
		return key
	}
	if v.Component != nil {
		return v.Component.Name
	}
	return ""
}
