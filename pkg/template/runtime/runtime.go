// Package runtime is the small set of helper functions codegen's
// emitted Go source calls: block-tracking vnode constructors, the
// v-for iteration helper, interpolation stringification, and prop
// merging for v-bind object spreads. A generated render function never
// constructs a *vdom.VNode by hand; it always goes through one of
// these, the same way a Vue-lineage compiler's output only ever calls
// into its own runtime-helpers module.
package runtime

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"

	"github.com/weftui/weft/pkg/reactive"
	"github.com/weftui/weft/pkg/vdom"
)

// BlockTracker tracks the dynamic-child list a block currently being
// built is accumulating; OpenBlock pushes a new frame, CreateVNode
// appends itself to the top frame when it carries a nonzero patch
// flag, and CloseBlock pops the frame and hands the collected list
// back to the caller to attach as DynamicChildren.
//
// Not safe for concurrent use across goroutines rendering
// simultaneously with a shared stack; each render call must use its
// own *BlockTracker.
type BlockTracker struct {
	stack [][]*vdom.VNode
}

func NewBlockTracker() *BlockTracker { return &BlockTracker{} }

// OpenBlock starts tracking dynamic children for a new block scope.
func (b *BlockTracker) OpenBlock() {
	b.stack = append(b.stack, nil)
}

// Track registers n as a dynamic child of the innermost open block, if
// one is open and n actually carries dynamic content.
func (b *BlockTracker) Track(n *vdom.VNode) *vdom.VNode {
	if n == nil || len(b.stack) == 0 {
		return n
	}
	if n.PatchFlags == 0 && n.Kind != vdom.KindComponent {
		return n
	}
	top := len(b.stack) - 1
	b.stack[top] = append(b.stack[top], n)
	return n
}

// CloseBlock pops the current block frame and returns its collected
// dynamic children.
func (b *BlockTracker) CloseBlock() []*vdom.VNode {
	if len(b.stack) == 0 {
		return nil
	}
	top := len(b.stack) - 1
	kids := b.stack[top]
	b.stack = b.stack[:top]
	return kids
}

// CreateVNode builds an element vnode with the compiler-assigned patch
// flag and dynamic-prop list attached, then registers it with the
// tracker if a block is currently open.
func (b *BlockTracker) CreateVNode(tag string, props vdom.Props, flag vdom.PatchFlag, dynamicProps []string, children ...*vdom.VNode) *vdom.VNode {
	n := vdom.NewElement(tag, props, children...)
	n.PatchFlags = flag
	n.DynamicProps = dynamicProps
	return b.Track(n)
}

// CreateBlock is CreateVNode plus DynamicChildren capture: it opens a
// block, lets the caller build n's children (which is why callers
// invoke OpenBlock before constructing any child vnode and CreateBlock
// only after), and closes the block onto n itself.
func (b *BlockTracker) CreateBlock(tag string, props vdom.Props, flag vdom.PatchFlag, dynamicProps []string, children ...*vdom.VNode) *vdom.VNode {
	n := vdom.NewElement(tag, props, children...)
	n.PatchFlags = flag
	n.DynamicProps = dynamicProps
	n.DynamicChildren = b.CloseBlock()
	return n
}

// CreateFragmentBlock wraps a multi-root node list (a v-if branch or
// v-for item template with more than one top-level node, or the
// template's own multiple roots) in a fragment block, closing whatever
// block frame the caller opened for it.
func (b *BlockTracker) CreateFragmentBlock(children ...*vdom.VNode) *vdom.VNode {
	n := vdom.NewFragment(children...)
	n.PatchFlags = vdom.PFStableFragment
	n.DynamicChildren = b.CloseBlock()
	return n
}

// CreateComponentVNode is CreateVNode's component-kind counterpart.
func (b *BlockTracker) CreateComponentVNode(desc *vdom.ComponentDescriptor, props vdom.Props, flag vdom.PatchFlag, dynamicProps []string, slots ...*vdom.VNode) *vdom.VNode {
	n := vdom.NewComponent(desc, props, slots...)
	n.PatchFlags = flag
	n.DynamicProps = dynamicProps
	return b.Track(n)
}

// Children flattens a mixed list of *vdom.VNode and []*vdom.VNode
// arguments into one slice, so codegen can pass a v-for's list output
// alongside ordinary single-node children without emitting its own
// flattening logic inline.
func Children(items ...any) []*vdom.VNode {
	out := make([]*vdom.VNode, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case nil:
			continue
		case *vdom.VNode:
			if v != nil {
				out = append(out, v)
			}
		case []*vdom.VNode:
			out = append(out, v...)
		}
	}
	return out
}

// CreateCommentVNode wraps vdom.NewComment for a `v-if` chain's
// implicit fallback branch and for template comments.
func CreateCommentVNode(text string) *vdom.VNode { return vdom.NewComment(text) }

// CreateTextVNode wraps vdom.NewText, tracked so a lone dynamic text
// node inside a block still participates in the block fast path.
func (b *BlockTracker) CreateTextVNode(text string) *vdom.VNode {
	n := vdom.NewText(text)
	n.PatchFlags = vdom.PFText
	return b.Track(n)
}

// ToDisplayString stringifies an interpolation expression's value the
// way a template's {{ expr }} output is rendered: nil becomes "",
// strings pass through, everything else uses fmt's default verb
// except floats, which drop a trailing ".0" the way most template
// languages format whole-number floats for display.
func ToDisplayString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	default:
		return fmt.Sprint(t)
	}
}

// MergeProps implements v-bind's object-spread semantics: later
// sources win on key collision, except "class" and "style" values are
// concatenated rather than replaced, matching how multiple class
// bindings on one element combine instead of clobbering each other.
func MergeProps(sources ...vdom.Props) vdom.Props {
	out := vdom.Props{}
	for _, src := range sources {
		for k, v := range src {
			if k == "class" {
				out["class"] = mergeClass(out["class"], v)
				continue
			}
			if k == "style" {
				out["style"] = mergeStyle(out["style"], v)
				continue
			}
			out[k] = v
		}
	}
	return out
}

func mergeClass(existing, next any) any {
	if existing == nil {
		return next
	}
	a, aok := existing.(string)
	b, bok := next.(string)
	if aok && bok {
		if a == "" {
			return b
		}
		if b == "" {
			return a
		}
		return a + " " + b
	}
	return next
}

func mergeStyle(existing, next any) any {
	a, aok := existing.(map[string]string)
	b, bok := next.(map[string]string)
	if !aok || !bok {
		if next != nil {
			return next
		}
		return existing
	}
	out := make(map[string]string, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}

// Event is the value a v-on handler receives, normalized to the two
// fields a v-model expansion needs off a form control's change: the
// current text value, and the checkbox-checked state. A browser-style
// event object with a `.target` DOM node has no Go equivalent here, so
// every compiled handler takes one of these instead of trying to
// splice `event.target.value`-shaped JS member access into Go source;
// a host binds the real listener and constructs this from whatever its
// own input widget exposes.
type Event struct {
	Value   string
	Checked bool
}

// RenderList implements v-for's iteration over a slice, a map, an
// integer count, or a plain object (a struct, or reactive.Object[T]
// unwrapped back to one) — matching the source-shape polymorphism a
// v-for expression can bind against. cb receives the item, a stable
// key (index for a slice/count, the map key for a map, the field name
// for a struct), and a zero-based position.
func RenderList(source any, cb func(item any, key any, index int) *vdom.VNode) []*vdom.VNode {
	if source == nil {
		return nil
	}
	source = reactive.ToRaw(source)
	rv := reflect.ValueOf(source)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]*vdom.VNode, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out = append(out, cb(rv.Index(i).Interface(), i, i))
		}
		return out
	case reflect.Map:
		keys := rv.MapKeys()
		sort.Slice(keys, func(i, j int) bool {
			return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
		})
		out := make([]*vdom.VNode, 0, len(keys))
		for i, k := range keys {
			out = append(out, cb(rv.MapIndex(k).Interface(), k.Interface(), i))
		}
		return out
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n := int(rv.Int())
		out := make([]*vdom.VNode, 0, n)
		for i := 0; i < n; i++ {
			out = append(out, cb(i+1, i, i))
		}
		return out
	case reflect.String:
		s := rv.String()
		out := make([]*vdom.VNode, 0, len(s))
		for i, r := range s {
			out = append(out, cb(string(r), i, i))
		}
		return out
	case reflect.Struct:
		// A plain-object v-for source: iterate own enumerable keys, i.e.
		// exported fields in declaration order, the same set
		// reactive.Object[T]'s Get/Set expose by name.
		t := rv.Type()
		out := make([]*vdom.VNode, 0, rv.NumField())
		index := 0
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			out = append(out, cb(rv.Field(i).Interface(), f.Name, index))
			index++
		}
		return out
	default:
		return nil
	}
}

// Registry resolves a component tag name to its descriptor, the
// runtime counterpart of a generated file's compile-time import of
// the component it references directly; only used for names resolved
// dynamically (e.g. a component chosen by a string variable).
type Registry struct {
	components map[string]*vdom.ComponentDescriptor
}

func NewRegistry() *Registry { return &Registry{components: map[string]*vdom.ComponentDescriptor{}} }

func (r *Registry) Register(desc *vdom.ComponentDescriptor) {
	r.components[desc.Name] = desc
}

func (r *Registry) Resolve(name string) (*vdom.ComponentDescriptor, bool) {
	d, ok := r.components[name]
	return d, ok
}
