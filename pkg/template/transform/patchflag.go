package transform

import (
	"github.com/weftui/weft/pkg/template/ast"
	"github.com/weftui/weft/pkg/vdom"
)

// assignPatchFlags fills el.PatchFlag per the wire-contract bitmask
// pkg/vdom's reconciler reads: a single dynamic text child gets TEXT,
// a bound class/style get CLASS/STYLE, an enumerable set of bound
// props gets PROPS with DynamicProps populated, an object-spread bind
// or a dynamic event/prop argument forces FULL_PROPS since the
// reconciler can no longer trust a fixed key list, and a plain-literal
// element with nothing dynamic at all is left at zero so hoist.go can
// consider it for static hoisting.
func assignPatchFlags(el *ast.ElementNode) {
	if el.TagType == ast.TagComponent {
		assignComponentPatchFlags(el)
		return
	}

	var flag vdom.PatchFlag

	if hasFullPropsTrigger(el) {
		el.PatchFlag = int32(vdom.PFFullProps)
		return
	}

	dynamicNamed := map[string]bool{}
	for _, name := range el.DynamicProps {
		dynamicNamed[name] = true
	}

	if dynamicNamed["class"] {
		flag |= vdom.PFClass
	}
	if dynamicNamed["style"] {
		flag |= vdom.PFStyle
	}
	other := 0
	for name := range dynamicNamed {
		if name != "class" && name != "style" {
			other++
		}
	}
	if other > 0 {
		flag |= vdom.PFProps
	}

	if hasSingleDynamicTextChild(el) {
		flag |= vdom.PFText
	}

	if _, ok := el.FindDirective("ref"); ok {
		flag |= vdom.PFNeedPatch
	}

	el.PatchFlag = int32(flag)
}

// assignComponentPatchFlags is the same idea narrowed to a component
// tag: DYNAMIC_SLOTS fires whenever a slot's content contains a
// structural directive of its own (v-if/v-for inside a slot changes
// which vnodes exist across renders, which the parent can't skip
// diffing even if the component's own props are static).
func assignComponentPatchFlags(el *ast.ElementNode) {
	if hasFullPropsTrigger(el) {
		el.PatchFlag = int32(vdom.PFFullProps)
		return
	}
	var flag vdom.PatchFlag
	if len(el.DynamicProps) > 0 {
		flag |= vdom.PFProps
	}
	if hasDynamicSlotContent(el) {
		flag |= vdom.PFDynamicSlots
	}
	el.PatchFlag = int32(flag)
}

func hasFullPropsTrigger(el *ast.ElementNode) bool {
	for _, d := range el.Directives {
		if d.Name == "bind" && d.Arg == "" {
			return true // v-bind="obj" spread
		}
		if (d.Name == "bind" || d.Name == "on") && d.IsDynamicArg {
			return true
		}
	}
	return false
}

func hasSingleDynamicTextChild(el *ast.ElementNode) bool {
	if len(el.Children) != 1 {
		return false
	}
	_, ok := el.Children[0].(*ast.InterpolationNode)
	return ok
}

func hasDynamicSlotContent(el *ast.ElementNode) bool {
	for _, child := range el.Children {
		if containsStructuralDirective(child) {
			return true
		}
	}
	return false
}

func containsStructuralDirective(n ast.Node) bool {
	switch v := n.(type) {
	case *ast.IfNode, *ast.ForNode:
		return true
	case *ast.ElementNode:
		_, hasFor := v.FindDirective("for")
		_, hasIf := v.FindDirective("if")
		return hasFor || hasIf
	}
	return false
}
