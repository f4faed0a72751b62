package transform

import (
	"strings"

	"github.com/weftui/weft/pkg/template/ast"
)

// applyDirectiveTransforms resolves v-bind, v-on, and v-model into the
// element's dynamic-attribute bookkeeping. v-slot is left alone here;
// it carries no prop-shaping semantics of its own, only slot
// definition, which codegen reads directly off the directive.
func (c *context) applyDirectiveTransforms(el *ast.ElementNode) {
	expandVModel(el)
	collectDynamicProps(el)
}

// expandVModel turns v-model into the bind+listen pair it's shorthand
// for: a native form element binds "value" and listens for "input",
// while a component binds "modelValue" and listens for
// "update:modelValue", per the same v-model convention every
// Vue-lineage compiler implements.
func expandVModel(el *ast.ElementNode) {
	d, ok := el.FindDirective("model")
	if !ok {
		return
	}
	removeDirective(el, "model")

	propName := "modelValue"
	eventName := "update:modelValue"
	// _event and its *runtime.Event fields are codegen's fixed contract
	// for a compiled v-on handler's parameter (pkg/template/codegen's
	// genProps); a component's update:modelValue payload has no
	// checked/value split of its own, so it takes the whole event's
	// Value the same way a plain text input does.
	assign := d.Exp + " = _event.Value"
	if el.TagType == ast.TagElement {
		propName = "value"
		eventName = "input"
		if el.Tag == "input" && hasAttrValue(el, "type", "checkbox") {
			propName = "checked"
			eventName = "change"
			assign = d.Exp + " = _event.Checked"
		} else if el.Tag == "select" {
			eventName = "change"
			assign = d.Exp + " = _event.Value"
		} else {
			assign = d.Exp + " = _event.Value"
		}
	}

	el.Directives = append(el.Directives,
		ast.Directive{Name: "bind", Arg: propName, Exp: d.Exp, Loc: d.Loc},
		ast.Directive{Name: "on", Arg: eventName, Exp: assign, Loc: d.Loc},
	)
}

func hasAttrValue(el *ast.ElementNode, name, value string) bool {
	for _, a := range el.Attrs {
		if a.Name == name && a.Value == value {
			return true
		}
	}
	for _, d := range el.Directives {
		if d.Name == "bind" && d.Arg == name && d.Exp == `"`+value+`"` {
			return true
		}
	}
	return false
}

// collectDynamicProps records every bound prop name so patchflag.go
// can decide between PFClass/PFStyle/PFProps and populate
// el.DynamicProps; a v-bind with no argument is a prop object spread,
// which forces PFFullProps since the compiler can't enumerate the
// spread object's keys statically.
func collectDynamicProps(el *ast.ElementNode) {
	seen := map[string]bool{}
	for _, d := range el.Directives {
		if d.Name != "bind" || d.Arg == "" || d.IsDynamicArg {
			continue
		}
		if !seen[d.Arg] {
			seen[d.Arg] = true
			el.DynamicProps = append(el.DynamicProps, d.Arg)
		}
	}
	for _, d := range el.Directives {
		if d.Name != "on" || d.IsDynamicArg || d.Arg == "" {
			continue
		}
		key := "on" + strings.ToUpper(d.Arg[:1]) + d.Arg[1:]
		if !seen[key] {
			seen[key] = true
			el.DynamicProps = append(el.DynamicProps, key)
		}
	}
}
