package codegen

import (
	"strings"
	"testing"

	"github.com/weftui/weft/pkg/template/parse"
	"github.com/weftui/weft/pkg/template/transform"
)

func generateSrc(t *testing.T, src string, opts Options) string {
	t.Helper()
	p := parse.New(src, parse.Options{})
	tmpl := p.Parse()
	if len(p.Errors()) != 0 {
		t.Fatalf("unexpected parse errors: %v", p.Errors())
	}
	res := transform.Transform(tmpl, transform.Options{HoistStatic: true})
	if opts.Package == "" {
		opts.Package = "generated"
	}
	return Generate(res, opts)
}

func TestGenerate_SimpleElementProducesCreateBlockCall(t *testing.T) {
	out := generateSrc(t, `<div :class="cls">{{ msg }}</div>`, Options{})
	if !strings.Contains(out, "package generated") {
		t.Error("expected a package clause")
	}
	if !strings.Contains(out, `_b.CreateBlock("div"`) {
		t.Errorf("expected the root element to codegen as a block, got:\n%s", out)
	}
	if !strings.Contains(out, "runtime.ToDisplayString(msg)") {
		t.Errorf("expected the interpolation to route through ToDisplayString, got:\n%s", out)
	}
	if !strings.Contains(out, `"class": cls`) {
		t.Errorf("expected the class bind in the props literal, got:\n%s", out)
	}
}

func TestGenerate_HoistsStaticSubtreeToPackageVar(t *testing.T) {
	out := generateSrc(t, `<div><span>static</span></div>`, Options{})
	if !strings.Contains(out, "var _hoisted_1 = vdom.NewElement(\"span\"") {
		t.Errorf("expected a hoisted package var, got:\n%s", out)
	}
	if !strings.Contains(out, "_hoisted_1") {
		t.Errorf("expected the root to reference the hoisted var, got:\n%s", out)
	}
}

func TestGenerate_VForProducesRenderListCall(t *testing.T) {
	out := generateSrc(t, `<ul><li v-for="item in items">{{ item }}</li></ul>`, Options{})
	if !strings.Contains(out, "runtime.RenderList(items, func(item any, _key any, _index int) *vdom.VNode {") {
		t.Errorf("expected a RenderList call over items, got:\n%s", out)
	}
}

func TestGenerate_VIfElseProducesIfElseChain(t *testing.T) {
	out := generateSrc(t, `<div v-if="a">A</div><div v-else>B</div>`, Options{})
	if !strings.Contains(out, "if a {") || !strings.Contains(out, "} else {") {
		t.Errorf("expected an if/else chain, got:\n%s", out)
	}
}

func TestGenerate_ComponentTagReferencesGoIdentifier(t *testing.T) {
	out := generateSrc(t, `<UserCard :name="userName"/>`, Options{})
	if !strings.Contains(out, "_b.CreateComponentVNode(UserCard,") {
		t.Errorf("expected the component tag to resolve to a bare identifier, got:\n%s", out)
	}
}

func TestGenerate_SVGElementCarriesNamespace(t *testing.T) {
	out := generateSrc(t, `<svg><circle r="1"></circle></svg>`, Options{})
	if !strings.Contains(out, `.WithNamespace("svg")`) {
		t.Errorf("expected svg and its descendants to carry the svg namespace, got:\n%s", out)
	}
}

func TestGenerate_ForeignObjectUnderSVGReEntersHTML(t *testing.T) {
	// The whole tree here is fully static, so hoist.go lifts every
	// level to its own package var (bottom-up); the div ends up as the
	// innermost hoisted expression rather than an inline _b.CreateVNode
	// call, so that's where the namespace override is observable.
	out := generateSrc(t, `<svg><foreignObject><div>x</div></foreignObject></svg>`, Options{})
	if !strings.Contains(out, `vdom.NewElement("div", nil, vdom.NewText("x")).WithNamespace("html")`) {
		t.Errorf("expected the hoisted div under foreignObject to re-enter the html namespace, got:\n%s", out)
	}
	if !strings.Contains(out, `.WithNamespace("svg")`) {
		t.Errorf("expected svg and foreignObject to keep the svg namespace, got:\n%s", out)
	}
}

func TestGenerate_SVGElementWithDynamicChildKeepsInlineNamespace(t *testing.T) {
	// A dynamic binding defeats hoisting, so this exercises the
	// _b.CreateVNode/_b.CreateBlock inline path instead of the
	// hoisted-var path.
	out := generateSrc(t, `<svg><circle :r="radius"></circle></svg>`, Options{})
	if !strings.Contains(out, `.WithNamespace("svg")`) {
		t.Errorf("expected the dynamic circle to still carry the svg namespace, got:\n%s", out)
	}
	if strings.Contains(out, "var _hoisted_") {
		t.Errorf("expected a dynamic binding to defeat hoisting entirely, got:\n%s", out)
	}
}

func TestGenerate_VModelHandlerAgreesWithSynthesizedAssignment(t *testing.T) {
	out := generateSrc(t, `<input v-model="name">`, Options{})
	if !strings.Contains(out, `func(_event *runtime.Event) { name = _event.Value }`) {
		t.Errorf("expected the v-model handler's parameter and body to agree on _event, got:\n%s", out)
	}
}

func TestGenerate_VModelCheckboxHandlerUsesCheckedField(t *testing.T) {
	out := generateSrc(t, `<input type="checkbox" v-model="agreed">`, Options{})
	if !strings.Contains(out, `func(_event *runtime.Event) { agreed = _event.Checked }`) {
		t.Errorf("expected the checkbox v-model handler to assign from _event.Checked, got:\n%s", out)
	}
}

func TestGenerate_CustomFuncAndParamNames(t *testing.T) {
	out := generateSrc(t, `<div>x</div>`, Options{FuncName: "RenderPage", ParamName: "p", ParamType: "PageProps"})
	if !strings.Contains(out, "func RenderPage(p PageProps) *vdom.VNode {") {
		t.Errorf("expected custom function signature, got:\n%s", out)
	}
}
