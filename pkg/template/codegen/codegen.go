// Package codegen turns a transform.Result into Go source text: a
// render function built from calls into pkg/template/runtime's block
// tracker, plus one package-level var per hoisted subtree.
package codegen

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/weftui/weft/pkg/template/ast"
	"github.com/weftui/weft/pkg/template/transform"
)

// Options configures the generated file's package clause and render
// function signature.
type Options struct {
	Package     string
	FuncName    string // defaults to "Render"
	ParamName   string // defaults to "props"
	ParamType   string // defaults to "vdom.Props"
	ImportAlias string // reserved for a future custom runtime import path
}

func (o Options) funcName() string {
	if o.FuncName == "" {
		return "Render"
	}
	return o.FuncName
}

func (o Options) paramName() string {
	if o.ParamName == "" {
		return "props"
	}
	return o.ParamName
}

func (o Options) paramType() string {
	if o.ParamType == "" {
		return "vdom.Props"
	}
	return o.ParamType
}

// Generate produces a complete Go source file for res.
func Generate(res *transform.Result, opts Options) string {
	g := &generator{opts: opts, hoisted: res.HoistedNodes}
	body := g.genRootChildren(res.Nodes)

	var out strings.Builder
	fmt.Fprintf(&out, "package %s\n\n", opts.Package)
	out.WriteString("import (\n")
	out.WriteString("\t\"github.com/weftui/weft/pkg/template/runtime\"\n")
	out.WriteString("\t\"github.com/weftui/weft/pkg/vdom\"\n")
	out.WriteString(")\n\n")

	for _, name := range sortedHoistNames(res.HoistedNodes) {
		out.WriteString("var ")
		out.WriteString(name)
		out.WriteString(" = ")
		out.WriteString(g.genHoistedExpr(res.HoistedNodes[name]))
		out.WriteString("\n")
	}
	if len(res.HoistedNodes) > 0 {
		out.WriteString("\n")
	}

	fmt.Fprintf(&out, "func %s(%s %s) *vdom.VNode {\n", opts.funcName(), opts.paramName(), opts.paramType())
	out.WriteString("\t_b := runtime.NewBlockTracker()\n")
	out.WriteString("\t_b.OpenBlock()\n")
	out.WriteString("\treturn " + body + "\n")
	out.WriteString("}\n")
	return out.String()
}

func sortedHoistNames(m map[string]*ast.ElementNode) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type generator struct {
	opts    Options
	hoisted map[string]*ast.ElementNode
}

// genRootChildren wraps a template's top-level node list into a
// single returned vnode: one root passes through directly, several
// roots collapse into a fragment the way a multi-root component's
// render output does.
func (g *generator) genRootChildren(nodes []ast.Node) string {
	nonWhitespace := filterSignificant(nodes)
	if len(nonWhitespace) == 1 {
		return g.genBlockRoot(nonWhitespace[0])
	}
	return g.genFragmentBlock(nonWhitespace)
}

// genFragmentBlock generates an immediately-invoked closure that opens
// its own block frame, builds every node in nodes, and closes the
// frame onto a fragment root — used wherever a v-if branch, a v-for
// item template, or the template itself has more than one root node.
func (g *generator) genFragmentBlock(nodes []ast.Node) string {
	exprs := make([]string, 0, len(nodes))
	for _, n := range nodes {
		exprs = append(exprs, g.genNode(n))
	}
	return fmt.Sprintf("func() *vdom.VNode {\n\t\t_b.OpenBlock()\n\t\treturn _b.CreateFragmentBlock(runtime.Children(%s)...)\n\t}()", strings.Join(exprs, ", "))
}

func filterSignificant(nodes []ast.Node) []ast.Node {
	out := make([]ast.Node, 0, len(nodes))
	for _, n := range nodes {
		if t, ok := n.(*ast.TextNode); ok && strings.TrimSpace(t.Content) == "" {
			continue
		}
		out = append(out, n)
	}
	return out
}

// genBlockRoot generates the single root node as a block: an element
// becomes CreateBlock (its own dynamic children captured), while an
// If/For root defers block-opening to its own branches/items, each of
// which is itself a block root.
func (g *generator) genBlockRoot(n ast.Node) string {
	switch v := n.(type) {
	case *ast.ElementNode:
		return g.genElement(v, true)
	default:
		return g.genNode(n)
	}
}

// genNode generates a non-block-root expression: normal descendant
// vnodes register themselves with the enclosing block via _b.Track
// instead of opening one of their own.
func (g *generator) genNode(n ast.Node) string {
	switch v := n.(type) {
	case *ast.TextNode:
		return fmt.Sprintf("vdom.NewText(%s)", strconv.Quote(v.Content))
	case *ast.CommentNode:
		return fmt.Sprintf("runtime.CreateCommentVNode(%s)", strconv.Quote(v.Content))
	case *ast.InterpolationNode:
		return fmt.Sprintf("_b.CreateTextVNode(runtime.ToDisplayString(%s))", v.Expr)
	case *ast.ElementNode:
		return g.genElement(v, false)
	case *ast.IfNode:
		return g.genIf(v)
	case *ast.ForNode:
		return g.genFor(v)
	default:
		return "nil"
	}
}

func (g *generator) genElement(el *ast.ElementNode, isBlockRoot bool) string {
	if el.Hoisted {
		return el.HoistedName
	}

	tag := strconv.Quote(el.Tag)
	props := g.genProps(el)
	flag := fmt.Sprintf("vdom.PatchFlag(%d)", el.PatchFlag)
	dynProps := g.genStringSlice(el.DynamicProps)
	childExprs := g.genChildrenList(el.Children)

	if el.TagType == ast.TagComponent {
		// A component tag resolves to a Go identifier of the same name
		// (the imported component's descriptor), letting the Go compiler
		// itself catch an unknown component instead of a runtime lookup
		// failing at render time.
		return fmt.Sprintf("_b.CreateComponentVNode(%s, %s, %s, %s%s)",
			el.Tag, props, flag, dynProps, childArgSuffix(childExprs))
	}

	ctor := "_b.CreateVNode"
	if isBlockRoot {
		ctor = "_b.CreateBlock"
	}
	call := fmt.Sprintf("%s(%s, %s, %s, %s%s)", ctor, tag, props, flag, dynProps, childArgSuffix(childExprs))
	return call + `.WithNamespace(` + strconv.Quote(namespaceArg(el.Namespace)) + `)`
}

// namespaceArg renders the parser's §4.3-resolved namespace as the
// string a Host's CreateElement/PatchProp expects. Every compiled
// element carries an explicit value, including plain "html" — that is
// what distinguishes a foreignObject/desc/title element that
// re-entered HTML from inside an SVG ancestor from one that was never
// under SVG in the first place; both resolve to ast.NamespaceHTML, but
// only the explicit tag-by-tag resolution the parser already did knows
// which is which. See host.go's mountHostNode for the consuming side.
func namespaceArg(ns ast.Namespace) string {
	switch ns {
	case ast.NamespaceSVG:
		return "svg"
	case ast.NamespaceMathML:
		return "math"
	default:
		return "html"
	}
}

func childArgSuffix(childExprs []string) string {
	if len(childExprs) == 0 {
		return ""
	}
	return ", runtime.Children(" + strings.Join(childExprs, ", ") + ")..."
}

func (g *generator) genChildrenList(nodes []ast.Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if t, ok := n.(*ast.TextNode); ok && strings.TrimSpace(t.Content) == "" {
			continue
		}
		out = append(out, g.genNode(n))
	}
	return out
}

func (g *generator) genProps(el *ast.ElementNode) string {
	if len(el.Attrs) == 0 && len(el.Directives) == 0 {
		return "nil"
	}

	var spreads []string
	entries := map[string]string{}
	order := []string{}

	for _, a := range el.Attrs {
		if _, exists := entries[a.Name]; !exists {
			order = append(order, a.Name)
		}
		entries[a.Name] = strconv.Quote(a.Value)
	}
	for _, d := range el.Directives {
		switch d.Name {
		case "bind":
			if d.Arg == "" {
				spreads = append(spreads, d.Exp)
				continue
			}
			key := d.Arg
			if d.IsDynamicArg {
				continue // dynamic-key binds fold into a spread map at codegen-caller's discretion
			}
			if _, exists := entries[key]; !exists {
				order = append(order, key)
			}
			entries[key] = d.Exp
		case "on":
			if d.Arg == "" || d.IsDynamicArg {
				continue
			}
			key := "on" + strings.ToUpper(d.Arg[:1]) + d.Arg[1:]
			if _, exists := entries[key]; !exists {
				order = append(order, key)
			}
			// _event's name and *runtime.Event type are the fixed
			// contract expandVModel's synthesized assignments
			// (pkg/template/transform/directives.go) compile against;
			// a hand-written v-on expression can reference the same
			// parameter the same way.
			entries[key] = "func(_event *runtime.Event) { " + d.Exp + " }"
		}
	}

	var literal string
	if len(order) > 0 {
		var b strings.Builder
		b.WriteString("vdom.Props{")
		for i, k := range order {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s: %s", strconv.Quote(k), entries[k])
		}
		b.WriteString("}")
		literal = b.String()
	}

	switch {
	case literal == "" && len(spreads) == 0:
		return "nil"
	case len(spreads) == 0:
		return literal
	case literal == "":
		return fmt.Sprintf("runtime.MergeProps(%s)", strings.Join(spreads, ", "))
	default:
		return fmt.Sprintf("runtime.MergeProps(%s, %s)", strings.Join(spreads, ", "), literal)
	}
}

func (g *generator) genStringSlice(items []string) string {
	if len(items) == 0 {
		return "nil"
	}
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = strconv.Quote(s)
	}
	return "[]string{" + strings.Join(quoted, ", ") + "}"
}

// genIf generates an immediately-invoked closure implementing the
// branch chain: the first true condition's body becomes its own
// block, and falling through every branch (no v-else present) yields
// a comment vnode as the reconciler's stable placeholder.
func (g *generator) genIf(n *ast.IfNode) string {
	var b strings.Builder
	b.WriteString("func() *vdom.VNode {\n")
	for i, branch := range n.Branches {
		switch {
		case branch.Condition == "" && i > 0:
			b.WriteString("\t\t} else {\n")
		case i == 0:
			fmt.Fprintf(&b, "\t\tif %s {\n", branch.Condition)
		default:
			fmt.Fprintf(&b, "\t\t} else if %s {\n", branch.Condition)
		}
		body := g.genBranchBody(branch.Children)
		fmt.Fprintf(&b, "\t\t\treturn %s\n", body)
	}
	b.WriteString("\t\t}\n")
	b.WriteString("\t\treturn runtime.CreateCommentVNode(\"v-if\")\n")
	b.WriteString("\t}()")
	return b.String()
}

func (g *generator) genBranchBody(nodes []ast.Node) string {
	sig := filterSignificant(nodes)
	if len(sig) == 1 {
		return g.genBlockRoot(sig[0])
	}
	return g.genFragmentBlock(sig)
}

// genFor generates a runtime.RenderList call; the loop variable is
// bound as `any`, so a template author whose item type isn't already
// dynamic must assert it explicitly inside the loop body expression
// (e.g. "item.(Todo).Name") the same way any value read out of a
// vdom.Props map must be.
func (g *generator) genFor(n *ast.ForNode) string {
	value := n.Parsed.Value
	if value == "" {
		value = "_item"
	}
	key := n.Parsed.Key
	if key == "" {
		key = "_key"
	}
	index := n.Parsed.Index
	if index == "" {
		index = "_index"
	}

	body := g.genBranchBody(n.Children)
	return fmt.Sprintf("runtime.RenderList(%s, func(%s any, %s any, %s int) *vdom.VNode {\n\t\treturn %s\n\t})",
		n.Parsed.Source, value, key, index, body)
}

// genHoistedExpr generates a top-level var initializer for a hoisted
// subtree; hoisted vnodes never register with a block tracker since
// they carry no dynamic content by construction.
func (g *generator) genHoistedExpr(el *ast.ElementNode) string {
	tag := strconv.Quote(el.Tag)
	props := g.genProps(el)
	children := g.genChildrenList(el.Children)
	var call string
	if len(children) == 0 {
		call = fmt.Sprintf("vdom.NewElement(%s, %s)", tag, props)
	} else {
		call = fmt.Sprintf("vdom.NewElement(%s, %s, %s)", tag, props, strings.Join(children, ", "))
	}
	return call + `.WithNamespace(` + strconv.Quote(namespaceArg(el.Namespace)) + `)`
}
