// Package transform lowers a parsed pkg/template/ast tree into the
// shape pkg/template/codegen walks: structural directives (v-if,
// v-for) become IfNode/ForNode wrappers, prop-shaping directives
// (v-bind, v-on) are resolved into an element's plain attrs and
// dynamic-prop bookkeeping, and every element carries the
// PatchFlag/DynamicProps/Hoisted annotations codegen needs to emit the
// compiler's half of the wire contract. IsBlock is not set here.
package transform

import (
	"fmt"

	"github.com/weftui/weft/pkg/template/ast"
)

// Options configures the transform pass. HoistStatic marks fully
// static element subtrees as Hoisted and collects them in
// Result.HoistedNodes.
type Options struct {
	HoistStatic bool
}

// Result is the transformed tree plus every hoisted subtree, which
// codegen emits as package-level `var _hoisted_N = ...` declarations
// ahead of the render function body.
type Result struct {
	Nodes        []ast.Node
	HoistedNodes map[string]*ast.ElementNode
}

// Transform runs the full pipeline over tmpl.Nodes in place and
// returns the lowered tree.
func Transform(tmpl *ast.Template, opts Options) *Result {
	ctx := &context{hoisted: map[string]*ast.ElementNode{}}
	nodes := ctx.transformChildren(tmpl.Nodes)
	if opts.HoistStatic {
		nodes = hoist(nodes, ctx)
	}
	return &Result{Nodes: nodes, HoistedNodes: ctx.hoisted}
}

type context struct {
	hoistCounter int
	hoisted      map[string]*ast.ElementNode
}

// transformChildren runs the per-node lowering pass over a sibling
// list, then groups any v-if/v-else-if/v-else run it finds into a
// single IfNode; v-if grouping has to happen at the sibling-list level
// since v-else-if/v-else live on separate nodes from the v-if they
// extend.
func (c *context) transformChildren(nodes []ast.Node) []ast.Node {
	out := make([]ast.Node, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, c.transformNode(n))
	}
	return c.groupConditionals(out)
}

func (c *context) transformNode(n ast.Node) ast.Node {
	el, ok := n.(*ast.ElementNode)
	if !ok {
		return n
	}
	el.Children = c.transformChildren(el.Children)

	if d, ok := el.FindDirective("for"); ok {
		removeDirective(el, "for")
		c.applyDirectiveTransforms(el)
		assignPatchFlags(el)
		return &ast.ForNode{
			Parsed: ast.ForParseResult{
				Source: d.Exp,
				Value:  d.Arg,
				Key:    modifierValue(d, "key"),
				Index:  modifierValue(d, "index"),
			},
			Children: []ast.Node{el},
			Loc:      el.Loc,
		}
	}

	c.applyDirectiveTransforms(el)
	assignPatchFlags(el)
	return el
}

// groupConditionals collapses a run of v-if, zero or more v-else-if,
// and an optional v-else sibling element into one IfNode. A
// whitespace-only text node between branch elements doesn't break the
// chain, matching how the parser's own whitespace condensation already
// treats such runs as insignificant.
func (c *context) groupConditionals(nodes []ast.Node) []ast.Node {
	out := make([]ast.Node, 0, len(nodes))
	i := 0
	for i < len(nodes) {
		el, ok := nodes[i].(*ast.ElementNode)
		if !ok {
			out = append(out, nodes[i])
			i++
			continue
		}
		ifDir, hasIf := el.FindDirective("if")
		if !hasIf {
			out = append(out, nodes[i])
			i++
			continue
		}
		removeDirective(el, "if")
		ifNode := &ast.IfNode{
			Branches: []ast.IfBranch{{Condition: ifDir.Exp, Children: []ast.Node{el}}},
			Loc:      el.Loc,
		}
		i++
		for i < len(nodes) {
			if isBlankText(nodes[i]) {
				i++
				continue
			}
			nextEl, ok := nodes[i].(*ast.ElementNode)
			if !ok {
				break
			}
			if d, ok := nextEl.FindDirective("else-if"); ok {
				removeDirective(nextEl, "else-if")
				ifNode.Branches = append(ifNode.Branches, ast.IfBranch{Condition: d.Exp, Children: []ast.Node{nextEl}})
				i++
				continue
			}
			if _, ok := nextEl.FindDirective("else"); ok {
				removeDirective(nextEl, "else")
				ifNode.Branches = append(ifNode.Branches, ast.IfBranch{Condition: "", Children: []ast.Node{nextEl}})
				i++
			}
			break
		}
		out = append(out, ifNode)
	}
	return out
}

func isBlankText(n ast.Node) bool {
	t, ok := n.(*ast.TextNode)
	return ok && len(t.Content) > 0 && isAllSpace(t.Content)
}

func isAllSpace(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}

func removeDirective(el *ast.ElementNode, name string) {
	out := el.Directives[:0]
	for _, d := range el.Directives {
		if d.Name != name {
			out = append(out, d)
		}
	}
	el.Directives = out
}

func modifierValue(d ast.Directive, prefix string) string {
	for _, m := range d.Modifiers {
		if len(m) > len(prefix)+1 && m[:len(prefix)+1] == prefix+":" {
			return m[len(prefix)+1:]
		}
	}
	return ""
}

func nextHoistedName(c *context) string {
	c.hoistCounter++
	return fmt.Sprintf("_hoisted_%d", c.hoistCounter)
}
