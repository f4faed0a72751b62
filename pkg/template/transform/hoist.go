package transform

import "github.com/weftui/weft/pkg/template/ast"

// hoist walks the tree bottom-up marking every subtree with no
// directives, no dynamic interpolation, and no dynamic children as
// hoisted: codegen lifts these to a package-level var so a render call
// builds the vnode once instead of on every render, matching the
// "constant subtrees are hoisted...independent of props" rule.
func hoist(nodes []ast.Node, c *context) []ast.Node {
	for _, n := range nodes {
		hoistNode(n, c)
	}
	return nodes
}

func hoistNode(n ast.Node, c *context) bool {
	switch v := n.(type) {
	case *ast.TextNode:
		return true
	case *ast.CommentNode:
		return true
	case *ast.InterpolationNode:
		return false
	case *ast.ElementNode:
		return hoistElement(v, c)
	default:
		// IfNode/ForNode subtrees are never hoistable: their shape
		// depends on runtime state by construction.
		return false
	}
}

func hoistElement(el *ast.ElementNode, c *context) bool {
	if el.TagType != ast.TagElement {
		return false
	}
	if len(el.Directives) > 0 {
		return false
	}
	if el.PatchFlag != 0 {
		return false
	}
	allStatic := true
	for _, child := range el.Children {
		if !hoistNode(child, c) {
			allStatic = false
		}
	}
	if !allStatic {
		return false
	}
	el.Hoisted = true
	el.HoistedName = nextHoistedName(c)
	c.hoisted[el.HoistedName] = el
	return true
}
