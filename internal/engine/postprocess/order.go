package postprocess

import "treescope/internal/ast"

// Bucket priority for canonical child ordering. Relative order inside
// each bucket is preserved, so the pass is a stable partition and
// idempotent.
const (
	bucketDocstring = iota
	bucketInclude
	bucketFunction
	bucketOther
)

func bucketOf(n *ast.Node) int {
	switch n.Type {
	case ast.NodeDocstring, ast.NodeComment:
		return bucketDocstring
	case ast.NodeInclude:
		return bucketInclude
	case ast.NodeFunction, ast.NodeMethod:
		return bucketFunction
	default:
		return bucketOther
	}
}

// Reorder rewrites every node's children into docstrings, includes,
// functions, then everything else. Output no longer depends on source
// declaration order, which golden comparisons rely on.
func Reorder(root *ast.Node) {
	root.Walk(func(n *ast.Node) bool {
		if len(n.Children) > 1 {
			n.Children = reorderChildren(n.Children)
		}
		return true
	})
}

func reorderChildren(children []*ast.Node) []*ast.Node {
	out := make([]*ast.Node, 0, len(children))
	for bucket := bucketDocstring; bucket <= bucketOther; bucket++ {
		for _, child := range children {
			if bucketOf(child) == bucket {
				out = append(out, child)
			}
		}
	}
	return out
}
