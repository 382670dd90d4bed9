package parser

import (
	sitter "github.com/tree-sitter/go-tree-sitter"

	"treescope/internal/ast"
)

// buildCST mirrors the full grammar tree. Leaf content is copied out so
// the result stays usable after the native tree is closed.
func buildCST(node *sitter.Node, content []byte) *ast.CSTNode {
	out := ast.NewCST(node.Kind(), rangeOf(node))
	count := node.ChildCount()
	if count == 0 {
		out.Content = string(content[node.StartByte():node.EndByte()])
		return out
	}
	for i := uint(0); i < count; i++ {
		out.AddChild(buildCST(node.Child(i), content))
	}
	return out
}
