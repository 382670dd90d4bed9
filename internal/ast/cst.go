package ast

// CSTNode mirrors the raw tree-sitter parse tree: every grammar node is
// kept under its grammar symbol name, nothing is normalized or reordered.
type CSTNode struct {
	Type     string      `json:"type"`
	Content  string      `json:"content,omitempty"`
	Range    SourceRange `json:"range"`
	Children []*CSTNode  `json:"children,omitempty"`
}

func NewCST(symbol string, r SourceRange) *CSTNode {
	return &CSTNode{Type: symbol, Range: r}
}

func (n *CSTNode) AddChild(child *CSTNode) {
	if n == nil || child == nil {
		return
	}
	n.Children = append(n.Children, child)
}

// Count returns the number of nodes in the subtree rooted at n.
func (n *CSTNode) Count() int {
	if n == nil {
		return 0
	}
	total := 1
	for _, c := range n.Children {
		total += c.Count()
	}
	return total
}
