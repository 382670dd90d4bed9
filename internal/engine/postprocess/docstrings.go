package postprocess

import (
	"sort"
	"strings"

	"treescope/internal/ast"
)

// AssociateDocstrings pairs comment and docstring nodes with the code
// they document. Three rules, applied in order:
//
//  1. a docstring nested as the first documentation child of a function,
//     method, or class documents its parent (string-literal convention);
//  2. a block comment before the first top-level declaration becomes the
//     file docstring;
//  3. every remaining declaration gets the nearest comment that ends
//     strictly above it within the line window, each comment consumed at
//     most once.
func AssociateDocstrings(root *ast.Node, window int) {
	used := make(map[*ast.Node]bool)

	attachNested(root, used)
	promoteRootDocstring(root, used)
	attachPreceding(root, window, used)
}

func attachNested(root *ast.Node, used map[*ast.Node]bool) {
	root.Walk(func(n *ast.Node) bool {
		switch n.Type {
		case ast.NodeFunction, ast.NodeMethod, ast.NodeClass:
		default:
			return true
		}
		for _, child := range n.Children {
			if child.Type != ast.NodeDocstring || used[child] {
				continue
			}
			if n.Docstring == "" {
				n.Docstring = CleanDocComment(docText(child))
			}
			used[child] = true
			break
		}
		return true
	})
}

// promoteRootDocstring decides by source ranges, not child order, so it
// gives the same answer before and after Reorder has bucketed the
// children.
func promoteRootDocstring(root *ast.Node, used map[*ast.Node]bool) {
	var first *ast.Node
	declStart := uint32(0)
	haveDecl := false
	for _, child := range root.Children {
		switch child.Type {
		case ast.NodeDocstring, ast.NodeComment:
			if used[child] {
				continue
			}
			if first == nil || child.Range.Start.Offset < first.Range.Start.Offset {
				first = child
			}
		default:
			if !haveDecl || child.Range.Start.Offset < declStart {
				declStart = child.Range.Start.Offset
				haveDecl = true
			}
		}
	}
	if first == nil {
		return
	}
	if haveDecl && first.Range.Start.Offset >= declStart {
		// a declaration opens the file; its comments are not the file's
		return
	}
	text := docText(first)
	if first.Type == ast.NodeComment && !strings.HasPrefix(strings.TrimSpace(text), "/*") {
		// line comments document the next declaration, not the file
		return
	}
	if root.Docstring == "" {
		root.Docstring = CleanDocComment(text)
	}
	used[first] = true
}

func attachPreceding(root *ast.Node, window int, used map[*ast.Node]bool) {
	var docs []*ast.Node
	var decls []*ast.Node
	root.Walk(func(n *ast.Node) bool {
		if n == root {
			return true
		}
		switch n.Type {
		case ast.NodeDocstring, ast.NodeComment:
			if !used[n] {
				docs = append(docs, n)
			}
		case ast.NodeUnknown:
		default:
			decls = append(decls, n)
		}
		return true
	})

	sort.Slice(decls, func(i, j int) bool {
		return decls[i].Range.Start.Offset < decls[j].Range.Start.Offset
	})

	for _, decl := range decls {
		if decl.Docstring != "" {
			continue
		}
		var best *ast.Node
		bestDistance := uint32(0)
		for _, doc := range docs {
			if used[doc] {
				continue
			}
			if doc.Range.End.Line >= decl.Range.Start.Line {
				continue
			}
			distance := decl.Range.Start.Line - doc.Range.End.Line
			if distance > uint32(window) {
				continue
			}
			if best == nil || distance < bestDistance {
				best = doc
				bestDistance = distance
			}
		}
		if best != nil {
			decl.Docstring = CleanDocComment(docText(best))
			used[best] = true
		}
	}
}

func docText(n *ast.Node) string {
	if n.RawContent != "" {
		return n.RawContent
	}
	return n.Name
}

// RemoveComments detaches every comment and docstring node. Their text
// survives only through the docstring fields set during association.
func RemoveComments(root *ast.Node) {
	root.Walk(func(n *ast.Node) bool {
		kept := n.Children[:0]
		for _, child := range n.Children {
			if child.Type == ast.NodeComment || child.Type == ast.NodeDocstring {
				child.Parent = nil
				continue
			}
			kept = append(kept, child)
		}
		n.Children = kept
		return true
	})
}

// CleanDocComment strips comment markers from C, C++, Python and
// JavaScript style documentation blocks, including leading asterisks on
// JavaDoc continuation lines.
func CleanDocComment(raw string) string {
	text := strings.TrimSpace(raw)

	switch {
	case strings.HasPrefix(text, "/**"):
		text = strings.TrimPrefix(text, "/**")
		text = strings.TrimSuffix(text, "*/")
	case strings.HasPrefix(text, "/*"):
		text = strings.TrimPrefix(text, "/*")
		text = strings.TrimSuffix(text, "*/")
	case strings.HasPrefix(text, `"""`):
		text = strings.TrimPrefix(text, `"""`)
		text = strings.TrimSuffix(text, `"""`)
	case strings.HasPrefix(text, "'''"):
		text = strings.TrimPrefix(text, "'''")
		text = strings.TrimSuffix(text, "'''")
	}

	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "//")
		line = strings.TrimPrefix(line, "#")
		line = strings.TrimPrefix(line, "*")
		line = strings.TrimSpace(line)
		if line == "" && len(out) == 0 {
			continue
		}
		out = append(out, line)
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return strings.Join(out, "\n")
}
