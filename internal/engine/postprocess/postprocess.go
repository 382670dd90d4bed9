// Package postprocess normalizes a freshly extracted tree: canonical
// child ordering, docstring association, and per-language schema fixups.
// Each pass is idempotent on its own. The full pipeline is not: fixups
// may reclassify nodes as comments, which only the next run's removal
// pass would drop.
package postprocess

import (
	"treescope/internal/ast"
)

// DefaultDocstringWindow is the maximum number of lines between a
// comment's last line and a declaration's first line for the comment to
// become its docstring.
const DefaultDocstringWindow = 5

type Options struct {
	Language        string
	DocstringWindow int
}

func Apply(root *ast.Node, opts Options) {
	if root == nil {
		return
	}
	if opts.DocstringWindow <= 0 {
		opts.DocstringWindow = DefaultDocstringWindow
	}

	Reorder(root)
	AssociateDocstrings(root, opts.DocstringWindow)
	RemoveComments(root)
	ApplyFixups(root, opts.Language)
}
