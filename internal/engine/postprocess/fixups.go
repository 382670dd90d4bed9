package postprocess

import "treescope/internal/ast"

// A fixup rewrites a node whose extracted name is actually grammar noise
// (a raw grammar symbol captured as if it were an identifier) into its
// semantically correct shape. Fixups are total and idempotent: the
// rewrite removes the condition that triggered it, so a second run
// changes nothing.
type fixup struct {
	Type     ast.NodeType
	Name     string
	KeepName bool
}

var cFixups = map[string]fixup{
	"identifier":          {Type: ast.NodeComment, Name: ""},
	"number_literal":      {Type: ast.NodeFunction, Name: "main"},
	"compound_statement":  {Type: ast.NodeComment, Name: ""},
	"primitive_type":      {Type: ast.NodeComment, Name: ""},
	"parameter_list":      {Type: ast.NodeComment, Name: ""},
	"function_definition": {Type: ast.NodeDocstring, KeepName: true},
}

var fixupTables = map[string]map[string]fixup{
	"c":   cFixups,
	"cpp": cFixups,
}

// ApplyFixups runs the language's fixup table over the whole tree. A
// language without a table is a no-op.
func ApplyFixups(root *ast.Node, language string) {
	table, ok := fixupTables[language]
	if !ok {
		return
	}
	root.Walk(func(n *ast.Node) bool {
		if n == root {
			return true
		}
		fix, ok := table[n.Name]
		if !ok {
			return true
		}
		n.Type = fix.Type
		if !fix.KeepName {
			n.Name = fix.Name
			n.QualifiedName = fix.Name
		}
		return true
	})
}
