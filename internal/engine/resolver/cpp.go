package resolver

import (
	"strings"

	"treescope/internal/ast"
	"treescope/internal/engine/parser"
)

// resolveCpp handles the C++-only shapes (template arguments, explicit
// global qualification, namespace-qualified names) and then delegates
// everything C and C++ share to the C strategy. The delegation is one
// way, so it cannot loop.
func (r *Resolver) resolveCpp(sess *parser.ParseSession, ref *parser.PendingRef) (ast.ResolutionStatus, *ast.Node) {
	name := stripTemplateArgs(ref.Name)

	if strings.HasPrefix(name, "::") {
		return r.pick(sess, r.table.Lookup(strings.TrimPrefix(name, "::")))
	}

	if strings.Contains(name, "::") {
		if status, target := r.pick(sess, r.table.Lookup(name)); status != ast.StatusNotFound {
			return status, target
		}
		idx := strings.LastIndex(name, "::")
		if status, target := r.resolveMember(sess, name[:idx], name[idx+2:]); status == ast.StatusSuccess {
			return status, target
		}
		return ast.StatusNotFound, nil
	}

	delegated := *ref
	delegated.Name = name
	return r.resolveC(sess, &delegated)
}

// stripTemplateArgs reduces `vector<int>` to `vector` so template
// instantiations resolve against the primary declaration.
func stripTemplateArgs(name string) string {
	if idx := strings.Index(name, "<"); idx > 0 {
		return name[:idx]
	}
	return name
}
