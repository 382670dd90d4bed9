package resolver

import (
	"path/filepath"

	"treescope/internal/ast"
	"treescope/internal/engine/parser"
)

// resolveGeneric is the terminal, language-agnostic strategy: exact
// lookup first, then the lexical scope chain.
func (r *Resolver) resolveGeneric(sess *parser.ParseSession, ref *parser.PendingRef, sep string) (ast.ResolutionStatus, *ast.Node) {
	if ref.Kind == ast.RefInclude {
		return r.resolveInclude(sess, ref)
	}
	if ref.Name == "" {
		return ast.StatusError, nil
	}

	status, target := r.pick(sess, r.table.Lookup(ref.Name))
	if status == ast.StatusSuccess {
		return status, target
	}
	if chainStatus, chainTarget := r.scopeChain(sess, ref, ref.Name, sep); chainStatus == ast.StatusSuccess {
		return chainStatus, chainTarget
	}
	// an ambiguous exact match the scope chain could not settle stays
	// ambiguous
	return status, nil
}

// resolveInclude binds an include or import directive to a project file
// root. System headers and external modules have no root registered and
// come back NotFound, which the caller counts silently.
func (r *Resolver) resolveInclude(sess *parser.ParseSession, ref *parser.PendingRef) (ast.ResolutionStatus, *ast.Node) {
	for _, name := range includeCandidates(ref.Name) {
		candidates := filterEntries(r.table.Lookup(name), func(e SymbolEntry) bool {
			return e.Node.Type == ast.NodeRoot
		})
		if len(candidates) == 0 {
			continue
		}

		status, target := r.pick(sess, candidates)
		if status != ast.StatusSuccess {
			return status, nil
		}
		if target.FilePath == sess.Path {
			return ast.StatusCircular, nil
		}
		return ast.StatusSuccess, target
	}
	return ast.StatusNotFound, nil
}

// includeCandidates lists the names an include target may be registered
// under: the raw path, its basename, and common source extensions for
// extensionless module imports.
func includeCandidates(target string) []string {
	out := []string{target}
	if base := filepath.Base(target); base != target {
		out = append(out, base)
	}
	if filepath.Ext(target) == "" {
		base := filepath.Base(target)
		for _, ext := range []string{".py", ".js", ".ts", ".h"} {
			out = append(out, base+ext)
		}
	}
	return out
}
