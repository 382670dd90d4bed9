package resolver

import (
	"strings"

	"treescope/internal/ast"
	"treescope/internal/engine/parser"
)

// resolvePython adds `self.`-attribute lookup through the enclosing
// class before falling back to dotted member access and the generic
// strategy.
func (r *Resolver) resolvePython(sess *parser.ParseSession, ref *parser.PendingRef) (ast.ResolutionStatus, *ast.Node) {
	if ref.Kind == ast.RefInclude {
		return r.resolveInclude(sess, ref)
	}

	name := ref.Name
	if field, ok := strings.CutPrefix(name, "self."); ok {
		return r.resolveSelfAttr(ref, field)
	}
	if base, field, ok := splitMemberAccess(name); ok {
		return r.resolveMember(sess, base, field)
	}
	return r.resolveGeneric(sess, ref, ".")
}

func (r *Resolver) resolveSelfAttr(ref *parser.PendingRef, field string) (ast.ResolutionStatus, *ast.Node) {
	for scope := ref.From; scope != nil; scope = scope.Parent {
		if scope.Type != ast.NodeClass {
			continue
		}
		for _, child := range scope.Children {
			if child.Name == field {
				return ast.StatusSuccess, child
			}
		}
		return ast.StatusNotFound, nil
	}
	return ast.StatusNotFound, nil
}
