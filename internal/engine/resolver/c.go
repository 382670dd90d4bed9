package resolver

import (
	"strings"

	"treescope/internal/ast"
	"treescope/internal/engine/parser"
)

// resolveC handles includes, struct member access through `s.f` and
// `p->f`, and plain identifiers.
func (r *Resolver) resolveC(sess *parser.ParseSession, ref *parser.PendingRef) (ast.ResolutionStatus, *ast.Node) {
	if ref.Kind == ast.RefInclude {
		return r.resolveInclude(sess, ref)
	}

	if base, field, ok := splitMemberAccess(ref.Name); ok {
		return r.resolveMember(sess, base, field)
	}

	return r.resolveGeneric(sess, ref, "::")
}

// resolveMember resolves the container type first, then searches its
// children for the field or method name. A base that resolves to
// something without members (a variable, typically) is NotSupported:
// member resolution through value types needs type inference this
// resolver does not do.
func (r *Resolver) resolveMember(sess *parser.ParseSession, base, field string) (ast.ResolutionStatus, *ast.Node) {
	status, container := r.pick(sess, r.table.Lookup(base))
	if status != ast.StatusSuccess {
		return status, nil
	}

	switch container.Type {
	case ast.NodeStruct, ast.NodeUnion, ast.NodeClass, ast.NodeInterface, ast.NodeEnum, ast.NodeNamespace, ast.NodeModule, ast.NodeRoot:
	default:
		return ast.StatusNotSupported, nil
	}

	for _, child := range container.Children {
		if child.Name == field {
			return ast.StatusSuccess, child
		}
	}
	return ast.StatusNotFound, nil
}

// splitMemberAccess breaks `s.f` or `p->f` into container and member.
// The split is at the last accessor so chained access resolves against
// the innermost container name.
func splitMemberAccess(name string) (base, field string, ok bool) {
	if idx := strings.LastIndex(name, "->"); idx > 0 {
		return name[:idx], name[idx+2:], true
	}
	if idx := strings.LastIndex(name, "."); idx > 0 && idx < len(name)-1 {
		return name[:idx], name[idx+1:], true
	}
	return "", "", false
}
