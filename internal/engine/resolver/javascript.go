package resolver

import (
	"strings"

	"treescope/internal/ast"
	"treescope/internal/engine/parser"
)

// resolveJavaScript covers both JavaScript and TypeScript: `this.`
// members through the enclosing class, dotted member access, then the
// generic strategy.
func (r *Resolver) resolveJavaScript(sess *parser.ParseSession, ref *parser.PendingRef) (ast.ResolutionStatus, *ast.Node) {
	if ref.Kind == ast.RefInclude {
		delegated := *ref
		delegated.Name = trimModulePath(ref.Name)
		return r.resolveInclude(sess, &delegated)
	}

	name := ref.Name
	if field, ok := strings.CutPrefix(name, "this."); ok {
		return r.resolveThisMember(ref, field)
	}
	if base, field, ok := splitMemberAccess(name); ok {
		return r.resolveMember(sess, base, field)
	}
	return r.resolveGeneric(sess, ref, ".")
}

func (r *Resolver) resolveThisMember(ref *parser.PendingRef, field string) (ast.ResolutionStatus, *ast.Node) {
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

// trimModulePath reduces `./lib/util.js` or `node:path` to a name an
// in-project file root could be registered under.
func trimModulePath(target string) string {
	target = strings.TrimPrefix(target, "node:")
	for strings.HasPrefix(target, "./") || strings.HasPrefix(target, "../") {
		target = strings.TrimPrefix(target, "./")
		target = strings.TrimPrefix(target, "../")
	}
	return target
}
