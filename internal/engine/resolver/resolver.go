// # internal/engine/resolver/resolver.go
package resolver

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"treescope/internal/ast"
	"treescope/internal/engine/parser"
	"treescope/internal/shared/observability"
)

// Stats counts resolution outcomes. NotFound, Ambiguous and NotSupported
// are expected results of heuristic resolution, not failures.
type Stats struct {
	Success      int
	NotFound     int
	Ambiguous    int
	Circular     int
	Errors       int
	NotSupported int
}

func (s Stats) Total() int {
	return s.Success + s.NotFound + s.Ambiguous + s.Circular + s.Errors + s.NotSupported
}

// Resolver binds pending references against a frozen symbol table.
// Dispatch is a closed switch over language tags; delegation between
// strategies only ever moves toward the generic resolver, so it
// terminates by construction.
type Resolver struct {
	table *SymbolTable
	log   *slog.Logger
	stats Stats
}

func New(table *SymbolTable, log *slog.Logger) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{table: table, log: log}
}

func (r *Resolver) Stats() Stats {
	return r.stats
}

// ResolveSession resolves every pending reference of one file. Outcomes
// land on the reference graph (success) or in the statistics (the rest).
// The resolver owns the reference edges: earlier passes' edges are
// discarded first, so re-resolution after a project change replaces the
// graph instead of accumulating duplicates and stale targets.
func (r *Resolver) ResolveSession(sess *parser.ParseSession) {
	if sess == nil {
		return
	}
	timer := prometheus.NewTimer(observability.ResolutionDuration)
	defer timer.ObserveDuration()

	for i := range sess.PendingRefs {
		ref := &sess.PendingRefs[i]
		ref.Status = ast.StatusUnresolved
		if ref.From != nil {
			ref.From.Refs = nil
		}
	}
	for i := range sess.PendingRefs {
		r.resolve(sess, &sess.PendingRefs[i])
	}
}

func (r *Resolver) resolve(sess *parser.ParseSession, ref *parser.PendingRef) {
	var status ast.ResolutionStatus
	var target *ast.Node

	switch sess.Language {
	case "c":
		status, target = r.resolveC(sess, ref)
	case "cpp":
		status, target = r.resolveCpp(sess, ref)
	case "python":
		status, target = r.resolvePython(sess, ref)
	case "javascript", "typescript":
		status, target = r.resolveJavaScript(sess, ref)
	default:
		status, target = r.resolveGeneric(sess, ref, ".")
	}

	r.record(sess, ref, status, target)
}

func (r *Resolver) record(sess *parser.ParseSession, ref *parser.PendingRef, status ast.ResolutionStatus, target *ast.Node) {
	observability.ResolutionOutcomes.WithLabelValues(status.String()).Inc()
	ref.Status = status

	switch status {
	case ast.StatusSuccess:
		r.stats.Success++
		if ref.From != nil && target != nil {
			ref.From.AddReference(target, ast.ReferenceMetadata{
				Kind:       ref.Kind,
				SourceFile: sess.Path,
				TargetFile: target.FilePath,
				Status:     status,
			})
		}
	case ast.StatusNotFound:
		r.stats.NotFound++
	case ast.StatusAmbiguous:
		r.stats.Ambiguous++
	case ast.StatusCircular:
		r.stats.Circular++
	case ast.StatusNotSupported:
		r.stats.NotSupported++
	default:
		r.stats.Errors++
		r.log.Debug("reference resolution error",
			"file", sess.Path,
			"name", ref.Name)
	}
}

// pick narrows candidate entries: a single candidate wins outright;
// several collapse by same-language then same-file preference; anything
// still plural is ambiguous.
func (r *Resolver) pick(sess *parser.ParseSession, candidates []SymbolEntry) (ast.ResolutionStatus, *ast.Node) {
	switch len(candidates) {
	case 0:
		return ast.StatusNotFound, nil
	case 1:
		return ast.StatusSuccess, candidates[0].Node
	}

	narrowed := filterEntries(candidates, func(e SymbolEntry) bool { return e.Language == sess.Language })
	if len(narrowed) == 0 {
		narrowed = candidates
	}
	if len(narrowed) == 1 {
		return ast.StatusSuccess, narrowed[0].Node
	}
	sameFile := filterEntries(narrowed, func(e SymbolEntry) bool { return e.File == sess.Path })
	if len(sameFile) == 1 {
		return ast.StatusSuccess, sameFile[0].Node
	}
	return ast.StatusAmbiguous, nil
}

func filterEntries(entries []SymbolEntry, keep func(SymbolEntry) bool) []SymbolEntry {
	var out []SymbolEntry
	for _, e := range entries {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

// scopeChain probes scope-qualified variants of the name, walking the
// referencing node's enclosing qualified names from the innermost scope
// outward.
func (r *Resolver) scopeChain(sess *parser.ParseSession, ref *parser.PendingRef, name, sep string) (ast.ResolutionStatus, *ast.Node) {
	for scope := ref.From; scope != nil; scope = scope.Parent {
		if scope.QualifiedName == "" || scope.Type == ast.NodeRoot {
			continue
		}
		if status, target := r.pick(sess, r.table.Lookup(scope.QualifiedName+sep+name)); status == ast.StatusSuccess {
			return status, target
		}
	}
	return ast.StatusNotFound, nil
}
