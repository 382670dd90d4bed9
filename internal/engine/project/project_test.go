// # internal/engine/project/project_test.go
package project

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"treescope/internal/ast"
	"treescope/internal/engine/parser"
)

func newTestEngine(t *testing.T) *parser.Engine {
	t.Helper()
	loader, err := parser.NewGrammarLoader(parser.DefaultLanguageRegistry())
	if err != nil {
		t.Fatalf("NewGrammarLoader: %v", err)
	}
	return parser.NewEngine(loader, parser.Options{})
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestScanResolvesAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "util.c", "int helper(int x) { return x * 2; }\n")
	mainPath := writeFile(t, dir, "main.c", "int main(void) { return helper(21); }\n")

	proj, err := New(newTestEngine(t), ProjectOptions{Roots: []string{dir}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer proj.Close()

	if err := proj.Scan(context.Background()); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if proj.FailedFiles() != 0 {
		t.Fatalf("FailedFiles = %d, want 0", proj.FailedFiles())
	}
	if proj.Stats().Success < 1 {
		t.Fatalf("Stats().Success = %d, want >= 1", proj.Stats().Success)
	}

	sess := proj.Session(mainPath)
	if sess == nil {
		t.Fatal("no session for main.c")
	}
	mainFn := sess.ByQualifiedName["main"]
	if mainFn == nil {
		t.Fatal("main not extracted")
	}
	var found bool
	for _, ref := range mainFn.Refs {
		if ref.Target != nil && ref.Target.Name == "helper" {
			if ref.Meta.Status != ast.StatusSuccess {
				t.Fatalf("helper ref status = %v, want success", ref.Meta.Status)
			}
			if filepath.Base(ref.Meta.TargetFile) != "util.c" {
				t.Fatalf("helper resolved in %q, want util.c", ref.Meta.TargetFile)
			}
			found = true
		}
	}
	if !found {
		t.Fatal("call to helper was not resolved onto main")
	}
}

func TestScanSkipsExcludedAndUnsupported(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "keep.c", "int kept(void) { return 0; }\n")
	writeFile(t, dir, "vendor/skip.c", "int skipped(void) { return 0; }\n")
	writeFile(t, dir, "ignore_me.c", "int ignored(void) { return 0; }\n")
	writeFile(t, dir, "notes.txt", "not source\n")

	proj, err := New(newTestEngine(t), ProjectOptions{
		Roots:        []string{dir},
		ExcludeDirs:  []string{"vendor"},
		ExcludeFiles: []string{"ignore_*"},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer proj.Close()

	if err := proj.Scan(context.Background()); err != nil {
		t.Fatalf("Scan: %v", err)
	}

	paths := proj.Paths()
	if len(paths) != 1 {
		t.Fatalf("Paths() = %v, want only keep.c", paths)
	}
	if filepath.Base(paths[0]) != "keep.c" {
		t.Fatalf("Paths()[0] = %q, want keep.c", paths[0])
	}
}

func TestScanSurvivesUnreadableFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "good.c", "int good(void) { return 0; }\n")
	bad := writeFile(t, dir, "bad.c", "int bad(void) { return 0; }\n")
	if err := os.Chmod(bad, 0o000); err != nil {
		t.Skipf("chmod not effective: %v", err)
	}
	if _, err := os.ReadFile(bad); err == nil {
		t.Skip("file still readable, cannot exercise read failure")
	}

	proj, err := New(newTestEngine(t), ProjectOptions{Roots: []string{dir}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer proj.Close()

	if err := proj.Scan(context.Background()); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if proj.FailedFiles() != 1 {
		t.Fatalf("FailedFiles = %d, want 1", proj.FailedFiles())
	}
	if got := proj.Session(filepath.Join(dir, "good.c")); got == nil {
		t.Fatal("good.c should still be parsed")
	}
}

func TestUpdateFileReresolves(t *testing.T) {
	dir := t.TempDir()
	utilPath := writeFile(t, dir, "util.c", "int other(void) { return 0; }\n")
	mainPath := writeFile(t, dir, "main.c", "int main(void) { return helper(21); }\n")

	proj, err := New(newTestEngine(t), ProjectOptions{Roots: []string{dir}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer proj.Close()

	if err := proj.Scan(context.Background()); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if proj.Stats().NotFound < 1 {
		t.Fatalf("expected helper to be unresolved before the edit, stats %+v", proj.Stats())
	}

	writeFile(t, dir, "util.c", "int helper(int x) { return x * 2; }\n")
	if err := proj.UpdateFile(context.Background(), utilPath); err != nil {
		t.Fatalf("UpdateFile: %v", err)
	}

	mainFn := proj.Session(mainPath).ByQualifiedName["main"]
	if mainFn == nil {
		t.Fatal("main not extracted")
	}
	var resolved bool
	for _, ref := range mainFn.Refs {
		if ref.Target != nil && ref.Target.Name == "helper" {
			resolved = true
		}
	}
	if !resolved {
		t.Fatal("helper should resolve after the defining file is updated")
	}
}

func TestUpdateFileReplacesReferenceEdges(t *testing.T) {
	dir := t.TempDir()
	utilPath := writeFile(t, dir, "util.c", "int helper(int x) { return x * 2; }\n")
	mainPath := writeFile(t, dir, "main.c", "int main(void) { return helper(21); }\n")

	proj, err := New(newTestEngine(t), ProjectOptions{Roots: []string{dir}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer proj.Close()

	if err := proj.Scan(context.Background()); err != nil {
		t.Fatalf("Scan: %v", err)
	}

	writeFile(t, dir, "util.c", "int helper(int x) { return x + 1; }\n")
	if err := proj.UpdateFile(context.Background(), utilPath); err != nil {
		t.Fatalf("UpdateFile: %v", err)
	}
	writeFile(t, dir, "util.c", "int helper(int x) { return x; }\n")
	if err := proj.UpdateFile(context.Background(), utilPath); err != nil {
		t.Fatalf("UpdateFile: %v", err)
	}

	mainFn := proj.Session(mainPath).ByQualifiedName["main"]
	if mainFn == nil {
		t.Fatal("main not extracted")
	}
	var edges []*ast.Node
	for _, ref := range mainFn.Refs {
		if ref.Target != nil && ref.Target.Name == "helper" {
			edges = append(edges, ref.Target)
		}
	}
	if len(edges) != 1 {
		t.Fatalf("main has %d edges to helper after updates, want 1", len(edges))
	}
	current := proj.Session(utilPath).ByQualifiedName["helper"]
	if current == nil {
		t.Fatal("helper not extracted from updated util.c")
	}
	if edges[0] != current {
		t.Fatal("reference edge still targets a node of the replaced session")
	}
}

func TestRemoveFileForgetsSymbols(t *testing.T) {
	dir := t.TempDir()
	utilPath := writeFile(t, dir, "util.c", "int helper(int x) { return x; }\n")
	writeFile(t, dir, "main.c", "int main(void) { return helper(1); }\n")

	proj, err := New(newTestEngine(t), ProjectOptions{Roots: []string{dir}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer proj.Close()

	if err := proj.Scan(context.Background()); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	before := proj.SymbolCount()

	proj.RemoveFile(context.Background(), utilPath)
	if proj.Session(utilPath) != nil {
		t.Fatal("removed file still has a session")
	}
	if proj.SymbolCount() >= before {
		t.Fatalf("SymbolCount = %d, want fewer than %d after removal", proj.SymbolCount(), before)
	}
}

func TestSymbolStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := OpenSymbolStore(filepath.Join(dir, "symbols.db"), "test")
	if err != nil {
		t.Fatalf("OpenSymbolStore: %v", err)
	}
	defer store.Close()

	root := ast.New(ast.NodeRoot, "point.c")
	point := ast.New(ast.NodeStruct, "Point")
	point.QualifiedName = "Point"
	point.Range = ast.SourceRange{
		Start: ast.SourceLocation{Line: 2},
		End:   ast.SourceLocation{Line: 5},
	}
	point.Docstring = "A 2D point."
	if err := root.AddChild(point); err != nil {
		t.Fatalf("AddChild: %v", err)
	}

	if err := store.ReplaceFile("src/point.c", "c", root); err != nil {
		t.Fatalf("ReplaceFile: %v", err)
	}

	recs, err := store.Lookup("Point")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("Lookup returned %d rows, want 1", len(recs))
	}
	rec := recs[0]
	if rec.Kind != "STRUCT" || rec.File != "src/point.c" || rec.StartLine != 2 || rec.Docstring != "A 2D point." {
		t.Fatalf("unexpected record %+v", rec)
	}

	// Replacing the file drops rows that are no longer declared.
	empty := ast.New(ast.NodeRoot, "point.c")
	if err := store.ReplaceFile("src/point.c", "c", empty); err != nil {
		t.Fatalf("ReplaceFile empty: %v", err)
	}
	recs, err = store.Lookup("Point")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if len(recs) != 0 {
		t.Fatalf("Lookup after replace returned %d rows, want 0", len(recs))
	}
}

func TestSymbolStorePrune(t *testing.T) {
	dir := t.TempDir()
	store, err := OpenSymbolStore(filepath.Join(dir, "symbols.db"), "")
	if err != nil {
		t.Fatalf("OpenSymbolStore: %v", err)
	}
	defer store.Close()

	for _, name := range []string{"a.c", "b.c"} {
		root := ast.New(ast.NodeRoot, name)
		fn := ast.New(ast.NodeFunction, "run")
		fn.Range = ast.SourceRange{Start: ast.SourceLocation{Line: 1}, End: ast.SourceLocation{Line: 3}}
		if err := root.AddChild(fn); err != nil {
			t.Fatalf("AddChild: %v", err)
		}
		if err := store.ReplaceFile(name, "c", root); err != nil {
			t.Fatalf("ReplaceFile %s: %v", name, err)
		}
	}

	if err := store.PruneToPaths([]string{"a.c"}); err != nil {
		t.Fatalf("PruneToPaths: %v", err)
	}
	recs, err := store.Lookup("run")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if len(recs) != 1 || recs[0].File != "a.c" {
		t.Fatalf("Lookup after prune = %+v, want only a.c", recs)
	}
}
