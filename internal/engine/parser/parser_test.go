// # internal/engine/parser/parser_test.go
package parser

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"treescope/internal/ast"
	"treescope/internal/core/config"
	"treescope/internal/core/errors"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	loader, err := NewGrammarLoader(DefaultLanguageRegistry())
	if err != nil {
		t.Fatalf("NewGrammarLoader: %v", err)
	}
	return NewEngine(loader, Options{})
}

func parseC(t *testing.T, src string) *ParseSession {
	t.Helper()
	sess, err := testEngine(t).ParseFile(context.Background(), "test.c", []byte(src), ModeAST)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	t.Cleanup(func() { sess.Close() })
	return sess
}

func TestDetectLanguage(t *testing.T) {
	e := testEngine(t)

	cases := map[string]string{
		"main.c":      "c",
		"widget.hpp":  "cpp",
		"app.py":      "python",
		"index.js":    "javascript",
		"lib.ts":      "typescript",
		"server.go":   "go",
		"README.md":   "",
		"Makefile":    "",
		"legacy.java": "", // disabled by default
	}
	for path, want := range cases {
		if got := e.DetectLanguage(path); got != want {
			t.Errorf("DetectLanguage(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestBuildLanguageRegistry(t *testing.T) {
	enabled := true
	registry, err := BuildLanguageRegistry(map[string]config.Language{
		"java": {Enabled: &enabled},
		"c":    {Extensions: []string{".c", ".h", ".inc"}},
	})
	if err != nil {
		t.Fatalf("BuildLanguageRegistry: %v", err)
	}
	if !registry["java"].Enabled {
		t.Error("java should be enabled by the override")
	}
	found := false
	for _, ext := range registry["c"].Extensions {
		if ext == ".inc" {
			found = true
		}
	}
	if !found {
		t.Errorf("c extensions missing .inc: %v", registry["c"].Extensions)
	}

	if _, err := BuildLanguageRegistry(map[string]config.Language{"cobol": {}}); err == nil {
		t.Error("unknown language key should be rejected")
	}
}

func TestQueryManagerCache(t *testing.T) {
	loader, err := NewGrammarLoader(DefaultLanguageRegistry())
	if err != nil {
		t.Fatal(err)
	}
	qm := NewQueryManager(loader, "")

	first, err := qm.Get("c", "functions")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	second, err := qm.Get("c", "functions")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if first != second {
		t.Error("second Get should return the cached query")
	}

	if _, err := qm.Get("c", "interfaces"); !errors.IsCode(err, errors.CodeNotFound) {
		t.Errorf("missing category should be NOT_FOUND, got %v", err)
	}
}

func TestSessionCloseExactlyOnce(t *testing.T) {
	sess := newSession("a.c", "c", ModeAST, slog.Default())
	if err := sess.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	err := sess.Close()
	if err == nil {
		t.Fatal("second Close should be refused")
	}
	if !errors.IsCode(err, errors.CodeConflict) {
		t.Fatalf("second Close error = %v, want CONFLICT", err)
	}
}

func TestDetachRootSurvivesClose(t *testing.T) {
	sess := parseC(t, "int answer(void) { return 42; }\n")

	root := sess.DetachRoot()
	if err := sess.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if root == nil {
		t.Fatal("DetachRoot returned nil")
	}
	if len(root.Children) != 1 || root.Children[0].Name != "answer" {
		t.Fatalf("detached tree lost its children: %+v", root.Children)
	}
	if sess.Root != nil {
		t.Error("session should no longer hold the root")
	}
}

func TestParseFileUnsupported(t *testing.T) {
	_, err := testEngine(t).ParseFile(context.Background(), "notes.txt", []byte("hello"), ModeAST)
	if !errors.IsCode(err, errors.CodeNotSupported) {
		t.Fatalf("err = %v, want NOT_SUPPORTED", err)
	}
}

func TestParseEmptyInput(t *testing.T) {
	sess := parseC(t, "")
	if sess.Root == nil {
		t.Fatal("empty input should still produce a root")
	}
	if len(sess.Root.Children) != 0 {
		t.Fatalf("empty input produced %d children", len(sess.Root.Children))
	}
}

func TestParseFileAST(t *testing.T) {
	src := `/* Geometry helpers. */
#include <math.h>
#include "shapes.h"

struct Point {
    int x;
    int y;
};

/* Euclidean distance from origin. */
double norm(struct Point p) {
    return sqrt((double)(p.x * p.x + p.y * p.y));
}
`
	sess := parseC(t, src)
	root := sess.Root

	if root.Docstring != "Geometry helpers." {
		t.Errorf("root docstring = %q", root.Docstring)
	}

	// Includes land before declarations after reordering.
	if len(root.Children) < 3 {
		t.Fatalf("expected includes + struct + function, got %d children", len(root.Children))
	}
	if root.Children[0].Type != ast.NodeInclude || root.Children[1].Type != ast.NodeInclude {
		t.Errorf("first children should be includes, got %v %v", root.Children[0].Type, root.Children[1].Type)
	}

	point := sess.ByQualifiedName["Point"]
	if point == nil || point.Type != ast.NodeStruct {
		t.Fatalf("Point not extracted as struct: %+v", point)
	}

	norm := sess.ByQualifiedName["norm"]
	if norm == nil || norm.Type != ast.NodeFunction {
		t.Fatalf("norm not extracted as function: %+v", norm)
	}
	if !strings.HasPrefix(norm.Signature, "norm(") {
		t.Errorf("norm signature = %q", norm.Signature)
	}
	if norm.Docstring != "Euclidean distance from origin." {
		t.Errorf("norm docstring = %q", norm.Docstring)
	}

	// Comments are consumed by association, never kept as nodes.
	for _, child := range root.Children {
		if child.Type == ast.NodeComment || child.Type == ast.NodeDocstring {
			t.Errorf("comment node survived post-processing: %+v", child)
		}
	}

	if len(sess.Dependencies) != 2 {
		t.Errorf("Dependencies = %v, want math.h and shapes.h", sess.Dependencies)
	}
	if len(sess.Index[ast.NodeInclude]) != 2 {
		t.Errorf("include index has %d entries", len(sess.Index[ast.NodeInclude]))
	}
}

func TestParseFileCollectsCallRefs(t *testing.T) {
	src := `int helper(int x) { return x; }
int main(void) { return helper(1); }
`
	sess := parseC(t, src)

	var calls []string
	for _, ref := range sess.PendingRefs {
		if ref.Kind == ast.RefCall {
			calls = append(calls, ref.Name)
			if ref.From == nil || ref.From.Name != "main" {
				t.Errorf("call %q should originate from main, got %+v", ref.Name, ref.From)
			}
		}
	}
	if len(calls) != 1 || calls[0] != "helper" {
		t.Errorf("collected calls = %v, want [helper]", calls)
	}
}

func TestCppQualifiedDefinitionIsMethod(t *testing.T) {
	src := `namespace geo {
class Shape {
public:
    double area();
};
}

double geo::Shape::area() { return 0.0; }
`
	sess, err := testEngine(t).ParseFile(context.Background(), "shape.cpp", []byte(src), ModeAST)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	defer sess.Close()

	ns := sess.ByQualifiedName["geo"]
	if ns == nil || ns.Type != ast.NodeNamespace {
		t.Fatalf("geo namespace not extracted: %+v", ns)
	}
	cls := sess.ByQualifiedName["geo::Shape"]
	if cls == nil || cls.Type != ast.NodeClass {
		t.Fatalf("Shape not nested under geo: %+v", cls)
	}

	var outOfLine *ast.Node
	for _, n := range sess.Index[ast.NodeMethod] {
		if n.Name == "geo::Shape::area" {
			outOfLine = n
		}
	}
	if outOfLine == nil {
		t.Fatal("out-of-line definition should be typed as a method")
	}
}

func TestParseFileCST(t *testing.T) {
	src := "int x = 1;\n"
	sess, err := testEngine(t).ParseFile(context.Background(), "x.c", []byte(src), ModeCST)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	defer sess.Close()

	if sess.CSTRoot == nil {
		t.Fatal("CST mode should produce a concrete tree")
	}
	if sess.Root != nil {
		t.Error("CST mode should not build a normalized tree")
	}
	if sess.CSTRoot.Type != "translation_unit" {
		t.Errorf("CST root kind = %q", sess.CSTRoot.Type)
	}
	if sess.CSTRoot.Count() < 5 {
		t.Errorf("CST suspiciously small: %d nodes", sess.CSTRoot.Count())
	}
}

func TestMappingOverride(t *testing.T) {
	loader, err := NewGrammarLoader(DefaultLanguageRegistry())
	if err != nil {
		t.Fatal(err)
	}
	e := NewEngine(loader, Options{
		Mapping: map[string]string{"variables": "CONSTANT"},
	})
	sess, err := e.ParseFile(context.Background(), "v.c", []byte("int limit = 10;\n"), ModeAST)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	defer sess.Close()

	n := sess.ByQualifiedName["limit"]
	if n == nil {
		t.Fatal("limit not extracted")
	}
	if n.Type != ast.NodeConstant {
		t.Errorf("mapped type = %v, want CONSTANT", n.Type)
	}
}

func TestParseDegradedWhenNoPatternsLoad(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "c"), 0o755); err != nil {
		t.Fatal(err)
	}
	for _, category := range Categories() {
		bad := filepath.Join(dir, "c", category+".scm")
		if err := os.WriteFile(bad, []byte("((\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	loader, err := NewGrammarLoader(DefaultLanguageRegistry())
	if err != nil {
		t.Fatal(err)
	}
	e := NewEngine(loader, Options{QueryDir: dir})

	sess, err := e.ParseFile(context.Background(), "test.c", []byte("int main(void) { return 0; }\n"), ModeAST)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	defer sess.Close()

	if sess.LastError == nil {
		t.Fatal("every pattern set failed to load, expected the session to be marked degraded")
	}
	if !errors.IsCode(sess.LastError, errors.CodeParseFailed) {
		t.Errorf("LastError = %v, want PARSE_FAILED", sess.LastError)
	}
	if len(sess.Root.Children) != 0 {
		t.Errorf("degraded extraction produced children: %d", len(sess.Root.Children))
	}
}
