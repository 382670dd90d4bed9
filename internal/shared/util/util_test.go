package util

import "testing"

func TestNormalizePatternPath(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "Empty", input: "", expected: ""},
		{name: "Dot", input: ".", expected: ""},
		{name: "Trim", input: "  ./src/main.c  ", expected: "src/main.c"},
		{name: "Relative", input: "src/../include", expected: "include"},
		{name: "Backslashes", input: "src\\parser\\ast.c", expected: "src/parser/ast.c"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := NormalizePatternPath(tc.input); got != tc.expected {
				t.Fatalf("expected %q, got %q", tc.expected, got)
			}
		})
	}
}

func TestHasPathPrefix(t *testing.T) {
	t.Parallel()

	if !HasPathPrefix("src/parser/ast.c", "src/parser") {
		t.Error("expected src/parser to contain src/parser/ast.c")
	}
	if HasPathPrefix("src/parserx/ast.c", "src/parser") {
		t.Error("sibling directory must not match as prefix")
	}
	if !HasPathPrefix("src", "src") {
		t.Error("path equal to prefix should match")
	}
}

func TestSortedStringKeys(t *testing.T) {
	t.Parallel()

	m := map[string]int{"c": 1, "a": 2, "b": 3}
	keys := SortedStringKeys(m)
	if len(keys) != 3 || keys[0] != "a" || keys[1] != "b" || keys[2] != "c" {
		t.Fatalf("unexpected ordering: %v", keys)
	}
}
