// # internal/engine/resolver/symtab.go
package resolver

import (
	"path/filepath"

	"treescope/internal/ast"
	"treescope/internal/engine/parser"
	"treescope/internal/shared/observability"
)

// SymbolEntry points at one declaration. Entries never own their node;
// the session that produced the AST must outlive the table.
type SymbolEntry struct {
	Name         string
	Node         *ast.Node
	Language     string
	IsDefinition bool
	File         string
}

// SymbolTable is the project-wide name index. The same name may be
// declared in several files or languages; lookup returns all of them and
// resolution disambiguates.
type SymbolTable struct {
	entries map[string][]SymbolEntry
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{entries: make(map[string][]SymbolEntry)}
}

func (t *SymbolTable) Add(entry SymbolEntry) {
	if entry.Name == "" || entry.Node == nil {
		return
	}
	t.entries[entry.Name] = append(t.entries[entry.Name], entry)
	observability.SymbolTableSize.Set(float64(t.Len()))
}

func (t *SymbolTable) Lookup(name string) []SymbolEntry {
	return t.entries[name]
}

func (t *SymbolTable) Len() int {
	total := 0
	for _, entries := range t.entries {
		total += len(entries)
	}
	return total
}

// AddSession indexes every named declaration of a parsed file. The file
// root itself registers under both its path and basename so include
// directives can find it either way.
func (t *SymbolTable) AddSession(sess *parser.ParseSession) {
	if sess == nil || sess.Root == nil {
		return
	}

	root := sess.Root
	t.Add(SymbolEntry{Name: sess.Path, Node: root, Language: sess.Language, IsDefinition: true, File: sess.Path})
	if base := filepath.Base(sess.Path); base != sess.Path {
		t.Add(SymbolEntry{Name: base, Node: root, Language: sess.Language, IsDefinition: true, File: sess.Path})
	}

	root.Walk(func(n *ast.Node) bool {
		if n == root {
			return true
		}
		switch n.Type {
		case ast.NodeInclude, ast.NodeComment, ast.NodeDocstring, ast.NodeUnknown:
			return true
		}
		if n.Name != "" {
			t.Add(SymbolEntry{Name: n.Name, Node: n, Language: sess.Language, IsDefinition: true, File: sess.Path})
		}
		if n.QualifiedName != "" && n.QualifiedName != n.Name {
			t.Add(SymbolEntry{Name: n.QualifiedName, Node: n, Language: sess.Language, IsDefinition: true, File: sess.Path})
		}
		return true
	})
}
