// # internal/engine/parser/session.go
package parser

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
	sitter "github.com/tree-sitter/go-tree-sitter"

	"treescope/internal/ast"
	"treescope/internal/core/errors"
	"treescope/internal/shared/observability"
)

type Mode uint8

const (
	ModeAST Mode = iota
	ModeCST
)

// PendingRef is a by-name reference collected during extraction, waiting
// for a resolution pass to bind it to a declaration.
type PendingRef struct {
	From  *ast.Node
	Name  string
	Kind  ast.RefKind
	Range ast.SourceRange

	// Status is filled in by the resolution pass.
	Status ast.ResolutionStatus
}

// ParseSession is the unit of parser output for one file. It owns the
// native parse tree until Close; the normalized tree and everything else
// on it is plain Go data and outlives Close.
type ParseSession struct {
	ID       string
	Path     string
	Language string
	Mode     Mode

	Root    *ast.Node
	CSTRoot *ast.CSTNode

	Index           map[ast.NodeType][]*ast.Node
	ByQualifiedName map[string]*ast.Node

	PendingRefs  []PendingRef
	Dependencies []string
	LastError    error

	mu     sync.Mutex
	tree   *sitter.Tree
	closed bool
	log    *slog.Logger
}

func newSession(path, language string, mode Mode, log *slog.Logger) *ParseSession {
	if log == nil {
		log = slog.Default()
	}
	observability.OpenSessions.Inc()
	return &ParseSession{
		ID:              uuid.NewString(),
		Path:            path,
		Language:        language,
		Mode:            mode,
		Index:           make(map[ast.NodeType][]*ast.Node),
		ByQualifiedName: make(map[string]*ast.Node),
		log:             log,
	}
}

func (s *ParseSession) adoptTree(tree *sitter.Tree) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tree = tree
}

// Close releases the native parse tree exactly once. A second call is
// refused and logged instead of touching freed memory.
func (s *ParseSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		s.log.Warn("parse session closed twice",
			"session", s.ID,
			"path", s.Path)
		return errors.New(errors.CodeConflict, "parse session already closed").
			WithContext(errors.CtxPath, s.Path)
	}
	s.closed = true

	if s.tree != nil {
		s.tree.Close()
		s.tree = nil
	}
	observability.OpenSessions.Dec()
	return nil
}

func (s *ParseSession) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// DetachRoot transfers the normalized tree to the caller and removes it
// from the session. Safe to use after Close.
func (s *ParseSession) DetachRoot() *ast.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	root := s.Root
	s.Root = nil
	s.Index = make(map[ast.NodeType][]*ast.Node)
	s.ByQualifiedName = make(map[string]*ast.Node)
	return root
}

// buildIndex rebuilds the flat lookups from the current tree shape. Later
// declarations win qualified-name collisions within a file, matching
// shadowing order.
func (s *ParseSession) buildIndex() {
	s.Index = make(map[ast.NodeType][]*ast.Node)
	s.ByQualifiedName = make(map[string]*ast.Node)
	if s.Root == nil {
		return
	}
	s.Root.Walk(func(n *ast.Node) bool {
		if n == s.Root {
			return true
		}
		s.Index[n.Type] = append(s.Index[n.Type], n)
		if n.QualifiedName != "" {
			s.ByQualifiedName[n.QualifiedName] = n
		}
		return true
	})
}

// EnclosingDecl returns the innermost declaration whose range covers the
// byte offset, or the file root when nothing does.
func (s *ParseSession) EnclosingDecl(offset uint32) *ast.Node {
	if s.Root == nil {
		return nil
	}
	best := s.Root
	s.Root.Walk(func(n *ast.Node) bool {
		if n == s.Root {
			return true
		}
		if n.Range.Start.Offset <= offset && offset < n.Range.End.Offset {
			if n.Type != ast.NodeComment && n.Type != ast.NodeDocstring {
				best = n
			}
			return true
		}
		return false
	})
	return best
}
