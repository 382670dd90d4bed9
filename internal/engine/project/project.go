// # internal/engine/project/project.go
package project

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/gobwas/glob"

	"treescope/internal/core/errors"
	"treescope/internal/engine/parser"
	"treescope/internal/engine/resolver"
	"treescope/internal/shared/observability"
)

// Project orchestrates whole-tree analysis: scan the roots, parse every
// supported file, then resolve references against the combined symbol
// table. Parsing and resolution never interleave; resolution only starts
// once every file's declarations are in the table, so results do not
// depend on scan order.
type Project struct {
	engine *parser.Engine
	store  *SymbolStore
	log    *slog.Logger

	roots     []string
	dirGlobs  []glob.Glob
	fileGlobs []glob.Glob

	sessions map[string]*parser.ParseSession
	table    *resolver.SymbolTable
	stats    resolver.Stats
	failed   int
}

type ProjectOptions struct {
	Roots        []string
	ExcludeDirs  []string
	ExcludeFiles []string
	Store        *SymbolStore
	Logger       *slog.Logger
}

func New(engine *parser.Engine, opts ProjectOptions) (*Project, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	roots := opts.Roots
	if len(roots) == 0 {
		roots = []string{"."}
	}

	dirGlobs, err := compileGlobs(opts.ExcludeDirs)
	if err != nil {
		return nil, fmt.Errorf("invalid exclude dir pattern: %w", err)
	}
	fileGlobs, err := compileGlobs(opts.ExcludeFiles)
	if err != nil {
		return nil, fmt.Errorf("invalid exclude file pattern: %w", err)
	}

	return &Project{
		engine:    engine,
		store:     opts.Store,
		log:       log,
		roots:     roots,
		dirGlobs:  dirGlobs,
		fileGlobs: fileGlobs,
		sessions:  make(map[string]*parser.ParseSession),
		table:     resolver.NewSymbolTable(),
	}, nil
}

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", p, err)
		}
		globs = append(globs, g)
	}
	return globs, nil
}

// Scan walks the roots, parses everything supported, and resolves the
// collected references. Files that fail to parse are logged and skipped;
// one broken file never aborts the scan.
func (p *Project) Scan(ctx context.Context) error {
	files, err := p.listFiles()
	if err != nil {
		return err
	}

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.parseOne(ctx, path); err != nil {
			p.failed++
			p.log.Warn("failed to parse file", "path", path, "error", err)
		}
	}

	p.rebuildTable()
	p.resolveAll(ctx)

	if p.store != nil {
		if err := p.persist(); err != nil {
			p.log.Warn("failed to persist symbols", "error", err)
		}
	}
	return nil
}

func (p *Project) listFiles() ([]string, error) {
	var files []string
	for _, root := range p.roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			base := filepath.Base(path)
			if d.IsDir() {
				for _, g := range p.dirGlobs {
					if g.Match(base) {
						return filepath.SkipDir
					}
				}
				return nil
			}
			if !p.engine.IsSupportedPath(path) {
				return nil
			}
			for _, g := range p.fileGlobs {
				if g.Match(base) {
					return nil
				}
			}
			files = append(files, path)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Strings(files)
	return files, nil
}

func (p *Project) parseOne(ctx context.Context, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	sess, err := p.engine.ParseFile(ctx, path, content, parser.ModeAST)
	if err != nil {
		return err
	}
	if old, ok := p.sessions[path]; ok {
		_ = old.Close()
	}
	p.sessions[path] = sess
	return nil
}

// UpdateFile re-parses one file and re-runs resolution for the whole
// project. Declarations elsewhere may point at the replaced file, so a
// local fix is not enough; the table is rebuilt from scratch.
func (p *Project) UpdateFile(ctx context.Context, path string) error {
	if !p.engine.IsSupportedPath(path) {
		return errors.New(errors.CodeNotSupported, "unsupported language").
			WithContext(errors.CtxPath, path)
	}
	if err := p.parseOne(ctx, path); err != nil {
		return err
	}
	p.rebuildTable()
	p.resolveAll(ctx)
	if p.store != nil {
		sess := p.sessions[path]
		if err := p.store.ReplaceFile(path, sess.Language, sess.Root); err != nil {
			p.log.Warn("failed to persist symbols", "path", path, "error", err)
		}
	}
	return nil
}

// RemoveFile forgets a deleted file and re-resolves the rest.
func (p *Project) RemoveFile(ctx context.Context, path string) {
	sess, ok := p.sessions[path]
	if !ok {
		return
	}
	_ = sess.Close()
	delete(p.sessions, path)
	p.rebuildTable()
	p.resolveAll(ctx)
	if p.store != nil {
		if err := p.store.DeleteFile(path); err != nil {
			p.log.Warn("failed to delete persisted symbols", "path", path, "error", err)
		}
	}
}

func (p *Project) rebuildTable() {
	p.table = resolver.NewSymbolTable()
	for _, path := range p.sortedPaths() {
		p.table.AddSession(p.sessions[path])
	}
}

func (p *Project) resolveAll(ctx context.Context) {
	_, span := observability.Tracer.Start(ctx, "project.Resolve")
	defer span.End()

	r := resolver.New(p.table, p.log)
	for _, path := range p.sortedPaths() {
		r.ResolveSession(p.sessions[path])
	}
	p.stats = r.Stats()
}

func (p *Project) persist() error {
	paths := p.sortedPaths()
	for _, path := range paths {
		sess := p.sessions[path]
		if err := p.store.ReplaceFile(path, sess.Language, sess.Root); err != nil {
			return err
		}
	}
	return p.store.PruneToPaths(paths)
}

func (p *Project) sortedPaths() []string {
	paths := make([]string, 0, len(p.sessions))
	for path := range p.sessions {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

func (p *Project) Session(path string) *parser.ParseSession {
	return p.sessions[path]
}

func (p *Project) Sessions() []*parser.ParseSession {
	out := make([]*parser.ParseSession, 0, len(p.sessions))
	for _, path := range p.sortedPaths() {
		out = append(out, p.sessions[path])
	}
	return out
}

func (p *Project) Paths() []string {
	return p.sortedPaths()
}

// Stats reports the outcome tally of the most recent resolution pass.
func (p *Project) Stats() resolver.Stats {
	return p.stats
}

// FailedFiles reports how many files could not be parsed during Scan.
func (p *Project) FailedFiles() int {
	return p.failed
}

func (p *Project) SymbolCount() int {
	return p.table.Len()
}

// Dependencies returns the include and import targets recorded for a
// file, or nil when the file is not part of the project.
func (p *Project) Dependencies(path string) []string {
	sess, ok := p.sessions[path]
	if !ok {
		return nil
	}
	return sess.Dependencies
}

// Close releases every session. The project is unusable afterwards.
func (p *Project) Close() {
	for _, sess := range p.sessions {
		_ = sess.Close()
	}
	p.sessions = make(map[string]*parser.ParseSession)
	p.table = resolver.NewSymbolTable()
}
