// # cmd/treescope/app.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"treescope/internal/ast"
	"treescope/internal/core/config"
	"treescope/internal/engine/parser"
	"treescope/internal/engine/project"
	"treescope/internal/engine/resolver"
	"treescope/internal/watcher"
)

type App struct {
	Config  *config.Config
	Engine  *parser.Engine
	Project *project.Project

	store      *project.SymbolStore
	teaProgram *tea.Program
}

// unresolvedRef is one call that did not bind to a declaration, shaped
// for reporting.
type unresolvedRef struct {
	File   string
	Name   string
	Line   uint32
	Status ast.ResolutionStatus
}

func NewApp(cfg *config.Config) (*App, error) {
	registry, err := parser.BuildLanguageRegistry(cfg.Languages)
	if err != nil {
		return nil, err
	}
	loader, err := parser.NewGrammarLoader(registry)
	if err != nil {
		return nil, err
	}
	engine := parser.NewEngine(loader, parser.Options{
		QueryDir:        cfg.Queries.Dir,
		Mapping:         cfg.Mapping,
		DocstringWindow: cfg.Docstrings.Window,
	})

	var store *project.SymbolStore
	if cfg.DB.Enabled {
		store, err = project.OpenSymbolStore(cfg.DB.Path, cfg.Paths.ProjectRoot)
		if err != nil {
			return nil, err
		}
	}

	proj, err := project.New(engine, project.ProjectOptions{
		Roots:        cfg.WatchPaths,
		ExcludeDirs:  cfg.Exclude.Dirs,
		ExcludeFiles: cfg.Exclude.Files,
		Store:        store,
	})
	if err != nil {
		if store != nil {
			_ = store.Close()
		}
		return nil, err
	}

	return &App{
		Config:  cfg,
		Engine:  engine,
		Project: proj,
		store:   store,
	}, nil
}

func (a *App) InitialScan(ctx context.Context) error {
	return a.Project.Scan(ctx)
}

// ParseOne parses a single file and renders it as JSON, bypassing the
// project scan entirely.
func (a *App) ParseOne(ctx context.Context, path string, cst bool) ([]byte, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	mode := parser.ModeAST
	if cst {
		mode = parser.ModeCST
	}
	sess, err := a.Engine.ParseFile(ctx, path, content, mode)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	if cst {
		return json.MarshalIndent(sess.CSTRoot, "", "  ")
	}
	return json.MarshalIndent(sess.Root, "", "  ")
}

func (a *App) HandleChanges(paths []string) {
	slog.Info("detected changes", "count", len(paths))
	start := time.Now()

	ctx := context.Background()
	for _, path := range paths {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			a.Project.RemoveFile(ctx, path)
			continue
		}
		if err := a.Project.UpdateFile(ctx, path); err != nil {
			slog.Warn("failed to re-process file", "path", path, "error", err)
		}
	}

	a.PrintSummary(time.Since(start))

	if a.teaProgram != nil {
		a.teaProgram.Send(updateMsg{
			unresolved:  a.Unresolved(),
			stats:       a.Project.Stats(),
			fileCount:   len(a.Project.Paths()),
			symbolCount: a.Project.SymbolCount(),
		})
	}
}

// Unresolved lists calls the resolver could not bind. Missing includes
// stay out of the list; a project never declares the system headers it
// pulls in, so reporting them would be noise.
func (a *App) Unresolved() []unresolvedRef {
	var out []unresolvedRef
	for _, sess := range a.Project.Sessions() {
		for _, ref := range sess.PendingRefs {
			if ref.Kind != ast.RefCall {
				continue
			}
			switch ref.Status {
			case ast.StatusNotFound, ast.StatusAmbiguous, ast.StatusError:
				out = append(out, unresolvedRef{
					File:   sess.Path,
					Name:   ref.Name,
					Line:   ref.Range.Start.Line,
					Status: ref.Status,
				})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].File != out[j].File {
			return out[i].File < out[j].File
		}
		return out[i].Line < out[j].Line
	})
	return out
}

func (a *App) PrintSummary(duration time.Duration) {
	stats := a.Project.Stats()
	unresolved := a.Unresolved()

	fmt.Println(strings.Repeat("-", 40))
	fmt.Printf("Scan: %d files, %d symbols in %v\n", len(a.Project.Paths()), a.Project.SymbolCount(), duration.Round(time.Millisecond))
	if a.Project.FailedFiles() > 0 {
		fmt.Printf("⚠️  %d files failed to parse\n", a.Project.FailedFiles())
	}
	fmt.Printf("References: %s\n", formatStats(stats))

	if len(unresolved) > 0 {
		fmt.Printf("❓ FOUND %d UNRESOLVED CALLS:\n", len(unresolved))
		for _, u := range unresolved {
			fmt.Printf("   %s in %s:%d (%s)\n", u.Name, u.File, u.Line, u.Status)
		}
	} else {
		fmt.Println("✅ All calls resolved.")
	}
	fmt.Println(strings.Repeat("-", 40))
}

func formatStats(s resolver.Stats) string {
	parts := []string{fmt.Sprintf("%d resolved", s.Success)}
	if s.NotFound > 0 {
		parts = append(parts, fmt.Sprintf("%d not found", s.NotFound))
	}
	if s.Ambiguous > 0 {
		parts = append(parts, fmt.Sprintf("%d ambiguous", s.Ambiguous))
	}
	if s.Circular > 0 {
		parts = append(parts, fmt.Sprintf("%d circular", s.Circular))
	}
	if s.NotSupported > 0 {
		parts = append(parts, fmt.Sprintf("%d unsupported", s.NotSupported))
	}
	if s.Errors > 0 {
		parts = append(parts, fmt.Sprintf("%d errors", s.Errors))
	}
	return strings.Join(parts, ", ") + fmt.Sprintf(" (of %d)", s.Total())
}

func (a *App) StartWatcher() error {
	w, err := watcher.New(watcher.Options{
		Debounce:     a.Config.Watch.Debounce.Duration,
		ExcludeDirs:  a.Config.Exclude.Dirs,
		ExcludeFiles: a.Config.Exclude.Files,
		Supported:    a.Engine.IsSupportedPath,
		OnChange:     a.HandleChanges,
	})
	if err != nil {
		return err
	}
	// Runs until the process exits.
	return w.Watch(a.Config.WatchPaths)
}

func (a *App) RunUI() error {
	m := initialModel()
	p := tea.NewProgram(m, tea.WithAltScreen())
	a.teaProgram = p

	go func() {
		a.teaProgram.Send(updateMsg{
			unresolved:  a.Unresolved(),
			stats:       a.Project.Stats(),
			fileCount:   len(a.Project.Paths()),
			symbolCount: a.Project.SymbolCount(),
		})
	}()

	_, err := p.Run()
	return err
}

func (a *App) Close() {
	a.Project.Close()
	if a.store != nil {
		_ = a.store.Close()
	}
}
