// # internal/engine/parser/parser.go
package parser

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	sitter "github.com/tree-sitter/go-tree-sitter"

	"treescope/internal/ast"
	"treescope/internal/core/errors"
	"treescope/internal/engine/postprocess"
	"treescope/internal/shared/observability"
)

// Engine turns source files into parse sessions. It is safe for
// concurrent use; each call gets its own native parser.
type Engine struct {
	loader     *GrammarLoader
	queries    *QueryManager
	registry   map[string]LanguageSpec
	mapping    map[string]ast.NodeType
	docWindow  int
	extensions map[string]string
	filenames  map[string]string
	log        *slog.Logger
}

type Options struct {
	QueryDir        string
	Mapping         map[string]string
	DocstringWindow int
	Logger          *slog.Logger
}

func NewEngine(loader *GrammarLoader, opts Options) *Engine {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	if opts.DocstringWindow <= 0 {
		opts.DocstringWindow = 5
	}

	e := &Engine{
		loader:     loader,
		queries:    NewQueryManager(loader, opts.QueryDir),
		registry:   loader.LanguageRegistry(),
		mapping:    make(map[string]ast.NodeType),
		docWindow:  opts.DocstringWindow,
		extensions: make(map[string]string),
		filenames:  make(map[string]string),
		log:        log,
	}

	for category, nodeType := range opts.Mapping {
		e.mapping[category] = ast.ParseNodeType(nodeType)
	}

	for lang, spec := range e.registry {
		if !spec.Enabled {
			continue
		}
		for _, ext := range spec.Extensions {
			e.extensions[strings.ToLower(ext)] = lang
		}
		for _, name := range spec.Filenames {
			e.filenames[strings.ToLower(name)] = lang
		}
	}
	return e
}

func (e *Engine) DetectLanguage(path string) string {
	base := strings.ToLower(filepath.Base(path))
	if lang, ok := e.filenames[base]; ok {
		return lang
	}
	ext := strings.ToLower(filepath.Ext(path))
	if lang, ok := e.extensions[ext]; ok {
		return lang
	}
	return ""
}

func (e *Engine) IsSupportedPath(path string) bool {
	return e.DetectLanguage(path) != ""
}

func (e *Engine) SupportedExtensions() []string {
	return e.loader.SupportedExtensions()
}

// ParseFile parses one file and returns its session. The caller owns the
// session and must Close it. A panic anywhere in the pipeline is
// contained here and surfaces as an ENGINE_FAULT on the session.
func (e *Engine) ParseFile(ctx context.Context, path string, content []byte, mode Mode) (sess *ParseSession, err error) {
	_, span := observability.Tracer.Start(ctx, "engine.ParseFile")
	defer span.End()

	lang := e.DetectLanguage(path)
	if lang == "" {
		return nil, errors.New(errors.CodeNotSupported, "unsupported language").
			WithContext(errors.CtxPath, path)
	}

	defer func() {
		if r := recover(); r != nil {
			observability.EngineFaults.Inc()
			fault := errors.Newf(errors.CodeEngineFault, "parse engine fault: %v", r).
				WithContext(errors.CtxPath, path).
				WithContext(errors.CtxLanguage, lang)
			e.log.Error("contained parser panic", "path", path, "panic", fmt.Sprint(r))
			if sess != nil {
				sess.LastError = fault
			}
			err = fault
		}
	}()

	timer := prometheus.NewTimer(observability.ParsingDuration.WithLabelValues(lang))
	defer timer.ObserveDuration()

	grammar := e.loader.Language(lang)
	if grammar == nil {
		return nil, errors.New(errors.CodeInternal, fmt.Sprintf("grammar not loaded: %s", lang))
	}

	parser := sitter.NewParser()
	defer parser.Close()
	if serr := parser.SetLanguage(grammar); serr != nil {
		return nil, errors.Wrap(serr, errors.CodeInternal, "set language")
	}

	tree := parser.Parse(content, nil)
	if tree == nil {
		return nil, errors.New(errors.CodeParseFailed, "parse produced no tree").
			WithContext(errors.CtxPath, path).
			WithContext(errors.CtxLanguage, lang)
	}

	sess = newSession(path, lang, mode, e.log)
	sess.adoptTree(tree)

	root := tree.RootNode()
	if mode == ModeCST {
		sess.CSTRoot = buildCST(root, content)
		return sess, nil
	}

	sess.Root = ast.New(ast.NodeRoot, filepath.Base(path))
	sess.Root.FilePath = path
	sess.Root.Range = rangeOf(root)

	e.runQueries(sess, root, content)
	postprocess.Apply(sess.Root, postprocess.Options{
		Language:        lang,
		DocstringWindow: e.docWindow,
	})
	sess.buildIndex()
	e.collectReferences(sess, root, content)

	observability.NodesExtracted.WithLabelValues(lang).Add(float64(sess.Root.Count() - 1))
	return sess, nil
}
