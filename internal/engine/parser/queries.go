package parser

import (
	"embed"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sync"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"treescope/internal/core/errors"
)

//go:embed queries
var builtinQueries embed.FS

// Categories returns the extraction passes in the order they run. The
// order is part of the output contract: container kinds first, so later
// passes can nest into them, docstrings last.
func Categories() []string {
	return []string{"classes", "structs", "functions", "methods", "variables", "imports", "docstrings"}
}

// CategoryCalls is the reference-collection pass. It runs after the
// passes above and produces pending references, never nodes.
const CategoryCalls = "calls"

// QueryManager compiles and caches pattern sets per language and
// category. Builtin patterns are embedded; a config-supplied directory
// overrides them file by file.
type QueryManager struct {
	loader *GrammarLoader
	dir    string

	mu    sync.Mutex
	cache map[string]*sitter.Query
}

func NewQueryManager(loader *GrammarLoader, overrideDir string) *QueryManager {
	return &QueryManager{
		loader: loader,
		dir:    overrideDir,
		cache:  make(map[string]*sitter.Query),
	}
}

// Get returns the compiled pattern set for a language and category,
// compiling it on first use. A language without a pattern file for the
// category gets NOT_FOUND, which callers treat as "skip this pass".
func (qm *QueryManager) Get(langID, category string) (*sitter.Query, error) {
	key := langID + "_" + category

	qm.mu.Lock()
	defer qm.mu.Unlock()

	if q, ok := qm.cache[key]; ok {
		return q, nil
	}

	src, err := qm.readSource(langID, category)
	if err != nil {
		return nil, err
	}

	grammar := qm.loader.Language(langID)
	if grammar == nil {
		return nil, errors.New(errors.CodeNotSupported, fmt.Sprintf("no grammar loaded for language: %s", langID))
	}

	q, qerr := sitter.NewQuery(grammar, string(src))
	if qerr != nil {
		return nil, errors.Wrap(qerr, errors.CodeValidationError, fmt.Sprintf("compile %s/%s.scm", langID, category)).
			WithContext(errors.CtxLanguage, langID).
			WithContext(errors.CtxQuery, category)
	}
	if q == nil {
		return nil, errors.New(errors.CodeInternal, fmt.Sprintf("query compiler returned nothing for %s/%s", langID, category))
	}

	qm.cache[key] = q
	return q, nil
}

func (qm *QueryManager) readSource(langID, category string) ([]byte, error) {
	if qm.dir != "" {
		override := filepath.Join(qm.dir, langID, category+".scm")
		if data, err := os.ReadFile(override); err == nil {
			return data, nil
		}
	}

	data, err := builtinQueries.ReadFile(path.Join("queries", langID, category+".scm"))
	if err != nil {
		return nil, errors.New(errors.CodeNotFound, fmt.Sprintf("no %s patterns for language %s", category, langID))
	}
	return data, nil
}
