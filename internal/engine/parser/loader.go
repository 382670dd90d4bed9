// # internal/engine/parser/loader.go
package parser

import (
	"fmt"
	"sort"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_c "github.com/tree-sitter/tree-sitter-c/bindings/go"
	tree_sitter_cpp "github.com/tree-sitter/tree-sitter-cpp/bindings/go"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"treescope/internal/shared/util"
)

// GrammarLoader owns the compiled grammar handles for every enabled
// language. Grammars are process-global and never freed.
type GrammarLoader struct {
	languages map[string]*sitter.Language
	registry  map[string]LanguageSpec
}

func NewGrammarLoader(registry map[string]LanguageSpec) (*GrammarLoader, error) {
	if registry == nil {
		var err error
		registry, err = BuildLanguageRegistry(nil)
		if err != nil {
			return nil, err
		}
	}

	gl := &GrammarLoader{
		languages: make(map[string]*sitter.Language),
		registry:  cloneLanguageRegistry(registry),
	}

	for _, langID := range util.SortedStringKeys(gl.registry) {
		spec := gl.registry[langID]
		if !spec.Enabled {
			continue
		}
		switch langID {
		case "c":
			gl.languages["c"] = sitter.NewLanguage(tree_sitter_c.Language())
		case "cpp":
			gl.languages["cpp"] = sitter.NewLanguage(tree_sitter_cpp.Language())
		case "go":
			gl.languages["go"] = sitter.NewLanguage(tree_sitter_go.Language())
		case "java":
			gl.languages["java"] = sitter.NewLanguage(tree_sitter_java.Language())
		case "javascript":
			gl.languages["javascript"] = sitter.NewLanguage(tree_sitter_javascript.Language())
		case "python":
			gl.languages["python"] = sitter.NewLanguage(tree_sitter_python.Language())
		case "rust":
			gl.languages["rust"] = sitter.NewLanguage(tree_sitter_rust.Language())
		case "typescript":
			gl.languages["typescript"] = sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript())
		default:
			return nil, fmt.Errorf("language %q is enabled but no grammar binding is compiled in", langID)
		}
	}

	return gl, nil
}

func (gl *GrammarLoader) Language(langID string) *sitter.Language {
	return gl.languages[langID]
}

func (gl *GrammarLoader) LanguageRegistry() map[string]LanguageSpec {
	return cloneLanguageRegistry(gl.registry)
}

func (gl *GrammarLoader) SupportedExtensions() []string {
	set := make(map[string]bool)
	for _, spec := range gl.registry {
		if !spec.Enabled {
			continue
		}
		for _, ext := range spec.Extensions {
			set[strings.ToLower(ext)] = true
		}
	}
	extensions := make([]string, 0, len(set))
	for ext := range set {
		extensions = append(extensions, ext)
	}
	sort.Strings(extensions)
	return extensions
}
