package parser

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"treescope/internal/core/config"
)

type LanguageSpec struct {
	Name           string
	QueryDir       string
	Extensions     []string
	Filenames      []string
	Enabled        bool
	ScopeSeparator string
}

func DefaultLanguageRegistry() map[string]LanguageSpec {
	return map[string]LanguageSpec{
		"c": {
			Name:           "c",
			QueryDir:       "c",
			Extensions:     []string{".c", ".h"},
			Enabled:        true,
			ScopeSeparator: "::",
		},
		"cpp": {
			Name:           "cpp",
			QueryDir:       "cpp",
			Extensions:     []string{".cpp", ".cc", ".cxx", ".hpp", ".hh", ".hxx"},
			Enabled:        true,
			ScopeSeparator: "::",
		},
		"go": {
			Name:           "go",
			QueryDir:       "go",
			Extensions:     []string{".go"},
			Enabled:        true,
			ScopeSeparator: ".",
		},
		"java": {
			Name:           "java",
			QueryDir:       "java",
			Extensions:     []string{".java"},
			Enabled:        false,
			ScopeSeparator: ".",
		},
		"javascript": {
			Name:           "javascript",
			QueryDir:       "javascript",
			Extensions:     []string{".js", ".cjs", ".mjs", ".jsx"},
			Enabled:        true,
			ScopeSeparator: ".",
		},
		"python": {
			Name:           "python",
			QueryDir:       "python",
			Extensions:     []string{".py"},
			Enabled:        true,
			ScopeSeparator: ".",
		},
		"rust": {
			Name:           "rust",
			QueryDir:       "rust",
			Extensions:     []string{".rs"},
			Enabled:        false,
			ScopeSeparator: "::",
		},
		"typescript": {
			Name:           "typescript",
			QueryDir:       "typescript",
			Extensions:     []string{".ts", ".tsx"},
			Enabled:        true,
			ScopeSeparator: ".",
		},
	}
}

// BuildLanguageRegistry applies per-language config overrides to the
// defaults. Unknown language keys are rejected rather than ignored so a
// typo in config does not silently disable anything.
func BuildLanguageRegistry(overrides map[string]config.Language) (map[string]LanguageSpec, error) {
	registry := cloneLanguageRegistry(DefaultLanguageRegistry())
	for language, override := range overrides {
		spec, ok := registry[language]
		if !ok {
			return nil, fmt.Errorf("unknown language override %q", language)
		}
		if override.Enabled != nil {
			spec.Enabled = *override.Enabled
		}
		if len(override.Extensions) > 0 {
			spec.Extensions = normalizeExtensions(override.Extensions)
		}
		if len(override.Filenames) > 0 {
			spec.Filenames = normalizeFilenames(override.Filenames)
		}
		registry[language] = spec
	}

	if err := validateLanguageRegistry(registry); err != nil {
		return nil, err
	}
	return registry, nil
}

func cloneLanguageRegistry(in map[string]LanguageSpec) map[string]LanguageSpec {
	out := make(map[string]LanguageSpec, len(in))
	for id, spec := range in {
		copySpec := spec
		copySpec.Extensions = append([]string(nil), spec.Extensions...)
		copySpec.Filenames = append([]string(nil), spec.Filenames...)
		out[id] = copySpec
	}
	return out
}

func validateLanguageRegistry(registry map[string]LanguageSpec) error {
	extOwner := make(map[string]string)
	filenameOwner := make(map[string]string)

	for _, id := range sortedRegistryIDs(registry) {
		spec := registry[id]
		if !spec.Enabled {
			continue
		}
		for _, ext := range normalizeExtensions(spec.Extensions) {
			if existing, ok := extOwner[ext]; ok && existing != id {
				return fmt.Errorf("duplicate extension %q owned by %q and %q", ext, existing, id)
			}
			extOwner[ext] = id
		}
		for _, filename := range normalizeFilenames(spec.Filenames) {
			if existing, ok := filenameOwner[filename]; ok && existing != id {
				return fmt.Errorf("duplicate filename %q owned by %q and %q", filename, existing, id)
			}
			filenameOwner[filename] = id
		}
	}
	return nil
}

func normalizeExtensions(values []string) []string {
	seen := make(map[string]bool)
	out := make([]string, 0, len(values))
	for _, value := range values {
		raw := strings.TrimSpace(strings.ToLower(value))
		if raw == "" {
			continue
		}
		if !strings.HasPrefix(raw, ".") {
			raw = "." + raw
		}
		if seen[raw] {
			continue
		}
		seen[raw] = true
		out = append(out, raw)
	}
	sort.Strings(out)
	return out
}

func normalizeFilenames(values []string) []string {
	seen := make(map[string]bool)
	out := make([]string, 0, len(values))
	for _, value := range values {
		raw := strings.TrimSpace(strings.ToLower(path.Base(value)))
		if raw == "" || raw == "." {
			continue
		}
		if seen[raw] {
			continue
		}
		seen[raw] = true
		out = append(out, raw)
	}
	sort.Strings(out)
	return out
}

func sortedRegistryIDs(registry map[string]LanguageSpec) []string {
	ids := make([]string, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
