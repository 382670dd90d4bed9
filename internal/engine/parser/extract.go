// # internal/engine/parser/extract.go
package parser

import (
	"sort"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"treescope/internal/ast"
	"treescope/internal/core/errors"
	"treescope/internal/shared/observability"
)

// Sub-captures qualify the main capture of a pattern; every other
// capture name identifies the declaration itself.
var subCaptures = map[string]bool{
	"name":   true,
	"body":   true,
	"params": true,
	"doc":    true,
}

// captureTypes maps a main capture name to a node type. It wins over the
// category mapping so a mixed pattern file (structs plus enums plus
// typedefs) can type each match precisely.
var captureTypes = map[string]ast.NodeType{
	"function":  ast.NodeFunction,
	"method":    ast.NodeMethod,
	"class":     ast.NodeClass,
	"struct":    ast.NodeStruct,
	"union":     ast.NodeUnion,
	"enum":      ast.NodeEnum,
	"interface": ast.NodeInterface,
	"namespace": ast.NodeNamespace,
	"module":    ast.NodeModule,
	"variable":  ast.NodeVariable,
	"constant":  ast.NodeConstant,
	"typedef":   ast.NodeTypedef,
	"type":      ast.NodeTypedef,
	"import":    ast.NodeInclude,
	"include":   ast.NodeInclude,
	"macro":     ast.NodeMacro,
	"comment":   ast.NodeComment,
	"docstring": ast.NodeDocstring,
	"decorator": ast.NodeDecorator,
	"lambda":    ast.NodeLambda,
	"property":  ast.NodeProperty,
}

func defaultName(captureName string) string {
	switch captureName {
	case "struct":
		return "unnamed_struct"
	case "union":
		return "unnamed_union"
	case "enum":
		return "unnamed_enum"
	case "class":
		return "unnamed_class"
	case "import", "include":
		return "include_directive"
	case "macro":
		return "macro_definition"
	case "function":
		return "anonymous_function"
	case "method":
		return "unnamed_method"
	case "variable":
		return "unnamed_variable"
	case "comment", "docstring":
		return ""
	default:
		return "unnamed_" + captureName
	}
}

type entry struct {
	node      *ast.Node
	startByte uint
	endByte   uint
}

func (e *Engine) runQueries(sess *ParseSession, root *sitter.Node, content []byte) {
	var entries []*entry
	byRange := make(map[[2]uint]*entry)
	loaded := 0

	for _, category := range Categories() {
		q, err := e.queries.Get(sess.Language, category)
		if err != nil {
			if !errors.IsCode(err, errors.CodeNotFound) {
				e.log.Warn("pattern set unavailable",
					"language", sess.Language,
					"category", category,
					"error", err)
			}
			continue
		}
		loaded++

		names := q.CaptureNames()
		qc := sitter.NewQueryCursor()
		matches := qc.Matches(q, root, content)
		for match := matches.Next(); match != nil; match = matches.Next() {
			ent, ok := e.buildEntry(sess, category, names, match, content)
			if !ok {
				observability.ExtractionMisses.WithLabelValues(sess.Language, category).Inc()
				continue
			}

			key := [2]uint{ent.startByte, ent.endByte}
			if prev, dup := byRange[key]; dup {
				// A declaration matched by both the functions and the
				// methods pass is a method.
				if prev.node.Type == ast.NodeFunction && ent.node.Type == ast.NodeMethod {
					prev.node.Type = ast.NodeMethod
				}
				continue
			}
			byRange[key] = ent
			entries = append(entries, ent)
		}
		qc.Close()
	}

	if loaded == 0 {
		// Every pass refused to load; the empty tree is not a real
		// extraction result.
		sess.LastError = errors.New(errors.CodeParseFailed, "no pattern sets loaded").
			WithContext(errors.CtxLanguage, sess.Language).
			WithContext(errors.CtxPath, sess.Path)
		e.log.Warn("extraction degraded",
			"language", sess.Language,
			"path", sess.Path)
	}

	spec := e.registry[sess.Language]
	e.nest(sess, entries)
	qualify(sess.Root, "", spec.ScopeSeparator)
}

func (e *Engine) buildEntry(sess *ParseSession, category string, captureNames []string, match *sitter.QueryMatch, content []byte) (*entry, bool) {
	var main, nameNode, paramsNode, docNode *sitter.Node
	var mainCapture string

	for _, c := range match.Captures {
		node := c.Node
		switch captureNames[c.Index] {
		case "name":
			nameNode = &node
		case "params":
			paramsNode = &node
		case "doc":
			docNode = &node
		case "body":
			// captured for range sanity only
		default:
			main = &node
			mainCapture = captureNames[c.Index]
		}
	}
	if main == nil {
		e.log.Debug("match without main capture",
			"language", sess.Language,
			"category", category)
		return nil, false
	}

	typ, ok := captureTypes[mainCapture]
	if !ok || typ == defaultCategoryType(category) {
		// The capture table types mixed pattern files (enums inside the
		// structs pass, macros inside variables); the category's own
		// matches stay under the configurable mapping.
		typ = e.categoryType(category)
	}
	if typ == ast.NodeUnknown {
		return nil, false
	}

	name := defaultName(mainCapture)
	if nameNode != nil {
		name = string(content[nameNode.StartByte():nameNode.EndByte()])
	}

	node := ast.New(typ, name)
	node.FilePath = sess.Path
	node.Range = rangeOf(main)
	node.RawContent = string(content[main.StartByte():main.EndByte()])

	if paramsNode != nil {
		node.Signature = name + string(content[paramsNode.StartByte():paramsNode.EndByte()])
	}
	if docNode != nil {
		node.Docstring = string(content[docNode.StartByte():docNode.EndByte()])
	}

	if typ == ast.NodeInclude {
		target := trimIncludeTarget(name)
		node.Name = target
		node.QualifiedName = target
		if node.Extra == nil {
			node.Extra = map[string]interface{}{}
		}
		node.Extra["target"] = target
		node.Extra["system"] = strings.HasPrefix(name, "<")
		sess.Dependencies = append(sess.Dependencies, target)
		sess.PendingRefs = append(sess.PendingRefs, PendingRef{
			From:  node,
			Name:  target,
			Kind:  ast.RefInclude,
			Range: node.Range,
		})
	}

	return &entry{node: node, startByte: main.StartByte(), endByte: main.EndByte()}, true
}

func (e *Engine) categoryType(category string) ast.NodeType {
	if t, ok := e.mapping[category]; ok {
		return t
	}
	return defaultCategoryType(category)
}

func defaultCategoryType(category string) ast.NodeType {
	switch category {
	case "functions":
		return ast.NodeFunction
	case "classes":
		return ast.NodeClass
	case "structs":
		return ast.NodeStruct
	case "methods":
		return ast.NodeMethod
	case "variables":
		return ast.NodeVariable
	case "imports", "includes":
		return ast.NodeInclude
	case "docstrings":
		return ast.NodeDocstring
	default:
		return ast.NodeUnknown
	}
}

// nest attaches extracted declarations to each other by range
// containment, producing the ownership tree under the session root.
func (e *Engine) nest(sess *ParseSession, entries []*entry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].startByte != entries[j].startByte {
			return entries[i].startByte < entries[j].startByte
		}
		return entries[i].endByte > entries[j].endByte
	})

	var stack []*entry
	for _, ent := range entries {
		for len(stack) > 0 {
			top := stack[len(stack)-1]
			if top.startByte <= ent.startByte && ent.endByte <= top.endByte {
				break
			}
			stack = stack[:len(stack)-1]
		}
		parent := sess.Root
		if len(stack) > 0 {
			parent = stack[len(stack)-1].node
		}
		if err := parent.AddChild(ent.node); err != nil {
			e.log.Warn("dropping declaration with impossible nesting",
				"path", sess.Path,
				"name", ent.node.Name,
				"error", err)
			continue
		}
		stack = append(stack, ent)
	}
}

// qualify assigns scope-qualified names top down. Only named scopes
// contribute to the prefix; comments and includes pass through.
func qualify(n *ast.Node, prefix, sep string) {
	for _, child := range n.Children {
		name := child.Name
		if child.Type == ast.NodeInclude || child.Type == ast.NodeComment || child.Type == ast.NodeDocstring {
			qualify(child, prefix, sep)
			continue
		}
		qualified := name
		if prefix != "" && name != "" {
			qualified = prefix + sep + name
		}
		child.QualifiedName = qualified

		childPrefix := prefix
		if isScope(child.Type) && name != "" {
			childPrefix = qualified
		}
		qualify(child, childPrefix, sep)
	}
}

func isScope(t ast.NodeType) bool {
	switch t {
	case ast.NodeClass, ast.NodeStruct, ast.NodeUnion, ast.NodeEnum,
		ast.NodeInterface, ast.NodeNamespace, ast.NodeModule,
		ast.NodeFunction, ast.NodeMethod:
		return true
	}
	return false
}

func trimIncludeTarget(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.Trim(raw, `"'`)
	raw = strings.TrimPrefix(raw, "<")
	raw = strings.TrimSuffix(raw, ">")
	return raw
}

func rangeOf(n *sitter.Node) ast.SourceRange {
	start := n.StartPosition()
	end := n.EndPosition()
	return ast.SourceRange{
		Start: ast.SourceLocation{
			Line:   uint32(start.Row) + 1,
			Column: uint32(start.Column),
			Offset: uint32(n.StartByte()),
		},
		End: ast.SourceLocation{
			Line:   uint32(end.Row) + 1,
			Column: uint32(end.Column),
			Offset: uint32(n.EndByte()),
		},
	}
}
