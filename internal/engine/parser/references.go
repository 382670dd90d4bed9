package parser

import (
	sitter "github.com/tree-sitter/go-tree-sitter"

	"treescope/internal/ast"
	"treescope/internal/core/errors"
)

// collectReferences runs the call pass and records by-name references
// against the innermost enclosing declaration. Includes are already
// pending from extraction; this adds call sites.
func (e *Engine) collectReferences(sess *ParseSession, root *sitter.Node, content []byte) {
	q, err := e.queries.Get(sess.Language, CategoryCalls)
	if err != nil {
		if !errors.IsCode(err, errors.CodeNotFound) {
			e.log.Warn("call pattern set unavailable",
				"language", sess.Language,
				"error", err)
		}
		return
	}

	names := q.CaptureNames()
	qc := sitter.NewQueryCursor()
	defer qc.Close()

	matches := qc.Matches(q, root, content)
	for match := matches.Next(); match != nil; match = matches.Next() {
		var nameNode, callNode *sitter.Node
		for _, c := range match.Captures {
			node := c.Node
			switch names[c.Index] {
			case "name":
				nameNode = &node
			case "call":
				callNode = &node
			}
		}
		if callNode == nil {
			continue
		}
		if nameNode == nil {
			nameNode = callNode
		}

		from := sess.EnclosingDecl(uint32(callNode.StartByte()))
		if from == nil {
			continue
		}
		sess.PendingRefs = append(sess.PendingRefs, PendingRef{
			From:  from,
			Name:  string(content[nameNode.StartByte():nameNode.EndByte()]),
			Kind:  ast.RefCall,
			Range: rangeOf(callNode),
		})
	}
}
