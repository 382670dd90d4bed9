// # internal/ast/node.go
package ast

import (
	"treescope/internal/core/errors"
)

// NodeType classifies the semantic entity an AST node represents.
type NodeType uint8

const (
	NodeUnknown NodeType = iota
	NodeRoot
	NodeFunction
	NodeMethod
	NodeClass
	NodeStruct
	NodeUnion
	NodeEnum
	NodeInterface
	NodeNamespace
	NodeModule
	NodeVariable
	NodeParameter
	NodeConstant
	NodeTypedef
	NodeInclude
	NodeMacro
	NodeComment
	NodeDocstring
	NodeTemplateSpecialization
	NodeDecorator
	NodeLambda
	NodeProperty
	NodeIfStatement
	NodeForStatement
	NodeWhileStatement
	NodeDoStatement
	NodeSwitchStatement
	NodeTryStatement
	NodeReturnStatement
	NodeBlock
)

var nodeTypeNames = map[NodeType]string{
	NodeUnknown:                "UNKNOWN",
	NodeRoot:                   "ROOT",
	NodeFunction:               "FUNCTION",
	NodeMethod:                 "METHOD",
	NodeClass:                  "CLASS",
	NodeStruct:                 "STRUCT",
	NodeUnion:                  "UNION",
	NodeEnum:                   "ENUM",
	NodeInterface:              "INTERFACE",
	NodeNamespace:              "NAMESPACE",
	NodeModule:                 "MODULE",
	NodeVariable:               "VARIABLE",
	NodeParameter:              "PARAMETER",
	NodeConstant:               "CONSTANT",
	NodeTypedef:                "TYPEDEF",
	NodeInclude:                "INCLUDE",
	NodeMacro:                  "MACRO",
	NodeComment:                "COMMENT",
	NodeDocstring:              "DOCSTRING",
	NodeTemplateSpecialization: "TEMPLATE_SPECIALIZATION",
	NodeDecorator:              "DECORATOR",
	NodeLambda:                 "LAMBDA",
	NodeProperty:               "PROPERTY",
	NodeIfStatement:            "IF_STATEMENT",
	NodeForStatement:           "FOR_STATEMENT",
	NodeWhileStatement:         "WHILE_STATEMENT",
	NodeDoStatement:            "DO_STATEMENT",
	NodeSwitchStatement:        "SWITCH_STATEMENT",
	NodeTryStatement:           "TRY_STATEMENT",
	NodeReturnStatement:        "RETURN_STATEMENT",
	NodeBlock:                  "BLOCK",
}

func (t NodeType) String() string {
	if name, ok := nodeTypeNames[t]; ok {
		return name
	}
	return "UNKNOWN"
}

// ParseNodeType maps a node-type name (as used in config files) back to its
// tag. Unrecognized names map to NodeUnknown.
func ParseNodeType(name string) NodeType {
	for t, n := range nodeTypeNames {
		if n == name {
			return t
		}
	}
	return NodeUnknown
}

// RefKind classifies a reference-graph edge.
type RefKind uint8

const (
	RefUnknown RefKind = iota
	RefCall
	RefType
	RefInheritance
	RefInclude
	RefImplementation
	RefOverride
	RefUse
	RefMember
	RefExtension
	RefTemplate
)

func (k RefKind) String() string {
	switch k {
	case RefCall:
		return "call"
	case RefType:
		return "type"
	case RefInheritance:
		return "inheritance"
	case RefInclude:
		return "include"
	case RefImplementation:
		return "implementation"
	case RefOverride:
		return "override"
	case RefUse:
		return "use"
	case RefMember:
		return "member"
	case RefExtension:
		return "extension"
	case RefTemplate:
		return "template"
	default:
		return "unknown"
	}
}

// ResolutionStatus is the terminal state of a reference after a resolution
// pass. NotFound, Ambiguous and NotSupported are expected outcomes, not
// errors.
type ResolutionStatus uint8

const (
	StatusUnresolved ResolutionStatus = iota
	StatusSuccess
	StatusNotFound
	StatusAmbiguous
	StatusCircular
	StatusError
	StatusNotSupported
)

func (s ResolutionStatus) String() string {
	switch s {
	case StatusUnresolved:
		return "unresolved"
	case StatusSuccess:
		return "success"
	case StatusNotFound:
		return "not_found"
	case StatusAmbiguous:
		return "ambiguous"
	case StatusCircular:
		return "circular"
	case StatusError:
		return "error"
	case StatusNotSupported:
		return "not_supported"
	default:
		return "unknown"
	}
}

// SourceLocation is a position within a source file. Lines are 1-based in
// normalized output, columns and offsets 0-based, matching tree-sitter
// points plus a byte offset.
type SourceLocation struct {
	Line   uint32 `json:"line"`
	Column uint32 `json:"column"`
	Offset uint32 `json:"offset"`
}

type SourceRange struct {
	Start SourceLocation `json:"start"`
	End   SourceLocation `json:"end"`
}

// ReferenceMetadata describes one edge of the reference graph.
type ReferenceMetadata struct {
	Kind       RefKind
	SourceFile string
	TargetFile string
	Status     ResolutionStatus
	Err        error
}

// Reference is a non-owning edge to another node, possibly in another file.
// Cycles are a legal shape of this graph.
type Reference struct {
	Target *Node
	Meta   ReferenceMetadata
}

// Node is a node of the normalized AST. Children is the ownership tree: a
// node has exactly one parent, and detaching it from that parent is the
// only way to move it. Refs never affect lifetime.
type Node struct {
	Type          NodeType
	Name          string
	QualifiedName string
	Signature     string
	Docstring     string
	RawContent    string
	FilePath      string
	Range         SourceRange

	Parent   *Node
	Children []*Node
	Refs     []Reference

	// Extra carries language-specific extension data.
	Extra map[string]interface{}
}

func New(t NodeType, name string) *Node {
	return &Node{Type: t, Name: name, QualifiedName: name}
}

// AddChild transfers ownership of child into n. A child already attached
// elsewhere is detached from its old parent first. Attaching a node to one
// of its own descendants would break the tree shape and is rejected.
func (n *Node) AddChild(child *Node) error {
	if n == nil || child == nil {
		return errors.New(errors.CodeValidationError, "add child: nil node")
	}
	if child == n {
		return errors.New(errors.CodeValidationError, "add child: node cannot own itself")
	}
	for anc := n; anc != nil; anc = anc.Parent {
		if anc == child {
			return errors.New(errors.CodeValidationError, "add child: node cannot own its ancestor")
		}
	}
	if child.Parent != nil {
		child.Detach()
	}
	child.Parent = n
	n.Children = append(n.Children, child)
	return nil
}

// Detach removes n from its parent's children, making n a root of its own
// subtree. Used to transfer ownership across the consumer boundary.
func (n *Node) Detach() {
	if n == nil || n.Parent == nil {
		return
	}
	siblings := n.Parent.Children
	for i, c := range siblings {
		if c == n {
			n.Parent.Children = append(siblings[:i], siblings[i+1:]...)
			break
		}
	}
	n.Parent = nil
}

// AddReference appends a non-owning edge. It never fails due to cycles;
// mutual recursion and circular imports are expected.
func (n *Node) AddReference(target *Node, meta ReferenceMetadata) error {
	if n == nil || target == nil {
		return errors.New(errors.CodeValidationError, "add reference: nil node")
	}
	n.Refs = append(n.Refs, Reference{Target: target, Meta: meta})
	return nil
}

// Walk visits n and its descendants pre-order. Returning false from fn
// stops descent into that subtree.
func (n *Node) Walk(fn func(*Node) bool) {
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Count returns the number of nodes in the subtree rooted at n.
func (n *Node) Count() int {
	total := 0
	n.Walk(func(*Node) bool {
		total++
		return true
	})
	return total
}
