package ast

import "encoding/json"

type jsonRef struct {
	Target string `json:"target"`
	File   string `json:"file,omitempty"`
	Kind   string `json:"kind"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type jsonNode struct {
	Type          string      `json:"type"`
	Name          string      `json:"name"`
	QualifiedName string      `json:"qualified_name,omitempty"`
	Signature     string      `json:"signature,omitempty"`
	Docstring     string      `json:"docstring,omitempty"`
	Range         SourceRange `json:"range"`
	References    []jsonRef   `json:"references,omitempty"`
	Children      []*Node     `json:"children,omitempty"`
}

// MarshalJSON renders the subtree without parent back-edges. References
// are flattened to qualified names so cyclic graphs stay serializable.
func (n *Node) MarshalJSON() ([]byte, error) {
	out := jsonNode{
		Type:          n.Type.String(),
		Name:          n.Name,
		QualifiedName: n.QualifiedName,
		Signature:     n.Signature,
		Docstring:     n.Docstring,
		Range:         n.Range,
		Children:      n.Children,
	}
	for _, ref := range n.Refs {
		jr := jsonRef{
			Target: ref.Target.QualifiedName,
			File:   ref.Meta.TargetFile,
			Kind:   ref.Meta.Kind.String(),
			Status: ref.Meta.Status.String(),
		}
		if ref.Meta.Err != nil {
			jr.Error = ref.Meta.Err.Error()
		}
		out.References = append(out.References, jr)
	}
	return json.Marshal(out)
}
