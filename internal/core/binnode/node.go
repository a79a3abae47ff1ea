// Package binnode provides the in-memory tree node exchanged with the socket
// layer, along with the traversal helpers used to read responses.
//
// Serialisation to and from the wire format lives in the socket layer; this
// package only describes the decoded shape.
package binnode

import (
	"encoding/json"
	"fmt"
)

// Node is a decoded protocol node. Content is either a list of child nodes,
// raw bytes, or nil.
type Node struct {
	Tag     string
	Attrs   map[string]string
	Content any
}

// Attr returns the named attribute, or an empty string when the node or the
// attribute is missing.
func (n *Node) Attr(key string) string {
	if n == nil || n.Attrs == nil {
		return ""
	}
	return n.Attrs[key]
}

// SetAttr sets an attribute, allocating the map if needed.
func (n *Node) SetAttr(key, value string) {
	if n.Attrs == nil {
		n.Attrs = make(map[string]string)
	}
	n.Attrs[key] = value
}

// Bytes returns the node content when it is a byte payload.
func (n *Node) Bytes() []byte {
	if n == nil {
		return nil
	}
	switch c := n.Content.(type) {
	case []byte:
		return c
	case string:
		return []byte(c)
	default:
		return nil
	}
}

// AllChildren returns pointers to every child node in document order.
// A nil node or non-list content yields nil.
func AllChildren(n *Node) []*Node {
	if n == nil {
		return nil
	}
	children, ok := n.Content.([]Node)
	if !ok {
		return nil
	}
	out := make([]*Node, len(children))
	for i := range children {
		out[i] = &children[i]
	}
	return out
}

// Children returns every direct child with the given tag.
func Children(n *Node, tag string) []*Node {
	var out []*Node
	for _, c := range AllChildren(n) {
		if c.Tag == tag {
			out = append(out, c)
		}
	}
	return out
}

// Child returns the first direct child with the given tag, or nil.
func Child(n *Node, tag string) *Node {
	for _, c := range AllChildren(n) {
		if c.Tag == tag {
			return c
		}
	}
	return nil
}

// jsonNode is the fixture representation used by the CLI and tests. Content is
// either an array of nodes or a UTF-8 string.
type jsonNode struct {
	Tag     string            `json:"tag"`
	Attrs   map[string]string `json:"attrs,omitempty"`
	Content json.RawMessage   `json:"content,omitempty"`
}

// MarshalJSON encodes the node in fixture form.
func (n Node) MarshalJSON() ([]byte, error) {
	out := jsonNode{Tag: n.Tag, Attrs: n.Attrs}

	var (
		raw []byte
		err error
	)
	switch c := n.Content.(type) {
	case nil:
	case []Node:
		raw, err = json.Marshal(c)
	case []byte:
		raw, err = json.Marshal(string(c))
	case string:
		raw, err = json.Marshal(c)
	default:
		return nil, fmt.Errorf("unsupported content type %T", n.Content)
	}
	if err != nil {
		return nil, err
	}
	out.Content = raw

	return json.Marshal(out)
}

// UnmarshalJSON decodes the fixture form.
func (n *Node) UnmarshalJSON(data []byte) error {
	var in jsonNode
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	n.Tag = in.Tag
	n.Attrs = in.Attrs
	n.Content = nil

	if len(in.Content) == 0 || string(in.Content) == "null" {
		return nil
	}

	switch in.Content[0] {
	case '[':
		var children []Node
		if err := json.Unmarshal(in.Content, &children); err != nil {
			return fmt.Errorf("decode children of %q: %w", in.Tag, err)
		}
		n.Content = children
	case '"':
		var text string
		if err := json.Unmarshal(in.Content, &text); err != nil {
			return fmt.Errorf("decode content of %q: %w", in.Tag, err)
		}
		n.Content = []byte(text)
	default:
		return fmt.Errorf("node %q: content must be an array or a string", in.Tag)
	}

	return nil
}
