// ABOUTME: Minimal markup tree consumed by the element parsers
// ABOUTME: Built from raw encoding/xml tokens, keeping namespace prefixes verbatim

package didl

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"github.com/nainya/didlcore/pkg/didlerr"
)

// Attr is a name/value pair with a prefix-qualified name.
type Attr struct {
	Name  string
	Value string
}

// Node is an element in a markup tree. Names keep their prefix ("dc:title").
type Node struct {
	Name     string
	Attrs    []Attr
	Text     string
	Children []*Node
}

// Attr returns the value of a named attribute.
func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// InnerXML re-serializes the node's children.
func (n *Node) InnerXML() (string, error) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	for _, c := range n.Children {
		if err := c.write(w); err != nil {
			return "", err
		}
	}
	if err := w.Flush(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (n *Node) write(w *Writer) error {
	if err := w.Start(n.Name, n.Attrs...); err != nil {
		return err
	}
	if n.Text != "" {
		if err := w.Text(n.Text); err != nil {
			return err
		}
	}
	for _, c := range n.Children {
		if err := c.write(w); err != nil {
			return err
		}
	}
	return w.End(n.Name)
}

func qualifiedName(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}

// ParseNode reads the first element from r.
func ParseNode(r io.Reader) (*Node, error) {
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.RawToken()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, didlerr.Parse("parse markup", "", "no root element")
			}
			return nil, didlerr.ParseWrap("parse markup", "", err)
		}
		if start, ok := tok.(xml.StartElement); ok {
			return DecodeNode(dec, start)
		}
	}
}

// DecodeNode reads the element opened by start, including its subtree, from
// a decoder positioned just after start.
func DecodeNode(dec *xml.Decoder, start xml.StartElement) (*Node, error) {
	n := &Node{Name: qualifiedName(start.Name)}
	for _, a := range start.Attr {
		n.Attrs = append(n.Attrs, Attr{Name: qualifiedName(a.Name), Value: a.Value})
	}

	var text strings.Builder
	for {
		tok, err := dec.RawToken()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, didlerr.Parse("parse markup", n.Name, "unexpected end of input")
			}
			return nil, didlerr.ParseWrap("parse markup", n.Name, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			child, err := DecodeNode(dec, t)
			if err != nil {
				return nil, err
			}
			n.Children = append(n.Children, child)
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			if name := qualifiedName(t.Name); name != n.Name {
				return nil, didlerr.Parse("parse markup", name, "mismatched end tag for "+n.Name)
			}
			n.Text = text.String()
			if len(n.Children) > 0 {
				n.Text = strings.TrimSpace(n.Text)
			}
			return n, nil
		}
	}
}
