// ABOUTME: Whole-document DIDL-Lite decoding and serialization
// ABOUTME: Unknown properties are skipped and counted, never fatal

package didl

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"time"

	"github.com/nainya/didlcore/pkg/didlerr"
)

// Marshal serializes e with the emission pipeline.
func Marshal(e Emitter, opts WriteOptions) ([]byte, error) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := Write(e, w, opts); err != nil {
		return nil, err
	}
	if err := w.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Marshal serializes e and reports the outcome to the context's recorder.
func (c *Context) Marshal(e Emitter, opts WriteOptions) ([]byte, error) {
	start := time.Now()
	out, err := Marshal(e, opts)
	status := "success"
	if err != nil {
		status = "error"
		c.logger.Error().Err(err).Msg("serialization failed")
	}
	if c.recorder != nil {
		c.recorder.RecordWrite(status, time.Since(start))
	}
	return out, err
}

// DecodeDocument reads a DIDL-Lite document.
func (c *Context) DecodeDocument(r io.Reader) (*Document, error) {
	dec := xml.NewDecoder(r)
	var root *Node
	for root == nil {
		tok, err := dec.RawToken()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, didlerr.Parse("decode document", "", "no root element")
			}
			return nil, didlerr.ParseWrap("decode document", "", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if name := qualifiedName(start.Name); name != TagRoot {
			return nil, didlerr.Parse("decode document", name, "expected "+TagRoot+" root element")
		}
		if root, err = DecodeNode(dec, start); err != nil {
			return nil, err
		}
	}

	doc := &Document{}
	for _, n := range root.Children {
		switch n.Name {
		case TagItem, TagContainer:
			o, err := c.ObjectFromNode(n)
			if err != nil {
				return nil, err
			}
			doc.Objects = append(doc.Objects, o)
		default:
			c.logger.Debug().Str("node", n.Name).Msg("skipping non-object node")
		}
	}
	return doc, nil
}

// ObjectFromNode builds an item or container, including nested objects.
func (c *Context) ObjectFromNode(n *Node) (*Object, error) {
	o := newObject(n.Name == TagContainer, c.registry)
	for _, a := range n.Attrs {
		el, err := c.FromAttribute("", a.Name, a.Value)
		if c.skipUnknown(err, a.Name) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if err := o.Add(el); err != nil {
			return nil, err
		}
	}

	for _, child := range n.Children {
		switch child.Name {
		case TagItem, TagContainer:
			nested, err := c.ObjectFromNode(child)
			if err != nil {
				return nil, err
			}
			o.AddChild(nested)
		case TagRes:
			r, err := c.resourceFromNode(child)
			if err != nil {
				return nil, err
			}
			o.AddResource(r)
		case TagDesc:
			d, err := descFromNode(child)
			if err != nil {
				return nil, err
			}
			o.AddDesc(d)
		default:
			el, err := c.FromNode(child)
			if c.skipUnknown(err, child.Name) {
				continue
			}
			if err != nil {
				return nil, err
			}
			if err := o.Add(el); err != nil {
				return nil, err
			}
		}
	}
	return o, nil
}

func (c *Context) skipUnknown(err error, name string) bool {
	if errors.Is(err, ErrUnknownProperty) {
		c.logger.Debug().Str("property", name).Msg("skipping unknown property")
		return true
	}
	return false
}

func (c *Context) resourceFromNode(n *Node) (*Resource, error) {
	r := &Resource{URI: n.Text, registry: c.registry}
	for _, a := range n.Attrs {
		el, err := c.FromAttribute(TagRes, a.Name, a.Value)
		if c.skipUnknown(err, TagRes+"@"+a.Name) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if err := r.Add(el); err != nil {
			return nil, err
		}
	}
	if r.ProtocolInfo() == nil {
		return nil, didlerr.Validation("decode resource", n.Text, "missing protocolInfo")
	}
	return r, nil
}

func descFromNode(n *Node) (*Desc, error) {
	var fragment string
	if len(n.Children) == 0 {
		var buf bytes.Buffer
		if err := xml.EscapeText(&buf, []byte(n.Text)); err != nil {
			return nil, err
		}
		fragment = buf.String()
	} else {
		var err error
		if fragment, err = n.InnerXML(); err != nil {
			return nil, err
		}
	}
	id, _ := n.Attr("id")
	ns, _ := n.Attr("nameSpace")
	d := NewDesc(id, ns, fragment)
	d.Type, _ = n.Attr("type")
	return d, nil
}
