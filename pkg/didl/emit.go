// ABOUTME: Three-phase XML emission pipeline with per-phase overrides
// ABOUTME: Shared inner-content writer for objects, resources and documents

package didl

import (
	"encoding/xml"
	"io"
	"strings"
)

// Writer emits markup tokens. Names are written verbatim, prefix included.
type Writer struct {
	out io.Writer
	enc *xml.Encoder
}

// NewWriter creates a Writer on out.
func NewWriter(out io.Writer) *Writer {
	return &Writer{out: out, enc: xml.NewEncoder(out)}
}

// Start opens an element.
func (w *Writer) Start(name string, attrs ...Attr) error {
	start := xml.StartElement{Name: xml.Name{Local: name}}
	for _, a := range attrs {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: a.Name}, Value: a.Value})
	}
	return w.enc.EncodeToken(start)
}

// Text writes escaped character data.
func (w *Writer) Text(s string) error {
	if s == "" {
		return nil
	}
	return w.enc.EncodeToken(xml.CharData(s))
}

// End closes an element.
func (w *Writer) End(name string) error {
	return w.enc.EncodeToken(xml.EndElement{Name: xml.Name{Local: name}})
}

// Raw writes an already serialized fragment unchanged.
func (w *Writer) Raw(fragment string) error {
	if err := w.enc.Flush(); err != nil {
		return err
	}
	_, err := io.WriteString(w.out, fragment)
	return err
}

// Flush writes buffered output.
func (w *Writer) Flush() error {
	return w.enc.Flush()
}

// Emitter is anything written in three phases.
type Emitter interface {
	WriteStart(w *Writer, opts *WriteOptions) error
	WriteValue(w *Writer, opts *WriteOptions) error
	WriteEnd(w *Writer, opts *WriteOptions) error
}

// PhaseFunc replaces one emission phase.
type PhaseFunc func(e Emitter, w *Writer, opts *WriteOptions) error

// Formatter overrides emission phases; nil fields keep the default.
type Formatter struct {
	Start PhaseFunc
	Value PhaseFunc
	End   PhaseFunc
}

// WriteOptions controls a Write call.
type WriteOptions struct {
	// Desired restricts output to named properties; empty prints everything.
	Desired PropertySet

	// Recursive writes child objects.
	Recursive bool

	// Formatter applies to the top-level emitter only.
	Formatter *Formatter
}

// requiredProperties are written regardless of the desired set.
var requiredProperties = map[string]bool{
	PropID:           true,
	PropParentID:     true,
	PropRestricted:   true,
	PropTitle:        true,
	PropClass:        true,
	PropProtocolInfo: true,
}

// PropertySet is a set of property names.
type PropertySet map[string]struct{}

// NewPropertySet creates a set from names.
func NewPropertySet(names ...string) PropertySet {
	s := make(PropertySet, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			s[n] = struct{}{}
		}
	}
	return s
}

// ParsePropertySet parses a comma-separated filter. "*" and "" select everything.
func ParsePropertySet(filter string) PropertySet {
	filter = strings.TrimSpace(filter)
	if filter == "" || filter == "*" {
		return PropertySet{}
	}
	return NewPropertySet(strings.Split(filter, ",")...)
}

// Includes reports whether name should be written. Naming an attribute of a
// property ("res@size") implies the property itself ("res").
func (s PropertySet) Includes(name string) bool {
	if len(s) == 0 || requiredProperties[name] {
		return true
	}
	if _, ok := s[name]; ok {
		return true
	}
	if IsAttribute(name) {
		return false
	}
	prefix := name + "@"
	for n := range s {
		if strings.HasPrefix(n, prefix) {
			return true
		}
	}
	return false
}

// contents is the inner content of a composite emitter.
type contents struct {
	properties []Element
	resources  []*Resource
	descs      []*Desc
	children   []*Object

	// alwaysRecurse writes children even without WriteOptions.Recursive.
	alwaysRecurse bool
}

type composite interface {
	contents() contents
}

// Write emits e: start, value, inner content for composites, end. Overrides
// in opts.Formatter replace the matching default phase for e only;
// descendants are written with the defaults.
func Write(e Emitter, w *Writer, opts WriteOptions) error {
	f := opts.Formatter
	if f == nil {
		f = &Formatter{}
	}
	inner := opts
	inner.Formatter = nil

	if err := runPhase(f.Start, e.WriteStart, e, w, &inner); err != nil {
		return err
	}
	if err := runPhase(f.Value, e.WriteValue, e, w, &inner); err != nil {
		return err
	}
	if c, ok := e.(composite); ok {
		if err := writeContents(c.contents(), w, inner); err != nil {
			return err
		}
	}
	return runPhase(f.End, e.WriteEnd, e, w, &inner)
}

func runPhase(override PhaseFunc, def func(*Writer, *WriteOptions) error, e Emitter, w *Writer, opts *WriteOptions) error {
	if override != nil {
		return override(e, w, opts)
	}
	return def(w, opts)
}

func writeContents(c contents, w *Writer, opts WriteOptions) error {
	for _, p := range c.properties {
		if !opts.Desired.Includes(p.Name()) {
			continue
		}
		if err := Write(p, w, opts); err != nil {
			return err
		}
	}
	if len(c.resources) > 0 && opts.Desired.Includes(PropRes) {
		for _, r := range c.resources {
			if err := Write(r, w, opts); err != nil {
				return err
			}
		}
	}
	if len(c.descs) > 0 && opts.Desired.Includes(PropDesc) {
		for _, d := range c.descs {
			if err := Write(d, w, opts); err != nil {
				return err
			}
		}
	}
	if opts.Recursive || c.alwaysRecurse {
		for _, child := range c.children {
			if err := Write(child, w, opts); err != nil {
				return err
			}
		}
	}
	return nil
}

// attributeList renders attribute-valued elements, filtered by opts.Desired.
func attributeList(elements []Element, opts *WriteOptions) []Attr {
	attrs := make([]Attr, 0, len(elements))
	for _, el := range elements {
		if !opts.Desired.Includes(el.Name()) {
			continue
		}
		attrs = append(attrs, Attr{Name: AttributeLocalName(el.Name()), Value: el.StringValue()})
	}
	return attrs
}
