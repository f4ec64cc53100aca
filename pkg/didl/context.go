// ABOUTME: Engine context owning the registry, interners, logger and metrics hooks
// ABOUTME: All element construction paths go through a Context

package didl

import (
	"encoding/xml"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/nainya/didlcore/pkg/didlerr"
	"github.com/nainya/didlcore/pkg/intern"
)

// ErrUnknownProperty is returned for property names with no registry mapping.
var ErrUnknownProperty = errors.New("didl: unknown property")

// Recorder receives engine activity. *metrics.Metrics satisfies it.
type Recorder interface {
	RecordParse(kind string, code string)
	RecordUnknownProperty()
	RecordWrite(status string, duration time.Duration)
	InternObserver(cache string) intern.Observer
}

// Context carries the state shared by element construction: the registry,
// the canonical value caches and the diagnostics hooks. It is safe for
// concurrent use.
type Context struct {
	registry  *Registry
	names     intern.Strings
	values    intern.Strings
	protocols intern.Interner[string, *ProtocolInfo]
	mime      MimeResolver
	logger    zerolog.Logger
	recorder  Recorder
}

type contextOptions struct {
	registry *Registry
	logger   zerolog.Logger
	recorder Recorder
	ordered  bool
	capacity int
	mime     MimeResolver
}

// Option configures a Context.
type Option func(*contextOptions)

// WithRegistry replaces the built-in registry.
func WithRegistry(r *Registry) Option {
	return func(o *contextOptions) { o.registry = r }
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(l zerolog.Logger) Option {
	return func(o *contextOptions) { o.logger = l }
}

// WithRecorder reports parse, write and interning activity to r.
func WithRecorder(r Recorder) Option {
	return func(o *contextOptions) { o.recorder = r }
}

// WithOrderedInterning uses sorted-slice interners instead of hash maps.
func WithOrderedInterning() Option {
	return func(o *contextOptions) { o.ordered = true }
}

// WithInternCapacity presizes the hash interners.
func WithInternCapacity(n int) Option {
	return func(o *contextOptions) { o.capacity = n }
}

// WithMimeResolver sets the resolver used by ProtocolInfoForExtension.
func WithMimeResolver(r MimeResolver) Option {
	return func(o *contextOptions) { o.mime = r }
}

// NewContext creates a Context.
func NewContext(opts ...Option) *Context {
	o := contextOptions{
		registry: DefaultRegistry(),
		logger:   zerolog.Nop(),
		mime:     StdMimeResolver{},
	}
	for _, opt := range opts {
		opt(&o)
	}

	internOpts := func(cache string) []intern.Option {
		var out []intern.Option
		if o.capacity > 0 {
			out = append(out, intern.WithCapacity(o.capacity))
		}
		if o.recorder != nil {
			out = append(out, intern.WithObserver(o.recorder.InternObserver(cache)))
		}
		return out
	}

	c := &Context{
		registry: o.registry,
		mime:     o.mime,
		logger:   o.logger,
		recorder: o.recorder,
	}
	if o.ordered {
		c.names = intern.NewOrdered[string, string](internOpts("names")...)
		c.values = intern.NewOrdered[string, string](internOpts("values")...)
		c.protocols = intern.NewOrdered[string, *ProtocolInfo](internOpts("protocols")...)
	} else {
		c.names = intern.NewHash[string, string](internOpts("names")...)
		c.values = intern.NewHash[string, string](internOpts("values")...)
		c.protocols = intern.NewHash[string, *ProtocolInfo](internOpts("protocols")...)
	}
	return c
}

// Registry returns the context's registry.
func (c *Context) Registry() *Registry {
	return c.registry
}

// Reset drops every canonical value. Elements already built stay valid.
func (c *Context) Reset() {
	c.names.Clear()
	c.values.Clear()
	c.protocols.Clear()
}

// ProtocolInfo parses s and returns the shared canonical instance.
func (c *Context) ProtocolInfo(s string) (*ProtocolInfo, error) {
	if p, ok := c.protocols.Lookup(s); ok {
		return p, nil
	}
	p, err := ParseProtocolInfo(s)
	if err != nil {
		return nil, err
	}
	return c.protocols.Intern(p.String(), p), nil
}

// ProtocolInfoForExtension builds a canonical http-get descriptor from a
// file extension using the context's MIME resolver.
func (c *Context) ProtocolInfoForExtension(ext string) (*ProtocolInfo, error) {
	p, err := ProtocolInfoForExtension(ext, c.mime)
	if err != nil {
		return nil, err
	}
	return c.protocols.Intern(p.String(), p), nil
}

func (c *Context) resolve(name string) (string, Mapping, error) {
	m, ok := c.registry.Resolve(name)
	if !ok {
		if c.recorder != nil {
			c.recorder.RecordUnknownProperty()
		}
		return "", Mapping{}, fmt.Errorf("%w: %s", ErrUnknownProperty, name)
	}
	return intern.Value(c.names, name), m, nil
}

func (c *Context) record(kind Kind, err error) {
	if c.recorder == nil {
		return
	}
	code := ""
	if err != nil {
		if cd, ok := didlerr.CodeOf(err); ok {
			code = string(cd)
		} else {
			code = "UNKNOWN"
		}
	}
	c.recorder.RecordParse(kind.String(), code)
}

// NewElement builds an element from a property name and a raw value. Strings
// are parsed as wire text; other values must match the variant's payload
// type, except integers which are range-checked into numeric variants.
func (c *Context) NewElement(name string, value any) (Element, error) {
	qname, m, err := c.resolve(name)
	if err != nil {
		return nil, err
	}
	var el Element
	if s, ok := value.(string); ok {
		el, err = c.parse(qname, m.Kind, s, "")
	} else {
		el, err = c.fromValue(qname, m.Kind, value)
	}
	c.record(m.Kind, err)
	return el, err
}

// FromNode builds an element from a markup node.
func (c *Context) FromNode(n *Node) (Element, error) {
	qname, m, err := c.resolve(n.Name)
	if err != nil {
		return nil, err
	}
	role := ""
	for _, a := range n.Attrs {
		if m.Kind == KindPersonWithRole && a.Name == RoleAttribute {
			role = a.Value
			continue
		}
		c.logger.Debug().Str("property", n.Name).Str("attribute", a.Name).Msg("ignoring unsupported attribute")
	}
	el, err := c.parse(qname, m.Kind, n.Text, role)
	c.record(m.Kind, err)
	return el, err
}

// ReadElement builds an element from a decoder positioned just after start.
// The decoder is left after the element's end token.
func (c *Context) ReadElement(dec *xml.Decoder, start xml.StartElement) (Element, error) {
	n, err := DecodeNode(dec, start)
	if err != nil {
		return nil, err
	}
	return c.FromNode(n)
}

// FromAttribute builds an attribute-valued element. An empty owner denotes
// the object itself, so ("", "id") resolves "@id" and ("res", "size")
// resolves "res@size".
func (c *Context) FromAttribute(owner, attr, value string) (Element, error) {
	return c.NewElement(owner+"@"+attr, value)
}

func (c *Context) parse(name string, kind Kind, text, role string) (Element, error) {
	s := simple{name: name}
	switch kind {
	case KindString:
		return &String{s, intern.Value(c.values, text)}, nil
	case KindBool:
		v, err := ParseBool(text)
		if err != nil {
			return nil, err
		}
		return &Bool{s, v}, nil
	case KindUnsignedInt:
		return parseNumberElement[uint32](s, text)
	case KindInt:
		return parseNumberElement[int32](s, text)
	case KindUnsignedLong:
		return parseNumberElement[uint64](s, text)
	case KindLong:
		return parseNumberElement[int64](s, text)
	case KindStorageMedium:
		return parseEnumElement[StorageMedium](s, text)
	case KindWriteStatus:
		return parseEnumElement[WriteStatus](s, text)
	case KindPersonWithRole:
		return &PersonWithRole{name: name, person: Person{
			Name: intern.Value(c.values, text),
			Role: intern.Value(c.values, role),
		}}, nil
	case KindDate:
		t, layout, err := ParseDate(text)
		if err != nil {
			return nil, err
		}
		return &Date{s, t, layout}, nil
	case KindURI:
		u, err := ParseURI(text)
		if err != nil {
			return nil, err
		}
		return &URI{s, u}, nil
	case KindProtocolInfo:
		p, err := c.ProtocolInfo(text)
		if err != nil {
			return nil, err
		}
		return &ProtocolInfoElement{s, p}, nil
	}
	return nil, didlerr.Parse("parse "+name, text, "unsupported variant "+kind.String())
}

func (c *Context) fromValue(name string, kind Kind, value any) (Element, error) {
	s := simple{name: name}
	mismatch := func() (Element, error) {
		return nil, didlerr.TypeMismatch("build "+name, kind.String(), value)
	}
	switch kind {
	case KindString:
		str, ok := coerceString(value)
		if !ok {
			return mismatch()
		}
		return &String{s, intern.Value(c.values, str)}, nil
	case KindBool:
		if v, ok := value.(bool); ok {
			return &Bool{s, v}, nil
		}
	case KindUnsignedInt, KindInt, KindUnsignedLong, KindLong:
		if !isInteger(value) {
			return mismatch()
		}
		return c.parse(name, kind, fmt.Sprint(value), "")
	case KindStorageMedium:
		if v, ok := value.(StorageMedium); ok {
			return &StorageMediumElement{s, v}, nil
		}
	case KindWriteStatus:
		if v, ok := value.(WriteStatus); ok {
			return &WriteStatusElement{s, v}, nil
		}
	case KindPersonWithRole:
		if v, ok := value.(Person); ok {
			return c.parse(name, kind, v.Name, v.Role)
		}
	case KindDate:
		if v, ok := value.(time.Time); ok {
			return &Date{s, v, layoutFor(v)}, nil
		}
	case KindURI:
		if v, ok := value.(*url.URL); ok {
			return &URI{s, v.String()}, nil
		}
	case KindProtocolInfo:
		if v, ok := value.(*ProtocolInfo); ok {
			return &ProtocolInfoElement{s, c.protocols.Intern(v.String(), v)}, nil
		}
	}
	return mismatch()
}

func isInteger(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	}
	return false
}

func parseNumberElement[T Integer](s simple, text string) (Element, error) {
	v, err := parseNumber[T](text)
	if err != nil {
		return nil, err
	}
	return &Number[T]{s, v}, nil
}

func parseEnumElement[T Enumeration](s simple, text string) (Element, error) {
	v, err := parseEnumValue[T](text)
	if err != nil {
		return nil, err
	}
	return &Enum[T]{s, v}, nil
}

// NewItem creates an item with the required object attributes.
func (c *Context) NewItem(id, parentID string) (*Object, error) {
	return c.newObject(false, id, parentID)
}

// NewContainer creates a container with the required object attributes.
func (c *Context) NewContainer(id, parentID string) (*Object, error) {
	return c.newObject(true, id, parentID)
}

func (c *Context) newObject(container bool, id, parentID string) (*Object, error) {
	o := newObject(container, c.registry)
	for _, kv := range [][2]string{{PropID, id}, {PropParentID, parentID}, {PropRestricted, "true"}} {
		el, err := c.NewElement(kv[0], kv[1])
		if err != nil {
			return nil, err
		}
		if err := o.Add(el); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// NewResource creates a resource with a canonical protocol-info attribute.
func (c *Context) NewResource(uri, protocolInfo string) (*Resource, error) {
	if protocolInfo == "" {
		protocolInfo = DefaultProtocolInfo
	}
	el, err := c.NewElement(PropProtocolInfo, protocolInfo)
	if err != nil {
		return nil, err
	}
	r := &Resource{URI: uri, registry: c.registry}
	if err := r.Add(el); err != nil {
		return nil, err
	}
	return r, nil
}

// Set builds an element and adds it to o.
func (c *Context) Set(o *Object, name string, value any) error {
	el, err := c.NewElement(name, value)
	if err != nil {
		return err
	}
	return o.Add(el)
}

// SetResource builds a res@ element and adds it to r.
func (c *Context) SetResource(r *Resource, name string, value any) error {
	el, err := c.NewElement(name, value)
	if err != nil {
		return err
	}
	return r.Add(el)
}
