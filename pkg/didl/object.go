// ABOUTME: DIDL-Lite objects (items and containers), resources and desc fragments
// ABOUTME: Objects hold elements in insertion order and serve as sortable records

package didl

import (
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/nainya/didlcore/pkg/didlerr"
)

// DIDL-Lite namespaces declared on the document root.
const (
	NamespaceDIDL = "urn:schemas-upnp-org:metadata-1-0/DIDL-Lite/"
	NamespaceDC   = "http://purl.org/dc/elements/1.1/"
	NamespaceUPnP = "urn:schemas-upnp-org:metadata-1-0/upnp/"
	NamespaceDLNA = "urn:schemas-dlna-org:metadata-1-0/"
)

// Tag names of structural nodes.
const (
	TagRoot      = "DIDL-Lite"
	TagItem      = "item"
	TagContainer = "container"
	TagRes       = "res"
	TagDesc      = "desc"
)

// elementList is an insertion-ordered list of elements keyed by name.
type elementList []Element

// set replaces every element named like el, or appends when multiple is set.
func (l elementList) set(el Element, multiple bool) elementList {
	if multiple {
		return append(l, el)
	}
	for i := range l {
		if l[i].Name() == el.Name() {
			l[i] = el
			rest := slices.DeleteFunc(l[i+1:], func(e Element) bool {
				return e.Name() == el.Name()
			})
			return l[:i+1+len(rest)]
		}
	}
	return append(l, el)
}

func (l elementList) named(name string) []Element {
	var out []Element
	for _, el := range l {
		if el.Name() == name {
			out = append(out, el)
		}
	}
	return out
}

func (l elementList) first(name string) (Element, bool) {
	for _, el := range l {
		if el.Name() == name {
			return el, true
		}
	}
	return nil, false
}

// Object is an item or a container.
type Object struct {
	container  bool
	registry   *Registry
	attributes elementList
	properties elementList

	Resources []*Resource
	Descs     []*Desc
	Children  []*Object
}

func newObject(container bool, registry *Registry) *Object {
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &Object{container: container, registry: registry}
}

// IsContainer reports whether the object is a container.
func (o *Object) IsContainer() bool {
	return o.container
}

// Add stores an element. Object attributes ("@id") and single-valued
// properties replace any previous value; multi-valued properties append.
func (o *Object) Add(el Element) error {
	name := el.Name()
	switch {
	case strings.HasPrefix(name, ResourceAttributePrefix):
		return didlerr.Validation("add element", name, "resource attribute must be added to a resource")
	case strings.HasPrefix(name, ObjectAttributePrefix):
		o.attributes = o.attributes.set(el, false)
	default:
		m, _ := o.registry.Resolve(name)
		o.properties = o.properties.set(el, m.Multiple)
	}
	return nil
}

// AddChild appends a nested object.
func (o *Object) AddChild(child *Object) {
	o.Children = append(o.Children, child)
}

// AddResource appends a resource.
func (o *Object) AddResource(r *Resource) {
	o.Resources = append(o.Resources, r)
}

// AddDesc appends a descriptive extension node.
func (o *Object) AddDesc(d *Desc) {
	o.Descs = append(o.Descs, d)
}

// Values returns the elements stored under a property name. Names starting
// with "res@" read from the first resource.
func (o *Object) Values(property string) []Element {
	switch {
	case strings.HasPrefix(property, ResourceAttributePrefix):
		if len(o.Resources) == 0 {
			return nil
		}
		return o.Resources[0].Values(property)
	case strings.HasPrefix(property, ObjectAttributePrefix):
		return o.attributes.named(property)
	}
	return o.properties.named(property)
}

// Properties returns the non-attribute elements in insertion order.
func (o *Object) Properties() []Element {
	return slices.Clone([]Element(o.properties))
}

// ObjectAttributes returns the attribute elements in insertion order.
func (o *Object) ObjectAttributes() []Element {
	return slices.Clone([]Element(o.attributes))
}

func (o *Object) stringAttr(name string) string {
	if el, ok := o.attributes.first(name); ok {
		return el.StringValue()
	}
	return ""
}

func (o *Object) stringProp(name string) string {
	if el, ok := o.properties.first(name); ok {
		return el.StringValue()
	}
	return ""
}

func (o *Object) ID() string       { return o.stringAttr(PropID) }
func (o *Object) ParentID() string { return o.stringAttr(PropParentID) }
func (o *Object) Title() string    { return o.stringProp(PropTitle) }
func (o *Object) Class() string    { return o.stringProp(PropClass) }

func (o *Object) tag() string {
	if o.container {
		return TagContainer
	}
	return TagItem
}

func (o *Object) WriteStart(w *Writer, opts *WriteOptions) error {
	return w.Start(o.tag(), attributeList(o.attributes, opts)...)
}

func (o *Object) WriteValue(*Writer, *WriteOptions) error { return nil }

func (o *Object) WriteEnd(w *Writer, _ *WriteOptions) error {
	return w.End(o.tag())
}

func (o *Object) contents() contents {
	return contents{
		properties: o.properties,
		resources:  o.Resources,
		descs:      o.Descs,
		children:   o.Children,
	}
}

// Resource is a res node: a locator plus res@ attributes.
type Resource struct {
	URI        string
	registry   *Registry
	attributes elementList
}

// Add stores a res@ attribute element, replacing any previous value.
func (r *Resource) Add(el Element) error {
	if !strings.HasPrefix(el.Name(), ResourceAttributePrefix) {
		return didlerr.Validation("add resource attribute", el.Name(), "expected a res@ property")
	}
	r.attributes = r.attributes.set(el, false)
	return nil
}

// Values returns the attribute elements stored under name.
func (r *Resource) Values(name string) []Element {
	return r.attributes.named(name)
}

// ProtocolInfo returns the resource's protocol-info descriptor.
func (r *Resource) ProtocolInfo() *ProtocolInfo {
	if el, ok := r.attributes.first(PropProtocolInfo); ok {
		if p, ok := el.(*ProtocolInfoElement); ok {
			return p.ProtocolInfo()
		}
	}
	return nil
}

// PossibleAttributes lists the res@ attributes known to the registry.
func (r *Resource) PossibleAttributes() []string {
	reg := r.registry
	if reg == nil {
		reg = DefaultRegistry()
	}
	names := reg.WithPrefix(ResourceAttributePrefix)
	for i, n := range names {
		names[i] = AttributeLocalName(n)
	}
	return names
}

// ValidAttributes lists the attributes populated on this resource.
func (r *Resource) ValidAttributes() []string {
	out := make([]string, len(r.attributes))
	for i, el := range r.attributes {
		out[i] = AttributeLocalName(el.Name())
	}
	return out
}

func (r *Resource) WriteStart(w *Writer, opts *WriteOptions) error {
	return w.Start(TagRes, attributeList(r.attributes, opts)...)
}

func (r *Resource) WriteValue(w *Writer, _ *WriteOptions) error { return w.Text(r.URI) }
func (r *Resource) WriteEnd(w *Writer, _ *WriteOptions) error   { return w.End(TagRes) }

// Desc is a descriptive extension node whose content is an opaque,
// already serialized fragment.
type Desc struct {
	ID        string
	Type      string
	Namespace string
	Fragment  string
}

// NewDesc creates a Desc, generating an id when id is empty.
func NewDesc(id, namespace, fragment string) *Desc {
	if id == "" {
		id = uuid.NewString()
	}
	return &Desc{ID: id, Namespace: namespace, Fragment: fragment}
}

func (d *Desc) WriteStart(w *Writer, _ *WriteOptions) error {
	attrs := []Attr{{Name: "id", Value: d.ID}}
	if d.Type != "" {
		attrs = append(attrs, Attr{Name: "type", Value: d.Type})
	}
	attrs = append(attrs, Attr{Name: "nameSpace", Value: d.Namespace})
	return w.Start(TagDesc, attrs...)
}

func (d *Desc) WriteValue(w *Writer, _ *WriteOptions) error { return w.Raw(d.Fragment) }
func (d *Desc) WriteEnd(w *Writer, _ *WriteOptions) error   { return w.End(TagDesc) }

// Document is a DIDL-Lite root. Top-level objects are always written;
// their children only when WriteOptions.Recursive is set.
type Document struct {
	Objects []*Object
}

func (d *Document) WriteStart(w *Writer, _ *WriteOptions) error {
	return w.Start(TagRoot,
		Attr{Name: "xmlns", Value: NamespaceDIDL},
		Attr{Name: "xmlns:dc", Value: NamespaceDC},
		Attr{Name: "xmlns:upnp", Value: NamespaceUPnP},
		Attr{Name: "xmlns:dlna", Value: NamespaceDLNA},
	)
}

func (d *Document) WriteValue(*Writer, *WriteOptions) error { return nil }

func (d *Document) WriteEnd(w *Writer, _ *WriteOptions) error {
	return w.End(TagRoot)
}

func (d *Document) contents() contents {
	return contents{children: d.Objects, alwaysRecurse: true}
}
