// ABOUTME: Property name to element variant dispatch table
// ABOUTME: Precomputed once; unknown names resolve to no mapping

package didl

import (
	"sort"
	"strings"
)

// Mapping is the registry entry for a property name.
type Mapping struct {
	Kind Kind

	// Multiple tells the owning record to keep a list of values.
	Multiple bool
}

// Registry resolves property names to element variants. It is immutable.
type Registry struct {
	mappings map[string]Mapping
	names    []string
}

// Property name prefixes for attribute-valued properties.
const (
	ObjectAttributePrefix   = "@"
	ResourceAttributePrefix = "res@"
)

// Well-known property names.
const (
	PropID           = "@id"
	PropParentID     = "@parentID"
	PropRefID        = "@refID"
	PropRestricted   = "@restricted"
	PropSearchable   = "@searchable"
	PropChildCount   = "@childCount"
	PropTitle        = "dc:title"
	PropCreator      = "dc:creator"
	PropDate         = "dc:date"
	PropClass        = "upnp:class"
	PropArtist       = "upnp:artist"
	PropAlbum        = "upnp:album"
	PropGenre        = "upnp:genre"
	PropTrackNumber  = "upnp:originalTrackNumber"
	PropStorageUsed  = "upnp:storageUsed"
	PropProtocolInfo = "res@protocolInfo"
	PropSize         = "res@size"
	PropDuration     = "res@duration"
	PropRes          = "res"
	PropDesc         = "desc"
)

var defaultMappings = map[string]Mapping{
	// object attributes
	PropID:         {KindString, false},
	PropParentID:   {KindString, false},
	PropRefID:      {KindString, false},
	PropRestricted: {KindBool, false},
	PropSearchable: {KindBool, false},
	PropChildCount: {KindUnsignedInt, false},

	// Dublin Core
	PropTitle:        {KindString, false},
	PropCreator:      {KindString, false},
	"dc:description": {KindString, false},
	"dc:publisher":   {KindString, true},
	"dc:contributor": {KindString, true},
	"dc:language":    {KindString, true},
	"dc:rights":      {KindString, true},
	"dc:relation":    {KindURI, true},
	PropDate:         {KindDate, false},

	// upnp
	PropClass:                   {KindString, false},
	PropArtist:                  {KindPersonWithRole, true},
	"upnp:actor":                {KindPersonWithRole, true},
	"upnp:author":               {KindPersonWithRole, true},
	"upnp:producer":             {KindString, true},
	"upnp:director":             {KindString, true},
	PropGenre:                   {KindString, true},
	PropAlbum:                   {KindString, true},
	"upnp:playlist":             {KindString, true},
	"upnp:albumArtURI":          {KindURI, true},
	"upnp:artistDiscographyURI": {KindURI, false},
	"upnp:lyricsURI":            {KindURI, true},
	"upnp:icon":                 {KindURI, false},
	"upnp:longDescription":      {KindString, false},
	"upnp:rating":               {KindString, false},
	"upnp:region":               {KindString, false},
	"upnp:toc":                  {KindString, false},
	"upnp:userAnnotation":       {KindString, true},
	"upnp:channelName":          {KindString, false},
	"upnp:channelNr":            {KindInt, false},
	"upnp:radioCallSign":        {KindString, false},
	"upnp:radioStationID":       {KindString, false},
	"upnp:radioBand":            {KindString, false},
	PropTrackNumber:             {KindInt, false},
	"upnp:storageMedium":        {KindStorageMedium, false},
	PropStorageUsed:             {KindLong, false},
	"upnp:storageTotal":         {KindLong, false},
	"upnp:storageFree":          {KindLong, false},
	"upnp:storageMaxPartition":  {KindLong, false},
	"upnp:writeStatus":          {KindWriteStatus, false},

	// resource attributes
	PropProtocolInfo:      {KindProtocolInfo, false},
	"res@importUri":       {KindURI, false},
	PropSize:              {KindUnsignedLong, false},
	PropDuration:          {KindString, false},
	"res@bitrate":         {KindUnsignedInt, false},
	"res@sampleFrequency": {KindUnsignedInt, false},
	"res@bitsPerSample":   {KindUnsignedInt, false},
	"res@nrAudioChannels": {KindUnsignedInt, false},
	"res@resolution":      {KindString, false},
	"res@colorDepth":      {KindUnsignedInt, false},
	"res@protection":      {KindString, false},
}

var defaultRegistry = NewRegistry(nil)

// DefaultRegistry returns the built-in registry.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// NewRegistry builds a registry from the built-in table plus extra mappings.
// Extra entries override built-in ones with the same name.
func NewRegistry(extra map[string]Mapping) *Registry {
	r := &Registry{mappings: make(map[string]Mapping, len(defaultMappings)+len(extra))}
	for name, m := range defaultMappings {
		r.mappings[name] = m
	}
	for name, m := range extra {
		r.mappings[name] = m
	}
	r.names = make([]string, 0, len(r.mappings))
	for name := range r.mappings {
		r.names = append(r.names, name)
	}
	sort.Strings(r.names)
	return r
}

// Resolve returns the mapping for a property name.
func (r *Registry) Resolve(name string) (Mapping, bool) {
	m, ok := r.mappings[name]
	return m, ok
}

// Names returns every known property name in sorted order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// WithPrefix returns the known names starting with prefix, sorted.
func (r *Registry) WithPrefix(prefix string) []string {
	var out []string
	for _, name := range r.names {
		if strings.HasPrefix(name, prefix) {
			out = append(out, name)
		}
	}
	return out
}

// IsAttribute reports whether a property is carried as an XML attribute.
func IsAttribute(name string) bool {
	return strings.Contains(name, "@")
}

// AttributeLocalName strips the owner part of an attribute property name.
func AttributeLocalName(name string) string {
	if i := strings.LastIndex(name, "@"); i >= 0 {
		return name[i+1:]
	}
	return name
}
