// ABOUTME: Tests for element construction, comparison and attribute reporting
// ABOUTME: Covers every variant through the context construction paths

package didl

import (
	"encoding/xml"
	"strings"
	"testing"
	"time"
	"unsafe"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nainya/didlcore/internal/metrics"
	"github.com/nainya/didlcore/pkg/didlerr"
)

func TestNewElement_ParsesEachKind(t *testing.T) {
	ctx := NewContext()

	tests := []struct {
		name  string
		input string
		kind  Kind
		want  string
	}{
		{PropTitle, "Hello", KindString, "Hello"},
		{PropRestricted, "1", KindBool, "true"},
		{PropSearchable, "No", KindBool, "false"},
		{PropChildCount, "12", KindUnsignedInt, "12"},
		{PropTrackNumber, "-3", KindInt, "-3"},
		{PropSize, "4294967296", KindUnsignedLong, "4294967296"},
		{PropStorageUsed, "-1", KindLong, "-1"},
		{"upnp:storageMedium", "hdd", KindStorageMedium, "HDD"},
		{"upnp:writeStatus", "writable", KindWriteStatus, "WRITABLE"},
		{PropArtist, "Alice", KindPersonWithRole, "Alice"},
		{PropDate, "2024-03-01", KindDate, "2024-03-01"},
		{PropDate, "2024-03-01T10:20:30Z", KindDate, "2024-03-01T10:20:30Z"},
		{"upnp:albumArtURI", "http://host/art.jpg", KindURI, "http://host/art.jpg"},
		{PropProtocolInfo, "http-get:*:audio/mpeg:*", KindProtocolInfo, "http-get:*:audio/mpeg:*"},
	}

	for _, tt := range tests {
		t.Run(tt.name+"="+tt.input, func(t *testing.T) {
			el, err := ctx.NewElement(tt.name, tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.name, el.Name())
			assert.Equal(t, tt.kind, el.Kind())
			assert.Equal(t, tt.want, el.StringValue())
		})
	}
}

func TestNewElement_ParseErrors(t *testing.T) {
	ctx := NewContext()

	tests := []struct {
		name  string
		input string
	}{
		{PropRestricted, "maybe"},
		{PropChildCount, "-1"},
		{PropChildCount, "4294967296"},
		{PropTrackNumber, "x"},
		{PropProtocolInfo, "http-get:*:audio/mpeg"},
		{PropProtocolInfo, "http-get::audio/mpeg:*"},
		{"upnp:storageMedium", "FLOPPY"},
		{"upnp:writeStatus", ""},
		{PropDate, "yesterday"},
		{"upnp:albumArtURI", ""},
		{"upnp:albumArtURI", "http://[::1"},
	}

	for _, tt := range tests {
		t.Run(tt.name+"="+tt.input, func(t *testing.T) {
			_, err := ctx.NewElement(tt.name, tt.input)
			require.Error(t, err)
			assert.ErrorIs(t, err, didlerr.ErrParse)
		})
	}
}

func TestNewElement_UnknownProperty(t *testing.T) {
	ctx := NewContext()

	_, err := ctx.NewElement("dc:unknown", "x")
	assert.ErrorIs(t, err, ErrUnknownProperty)
}

func TestNewElement_TypedValues(t *testing.T) {
	ctx := NewContext()

	el, err := ctx.NewElement(PropRestricted, true)
	require.NoError(t, err)
	assert.Equal(t, "true", el.StringValue())

	el, err = ctx.NewElement(PropChildCount, 7)
	require.NoError(t, err)
	assert.Equal(t, uint32(7), el.Value())

	_, err = ctx.NewElement(PropChildCount, -7)
	assert.ErrorIs(t, err, didlerr.ErrParse)

	_, err = ctx.NewElement(PropRestricted, 3.5)
	assert.ErrorIs(t, err, didlerr.ErrTypeMismatch)

	el, err = ctx.NewElement(PropDate, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01", el.StringValue())

	el, err = ctx.NewElement("upnp:storageMedium", StorageDVDPlusRW)
	require.NoError(t, err)
	assert.Equal(t, "DVD+RW", el.StringValue())

	el, err = ctx.NewElement(PropArtist, Person{Name: "Bob", Role: "Composer"})
	require.NoError(t, err)
	role, ok := el.ExtractAttribute(RoleAttribute)
	assert.True(t, ok)
	assert.Equal(t, "Composer", role)

	el, err = ctx.NewElement(PropTitle, 42)
	require.NoError(t, err)
	assert.Equal(t, "42", el.StringValue())
}

func TestContext_DateLayoutRoundTrips(t *testing.T) {
	ctx := NewContext()
	est := time.FixedZone("EST", -5*3600)

	tests := []struct {
		name  string
		value time.Time
		want  string
	}{
		{"utc midnight", time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), "2020-01-01"},
		{"utc midnight viewed from EST", time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC).In(est), "2019-12-31T19:00:00-05:00"},
		{"local midnight", time.Date(2020, 1, 1, 0, 0, 0, 0, est), "2020-01-01T00:00:00-05:00"},
		{"utc afternoon", time.Date(2020, 1, 1, 15, 4, 5, 0, time.UTC), "2020-01-01T15:04:05Z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			el, err := ctx.NewElement(PropDate, tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.want, el.StringValue())

			back, err := ctx.NewElement(PropDate, el.StringValue())
			require.NoError(t, err)
			c, err := back.CompareTo(el)
			require.NoError(t, err)
			assert.Zero(t, c, "reparsed %q moved in time", el.StringValue())
		})
	}
}

func mustElement(t *testing.T, ctx *Context, name string, value any) Element {
	t.Helper()
	el, err := ctx.NewElement(name, value)
	require.NoError(t, err)
	return el
}

func TestCompareTo(t *testing.T) {
	ctx := NewContext()

	tests := []struct {
		desc  string
		el    Element
		other any
		want  int
	}{
		{"string ignores case", mustElement(t, ctx, PropTitle, "Hello"), "HELLO", 0},
		{"string folds unicode", mustElement(t, ctx, PropTitle, "Straße"), "STRASSE", 0},
		{"string orders", mustElement(t, ctx, PropTitle, "apple"), "Banana", -1},
		{"string against element", mustElement(t, ctx, PropTitle, "x"), mustElement(t, ctx, PropTitle, "X"), 0},
		{"number against text", mustElement(t, ctx, PropChildCount, "10"), "9", 1},
		{"number against payload", mustElement(t, ctx, PropChildCount, "10"), uint32(10), 0},
		{"number against int", mustElement(t, ctx, PropChildCount, "10"), 11, -1},
		{"bool false first", mustElement(t, ctx, PropRestricted, "false"), true, -1},
		{"bool against text", mustElement(t, ctx, PropRestricted, "true"), "yes", 0},
		{"enum by ordinal", mustElement(t, ctx, "upnp:storageMedium", "HDD"), "DV", 1},
		{"date chronological", mustElement(t, ctx, PropDate, "2024-03-01"), "2024-03-02", -1},
		{"uri case sensitive", mustElement(t, ctx, "upnp:albumArtURI", "http://a/B"), "http://a/b", -1},
		{"person by name", mustElement(t, ctx, PropArtist, "alice"), Person{Name: "ALICE"}, 0},
		{"person then role", mustElement(t, ctx, PropArtist, Person{Name: "Alice", Role: "Performer"}), Person{Name: "alice", Role: "Composer"}, 1},
		{"protocolInfo ignores case", mustElement(t, ctx, PropProtocolInfo, "http-get:*:audio/mpeg:*"), "HTTP-GET:*:AUDIO/MPEG:*", 0},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			got, err := tt.el.CompareTo(tt.other)
			require.NoError(t, err)
			assert.Equal(t, tt.want, sign(got))
		})
	}
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}

func TestCompareTo_TypeMismatch(t *testing.T) {
	ctx := NewContext()

	for _, el := range []Element{
		mustElement(t, ctx, PropTitle, "a"),
		mustElement(t, ctx, PropChildCount, "1"),
		mustElement(t, ctx, PropRestricted, "true"),
		mustElement(t, ctx, PropDate, "2024-03-01"),
	} {
		_, err := el.CompareTo(struct{}{})
		assert.ErrorIs(t, err, didlerr.ErrTypeMismatch, el.Name())
	}

	// coercible to a string but not to the payload type
	_, err := mustElement(t, ctx, PropChildCount, "1").CompareTo("one")
	assert.ErrorIs(t, err, didlerr.ErrTypeMismatch)
}

func TestPersonWithRole_Attributes(t *testing.T) {
	ctx := NewContext()

	withRole := mustElement(t, ctx, PropArtist, Person{Name: "Alice", Role: "Performer"})
	assert.Equal(t, []string{RoleAttribute}, withRole.PossibleAttributes())
	assert.Equal(t, []string{RoleAttribute}, withRole.ValidAttributes())
	assert.Equal(t, []AttributeDescriptor{{Name: RoleAttribute, Status: AttributeValid}}, withRole.Attributes())

	v, ok := withRole.ExtractAttribute(PropArtist + "@" + RoleAttribute)
	assert.True(t, ok)
	assert.Equal(t, "Performer", v)

	bare := mustElement(t, ctx, PropArtist, "Bob")
	assert.Empty(t, bare.ValidAttributes())
	assert.Equal(t, []AttributeDescriptor{{Name: RoleAttribute, Status: AttributePossible}}, bare.Attributes())
	_, ok = bare.ExtractAttribute(RoleAttribute)
	assert.False(t, ok)

	title := mustElement(t, ctx, PropTitle, "t")
	assert.Empty(t, title.PossibleAttributes())
	assert.Empty(t, title.Attributes())
}

func TestValidAttributesSubsetOfPossible(t *testing.T) {
	ctx := NewContext()

	for _, el := range []Element{
		mustElement(t, ctx, PropArtist, Person{Name: "A", Role: "R"}),
		mustElement(t, ctx, PropArtist, "A"),
		mustElement(t, ctx, PropTitle, "T"),
		mustElement(t, ctx, PropSize, "1"),
	} {
		assert.Subset(t, el.PossibleAttributes(), el.ValidAttributes(), el.Name())
	}
}

func TestContext_InternsNamesAndValues(t *testing.T) {
	for name, ctx := range map[string]*Context{
		"hash":    NewContext(),
		"ordered": NewContext(WithOrderedInterning()),
	} {
		t.Run(name, func(t *testing.T) {
			a := mustElement(t, ctx, PropTitle, strings.Repeat("ab", 3))
			b := mustElement(t, ctx, strings.Join([]string{"dc", "title"}, ":"), strings.Repeat("ab", 3))

			assert.Equal(t, stringAddr(a.StringValue()), stringAddr(b.StringValue()))
			assert.Equal(t, stringAddr(a.Name()), stringAddr(b.Name()))

			p1 := mustElement(t, ctx, PropProtocolInfo, "http-get:*:audio/mpeg:*").(*ProtocolInfoElement)
			p2 := mustElement(t, ctx, PropProtocolInfo, "http-get:*:audio/mpeg:*").(*ProtocolInfoElement)
			assert.Same(t, p1.ProtocolInfo(), p2.ProtocolInfo())

			ctx.Reset()
			p3 := mustElement(t, ctx, PropProtocolInfo, "http-get:*:audio/mpeg:*").(*ProtocolInfoElement)
			assert.NotSame(t, p1.ProtocolInfo(), p3.ProtocolInfo())
			assert.Equal(t, p1.ProtocolInfo(), p3.ProtocolInfo())
		})
	}
}

// stringAddr is the address of a string's backing array.
func stringAddr(s string) uintptr {
	return uintptr(unsafe.Pointer(unsafe.StringData(s)))
}

func TestContext_RecordsMetrics(t *testing.T) {
	m := metrics.NewMetrics(prometheus.NewRegistry())
	ctx := NewContext(WithRecorder(m))

	_, err := ctx.NewElement(PropTitle, "a")
	require.NoError(t, err)
	_, err = ctx.NewElement(PropTitle, "b")
	require.NoError(t, err)
	_, err = ctx.NewElement(PropRestricted, "maybe")
	require.Error(t, err)
	_, err = ctx.NewElement("x:nope", "v")
	require.Error(t, err)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ElementsParsedTotal.WithLabelValues("string")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ParseErrorsTotal.WithLabelValues(string(didlerr.CodeParse))))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UnknownPropsTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.InternLookupsTotal.WithLabelValues("names", "miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.InternLookupsTotal.WithLabelValues("names", "hit")))
}

func TestReadElement_FromDecoder(t *testing.T) {
	ctx := NewContext()
	dec := xml.NewDecoder(strings.NewReader(`<upnp:artist role="Performer">Alice</upnp:artist><dc:title>Next</dc:title>`))

	tok, err := dec.RawToken()
	require.NoError(t, err)
	el, err := ctx.ReadElement(dec, tok.(xml.StartElement))
	require.NoError(t, err)

	assert.Equal(t, PropArtist, el.Name())
	assert.Equal(t, "Alice", el.StringValue())
	role, _ := el.ExtractAttribute(RoleAttribute)
	assert.Equal(t, "Performer", role)

	tok, err = dec.RawToken()
	require.NoError(t, err)
	next, ok := tok.(xml.StartElement)
	require.True(t, ok, "decoder should sit after the consumed element")
	assert.Equal(t, "title", next.Name.Local)
}

func TestFromAttribute(t *testing.T) {
	ctx := NewContext()

	el, err := ctx.FromAttribute("", "id", "42")
	require.NoError(t, err)
	assert.Equal(t, PropID, el.Name())

	el, err = ctx.FromAttribute(TagRes, "size", "1024")
	require.NoError(t, err)
	assert.Equal(t, PropSize, el.Name())
	assert.Equal(t, uint64(1024), el.Value())

	_, err = ctx.FromAttribute(TagRes, "bogus", "1")
	assert.ErrorIs(t, err, ErrUnknownProperty)
}
