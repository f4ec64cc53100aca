// ABOUTME: Tests for whole-document decoding and serialization
// ABOUTME: Round trips nested objects, resources and desc fragments

package didl

import (
	"bytes"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nainya/didlcore/internal/metrics"
	"github.com/nainya/didlcore/pkg/didlerr"
)

func buildLibrary(t *testing.T, ctx *Context) *Document {
	t.Helper()
	album, err := ctx.NewContainer("1", "0")
	require.NoError(t, err)
	require.NoError(t, ctx.Set(album, PropTitle, "Music"))
	require.NoError(t, ctx.Set(album, PropClass, "object.container.album.musicAlbum"))
	require.NoError(t, ctx.Set(album, PropChildCount, 1))

	track, err := ctx.NewItem("2", "1")
	require.NoError(t, err)
	require.NoError(t, ctx.Set(track, PropTitle, "Song"))
	require.NoError(t, ctx.Set(track, PropClass, "object.item.audioItem.musicTrack"))
	require.NoError(t, ctx.Set(track, PropArtist, Person{Name: "Alice", Role: "Performer"}))
	require.NoError(t, ctx.Set(track, PropArtist, "Bob"))
	require.NoError(t, ctx.Set(track, PropDate, "2024-03-01"))
	require.NoError(t, ctx.Set(track, "upnp:storageMedium", StorageHDD))

	res, err := ctx.NewResource("http://host/song.mp3?id=2&fmt=mp3", "http-get:*:audio/mpeg:*")
	require.NoError(t, err)
	require.NoError(t, ctx.SetResource(res, PropSize, uint64(1234)))
	require.NoError(t, ctx.SetResource(res, PropDuration, "0:03:15.000"))
	track.AddResource(res)
	track.AddDesc(NewDesc("d1", "urn:example", "<ex:rating>5</ex:rating>"))

	album.AddChild(track)
	return &Document{Objects: []*Object{album}}
}

func TestDocument_RoundTrip(t *testing.T) {
	ctx := NewContext()
	doc := buildLibrary(t, ctx)

	first, err := ctx.Marshal(doc, WriteOptions{Recursive: true})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(first, []byte(`<DIDL-Lite xmlns="`+NamespaceDIDL+`" xmlns:dc="`+NamespaceDC+`"`)))

	decoded, err := ctx.DecodeDocument(bytes.NewReader(first))
	require.NoError(t, err)
	require.Len(t, decoded.Objects, 1)

	album := decoded.Objects[0]
	assert.True(t, album.IsContainer())
	assert.Equal(t, "1", album.ID())
	assert.Equal(t, "Music", album.Title())
	require.Len(t, album.Children, 1)

	track := album.Children[0]
	assert.False(t, track.IsContainer())
	assert.Equal(t, "1", track.ParentID())
	assert.Equal(t, "object.item.audioItem.musicTrack", track.Class())
	assert.Len(t, track.Values(PropArtist), 2)
	require.Len(t, track.Values(PropSize), 1)
	assert.Equal(t, uint64(1234), track.Values(PropSize)[0].Value())
	assert.Equal(t, "http://host/song.mp3?id=2&fmt=mp3", track.Resources[0].URI)
	require.Len(t, track.Descs, 1)
	assert.Equal(t, "<ex:rating>5</ex:rating>", track.Descs[0].Fragment)

	second, err := ctx.Marshal(decoded, WriteOptions{Recursive: true})
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}

func TestDocument_TopLevelObjectsAlwaysWritten(t *testing.T) {
	ctx := NewContext()
	doc := buildLibrary(t, ctx)

	out, err := Marshal(doc, WriteOptions{})
	require.NoError(t, err)
	assert.Contains(t, string(out), `<container id="1"`)
	assert.NotContains(t, string(out), "<item")
}

func TestDecodeDocument_SkipsUnknown(t *testing.T) {
	m := metrics.NewMetrics(prometheus.NewRegistry())
	ctx := NewContext(WithRecorder(m))

	input := `<?xml version="1.0"?>
<DIDL-Lite xmlns="urn:schemas-upnp-org:metadata-1-0/DIDL-Lite/" xmlns:dc="http://purl.org/dc/elements/1.1/">
  <item id="7" parentID="3" restricted="1" dlna:dlnaManaged="1">
    <dc:title>Clip</dc:title>
    <vendor:extra>ignored</vendor:extra>
    <upnp:class>object.item.videoItem</upnp:class>
    <res protocolInfo="http-get:*:video/mp4:*" bogus="x">http://host/clip.mp4</res>
  </item>
  <comment>not an object</comment>
</DIDL-Lite>`

	doc, err := ctx.DecodeDocument(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, doc.Objects, 1)

	item := doc.Objects[0]
	assert.Equal(t, "Clip", item.Title())
	assert.Len(t, item.Properties(), 2)
	assert.Len(t, item.ObjectAttributes(), 3)
	assert.Equal(t, "video/mp4", item.Resources[0].ProtocolInfo().MimeType)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.UnknownPropsTotal))
}

func TestDecodeDocument_Errors(t *testing.T) {
	ctx := NewContext()

	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"empty", "", didlerr.ErrParse},
		{"wrong root", "<root/>", didlerr.ErrParse},
		{"truncated", "<DIDL-Lite><item id=\"1\">", didlerr.ErrParse},
		{"bad value", `<DIDL-Lite><item id="1" restricted="perhaps"/></DIDL-Lite>`, didlerr.ErrParse},
		{"resource without protocolInfo", `<DIDL-Lite><item id="1"><res>http://x</res></item></DIDL-Lite>`, didlerr.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ctx.DecodeDocument(strings.NewReader(tt.input))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestContext_MarshalRecordsWrites(t *testing.T) {
	m := metrics.NewMetrics(prometheus.NewRegistry())
	ctx := NewContext(WithRecorder(m))

	_, err := ctx.Marshal(buildLibrary(t, ctx), WriteOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DocumentsWrittenTotal.WithLabelValues("success")))
}

func TestObject_AddReplacesSingleValued(t *testing.T) {
	ctx := NewContext()
	item, err := ctx.NewItem("1", "0")
	require.NoError(t, err)

	require.NoError(t, ctx.Set(item, PropTitle, "first"))
	require.NoError(t, ctx.Set(item, PropGenre, "Rock"))
	require.NoError(t, ctx.Set(item, PropTitle, "second"))
	require.NoError(t, ctx.Set(item, PropGenre, "Jazz"))
	require.NoError(t, ctx.Set(item, PropID, "9"))

	assert.Equal(t, "second", item.Title())
	assert.Equal(t, "9", item.ID())
	assert.Len(t, item.Values(PropTitle), 1)
	assert.Len(t, item.Values(PropGenre), 2)
	assert.Len(t, item.Values(PropID), 1)
	assert.Empty(t, item.Values(PropSize))

	el := mustElement(t, ctx, PropSize, "1")
	assert.ErrorIs(t, item.Add(el), didlerr.ErrValidation)

	res, err := ctx.NewResource("http://x", "")
	require.NoError(t, err)
	assert.Equal(t, DefaultProtocolInfo, res.ProtocolInfo().String())
	assert.ErrorIs(t, res.Add(mustElement(t, ctx, PropTitle, "t")), didlerr.ErrValidation)
	assert.Contains(t, res.PossibleAttributes(), "size")
	assert.Equal(t, []string{"protocolInfo"}, res.ValidAttributes())
}
