// ABOUTME: Protocol-info descriptor (protocol:network:mimeType:info)
// ABOUTME: Directional wildcard matching and extension-based construction

package didl

import (
	"mime"
	"strings"

	"github.com/nainya/didlcore/pkg/didlerr"
)

// Wildcard matches any value in a protocol-info field.
const Wildcard = "*"

// DefaultProtocolInfo is the all-wildcard descriptor.
const DefaultProtocolInfo = "*:*:*:*"

// ProtocolInfo is a parsed protocol-info descriptor. Instances are immutable.
type ProtocolInfo struct {
	Protocol string
	Network  string
	MimeType string
	Info     string
}

// ParseProtocolInfo parses "protocol:network:mimeType:info". All four fields
// are required; the info field may itself contain colons.
func ParseProtocolInfo(s string) (*ProtocolInfo, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 4)
	if len(parts) != 4 {
		return nil, didlerr.Parse("parse protocolInfo", s, "expected protocol:network:mimeType:info")
	}
	for _, p := range parts {
		if p == "" {
			return nil, didlerr.Parse("parse protocolInfo", s, "empty field")
		}
	}
	return &ProtocolInfo{
		Protocol: parts[0],
		Network:  parts[1],
		MimeType: parts[2],
		Info:     parts[3],
	}, nil
}

func (p *ProtocolInfo) String() string {
	return p.Protocol + ":" + p.Network + ":" + p.MimeType + ":" + p.Info
}

// Matches reports whether subject satisfies p used as a filter: protocol and
// network must be equal, and p's mimeType and info must each be the wildcard
// or equal to the subject's. The relation is not symmetric.
func (p *ProtocolInfo) Matches(subject *ProtocolInfo) bool {
	if subject == nil {
		return false
	}
	if !strings.EqualFold(p.Protocol, subject.Protocol) || !strings.EqualFold(p.Network, subject.Network) {
		return false
	}
	return fieldMatches(p.MimeType, subject.MimeType) && fieldMatches(p.Info, subject.Info)
}

func fieldMatches(filter, subject string) bool {
	return filter == Wildcard || strings.EqualFold(filter, subject)
}

// MimeResolver maps a file extension to a MIME type.
type MimeResolver interface {
	MimeTypeForExtension(ext string) (string, bool)
}

// mediaTypes covers extensions the mime package does not reliably know.
var mediaTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".flac": "audio/flac",
	".m4a":  "audio/mp4",
	".aac":  "audio/aac",
	".ogg":  "audio/ogg",
	".wav":  "audio/wav",
	".wma":  "audio/x-ms-wma",
	".mp4":  "video/mp4",
	".m4v":  "video/mp4",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
	".mpg":  "video/mpeg",
	".mpeg": "video/mpeg",
	".ts":   "video/mp2t",
	".wmv":  "video/x-ms-wmv",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".srt":  "text/srt",
}

// StdMimeResolver resolves media extensions from a built-in table and falls
// back to the mime package.
type StdMimeResolver struct{}

func (StdMimeResolver) MimeTypeForExtension(ext string) (string, bool) {
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if t, ok := mediaTypes[ext]; ok {
		return t, true
	}
	t := mime.TypeByExtension(ext)
	if t == "" {
		return "", false
	}
	mediaType, _, err := mime.ParseMediaType(t)
	if err != nil {
		return "", false
	}
	return mediaType, true
}

// ProtocolInfoForExtension builds an http-get descriptor for a file extension.
func ProtocolInfoForExtension(ext string, resolver MimeResolver) (*ProtocolInfo, error) {
	if resolver == nil {
		resolver = StdMimeResolver{}
	}
	mimeType, ok := resolver.MimeTypeForExtension(ext)
	if !ok {
		return nil, didlerr.Parse("protocolInfo for extension", ext, "unknown file extension")
	}
	return &ProtocolInfo{
		Protocol: "http-get",
		Network:  Wildcard,
		MimeType: mimeType,
		Info:     Wildcard,
	}, nil
}

// ProtocolInfoElement carries a shared, interned ProtocolInfo.
type ProtocolInfoElement struct {
	simple
	info *ProtocolInfo
}

func (e *ProtocolInfoElement) Kind() Kind                  { return KindProtocolInfo }
func (e *ProtocolInfoElement) Value() any                  { return e.info }
func (e *ProtocolInfoElement) ComparableValue() any        { return fold(e.info.String()) }
func (e *ProtocolInfoElement) StringValue() string         { return e.info.String() }
func (e *ProtocolInfoElement) ProtocolInfo() *ProtocolInfo { return e.info }

func (e *ProtocolInfoElement) CompareTo(other any) (int, error) {
	switch o := other.(type) {
	case *ProtocolInfoElement:
		return foldCompare(e.info.String(), o.info.String()), nil
	case *ProtocolInfo:
		return foldCompare(e.info.String(), o.String()), nil
	}
	s, ok := coerceString(other)
	if !ok {
		return 0, didlerr.TypeMismatch("compare "+e.name, "protocolInfo", other)
	}
	parsed, err := ParseProtocolInfo(s)
	if err != nil {
		return 0, didlerr.TypeMismatch("compare "+e.name, "protocolInfo", other)
	}
	return foldCompare(e.info.String(), parsed.String()), nil
}

func (e *ProtocolInfoElement) WriteStart(w *Writer, opts *WriteOptions) error {
	return writeStart(e, w, opts)
}
func (e *ProtocolInfoElement) WriteValue(w *Writer, _ *WriteOptions) error { return writeText(e, w) }
func (e *ProtocolInfoElement) WriteEnd(w *Writer, _ *WriteOptions) error   { return writeEnd(e, w) }
