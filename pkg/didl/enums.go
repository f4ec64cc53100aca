// ABOUTME: Enumerated element variants for storage medium and write status
// ABOUTME: Literals follow the ContentDirectory vocabulary, parsed case-insensitively

package didl

import (
	"cmp"
	"strings"

	"github.com/nainya/didlcore/pkg/didlerr"
)

// StorageMedium is the upnp:storageMedium vocabulary.
type StorageMedium int

const (
	StorageUnknown StorageMedium = iota
	StorageDV
	StorageMiniDV
	StorageVHS
	StorageWVHS
	StorageSVHS
	StorageDVHS
	StorageVHSC
	StorageVideo8
	StorageHi8
	StorageCDROM
	StorageCDDA
	StorageCDR
	StorageCDRW
	StorageVideoCD
	StorageSACD
	StorageMDAudio
	StorageMDPicture
	StorageDVDROM
	StorageDVDVideo
	StorageDVDR
	StorageDVDPlusRW
	StorageDVDRW
	StorageDVDRAM
	StorageDVDAudio
	StorageDAT
	StorageLD
	StorageHDD
	StorageMicroMV
	StorageNetwork
	StorageNone
	StorageNotImplemented
)

var storageMediumNames = [...]string{
	"UNKNOWN", "DV", "MINI-DV", "VHS", "W-VHS", "S-VHS", "D-VHS", "VHSC",
	"VIDEO8", "HI8", "CD-ROM", "CD-DA", "CD-R", "CD-RW", "VIDEO-CD", "SACD",
	"MD-AUDIO", "MD-PICTURE", "DVD-ROM", "DVD-VIDEO", "DVD-R", "DVD+RW",
	"DVD-RW", "DVD-RAM", "DVD-AUDIO", "DAT", "LD", "HDD", "MICRO-MV",
	"NETWORK", "NONE", "NOT_IMPLEMENTED",
}

func (m StorageMedium) String() string {
	if m < 0 || int(m) >= len(storageMediumNames) {
		return storageMediumNames[StorageUnknown]
	}
	return storageMediumNames[m]
}

// ParseStorageMedium parses a storage medium literal.
func ParseStorageMedium(s string) (StorageMedium, error) {
	return parseEnum[StorageMedium]("parse storageMedium", s, storageMediumNames[:])
}

// WriteStatus is the upnp:writeStatus vocabulary.
type WriteStatus int

const (
	WriteStatusUnknown WriteStatus = iota
	WriteStatusWritable
	WriteStatusProtected
	WriteStatusNotWritable
	WriteStatusMixed
)

var writeStatusNames = [...]string{
	"UNKNOWN", "WRITABLE", "PROTECTED", "NOT_WRITABLE", "MIXED",
}

func (s WriteStatus) String() string {
	if s < 0 || int(s) >= len(writeStatusNames) {
		return writeStatusNames[WriteStatusUnknown]
	}
	return writeStatusNames[s]
}

// ParseWriteStatus parses a write status literal.
func ParseWriteStatus(s string) (WriteStatus, error) {
	return parseEnum[WriteStatus]("parse writeStatus", s, writeStatusNames[:])
}

func parseEnum[T ~int](op, s string, names []string) (T, error) {
	upper := strings.ToUpper(strings.TrimSpace(s))
	for i, name := range names {
		if name == upper {
			return T(i), nil
		}
	}
	return 0, didlerr.Parse(op, s, "unknown literal")
}

// Enumeration is the set of enum payload types.
type Enumeration interface {
	StorageMedium | WriteStatus
	String() string
}

// Enum is an enumerated element ordered by literal position.
type Enum[T Enumeration] struct {
	simple
	value T
}

type (
	StorageMediumElement = Enum[StorageMedium]
	WriteStatusElement   = Enum[WriteStatus]
)

func parseEnumValue[T Enumeration](s string) (T, error) {
	var zero T
	switch any(zero).(type) {
	case StorageMedium:
		v, err := ParseStorageMedium(s)
		return T(v), err
	default:
		v, err := ParseWriteStatus(s)
		return T(v), err
	}
}

func (e *Enum[T]) Kind() Kind {
	if _, ok := any(e.value).(StorageMedium); ok {
		return KindStorageMedium
	}
	return KindWriteStatus
}

func (e *Enum[T]) Value() any           { return e.value }
func (e *Enum[T]) ComparableValue() any { return int(e.value) }
func (e *Enum[T]) StringValue() string  { return e.value.String() }
func (e *Enum[T]) Enum() T              { return e.value }

func (e *Enum[T]) CompareTo(other any) (int, error) {
	switch o := other.(type) {
	case *Enum[T]:
		return cmp.Compare(int(e.value), int(o.value)), nil
	case T:
		return cmp.Compare(int(e.value), int(o)), nil
	}
	s, ok := coerceString(other)
	if !ok {
		return 0, didlerr.TypeMismatch("compare "+e.name, e.Kind().String(), other)
	}
	v, err := parseEnumValue[T](s)
	if err != nil {
		return 0, didlerr.TypeMismatch("compare "+e.name, e.Kind().String(), other)
	}
	return cmp.Compare(int(e.value), int(v)), nil
}

func (e *Enum[T]) WriteStart(w *Writer, opts *WriteOptions) error { return writeStart(e, w, opts) }
func (e *Enum[T]) WriteValue(w *Writer, _ *WriteOptions) error    { return writeText(e, w) }
func (e *Enum[T]) WriteEnd(w *Writer, _ *WriteOptions) error      { return writeEnd(e, w) }
