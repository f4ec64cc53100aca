// ABOUTME: Closed set of metadata element variants
// ABOUTME: Kind tags every element and every registry mapping

package didl

// Kind identifies an element variant.
type Kind int

const (
	KindString Kind = iota
	KindBool
	KindUnsignedInt
	KindInt
	KindUnsignedLong
	KindLong
	KindStorageMedium
	KindWriteStatus
	KindPersonWithRole
	KindDate
	KindURI
	KindProtocolInfo
)

var kindNames = [...]string{
	KindString:         "string",
	KindBool:           "bool",
	KindUnsignedInt:    "uint",
	KindInt:            "int",
	KindUnsignedLong:   "ulong",
	KindLong:           "long",
	KindStorageMedium:  "storageMedium",
	KindWriteStatus:    "writeStatus",
	KindPersonWithRole: "personWithRole",
	KindDate:           "date",
	KindURI:            "uri",
	KindProtocolInfo:   "protocolInfo",
}

// Kinds returns every variant in declaration order.
func Kinds() []Kind {
	out := make([]Kind, len(kindNames))
	for i := range kindNames {
		out[i] = Kind(i)
	}
	return out
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// Numeric reports whether the variant compares numerically.
func (k Kind) Numeric() bool {
	switch k {
	case KindUnsignedInt, KindInt, KindUnsignedLong, KindLong:
		return true
	}
	return false
}
