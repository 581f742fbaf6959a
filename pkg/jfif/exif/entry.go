package exif

import "fmt"

// Type identifies the element encoding of a directory entry.
type Type uint16

// TIFF value type codes. 14 and 15 are Adobe-internal assignments and are
// treated as unknown.
const (
	TypeByte      Type = 1
	TypeASCII     Type = 2
	TypeShort     Type = 3
	TypeLong      Type = 4
	TypeRational  Type = 5
	TypeSByte     Type = 6
	TypeUndefined Type = 7
	TypeSShort    Type = 8
	TypeSLong     Type = 9
	TypeSRational Type = 10
	TypeFloat     Type = 11
	TypeDouble    Type = 12
	TypeIFD       Type = 13
	TypeLong8     Type = 16
	TypeSLong8    Type = 17
	TypeIFD8      Type = 18
)

// Size returns the byte width of a single element, or 0 when the type code
// is not recognized.
func (t Type) Size() int {
	switch t {
	case TypeByte, TypeASCII, TypeSByte, TypeUndefined:
		return 1
	case TypeShort, TypeSShort:
		return 2
	case TypeLong, TypeSLong, TypeFloat, TypeIFD:
		return 4
	case TypeRational, TypeSRational, TypeDouble, TypeLong8, TypeSLong8, TypeIFD8:
		return 8
	}
	return 0
}

func (t Type) String() string {
	switch t {
	case TypeByte:
		return "BYTE"
	case TypeASCII:
		return "ASCII"
	case TypeShort:
		return "SHORT"
	case TypeLong:
		return "LONG"
	case TypeRational:
		return "RATIONAL"
	case TypeSByte:
		return "SBYTE"
	case TypeUndefined:
		return "UNDEFINED"
	case TypeSShort:
		return "SSHORT"
	case TypeSLong:
		return "SLONG"
	case TypeSRational:
		return "SRATIONAL"
	case TypeFloat:
		return "FLOAT"
	case TypeDouble:
		return "DOUBLE"
	case TypeIFD:
		return "IFD"
	case TypeLong8:
		return "LONG8"
	case TypeSLong8:
		return "SLONG8"
	case TypeIFD8:
		return "IFD8"
	}
	return fmt.Sprintf("TYPE%d", uint16(t))
}

// Rational is an unsigned numerator/denominator pair.
type Rational struct {
	Num uint32
	Den uint32
}

// SRational is the signed counterpart of Rational.
type SRational struct {
	Num int32
	Den int32
}

// Entry is a single directory field. Value holds the decoded elements as a
// typed slice ([]uint8, []uint16, []Rational, ...) once the entry is
// resolved. An entry whose value did not fit the inline slot has a nil Value
// until the resolution pass visits its offset. An entry with an unrecognized
// type code keeps the raw inline slot bytes in Value and is never resolved.
type Entry struct {
	Tag   uint16
	Type  Type
	Count uint32
	Value any

	pending bool
	offset  uint64
	unknown bool
}

// Pending reports whether the entry still awaits the resolution pass.
func (e *Entry) Pending() bool { return e.pending }

// Offset returns the absolute buffer position recorded for an out-of-line
// value. Only meaningful while the entry is pending.
func (e *Entry) Offset() uint64 { return e.offset }

// UnknownType reports whether the type code was not recognized. Value then
// holds the raw inline slot bytes.
func (e *Entry) UnknownType() bool { return e.unknown }

// Shorts returns the value as unsigned shorts.
func (e *Entry) Shorts() ([]uint16, bool) {
	v, ok := e.Value.([]uint16)
	return v, ok
}

// Longs returns the value as unsigned longs.
func (e *Entry) Longs() ([]uint32, bool) {
	v, ok := e.Value.([]uint32)
	return v, ok
}

// Rationals returns the value as unsigned rationals.
func (e *Entry) Rationals() ([]Rational, bool) {
	v, ok := e.Value.([]Rational)
	return v, ok
}

// Bytes returns the value as raw bytes (BYTE, ASCII and UNDEFINED entries).
func (e *Entry) Bytes() ([]byte, bool) {
	v, ok := e.Value.([]byte)
	return v, ok
}

// ASCII returns an ASCII value as a string, with the trailing NUL trimmed.
func (e *Entry) ASCII() (string, bool) {
	if e.Type != TypeASCII {
		return "", false
	}
	v, ok := e.Value.([]byte)
	if !ok {
		return "", false
	}
	for len(v) > 0 && v[len(v)-1] == 0 {
		v = v[:len(v)-1]
	}
	return string(v), true
}

// Directory is one IFD: an ordered list of entries.
type Directory []Entry

// Find returns the first entry with the given tag.
func (d Directory) Find(tag uint16) (*Entry, bool) {
	for i := range d {
		if d[i].Tag == tag {
			return &d[i], true
		}
	}
	return nil, false
}

// Tags interpreted by this package, plus common ones worth naming in
// diagnostics.
const (
	TagImageWidth     = 0x0100
	TagImageLength    = 0x0101
	TagMake           = 0x010F
	TagModel          = 0x0110
	TagOrientation    = 0x0112
	TagXResolution    = 0x011A
	TagYResolution    = 0x011B
	TagResolutionUnit = 0x0128
	TagSoftware       = 0x0131
	TagDateTime       = 0x0132
	TagExifIFD        = 0x8769
	TagGPSIFD         = 0x8825
)

var tagNames = map[uint16]string{
	TagImageWidth:     "ImageWidth",
	TagImageLength:    "ImageLength",
	TagMake:           "Make",
	TagModel:          "Model",
	TagOrientation:    "Orientation",
	TagXResolution:    "XResolution",
	TagYResolution:    "YResolution",
	TagResolutionUnit: "ResolutionUnit",
	TagSoftware:       "Software",
	TagDateTime:       "DateTime",
	TagExifIFD:        "ExifIFD",
	TagGPSIFD:         "GPSIFD",
}

// TagName returns the conventional name of a tag, or its hex value.
func TagName(tag uint16) string {
	if name, ok := tagNames[tag]; ok {
		return name
	}
	return fmt.Sprintf("0x%04X", tag)
}
