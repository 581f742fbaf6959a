// Package exif parses the TIFF directory structure embedded in a JPEG APP1
// segment and derives pixel density metadata from its first directory.
// Classic TIFF (4-byte pointers) and BigTIFF (8-byte pointers) are both
// supported, in either byte order.
//
// Parsing is two-pass: the directory chain is traversed first, recording an
// absolute offset for every value that did not fit its inline slot, then a
// resolution pass seeks to each offset and decodes the values. Unknown tags
// are kept; an unknown value type only fails if such an entry would have to
// be resolved, since its byte width is unknowable.
package exif

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// Parse failures.
var (
	ErrByteOrder   = errors.New("unrecognized byte order indicator")
	ErrVersion     = errors.New("unknown TIFF version")
	ErrPointerSize = errors.New("unexpected BigTIFF pointer size")
	ErrReserved    = errors.New("unexpected BigTIFF reserved value")
	ErrUnknownType = errors.New("unknown value type")
)

// reader decodes TIFF primitives from an in-memory buffer, honoring the byte
// order and pointer width declared in the header. Seeking stays within the
// one buffer; the outer JPEG stream is never touched.
type reader struct {
	r     *bytes.Reader
	order binary.ByteOrder
	ptr64 bool
}

// newReader validates the TIFF header and leaves the reader positioned after
// it, returning the offset of the first directory.
func newReader(buf []byte) (*reader, uint64, error) {
	r := &reader{r: bytes.NewReader(buf)}

	var bom [2]byte
	if err := r.read(bom[:]); err != nil {
		return nil, 0, err
	}
	switch {
	case bom[0] == 'M' && bom[1] == 'M':
		r.order = binary.BigEndian
	case bom[0] == 'I' && bom[1] == 'I':
		r.order = binary.LittleEndian
	default:
		return nil, 0, fmt.Errorf("%w: 0x%02X 0x%02X", ErrByteOrder, bom[0], bom[1])
	}

	version, err := r.uint16()
	if err != nil {
		return nil, 0, err
	}
	switch version {
	case 42:
		// classic TIFF
	case 43:
		r.ptr64 = true
	default:
		return nil, 0, fmt.Errorf("%w: %d", ErrVersion, version)
	}

	if r.ptr64 {
		pointerSize, err := r.uint16()
		if err != nil {
			return nil, 0, err
		}
		if pointerSize != 8 {
			return nil, 0, fmt.Errorf("%w: %d", ErrPointerSize, pointerSize)
		}
		reserved, err := r.uint16()
		if err != nil {
			return nil, 0, err
		}
		if reserved != 0 {
			return nil, 0, fmt.Errorf("%w: %d", ErrReserved, reserved)
		}
	}

	dirOffset, err := r.offset()
	if err != nil {
		return nil, 0, err
	}
	return r, dirOffset, nil
}

func (r *reader) read(buf []byte) error {
	_, err := io.ReadFull(r.r, buf)
	return err
}

func (r *reader) seek(offset uint64) error {
	_, err := r.r.Seek(int64(offset), io.SeekStart)
	return err
}

func (r *reader) uint16() (uint16, error) {
	var buf [2]byte
	if err := r.read(buf[:]); err != nil {
		return 0, err
	}
	return r.order.Uint16(buf[:]), nil
}

func (r *reader) uint32() (uint32, error) {
	var buf [4]byte
	if err := r.read(buf[:]); err != nil {
		return 0, err
	}
	return r.order.Uint32(buf[:]), nil
}

func (r *reader) uint64() (uint64, error) {
	var buf [8]byte
	if err := r.read(buf[:]); err != nil {
		return 0, err
	}
	return r.order.Uint64(buf[:]), nil
}

// offset reads one pointer-width field.
func (r *reader) offset() (uint64, error) {
	if r.ptr64 {
		return r.uint64()
	}
	v, err := r.uint32()
	return uint64(v), err
}

// entryCount reads the directory entry count (2 bytes classic, 8 BigTIFF).
func (r *reader) entryCount() (uint64, error) {
	if r.ptr64 {
		return r.uint64()
	}
	v, err := r.uint16()
	return uint64(v), err
}

func (r *reader) slotWidth() int {
	if r.ptr64 {
		return 8
	}
	return 4
}

// readEntry reads one tag/type/count triple plus the inline slot, deciding
// between an inline value, a pending pointer, and an unknown-type entry.
func (r *reader) readEntry() (Entry, error) {
	tag, err := r.uint16()
	if err != nil {
		return Entry{}, err
	}
	typeCode, err := r.uint16()
	if err != nil {
		return Entry{}, err
	}
	count, err := r.uint32()
	if err != nil {
		return Entry{}, err
	}
	slot := make([]byte, r.slotWidth())
	if err := r.read(slot); err != nil {
		return Entry{}, err
	}

	entry := Entry{Tag: tag, Type: Type(typeCode), Count: count}

	size := entry.Type.Size()
	if size == 0 {
		// forward-compatible: keep the raw slot, never resolve
		entry.unknown = true
		entry.Value = slot
		return entry, nil
	}

	if size*int(count) > len(slot) {
		entry.pending = true
		if r.ptr64 {
			entry.offset = r.order.Uint64(slot)
		} else {
			entry.offset = uint64(r.order.Uint32(slot))
		}
		return entry, nil
	}

	inline := &reader{r: bytes.NewReader(slot), order: r.order, ptr64: r.ptr64}
	entry.Value, err = inline.readValues(entry.Type, count)
	return entry, err
}

// readValues decodes count elements of the given type at the current
// position.
func (r *reader) readValues(typ Type, count uint32) (any, error) {
	n := int(count)
	switch typ {
	case TypeByte, TypeASCII, TypeUndefined:
		buf := make([]byte, n)
		if err := r.read(buf); err != nil {
			return nil, err
		}
		return buf, nil
	case TypeShort:
		vals := make([]uint16, n)
		for i := range vals {
			v, err := r.uint16()
			if err != nil {
				return nil, err
			}
			vals[i] = v
		}
		return vals, nil
	case TypeLong, TypeIFD:
		vals := make([]uint32, n)
		for i := range vals {
			v, err := r.uint32()
			if err != nil {
				return nil, err
			}
			vals[i] = v
		}
		return vals, nil
	case TypeRational:
		vals := make([]Rational, n)
		for i := range vals {
			num, err := r.uint32()
			if err != nil {
				return nil, err
			}
			den, err := r.uint32()
			if err != nil {
				return nil, err
			}
			vals[i] = Rational{Num: num, Den: den}
		}
		return vals, nil
	case TypeSByte:
		buf := make([]byte, n)
		if err := r.read(buf); err != nil {
			return nil, err
		}
		vals := make([]int8, n)
		for i, b := range buf {
			vals[i] = int8(b)
		}
		return vals, nil
	case TypeSShort:
		vals := make([]int16, n)
		for i := range vals {
			v, err := r.uint16()
			if err != nil {
				return nil, err
			}
			vals[i] = int16(v)
		}
		return vals, nil
	case TypeSLong:
		vals := make([]int32, n)
		for i := range vals {
			v, err := r.uint32()
			if err != nil {
				return nil, err
			}
			vals[i] = int32(v)
		}
		return vals, nil
	case TypeSRational:
		vals := make([]SRational, n)
		for i := range vals {
			num, err := r.uint32()
			if err != nil {
				return nil, err
			}
			den, err := r.uint32()
			if err != nil {
				return nil, err
			}
			vals[i] = SRational{Num: int32(num), Den: int32(den)}
		}
		return vals, nil
	case TypeFloat:
		vals := make([]float32, n)
		for i := range vals {
			v, err := r.uint32()
			if err != nil {
				return nil, err
			}
			vals[i] = math.Float32frombits(v)
		}
		return vals, nil
	case TypeDouble:
		vals := make([]float64, n)
		for i := range vals {
			v, err := r.uint64()
			if err != nil {
				return nil, err
			}
			vals[i] = math.Float64frombits(v)
		}
		return vals, nil
	case TypeLong8, TypeIFD8:
		vals := make([]uint64, n)
		for i := range vals {
			v, err := r.uint64()
			if err != nil {
				return nil, err
			}
			vals[i] = v
		}
		return vals, nil
	case TypeSLong8:
		vals := make([]int64, n)
		for i := range vals {
			v, err := r.uint64()
			if err != nil {
				return nil, err
			}
			vals[i] = int64(v)
		}
		return vals, nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownType, uint16(typ))
}

// Parse reads the complete directory chain from a TIFF buffer (the bytes
// following the Exif header). Pointer-indirected values are resolved in a
// second pass over the recorded offsets; after that every entry is either
// resolved or of unknown type.
func Parse(buf []byte) ([]Directory, error) {
	r, dirOffset, err := newReader(buf)
	if err != nil {
		return nil, err
	}
	if err := r.seek(dirOffset); err != nil {
		return nil, err
	}

	var dirs []Directory
	for {
		count, err := r.entryCount()
		if err != nil {
			return nil, fmt.Errorf("reading entry count of directory %d: %w", len(dirs), err)
		}
		// count comes from the input, so it must not size an allocation
		var dir Directory
		for i := uint64(0); i < count; i++ {
			entry, err := r.readEntry()
			if err != nil {
				return nil, fmt.Errorf("reading entry %d of directory %d: %w", i, len(dirs), err)
			}
			dir = append(dir, entry)
		}
		dirs = append(dirs, dir)

		next, err := r.offset()
		if err != nil {
			return nil, fmt.Errorf("reading next offset after directory %d: %w", len(dirs)-1, err)
		}
		if next == 0 {
			break
		}
		if err := r.seek(next); err != nil {
			return nil, err
		}
	}

	for di := range dirs {
		for ei := range dirs[di] {
			entry := &dirs[di][ei]
			if !entry.pending {
				continue
			}
			if err := r.seek(entry.offset); err != nil {
				return nil, err
			}
			values, err := r.readValues(entry.Type, entry.Count)
			if err != nil {
				return nil, fmt.Errorf("resolving tag 0x%04X: %w", entry.Tag, err)
			}
			entry.Value = values
			entry.pending = false
		}
	}

	return dirs, nil
}

// Unit is a pixel density unit derived from the ResolutionUnit tag.
type Unit int

// Density units. The TIFF codes 2 and 3 map here; anything else falls back
// to dots per inch.
const (
	DotsPerInch Unit = iota
	DotsPerCentimeter
)

func (u Unit) String() string {
	if u == DotsPerCentimeter {
		return "dpcm"
	}
	return "dpi"
}

// DensitySink receives the density metadata derived from the first
// directory.
type DensitySink interface {
	SetDensity(unit Unit, x, y uint16)
}

// Process parses the TIFF buffer that follows an Exif header and pushes the
// derived density metadata into sink. Directory #0 describes the image
// itself; later directories (typically the thumbnail) are parsed but not
// interpreted. Fallbacks: X resolution 72 when absent, Y resolution follows
// X, unit defaults to dots per inch.
func Process(buf []byte, sink DensitySink) error {
	dirs, err := Parse(buf)
	if err != nil {
		return err
	}
	dir := dirs[0]

	x, ok := singleRational(dir, TagXResolution)
	if !ok {
		x = 72
	}
	y, ok := singleRational(dir, TagYResolution)
	if !ok {
		y = x
	}

	unit := DotsPerInch
	if v, ok := singleShort(dir, TagResolutionUnit); ok && v == 3 {
		unit = DotsPerCentimeter
	}

	sink.SetDensity(unit, uint16(x), uint16(y))
	return nil
}

// singleRational returns the integer-truncated value of a tag that holds
// exactly one rational. Anything else, including a zero denominator, counts
// as absent.
func singleRational(dir Directory, tag uint16) (uint32, bool) {
	for i := range dir {
		entry := &dir[i]
		if entry.Tag != tag || entry.Value == nil || entry.unknown {
			continue
		}
		vals, ok := entry.Rationals()
		if !ok || len(vals) != 1 || vals[0].Den == 0 {
			return 0, false
		}
		return vals[0].Num / vals[0].Den, true
	}
	return 0, false
}

// singleShort returns the value of a tag that holds exactly one short.
func singleShort(dir Directory, tag uint16) (uint16, bool) {
	for i := range dir {
		entry := &dir[i]
		if entry.Tag != tag || entry.Value == nil || entry.unknown {
			continue
		}
		vals, ok := entry.Shorts()
		if !ok || len(vals) != 1 {
			return 0, false
		}
		return vals[0], true
	}
	return 0, false
}
