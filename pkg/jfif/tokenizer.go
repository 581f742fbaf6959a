package jfif

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// MarkerType is the identifying byte of a marker. The wire protocol reserves
// 0xFF for filler and 0x00 for byte stuffing, so neither is a valid marker
// type; the constructor enforces that.
type MarkerType struct {
	b byte
}

// NewMarkerType validates b as a marker type byte.
func NewMarkerType(b byte) (MarkerType, error) {
	if b == 0x00 || b == 0xFF {
		return MarkerType{}, fmt.Errorf("%w: 0x%02X", ErrMarkerType, b)
	}
	return MarkerType{b: b}, nil
}

// Byte returns the underlying marker kind.
func (m MarkerType) Byte() byte { return m.b }

func (m MarkerType) String() string { return KindName(m.b) }

// Piece is one logical unit of a JPEG stream as produced by a Tokenizer.
// Writing every piece of a stream in order reproduces the input byte for
// byte, including redundant 0xFF filler.
type Piece interface {
	// Write emits the piece in its exact wire encoding.
	Write(w io.Writer) error

	piece()
}

// MarkerWithLength is a marker segment carrying a big-endian length and a
// payload. The encoded length includes its own two bytes.
type MarkerWithLength struct {
	FillerCount int // redundant 0xFF bytes before the marker type
	Type        MarkerType
	Value       []byte
}

// EmptyMarker is a marker kind that carries no length field (TEM, RSTn, SOI,
// EOI).
type EmptyMarker struct {
	FillerCount int
	Type        MarkerType
}

// StuffedFF is a literal 0xFF inside entropy-coded data, escaped on the wire
// by a trailing 0x00.
type StuffedFF struct {
	FillerCount int
}

// EntropyData is a run of entropy-coded bytes up to (excluding) the next
// 0xFF.
type EntropyData struct {
	Data []byte
}

func (MarkerWithLength) piece() {}
func (EmptyMarker) piece()      {}
func (StuffedFF) piece()        {}
func (EntropyData) piece()      {}

func writeFillers(w io.Writer, fillerCount int) error {
	buf := make([]byte, fillerCount+1)
	for i := range buf {
		buf[i] = 0xFF
	}
	_, err := w.Write(buf)
	return err
}

func (p MarkerWithLength) Write(w io.Writer) error {
	if len(p.Value) > 0xFFFF-2 {
		return fmt.Errorf("%w: %d bytes", ErrBlockTooLong, len(p.Value))
	}
	if err := writeFillers(w, p.FillerCount); err != nil {
		return err
	}
	head := [3]byte{p.Type.Byte()}
	binary.BigEndian.PutUint16(head[1:], uint16(len(p.Value)+2))
	if _, err := w.Write(head[:]); err != nil {
		return err
	}
	_, err := w.Write(p.Value)
	return err
}

func (p EmptyMarker) Write(w io.Writer) error {
	if err := writeFillers(w, p.FillerCount); err != nil {
		return err
	}
	_, err := w.Write([]byte{p.Type.Byte()})
	return err
}

func (p StuffedFF) Write(w io.Writer) error {
	if err := writeFillers(w, p.FillerCount); err != nil {
		return err
	}
	_, err := w.Write([]byte{0x00})
	return err
}

func (p EntropyData) Write(w io.Writer) error {
	_, err := w.Write(p.Data)
	return err
}

// Tokenizer reads a JPEG stream one Piece at a time. It is pull-based and
// keeps no state beyond the single byte of lookahead needed to find the end
// of an entropy run.
type Tokenizer struct {
	r *bufio.Reader
}

// NewTokenizer creates a Tokenizer over r.
func NewTokenizer(r io.Reader) *Tokenizer {
	return &Tokenizer{r: bufio.NewReader(r)}
}

// Next consumes exactly one piece. A cleanly exhausted stream yields io.EOF;
// end of stream in the middle of a marker yields io.ErrUnexpectedEOF.
func (t *Tokenizer) Next() (Piece, error) {
	b, err := t.r.ReadByte()
	if err != nil {
		return nil, err
	}
	if b != 0xFF {
		return t.entropyRun(b)
	}

	fillerCount := 0
	for {
		b, err = t.r.ReadByte()
		if err != nil {
			return nil, unexpectedEOF(err)
		}
		if b != 0xFF {
			break
		}
		fillerCount++
	}

	if b == 0x00 {
		return StuffedFF{FillerCount: fillerCount}, nil
	}

	markerType := MarkerType{b: b}
	if b == TEM || (b >= RST0 && b <= EOI) {
		return EmptyMarker{FillerCount: fillerCount, Type: markerType}, nil
	}

	var lenBuf [2]byte
	if _, err := io.ReadFull(t.r, lenBuf[:]); err != nil {
		return nil, unexpectedEOF(err)
	}
	length := int(binary.BigEndian.Uint16(lenBuf[:]))
	if length < 2 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMarkerLength, length)
	}
	value := make([]byte, length-2)
	if _, err := io.ReadFull(t.r, value); err != nil {
		return nil, unexpectedEOF(err)
	}
	return MarkerWithLength{FillerCount: fillerCount, Type: markerType, Value: value}, nil
}

// entropyRun accumulates bytes until the next 0xFF, which stays unconsumed
// for the following call.
func (t *Tokenizer) entropyRun(first byte) (Piece, error) {
	data := []byte{first}
	for {
		peek, err := t.r.Peek(1)
		if err == io.EOF {
			return EntropyData{Data: data}, nil
		}
		if err != nil {
			return nil, err
		}
		if peek[0] == 0xFF {
			return EntropyData{Data: data}, nil
		}
		data = append(data, peek[0])
		t.r.ReadByte()
	}
}

func unexpectedEOF(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
