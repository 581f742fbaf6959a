package jfif

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Block is one structural unit of a JPEG file: 0xFF, a kind byte, and for
// long kinds a big-endian length (inclusive of its own two bytes) followed by
// the payload. Kinds 0xD0 through 0xD9 (restart markers, start-of-image,
// end-of-image) are short and carry neither.
type Block struct {
	Kind byte
	Data []byte
}

// Short reports whether the kind carries no length or payload on the wire.
func (b Block) Short() bool {
	return b.Kind >= RST0 && b.Kind <= EOI
}

// Required reports whether the block is structurally required. Application
// segments and comments (0xE0-0xFE) only carry metadata and can be dropped
// without breaking the image.
func (b Block) Required() bool {
	return b.Kind < APP0 || b.Kind > COM
}

// ReadBlock reads a single block. The first byte must be 0xFF; a long block
// must declare a length of at least 2.
func ReadBlock(r io.Reader) (Block, error) {
	var buf [2]byte
	if _, err := io.ReadFull(r, buf[:1]); err != nil {
		return Block{}, err
	}
	if buf[0] != 0xFF {
		return Block{}, fmt.Errorf("%w: starting byte 0x%02X", ErrNotABlock, buf[0])
	}
	if _, err := io.ReadFull(r, buf[1:]); err != nil {
		return Block{}, unexpectedEOF(err)
	}

	block := Block{Kind: buf[1]}
	if block.Short() {
		return block, nil
	}

	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return Block{}, unexpectedEOF(err)
	}
	length := int(binary.BigEndian.Uint16(buf[:]))
	if length < 2 {
		return Block{}, fmt.Errorf("%w: expected at least 2 bytes, obtained %d", ErrBlockTooShort, length)
	}
	block.Data = make([]byte, length-2)
	if _, err := io.ReadFull(r, block.Data); err != nil {
		return Block{}, unexpectedEOF(err)
	}
	return block, nil
}

// Write emits the block in its wire encoding.
func (b Block) Write(w io.Writer) error {
	if b.Short() {
		_, err := w.Write([]byte{0xFF, b.Kind})
		return err
	}
	if len(b.Data) > 0xFFFF-2 {
		return fmt.Errorf("%w: max allowed %d bytes, obtained %d", ErrBlockTooLong, 0xFFFF-2, len(b.Data))
	}
	var head [4]byte
	head[0] = 0xFF
	head[1] = b.Kind
	binary.BigEndian.PutUint16(head[2:], uint16(len(b.Data)+2))
	if _, err := w.Write(head[:]); err != nil {
		return err
	}
	_, err := w.Write(b.Data)
	return err
}
