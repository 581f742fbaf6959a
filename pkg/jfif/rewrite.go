package jfif

import (
	"bytes"
	"encoding/binary"
	"io"
)

// RewriteDensity streams r to w one piece at a time, patching the density
// fields of any JFIF APP0 marker it passes. Every other piece is forwarded
// unchanged, so the output differs from the input only in those five bytes.
func RewriteDensity(r io.Reader, w io.Writer, unit DensityUnit, x, y uint16) error {
	tok := NewTokenizer(r)
	for {
		piece, err := tok.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		if m, ok := piece.(MarkerWithLength); ok && m.Type.Byte() == APP0 &&
			bytes.HasPrefix(m.Value, jfifSignature) && len(m.Value) >= 12 {
			patched := append([]byte(nil), m.Value...)
			patched[7] = byte(unit)
			binary.BigEndian.PutUint16(patched[8:10], x)
			binary.BigEndian.PutUint16(patched[10:12], y)
			m.Value = patched
			piece = m
		}

		if err := piece.Write(w); err != nil {
			return err
		}
	}
}
