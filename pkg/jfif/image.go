package jfif

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"

	"github.com/jpfielding/jfif.go/pkg/jfif/exif"
)

// ColorSpace is the component-count code from the start-of-frame block.
type ColorSpace byte

// Common color space codes.
const (
	Grayscale ColorSpace = 1
	RGB       ColorSpace = 3
	CMYK      ColorSpace = 4
)

func (c ColorSpace) String() string {
	switch c {
	case Grayscale:
		return "grayscale"
	case RGB:
		return "rgb"
	case CMYK:
		return "cmyk"
	}
	return fmt.Sprintf("colorspace(%d)", byte(c))
}

// DensityUnit is the JFIF pixel density unit code.
type DensityUnit byte

// JFIF density unit codes.
const (
	NoUnit            DensityUnit = 0
	DotsPerInch       DensityUnit = 1
	DotsPerCentimeter DensityUnit = 2
)

func (u DensityUnit) String() string {
	switch u {
	case NoUnit:
		return "none"
	case DotsPerInch:
		return "dpi"
	case DotsPerCentimeter:
		return "dpcm"
	}
	return fmt.Sprintf("unit(%d)", byte(u))
}

// Image is a fully decoded JPEG file: validated metadata plus the structural
// blocks and opaque entropy-coded data needed to re-emit it byte for byte.
type Image struct {
	BitDepth    uint8
	Width       uint16
	Height      uint16
	ColorSpace  ColorSpace
	DensityUnit DensityUnit
	DensityX    uint16
	DensityY    uint16

	LeadingBlocks  []Block
	ImageData      []byte
	TrailingBlocks []Block
}

// ImageBuilder accumulates metadata while the leading blocks are
// interpreted. Fields stay nil until the block that defines them has been
// seen; Build fails while any is still unset.
type ImageBuilder struct {
	BitDepth    *uint8
	Width       *uint16
	Height      *uint16
	ColorSpace  *ColorSpace
	DensityUnit *DensityUnit
	DensityX    *uint16
	DensityY    *uint16

	LeadingBlocks  []Block
	ImageData      []byte
	TrailingBlocks []Block
}

// SetDensity satisfies exif.DensitySink so the Exif reader can feed density
// metadata straight into the builder.
func (b *ImageBuilder) SetDensity(unit exif.Unit, x, y uint16) {
	du := DotsPerInch
	if unit == exif.DotsPerCentimeter {
		du = DotsPerCentimeter
	}
	b.DensityUnit = &du
	b.DensityX = &x
	b.DensityY = &y
}

func (b *ImageBuilder) missing() []string {
	var m []string
	if b.BitDepth == nil {
		m = append(m, "bit depth")
	}
	if b.Width == nil {
		m = append(m, "width")
	}
	if b.Height == nil {
		m = append(m, "height")
	}
	if b.ColorSpace == nil {
		m = append(m, "color space")
	}
	if b.DensityUnit == nil {
		m = append(m, "density unit")
	}
	if b.DensityX == nil {
		m = append(m, "density x")
	}
	if b.DensityY == nil {
		m = append(m, "density y")
	}
	return m
}

// Build finalizes the builder into an immutable Image. It fails with
// IncompleteDataError while any metadata field is unset.
func (b *ImageBuilder) Build() (*Image, error) {
	if len(b.missing()) > 0 {
		return nil, &IncompleteDataError{Builder: b}
	}
	return &Image{
		BitDepth:       *b.BitDepth,
		Width:          *b.Width,
		Height:         *b.Height,
		ColorSpace:     *b.ColorSpace,
		DensityUnit:    *b.DensityUnit,
		DensityX:       *b.DensityX,
		DensityY:       *b.DensityY,
		LeadingBlocks:  b.LeadingBlocks,
		ImageData:      b.ImageData,
		TrailingBlocks: b.TrailingBlocks,
	}, nil
}

// Decode reads a complete JPEG stream into an Image. The first block must be
// start-of-image, the leading blocks run through start-of-scan, and the
// remaining bytes must end with an end-of-image marker.
func Decode(r io.Reader) (*Image, error) {
	builder := &ImageBuilder{}

	for {
		// a whole-file decode expects blocks through start-of-scan, so
		// running out of input here is a truncation
		block, err := ReadBlock(r)
		if err != nil {
			return nil, fmt.Errorf("reading block %d: %w", len(builder.LeadingBlocks), unexpectedEOF(err))
		}
		builder.LeadingBlocks = append(builder.LeadingBlocks, block)

		if len(builder.LeadingBlocks) == 1 {
			if block.Kind != SOI {
				return nil, fmt.Errorf("%w: 0x%02X (expected start-of-image)", ErrUnexpectedBlock, block.Kind)
			}
		} else if block.Kind == SOS {
			break
		}
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading image data: %w", err)
	}
	if !bytes.HasSuffix(data, []byte{0xFF, EOI}) {
		return nil, ErrImageTermination
	}
	builder.ImageData = data[:len(data)-2]
	builder.TrailingBlocks = append(builder.TrailingBlocks, Block{Kind: EOI})

	seenJFIF := false
	for _, block := range builder.LeadingBlocks {
		if block.Kind == APP0 {
			if seenJFIF {
				slog.Warn("multiple APP0 segments; the last one wins")
			}
			seenJFIF = true
		}
		if err := applyMetadata(block, builder); err != nil {
			return nil, err
		}
	}

	return builder.Build()
}

// applyMetadata interprets one leading block. Unknown kinds contribute
// nothing and are kept verbatim for re-emission.
func applyMetadata(block Block, builder *ImageBuilder) error {
	data := block.Data
	switch {
	case block.Kind == APP0:
		if !bytes.HasPrefix(data, jfifSignature) {
			return ErrNotJFIF
		}
		if len(data) < 12 {
			return fmt.Errorf("%w: expected at least 12 bytes, obtained %d", ErrJFIFTooShort, len(data))
		}
		version := binary.BigEndian.Uint16(data[5:7])
		if version != jfifVersion {
			return fmt.Errorf("%w: expected 0x%04X, obtained 0x%04X", ErrJFIFVersion, jfifVersion, version)
		}
		unit := DensityUnit(data[7])
		x := binary.BigEndian.Uint16(data[8:10])
		y := binary.BigEndian.Uint16(data[10:12])
		builder.DensityUnit = &unit
		builder.DensityX = &x
		builder.DensityY = &y
	case block.Kind == APP1:
		if bytes.HasPrefix(data, exifHeader) {
			if err := exif.Process(data[len(exifHeader):], builder); err != nil {
				return fmt.Errorf("exif: %w", err)
			}
		}
	case isSOF(block.Kind):
		if len(data) < 6 {
			return fmt.Errorf("%w: expected at least 6 bytes, obtained %d", ErrSOFTooShort, len(data))
		}
		depth := data[0]
		height := binary.BigEndian.Uint16(data[1:3])
		width := binary.BigEndian.Uint16(data[3:5])
		colorSpace := ColorSpace(data[5])
		builder.BitDepth = &depth
		builder.Height = &height
		builder.Width = &width
		builder.ColorSpace = &colorSpace
	}
	return nil
}

// isSOF reports whether kind is a start-of-frame variant. 0xC4, 0xC8 and
// 0xCC are table/extension markers, not frames.
func isSOF(kind byte) bool {
	switch kind {
	case DHT, JPG, DAC:
		return false
	}
	return kind >= 0xC0 && kind <= 0xCF
}

// Write re-emits the image in its wire encoding: leading blocks, entropy
// data, trailing blocks. For an unmodified Image this reproduces the decoded
// bytes exactly.
func (img *Image) Write(w io.Writer) error {
	for _, block := range img.LeadingBlocks {
		if err := block.Write(w); err != nil {
			return err
		}
	}
	if _, err := w.Write(img.ImageData); err != nil {
		return err
	}
	for _, block := range img.TrailingBlocks {
		if err := block.Write(w); err != nil {
			return err
		}
	}
	return nil
}

// Strip drops the leading blocks that are not structurally required
// (application segments and comments). The metadata fields stay populated on
// the record but are no longer re-emitted, so a stripped file decodes with
// incomplete metadata.
func (img *Image) Strip() {
	kept := img.LeadingBlocks[:0]
	for _, block := range img.LeadingBlocks {
		if block.Required() {
			kept = append(kept, block)
		}
	}
	img.LeadingBlocks = kept
}

// SetDensity updates the density fields and patches every JFIF APP0 payload
// in place so the change survives Write and a re-decode, which reads the last
// APP0. It fails with ErrNotJFIF when no JFIF APP0 block is present.
func (img *Image) SetDensity(unit DensityUnit, x, y uint16) error {
	patched := false
	for i := range img.LeadingBlocks {
		block := &img.LeadingBlocks[i]
		if block.Kind != APP0 || !bytes.HasPrefix(block.Data, jfifSignature) || len(block.Data) < 12 {
			continue
		}
		block.Data[7] = byte(unit)
		binary.BigEndian.PutUint16(block.Data[8:10], x)
		binary.BigEndian.PutUint16(block.Data[10:12], y)
		patched = true
	}
	if !patched {
		return ErrNotJFIF
	}
	img.DensityUnit = unit
	img.DensityX = x
	img.DensityY = y
	return nil
}
