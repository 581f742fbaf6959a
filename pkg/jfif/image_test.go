package jfif

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// jfifBlock builds a version 1.01 JFIF APP0 block with the given density and
// an empty thumbnail.
func jfifBlock(unit DensityUnit, x, y uint16) Block {
	data := []byte("JFIF\x00\x01\x01")
	data = append(data, byte(unit))
	data = binary.BigEndian.AppendUint16(data, x)
	data = binary.BigEndian.AppendUint16(data, y)
	data = append(data, 0x00, 0x00)
	return Block{Kind: APP0, Data: data}
}

// sofBlock builds a baseline start-of-frame block with per-component specs.
func sofBlock(depth uint8, width, height uint16, cs ColorSpace) Block {
	data := []byte{depth}
	data = binary.BigEndian.AppendUint16(data, height)
	data = binary.BigEndian.AppendUint16(data, width)
	data = append(data, byte(cs))
	for c := byte(1); c <= byte(cs); c++ {
		data = append(data, c, 0x11, 0x00)
	}
	return Block{Kind: SOF0, Data: data}
}

var sosBlock = Block{Kind: SOS, Data: []byte{0x01, 0x01, 0x00, 0x00, 0x3F, 0x00}}

// encodeStream assembles a wire-format JPEG from leading blocks, entropy data
// and the closing end-of-image marker.
func encodeStream(t *testing.T, leading []Block, imageData []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	for _, block := range leading {
		require.NoError(t, block.Write(&buf))
	}
	buf.Write(imageData)
	buf.Write([]byte{0xFF, EOI})
	return buf.Bytes()
}

func TestDecode_JFIF(t *testing.T) {
	stream := encodeStream(t, []Block{
		{Kind: SOI},
		jfifBlock(DotsPerInch, 72, 72),
		sofBlock(8, 32, 16, RGB),
		sosBlock,
	}, []byte{0x12, 0x34, 0x56})

	img, err := Decode(bytes.NewReader(stream))
	require.NoError(t, err)

	assert.Equal(t, uint8(8), img.BitDepth)
	assert.Equal(t, uint16(32), img.Width)
	assert.Equal(t, uint16(16), img.Height)
	assert.Equal(t, RGB, img.ColorSpace)
	assert.Equal(t, DotsPerInch, img.DensityUnit)
	assert.Equal(t, uint16(72), img.DensityX)
	assert.Equal(t, uint16(72), img.DensityY)
	assert.Equal(t, []byte{0x12, 0x34, 0x56}, img.ImageData)
	assert.Len(t, img.LeadingBlocks, 4)
	assert.Equal(t, []Block{{Kind: EOI}}, img.TrailingBlocks)
}

func TestDecode_RoundTrip(t *testing.T) {
	stream := encodeStream(t, []Block{
		{Kind: SOI},
		jfifBlock(DotsPerCentimeter, 28, 28),
		{Kind: DQT, Data: []byte{0x00, 0x10, 0x10}},
		{Kind: COM, Data: []byte("round trip")},
		sofBlock(8, 8, 8, Grayscale),
		{Kind: DHT, Data: []byte{0x00, 0x01}},
		sosBlock,
	}, []byte{0xAB, 0xFF, 0x00, 0xCD})

	img, err := Decode(bytes.NewReader(stream))
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, img.Write(&out))
	assert.Equal(t, stream, out.Bytes())
}

func TestDecode_UnknownAppSegmentPreserved(t *testing.T) {
	unknown := Block{Kind: 0xEF, Data: []byte{0xDE, 0xAD, 0xBE, 0xEF}}
	stream := encodeStream(t, []Block{
		{Kind: SOI},
		jfifBlock(DotsPerInch, 96, 96),
		unknown,
		sofBlock(8, 4, 4, Grayscale),
		sosBlock,
	}, []byte{0x01})

	img, err := Decode(bytes.NewReader(stream))
	require.NoError(t, err)

	// the unknown APP15 segment contributes no metadata but survives intact
	assert.Equal(t, uint16(96), img.DensityX)
	assert.Equal(t, unknown, img.LeadingBlocks[2])

	var out bytes.Buffer
	require.NoError(t, img.Write(&out))
	assert.Equal(t, stream, out.Bytes())
}

func TestDecode_MultipleAPP0LastWins(t *testing.T) {
	stream := encodeStream(t, []Block{
		{Kind: SOI},
		jfifBlock(DotsPerInch, 72, 72),
		jfifBlock(DotsPerCentimeter, 28, 30),
		sofBlock(8, 4, 4, Grayscale),
		sosBlock,
	}, []byte{0x01})

	img, err := Decode(bytes.NewReader(stream))
	require.NoError(t, err)
	assert.Equal(t, DotsPerCentimeter, img.DensityUnit)
	assert.Equal(t, uint16(28), img.DensityX)
	assert.Equal(t, uint16(30), img.DensityY)
}

func TestDecode_Errors(t *testing.T) {
	badJFIF := jfifBlock(DotsPerInch, 72, 72)
	badJFIF.Data = []byte("JFXX\x00\x01\x01\x01\x00\x48\x00\x48")
	oldJFIF := jfifBlock(DotsPerInch, 72, 72)
	oldJFIF.Data[6] = 0x02 // version 1.02
	shortJFIF := Block{Kind: APP0, Data: []byte("JFIF\x00\x01\x01")}
	shortSOF := Block{Kind: SOF0, Data: []byte{0x08, 0x00, 0x10}}

	tests := []struct {
		name    string
		leading []Block
		want    error
	}{
		{"first block not SOI", []Block{{Kind: DQT, Data: []byte{0x00}}}, ErrUnexpectedBlock},
		{"APP0 without JFIF signature", []Block{{Kind: SOI}, badJFIF, sofBlock(8, 4, 4, Grayscale), sosBlock}, ErrNotJFIF},
		{"unsupported JFIF version", []Block{{Kind: SOI}, oldJFIF, sofBlock(8, 4, 4, Grayscale), sosBlock}, ErrJFIFVersion},
		{"truncated JFIF header", []Block{{Kind: SOI}, shortJFIF, sofBlock(8, 4, 4, Grayscale), sosBlock}, ErrJFIFTooShort},
		{"truncated start-of-frame", []Block{{Kind: SOI}, jfifBlock(DotsPerInch, 72, 72), shortSOF, sosBlock}, ErrSOFTooShort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stream := encodeStream(t, tt.leading, []byte{0x01})
			_, err := Decode(bytes.NewReader(stream))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestDecode_BadTermination(t *testing.T) {
	stream := encodeStream(t, []Block{
		{Kind: SOI},
		jfifBlock(DotsPerInch, 72, 72),
		sofBlock(8, 4, 4, Grayscale),
		sosBlock,
	}, []byte{0x01})
	stream = stream[:len(stream)-1] // drop the EOI kind byte

	_, err := Decode(bytes.NewReader(stream))
	assert.ErrorIs(t, err, ErrImageTermination)
}

func TestDecode_TruncatedBetweenBlocks(t *testing.T) {
	// input stops after the SOI block, before start-of-scan
	_, err := Decode(bytes.NewReader([]byte{0xFF, 0xD8}))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestDecode_MissingFrame(t *testing.T) {
	stream := encodeStream(t, []Block{
		{Kind: SOI},
		jfifBlock(DotsPerInch, 72, 72),
		sosBlock,
	}, []byte{0x01})

	_, err := Decode(bytes.NewReader(stream))
	var incomplete *IncompleteDataError
	require.ErrorAs(t, err, &incomplete)
	assert.Contains(t, incomplete.Error(), "width")
	assert.Contains(t, incomplete.Error(), "bit depth")
	assert.Nil(t, incomplete.Builder.Width)
	assert.NotNil(t, incomplete.Builder.DensityX)
}

func TestImage_SetDensity(t *testing.T) {
	stream := encodeStream(t, []Block{
		{Kind: SOI},
		jfifBlock(DotsPerInch, 72, 72),
		sofBlock(8, 4, 4, Grayscale),
		sosBlock,
	}, []byte{0x01})

	img, err := Decode(bytes.NewReader(stream))
	require.NoError(t, err)
	require.NoError(t, img.SetDensity(DotsPerCentimeter, 118, 118))

	assert.Equal(t, DotsPerCentimeter, img.DensityUnit)
	assert.Equal(t, uint16(118), img.DensityX)

	// the patch must survive a write and re-decode
	var out bytes.Buffer
	require.NoError(t, img.Write(&out))
	again, err := Decode(bytes.NewReader(out.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, DotsPerCentimeter, again.DensityUnit)
	assert.Equal(t, uint16(118), again.DensityX)
	assert.Equal(t, uint16(118), again.DensityY)
}

func TestImage_SetDensityMultipleAPP0(t *testing.T) {
	// every JFIF APP0 gets patched, so the last-wins re-decode still sees
	// the new value
	stream := encodeStream(t, []Block{
		{Kind: SOI},
		jfifBlock(DotsPerInch, 72, 72),
		jfifBlock(DotsPerInch, 96, 96),
		sofBlock(8, 4, 4, Grayscale),
		sosBlock,
	}, []byte{0x01})

	img, err := Decode(bytes.NewReader(stream))
	require.NoError(t, err)
	require.NoError(t, img.SetDensity(DotsPerCentimeter, 118, 118))

	var out bytes.Buffer
	require.NoError(t, img.Write(&out))
	again, err := Decode(bytes.NewReader(out.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, DotsPerCentimeter, again.DensityUnit)
	assert.Equal(t, uint16(118), again.DensityX)
	assert.Equal(t, uint16(118), again.DensityY)
}

func TestImage_SetDensityWithoutJFIF(t *testing.T) {
	img := &Image{LeadingBlocks: []Block{{Kind: SOI}, sofBlock(8, 4, 4, Grayscale)}}
	assert.ErrorIs(t, img.SetDensity(DotsPerInch, 72, 72), ErrNotJFIF)
}

func TestImage_Strip(t *testing.T) {
	stream := encodeStream(t, []Block{
		{Kind: SOI},
		jfifBlock(DotsPerInch, 72, 72),
		{Kind: COM, Data: []byte("drop me")},
		sofBlock(8, 4, 4, Grayscale),
		sosBlock,
	}, []byte{0x01})

	img, err := Decode(bytes.NewReader(stream))
	require.NoError(t, err)
	img.Strip()

	kinds := make([]byte, 0, len(img.LeadingBlocks))
	for _, block := range img.LeadingBlocks {
		kinds = append(kinds, block.Kind)
	}
	assert.Equal(t, []byte{SOI, SOF0, SOS}, kinds)

	// a stripped file no longer carries density metadata
	var out bytes.Buffer
	require.NoError(t, img.Write(&out))
	_, err = Decode(bytes.NewReader(out.Bytes()))
	var incomplete *IncompleteDataError
	assert.True(t, errors.As(err, &incomplete))
}

func TestDecode_ExifDensity(t *testing.T) {
	// little-endian classic TIFF, one IFD entry: X resolution 300/1 stored
	// out of line. Y resolution and the unit fall back to X and inches.
	tiff := []byte{
		'I', 'I', 42, 0x00,
		0x08, 0x00, 0x00, 0x00, // directory at offset 8
		0x01, 0x00, // one entry
		0x1A, 0x01, 0x05, 0x00, 0x01, 0x00, 0x00, 0x00, 0x1A, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, // no next directory
		0x2C, 0x01, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, // 300/1 at offset 26
	}
	app1 := Block{Kind: APP1, Data: append([]byte("Exif\x00\x00"), tiff...)}

	stream := encodeStream(t, []Block{
		{Kind: SOI},
		app1,
		sofBlock(8, 4, 4, Grayscale),
		sosBlock,
	}, []byte{0x01})

	img, err := Decode(bytes.NewReader(stream))
	require.NoError(t, err)
	assert.Equal(t, DotsPerInch, img.DensityUnit)
	assert.Equal(t, uint16(300), img.DensityX)
	assert.Equal(t, uint16(300), img.DensityY)
}

func TestReadWriteFile(t *testing.T) {
	stream := encodeStream(t, []Block{
		{Kind: SOI},
		jfifBlock(DotsPerInch, 72, 72),
		sofBlock(8, 4, 4, Grayscale),
		sosBlock,
	}, []byte{0x01, 0x02})

	dir := t.TempDir()
	in := filepath.Join(dir, "in.jpg")
	out := filepath.Join(dir, "out.jpg")
	require.NoError(t, os.WriteFile(in, stream, 0o644))

	img, err := ReadFile(in)
	require.NoError(t, err)
	require.NoError(t, WriteFile(out, img))

	again, err := ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, img, again)
}
