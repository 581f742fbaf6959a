package jfif

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRewriteDensity(t *testing.T) {
	stream := encodeStream(t, []Block{
		{Kind: SOI},
		jfifBlock(DotsPerInch, 72, 72),
		sofBlock(8, 4, 4, Grayscale),
		sosBlock,
	}, []byte{0x01, 0xFF, 0x00, 0x02})

	var out bytes.Buffer
	require.NoError(t, RewriteDensity(bytes.NewReader(stream), &out, DotsPerCentimeter, 118, 120))

	img, err := Decode(bytes.NewReader(out.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, DotsPerCentimeter, img.DensityUnit)
	assert.Equal(t, uint16(118), img.DensityX)
	assert.Equal(t, uint16(120), img.DensityY)

	// only the three density fields inside APP0 may differ
	assert.Equal(t, len(stream), out.Len())
	diff := 0
	for i := range stream {
		if stream[i] != out.Bytes()[i] {
			diff++
		}
	}
	assert.LessOrEqual(t, diff, 5)
}

// TestRewriteDensity_MatchesSetDensity checks the streaming rewrite against
// the decode-patch-write path on the same input.
func TestRewriteDensity_MatchesSetDensity(t *testing.T) {
	stream := encodeStream(t, []Block{
		{Kind: SOI},
		jfifBlock(DotsPerInch, 96, 96),
		{Kind: COM, Data: []byte("hello")},
		sofBlock(8, 4, 4, RGB),
		sosBlock,
	}, []byte{0xAA, 0xBB})

	var streamed bytes.Buffer
	require.NoError(t, RewriteDensity(bytes.NewReader(stream), &streamed, DotsPerInch, 150, 150))

	img, err := Decode(bytes.NewReader(stream))
	require.NoError(t, err)
	require.NoError(t, img.SetDensity(DotsPerInch, 150, 150))
	var decoded bytes.Buffer
	require.NoError(t, img.Write(&decoded))

	assert.Equal(t, decoded.Bytes(), streamed.Bytes())
}

func TestRewriteDensity_NoAPP0PassThrough(t *testing.T) {
	stream := encodeStream(t, []Block{
		{Kind: SOI},
		sofBlock(8, 4, 4, Grayscale),
		sosBlock,
	}, []byte{0x01})

	var out bytes.Buffer
	require.NoError(t, RewriteDensity(bytes.NewReader(stream), &out, DotsPerInch, 72, 72))
	assert.Equal(t, stream, out.Bytes())
}

func TestRewriteDensity_Truncated(t *testing.T) {
	err := RewriteDensity(bytes.NewReader([]byte{0xFF, 0xD8, 0xFF}), io.Discard, DotsPerInch, 72, 72)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}
