// Package jfif decodes the marker-segment structure of JPEG/JFIF files and
// the pixel metadata carried in it: dimensions, bit depth, color space and
// physical pixel density. The entropy-coded pixel data is carried through
// opaquely, so any accepted file can be re-emitted byte for byte.
//
// Two access levels are provided. Decode reads a whole stream into an Image
// record with validated metadata. Tokenizer reads one Piece at a time for
// streaming pass-through rewrites such as RewriteDensity.
package jfif

import (
	"fmt"
	"os"
)

// Marker kinds interpreted by this package.
const (
	TEM  = 0x01
	SOF0 = 0xC0 // SOFn = SOF0+n, n = 0-15 excluding 4, 8 and 12
	DHT  = 0xC4
	JPG  = 0xC8
	DAC  = 0xCC
	RST0 = 0xD0 // RSTn = RST0+n, n = 0-7
	SOI  = 0xD8
	EOI  = 0xD9
	SOS  = 0xDA
	DQT  = 0xDB
	DNL  = 0xDC
	DRI  = 0xDD
	APP0 = 0xE0 // APPn = APP0+n, n = 0-15
	APP1 = 0xE1
	COM  = 0xFE
)

// jfifSignature opens a JFIF APP0 payload.
var jfifSignature = []byte("JFIF\x00")

// exifHeader opens an Exif APP1 payload; the TIFF buffer follows it.
var exifHeader = []byte("Exif\x00\x00")

// jfifVersion is the only APP0 version this decoder accepts (1.01).
const jfifVersion = 0x0101

// KindName returns the conventional name of a marker kind, or the hex value
// for reserved kinds.
func KindName(kind byte) string {
	switch kind {
	case TEM:
		return "TEM"
	case DHT:
		return "DHT"
	case JPG:
		return "JPG"
	case DAC:
		return "DAC"
	case SOI:
		return "SOI"
	case EOI:
		return "EOI"
	case SOS:
		return "SOS"
	case DQT:
		return "DQT"
	case DNL:
		return "DNL"
	case DRI:
		return "DRI"
	case COM:
		return "COM"
	}
	switch {
	case kind >= SOF0 && kind <= SOF0+0xF:
		return fmt.Sprintf("SOF%d", kind-SOF0)
	case kind >= RST0 && kind <= RST0+7:
		return fmt.Sprintf("RST%d", kind-RST0)
	case kind >= APP0 && kind <= APP0+0xF:
		return fmt.Sprintf("APP%d", kind-APP0)
	}
	return fmt.Sprintf("0x%02X", kind)
}

// ReadFile decodes the JPEG file at path.
func ReadFile(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

// WriteFile writes img to path in its wire encoding.
func WriteFile(path string, img *Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := img.Write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
