package jfif

import (
	"errors"
	"fmt"
	"strings"
)

// Parse failures. Malformed input fails on the first violated invariant;
// callers are expected to reject the whole stream.
var (
	ErrMarkerType          = errors.New("invalid marker type")
	ErrInvalidMarkerLength = errors.New("invalid marker length")
	ErrNotABlock           = errors.New("not a block")
	ErrBlockTooShort       = errors.New("block too short")
	ErrBlockTooLong        = errors.New("block too long")
	ErrUnexpectedBlock     = errors.New("unexpected block")
	ErrImageTermination    = errors.New("image data terminated incorrectly")
	ErrNotJFIF             = errors.New("file is not a JFIF file")
	ErrJFIFVersion         = errors.New("unexpected JFIF version")
	ErrJFIFTooShort        = errors.New("JFIF header too short")
	ErrSOFTooShort         = errors.New("start-of-frame too short")
)

// IncompleteDataError reports that the leading blocks did not populate every
// required metadata field. The partial builder is kept for diagnostics.
type IncompleteDataError struct {
	Builder *ImageBuilder
}

func (e *IncompleteDataError) Error() string {
	return fmt.Sprintf("incomplete data in header: missing %s",
		strings.Join(e.Builder.missing(), ", "))
}
