package wav

import (
	"errors"
	"fmt"
)

// WAVE format tags handled by the package.
const (
	FormatPCM        uint16 = 0x0001
	FormatMSADPCM    uint16 = 0x0002
	FormatIEEEFloat  uint16 = 0x0003
	FormatALaw       uint16 = 0x0006
	FormatMuLaw      uint16 = 0x0007
	FormatIMAADPCM   uint16 = 0x0011
	FormatExtensible uint16 = 0xFFFE
)

// UnknownDataSize is the data chunk size streaming writers declare when the
// final length isn't known yet. Such a chunk runs to the end of the input.
const UnknownDataSize uint32 = 0xFFFFFFFF

var (
	// CIDFact is the chunk ID for the fact chunk.
	CIDFact = [4]byte{'f', 'a', 'c', 't'}
	// CIDForm is the chunk ID AIFF files start with.
	CIDForm = [4]byte{'F', 'O', 'R', 'M'}

	// ErrNotWAV is returned when the input isn't a RIFF/WAVE file.
	ErrNotWAV = errors.New("not a RIFF/WAVE file")
	// ErrNotAIFF is returned when the input isn't a readable AIFF file.
	ErrNotAIFF = errors.New("not an AIFF file")
	// ErrFmtChunkNotFound is returned when no fmt chunk precedes the data chunk.
	ErrFmtChunkNotFound = errors.New("fmt chunk not found")
	// ErrPCMDataNotFound is returned when PCM data chunk is not found.
	ErrPCMDataNotFound = errors.New("PCM data not found")
	// ErrTruncatedData is returned when the data chunk is shorter than declared.
	ErrTruncatedData = errors.New("data chunk is truncated")
	// ErrUnsupportedCompressedFormat is returned when samples of a compressed
	// format are requested as PCM.
	ErrUnsupportedCompressedFormat = errors.New("unsupported compressed audio format")
	// ErrDurationUnknown is returned when the byte rate needed for the
	// duration is missing.
	ErrDurationUnknown = errors.New("can't calculate the duration without a byte rate")

	errUnhandledBitDepth    = errors.New("unhandled bit depth")
	errUnsupportedWavFormat = errors.New("unsupported wav format")
)

// FormatName returns a human readable name for a WAVE format tag.
func FormatName(tag uint16) string {
	switch tag {
	case FormatPCM:
		return "PCM"
	case FormatMSADPCM:
		return "MS-ADPCM"
	case FormatIEEEFloat:
		return "IEEE float"
	case FormatALaw:
		return "A-law"
	case FormatMuLaw:
		return "mu-law"
	case FormatIMAADPCM:
		return "IMA ADPCM"
	case FormatExtensible:
		return "extensible"
	default:
		return fmt.Sprintf("format tag 0x%04x", tag)
	}
}

// IsADPCM reports whether tag is one of the ADPCM format tags.
func IsADPCM(tag uint16) bool {
	return tag == FormatMSADPCM || tag == FormatIMAADPCM
}

func bytesPerSample(bitDepth int) int {
	return (bitDepth-1)/8 + 1
}
