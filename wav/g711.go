package wav

// G.711 companding, used to expand A-law and mu-law source files to linear
// PCM before they are repacked.

const (
	muLawBias = 0x84
	muLawClip = 8159
	aLawClip  = 0x0FFF
)

var (
	muLawSegmentEnd = [8]int{0x3F, 0x7F, 0xFF, 0x1FF, 0x3FF, 0x7FF, 0xFFF, 0x1FFF}
	aLawSegmentEnd  = [8]int{0x1F, 0x3F, 0x7F, 0xFF, 0x1FF, 0x3FF, 0x7FF, 0xFFF}
)

// companding returns the expand and compress functions for a G.711 format
// tag, or false if tag isn't one.
func companding(tag uint16) (expand func(byte) int16, compress func(int16) byte, ok bool) {
	switch tag {
	case FormatALaw:
		return expandALaw, compressALaw, true
	case FormatMuLaw:
		return expandMuLaw, compressMuLaw, true
	default:
		return nil, nil, false
	}
}

func segmentOf(value int, table [8]int) int {
	for i, end := range table {
		if value <= end {
			return i
		}
	}

	return len(table)
}

func expandMuLaw(code byte) int16 {
	v := ^code
	exp := (v >> 4) & 0x07
	linear := ((int(v&0x0F) << 3) + muLawBias) << exp
	linear -= muLawBias

	if v&0x80 != 0 {
		return int16(-linear)
	}

	return int16(linear)
}

func expandALaw(code byte) int16 {
	v := code ^ 0x55
	exp := (v >> 4) & 0x07
	linear := int(v&0x0F)<<4 + 8

	if exp > 0 {
		linear += 0x100
	}

	if exp > 1 {
		linear <<= exp - 1
	}

	if v&0x80 == 0 {
		return int16(-linear)
	}

	return int16(linear)
}

func compressMuLaw(pcm int16) byte {
	mag := int(pcm) >> 2
	mask := byte(0xFF)

	if mag < 0 {
		mag = -mag
		mask = 0x7F
	}

	mag = min(mag, muLawClip) + muLawBias>>2

	seg := segmentOf(mag, muLawSegmentEnd)
	if seg >= len(muLawSegmentEnd) {
		return 0x7F ^ mask
	}

	return (byte(seg<<4) | byte((mag>>(seg+1))&0x0F)) ^ mask
}

func compressALaw(pcm int16) byte {
	mag := int(pcm) >> 3
	mask := byte(0xD5)

	if mag < 0 {
		mag = -mag - 1
		mask = 0x55
	}

	mag = min(mag, aLawClip)

	seg := segmentOf(mag, aLawSegmentEnd)
	if seg >= len(aLawSegmentEnd) {
		return 0x7F ^ mask
	}

	shift := seg
	if seg < 2 {
		shift = 1
	}

	return (byte(seg<<4) | byte((mag>>shift)&0x0F)) ^ mask
}
