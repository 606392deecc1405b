package wav

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/go-audio/audio"
)

const (
	maxPCMInt8Unsigned = 255
	scalePCMInt8       = 127.5
	scalePCMInt16      = 32768.0
	scalePCMInt24      = 8388608.0
	scalePCMInt32      = 2147483648.0
	floatPCM8Center    = 127.5
	floatPCM8Scale     = 127.5
	maxPCMInt16        = 32767
	maxPCMInt24        = 8388607
	maxPCMInt32        = 2147483647
)

func clampFloat32(value, min, max float32) float32 {
	if value < min {
		return min
	}

	if value > max {
		return max
	}

	return value
}

func normalizePCMInt(sample int, bitDepth int) float32 {
	switch bitDepth {
	case 8:
		return float32((float64(sample) - floatPCM8Center) / scalePCMInt8)
	case 16:
		return float32(float64(sample) / scalePCMInt16)
	case 24:
		return float32(float64(sample) / scalePCMInt24)
	case 32:
		return float32(float64(sample) / scalePCMInt32)
	default:
		return 0
	}
}

func float32ToPCMUint8(value float32) uint8 {
	value = clampFloat32(value, -1, 1)

	scaled := int(math.Round(float64((value + 1.0) * floatPCM8Scale)))
	if scaled < 0 {
		return 0
	}

	if scaled > maxPCMInt8Unsigned {
		return maxPCMInt8Unsigned
	}

	return uint8(scaled)
}

func clampScaledPCM(value float32, scale float64, max int64) int32 {
	sample := min(int64(math.Round(float64(value)*scale)), max)

	if sample < int64(-scale) {
		sample = int64(-scale)
	}

	return int32(sample)
}

func float32ToPCMInt32(value float32, bitDepth int) int32 {
	value = clampFloat32(value, -1, 1)

	switch bitDepth {
	case 16:
		return clampScaledPCM(value, scalePCMInt16, maxPCMInt16)
	case 24:
		return clampScaledPCM(value, scalePCMInt24, maxPCMInt24)
	case 32:
		return clampScaledPCM(value, scalePCMInt32, maxPCMInt32)
	default:
		return 0
	}
}

// EncodeIntPCM serializes interleaved signed integer samples as little-endian
// WAV PCM of the given bit depth. 8 bit output is unsigned, as WAV expects.
func EncodeIntPCM(buf *audio.IntBuffer, bitDepth int) ([]byte, error) {
	if buf == nil {
		return nil, nil
	}

	if bitDepth < 1 || bitDepth > 32 {
		return nil, fmt.Errorf("%w: %d", errUnhandledBitDepth, bitDepth)
	}

	width := bytesPerSample(bitDepth)
	out := make([]byte, len(buf.Data)*width)

	for i, v := range buf.Data {
		b := out[i*width : (i+1)*width]

		switch width {
		case 1:
			b[0] = uint8(int8(v) + math.MinInt8)
		case 2:
			binary.LittleEndian.PutUint16(b, uint16(int16(v)))
		case 3:
			copy(b, audio.Int32toInt24LEBytes(int32(v)))
		case 4:
			binary.LittleEndian.PutUint32(b, uint32(int32(v)))
		}
	}

	return out, nil
}
