package native

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/go-audio/audio"
)

// ErrInvalidRate is returned for a non-positive target or source rate.
var ErrInvalidRate = errors.New("invalid sample rate")

// downsampleAlpha is the coefficient of the one-pole low-pass applied to the
// source before downsampling.
const downsampleAlpha = 0.5

// Resampler converts WAV files to another sample rate with Catmull-Rom
// interpolation.
type Resampler struct{}

// Resample reads input, converts it to rate Hz and writes 16 bit PCM to
// output.
func (Resampler) Resample(ctx context.Context, input, output string, rate int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	buf, err := ReadBuffer(input)
	if err != nil {
		return err
	}

	resampled, err := ResampleBuffer(buf, rate)
	if err != nil {
		return fmt.Errorf("%s: %w", input, err)
	}

	return WriteWAV(output, resampled)
}

// ResampleBuffer returns buf converted to rate Hz. The channel count is kept
// and buf isn't modified.
func ResampleBuffer(buf *audio.Float32Buffer, rate int) (*audio.Float32Buffer, error) {
	if buf == nil || buf.Format == nil || buf.Format.NumChannels <= 0 {
		return nil, ErrEmptyAudio
	}

	srcRate := buf.Format.SampleRate
	if rate <= 0 || srcRate <= 0 {
		return nil, fmt.Errorf("%w: %d Hz to %d Hz", ErrInvalidRate, srcRate, rate)
	}

	channels := buf.Format.NumChannels
	out := &audio.Float32Buffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: rate},
		SourceBitDepth: buf.SourceBitDepth,
	}

	if srcRate == rate {
		out.Data = append([]float32(nil), buf.Data...)
		return out, nil
	}

	src := buf.Data
	ratio := float64(srcRate) / float64(rate)

	if ratio > 1 {
		src = lowPass(src, channels)
	}

	inFrames := len(src) / channels
	outFrames := int(math.Round(float64(inFrames) / ratio))
	out.Data = make([]float32, outFrames*channels)

	frame := func(i, c int) float32 {
		i = min(max(i, 0), inFrames-1)
		return src[i*channels+c]
	}

	for j := range outFrames {
		pos := float64(j) * ratio
		i := int(pos)
		x := float32(pos - float64(i))

		for c := range channels {
			v := cubicInterpolate(frame(i-1, c), frame(i, c), frame(i+1, c), frame(i+2, c), x)
			out.Data[j*channels+c] = min(max(v, -1), 1)
		}
	}

	return out, nil
}

// cubicInterpolate evaluates the Catmull-Rom spline through y0..y3 at x,
// the fractional position between y1 and y2.
func cubicInterpolate(y0, y1, y2, y3, x float32) float32 {
	a0 := -0.5*y0 + 1.5*y1 - 1.5*y2 + 0.5*y3
	a1 := y0 - 2.5*y1 + 2*y2 - 0.5*y3
	a2 := -0.5*y0 + 0.5*y2
	a3 := y1

	return a0*x*x*x + a1*x*x + a2*x + a3
}

// lowPass runs a one-pole filter over each channel of the interleaved
// samples, seeded with the first frame.
func lowPass(samples []float32, channels int) []float32 {
	out := make([]float32, len(samples))
	if len(samples) < channels {
		return out
	}

	state := make([]float32, channels)
	copy(state, samples[:channels])

	for i, v := range samples {
		c := i % channels
		state[c] = downsampleAlpha*v + (1-downsampleAlpha)*state[c]
		out[i] = state[c]
	}

	return out
}
