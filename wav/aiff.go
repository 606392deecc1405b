package wav

import (
	"bytes"
	"fmt"
	"io"

	"github.com/go-audio/aiff"
	"github.com/go-audio/audio"
)

// IsAIFF reports whether the reader starts with an IFF FORM header. The
// reader is rewound to where it was.
func IsAIFF(r io.ReadSeeker) (bool, error) {
	pos, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return false, fmt.Errorf("failed to seek: %w", err)
	}

	var head [4]byte

	_, err = io.ReadFull(r, head[:])
	if _, seekErr := r.Seek(pos, io.SeekStart); seekErr != nil {
		return false, fmt.Errorf("failed to seek back: %w", seekErr)
	}

	if err != nil {
		// too short to be anything
		return false, nil
	}

	return bytes.Equal(head[:], CIDForm[:]), nil
}

// DecodeAIFF reads all the PCM samples of an AIFF file. The returned buffer
// carries the channel count, sample rate and source bit depth.
func DecodeAIFF(r io.ReadSeeker) (*audio.IntBuffer, error) {
	dec := aiff.NewDecoder(r)

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotAIFF, err)
	}

	if buf == nil || dec.NumChans == 0 || dec.SampleRate == 0 {
		return nil, fmt.Errorf("%w: missing COMM chunk", ErrNotAIFF)
	}

	buf.Format = &audio.Format{
		NumChannels: int(dec.NumChans),
		SampleRate:  int(dec.SampleRate),
	}
	buf.SourceBitDepth = int(dec.BitDepth)

	return buf, nil
}

// IntToFloat32Buffer converts a decoded integer buffer into normalized float
// samples.
func IntToFloat32Buffer(buf *audio.IntBuffer) *audio.Float32Buffer {
	if buf == nil {
		return nil
	}

	out := &audio.Float32Buffer{
		Data:           make([]float32, len(buf.Data)),
		Format:         buf.Format,
		SourceBitDepth: buf.SourceBitDepth,
	}

	depth := bytesPerSample(buf.SourceBitDepth) * 8
	for i, v := range buf.Data {
		if depth == 8 {
			// AIFF 8 bit samples are signed
			out.Data[i] = float32(v) / 128
			continue
		}

		out.Data[i] = normalizePCMInt(v, depth)
	}

	return out
}
