// Package native decodes and resamples source audio in-process, for inputs
// that don't need the external tools.
package native

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-audio/audio"
	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"

	"github.com/cwbudde/scd/wav"
)

// OutputBitDepth is the bit depth of the PCM files the package writes.
const OutputBitDepth = 16

// mp3Channels is the channel count of go-mp3 output, which is always stereo.
const mp3Channels = 2

var (
	// ErrUnsupportedFormat is returned for inputs the package can't decode.
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	// ErrEmptyAudio is returned when an input decodes to no samples.
	ErrEmptyAudio = errors.New("no audio samples decoded")
)

// Extensions lists the file extensions the package decodes.
var Extensions = []string{".ogg", ".mp3", ".wav", ".aif", ".aiff"}

// Supported reports whether path has an extension the package decodes.
func Supported(path string) bool {
	return slices.Contains(Extensions, strings.ToLower(filepath.Ext(path)))
}

// Decoder turns a source file into one 16 bit PCM WAV file.
type Decoder struct{}

// Decode writes input as <workDir>/<name>.wav and returns its path.
func (Decoder) Decode(ctx context.Context, input, workDir string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	buf, err := ReadBuffer(input)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	output := filepath.Join(workDir, name+".wav")

	if err := WriteWAV(output, buf); err != nil {
		return nil, err
	}

	return []string{output}, nil
}

// ReadBuffer decodes the audio file at path into normalized float samples.
// The decoder is picked from the file extension.
func ReadBuffer(path string) (*audio.Float32Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var buf *audio.Float32Buffer

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".ogg":
		buf, err = decodeVorbis(f)
	case ".mp3":
		buf, err = decodeMP3(f)
	case ".wav":
		buf, err = wav.NewDecoder(f).FullPCMBuffer()
	case ".aif", ".aiff":
		var ibuf *audio.IntBuffer

		ibuf, err = wav.DecodeAIFF(f)
		buf = wav.IntToFloat32Buffer(ibuf)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnsupportedFormat, path, err)
	}

	if buf == nil || len(buf.Data) == 0 || buf.Format == nil || buf.Format.NumChannels == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyAudio, path)
	}

	return buf, nil
}

func decodeVorbis(r io.Reader) (*audio.Float32Buffer, error) {
	data, format, err := oggvorbis.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode vorbis stream: %w", err)
	}

	return &audio.Float32Buffer{
		Data:           data,
		Format:         &audio.Format{NumChannels: format.Channels, SampleRate: format.SampleRate},
		SourceBitDepth: OutputBitDepth,
	}, nil
}

func decodeMP3(r io.Reader) (*audio.Float32Buffer, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode mp3 stream: %w", err)
	}

	// go-mp3 produces 16 bit little-endian interleaved stereo
	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("failed to decode mp3 stream: %w", err)
	}

	buf := &audio.Float32Buffer{
		Data:           make([]float32, len(raw)/2),
		Format:         &audio.Format{NumChannels: mp3Channels, SampleRate: dec.SampleRate()},
		SourceBitDepth: OutputBitDepth,
	}

	for i := range buf.Data {
		buf.Data[i] = float32(int16(uint16(raw[2*i])|uint16(raw[2*i+1])<<8)) / 32768.0
	}

	return buf, nil
}

// WriteWAV stores buf at path as 16 bit PCM.
func WriteWAV(path string, buf *audio.Float32Buffer) error {
	if buf == nil || buf.Format == nil {
		return fmt.Errorf("%w: %s", ErrEmptyAudio, path)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, buf.Format.SampleRate, OutputBitDepth, buf.Format.NumChannels, int(wav.FormatPCM))
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to finish %s: %w", path, err)
	}

	return nil
}
