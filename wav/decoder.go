package wav

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/riff"
)

// Decoder handles the decoding of wav files.
type Decoder struct {
	r      io.ReadSeeker
	parser *riff.Parser

	NumChans   uint16
	BitDepth   uint16
	SampleRate uint32

	AvgBytesPerSec uint32
	// WavAudioFormat is the effective format tag (the sub format for
	// WAVE_FORMAT_EXTENSIBLE files).
	WavAudioFormat uint16
	FmtChunk       *FmtChunk

	// PCMSize is the declared size of the data chunk in bytes.
	PCMSize int
	// PCMChunk gives limited access to the data chunk content.
	PCMChunk *riff.Chunk
	// UnknownChunks stores the chunks found before the data chunk that the
	// decoder doesn't interpret.
	UnknownChunks []RawChunk
	// CompressedSamples stores the sample count from the fact chunk for
	// compressed formats.
	CompressedSamples uint32

	err             error
	headersRead     bool
	pcmDataAccessed bool
}

// NewDecoder creates a decoder for the passed wav reader.
// Note that the reader doesn't get rewinded as the container is processed.
func NewDecoder(r io.ReadSeeker) *Decoder {
	return &Decoder{
		r:      r,
		parser: riff.New(r),
	}
}

// Err returns the first non-EOF error that was encountered by the Decoder.
func (d *Decoder) Err() error {
	if errors.Is(d.err, io.EOF) {
		return nil
	}

	return d.err
}

// ReadInfo reads the underlying reader up to the start of the data chunk.
// This method is safe to call multiple times.
func (d *Decoder) ReadInfo() {
	d.err = d.readHeaders()
}

// IsValidFile verifies that the file is valid/readable.
func (d *Decoder) IsValidFile() bool {
	d.ReadInfo()
	if d.err != nil {
		return false
	}

	if d.NumChans < 1 || d.SampleRate == 0 {
		return false
	}

	if d.BitDepth < 8 && !IsADPCM(d.WavAudioFormat) {
		return false
	}

	return d.PCMChunk != nil
}

// Rewind moves the decoder back to the beginning of the file so it can be
// read again.
func (d *Decoder) Rewind() error {
	_, err := d.r.Seek(0, io.SeekStart)
	if err != nil {
		return fmt.Errorf("failed to seek back to the start %w", err)
	}
	// the riff parser is read only and can't be seeked
	d.parser = riff.New(d.r)
	d.err = nil
	d.headersRead = false
	d.pcmDataAccessed = false
	d.PCMChunk = nil
	d.PCMSize = 0
	d.NumChans = 0
	d.BitDepth = 0
	d.SampleRate = 0
	d.AvgBytesPerSec = 0
	d.WavAudioFormat = 0
	d.FmtChunk = nil
	d.UnknownChunks = nil
	d.CompressedSamples = 0

	return d.readHeaders()
}

// FormatChunk returns a copy of the parsed fmt chunk, if available.
func (d *Decoder) FormatChunk() *FmtChunk {
	if d == nil || d.FmtChunk == nil {
		return nil
	}

	return d.FmtChunk.Clone()
}

// RawChunks returns a copy of preserved non-core chunks.
func (d *Decoder) RawChunks() []RawChunk {
	if d == nil {
		return nil
	}

	return cloneRawChunks(d.UnknownChunks)
}

// Format returns the audio format of the decoded content.
func (d *Decoder) Format() *audio.Format {
	if d == nil {
		return nil
	}

	return &audio.Format{
		NumChannels: int(d.NumChans),
		SampleRate:  int(d.SampleRate),
	}
}

// Duration returns the time duration of the data chunk.
func (d *Decoder) Duration() (time.Duration, error) {
	if err := d.readHeaders(); err != nil {
		return 0, err
	}

	if d.AvgBytesPerSec == 0 {
		return 0, ErrDurationUnknown
	}

	return time.Duration(float64(d.PCMSize) / float64(d.AvgBytesPerSec) * float64(time.Second)), nil
}

// RawPCM returns the content of the data chunk exactly as stored, without
// the RIFF framing. The data chunk can only be consumed once per Rewind.
func (d *Decoder) RawPCM() ([]byte, error) {
	if err := d.readHeaders(); err != nil {
		return nil, err
	}

	if d.PCMChunk == nil || d.pcmDataAccessed {
		return nil, ErrPCMDataNotFound
	}

	d.pcmDataAccessed = true

	// the buffer grows with what the input really holds, never with the
	// declared size
	data, err := io.ReadAll(d.PCMChunk)
	if err != nil {
		return nil, fmt.Errorf("failed to read data chunk: %w", err)
	}

	if uint32(d.PCMSize) == UnknownDataSize {
		d.PCMSize = len(data)
	}

	if len(data) < d.PCMSize {
		return nil, fmt.Errorf("%w: read %d of %d bytes: %w", ErrTruncatedData, len(data), d.PCMSize, io.ErrUnexpectedEOF)
	}

	return data, nil
}

// FullPCMBuffer decodes the whole data chunk into normalized float samples.
// PCM integer, IEEE float and G.711 content can be decoded, ADPCM can't.
func (d *Decoder) FullPCMBuffer() (*audio.Float32Buffer, error) {
	if err := d.readHeaders(); err != nil {
		return nil, err
	}

	decodeF, err := sampleDecodeFloat32Func(int(d.BitDepth), d.WavAudioFormat)
	if err != nil {
		return nil, err
	}

	raw, err := d.RawPCM()
	if err != nil {
		return nil, err
	}

	width := bytesPerSample(int(d.BitDepth))
	buf := &audio.Float32Buffer{
		Data:           make([]float32, len(raw)/width),
		Format:         d.Format(),
		SourceBitDepth: int(d.BitDepth),
	}

	for i := range buf.Data {
		buf.Data[i] = decodeF(raw[i*width : (i+1)*width])
	}

	return buf, nil
}

// String implements the Stringer interface.
func (d *Decoder) String() string {
	if d == nil || d.FmtChunk == nil {
		return "<unread wav>"
	}

	return fmt.Sprintf("%s, %d channel(s), %d Hz, %d bit, %d bytes of data",
		FormatName(d.WavAudioFormat), d.NumChans, d.SampleRate, d.BitDepth, d.PCMSize)
}

// readHeaders walks the chunks up to the data chunk. It is safe to call
// multiple times.
func (d *Decoder) readHeaders() error {
	if d == nil {
		return ErrNotWAV
	}

	if d.headersRead {
		return d.err
	}

	d.headersRead = true
	d.err = d.walkChunks()

	return d.err
}

func (d *Decoder) walkChunks() error {
	id, size, err := d.parser.IDnSize()
	if err != nil {
		return fmt.Errorf("%w: failed to read chunk ID and size: %w", ErrNotWAV, err)
	}

	if id != riff.RiffID {
		return fmt.Errorf("%w: %q - %w", ErrNotWAV, id, riff.ErrFmtNotSupported)
	}

	d.parser.ID = id
	d.parser.Size = size

	err = binary.Read(d.r, binary.BigEndian, &d.parser.Format)
	if err != nil {
		return fmt.Errorf("%w: failed to read format: %w", ErrNotWAV, err)
	}

	if d.parser.Format != riff.WavFormatID {
		return fmt.Errorf("%w: RIFF form %q", ErrNotWAV, d.parser.Format)
	}

	for {
		id, size, err := d.parser.IDnSize()
		if err != nil {
			if d.FmtChunk == nil {
				return fmt.Errorf("%w: %w", ErrFmtChunkNotFound, err)
			}

			return fmt.Errorf("%w: %w", ErrPCMDataNotFound, err)
		}

		if id == riff.DataFormatID {
			if d.FmtChunk == nil {
				return ErrFmtChunkNotFound
			}

			d.PCMSize = int(size)
			d.PCMChunk = &riff.Chunk{
				ID:   id,
				Size: int(size),
				R:    io.LimitReader(d.r, int64(size)),
			}

			return nil
		}

		body, err := d.readChunkBody(id, size)
		if err != nil {
			return err
		}

		switch id {
		case riff.FmtID:
			err = d.processFmtChunk(body)
			if err != nil {
				return err
			}
		case CIDFact:
			if len(body) >= 4 {
				d.CompressedSamples = binary.LittleEndian.Uint32(body[:4])
			}
		default:
			d.UnknownChunks = append(d.UnknownChunks, RawChunk{ID: id, Data: body})
		}
	}
}

// readChunkBody reads a chunk payload and skips the RIFF word alignment
// padding byte of odd sized chunks.
func (d *Decoder) readChunkBody(id [4]byte, size uint32) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(d.r, int64(size)))
	if err != nil {
		return nil, fmt.Errorf("failed to read %q chunk: %w", id, err)
	}

	if len(body) < int(size) {
		return nil, fmt.Errorf("failed to read %q chunk: got %d of %d bytes: %w", id, len(body), size, io.ErrUnexpectedEOF)
	}

	if size%2 == 1 {
		_, err = io.CopyN(io.Discard, d.r, 1)
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to skip %q chunk padding: %w", id, err)
		}
	}

	return body, nil
}

func (d *Decoder) processFmtChunk(body []byte) error {
	fmtChunk, err := ParseFmtChunk(body)
	if err != nil {
		return fmt.Errorf("failed to decode fmt chunk: %w", err)
	}

	d.FmtChunk = fmtChunk
	d.NumChans = fmtChunk.NumChannels
	d.BitDepth = fmtChunk.BitsPerSample
	d.SampleRate = fmtChunk.SampleRate
	d.AvgBytesPerSec = fmtChunk.AvgBytesPerSec
	d.WavAudioFormat = fmtChunk.EffectiveFormatTag()

	d.parser.NumChannels = fmtChunk.NumChannels
	d.parser.SampleRate = fmtChunk.SampleRate
	d.parser.AvgBytesPerSec = fmtChunk.AvgBytesPerSec
	d.parser.BlockAlign = fmtChunk.BlockAlign
	d.parser.BitsPerSample = fmtChunk.BitsPerSample
	d.parser.WavAudioFormat = d.WavAudioFormat

	return nil
}

// sampleDecodeFloat32Func returns a function converting one stored sample
// into a normalized float32 value.
// Note that 8bit samples are unsigned, all other integer values are signed.
// G.711 codes expand to 16 bit linear values.
func sampleDecodeFloat32Func(bitsPerSample int, wavFormat uint16) (func([]byte) float32, error) {
	switch wavFormat {
	case FormatIEEEFloat:
		switch bitsPerSample {
		case 32:
			return func(b []byte) float32 {
				return clampFloat32(math.Float32frombits(binary.LittleEndian.Uint32(b)), -1, 1)
			}, nil
		case 64:
			return func(b []byte) float32 {
				return clampFloat32(float32(math.Float64frombits(binary.LittleEndian.Uint64(b))), -1, 1)
			}, nil
		default:
			return nil, fmt.Errorf("%w: %d bit float", errUnhandledBitDepth, bitsPerSample)
		}
	case FormatALaw, FormatMuLaw:
		expand, _, _ := companding(wavFormat)

		return func(b []byte) float32 {
			return normalizePCMInt(int(expand(b[0])), 16)
		}, nil
	case FormatPCM:
	case FormatMSADPCM, FormatIMAADPCM:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCompressedFormat, FormatName(wavFormat))
	default:
		return nil, fmt.Errorf("%w: %s", errUnsupportedWavFormat, FormatName(wavFormat))
	}

	switch {
	case bitsPerSample == 8:
		return func(b []byte) float32 {
			return normalizePCMInt(int(b[0]), 8)
		}, nil
	case bitsPerSample > 8 && bitsPerSample <= 16:
		return func(b []byte) float32 {
			return normalizePCMInt(int(int16(binary.LittleEndian.Uint16(b))), 16)
		}, nil
	case bitsPerSample > 16 && bitsPerSample <= 24:
		return func(b []byte) float32 {
			return normalizePCMInt(int(audio.Int24LETo32(b)), 24)
		}, nil
	case bitsPerSample > 24 && bitsPerSample <= 32:
		return func(b []byte) float32 {
			return normalizePCMInt(int(int32(binary.LittleEndian.Uint32(b))), 32)
		}, nil
	default:
		return nil, fmt.Errorf("%w: %d", errUnhandledBitDepth, bitsPerSample)
	}
}
