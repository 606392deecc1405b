package wav

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/riff"
)

var (
	errNilBuffer               = errors.New("can't add a nil buffer")
	errAlreadyWroteHdr         = errors.New("already wrote header")
	errNilWriter               = errors.New("can't write to a nil writer")
	errUnsupportedFrameBitSize = errors.New("can't add frames of bit size")
	errRawNeedsFmtChunk        = errors.New("raw sample data needs a fmt chunk")
	errMixedWrites             = errors.New("can't mix PCM buffers and raw sample data")
)

// Encoder encodes audio data into a wav container.
type Encoder struct {
	w   io.WriteSeeker
	buf *bytes.Buffer

	SampleRate int
	BitDepth   int
	NumChans   int

	// A number indicating the WAVE format category of the file. PCM = 1,
	// values other than 1 indicate some form of compression.
	WavAudioFormat int
	// FmtChunk optionally controls fmt chunk serialization. Raw writes use
	// it verbatim.
	FmtChunk *FmtChunk
	// UnknownChunks are written ahead of the data chunk.
	UnknownChunks []RawChunk
	// CompressedSamples is written as a fact chunk when non-zero. Compressed
	// formats such as MS-ADPCM need it.
	CompressedSamples uint32

	WrittenBytes    int
	dataBytes       int
	raw             bool
	pcmChunkStarted bool
	pcmChunkSizePos int
	wroteHeader     bool
}

// NewEncoder creates a new encoder writing PCM buffers.
func NewEncoder(w io.WriteSeeker, sampleRate, bitDepth, numChans, audioFormat int) *Encoder {
	return &Encoder{
		w:              w,
		buf:            &bytes.Buffer{},
		SampleRate:     sampleRate,
		BitDepth:       bitDepth,
		NumChans:       numChans,
		WavAudioFormat: audioFormat,
	}
}

// NewRawEncoder creates an encoder for sample data that is already encoded,
// such as MS-ADPCM blocks, described by fmtChunk.
func NewRawEncoder(w io.WriteSeeker, fmtChunk *FmtChunk) *Encoder {
	e := &Encoder{w: w, buf: &bytes.Buffer{}, raw: true}
	if fmtChunk != nil {
		e.FmtChunk = fmtChunk.Clone()
		e.SampleRate = int(fmtChunk.SampleRate)
		e.BitDepth = int(fmtChunk.BitsPerSample)
		e.NumChans = int(fmtChunk.NumChannels)
		e.WavAudioFormat = int(fmtChunk.FormatTag)
	}

	return e
}

// NewEncoderFromDecoder creates an encoder initialized from decoder settings.
// It carries format details and preserved unknown chunks for round-trip flows.
func NewEncoderFromDecoder(w io.WriteSeeker, dec *Decoder) *Encoder {
	if dec == nil {
		return NewEncoder(w, 0, 0, 0, 0)
	}

	enc := NewEncoder(w, int(dec.SampleRate), int(dec.BitDepth), int(dec.NumChans), int(dec.WavAudioFormat))
	if dec.FmtChunk != nil {
		enc.FmtChunk = dec.FmtChunk.Clone()
	}

	enc.UnknownChunks = cloneRawChunks(dec.UnknownChunks)
	enc.CompressedSamples = dec.CompressedSamples

	return enc
}

// AddLE serializes and adds the passed value using little endian.
func (e *Encoder) AddLE(src any) error {
	e.WrittenBytes += binary.Size(src)

	err := binary.Write(e.w, binary.LittleEndian, src)
	if err != nil {
		return fmt.Errorf("failed to write little endian: %w", err)
	}

	return nil
}

// AddBE serializes and adds the passed value using big endian.
func (e *Encoder) AddBE(src any) error {
	e.WrittenBytes += binary.Size(src)

	err := binary.Write(e.w, binary.BigEndian, src)
	if err != nil {
		return fmt.Errorf("failed to write big endian: %w", err)
	}

	return nil
}

// Write encodes and writes the passed buffer to the underlying writer.
// Don't forget to Close() the encoder or the file won't be valid.
func (e *Encoder) Write(buf *audio.Float32Buffer) error {
	if e.raw {
		return errMixedWrites
	}

	if buf == nil {
		return errNilBuffer
	}

	if err := e.startData(); err != nil {
		return err
	}

	audioFormat := e.effectiveAudioFormat()

	for _, val := range buf.Data {
		var err error

		if audioFormat == FormatIEEEFloat {
			switch e.BitDepth {
			case 32:
				err = binary.Write(e.buf, binary.LittleEndian, clampFloat32(val, -1, 1))
			case 64:
				err = binary.Write(e.buf, binary.LittleEndian, float64(clampFloat32(val, -1, 1)))
			default:
				return fmt.Errorf("%w: %d bit float", errUnhandledBitDepth, e.BitDepth)
			}
		} else {
			if _, compress, ok := companding(audioFormat); ok {
				err = e.buf.WriteByte(compress(int16(float32ToPCMInt32(val, 16))))
				if err != nil {
					return fmt.Errorf("failed to write sample: %w", err)
				}

				continue
			}

			if audioFormat != FormatPCM {
				return fmt.Errorf("%w: %s", errUnsupportedWavFormat, FormatName(audioFormat))
			}

			switch e.BitDepth {
			case 8:
				err = e.buf.WriteByte(float32ToPCMUint8(val))
			case 16:
				err = binary.Write(e.buf, binary.LittleEndian, int16(float32ToPCMInt32(val, 16)))
			case 24:
				_, err = e.buf.Write(audio.Int32toInt24LEBytes(float32ToPCMInt32(val, 24)))
			case 32:
				err = binary.Write(e.buf, binary.LittleEndian, float32ToPCMInt32(val, 32))
			default:
				return fmt.Errorf("%w: %d", errUnsupportedFrameBitSize, e.BitDepth)
			}
		}

		if err != nil {
			return fmt.Errorf("failed to write sample: %w", err)
		}
	}

	return e.flushBuffer()
}

// WriteRaw appends already encoded sample data to the data chunk.
func (e *Encoder) WriteRaw(data []byte) error {
	if !e.raw {
		return errMixedWrites
	}

	if e.FmtChunk == nil {
		return errRawNeedsFmtChunk
	}

	if err := e.startData(); err != nil {
		return err
	}

	e.buf.Write(data)

	return e.flushBuffer()
}

func (e *Encoder) flushBuffer() error {
	n, err := e.w.Write(e.buf.Bytes())
	e.WrittenBytes += n
	e.dataBytes += n

	e.buf.Reset()

	if err != nil {
		return fmt.Errorf("failed to write buffer: %w", err)
	}

	return nil
}

func (e *Encoder) startData() error {
	if !e.wroteHeader {
		err := e.writeHeader()
		if err != nil {
			return err
		}
	}

	if e.pcmChunkStarted {
		return nil
	}

	if e.CompressedSamples > 0 {
		if err := e.writeRawChunk(factChunk(e.CompressedSamples)); err != nil {
			return fmt.Errorf("error encoding fact chunk %w", err)
		}
	}

	for _, chunk := range e.UnknownChunks {
		if err := e.writeRawChunk(chunk); err != nil {
			return fmt.Errorf("error encoding unknown chunks %w", err)
		}
	}

	err := e.AddLE(riff.DataFormatID)
	if err != nil {
		return fmt.Errorf("error encoding sound header %w", err)
	}

	e.pcmChunkStarted = true

	// write a temporary chunksize
	e.pcmChunkSizePos = e.WrittenBytes

	err = e.AddLE(uint32(4294967295))
	if err != nil {
		return fmt.Errorf("%w when writing wav data chunk size header", err)
	}

	return nil
}

func (e *Encoder) writeHeader() error {
	if e.wroteHeader {
		return errAlreadyWroteHdr
	}

	if e.w == nil {
		return errNilWriter
	}

	e.wroteHeader = true

	// riff ID
	err := e.AddLE(riff.RiffID)
	if err != nil {
		return err
	}
	// file size uint32, to update later on.
	err = e.AddLE(uint32(4294967295))
	if err != nil {
		return err
	}
	// wave headers
	err = e.AddLE(riff.WavFormatID)
	if err != nil {
		return err
	}

	if e.raw && e.FmtChunk == nil {
		return errRawNeedsFmtChunk
	}

	return e.writeRawChunk(RawChunk{ID: riff.FmtID, Data: e.buildFmtChunkForWrite().Bytes()})
}

func (e *Encoder) effectiveAudioFormat() uint16 {
	if e.FmtChunk != nil {
		return e.FmtChunk.EffectiveFormatTag()
	}

	return uint16(e.WavAudioFormat)
}

func (e *Encoder) buildFmtChunkForWrite() *FmtChunk {
	if e.raw {
		return e.FmtChunk.Clone()
	}

	blockAlign := e.NumChans * bytesPerSample(e.BitDepth)

	chunk := &FmtChunk{
		FormatTag:      uint16(e.WavAudioFormat),
		NumChannels:    uint16(e.NumChans),
		SampleRate:     uint32(e.SampleRate),
		AvgBytesPerSec: uint32(e.SampleRate * blockAlign),
		BlockAlign:     uint16(blockAlign),
		BitsPerSample:  uint16(e.BitDepth),
	}
	if e.FmtChunk != nil {
		chunk = e.FmtChunk.Clone()
		chunk.NumChannels = uint16(e.NumChans)
		chunk.SampleRate = uint32(e.SampleRate)
		chunk.BlockAlign = uint16(blockAlign)
		chunk.BitsPerSample = uint16(e.BitDepth)
		chunk.AvgBytesPerSec = uint32(e.SampleRate * blockAlign)
	}

	if chunk.FormatTag == FormatExtensible && chunk.Extensible == nil {
		chunk.Extensible = &FmtExtensible{
			ValidBitsPerSample: uint16(e.BitDepth),
			SubFormat:          makeSubFormatGUID(e.effectiveAudioFormat()),
		}
	}

	return chunk
}

func (e *Encoder) writeRawChunk(chunk RawChunk) error {
	size := uint32(len(chunk.Data))

	err := e.AddBE(chunk.ID)
	if err != nil {
		return fmt.Errorf("failed to write raw chunk id %q: %w", chunk.ID, err)
	}

	err = e.AddLE(size)
	if err != nil {
		return fmt.Errorf("failed to write raw chunk size %q: %w", chunk.ID, err)
	}

	if len(chunk.Data) > 0 {
		n, err := e.w.Write(chunk.Data)
		e.WrittenBytes += n

		if err != nil {
			return fmt.Errorf("failed to write raw chunk payload %q: %w", chunk.ID, err)
		}
	}

	if pad := chunk.paddedLen() - len(chunk.Data); pad > 0 {
		n, err := e.w.Write(make([]byte, pad))
		e.WrittenBytes += n

		if err != nil {
			return fmt.Errorf("failed to write raw chunk padding %q: %w", chunk.ID, err)
		}
	}

	return nil
}

// Close flushes the content to disk, make sure the headers are up to date
// Note that the underlying writer is NOT being closed.
func (e *Encoder) Close() error {
	if e == nil || e.w == nil {
		return nil
	}

	// an encoder closed without data still produces a valid, empty file
	if err := e.startData(); err != nil {
		return err
	}

	if e.dataBytes%2 == 1 {
		n, err := e.w.Write([]byte{0})
		e.WrittenBytes += n

		if err != nil {
			return fmt.Errorf("failed to write data chunk padding: %w", err)
		}
	}

	// go back and write total size in header
	if _, err := e.w.Seek(4, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to file size position: %w", err)
	}

	err := binary.Write(e.w, binary.LittleEndian, uint32(e.WrittenBytes)-8)
	if err != nil {
		return fmt.Errorf("%w when writing the total written bytes", err)
	}

	// rewrite the audio chunk length header
	if _, err := e.w.Seek(int64(e.pcmChunkSizePos), io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to PCM chunk size position: %w", err)
	}

	err = binary.Write(e.w, binary.LittleEndian, uint32(e.dataBytes))
	if err != nil {
		return fmt.Errorf("%w when writing wav data chunk size header", err)
	}

	// jump back to the end of the file.
	if _, err := e.w.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("failed to seek to end of file: %w", err)
	}

	if f, ok := e.w.(*os.File); ok {
		return f.Sync()
	}

	return nil
}
