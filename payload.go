package scd

import (
	"fmt"
	"io"
	"os"

	"github.com/cwbudde/scd/wav"
)

// Payload is the raw sample data that replaces one stream, along with the
// format details written to its stream header.
type Payload struct {
	// Data is padded to PayloadAlignment.
	Data       []byte
	NumChans   int
	SampleRate int
	// FormatTag is the WAVE format tag of the source.
	FormatTag uint16
	BitDepth  int
	// Source names where the payload came from, for diagnostics.
	Source string
}

// String implements the Stringer interface.
func (p *Payload) String() string {
	if p == nil {
		return "<nil>"
	}

	return fmt.Sprintf("%s: %s, %d channel(s), %d Hz, %d bytes",
		p.Source, wav.FormatName(p.FormatTag), p.NumChans, p.SampleRate, len(p.Data))
}

// LoadPayload reads the waveform file at path.
func LoadPayload(path string) (*Payload, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	return NewPayload(f, path)
}

// NewPayload extracts the sample data of a RIFF/WAVE or AIFF file. WAV data
// is taken as stored; AIFF samples are converted to little-endian PCM.
func NewPayload(r io.ReadSeeker, name string) (*Payload, error) {
	isAIFF, err := wav.IsAIFF(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	if isAIFF {
		return aiffPayload(r, name)
	}

	return wavPayload(r, name)
}

func wavPayload(r io.ReadSeeker, name string) (*Payload, error) {
	d := wav.NewDecoder(r)

	d.ReadInfo()

	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnsupportedWaveform, name, err)
	}

	if d.NumChans == 0 || d.SampleRate == 0 {
		return nil, fmt.Errorf("%w: %s: %d channel(s) at %d Hz",
			ErrUnsupportedWaveform, name, d.NumChans, d.SampleRate)
	}

	switch d.WavAudioFormat {
	case wav.FormatPCM, wav.FormatMSADPCM, wav.FormatIMAADPCM, wav.FormatIEEEFloat:
	default:
		return nil, fmt.Errorf("%w: %s: %s data", ErrUnsupportedWaveform, name, wav.FormatName(d.WavAudioFormat))
	}

	data, err := d.RawPCM()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnsupportedWaveform, name, err)
	}

	return &Payload{
		Data:       Align(data, PayloadAlignment),
		NumChans:   int(d.NumChans),
		SampleRate: int(d.SampleRate),
		FormatTag:  d.WavAudioFormat,
		BitDepth:   int(d.BitDepth),
		Source:     name,
	}, nil
}

func aiffPayload(r io.ReadSeeker, name string) (*Payload, error) {
	buf, err := wav.DecodeAIFF(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnsupportedWaveform, name, err)
	}

	data, err := wav.EncodeIntPCM(buf, buf.SourceBitDepth)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnsupportedWaveform, name, err)
	}

	return &Payload{
		Data:       Align(data, PayloadAlignment),
		NumChans:   buf.Format.NumChannels,
		SampleRate: buf.Format.SampleRate,
		FormatTag:  wav.FormatPCM,
		BitDepth:   buf.SourceBitDepth,
		Source:     name,
	}, nil
}

// PayloadFromStream returns the payload of an existing stream, so a stream
// can be carried over unchanged.
func PayloadFromStream(s *Stream) *Payload {
	if s == nil {
		return nil
	}

	p := &Payload{
		Data:       Align(s.Payload, PayloadAlignment),
		NumChans:   int(s.Header.ChannelCount),
		SampleRate: int(s.Header.SampleRate),
		Source:     fmt.Sprintf("stream at %#x", s.Offset),
	}

	switch s.Header.Codec {
	case CodecPCM16LE:
		p.FormatTag, p.BitDepth = wav.FormatPCM, 16
	case CodecMSADPCM:
		p.FormatTag, p.BitDepth = wav.FormatMSADPCM, 4
	}

	return p
}

// CheckPayloadFormat reports an ErrCodecMismatch when p doesn't hold data of
// the codec s declares. Streams of other codecs are not checked.
func CheckPayloadFormat(s *Stream, p *Payload) error {
	if s == nil || p == nil {
		return nil
	}

	switch s.Header.Codec {
	case CodecPCM16LE:
		if p.FormatTag != wav.FormatPCM || p.BitDepth != 16 {
			return fmt.Errorf("%w: %s stream replaced with %d bit %s from %s",
				ErrCodecMismatch, CodecName(s.Header.Codec), p.BitDepth, wav.FormatName(p.FormatTag), p.Source)
		}
	case CodecMSADPCM:
		if p.FormatTag != wav.FormatMSADPCM {
			return fmt.Errorf("%w: %s stream replaced with %s from %s",
				ErrCodecMismatch, CodecName(s.Header.Codec), wav.FormatName(p.FormatTag), p.Source)
		}
	}

	return nil
}
