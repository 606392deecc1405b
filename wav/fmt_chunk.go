package wav

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	fmtChunkBaseSize      = 16
	fmtExtensibleSize     = 22
	ksSubFormatGUIDTail0  = 0x00
	ksSubFormatGUIDTail1  = 0x00
	ksSubFormatGUIDTail2  = 0x10
	ksSubFormatGUIDTail3  = 0x00
	ksSubFormatGUIDTail4  = 0x80
	ksSubFormatGUIDTail5  = 0x00
	ksSubFormatGUIDTail6  = 0x00
	ksSubFormatGUIDTail7  = 0xAA
	ksSubFormatGUIDTail8  = 0x00
	ksSubFormatGUIDTail9  = 0x38
	ksSubFormatGUIDTail10 = 0x9B
	ksSubFormatGUIDTail11 = 0x71
)

var errShortFmtChunk = errors.New("fmt chunk is too short")

// FmtChunk stores the parsed WAV fmt chunk, including extensible metadata.
// For ADPCM formats ExtraData holds the codec specific fields (samples per
// block, coefficient table).
type FmtChunk struct {
	FormatTag      uint16
	NumChannels    uint16
	SampleRate     uint32
	AvgBytesPerSec uint32
	BlockAlign     uint16
	BitsPerSample  uint16
	ExtraData      []byte
	Extensible     *FmtExtensible
}

// FmtExtensible stores WAVE_FORMAT_EXTENSIBLE extra fields.
type FmtExtensible struct {
	ValidBitsPerSample uint16
	ChannelMask        uint32
	SubFormat          [16]byte
	ExtraData          []byte
}

// ParseFmtChunk decodes the body of a fmt chunk. The same layout
// (WAVEFORMATEX) is stored as extra data by MS-ADPCM SCD streams.
func ParseFmtChunk(b []byte) (*FmtChunk, error) {
	if len(b) < fmtChunkBaseSize {
		return nil, fmt.Errorf("%w: %d bytes", errShortFmtChunk, len(b))
	}

	f := &FmtChunk{
		FormatTag:      binary.LittleEndian.Uint16(b[0:2]),
		NumChannels:    binary.LittleEndian.Uint16(b[2:4]),
		SampleRate:     binary.LittleEndian.Uint32(b[4:8]),
		AvgBytesPerSec: binary.LittleEndian.Uint32(b[8:12]),
		BlockAlign:     binary.LittleEndian.Uint16(b[12:14]),
		BitsPerSample:  binary.LittleEndian.Uint16(b[14:16]),
	}

	if len(b) < fmtChunkBaseSize+2 {
		return f, nil
	}

	extraSize := int(binary.LittleEndian.Uint16(b[16:18]))
	extra := b[18:]
	// some writers declare more extension bytes than they store
	if extraSize > len(extra) {
		extraSize = len(extra)
	}

	f.ExtraData = append([]byte(nil), extra[:extraSize]...)

	if f.FormatTag != FormatExtensible || extraSize < fmtExtensibleSize {
		return f, nil
	}

	ext := &FmtExtensible{
		ValidBitsPerSample: binary.LittleEndian.Uint16(f.ExtraData[0:2]),
		ChannelMask:        binary.LittleEndian.Uint32(f.ExtraData[2:6]),
	}
	copy(ext.SubFormat[:], f.ExtraData[6:22])

	if len(f.ExtraData) > fmtExtensibleSize {
		ext.ExtraData = append(ext.ExtraData, f.ExtraData[22:]...)
	}

	f.Extensible = ext

	return f, nil
}

// Bytes serializes the chunk body. The cbSize field and the extension are
// only written when the chunk has extension data.
func (f *FmtChunk) Bytes() []byte {
	if f == nil {
		return nil
	}

	extra := f.ExtraData
	if f.FormatTag == FormatExtensible && f.Extensible != nil {
		extra = make([]byte, fmtExtensibleSize, fmtExtensibleSize+len(f.Extensible.ExtraData))
		binary.LittleEndian.PutUint16(extra[0:2], f.Extensible.ValidBitsPerSample)
		binary.LittleEndian.PutUint32(extra[2:6], f.Extensible.ChannelMask)
		copy(extra[6:22], f.Extensible.SubFormat[:])
		extra = append(extra, f.Extensible.ExtraData...)
	}

	size := fmtChunkBaseSize
	if len(extra) > 0 {
		size += 2 + len(extra)
	}

	b := make([]byte, size)
	binary.LittleEndian.PutUint16(b[0:2], f.FormatTag)
	binary.LittleEndian.PutUint16(b[2:4], f.NumChannels)
	binary.LittleEndian.PutUint32(b[4:8], f.SampleRate)
	binary.LittleEndian.PutUint32(b[8:12], f.AvgBytesPerSec)
	binary.LittleEndian.PutUint16(b[12:14], f.BlockAlign)
	binary.LittleEndian.PutUint16(b[14:16], f.BitsPerSample)

	if len(extra) > 0 {
		binary.LittleEndian.PutUint16(b[16:18], uint16(len(extra)))
		copy(b[18:], extra)
	}

	return b
}

func (f *FmtChunk) Clone() *FmtChunk {
	if f == nil {
		return nil
	}

	out := *f

	out.ExtraData = append([]byte(nil), f.ExtraData...)
	if f.Extensible != nil {
		ext := *f.Extensible
		ext.ExtraData = append([]byte(nil), f.Extensible.ExtraData...)
		out.Extensible = &ext
	}

	return &out
}

// EffectiveFormatTag returns the format tag, resolving the sub format of
// WAVE_FORMAT_EXTENSIBLE chunks.
func (f *FmtChunk) EffectiveFormatTag() uint16 {
	if f == nil {
		return 0
	}

	if f.FormatTag == FormatExtensible && f.Extensible != nil {
		return binary.LittleEndian.Uint16(f.Extensible.SubFormat[:2])
	}

	return f.FormatTag
}

// SamplesPerBlock returns the samples per block of an ADPCM fmt chunk, or 0.
func (f *FmtChunk) SamplesPerBlock() int {
	if f == nil || !IsADPCM(f.FormatTag) || len(f.ExtraData) < 2 {
		return 0
	}

	return int(binary.LittleEndian.Uint16(f.ExtraData[0:2]))
}

func makeSubFormatGUID(formatTag uint16) [16]byte {
	var guid [16]byte
	binary.LittleEndian.PutUint32(guid[:4], uint32(formatTag))
	guid[4] = ksSubFormatGUIDTail0
	guid[5] = ksSubFormatGUIDTail1
	guid[6] = ksSubFormatGUIDTail2
	guid[7] = ksSubFormatGUIDTail3
	guid[8] = ksSubFormatGUIDTail4
	guid[9] = ksSubFormatGUIDTail5
	guid[10] = ksSubFormatGUIDTail6
	guid[11] = ksSubFormatGUIDTail7
	guid[12] = ksSubFormatGUIDTail8
	guid[13] = ksSubFormatGUIDTail9
	guid[14] = ksSubFormatGUIDTail10
	guid[15] = ksSubFormatGUIDTail11

	return guid
}
