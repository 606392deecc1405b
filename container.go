package scd

import "fmt"

// Magic is the magic code every SCD container starts with.
var Magic = [8]byte{'S', 'E', 'D', 'B', 'S', 'S', 'C', 'F'}

// Stream codecs found in the stream header Codec field.
const (
	CodecPCM16LE uint32 = 0x01
	CodecOgg     uint32 = 0x06
	CodecMPEG    uint32 = 0x07
	CodecMSADPCM uint32 = 0x0C
	CodecDummy   uint32 = 0xFFFFFFFF
)

// Header is the global container header.
type Header struct {
	MagicCode     [8]byte
	FileVersion   uint32
	BigEndianFlag uint8
	SSCFVersion   uint8
	HeaderSize    uint16
	TotalFileSize uint32
	Padding       [7]uint32
}

// TableHeader holds the element counts and offsets of the container tables.
// Table 2 is the stream offset table.
type TableHeader struct {
	Table0ElementCount uint16
	Table1ElementCount uint16
	Table2ElementCount uint16
	Table3ElementCount uint16
	Table1Offset       uint32
	Table2Offset       uint32
	Table3Offset       uint32
	Table4Offset       uint32
	Unk14              uint32
	Padding            uint32
}

// StreamHeader is the fixed record found at the start of every stream.
type StreamHeader struct {
	StreamSize    uint32
	ChannelCount  uint32
	SampleRate    uint32
	Codec         uint32
	LoopStart     uint32
	LoopEnd       uint32
	ExtraDataSize uint32
	AuxChunkCount uint32
}

// Stream is one audio stream of a container.
type Stream struct {
	// Offset is the absolute offset of the stream header in the container.
	Offset    uint32
	Header    StreamHeader
	ExtraData []byte
	Payload   []byte
}

// Container is a parsed SCD file. A container is never mutated by the
// package; repacking synthesizes a new byte stream.
type Container struct {
	Header  Header
	Tables  TableHeader
	Streams []*Stream
	// Data is the complete original file content, used as the source of the
	// opaque ranges copied verbatim on rewrite.
	Data []byte
}

// Size returns the total byte size of the stream record.
func (s *Stream) Size() int {
	if s == nil {
		return 0
	}

	return StreamHeaderSize + len(s.ExtraData) + len(s.Payload)
}

// Clone returns a deep copy of the stream.
func (s *Stream) Clone() *Stream {
	if s == nil {
		return nil
	}

	out := *s
	out.ExtraData = append([]byte(nil), s.ExtraData...)
	out.Payload = append([]byte(nil), s.Payload...)

	return &out
}

// Clone returns a deep copy of the container.
func (c *Container) Clone() *Container {
	if c == nil {
		return nil
	}

	out := *c
	out.Data = append([]byte(nil), c.Data...)

	out.Streams = make([]*Stream, len(c.Streams))
	for i, s := range c.Streams {
		out.Streams[i] = s.Clone()
	}

	return &out
}

// StreamCount returns the number of streams declared by the stream table.
func (c *Container) StreamCount() int {
	if c == nil {
		return 0
	}

	return int(c.Tables.Table2ElementCount)
}

// OffsetTableEnd returns the offset right after the stream offset table.
func (c *Container) OffsetTableEnd() int {
	return int(c.Tables.Table2Offset) + c.StreamCount()*offsetEntrySize
}

// TablesRegion returns the opaque range between the end of the table header
// and the start of the stream offset table.
func (c *Container) TablesRegion() OpaqueRange {
	return OpaqueRange{
		Start: HeaderSize + TableHeaderSize,
		End:   int(c.Tables.Table2Offset),
	}
}

// StreamPreambleRegion returns the opaque range between the end of the
// stream offset table and the first stream header.
func (c *Container) StreamPreambleRegion() OpaqueRange {
	r := OpaqueRange{Start: c.OffsetTableEnd(), End: c.OffsetTableEnd()}
	if len(c.Streams) > 0 {
		r.End = int(c.Streams[0].Offset)
	}

	return r
}

// String implements the Stringer interface.
func (c *Container) String() string {
	if c == nil {
		return "<nil>"
	}

	return fmt.Sprintf("SCD v%d (SSCF v%d), %d bytes, %d stream(s)",
		c.Header.FileVersion, c.Header.SSCFVersion, len(c.Data), len(c.Streams))
}

// CodecName returns a human readable name for a stream codec.
func CodecName(codec uint32) string {
	switch codec {
	case CodecPCM16LE:
		return "PCM16LE"
	case CodecOgg:
		return "Ogg Vorbis"
	case CodecMPEG:
		return "MPEG"
	case CodecMSADPCM:
		return "MS-ADPCM"
	case CodecDummy:
		return "dummy"
	default:
		return fmt.Sprintf("codec %#x", codec)
	}
}
