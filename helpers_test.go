package scd

import (
	"bytes"
	"encoding/binary"
	"testing"
)

type testStream struct {
	offset   uint32
	codec    uint32
	channels uint32
	rate     uint32
	extra    []byte
	payload  []byte
}

// buildContainer lays out a little-endian container: the headers, an opaque
// tables region up to tableOffset, the offset table, an opaque preamble up to
// the first stream, then the streams at their offsets. Gaps are filled with
// 0xEE.
func buildContainer(t *testing.T, tableOffset uint32, streams []testStream) []byte {
	t.Helper()

	end := 0
	for _, s := range streams {
		end = max(end, int(s.offset)+StreamHeaderSize+len(s.extra)+len(s.payload))
	}

	data := bytes.Repeat([]byte{0xEE}, end)

	var buf bytes.Buffer

	header := Header{
		MagicCode:     Magic,
		FileVersion:   3,
		SSCFVersion:   4,
		HeaderSize:    HeaderSize,
		TotalFileSize: uint32(end),
	}
	if err := binary.Write(&buf, binary.LittleEndian, header); err != nil {
		t.Fatal(err)
	}

	tables := TableHeader{
		Table0ElementCount: 1,
		Table1ElementCount: uint16(len(streams)),
		Table2ElementCount: uint16(len(streams)),
		Table3ElementCount: 0,
		Table1Offset:       HeaderSize + TableHeaderSize,
		Table2Offset:       tableOffset,
		Unk14:              0xCAFE,
	}
	if err := binary.Write(&buf, binary.LittleEndian, tables); err != nil {
		t.Fatal(err)
	}

	copy(data, buf.Bytes())

	// recognizable opaque bytes
	for i := HeaderSize + TableHeaderSize; i < int(tableOffset); i++ {
		data[i] = byte(i)
	}

	for i, s := range streams {
		binary.LittleEndian.PutUint32(data[int(tableOffset)+i*offsetEntrySize:], s.offset)

		sh := StreamHeader{
			StreamSize:    uint32(len(s.payload)),
			ChannelCount:  s.channels,
			SampleRate:    s.rate,
			Codec:         s.codec,
			LoopStart:     0x10,
			LoopEnd:       uint32(len(s.payload)),
			ExtraDataSize: uint32(len(s.extra)),
			AuxChunkCount: 1,
		}

		buf.Reset()

		if err := binary.Write(&buf, binary.LittleEndian, sh); err != nil {
			t.Fatal(err)
		}

		at := int(s.offset)
		at += copy(data[at:], buf.Bytes())
		at += copy(data[at:], s.extra)
		copy(data[at:], s.payload)
	}

	return data
}

func filled(n int, b byte) []byte {
	return bytes.Repeat([]byte{b}, n)
}

func payloadOf(data []byte, channels, rate int) *Payload {
	return &Payload{Data: data, NumChans: channels, SampleRate: rate, FormatTag: 1, BitDepth: 16, Source: "test"}
}

// scenarioTemplate has three streams at 0x100, 0x140 and 0x200, the last one
// with 8 bytes of extra data.
func scenarioTemplate(t *testing.T) *Container {
	t.Helper()

	data := buildContainer(t, 0x60, []testStream{
		{offset: 0x100, codec: CodecPCM16LE, channels: 2, rate: 44100, payload: filled(0x20, 0xA0)},
		{offset: 0x140, codec: CodecPCM16LE, channels: 1, rate: 22050, payload: filled(0x40, 0xA1)},
		{offset: 0x200, codec: CodecMSADPCM, channels: 1, rate: 48000, extra: filled(8, 0x0E), payload: filled(0x10, 0xA2)},
	})

	c, err := Parse(data)
	if err != nil {
		t.Fatal(err)
	}

	return c
}
