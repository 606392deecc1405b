// Package scdtest builds SCD containers for tests.
package scdtest

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/cwbudde/scd"
)

// TableOffset is where Build places the stream offset table.
const TableOffset = 0x60

// Stream describes one stream of a built container.
type Stream struct {
	Codec    uint32
	Channels uint32
	Rate     uint32
	Extra    []byte
	Payload  []byte
}

// Build lays out a little-endian container holding streams back to back,
// after an opaque tables region and a 16 byte preamble.
func Build(t testing.TB, streams ...Stream) []byte {
	t.Helper()

	var buf bytes.Buffer

	first := scd.AlignSize(TableOffset+4*len(streams), scd.PayloadAlignment) + 0x10

	offsets := make([]uint32, len(streams))
	end := first

	for i, s := range streams {
		offsets[i] = uint32(end)
		end += scd.StreamHeaderSize + len(s.Extra) + len(s.Payload)
	}

	write := func(v any) {
		if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
			t.Fatal(err)
		}
	}

	write(scd.Header{
		MagicCode:     scd.Magic,
		FileVersion:   3,
		SSCFVersion:   4,
		HeaderSize:    scd.HeaderSize,
		TotalFileSize: uint32(end),
	})

	write(scd.TableHeader{
		Table0ElementCount: 1,
		Table1ElementCount: uint16(len(streams)),
		Table2ElementCount: uint16(len(streams)),
		Table1Offset:       scd.HeaderSize + scd.TableHeaderSize,
		Table2Offset:       TableOffset,
	})

	for buf.Len() < TableOffset {
		buf.WriteByte(0xA5)
	}

	write(offsets)

	for buf.Len() < first {
		buf.WriteByte(0x5A)
	}

	for _, s := range streams {
		write(scd.StreamHeader{
			StreamSize:    uint32(len(s.Payload)),
			ChannelCount:  s.Channels,
			SampleRate:    s.Rate,
			Codec:         s.Codec,
			LoopEnd:       uint32(len(s.Payload)),
			ExtraDataSize: uint32(len(s.Extra)),
		})
		buf.Write(s.Extra)
		buf.Write(s.Payload)
	}

	return buf.Bytes()
}

// WriteFile stores a built container as dir/name and returns its path.
func WriteFile(t testing.TB, dir, name string, streams ...Stream) string {
	t.Helper()

	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, Build(t, streams...), 0o644); err != nil {
		t.Fatal(err)
	}

	return p
}

// Parse builds a container and parses it.
func Parse(t testing.TB, streams ...Stream) *scd.Container {
	t.Helper()

	c, err := scd.Parse(Build(t, streams...))
	if err != nil {
		t.Fatal(err)
	}

	return c
}

// Filled returns n bytes set to b.
func Filled(n int, b byte) []byte {
	return bytes.Repeat([]byte{b}, n)
}
