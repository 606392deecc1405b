package scd

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestParse(t *testing.T) {
	c := scenarioTemplate(t)

	if c.StreamCount() != 3 || len(c.Streams) != 3 {
		t.Fatalf("expected 3 streams, got %d/%d", c.StreamCount(), len(c.Streams))
	}

	wantOffsets := []uint32{0x100, 0x140, 0x200}
	for i, s := range c.Streams {
		if s.Offset != wantOffsets[i] {
			t.Errorf("stream %d: expected offset %#x, got %#x", i, wantOffsets[i], s.Offset)
		}
	}

	s := c.Streams[2]
	if s.Header.Codec != CodecMSADPCM || s.Header.SampleRate != 48000 || s.Header.ChannelCount != 1 {
		t.Fatalf("unexpected stream header %+v", s.Header)
	}

	if !bytes.Equal(s.ExtraData, filled(8, 0x0E)) {
		t.Fatalf("unexpected extra data % x", s.ExtraData)
	}

	if !bytes.Equal(s.Payload, filled(0x10, 0xA2)) {
		t.Fatalf("unexpected payload % x", s.Payload)
	}

	if got := c.TablesRegion(); got != (OpaqueRange{Start: 0x50, End: 0x60}) {
		t.Fatalf("unexpected tables region %s", got)
	}

	if got := c.StreamPreambleRegion(); got != (OpaqueRange{Start: 0x6C, End: 0x100}) {
		t.Fatalf("unexpected preamble region %s", got)
	}

	want := "SCD v3 (SSCF v4), 568 bytes, 3 stream(s)"
	if c.String() != want {
		t.Fatalf("expected %q, got %q", want, c.String())
	}
}

func TestParseMalformed(t *testing.T) {
	valid := buildContainer(t, 0x60, []testStream{
		{offset: 0x80, codec: CodecPCM16LE, channels: 1, rate: 8000, payload: filled(0x10, 1)},
	})

	mutate := func(f func(b []byte) []byte) []byte {
		return f(append([]byte(nil), valid...))
	}

	tests := []struct {
		name string
		in   []byte
	}{
		{"empty", nil},
		{"headers only partially present", valid[:0x40]},
		{"bad magic", mutate(func(b []byte) []byte { b[0] = 'X'; return b })},
		{"big endian", mutate(func(b []byte) []byte { b[0x0C] = 1; return b })},
		{"header size", mutate(func(b []byte) []byte { b[0x0E] = 0x40; return b })},
		{"no streams", mutate(func(b []byte) []byte {
			binary.LittleEndian.PutUint16(b[0x34:], 0)
			return b
		})},
		{"offset table overlaps headers", mutate(func(b []byte) []byte {
			binary.LittleEndian.PutUint32(b[0x3C:], 0x40)
			return b
		})},
		{"offset table past end", mutate(func(b []byte) []byte {
			binary.LittleEndian.PutUint32(b[0x3C:], 0x1000)
			return b
		})},
		{"table 1 offset past end", mutate(func(b []byte) []byte {
			binary.LittleEndian.PutUint32(b[0x38:], 0xFFFFFFFF)
			return b
		})},
		{"table 1 entries past end", mutate(func(b []byte) []byte {
			binary.LittleEndian.PutUint16(b[0x32:], 0x100)
			return b
		})},
		{"table 3 offset past end", mutate(func(b []byte) []byte {
			binary.LittleEndian.PutUint32(b[0x40:], 0xFFFFFFFF)
			return b
		})},
		{"table 3 entries past end", mutate(func(b []byte) []byte {
			binary.LittleEndian.PutUint32(b[0x40:], 0x50)
			binary.LittleEndian.PutUint16(b[0x36:], 0x100)
			return b
		})},
		{"table 4 offset past end", mutate(func(b []byte) []byte {
			binary.LittleEndian.PutUint32(b[0x44:], 0xFFFFFFFF)
			return b
		})},
		{"stream inside offset table", mutate(func(b []byte) []byte {
			binary.LittleEndian.PutUint32(b[0x60:], 0x62)
			return b
		})},
		{"stream header past end", mutate(func(b []byte) []byte {
			binary.LittleEndian.PutUint32(b[0x60:], uint32(len(b)-4))
			return b
		})},
		{"extra data past end", mutate(func(b []byte) []byte {
			binary.LittleEndian.PutUint32(b[0x80+0x18:], 0x1000)
			return b
		})},
		{"payload past end", mutate(func(b []byte) []byte {
			binary.LittleEndian.PutUint32(b[0x80:], 0x11)
			return b
		})},
		{"truncated payload", valid[:len(valid)-1]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.in)
			if !errors.Is(err, ErrMalformedContainer) {
				t.Fatalf("expected ErrMalformedContainer, got %v", err)
			}
		})
	}

	if _, err := Parse(valid); err != nil {
		t.Fatalf("expected the unmodified container to parse, got %v", err)
	}
}

func TestReadFileAndDecode(t *testing.T) {
	data := buildContainer(t, 0x50, []testStream{
		{offset: 0x60, codec: CodecOgg, channels: 2, rate: 44100, extra: filled(0x20, 7), payload: filled(0x30, 9)},
	})

	p := filepath.Join(t.TempDir(), "bgm.scd")
	if err := os.WriteFile(p, data, 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := ReadFile(p)
	if err != nil {
		t.Fatal(err)
	}

	if c.Streams[0].Header.Codec != CodecOgg || len(c.Streams[0].ExtraData) != 0x20 {
		t.Fatalf("unexpected stream %+v", c.Streams[0].Header)
	}

	if c.TablesRegion().Len() != 0 {
		t.Fatalf("expected an empty tables region, got %s", c.TablesRegion())
	}

	c2, err := Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}

	if c2.Streams[0].Offset != 0x60 {
		t.Fatalf("expected stream at 0x60, got %#x", c2.Streams[0].Offset)
	}

	if _, err := ReadFile(filepath.Join(t.TempDir(), "missing.scd")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected a not exist error, got %v", err)
	}
}

func TestContainerClone(t *testing.T) {
	c := scenarioTemplate(t)
	cp := c.Clone()

	cp.Streams[0].Payload[0] = 0xFF
	cp.Data[0] = 'X'

	if c.Streams[0].Payload[0] == 0xFF || c.Data[0] == 'X' {
		t.Fatal("expected the clone to own its buffers")
	}
}

func TestCodecName(t *testing.T) {
	tests := map[uint32]string{
		CodecPCM16LE: "PCM16LE",
		CodecOgg:     "Ogg Vorbis",
		CodecMPEG:    "MPEG",
		CodecMSADPCM: "MS-ADPCM",
		CodecDummy:   "dummy",
		0x42:         "codec 0x42",
	}

	for codec, want := range tests {
		if got := CodecName(codec); got != want {
			t.Errorf("CodecName(%#x)=%q, want %q", codec, got, want)
		}
	}
}
