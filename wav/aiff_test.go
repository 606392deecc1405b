package wav

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/aiff"
	"github.com/go-audio/audio"
)

func writeAIFF(t *testing.T, buf *audio.IntBuffer, bitDepth int) string {
	t.Helper()

	p := filepath.Join(t.TempDir(), "in.aiff")

	out, err := os.Create(p)
	if err != nil {
		t.Fatal(err)
	}
	defer out.Close()

	enc := aiff.NewEncoder(out, buf.Format.SampleRate, bitDepth, buf.Format.NumChannels)
	if err := enc.Write(buf); err != nil {
		t.Fatal(err)
	}

	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}

	return p
}

func TestDecodeAIFF(t *testing.T) {
	src := &audio.IntBuffer{
		Data:   []int{0, 1000, -1000, 16384, -16384, 32767},
		Format: &audio.Format{NumChannels: 2, SampleRate: 44100},
	}

	f, err := os.Open(writeAIFF(t, src, 16))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	isAIFF, err := IsAIFF(f)
	if err != nil || !isAIFF {
		t.Fatalf("expected an AIFF file, got %t, %v", isAIFF, err)
	}

	buf, err := DecodeAIFF(f)
	if err != nil {
		t.Fatal(err)
	}

	if buf.Format.NumChannels != 2 || buf.Format.SampleRate != 44100 || buf.SourceBitDepth != 16 {
		t.Fatalf("unexpected format %+v, %d bit", buf.Format, buf.SourceBitDepth)
	}

	if len(buf.Data) != len(src.Data) {
		t.Fatalf("expected %d samples, got %d", len(src.Data), len(buf.Data))
	}

	for i := range src.Data {
		if buf.Data[i] != src.Data[i] {
			t.Fatalf("sample %d: got %d, want %d", i, buf.Data[i], src.Data[i])
		}
	}

	fbuf := IntToFloat32Buffer(buf)
	if !float32ApproxEqual(fbuf.Data[3], 0.5, 1e-6) || !float32ApproxEqual(fbuf.Data[4], -0.5, 1e-6) {
		t.Fatalf("unexpected float conversion %v", fbuf.Data)
	}
}

func TestDecodeAIFFNotAIFF(t *testing.T) {
	_, err := DecodeAIFF(bytes.NewReader(buildWav(pcmFmt(1, 8000, 16), testChunk{id: "data", data: pcm16(1)})))
	if !errors.Is(err, ErrNotAIFF) {
		t.Fatalf("expected ErrNotAIFF, got %v", err)
	}
}

func TestIsAIFF(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want bool
	}{
		{"form header", []byte("FORM\x00\x00\x00\x04AIFF"), true},
		{"riff header", buildWav(), false},
		{"too short", []byte("FO"), false},
		{"empty", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := bytes.NewReader(tt.in)

			got, err := IsAIFF(r)
			if err != nil {
				t.Fatal(err)
			}

			if got != tt.want {
				t.Fatalf("IsAIFF()=%t, want %t", got, tt.want)
			}

			if pos, _ := r.Seek(0, io.SeekCurrent); pos != 0 {
				t.Fatalf("expected the reader to be rewound, at %d", pos)
			}
		})
	}
}

func TestIntToFloat32Buffer8Bit(t *testing.T) {
	got := IntToFloat32Buffer(&audio.IntBuffer{Data: []int{-128, 0, 64}, SourceBitDepth: 8})
	want := []float32{-1, 0, 0.5}

	for i := range want {
		if got.Data[i] != want[i] {
			t.Fatalf("sample %d: got %f, want %f", i, got.Data[i], want[i])
		}
	}

	if IntToFloat32Buffer(nil) != nil {
		t.Fatal("expected nil for a nil buffer")
	}
}
