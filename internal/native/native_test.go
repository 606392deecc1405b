package native

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/aiff"
	"github.com/go-audio/audio"
)

func float32ApproxEqual(a, b, tolerance float32) bool {
	return math.Abs(float64(a-b)) <= float64(tolerance)
}

func stereoBuffer(rate int, data ...float32) *audio.Float32Buffer {
	return &audio.Float32Buffer{
		Data:           data,
		Format:         &audio.Format{NumChannels: 2, SampleRate: rate},
		SourceBitDepth: 16,
	}
}

func TestDecodeWAV(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "src", "voice.wav")

	if err := os.Mkdir(filepath.Dir(in), 0o755); err != nil {
		t.Fatal(err)
	}

	if err := WriteWAV(in, stereoBuffer(22050, 0.5, -0.5, 0.25, -0.25)); err != nil {
		t.Fatal(err)
	}

	outputs, err := Decoder{}.Decode(context.Background(), in, dir)
	if err != nil {
		t.Fatal(err)
	}

	if len(outputs) != 1 || outputs[0] != filepath.Join(dir, "voice.wav") {
		t.Fatalf("unexpected outputs %v", outputs)
	}

	buf, err := ReadBuffer(outputs[0])
	if err != nil {
		t.Fatal(err)
	}

	if buf.Format.NumChannels != 2 || buf.Format.SampleRate != 22050 || len(buf.Data) != 4 {
		t.Fatalf("unexpected buffer %+v with %d samples", buf.Format, len(buf.Data))
	}

	for i, want := range []float32{0.5, -0.5, 0.25, -0.25} {
		if !float32ApproxEqual(buf.Data[i], want, 1e-3) {
			t.Errorf("sample %d: expected %v, got %v", i, want, buf.Data[i])
		}
	}
}

func TestDecodeAIFF(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "jingle.aiff")

	f, err := os.Create(in)
	if err != nil {
		t.Fatal(err)
	}

	enc := aiff.NewEncoder(f, 32000, 16, 1)
	if err := enc.Write(&audio.IntBuffer{Data: []int{16384, -16384, 0}, Format: &audio.Format{NumChannels: 1, SampleRate: 32000}}); err != nil {
		t.Fatal(err)
	}

	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}

	f.Close()

	outputs, err := Decoder{}.Decode(context.Background(), in, dir)
	if err != nil {
		t.Fatal(err)
	}

	buf, err := ReadBuffer(outputs[0])
	if err != nil {
		t.Fatal(err)
	}

	if buf.Format.NumChannels != 1 || buf.Format.SampleRate != 32000 || len(buf.Data) != 3 {
		t.Fatalf("unexpected buffer %+v with %d samples", buf.Format, len(buf.Data))
	}

	if !float32ApproxEqual(buf.Data[0], 0.5, 1e-3) || !float32ApproxEqual(buf.Data[1], -0.5, 1e-3) {
		t.Fatalf("unexpected samples %v", buf.Data)
	}
}

func TestDecodeErrors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		file    string
		content []byte
		want    error
	}{
		{"unknown extension", "bank.vsb", []byte("VSB"), ErrUnsupportedFormat},
		{"broken vorbis", "music.ogg", []byte("definitely not an ogg stream"), ErrUnsupportedFormat},
		{"empty mp3", "music.mp3", nil, ErrUnsupportedFormat},
		{"broken wav", "music.wav", []byte("RIFX"), ErrUnsupportedFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := filepath.Join(dir, tt.file)
			if err := os.WriteFile(in, tt.content, 0o644); err != nil {
				t.Fatal(err)
			}

			if _, err := (Decoder{}).Decode(context.Background(), in, dir); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := (Decoder{}).Decode(ctx, filepath.Join(dir, "music.wav"), dir); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestSupported(t *testing.T) {
	for path, want := range map[string]bool{
		"a.ogg":  true,
		"a.MP3":  true,
		"a.wav":  true,
		"a.aif":  true,
		"a.aiff": true,
		"a.vsb":  false,
		"a":      false,
	} {
		if got := Supported(path); got != want {
			t.Errorf("Supported(%q)=%v, want %v", path, got, want)
		}
	}
}

func TestResampleBuffer(t *testing.T) {
	t.Run("same rate copies", func(t *testing.T) {
		in := stereoBuffer(48000, 0.1, 0.2, 0.3, 0.4)

		out, err := ResampleBuffer(in, 48000)
		if err != nil {
			t.Fatal(err)
		}

		out.Data[0] = 1
		if in.Data[0] != 0.1 || len(out.Data) != 4 {
			t.Fatal("expected an independent copy")
		}
	})

	t.Run("upsample keeps source frames", func(t *testing.T) {
		in := stereoBuffer(24000, 0, 0, 0.5, -0.5, 1, -1, 0.5, -0.5)

		out, err := ResampleBuffer(in, 48000)
		if err != nil {
			t.Fatal(err)
		}

		if out.Format.SampleRate != 48000 || out.Format.NumChannels != 2 {
			t.Fatalf("unexpected format %+v", out.Format)
		}

		if len(out.Data) != 16 {
			t.Fatalf("expected 8 frames, got %d samples", len(out.Data))
		}

		// even output frames land exactly on source frames
		for j := 0; j < 4; j++ {
			for c := 0; c < 2; c++ {
				if got, want := out.Data[2*j*2+c], in.Data[j*2+c]; !float32ApproxEqual(got, want, 1e-6) {
					t.Errorf("frame %d channel %d: expected %v, got %v", j, c, want, got)
				}
			}
		}
	})

	t.Run("downsample halves the length", func(t *testing.T) {
		data := make([]float32, 2*1000)
		for i := range 1000 {
			v := float32(math.Sin(2 * math.Pi * 440 * float64(i) / 44100))
			data[2*i], data[2*i+1] = v, v
		}

		out, err := ResampleBuffer(stereoBuffer(44100, data...), 22050)
		if err != nil {
			t.Fatal(err)
		}

		if len(out.Data) != 1000 {
			t.Fatalf("expected 500 frames, got %d samples", len(out.Data))
		}

		for _, v := range out.Data {
			if v < -1 || v > 1 {
				t.Fatalf("sample %v out of range", v)
			}
		}
	})

	t.Run("invalid rate", func(t *testing.T) {
		if _, err := ResampleBuffer(stereoBuffer(44100, 0, 0), 0); !errors.Is(err, ErrInvalidRate) {
			t.Fatalf("expected ErrInvalidRate, got %v", err)
		}

		if _, err := ResampleBuffer(nil, 48000); !errors.Is(err, ErrEmptyAudio) {
			t.Fatalf("expected ErrEmptyAudio, got %v", err)
		}
	})
}

func TestResampler(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.wav")
	out := filepath.Join(dir, "out.wav")

	if err := WriteWAV(in, stereoBuffer(24000, 0, 0, 0.5, -0.5, 0.25, -0.25)); err != nil {
		t.Fatal(err)
	}

	if err := (Resampler{}).Resample(context.Background(), in, out, 48000); err != nil {
		t.Fatal(err)
	}

	buf, err := ReadBuffer(out)
	if err != nil {
		t.Fatal(err)
	}

	if buf.Format.SampleRate != 48000 || len(buf.Data) != 12 {
		t.Fatalf("expected 6 frames at 48000 Hz, got %d samples at %d Hz", len(buf.Data), buf.Format.SampleRate)
	}
}

func TestCubicInterpolate(t *testing.T) {
	tests := []struct {
		y0, y1, y2, y3, x, want float32
	}{
		{0, 1, 2, 3, 0, 1},
		{0, 1, 2, 3, 1, 2},
		{0, 1, 2, 3, 0.5, 1.5},
		{1, 1, 1, 1, 0.3, 1},
	}

	for _, tt := range tests {
		if got := cubicInterpolate(tt.y0, tt.y1, tt.y2, tt.y3, tt.x); !float32ApproxEqual(got, tt.want, 1e-6) {
			t.Errorf("cubicInterpolate(%v, %v, %v, %v, %v)=%v, want %v", tt.y0, tt.y1, tt.y2, tt.y3, tt.x, got, tt.want)
		}
	}
}
