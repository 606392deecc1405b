package main

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/cwbudde/scd"
	"github.com/cwbudde/scd/internal/scdtest"
)

func TestRunGeneratesContainer(t *testing.T) {
	dir := t.TempDir()
	template := scdtest.WriteFile(t, dir, "original.scd",
		scdtest.Stream{Codec: scd.CodecPCM16LE, Channels: 1, Rate: 48000, Payload: scdtest.Filled(16, 0)},
		scdtest.Stream{Codec: scd.CodecPCM16LE, Channels: 1, Rate: 22000, Payload: scdtest.Filled(16, 0)},
	)
	outPath := filepath.Join(dir, "tone.win32.scd")

	err := run([]string{"-template", template, "-output", outPath, "-length", "0.01", "-frequency", "220"})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	c, err := scd.ReadFile(outPath)
	if err != nil {
		t.Fatalf("generated file is not a valid container: %v", err)
	}

	// 480 and 220 mono frames of 16 bit samples, padded to 16 bytes
	wantSizes := []int{960, 448}
	for i, s := range c.Streams {
		if len(s.Payload) != wantSizes[i] {
			t.Errorf("stream %d: payload size=%d, want %d", i, len(s.Payload), wantSizes[i])
		}
	}

	if c.Streams[1].Header.ChannelCount != 1 || c.Streams[1].Header.SampleRate != 22000 {
		t.Fatalf("unexpected second stream header %+v", c.Streams[1].Header)
	}

	if int(c.Header.TotalFileSize) != len(c.Data) {
		t.Fatalf("TotalFileSize=%d, file is %d bytes", c.Header.TotalFileSize, len(c.Data))
	}
}

func TestRunRequiresTemplate(t *testing.T) {
	if err := run([]string{"-length", "0.01"}); !errors.Is(err, errMissingTemplate) {
		t.Fatalf("expected errMissingTemplate, got %v", err)
	}
}

func TestTonePayload(t *testing.T) {
	p, err := tonePayload(12000, 0.001, 2, 48000)
	if err != nil {
		t.Fatal(err)
	}

	// 48 stereo frames of 16 bit samples
	if len(p.Data) != 192 || p.NumChans != 2 || p.BitDepth != 16 {
		t.Fatalf("unexpected payload %s", p)
	}

	// second frame: sin(pi/2) on both channels
	if p.Data[4] != 0xFF || p.Data[5] != 0x7F || p.Data[6] != 0xFF || p.Data[7] != 0x7F {
		t.Fatalf("unexpected second frame % x", p.Data[4:8])
	}

	if _, err := tonePayload(440, 1, 0, 48000); err == nil {
		t.Fatal("expected an error for zero channels")
	}
}
