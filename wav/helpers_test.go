package wav

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

type testChunk struct {
	id   string
	size uint32
	data []byte
}

var (
	errFileTooSmall         = errors.New("file too small")
	errInvalidRiffWaveHdr   = errors.New("invalid riff/wave header")
	errChunkExceedsFileSize = errors.New("chunk exceeds file size")
)

func parseWavChunks(data []byte) ([]testChunk, error) {
	if len(data) < 12 {
		return nil, errFileTooSmall
	}

	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, errInvalidRiffWaveHdr
	}

	chunks := make([]testChunk, 0)

	offset := 12
	for offset+8 <= len(data) {
		id := string(data[offset : offset+4])
		size := binary.LittleEndian.Uint32(data[offset+4 : offset+8])
		offset += 8

		end := offset + int(size)
		if end > len(data) {
			return nil, fmt.Errorf("%w: %q", errChunkExceedsFileSize, id)
		}

		chunks = append(chunks, testChunk{id: id, size: size, data: append([]byte(nil), data[offset:end]...)})

		offset = end
		if size%2 == 1 {
			offset++
		}
	}

	return chunks, nil
}

func findChunk(chunks []testChunk, id string) *testChunk {
	for i := range chunks {
		if chunks[i].id == id {
			return &chunks[i]
		}
	}

	return nil
}

// buildWav assembles a RIFF/WAVE file from raw chunks, in order.
func buildWav(chunks ...testChunk) []byte {
	var body bytes.Buffer

	body.WriteString("WAVE")

	for _, c := range chunks {
		body.WriteString(c.id)
		binary.Write(&body, binary.LittleEndian, uint32(len(c.data)))
		body.Write(c.data)

		if len(c.data)%2 == 1 {
			body.WriteByte(0)
		}
	}

	var out bytes.Buffer

	out.WriteString("RIFF")
	binary.Write(&out, binary.LittleEndian, uint32(body.Len()))
	out.Write(body.Bytes())

	return out.Bytes()
}

func pcmFmt(numChans, sampleRate, bitDepth int) testChunk {
	blockAlign := numChans * bytesPerSample(bitDepth)
	f := &FmtChunk{
		FormatTag:      FormatPCM,
		NumChannels:    uint16(numChans),
		SampleRate:     uint32(sampleRate),
		AvgBytesPerSec: uint32(sampleRate * blockAlign),
		BlockAlign:     uint16(blockAlign),
		BitsPerSample:  uint16(bitDepth),
	}

	return testChunk{id: "fmt ", data: f.Bytes()}
}

// msadpcmFmt returns the 50 byte WAVEFORMATEX of a mono MS-ADPCM stream with
// the standard coefficient table.
func msadpcmFmt() *FmtChunk {
	extra := make([]byte, 32)
	binary.LittleEndian.PutUint16(extra[0:2], 1012)
	binary.LittleEndian.PutUint16(extra[2:4], 7)

	coefs := []int16{256, 0, 512, -256, 0, 0, 192, 64, 240, 0, 460, -208, 392, -232}
	for i, c := range coefs {
		binary.LittleEndian.PutUint16(extra[4+i*2:], uint16(c))
	}

	return &FmtChunk{
		FormatTag:      FormatMSADPCM,
		NumChannels:    1,
		SampleRate:     48000,
		AvgBytesPerSec: 24372,
		BlockAlign:     512,
		BitsPerSample:  4,
		ExtraData:      extra,
	}
}

func writeTempFile(t *testing.T, name string, data []byte) string {
	t.Helper()

	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		t.Fatal(err)
	}

	return p
}
