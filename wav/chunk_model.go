package wav

import (
	"bytes"
	"encoding/binary"
)

// RawChunk is a RIFF chunk carried through a decode/encode round trip
// without being interpreted, such as a LIST chunk ahead of ADPCM data.
type RawChunk struct {
	ID   [4]byte
	Data []byte
}

// Clone returns a deep copy of the chunk.
func (c RawChunk) Clone() RawChunk {
	return RawChunk{ID: c.ID, Data: bytes.Clone(c.Data)}
}

// paddedLen is the on-disk body length; RIFF bodies are word aligned.
func (c RawChunk) paddedLen() int {
	return len(c.Data) + len(c.Data)%2
}

// factChunk holds the per-channel sample count of compressed data.
func factChunk(samples uint32) RawChunk {
	c := RawChunk{ID: CIDFact, Data: make([]byte, 4)}
	binary.LittleEndian.PutUint32(c.Data, samples)

	return c
}

func cloneRawChunks(chunks []RawChunk) []RawChunk {
	if len(chunks) == 0 {
		return nil
	}

	out := make([]RawChunk, len(chunks))
	for i, c := range chunks {
		out[i] = c.Clone()
	}

	return out
}
