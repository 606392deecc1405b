// Package wav provides the RIFF/WAVE and AIFF plumbing used to move waveform
// data in and out of SCD containers.
//
// The decoder walks RIFF chunks with github.com/go-audio/riff, keeps the fmt
// chunk (including MS-ADPCM and WAVE_FORMAT_EXTENSIBLE extra data) and gives
// access to the raw data chunk bytes or to a normalized float PCM buffer.
// Chunks it doesn't interpret are preserved as RawChunks.
//
// The encoder writes PCM buffers as well as pre-encoded sample data (e.g.
// MS-ADPCM blocks) behind an arbitrary fmt chunk:
//
//   - NewEncoder(w, sampleRate, bitDepth, numChans, audioFormat).Write(buf)
//   - NewRawEncoder(w, fmtChunk).WriteRaw(data)
//
// AIFF input is read through github.com/go-audio/aiff.
package wav
