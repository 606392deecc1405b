package scd

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
)

// Layout describes where the streams of a repacked container will land.
type Layout struct {
	// StreamOffsets holds the absolute offset of every stream header.
	StreamOffsets []uint32
	// TotalSize is the byte size of the whole repacked container.
	TotalSize int
}

// PlanLayout computes the layout of template repacked with payloads.
// payloads must be index-aligned with template.Streams.
func PlanLayout(template *Container, payloads []*Payload) (*Layout, error) {
	if template == nil || len(template.Streams) == 0 {
		return nil, fmt.Errorf("%w: template has no streams", ErrMalformedContainer)
	}

	if len(payloads) != len(template.Streams) {
		return nil, fmt.Errorf("%w: template has %d stream(s), got %d payload(s)",
			ErrStreamCountMismatch, len(template.Streams), len(payloads))
	}

	layout := &Layout{StreamOffsets: make([]uint32, len(payloads))}
	cursor := int64(template.Streams[0].Offset)

	for i, p := range payloads {
		if p == nil {
			return nil, fmt.Errorf("%w: payload %d is missing", ErrUnsupportedWaveform, i)
		}

		if len(p.Data)%PayloadAlignment != 0 {
			return nil, fmt.Errorf("%w: payload %d (%s) is %d bytes long",
				ErrUnalignedPayload, i, p.Source, len(p.Data))
		}

		if cursor > math.MaxUint32 {
			return nil, fmt.Errorf("%w: stream %d would start at %#x", ErrContainerTooLarge, i, cursor)
		}

		layout.StreamOffsets[i] = uint32(cursor)
		cursor += int64(len(p.Data) + StreamHeaderSize + len(template.Streams[i].ExtraData))
	}

	if cursor > math.MaxUint32 {
		return nil, fmt.Errorf("%w: %d bytes", ErrContainerTooLarge, cursor)
	}

	layout.TotalSize = int(cursor)

	return layout, nil
}

// Repack builds a new container from template where every stream payload is
// replaced with the payload at the same index. Everything that doesn't
// depend on the payloads is copied from the template.
func Repack(template *Container, payloads []*Payload) ([]byte, error) {
	data, _, err := repack(template, payloads)

	return data, err
}

func repack(template *Container, payloads []*Payload) ([]byte, *Layout, error) {
	layout, err := PlanLayout(template, payloads)
	if err != nil {
		return nil, nil, err
	}

	tablesRegion, err := template.TablesRegion().Slice(template.Data)
	if err != nil {
		return nil, nil, fmt.Errorf("tables region: %w", err)
	}

	preamble, err := template.StreamPreambleRegion().Slice(template.Data)
	if err != nil {
		return nil, nil, fmt.Errorf("stream preamble region: %w", err)
	}

	buf := bytes.NewBuffer(make([]byte, 0, layout.TotalSize))

	header := template.Header
	header.TotalFileSize = uint32(layout.TotalSize)

	if err := writeRecord(buf, header); err != nil {
		return nil, nil, err
	}

	if err := writeRecord(buf, template.Tables); err != nil {
		return nil, nil, err
	}

	buf.Write(tablesRegion)

	var entry [offsetEntrySize]byte
	for _, offset := range layout.StreamOffsets {
		binary.LittleEndian.PutUint32(entry[:], offset)
		buf.Write(entry[:])
	}

	buf.Write(preamble)

	for i, s := range template.Streams {
		p := payloads[i]

		if buf.Len() != int(layout.StreamOffsets[i]) {
			return nil, nil, fmt.Errorf("stream %d written at %#x, planned at %#x",
				i, buf.Len(), layout.StreamOffsets[i])
		}

		streamHeader := StreamHeader{
			StreamSize:    uint32(len(p.Data)),
			ChannelCount:  uint32(p.NumChans),
			SampleRate:    uint32(p.SampleRate),
			Codec:         s.Header.Codec,
			LoopStart:     s.Header.LoopStart,
			LoopEnd:       s.Header.LoopEnd,
			ExtraDataSize: s.Header.ExtraDataSize,
			AuxChunkCount: s.Header.AuxChunkCount,
		}

		if err := writeRecord(buf, streamHeader); err != nil {
			return nil, nil, err
		}

		buf.Write(s.ExtraData)
		buf.Write(p.Data)
	}

	if buf.Len() != layout.TotalSize {
		return nil, nil, fmt.Errorf("wrote %d bytes, planned %d", buf.Len(), layout.TotalSize)
	}

	return buf.Bytes(), layout, nil
}

// Verify parses data and checks it against the planned layout.
func Verify(data []byte, layout *Layout) (*Container, error) {
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSelfCheckFailed, err)
	}

	if layout == nil {
		return c, nil
	}

	if len(c.Streams) != len(layout.StreamOffsets) {
		return nil, fmt.Errorf("%w: read back %d stream(s), wrote %d",
			ErrSelfCheckFailed, len(c.Streams), len(layout.StreamOffsets))
	}

	for i, s := range c.Streams {
		if s.Offset != layout.StreamOffsets[i] {
			return nil, fmt.Errorf("%w: stream %d at %#x, expected %#x",
				ErrSelfCheckFailed, i, s.Offset, layout.StreamOffsets[i])
		}
	}

	if int(c.Header.TotalFileSize) != len(data) {
		return nil, fmt.Errorf("%w: header declares %d bytes, file has %d",
			ErrSelfCheckFailed, c.Header.TotalFileSize, len(data))
	}

	return c, nil
}

// WriteFile repacks template with payloads and stores the result at path.
// The container is written to a temporary file next to path, read back and
// verified, then moved into place; on failure no output is left behind.
func WriteFile(path string, template *Container, payloads []*Payload) error {
	data, layout, err := repack(template, payloads)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary output: %w", err)
	}

	tmpPath := tmp.Name()
	committed := false

	defer func() {
		if !committed {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", tmpPath, err)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync %s: %w", tmpPath, err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmpPath, err)
	}

	written, err := os.ReadFile(tmpPath)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSelfCheckFailed, err)
	}

	if _, err := Verify(written, layout); err != nil {
		return err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to move repacked container to %s: %w", path, err)
	}

	committed = true

	return nil
}
