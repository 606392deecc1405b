package scd

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// ReadFile reads and parses the container stored at path.
func ReadFile(path string) (*Container, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return c, nil
}

// Decode buffers r entirely and parses it as a container.
func Decode(r io.Reader) (*Container, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read container: %w", err)
	}

	return Parse(data)
}

// Parse parses a complete container. The returned container keeps a reference
// to data; callers must not modify it afterwards.
func Parse(data []byte) (*Container, error) {
	if len(data) < HeaderSize+TableHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes is too small for the container headers",
			ErrMalformedContainer, len(data))
	}

	c := &Container{Data: data}

	err := readRecord(data, 0, &c.Header)
	if err != nil {
		return nil, err
	}

	if c.Header.MagicCode != Magic {
		return nil, fmt.Errorf("%w: expected %s magic, got %q (hex: %x)",
			ErrMalformedContainer, Magic[:], c.Header.MagicCode[:], c.Header.MagicCode[:])
	}

	if c.Header.BigEndianFlag != 0 {
		return nil, fmt.Errorf("%w: big endian containers are not supported", ErrMalformedContainer)
	}

	if c.Header.HeaderSize != HeaderSize {
		return nil, fmt.Errorf("%w: unsupported header size %#x", ErrMalformedContainer, c.Header.HeaderSize)
	}

	err = readRecord(data, HeaderSize, &c.Tables)
	if err != nil {
		return nil, err
	}

	err = c.checkTables()
	if err != nil {
		return nil, err
	}

	err = c.readStreams()
	if err != nil {
		return nil, err
	}

	return c, nil
}

// checkTables makes sure every non-zero table offset, and the entries its
// count declares, lie inside the file.
func (c *Container) checkTables() error {
	t := c.Tables
	tables := []struct {
		name   string
		offset uint32
		count  uint16
	}{
		{"table 1", t.Table1Offset, t.Table1ElementCount},
		{"table 2", t.Table2Offset, t.Table2ElementCount},
		{"table 3", t.Table3Offset, t.Table3ElementCount},
		{"table 4", t.Table4Offset, 0},
	}

	for _, tbl := range tables {
		if tbl.offset == 0 {
			continue
		}

		end := int64(tbl.offset) + int64(tbl.count)*offsetEntrySize
		if end > int64(len(c.Data)) {
			return fmt.Errorf("%w: %s [%#x, %#x) past end of file (%d bytes)",
				ErrMalformedContainer, tbl.name, tbl.offset, end, len(c.Data))
		}
	}

	return nil
}

func (c *Container) readStreams() error {
	count := c.StreamCount()
	if count == 0 {
		return fmt.Errorf("%w: container declares no streams", ErrMalformedContainer)
	}

	tableStart := int(c.Tables.Table2Offset)
	if tableStart < HeaderSize+TableHeaderSize {
		return fmt.Errorf("%w: stream offset table at %#x overlaps the headers",
			ErrMalformedContainer, tableStart)
	}

	tableEnd := c.OffsetTableEnd()
	if tableEnd > len(c.Data) {
		return fmt.Errorf("%w: stream offset table [%#x, %#x) past end of file (%d bytes)",
			ErrMalformedContainer, tableStart, tableEnd, len(c.Data))
	}

	c.Streams = make([]*Stream, count)

	for i := range count {
		entry := tableStart + i*offsetEntrySize
		offset := binary.LittleEndian.Uint32(c.Data[entry : entry+offsetEntrySize])

		s, err := c.readStream(offset, tableEnd)
		if err != nil {
			return fmt.Errorf("stream %d: %w", i, err)
		}

		c.Streams[i] = s
	}

	return nil
}

func (c *Container) readStream(offset uint32, tableEnd int) (*Stream, error) {
	if int(offset) < tableEnd {
		return nil, fmt.Errorf("%w: stream header at %#x precedes the end of the offset table (%#x)",
			ErrMalformedContainer, offset, tableEnd)
	}

	s := &Stream{Offset: offset}

	err := readRecord(c.Data, int(offset), &s.Header)
	if err != nil {
		return nil, err
	}

	extraStart := int64(offset) + StreamHeaderSize
	payloadStart := extraStart + int64(s.Header.ExtraDataSize)
	payloadEnd := payloadStart + int64(s.Header.StreamSize)

	if payloadStart > int64(len(c.Data)) {
		return nil, fmt.Errorf("%w: extra data [%#x, %#x) past end of file (%d bytes)",
			ErrMalformedContainer, extraStart, payloadStart, len(c.Data))
	}

	if payloadEnd > int64(len(c.Data)) {
		return nil, fmt.Errorf("%w: payload [%#x, %#x) past end of file (%d bytes)",
			ErrMalformedContainer, payloadStart, payloadEnd, len(c.Data))
	}

	s.ExtraData = c.Data[extraStart:payloadStart]
	s.Payload = c.Data[payloadStart:payloadEnd]

	return s, nil
}
