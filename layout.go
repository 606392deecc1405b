package scd

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const (
	// HeaderSize is the byte size of the global container header.
	HeaderSize = 0x30
	// TableHeaderSize is the byte size of the table-of-tables header.
	TableHeaderSize = 0x20
	// StreamHeaderSize is the byte size of a stream header record.
	StreamHeaderSize = 0x20
	// PayloadAlignment is the boundary stream payloads are padded to.
	PayloadAlignment = 0x10

	offsetEntrySize = 4
)

// OpaqueRange is a half-open byte range [Start, End) of a container that is
// copied verbatim on rewrite and never interpreted.
type OpaqueRange struct {
	Start int
	End   int
}

// Len returns the number of bytes covered by the range.
func (r OpaqueRange) Len() int {
	if r.End < r.Start {
		return 0
	}

	return r.End - r.Start
}

// Slice returns the bytes of data covered by the range.
func (r OpaqueRange) Slice(data []byte) ([]byte, error) {
	if r.Start < 0 || r.End < r.Start || r.End > len(data) {
		return nil, fmt.Errorf("%w: range [%#x, %#x) outside of %d bytes",
			ErrMalformedContainer, r.Start, r.End, len(data))
	}

	return data[r.Start:r.End], nil
}

func (r OpaqueRange) String() string {
	return fmt.Sprintf("[%#x, %#x)", r.Start, r.End)
}

// AlignSize rounds n up to the next multiple of align.
func AlignSize(n, align int) int {
	if align <= 1 {
		return n
	}

	if rem := n % align; rem != 0 {
		return n + align - rem
	}

	return n
}

// Align returns b zero-padded to the next multiple of align. The input slice
// is returned as-is when it's already aligned.
func Align(b []byte, align int) []byte {
	size := AlignSize(len(b), align)
	if size == len(b) {
		return b
	}

	out := make([]byte, size)
	copy(out, b)

	return out
}

// readRecord decodes a fixed-size little-endian record located at offset.
func readRecord(data []byte, offset int, dst any) error {
	size := binary.Size(dst)
	if size < 0 {
		return fmt.Errorf("%T is not a fixed-size record", dst)
	}

	if offset < 0 || offset+size > len(data) {
		return fmt.Errorf("%w: %T at %#x needs %d bytes, only %d available",
			ErrMalformedContainer, dst, offset, size, max(len(data)-offset, 0))
	}

	err := binary.Read(bytes.NewReader(data[offset:offset+size]), binary.LittleEndian, dst)
	if err != nil {
		return fmt.Errorf("failed to read %T: %w", dst, err)
	}

	return nil
}

// writeRecord appends a fixed-size little-endian record to buf.
func writeRecord(buf *bytes.Buffer, src any) error {
	err := binary.Write(buf, binary.LittleEndian, src)
	if err != nil {
		return fmt.Errorf("failed to write %T: %w", src, err)
	}

	return nil
}
