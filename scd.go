package scd

import "errors"

var (
	// ErrMalformedContainer is returned when a container fails structural
	// validation: bad magic, unsupported layout or a truncated read.
	ErrMalformedContainer = errors.New("malformed SCD container")
	// ErrStreamCountMismatch is returned when the number of replacement
	// payloads does not match the number of template streams.
	ErrStreamCountMismatch = errors.New("stream count mismatch")
	// ErrIncompleteMapping is returned when a slot mapping can't assign a
	// source to every destination slot.
	ErrIncompleteMapping = errors.New("some stream names haven't been found")
	// ErrUnsupportedWaveform is returned when a waveform file can't be turned
	// into a payload.
	ErrUnsupportedWaveform = errors.New("unsupported waveform")
	// ErrSelfCheckFailed is returned when a freshly written container can't be
	// read back.
	ErrSelfCheckFailed = errors.New("repacked container failed self-check")
	// ErrUnalignedPayload is returned when a payload length is not a multiple
	// of PayloadAlignment.
	ErrUnalignedPayload = errors.New("payload is not aligned")
	// ErrNoMappingFound is a warning: no slot mapping exists for a container
	// and the identity mapping was applied.
	ErrNoMappingFound = errors.New("no mapping found")
	// ErrCodecMismatch is a warning: a payload's format doesn't match the codec
	// of the template stream it replaces.
	ErrCodecMismatch = errors.New("payload format doesn't match stream codec")
	// ErrContainerTooLarge is returned when a repacked container would not
	// fit the 32-bit offsets of the format.
	ErrContainerTooLarge = errors.New("container exceeds 4 GiB")
)
