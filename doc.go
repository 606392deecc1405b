// Package scd reads and rewrites SCD sound-bank containers.
//
// An SCD file starts with a fixed 0x30 byte header (magic "SEDBSSCF"), a
// table-of-tables header and a set of tables, followed by one record per
// audio stream: a 0x20 byte stream header, a codec specific extra data blob
// and the raw sample payload.
//
// The package supports repacking: a parsed container is used as a template
// and its stream payloads are substituted with new ones while every byte the
// package does not interpret is copied through verbatim:
//
//	template, err := scd.ReadFile("bgm.win32.scd")
//	...
//	payload, err := scd.LoadPayload("track0.wav")
//	...
//	err = scd.WriteFile("out.win32.scd", template, []*scd.Payload{payload})
//
// Slot ordering for the replacement payloads is resolved with ResolveSlots
// or a Resolver backed by a MappingTable.
package scd
