package scd

import (
	"fmt"
	"sort"
)

// SlotMapping maps a destination slot of a container to the index of the
// source waveform that fills it.
type SlotMapping map[int]int

// Clone returns a copy of the mapping.
func (m SlotMapping) Clone() SlotMapping {
	if m == nil {
		return nil
	}

	out := make(SlotMapping, len(m))
	for slot, src := range m {
		out[slot] = src
	}

	return out
}

// Resolution is the outcome of a slot resolution.
type Resolution struct {
	// Order holds, for every destination slot, the index of its source.
	Order []int
	// Warning is set when the resolution succeeded with a fallback; it wraps
	// ErrNoMappingFound when the identity mapping was applied.
	Warning error
}

// Identity reports whether every slot is filled by the source with the same
// index.
func (r *Resolution) Identity() bool {
	for slot, src := range r.Order {
		if slot != src {
			return false
		}
	}

	return true
}

// ResolveSlots assigns a source to every one of the slots of the container
// called name. Without a mapping the identity order is used and the
// resolution carries an ErrNoMappingFound warning.
func ResolveSlots(name string, slots, sources int, mapping SlotMapping) (*Resolution, error) {
	if sources != slots {
		return nil, fmt.Errorf("%w: %s has %d stream(s), got %d source(s)",
			ErrStreamCountMismatch, name, slots, sources)
	}

	res := &Resolution{Order: make([]int, slots)}

	if mapping == nil {
		for i := range res.Order {
			res.Order[i] = i
		}

		res.Warning = fmt.Errorf("%w for file %s", ErrNoMappingFound, name)

		return res, nil
	}

	keys := make([]int, 0, len(mapping))
	for slot := range mapping {
		keys = append(keys, slot)
	}

	sort.Ints(keys)

	for _, slot := range keys {
		if slot < 0 || slot >= slots {
			return nil, fmt.Errorf("%w: %s maps slot %d, container has %d slot(s)",
				ErrIncompleteMapping, name, slot, slots)
		}

		src := mapping[slot]
		if src < 0 || src >= sources {
			return nil, fmt.Errorf("%w: %s maps slot %d to source %d, only %d source(s) available",
				ErrIncompleteMapping, name, slot, src, sources)
		}
	}

	for slot := range res.Order {
		src, ok := mapping[slot]
		if !ok {
			return nil, fmt.Errorf("%w: %s has no source for slot %d", ErrIncompleteMapping, name, slot)
		}

		res.Order[slot] = src
	}

	return res, nil
}

// Reorder returns items arranged so that element i is items[order[i]].
func Reorder[T any](items []T, order []int) ([]T, error) {
	out := make([]T, len(order))

	for slot, src := range order {
		if src < 0 || src >= len(items) {
			return nil, fmt.Errorf("%w: slot %d refers to item %d of %d",
				ErrIncompleteMapping, slot, src, len(items))
		}

		out[slot] = items[src]
	}

	return out, nil
}

// Resolver resolves slot orders from a shared mapping table.
type Resolver struct {
	Table *MappingTable
}

// Resolve looks up the mapping of the container called name and resolves
// its slots. A nil table behaves like an empty one.
func (r *Resolver) Resolve(name string, slots, sources int) (*Resolution, error) {
	var mapping SlotMapping

	if r != nil {
		mapping, _ = r.Table.Lookup(name)
	}

	return ResolveSlots(name, slots, sources, mapping)
}
