package scd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
)

// MappingTable is an immutable set of slot mappings keyed by container
// (source) file name. It's safe for concurrent reads.
type MappingTable struct {
	entries map[string]SlotMapping
}

// NewMappingTable builds a table from entries. The entries are copied.
func NewMappingTable(entries map[string]SlotMapping) *MappingTable {
	t := &MappingTable{entries: make(map[string]SlotMapping, len(entries))}
	for name, m := range entries {
		t.entries[name] = m.Clone()
	}

	return t
}

// Lookup returns a copy of the mapping registered for name.
func (t *MappingTable) Lookup(name string) (SlotMapping, bool) {
	if t == nil {
		return nil, false
	}

	m, ok := t.entries[name]
	if !ok {
		return nil, false
	}

	return m.Clone(), true
}

// Len returns the number of mappings in the table.
func (t *MappingTable) Len() int {
	if t == nil {
		return 0
	}

	return len(t.entries)
}

// Names returns the sorted names the table has a mapping for.
func (t *MappingTable) Names() []string {
	if t == nil {
		return nil
	}

	names := make([]string, 0, len(t.entries))
	for name := range t.entries {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// ParseMappingTable decodes a JSON document of the form
// {"file.vsb": {"0": 2, "1": 0, "2": 1}}.
func ParseMappingTable(r io.Reader) (map[string]SlotMapping, error) {
	var entries map[string]SlotMapping

	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, fmt.Errorf("failed to decode mapping table: %w", err)
	}

	return entries, nil
}

// LoadMappingTable merges every *.json file of dir into a table. Files are
// read in lexical order and later files override keys of earlier ones.
func LoadMappingTable(dir string) (*MappingTable, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("error finding mapping files: %w", err)
	}

	sort.Strings(files)

	merged := make(map[string]SlotMapping)

	for _, path := range files {
		entries, err := loadMappingFile(path)
		if err != nil {
			return nil, err
		}

		for name, m := range entries {
			merged[name] = m
		}
	}

	return NewMappingTable(merged), nil
}

func loadMappingFile(path string) (map[string]SlotMapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening mapping file: %w", err)
	}
	defer f.Close()

	entries, err := ParseMappingTable(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return entries, nil
}
