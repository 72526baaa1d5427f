// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache persists resolved PersonRecords keyed by raw name.
//
// Lookup fields (status, entry, rank, raw department, organization) are
// written once and never changed, except through Replace, which the
// lookup stage uses only for an explicit forced re-lookup. The official
// unit fields are derived data that the refine stage recomputes on every
// run through SetUnit.
//
// Save writes the whole cache to a temporary file in the target directory
// and renames it into place, so a crash never leaves a partial file.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/pdiddy/grant-attribution/pkg/types"
)

// ErrExists is returned by Put when the name is already cached.
var ErrExists = errors.New("person already cached")

// ErrNotFound is returned when a name is not in the cache.
var ErrNotFound = errors.New("person not cached")

// Cache is an in-memory view of the person cache file.
type Cache struct {
	path    string
	records map[string]types.PersonRecord
	pending int
}

// Load reads the cache at path. A missing file yields an empty cache.
func Load(path string) (*Cache, error) {
	c := &Cache{path: path, records: make(map[string]types.PersonRecord)}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, fmt.Errorf("reading person cache %s: %w", path, err)
	}

	var raw map[string]types.PersonRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing person cache %s: %w", path, err)
	}
	for name, rec := range raw {
		rec.RawName = name
		if rec.Status == "" {
			// Files written before status was recorded: an entry id means a match.
			rec.Status = types.StatusNotFound
			if rec.EntryID != nil {
				rec.Status = types.StatusMatched
			}
		}
		c.records[name] = rec
	}
	return c, nil
}

// Path returns the file the cache saves to.
func (c *Cache) Path() string { return c.path }

// Len returns the number of cached records.
func (c *Cache) Len() int { return len(c.records) }

// Pending returns the number of records added or replaced since the last Save.
func (c *Cache) Pending() int { return c.pending }

// Has reports whether name has been looked up.
func (c *Cache) Has(name string) bool {
	_, ok := c.records[name]
	return ok
}

// Get returns the record for name.
func (c *Cache) Get(name string) (types.PersonRecord, bool) {
	rec, ok := c.records[name]
	return rec, ok
}

// Put adds a newly resolved record. Cached records are immutable, so Put
// fails with ErrExists when the name is already present.
func (c *Cache) Put(rec types.PersonRecord) error {
	if _, ok := c.records[rec.RawName]; ok {
		return fmt.Errorf("%q: %w", rec.RawName, ErrExists)
	}
	c.records[rec.RawName] = rec
	c.pending++
	return nil
}

// Replace overwrites the record for rec.RawName. It is reserved for forced
// re-lookups.
func (c *Cache) Replace(rec types.PersonRecord) {
	c.records[rec.RawName] = rec
	c.pending++
}

// SetUnit stores the official unit fields of a cached record.
func (c *Cache) SetUnit(name string, u types.UnitAssignment) error {
	rec, ok := c.records[name]
	if !ok {
		return fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	rec.SetUnit(u)
	c.records[name] = rec
	return nil
}

// Names returns every cached raw name in sorted order.
func (c *Cache) Names() []string {
	names := make([]string, 0, len(c.records))
	for name := range c.records {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Records returns every cached record sorted by raw name.
func (c *Cache) Records() []types.PersonRecord {
	out := make([]types.PersonRecord, 0, len(c.records))
	for _, name := range c.Names() {
		out = append(out, c.records[name])
	}
	return out
}

// Save writes the cache to its path atomically and resets Pending.
func (c *Cache) Save() error {
	data, err := json.MarshalIndent(c.records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling person cache: %w", err)
	}
	if err := WriteFileAtomic(c.path, data); err != nil {
		return err
	}
	c.pending = 0
	return nil
}

// WriteFileAtomic writes data to a temporary file next to path and renames
// it over path.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	tmpFile, err := os.CreateTemp(dir, ".cache-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	_, writeErr := tmpFile.Write(data)
	closeErr := tmpFile.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing %s: %w", path, writeErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// ReadJSON decodes the JSON document at path into v.
func ReadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// WriteJSON encodes v as indented JSON and writes it to path atomically.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", filepath.Base(path), err)
	}
	return WriteFileAtomic(path, data)
}
