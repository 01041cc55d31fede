// Package resultstore persists per-image detector records as one JSON object
// keyed by filename. Every detector writes its own file under the output
// folder with the same load, merge, flush discipline.
//
// A Store is owned by a single run and is not safe for concurrent use. A store
// file must also have a single writer at a time: two runs that load the same
// file, merge and flush race, and the later Flush replaces the whole file
// (last writer wins), dropping the other run's records.
package resultstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"
)

var (
	// ErrLoad marks an existing store file that could not be read or parsed.
	// Load recovers from it by starting with an empty store.
	ErrLoad = errors.New("result store load failed")
	// ErrWrite marks a failed flush. It is fatal for the run.
	ErrWrite = errors.New("result store write failed")
)

// Store is an in-memory copy of one store file.
type Store struct {
	fs      afero.Fs
	path    string
	records map[string]json.RawMessage
	loadErr error
}

// Load reads the store at path. A missing file yields an empty store. A file
// that cannot be read or parsed also yields an empty store, and LoadErr
// reports why.
func Load(afs afero.Fs, path string) *Store {
	s := &Store{fs: afs, path: path, records: make(map[string]json.RawMessage)}

	data, err := afero.ReadFile(afs, path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.loadErr = fmt.Errorf("%w: %s: %w", ErrLoad, path, err)
		}
		return s
	}

	var records map[string]json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		s.loadErr = fmt.Errorf("%w: %s: %w", ErrLoad, path, err)
		return s
	}
	if records != nil {
		s.records = records
	}
	return s
}

// Path returns the file the store flushes to.
func (s *Store) Path() string { return s.path }

// LoadErr returns the ErrLoad-wrapped error Load recovered from, if any.
func (s *Store) LoadErr() error { return s.loadErr }

// Upsert replaces or inserts the record for name. No other key is touched.
func (s *Store) Upsert(name string, record any) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode record for %s: %w", name, err)
	}
	s.records[name] = raw
	return nil
}

// Remove drops the record for name and reports whether one existed.
func (s *Store) Remove(name string) bool {
	if _, ok := s.records[name]; !ok {
		return false
	}
	delete(s.records, name)
	return true
}

// Get returns the raw JSON record for name.
func (s *Store) Get(name string) (json.RawMessage, bool) {
	raw, ok := s.records[name]
	return raw, ok
}

// Decode unmarshals the record for name into v. It reports false when there
// is no record.
func (s *Store) Decode(name string, v any) (bool, error) {
	raw, ok := s.records[name]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return true, fmt.Errorf("decode record for %s: %w", name, err)
	}
	return true, nil
}

// Keys returns the stored filenames in sorted order.
func (s *Store) Keys() []string {
	keys := make([]string, 0, len(s.records))
	for k := range s.records {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of records.
func (s *Store) Len() int { return len(s.records) }

// Flush writes the whole store to its path. The document is written to a
// temporary file in the same folder and renamed over the target, so readers
// see either the old or the new file, never a truncated one.
func (s *Store) Flush() error {
	data, err := Encode(s.records)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWrite, s.path, err)
	}

	dir := filepath.Dir(s.path)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: create %s: %w", ErrWrite, dir, err)
	}

	f, err := afero.TempFile(s.fs, dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWrite, s.path, err)
	}
	tmp := f.Name()
	defer func() { _ = s.fs.Remove(tmp) }()

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("%w: %s: %w", ErrWrite, s.path, err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("%w: %s: %w", ErrWrite, s.path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWrite, s.path, err)
	}
	if err := s.fs.Chmod(tmp, 0o644); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWrite, s.path, err)
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWrite, s.path, err)
	}
	return nil
}

// Encode renders records the way Flush writes them: sorted keys, four-space
// indentation and a trailing newline.
func Encode(records map[string]json.RawMessage) ([]byte, error) {
	if records == nil {
		records = map[string]json.RawMessage{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "    "); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
