package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/mwarner/userstore/schema"
)

// FileStore persists all records of one entity type to a single backing
// file. The full snapshot lives in memory, guarded by a read-write
// mutex; every mutation re-serializes the whole snapshot and replaces
// the file through a temp file plus rename, so a crash mid-write leaves
// either the old content or the new, never a partial file.
//
// The lock covers the full read-modify-write cycle, not just the file
// write, so concurrent Creates and Deletes cannot lose updates. No
// other process may write the backing file while the store is live.
type FileStore struct {
	mu    sync.RWMutex
	path  string
	codec Codec
	def   *schema.Definition

	records []Record // insertion order, mirrored 1:1 to the file
}

// NewFileStore opens the backing file at path, creating it with an
// empty collection if it does not exist. An unreadable file fails with
// ErrStorageUnavailable; a file whose content does not parse fails with
// ErrCorruptState and is left untouched, so existing data is never
// silently replaced by an empty collection.
//
// A nil codec selects JSONCodec. A nil definition disables validation.
func NewFileStore(path string, def *schema.Definition, codec Codec) (*FileStore, error) {
	if codec == nil {
		codec = JSONCodec{}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	s := &FileStore{path: path, codec: codec, def: def}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// First open: the file must hold a valid empty collection
		// rather than be absent.
		s.records = []Record{}
		if err := s.persist(s.records); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	case len(data) == 0:
		// A zero-length file is ambiguous with an interrupted write.
		return nil, fmt.Errorf("%w: %s is empty", ErrCorruptState, path)
	default:
		recs, err := codec.Unmarshal(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrCorruptState, path, err)
		}
		s.records = recs
	}

	return s, nil
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) List() ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.records), nil
}

func (s *FileStore) Create(rec Record) (Record, error) {
	rec, err := prepare(s.def, rec)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.records {
		if existing.ID() == rec.ID() {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateID, rec.ID())
		}
	}

	next := append(s.records, rec)
	if err := s.persist(next); err != nil {
		// s.records is untouched, so a failed write leaves no trace.
		return nil, err
	}
	s.records = next
	return rec.Clone(), nil
}

func (s *FileStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, rec := range s.records {
		if rec.ID() == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: %q", ErrNotFound, id)
	}

	next := make([]Record, 0, len(s.records)-1)
	next = append(next, s.records[:idx]...)
	next = append(next, s.records[idx+1:]...)
	if err := s.persist(next); err != nil {
		return err
	}
	s.records = next
	return nil
}

func (s *FileStore) Close() error {
	return nil
}

// persist writes the serialized snapshot to a temp file in the same
// directory and renames it over the backing file. Rename within one
// directory is atomic, so the path always holds either the previous
// snapshot or the new one.
func (s *FileStore) persist(recs []Record) error {
	data, err := s.codec.Marshal(recs)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}
