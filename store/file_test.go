package store_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/mwarner/userstore/store"
)

func TestFileStoreInitializesEmptyCollection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")

	s, err := store.NewFileStore(path, userDef(), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	// The backing file must exist and hold a valid empty collection,
	// never be absent or zero-length.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) == 0 {
		t.Fatal("backing file is zero-length")
	}
	var recs []map[string]any
	if err := json.Unmarshal(data, &recs); err != nil {
		t.Fatalf("backing file does not parse: %v", err)
	}
	if len(recs) != 0 {
		t.Fatalf("expected empty collection, got %d records", len(recs))
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")

	s, err := store.NewFileStore(path, userDef(), nil)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		if _, err := s.Create(store.Record{"name": fmt.Sprintf("user-%d", i)}); err != nil {
			t.Fatal(err)
		}
	}
	before, err := s.List()
	if err != nil {
		t.Fatal(err)
	}
	s.Close()

	// Reopening from the backing file must yield the identical ordered
	// sequence.
	reopened, err := store.NewFileStore(path, userDef(), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()

	after, err := reopened.List()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("round-trip mismatch:\nbefore: %v\nafter:  %v", before, after)
	}
}

func TestFileStoreMsgpackCodec(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.msgpack")

	s, err := store.NewFileStore(path, userDef(), store.MsgpackCodec{})
	if err != nil {
		t.Fatal(err)
	}
	names := []string{"Ada", "Grace", "Kay"}
	for _, name := range names {
		if _, err := s.Create(store.Record{"name": name}); err != nil {
			t.Fatal(err)
		}
	}
	s.Close()

	reopened, err := store.NewFileStore(path, userDef(), store.MsgpackCodec{})
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()

	recs, err := reopened.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != len(names) {
		t.Fatalf("expected %d records, got %d", len(names), len(recs))
	}
	for i, name := range names {
		if recs[i]["name"] != name {
			t.Fatalf("record %d: expected name %q, got %v", i, name, recs[i]["name"])
		}
		if recs[i].ID() == "" {
			t.Fatalf("record %d: lost id in round-trip", i)
		}
	}
}

func TestFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	corrupt := []byte(`[{"id": "u-1", "name": "Ada"`) // truncated JSON
	if err := os.WriteFile(path, corrupt, 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := store.NewFileStore(path, userDef(), nil)
	if !errors.Is(err, store.ErrCorruptState) {
		t.Fatalf("expected ErrCorruptState, got %v", err)
	}

	// The corrupt content must be left untouched, never replaced by an
	// empty collection.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(data, corrupt) {
		t.Fatal("corrupt backing file was modified")
	}
}

func TestFileStoreEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := store.NewFileStore(path, userDef(), nil)
	if !errors.Is(err, store.ErrCorruptState) {
		t.Fatalf("expected ErrCorruptState for zero-length file, got %v", err)
	}
}

func TestFileStoreUnreadablePath(t *testing.T) {
	// A directory at the backing path is unreadable as a file.
	dir := t.TempDir()

	_, err := store.NewFileStore(dir, userDef(), nil)
	if !errors.Is(err, store.ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
}

// TestFileStoreSurvivesStaleTempFile simulates a crash between the temp
// file write and the rename: a leftover temp file next to a valid
// backing file must not affect reloads.
func TestFileStoreSurvivesStaleTempFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "users.json")

	s, err := store.NewFileStore(path, userDef(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Create(store.Record{"name": "Ada"}); err != nil {
		t.Fatal(err)
	}
	s.Close()

	stale := filepath.Join(dir, "users.json.tmp-1234")
	if err := os.WriteFile(stale, []byte(`[{"id": "partial`), 0o644); err != nil {
		t.Fatal(err)
	}

	reopened, err := store.NewFileStore(path, userDef(), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()

	recs, err := reopened.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || recs[0]["name"] != "Ada" {
		t.Fatalf("expected the Ada record, got %v", recs)
	}
}

// TestFileStoreAlwaysParseable checks that the backing file parses after
// every single mutation, which is what the atomic temp-file-plus-rename
// write guarantees across interruptions.
func TestFileStoreAlwaysParseable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")

	s, err := store.NewFileStore(path, userDef(), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	checkParses := func() {
		t.Helper()
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		var recs []map[string]any
		if err := json.Unmarshal(data, &recs); err != nil {
			t.Fatalf("backing file does not parse: %v", err)
		}
	}

	var ids []string
	for i := 0; i < 5; i++ {
		created, err := s.Create(store.Record{"name": fmt.Sprintf("user-%d", i)})
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, created.ID())
		checkParses()
	}
	for _, id := range ids {
		if err := s.Delete(id); err != nil {
			t.Fatal(err)
		}
		checkParses()
	}
}

// failingCodec marshals normally a fixed number of times, then fails.
// Used to verify that a failed persist leaves no trace.
type failingCodec struct {
	store.JSONCodec
	remaining *int
}

func (c failingCodec) Marshal(recs []store.Record) ([]byte, error) {
	if *c.remaining <= 0 {
		return nil, errors.New("marshal failed")
	}
	*c.remaining--
	return c.JSONCodec.Marshal(recs)
}

func TestFileStoreFailedPersistRollsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")

	// Allow the initial empty-collection write and one Create.
	remaining := 2
	s, err := store.NewFileStore(path, userDef(), failingCodec{remaining: &remaining})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if _, err := s.Create(store.Record{"name": "Ada"}); err != nil {
		t.Fatal(err)
	}

	// This persist fails; the in-memory snapshot and the file must both
	// keep the previous state.
	if _, err := s.Create(store.Record{"name": "Grace"}); err == nil {
		t.Fatal("expected create to fail")
	}

	recs, err := s.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || recs[0]["name"] != "Ada" {
		t.Fatalf("expected only the Ada record, got %v", recs)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var onDisk []map[string]any
	if err := json.Unmarshal(data, &onDisk); err != nil {
		t.Fatal(err)
	}
	if len(onDisk) != 1 {
		t.Fatalf("expected 1 record on disk, got %d", len(onDisk))
	}
}

// TestFileStoreLifecycle walks the canonical create/list/delete cycle.
func TestFileStoreLifecycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")

	s, err := store.NewFileStore(path, userDef(), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	created, err := s.Create(store.Record{"name": "Ada"})
	if err != nil {
		t.Fatal(err)
	}
	if created.ID() == "" {
		t.Fatal("expected a generated id")
	}

	recs, err := s.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || recs[0].ID() != created.ID() || recs[0]["name"] != "Ada" {
		t.Fatalf("unexpected list result: %v", recs)
	}

	if err := s.Delete(created.ID()); err != nil {
		t.Fatal(err)
	}

	recs, err = s.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 0 {
		t.Fatalf("expected empty list, got %v", recs)
	}
}
