package store

import (
	"fmt"

	"github.com/mwarner/userstore/schema"
)

// New creates a Store based on the backend name.
//
// Supported backends:
//
//	"file"   - snapshot file at path (default, JSON format)
//	"sqlite" - SQLite database at path
//	"memory" - in-memory (ephemeral, for testing)
func New(backend, path string, def *schema.Definition) (Store, error) {
	switch backend {
	case "file", "":
		return NewFileStore(path, def, JSONCodec{})
	case "sqlite":
		return NewSqliteStore(path, def)
	case "memory":
		return NewMemoryStore(def), nil
	default:
		return nil, fmt.Errorf("unknown store backend: %q (supported: file, sqlite, memory)", backend)
	}
}
