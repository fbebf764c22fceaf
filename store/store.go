// Package store provides durable, concurrency-safe storage for the
// records of a single entity type.
package store

import "errors"

// Store errors. Callers match them with errors.Is; the store never
// retries or logs on its own.
var (
	// ErrValidation means the record is missing a required attribute,
	// carries an undeclared one, or has a value of the wrong type.
	ErrValidation = errors.New("record failed validation")

	// ErrDuplicateID means a Create collided with an existing identifier.
	ErrDuplicateID = errors.New("identifier already exists")

	// ErrNotFound means no record carries the requested identifier.
	ErrNotFound = errors.New("record not found")

	// ErrStorageUnavailable means the backing storage could not be
	// read or written.
	ErrStorageUnavailable = errors.New("backing storage unavailable")

	// ErrCorruptState means the backing storage holds content that does
	// not parse. The store refuses to overwrite it.
	ErrCorruptState = errors.New("backing storage corrupt")
)

// Store is the interface that all backing stores must implement. All
// operations are safe for concurrent use; mutations are serialized so
// that concurrent Creates and Deletes never lose updates.
type Store interface {
	// List returns an independent copy of every record, in insertion
	// order.
	List() ([]Record, error)

	// Create validates the record, assigns a fresh identifier if it has
	// none, persists it, and returns the finalized record.
	Create(rec Record) (Record, error)

	// Delete removes the record with the given identifier.
	Delete(id string) error

	// Close releases any backend resources.
	Close() error
}
