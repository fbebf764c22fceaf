package store

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/mwarner/userstore/schema"
)

// Record is one persisted entity instance: a flat mapping of declared
// attribute names to values, with the identifier under schema.IDField.
type Record map[string]any

// ID returns the record's identifier, or "" if it has none.
func (r Record) ID() string {
	id, _ := r[schema.IDField].(string)
	return id
}

// Clone returns a deep copy of the record by round-tripping through
// JSON, so callers and the store never share mutable state.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	b, _ := json.Marshal(r)
	var dst Record
	_ = json.Unmarshal(b, &dst)
	return dst
}

// newID generates an identifier for records created without one.
func newID() string {
	return uuid.NewString()
}

// cloneAll deep-copies an ordered snapshot.
func cloneAll(recs []Record) []Record {
	out := make([]Record, len(recs))
	for i, r := range recs {
		out[i] = r.Clone()
	}
	return out
}

// prepare validates an incoming record against the definition and
// returns a finalized private copy with an identifier assigned. Shared
// by all backends so Create semantics stay identical.
func prepare(def *schema.Definition, rec Record) (Record, error) {
	if rec == nil {
		return nil, fmt.Errorf("%w: nil record", ErrValidation)
	}
	if err := def.Validate(rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	rec = rec.Clone()
	if rec.ID() == "" {
		rec[schema.IDField] = newID()
	}
	return rec, nil
}
