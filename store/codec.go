package store

import (
	"encoding/json"

	ucodec "github.com/ugorji/go/codec"
)

// Codec serializes the full ordered snapshot to and from bytes. The
// on-disk format can be swapped without touching store logic.
type Codec interface {
	Marshal(recs []Record) ([]byte, error)
	Unmarshal(data []byte) ([]Record, error)
}

// JSONCodec stores the snapshot as an indented JSON array. It is the
// default format; an empty snapshot serializes as "[]", never as an
// empty file.
type JSONCodec struct{}

func (JSONCodec) Marshal(recs []Record) ([]byte, error) {
	if recs == nil {
		recs = []Record{}
	}
	return json.MarshalIndent(recs, "", "  ")
}

func (JSONCodec) Unmarshal(data []byte) ([]Record, error) {
	var recs []Record
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, err
	}
	if recs == nil {
		recs = []Record{}
	}
	return recs, nil
}

// MsgpackCodec stores the snapshot as a MessagePack array.
type MsgpackCodec struct{}

func msgpackHandle() *ucodec.MsgpackHandle {
	var mh ucodec.MsgpackHandle
	// Decode msgpack raw bytes back into Go strings so a snapshot
	// round-trips to the same record values.
	mh.RawToString = true
	return &mh
}

func (MsgpackCodec) Marshal(recs []Record) ([]byte, error) {
	if recs == nil {
		recs = []Record{}
	}
	var out []byte
	if err := ucodec.NewEncoderBytes(&out, msgpackHandle()).Encode(recs); err != nil {
		return nil, err
	}
	return out, nil
}

func (MsgpackCodec) Unmarshal(data []byte) ([]Record, error) {
	var recs []Record
	if err := ucodec.NewDecoderBytes(data, msgpackHandle()).Decode(&recs); err != nil {
		return nil, err
	}
	if recs == nil {
		recs = []Record{}
	}
	return recs, nil
}
