package serializer

import (
	"bytes"
	"encoding/gob"
)

// NewGOBSerializer creates a new serializer using Go's binary gob format.
// This is the default serializer of a collection since it handles arbitrary
// Go values without any extra code.
func NewGOBSerializer[V any]() ISerializer[V] {
	return &gobSerializerImpl[V]{}
}

// gobSerializerImpl implements the ISerializer interface using gob encoding
type gobSerializerImpl[V any] struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.ISerializer)
// --------------------------------------------------------------------------

func (g gobSerializerImpl[V]) Serialize(value V) ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(&value); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g gobSerializerImpl[V]) Deserialize(b []byte) (V, error) {
	var value V
	dec := gob.NewDecoder(bytes.NewReader(b))
	err := dec.Decode(&value)
	return value, err
}
