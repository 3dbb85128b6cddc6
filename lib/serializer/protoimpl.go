package serializer

import (
	"google.golang.org/protobuf/proto"
)

// NewProtoSerializer creates a new serializer for protobuf messages.
// newFn must return a fresh, empty message of the concrete type V; it is
// called once per Deserialize.
func NewProtoSerializer[V proto.Message](newFn func() V) ISerializer[V] {
	return &protoSerializerImpl[V]{newFn: newFn}
}

// protoSerializerImpl implements the ISerializer interface using the protobuf wire format
type protoSerializerImpl[V proto.Message] struct {
	newFn func() V
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.ISerializer)
// --------------------------------------------------------------------------

func (p protoSerializerImpl[V]) Serialize(value V) ([]byte, error) {
	return proto.MarshalOptions{Deterministic: true}.Marshal(value)
}

func (p protoSerializerImpl[V]) Deserialize(b []byte) (V, error) {
	value := p.newFn()
	err := proto.Unmarshal(b, value)
	return value, err
}
