package serializer

import (
	"encoding/binary"
	"fmt"
)

// NewBinarySerializer creates a new serializer that writes fixed-size values
// (sized integers, floats, bools and arrays or structs of those) in big endian
// byte order. It is the fastest option for counters and other numeric values.
// Types without a fixed size (int, string, slices, maps) are rejected with an error.
func NewBinarySerializer[V any]() ISerializer[V] {
	return &binarySerializerImpl[V]{}
}

// binarySerializerImpl implements ISerializer using encoding/binary
type binarySerializerImpl[V any] struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.ISerializer)
// --------------------------------------------------------------------------

func (b binarySerializerImpl[V]) Serialize(value V) ([]byte, error) {
	size := binary.Size(&value)
	if size < 0 {
		return nil, fmt.Errorf("binary serializer: %T is not a fixed-size type", value)
	}
	return binary.Append(make([]byte, 0, size), binary.BigEndian, &value)
}

func (b binarySerializerImpl[V]) Deserialize(data []byte) (V, error) {
	var value V
	size := binary.Size(&value)
	if size < 0 {
		return value, fmt.Errorf("binary serializer: %T is not a fixed-size type", value)
	}
	if len(data) != size {
		return value, fmt.Errorf("binary serializer: expected %d bytes for %T, got %d", size, value, len(data))
	}
	_, err := binary.Decode(data, binary.BigEndian, &value)
	return value, err
}
