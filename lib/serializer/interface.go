package serializer

import "fmt"

// ISerializer is the strategy a collection uses to turn values into the bytes
// stored in the value column and back.
type ISerializer[V any] interface {
	// Serialize serializes a value into a byte array
	// It returns the serialized byte array and an error if any
	Serialize(value V) ([]byte, error)
	// Deserialize restores a value from a byte array produced by Serialize
	// It returns the value and an error if any
	Deserialize(b []byte) (V, error)
}

// ByName returns the serializer registered under the given name.
// Valid names are json, gob, yaml and binary. Protobuf needs a message
// constructor and therefore has no name.
func ByName[V any](name string) (ISerializer[V], error) {
	switch name {
	case "json":
		return NewJSONSerializer[V](), nil
	case "gob":
		return NewGOBSerializer[V](), nil
	case "yaml":
		return NewYAMLSerializer[V](), nil
	case "binary":
		return NewBinarySerializer[V](), nil
	default:
		return nil, fmt.Errorf("invalid serializer %s (must be one of json, gob, yaml, binary)", name)
	}
}
