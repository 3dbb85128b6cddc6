package serializer

import (
	"gopkg.in/yaml.v3"
)

// NewYAMLSerializer creates a new serializer using yaml encoding.
// The stored values stay human-readable when the database file is inspected
// with the sqlite3 shell.
func NewYAMLSerializer[V any]() ISerializer[V] {
	return &yamlSerializerImpl[V]{}
}

// yamlSerializerImpl implements the ISerializer interface using yaml encoding
type yamlSerializerImpl[V any] struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.ISerializer)
// --------------------------------------------------------------------------

func (y yamlSerializerImpl[V]) Serialize(value V) ([]byte, error) {
	return yaml.Marshal(value)
}

func (y yamlSerializerImpl[V]) Deserialize(b []byte) (V, error) {
	var value V
	err := yaml.Unmarshal(b, &value)
	return value, err
}
