// Package serializer provides the value serialization strategies used by the
// file-backed collections. A collection never interprets its values itself: it
// hands every value to an ISerializer when the value is evicted to the
// database, and asks the same serializer to restore it on a cache miss.
//
// The package focuses on:
//   - Providing a consistent, generic interface for different serialization formats
//   - Offering multiple implementations with different performance characteristics
//   - Letting callers plug in their own format without touching the collections
//
// Key Components:
//
//   - ISerializer[V]: Core interface that all serializer implementations must satisfy.
//
//   - gobSerializerImpl: Go's gob encoding. Handles almost any Go value and is
//     the default used by store.DefaultConfig.
//
//   - jsonSerializerImpl: JSON encoding, useful for debugging or when other
//     tools read the database file.
//
//   - yamlSerializerImpl: YAML encoding via gopkg.in/yaml.v3, the most readable
//     format when inspecting a spilled database by hand.
//
//   - binarySerializerImpl: encoding/binary for fixed-size values. Smallest and
//     fastest, but limited to sized numeric types and aggregates of them.
//
//   - protoSerializerImpl: protobuf wire format for values that already are
//     proto.Message implementations.
//
// Thread Safety:
//
//	All serializer implementations are stateless and safe for concurrent use
//	across multiple goroutines without additional synchronization.
//
// Usage:
//
//	  s := serializer.NewJSONSerializer[MyRecord]()
//	  data, err := s.Serialize(record)
//	  // ... store data ...
//	  record, err = s.Deserialize(data)
package serializer
