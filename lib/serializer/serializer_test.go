package serializer

import (
	"reflect"
	"testing"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// record is a value type every generic serializer can handle
type record struct {
	Name   string            `json:"name" yaml:"name"`
	Count  int64             `json:"count" yaml:"count"`
	Tags   []string          `json:"tags" yaml:"tags,omitempty"`
	Labels map[string]string `json:"labels" yaml:"labels,omitempty"`
}

// testSerializers is a map of serializer name to factory function
var testSerializers = map[string]func() ISerializer[record]{
	"JSON": NewJSONSerializer[record],
	"GOB":  NewGOBSerializer[record],
	"YAML": NewYAMLSerializer[record],
}

// testRecords creates a set of test values with different fields filled
func testRecords() []record {
	return []record{
		{Name: "just-a-name"},
		{Name: "counter", Count: 42},
		{
			Name:   "complete",
			Count:  -7,
			Tags:   []string{"a", "b", "c"},
			Labels: map[string]string{"env": "test", "team": "ingest"},
		},
	}
}

// TestSerializerRoundTrip tests that values can be serialized and deserialized correctly
func TestSerializerRoundTrip(t *testing.T) {
	values := testRecords()

	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			for i, value := range values {
				data, err := serializer.Serialize(value)
				if err != nil {
					t.Errorf("Failed to serialize value %d: %v", i, err)
					continue
				}

				result, err := serializer.Deserialize(data)
				if err != nil {
					t.Errorf("Failed to deserialize value %d: %v", i, err)
					continue
				}

				if !reflect.DeepEqual(value, result) {
					t.Errorf("Value %d doesn't match after round trip:\nOriginal: %+v\nResult: %+v",
						i, value, result)
				}
			}
		})
	}
}

// TestSerializerInvalidInput tests that garbage input is reported as an error
func TestSerializerInvalidInput(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			if _, err := factory().Deserialize([]byte("{{{[[[")); err == nil {
				t.Errorf("Expected an error when deserializing invalid data")
			}
		})
	}
}

// TestBinarySerializerSpecific tests fixed-size values and the rejection of other types
func TestBinarySerializerSpecific(t *testing.T) {
	t.Run("int64", func(t *testing.T) {
		s := NewBinarySerializer[int64]()
		for _, v := range []int64{0, 1, -1, 1 << 62} {
			data, err := s.Serialize(v)
			if err != nil {
				t.Fatalf("Failed to serialize %d: %v", v, err)
			}
			if len(data) != 8 {
				t.Errorf("Expected 8 bytes, got %d", len(data))
			}
			result, err := s.Deserialize(data)
			if err != nil {
				t.Fatalf("Failed to deserialize %d: %v", v, err)
			}
			if result != v {
				t.Errorf("Expected %d, got %d", v, result)
			}
		}
	})

	t.Run("struct", func(t *testing.T) {
		type point struct {
			X, Y float64
			Seen bool
		}
		s := NewBinarySerializer[point]()
		p := point{X: 1.5, Y: -2.25, Seen: true}
		data, err := s.Serialize(p)
		if err != nil {
			t.Fatalf("Failed to serialize: %v", err)
		}
		result, err := s.Deserialize(data)
		if err != nil {
			t.Fatalf("Failed to deserialize: %v", err)
		}
		if result != p {
			t.Errorf("Expected %+v, got %+v", p, result)
		}
	})

	t.Run("variable size rejected", func(t *testing.T) {
		if _, err := NewBinarySerializer[string]().Serialize("nope"); err == nil {
			t.Errorf("Expected an error for a string value")
		}
		if _, err := NewBinarySerializer[int]().Serialize(1); err == nil {
			t.Errorf("Expected an error for an unsized int value")
		}
	})

	t.Run("short input", func(t *testing.T) {
		if _, err := NewBinarySerializer[int64]().Deserialize([]byte{1, 2, 3}); err == nil {
			t.Errorf("Expected an error for a truncated value")
		}
	})
}

// TestProtoSerializer tests the protobuf serializer with a well-known message type
func TestProtoSerializer(t *testing.T) {
	s := NewProtoSerializer(func() *structpb.Struct { return &structpb.Struct{} })

	value, err := structpb.NewStruct(map[string]any{
		"urn":     "urn:li:dataset:1",
		"columns": 12.0,
		"fields":  []any{"a", "b"},
	})
	if err != nil {
		t.Fatalf("Failed to build message: %v", err)
	}

	data, err := s.Serialize(value)
	if err != nil {
		t.Fatalf("Failed to serialize: %v", err)
	}
	result, err := s.Deserialize(data)
	if err != nil {
		t.Fatalf("Failed to deserialize: %v", err)
	}
	if !proto.Equal(value, result) {
		t.Errorf("Message doesn't match after round trip:\nOriginal: %v\nResult: %v", value, result)
	}
}

func TestByName(t *testing.T) {
	for _, name := range []string{"json", "gob", "yaml", "binary"} {
		if _, err := ByName[int64](name); err != nil {
			t.Errorf("Expected serializer %s to exist: %v", name, err)
		}
	}
	if _, err := ByName[int64]("msgpack"); err == nil {
		t.Errorf("Expected an error for an unknown serializer")
	}
}
