package serializer

import (
	"strings"
	"testing"
)

// benchmarkRecords returns a set of values for targeted benchmarking
func benchmarkRecords() map[string]record {
	return map[string]record{
		"Empty": {},
		"SmallName": {
			Name: "k",
		},
		"Counter": {
			Name:  "urn:li:dataset:(urn:li:dataPlatform:hive,db.table,PROD)",
			Count: 1 << 40,
		},
		"ManyTags": {
			Name: "tags",
			Tags: strings.Fields(strings.Repeat("tag-value ", 64)),
		},
		"Labels": {
			Name: "labels",
			Labels: map[string]string{
				"platform": "hive", "env": "PROD", "owner": "data-eng", "tier": "gold",
			},
		},
	}
}

// BenchmarkSerialize benchmarks serialization for all implementations with various values
func BenchmarkSerialize(b *testing.B) {
	values := benchmarkRecords()

	for name, factory := range testSerializers {
		for valueName, value := range values {
			b.Run(name+"_"+valueName, func(b *testing.B) {
				serializer := factory()
				b.ResetTimer()

				for i := 0; i < b.N; i++ {
					_, err := serializer.Serialize(value)
					if err != nil {
						b.Fatalf("Failed to serialize: %v", err)
					}
				}
			})
		}
	}
}

// BenchmarkDeserialize benchmarks deserialization for all implementations with various values
func BenchmarkDeserialize(b *testing.B) {
	values := benchmarkRecords()

	for name, factory := range testSerializers {
		for valueName, value := range values {
			b.Run(name+"_"+valueName, func(b *testing.B) {
				serializer := factory()
				data, err := serializer.Serialize(value)
				if err != nil {
					b.Fatalf("Failed to serialize: %v", err)
				}
				b.ResetTimer()

				for i := 0; i < b.N; i++ {
					if _, err := serializer.Deserialize(data); err != nil {
						b.Fatalf("Failed to deserialize: %v", err)
					}
				}
			})
		}
	}
}

// BenchmarkBinaryCounter benchmarks the binary serializer for the counter use case
func BenchmarkBinaryCounter(b *testing.B) {
	serializer := NewBinarySerializer[int64]()
	for i := 0; i < b.N; i++ {
		data, err := serializer.Serialize(int64(i))
		if err != nil {
			b.Fatalf("Failed to serialize: %v", err)
		}
		if _, err := serializer.Deserialize(data); err != nil {
			b.Fatalf("Failed to deserialize: %v", err)
		}
	}
}
