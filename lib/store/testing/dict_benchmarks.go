package testing

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/ValentinKolb/spillkv/lib/store"
)

// Benchmark is a named benchmark body that runs against a fresh dict.
type Benchmark struct {
	Name string
	Run  func(b *testing.B, d store.IDict[string])
}

// Benchmarks lists all dict benchmarks in the order RunDictBenchmarks runs them.
// The bodies are exported so they can be run with testing.Benchmark outside of
// go test as well.
var Benchmarks = []Benchmark{
	{"Set", benchmarkSet},
	{"SetExisting", benchmarkSetExisting},
	{"SetLargeValue", benchmarkSetLargeValue},
	{"GetHot", benchmarkGetHot},
	{"GetCold", benchmarkGetCold},
	{"Delete", benchmarkDelete},
	{"Len", benchmarkLen},
	{"Keys", benchmarkKeys},
	{"MixedUsage", benchmarkMixedUsage},
}

// RunDictBenchmarks runs all benchmarks for an IDict implementation.
// Dicts are not safe for concurrent use, so every benchmark runs on a single
// goroutine.
func RunDictBenchmarks(b *testing.B, name string, factory DictFactory) {
	b.Run(name, func(b *testing.B) {
		for _, bm := range Benchmarks {
			b.Run(bm.Name, func(b *testing.B) {
				bm.Run(b, factory(b))
			})
		}
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// fill writes n keys and flushes them, so every following read is a cache miss
func fill(b *testing.B, d store.IDict[string], n int) {
	b.Helper()
	for i := 0; i < n; i++ {
		if err := d.Set(fmt.Sprintf("key-%d", i), fmt.Sprintf("value-%d", i)); err != nil {
			b.Fatalf("Set: %v", err)
		}
	}
	if err := d.Flush(); err != nil {
		b.Fatalf("Flush: %v", err)
	}
}

// --------------------------------------------------------------------------
// Benchmark functions
// --------------------------------------------------------------------------

func benchmarkSet(b *testing.B, d store.IDict[string]) {
	b.Cleanup(func() {
		d.Close()
	})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := d.Set(fmt.Sprintf("key-%d", i), "value"); err != nil {
			b.Fatalf("Set: %v", err)
		}
	}
}

func benchmarkSetExisting(b *testing.B, d store.IDict[string]) {
	b.Cleanup(func() {
		d.Close()
	})

	const keyCount = 1000
	fill(b, d, keyCount)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := d.Set(fmt.Sprintf("key-%d", i%keyCount), "updated"); err != nil {
			b.Fatalf("Set: %v", err)
		}
	}
}

func benchmarkSetLargeValue(b *testing.B, d store.IDict[string]) {
	b.Cleanup(func() {
		d.Close()
	})

	value := strings.Repeat("x", 64*1024)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := d.Set(fmt.Sprintf("key-%d", i), value); err != nil {
			b.Fatalf("Set: %v", err)
		}
	}
}

// benchmarkGetHot reads one key over and over, which stays cached unless the
// cache is disabled
func benchmarkGetHot(b *testing.B, d store.IDict[string]) {
	b.Cleanup(func() {
		d.Close()
	})

	if err := d.Set("hot", "value"); err != nil {
		b.Fatalf("Set: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := d.Get("hot"); err != nil {
			b.Fatalf("Get: %v", err)
		}
	}
}

// benchmarkGetCold reads random keys of a flushed dict, most reads hit the database
func benchmarkGetCold(b *testing.B, d store.IDict[string]) {
	b.Cleanup(func() {
		d.Close()
	})

	const keyCount = 10000
	fill(b, d, keyCount)
	r := rand.New(rand.NewSource(1))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := d.Get(fmt.Sprintf("key-%d", r.Intn(keyCount))); err != nil {
			b.Fatalf("Get: %v", err)
		}
	}
}

func benchmarkDelete(b *testing.B, d store.IDict[string]) {
	b.Cleanup(func() {
		d.Close()
	})

	fill(b, d, b.N)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := d.Delete(fmt.Sprintf("key-%d", i)); err != nil {
			b.Fatalf("Delete: %v", err)
		}
	}
}

func benchmarkLen(b *testing.B, d store.IDict[string]) {
	b.Cleanup(func() {
		d.Close()
	})

	fill(b, d, 10000)
	// leave some keys cached so the NOT IN list is used
	for i := 0; i < 100; i++ {
		if err := d.Set(fmt.Sprintf("key-%d", i), "cached"); err != nil {
			b.Fatalf("Set: %v", err)
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := d.Len(); err != nil {
			b.Fatalf("Len: %v", err)
		}
	}
}

func benchmarkKeys(b *testing.B, d store.IDict[string]) {
	b.Cleanup(func() {
		d.Close()
	})

	fill(b, d, 5000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, err := range d.Keys() {
			if err != nil {
				b.Fatalf("Keys: %v", err)
			}
		}
	}
}

// benchmarkMixedUsage runs 60% reads, 30% writes and 10% deletes
func benchmarkMixedUsage(b *testing.B, d store.IDict[string]) {
	b.Cleanup(func() {
		d.Close()
	})

	const keyCount = 5000
	fill(b, d, keyCount)
	r := rand.New(rand.NewSource(1))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key := fmt.Sprintf("key-%d", r.Intn(keyCount))
		switch op := r.Intn(10); {
		case op < 6:
			// deleted keys are expected to be missing
			_, _ = d.Get(key)
		case op < 9:
			if err := d.Set(key, "value"); err != nil {
				b.Fatalf("Set: %v", err)
			}
		default:
			_ = d.Delete(key)
		}
	}
}
