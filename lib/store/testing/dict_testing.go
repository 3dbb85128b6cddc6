package testing

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"testing"

	"github.com/ValentinKolb/spillkv/lib/store"
)

// DictFactory creates a new, empty IDict implementation. The factory owns the
// cleanup of whatever it creates besides the dict (e.g. temp dirs).
type DictFactory func(tb testing.TB) store.IDict[string]

// RunDictTests runs a comprehensive test suite for an IDict implementation.
// It is meant to be run once per cache configuration, since most properties
// must hold no matter how the entries are split between cache and table.
func RunDictTests(t *testing.T, name string, factory DictFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Set&Get", func(t *testing.T) {
			testSetGet(t, factory(t))
		})

		t.Run("GetMissing", func(t *testing.T) {
			testGetMissing(t, factory(t))
		})

		t.Run("Delete", func(t *testing.T) {
			testDelete(t, factory(t))
		})

		t.Run("EvictionPreservesValue", func(t *testing.T) {
			testEvictionPreservesValue(t, factory(t))
		})

		t.Run("LenConsistency", func(t *testing.T) {
			testLenConsistency(t, factory(t))
		})

		t.Run("KeysComplete", func(t *testing.T) {
			testKeysComplete(t, factory(t))
		})

		t.Run("KeysSingleUse", func(t *testing.T) {
			testKeysSingleUse(t, factory(t))
		})

		t.Run("KeysEarlyBreak", func(t *testing.T) {
			testKeysEarlyBreak(t, factory(t))
		})

		t.Run("FlushIdempotent", func(t *testing.T) {
			testFlushIdempotent(t, factory(t))
		})

		t.Run("QuerySeesEverything", func(t *testing.T) {
			testQuerySeesEverything(t, factory(t))
		})

		t.Run("EdgeCases", func(t *testing.T) {
			testEdgeCases(t, factory(t))
		})

		t.Run("UseAfterClose", func(t *testing.T) {
			testUseAfterClose(t, factory(t))
		})

		t.Run("RealisticUsage", func(t *testing.T) {
			testRealisticUsage(t, factory(t))
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// collectKeys drains a key sequence and fails the test on error
func collectKeys(t *testing.T, d store.IDict[string]) []string {
	t.Helper()
	var keys []string
	for key, err := range d.Keys() {
		if err != nil {
			t.Fatalf("Keys: %v", err)
		}
		keys = append(keys, key)
	}
	return keys
}

// requireLen fails the test if the dict does not report n keys
func requireLen(t *testing.T, d store.IDict[string], n int) {
	t.Helper()
	got, err := d.Len()
	if err != nil {
		t.Fatalf("Len: %v", err)
	}
	if got != n {
		t.Fatalf("Expected Len %d, got %d", n, got)
	}
}

// requireValue fails the test if key does not hold value
func requireValue(t *testing.T, d store.IDict[string], key, value string) {
	t.Helper()
	got, err := d.Get(key)
	if err != nil {
		t.Fatalf("Get %s: %v", key, err)
	}
	if got != value {
		t.Fatalf("Expected value %q for %s, got %q", value, key, got)
	}
}

// compare checks the dict against a reference map
func compare(t *testing.T, d store.IDict[string], expected map[string]string) {
	t.Helper()
	requireLen(t, d, len(expected))

	keys := collectKeys(t, d)
	sort.Strings(keys)
	expectedKeys := make([]string, 0, len(expected))
	for key := range expected {
		expectedKeys = append(expectedKeys, key)
	}
	sort.Strings(expectedKeys)

	if len(keys) != len(expectedKeys) {
		t.Fatalf("Expected %d keys, got %d", len(expectedKeys), len(keys))
	}
	for i := range keys {
		if keys[i] != expectedKeys[i] {
			t.Fatalf("Key mismatch at %d: expected %s, got %s", i, expectedKeys[i], keys[i])
		}
	}

	for key, value := range expected {
		requireValue(t, d, key, value)
	}
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testSetGet(t *testing.T, d store.IDict[string]) {
	defer d.Close()

	testKey := "test-key"

	if err := d.Set(testKey, "test-value1"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	requireValue(t, d, testKey, "test-value1")

	if err := d.Set(testKey, "test-value2"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	requireValue(t, d, testKey, "test-value2")

	// the overwrite must survive a flush as well
	if err := d.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	requireValue(t, d, testKey, "test-value2")
	requireLen(t, d, 1)
}

func testGetMissing(t *testing.T, d store.IDict[string]) {
	defer d.Close()

	_, err := d.Get("nonexistent-key")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for a missing key, got %v", err)
	}

	if err := d.Set("present", "x"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := d.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if _, err := d.Get("nonexistent-key"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after flush, got %v", err)
	}
}

func testDelete(t *testing.T, d store.IDict[string]) {
	defer d.Close()

	// persisted only
	if err := d.Set("flushed", "v"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := d.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if err := d.Delete("flushed"); err != nil {
		t.Errorf("Expected delete of a persisted key to succeed: %v", err)
	}
	if _, err := d.Get("flushed"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after Delete, got %v", err)
	}

	// cached (for cache size 0 this is persisted too, which must work the same)
	if err := d.Set("cached", "v"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := d.Delete("cached"); err != nil {
		t.Errorf("Expected delete of a cached key to succeed: %v", err)
	}
	if _, err := d.Get("cached"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after Delete, got %v", err)
	}

	// neither
	if err := d.Delete("nonexistent-key"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for deleting a missing key, got %v", err)
	}
	if err := d.Delete("flushed"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for deleting twice, got %v", err)
	}

	// a key cached with a new value and persisted with an old one
	if err := d.Set("both", "old"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := d.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if err := d.Set("both", "new"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := d.Delete("both"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := d.Get("both"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected no stale copy to resurface after Delete, got %v", err)
	}
	requireLen(t, d, 0)
}

func testEvictionPreservesValue(t *testing.T, d store.IDict[string]) {
	defer d.Close()

	if err := d.Set("first", "first-value"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	// more keys than any test configuration caches
	for i := 0; i < 5000; i++ {
		if err := d.Set(fmt.Sprintf("filler-%d", i), "filler"); err != nil {
			t.Fatalf("Set: %v", err)
		}
	}
	requireValue(t, d, "first", "first-value")
	requireLen(t, d, 5001)
}

func testLenConsistency(t *testing.T, d store.IDict[string]) {
	defer d.Close()

	live := make(map[string]string)
	requireLen(t, d, 0)

	for i := 0; i < 300; i++ {
		key := fmt.Sprintf("key-%d", i%120)
		if i%7 == 3 {
			if _, ok := live[key]; ok {
				if err := d.Delete(key); err != nil {
					t.Fatalf("Delete %s: %v", key, err)
				}
				delete(live, key)
			}
		} else {
			value := fmt.Sprintf("value-%d", i)
			if err := d.Set(key, value); err != nil {
				t.Fatalf("Set %s: %v", key, err)
			}
			live[key] = value
		}
		if i%25 == 0 {
			requireLen(t, d, len(live))
		}
		if i%60 == 0 {
			if err := d.Flush(); err != nil {
				t.Fatalf("Flush: %v", err)
			}
		}
	}
	requireLen(t, d, len(live))
}

func testKeysComplete(t *testing.T, d store.IDict[string]) {
	defer d.Close()

	expected := make(map[string]string)
	for i := 0; i < 2500; i++ {
		key := fmt.Sprintf("key-%04d", i)
		expected[key] = "v"
		if err := d.Set(key, "v"); err != nil {
			t.Fatalf("Set: %v", err)
		}
	}
	// rewrite some keys so they are cached and persisted at the same time
	for i := 0; i < 2500; i += 3 {
		key := fmt.Sprintf("key-%04d", i)
		expected[key] = "v2"
		if err := d.Set(key, "v2"); err != nil {
			t.Fatalf("Set: %v", err)
		}
	}

	seen := make(map[string]int)
	for _, key := range collectKeys(t, d) {
		seen[key]++
	}
	for key := range expected {
		if seen[key] != 1 {
			t.Errorf("Expected key %s exactly once, got %d", key, seen[key])
		}
	}
	if len(seen) != len(expected) {
		t.Errorf("Expected %d distinct keys, got %d", len(expected), len(seen))
	}
}

func testKeysSingleUse(t *testing.T, d store.IDict[string]) {
	defer d.Close()

	for i := 0; i < 10; i++ {
		if err := d.Set(fmt.Sprintf("key-%d", i), "v"); err != nil {
			t.Fatalf("Set: %v", err)
		}
	}

	keys := d.Keys()
	n := 0
	for _, err := range keys {
		if err != nil {
			t.Fatalf("Keys: %v", err)
		}
		n++
	}
	if n != 10 {
		t.Errorf("Expected 10 keys, got %d", n)
	}
	for range keys {
		t.Fatalf("Expected a consumed key sequence to yield nothing")
	}
}

func testKeysEarlyBreak(t *testing.T, d store.IDict[string]) {
	defer d.Close()

	for i := 0; i < 3000; i++ {
		if err := d.Set(fmt.Sprintf("key-%d", i), "v"); err != nil {
			t.Fatalf("Set: %v", err)
		}
	}

	n := 0
	for _, err := range d.Keys() {
		if err != nil {
			t.Fatalf("Keys: %v", err)
		}
		n++
		if n == 5 {
			break
		}
	}

	// nothing is left open after a break: the dict is fully usable
	if err := d.Set("after-break", "v"); err != nil {
		t.Fatalf("Set after break: %v", err)
	}
	requireLen(t, d, 3001)
}

func testFlushIdempotent(t *testing.T, d store.IDict[string]) {
	defer d.Close()

	for i := 0; i < 50; i++ {
		if err := d.Set(fmt.Sprintf("key-%d", i), fmt.Sprintf("value-%d", i)); err != nil {
			t.Fatalf("Set: %v", err)
		}
	}

	if err := d.Flush(); err != nil {
		t.Fatalf("first Flush: %v", err)
	}
	first, err := d.Query("SELECT key, value FROM "+d.TableName()+" ORDER BY key", nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}

	if err := d.Flush(); err != nil {
		t.Fatalf("second Flush: %v", err)
	}
	second, err := d.Query("SELECT key, value FROM "+d.TableName()+" ORDER BY key", nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}

	if len(first) != 50 || len(first) != len(second) {
		t.Fatalf("Expected 50 rows twice, got %d and %d", len(first), len(second))
	}
	for i := range first {
		if fmt.Sprint(first[i]) != fmt.Sprint(second[i]) {
			t.Errorf("Row %d changed between flushes: %v vs %v", i, first[i], second[i])
		}
	}
}

func testQuerySeesEverything(t *testing.T, d store.IDict[string]) {
	defer d.Close()

	for i := 0; i < 30; i++ {
		if err := d.Set(fmt.Sprintf("key-%d", i), "v"); err != nil {
			t.Fatalf("Set: %v", err)
		}
	}

	rows, err := d.Query("SELECT COUNT(*) FROM "+d.TableName(), nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(rows) != 1 || len(rows[0]) != 1 {
		t.Fatalf("Expected one row with one column, got %v", rows)
	}
	if count, ok := rows[0][0].(int64); !ok || count != 30 {
		t.Errorf("Expected the query to see all 30 entries, got %v", rows[0][0])
	}

	rows, err = d.Query("SELECT key FROM "+d.TableName()+" WHERE key = ?", []any{"key-7"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(rows) != 1 || rows[0][0] != "key-7" {
		t.Errorf("Expected key-7, got %v", rows)
	}
}

func testEdgeCases(t *testing.T, d store.IDict[string]) {
	defer d.Close()

	testCases := map[string]string{
		"":                       "empty key",
		"empty-value":            "",
		"unicode-ключ-🔑":         "unicode-значение",
		"quote'\"key":            "sql ' injection \" attempt; DROP TABLE x",
		"nul-value":              "value\x00with\x00nuls",
		"very-long-key-" + long(): long(),
	}

	for key, value := range testCases {
		if err := d.Set(key, value); err != nil {
			t.Fatalf("Set %q: %v", key, err)
		}
	}
	compare(t, d, testCases)

	if err := d.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	compare(t, d, testCases)
}

func testUseAfterClose(t *testing.T, d store.IDict[string]) {
	if err := d.Set("key", "value"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Errorf("Expected a second Close to be a no-op, got %v", err)
	}

	if err := d.Set("key", "value"); !errors.Is(err, store.ErrClosed) {
		t.Errorf("Expected ErrClosed for Set, got %v", err)
	}
	if _, err := d.Get("key"); !errors.Is(err, store.ErrClosed) {
		t.Errorf("Expected ErrClosed for Get, got %v", err)
	}
	if err := d.Delete("key"); !errors.Is(err, store.ErrClosed) {
		t.Errorf("Expected ErrClosed for Delete, got %v", err)
	}
	if _, err := d.Len(); !errors.Is(err, store.ErrClosed) {
		t.Errorf("Expected ErrClosed for Len, got %v", err)
	}
	if err := d.Flush(); !errors.Is(err, store.ErrClosed) {
		t.Errorf("Expected ErrClosed for Flush, got %v", err)
	}
	if _, err := d.Query("SELECT 1", nil); !errors.Is(err, store.ErrClosed) {
		t.Errorf("Expected ErrClosed for Query, got %v", err)
	}
	for _, err := range d.Keys() {
		if !errors.Is(err, store.ErrClosed) {
			t.Errorf("Expected ErrClosed for Keys, got %v", err)
		}
	}
}

func testRealisticUsage(t *testing.T, d store.IDict[string]) {
	defer d.Close()

	r := rand.New(rand.NewSource(42))
	expected := make(map[string]string)

	for i := 0; i < 4000; i++ {
		key := fmt.Sprintf("urn:li:dataset:%d", r.Intn(800))

		switch op := r.Intn(10); {
		case op < 5:
			value := fmt.Sprintf("aspect-%d", i)
			if err := d.Set(key, value); err != nil {
				t.Fatalf("Set: %v", err)
			}
			expected[key] = value
		case op < 8:
			value, err := d.Get(key)
			if want, ok := expected[key]; ok {
				if err != nil || value != want {
					t.Fatalf("Get %s: expected %q, got %q (%v)", key, want, value, err)
				}
			} else if !errors.Is(err, store.ErrNotFound) {
				t.Fatalf("Get %s: expected ErrNotFound, got %v", key, err)
			}
		case op < 9:
			err := d.Delete(key)
			if _, ok := expected[key]; ok {
				if err != nil {
					t.Fatalf("Delete %s: %v", key, err)
				}
				delete(expected, key)
			} else if !errors.Is(err, store.ErrNotFound) {
				t.Fatalf("Delete %s: expected ErrNotFound, got %v", key, err)
			}
		default:
			if err := d.Flush(); err != nil {
				t.Fatalf("Flush: %v", err)
			}
		}
	}

	compare(t, d, expected)
}

func long() string {
	b := make([]byte, 4096)
	for i := range b {
		b[i] = 'a' + byte(i%26)
	}
	return string(b)
}
