package collection

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/ValentinKolb/spillkv/lib/store"
	"github.com/ValentinKolb/spillkv/lib/store/conn"
)

func newTestCollection(t *testing.T, cacheSize, batchSize int) *Collection[string] {
	t.Helper()
	cfg := store.DefaultConfig[string](filepath.Join(t.TempDir(), "test.db"))
	cfg.CacheMaxSize = cacheSize
	cfg.CacheEvictionBatchSize = batchSize

	c, err := New(conn.NewRegistry(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() {
		c.Close()
	})
	return c
}

// persisted returns the value stored in the table for key, bypassing the cache
func persisted(t *testing.T, c *Collection[string], key string) (string, bool) {
	t.Helper()
	var data []byte
	err := c.db.QueryRow(c.stmts.selectValue, key).Scan(&data)
	if err != nil {
		return "", false
	}
	value, err := c.cfg.Serializer.Deserialize(data)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	return value, true
}

func TestCacheOverridesStore(t *testing.T) {
	c := newTestCollection(t, 10, 5)

	if err := c.Set("k", "fresh"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	// plant an outdated copy in the table behind the cache's back
	row, _, err := c.row("k", "stale")
	if err != nil {
		t.Fatalf("row: %v", err)
	}
	if err := c.write([][]any{row}); err != nil {
		t.Fatalf("write: %v", err)
	}

	if got, err := c.Get("k"); err != nil || got != "fresh" {
		t.Fatalf("Expected the cached value fresh, got %q (%v)", got, err)
	}
	if n, err := c.Len(); err != nil || n != 1 {
		t.Fatalf("Expected Len 1, got %d (%v)", n, err)
	}

	keys := 0
	for _, err := range c.Keys() {
		if err != nil {
			t.Fatalf("Keys: %v", err)
		}
		keys++
	}
	if keys != 1 {
		t.Fatalf("Expected the shadowed key once, got %d", keys)
	}

	if err := c.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if got, ok := persisted(t, c, "k"); !ok || got != "fresh" {
		t.Fatalf("Expected flush to overwrite the stale copy, got %q", got)
	}
}

func TestEvictionOrder(t *testing.T) {
	c := newTestCollection(t, 4, 2)

	for i := 0; i < 4; i++ {
		if err := c.Set(fmt.Sprintf("k%d", i), "v"); err != nil {
			t.Fatalf("Set: %v", err)
		}
	}
	// touch k0 so k1 and k2 are the coldest
	if _, err := c.Get("k0"); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if err := c.Set("k4", "v"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	for _, key := range []string{"k1", "k2"} {
		if c.Cached(key) {
			t.Errorf("Expected %s to be evicted", key)
		}
		if _, ok := persisted(t, c, key); !ok {
			t.Errorf("Expected %s to be persisted", key)
		}
	}
	for _, key := range []string{"k0", "k3", "k4"} {
		if !c.Cached(key) {
			t.Errorf("Expected %s to stay cached", key)
		}
		if _, ok := persisted(t, c, key); ok {
			t.Errorf("Expected %s not to be persisted yet", key)
		}
	}

	stats := c.Stats()
	if stats.EvictionBatches != 1 || stats.EvictedEntries != 2 || stats.CacheSize != 3 {
		t.Errorf("Unexpected stats %+v", stats)
	}
}

func TestFlushIdempotent(t *testing.T) {
	c := newTestCollection(t, 100, 10)

	for i := 0; i < 25; i++ {
		if err := c.Set(fmt.Sprintf("k%d", i), "v"); err != nil {
			t.Fatalf("Set: %v", err)
		}
	}

	if err := c.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	stats := c.Stats()
	if stats.EvictionBatches != 1 || stats.EvictedEntries != 25 || stats.CacheSize != 0 || stats.EvictedBytes == 0 {
		t.Fatalf("Unexpected stats after flush %+v", stats)
	}

	// nothing cached: no statement is issued
	if err := c.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if again := c.Stats(); again != stats {
		t.Fatalf("Expected a second flush to do nothing, stats went from %+v to %+v", stats, again)
	}
}

func TestFailedEvictionKeepsEntries(t *testing.T) {
	cfg := store.DefaultConfig[string](filepath.Join(t.TempDir(), "test.db"))
	cfg.CacheMaxSize = 2
	cfg.CacheEvictionBatchSize = 2
	cfg.ExtraColumns = map[string]store.ColumnFunc[string]{
		// a struct cannot be bound as SQL parameter
		"broken": func(v string) any {
			if v == "poison" {
				return struct{}{}
			}
			return v
		},
	}

	c, err := New(conn.NewRegistry(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	if err := c.Set("a", "poison"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := c.Set("b", "ok"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := c.Set("c", "ok"); err == nil {
		t.Fatalf("Expected eviction of the poisoned entry to fail")
	}

	for _, key := range []string{"a", "b", "c"} {
		if !c.Cached(key) {
			t.Errorf("Expected %s to stay cached after the failed eviction", key)
		}
	}
	if _, ok := persisted(t, c, "b"); ok {
		t.Errorf("Expected the failed batch to be rolled back")
	}

	// fix the value so Close can flush
	if err := c.Set("a", "cured"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestCloseResetsState(t *testing.T) {
	c := newTestCollection(t, 10, 5)

	if err := c.Set("k", "v"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if c.cacheMaxSize != 0 || c.CacheLen() != 0 {
		t.Errorf("Expected an empty cache with size 0 after Close, got %d/%d", c.CacheLen(), c.cacheMaxSize)
	}
	if !c.leak.closed.Load() {
		t.Errorf("Expected the leak check to be disarmed")
	}
	if c.registry.Len() != 0 {
		t.Errorf("Expected the connection to be released")
	}
	if err := c.Set("k", "v"); !errors.Is(err, store.ErrClosed) {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
}
