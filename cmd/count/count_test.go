package count

import (
	"path/filepath"
	"testing"

	"github.com/ValentinKolb/spillkv/lib/store"
	"github.com/ValentinKolb/spillkv/lib/store/collection"
	"github.com/ValentinKolb/spillkv/lib/store/conn"
)

func TestTop(t *testing.T) {
	cfg := store.DefaultConfig[int64](filepath.Join(t.TempDir(), "count.db"))
	cfg.CacheMaxSize = 2
	cfg.CacheEvictionBatchSize = 1
	cfg.ExtraColumns = map[string]store.ColumnFunc[int64]{
		"count": func(n int64) any { return n },
	}

	err := collection.With(conn.NewRegistry(), cfg, func(c *collection.Collection[int64]) error {
		for _, line := range []string{"b", "a", "c", "a", "b", "a", "d"} {
			if err := Increment(c, line); err != nil {
				return err
			}
		}

		top, err := Top(c, 3)
		if err != nil {
			return err
		}
		expected := []Counted{{"a", 3}, {"b", 2}, {"c", 1}}
		if len(top) != len(expected) {
			t.Fatalf("Expected %v, got %v", expected, top)
		}
		for i := range expected {
			if top[i] != expected[i] {
				t.Errorf("Expected %v at %d, got %v", expected[i], i, top[i])
			}
		}

		all, err := Top(c, 0)
		if err != nil {
			return err
		}
		if len(all) != 4 {
			t.Errorf("Expected all 4 lines, got %v", all)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("With: %v", err)
	}
}
