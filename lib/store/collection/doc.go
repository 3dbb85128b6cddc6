// Package collection implements the dict-like, file-backed Collection: a
// write-back LRU cache layered over one table of a SQLite file.
//
// Data Flow:
//
//   - Writes land in the cache only. When the cache holds more than
//     CacheMaxSize entries, the CacheEvictionBatchSize least recently used
//     entries are serialized, their extra columns computed, and the rows
//     written with one prepared INSERT OR REPLACE inside one transaction.
//
//   - Reads check the cache first. A miss reads the row by primary key,
//     deserializes it and puts it back into the cache through the same path as
//     a write, so a read can evict colder entries.
//
//   - A cached entry always wins over the table. Keys and Len take care to
//     neither report a key twice nor miss an entry that was not flushed yet.
//
//   - Query is the escape hatch for everything beyond key/value access. It
//     flushes first, since extra columns only exist for written rows.
//
// Table Layout:
//
//	CREATE TABLE <table> (key TEXT PRIMARY KEY, value BLOB[, <extra> BLOB]*)
//	CREATE INDEX <table>_<extra> ON <table> (<extra>)
//
// Lifecycle:
//
//	The connection is borrowed from a conn.Registry when the collection is
//	created and returned by Close, after the cache was flushed. There is no
//	implicit close: a collection that is garbage collected while still open
//	only logs a warning. Use With, or defer Close, to guarantee the flush.
//
// Usage Example:
//
//	registry := conn.NewRegistry()
//	cfg := store.DefaultConfig[Aspect](filepath.Join(dir, "spill.db"))
//	cfg.ExtraColumns = map[string]store.ColumnFunc[Aspect]{
//	    "urn": func(a Aspect) any { return a.URN },
//	}
//	aspects, err := collection.New(registry, cfg)
//	if err != nil { ... }
//	defer aspects.Close()
//
//	err = aspects.Set("a1", aspect)
//	rows, err := aspects.Query("SELECT key FROM data WHERE urn = ?", []any{"urn:li:x"})
//
// Metrics:
//
//	Every collection owns a VictoriaMetrics metrics.Set with the counters
//	spillkv_cache_hits_total, spillkv_cache_misses_total,
//	spillkv_evicted_entries_total, spillkv_eviction_batches_total and
//	spillkv_evicted_bytes_total plus the histogram of serialized value sizes
//	spillkv_evicted_value_bytes, all labelled with the table name. Stats
//	returns a snapshot of the counters.
package collection
