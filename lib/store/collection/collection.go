package collection

import (
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"math"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"

	"github.com/ValentinKolb/spillkv/lib/store"
	"github.com/ValentinKolb/spillkv/lib/store/conn"
	"github.com/VictoriaMetrics/metrics"
	"github.com/hashicorp/golang-lru/v2/simplelru"
	"github.com/lni/dragonboat/v4/logger"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

// keyPageSize is the number of keys Keys reads per query
const keyPageSize = 1000

var log = logger.GetLogger("collection")

// --------------------------------------------------------------------------
// Core collection structure
// --------------------------------------------------------------------------

// Collection is a dict-like container that keeps hot entries in an in-memory
// LRU cache and spills the coldest entries in batches to a table of a SQLite
// file. A cached entry is authoritative: the table may hold an older copy of
// the same key until the entry is evicted.
//
// A Collection is not safe for concurrent use.
type Collection[V any] struct {
	registry *conn.Registry
	db       *sql.DB // nil after Close
	filename string
	cfg      store.Config[V]

	columns    []string // extra column names in schema order
	extractors []store.ColumnFunc[V]

	cacheMaxSize int
	cache        *simplelru.LRU[string, V] // oldest entries first

	stmts statements

	metrics         *metrics.Set
	hits            *metrics.Counter
	misses          *metrics.Counter
	evictedEntries  *metrics.Counter
	evictionBatches *metrics.Counter
	evictedBytes    *metrics.Counter
	valueSize       *metrics.Histogram

	leak *leakState
}

// statements holds the SQL of all fixed queries of a collection
type statements struct {
	selectValue string
	insert      string
	remove      string
	firstKeys   string
	nextKeys    string
	count       string
}

// Stats is a snapshot of the cache counters of a collection
type Stats struct {
	Hits            uint64 `json:"hits"`
	Misses          uint64 `json:"misses"`
	EvictedEntries  uint64 `json:"evicted_entries"`
	EvictionBatches uint64 `json:"eviction_batches"`
	EvictedBytes    uint64 `json:"evicted_bytes"`
	CacheSize       int    `json:"cache_size"`
}

// leakState is shared with the cleanup registered by New. It must not
// reference the collection, otherwise the collection is never collected.
type leakState struct {
	closed atomic.Bool
	name   string
}

// --------------------------------------------------------------------------
// Initialization and Setup
// --------------------------------------------------------------------------

// New creates a collection stored in the table cfg.TableName of the file
// cfg.Filename. The connection is borrowed from registry and the table is
// created immediately, together with one index per extra column. Creating a
// table that already exists fails with ErrSchemaConflict.
//
// The collection must be closed to flush its cache and release the
// connection; see With for a scoped variant.
func New[V any](registry *conn.Registry, cfg store.Config[V]) (*Collection[V], error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	filename, err := filepath.Abs(cfg.Filename)
	if err != nil {
		return nil, fmt.Errorf("resolve database path %s: %w", cfg.Filename, err)
	}

	cache, err := simplelru.NewLRU[string, V](math.MaxInt, nil)
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}

	db, err := registry.Acquire(filename)
	if err != nil {
		return nil, err
	}

	c := &Collection[V]{
		registry:     registry,
		db:           db,
		filename:     filename,
		cfg:          cfg,
		columns:      cfg.ColumnNames(),
		cacheMaxSize: cfg.CacheMaxSize,
		cache:        cache,
		leak:         &leakState{name: cfg.TableName + "@" + filename},
	}
	for _, name := range c.columns {
		c.extractors = append(c.extractors, cfg.ExtraColumns[name])
	}
	c.stmts = buildStatements(cfg.TableName, c.columns)
	c.initMetrics()

	if err := c.createTable(); err != nil {
		if releaseErr := registry.Release(filename); releaseErr != nil {
			err = errors.Join(err, releaseErr)
		}
		return nil, err
	}

	runtime.AddCleanup(c, func(s *leakState) {
		if !s.closed.Load() {
			log.Warningf("collection %s was garbage collected without Close, its cached entries are lost", s.name)
		}
	}, c.leak)

	log.Debugf("created collection %s (cache %d, batch %d)", c.leak.name, cfg.CacheMaxSize, cfg.CacheEvictionBatchSize)
	return c, nil
}

// buildStatements prepares the SQL text of all fixed queries
func buildStatements(table string, columns []string) statements {
	insertCols := append([]string{store.KeyColumn, store.ValueColumn}, columns...)
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(insertCols)), ", ")

	return statements{
		selectValue: fmt.Sprintf("SELECT value FROM %s WHERE key = ?", table),
		insert: fmt.Sprintf("INSERT OR REPLACE INTO %s (%s) VALUES (%s)",
			table, strings.Join(insertCols, ", "), placeholders),
		remove:    fmt.Sprintf("DELETE FROM %s WHERE key = ?", table),
		firstKeys: fmt.Sprintf("SELECT key FROM %s ORDER BY key LIMIT ?", table),
		nextKeys:  fmt.Sprintf("SELECT key FROM %s WHERE key > ? ORDER BY key LIMIT ?", table),
		count:     fmt.Sprintf("SELECT COUNT(*) FROM %s", table),
	}
}

// createTable creates the table and the extra column indexes in one transaction.
// IF NOT EXISTS is left out on purpose: reusing a table name is a caller error.
func (c *Collection[V]) createTable() error {
	table := c.cfg.TableName

	var cols strings.Builder
	for _, name := range c.columns {
		cols.WriteString(", " + name + " BLOB")
	}

	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(fmt.Sprintf("CREATE TABLE %s (key TEXT PRIMARY KEY, value BLOB%s)", table, cols.String()))
	if err != nil {
		return schemaError("create table "+table, err)
	}

	// the key column is indexed by the primary key already
	for _, name := range c.columns {
		_, err = tx.Exec(fmt.Sprintf("CREATE INDEX %s_%s ON %s (%s)", table, name, table, name))
		if err != nil {
			return schemaError(fmt.Sprintf("create index %s_%s", table, name), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// schemaError maps name collisions to ErrSchemaConflict
func schemaError(op string, err error) error {
	if strings.Contains(err.Error(), "already exists") {
		return store.WrapError(store.ErrCSchemaConflict, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// --------------------------------------------------------------------------
// Cache and eviction
// --------------------------------------------------------------------------

// add inserts an entry as the most recently used one and evicts a batch of
// the coldest entries if the cache grew beyond its bound.
func (c *Collection[V]) add(key string, value V) error {
	c.cache.Add(key, value)

	if c.cache.Len() > c.cacheMaxSize {
		return c.evict(min(c.cache.Len(), c.cfg.CacheEvictionBatchSize))
	}
	return nil
}

// evict writes the n least recently used entries to the database with one
// prepared statement inside one transaction. The entries leave the cache only
// after the transaction committed, so a failed eviction loses nothing.
func (c *Collection[V]) evict(n int) error {
	if n == 0 {
		return nil
	}

	keys := c.cache.Keys()[:n]
	rows := make([][]any, 0, n)
	sizes := make([]int, 0, n)
	for _, key := range keys {
		value, _ := c.cache.Peek(key)
		row, size, err := c.row(key, value)
		if err != nil {
			return err
		}
		rows = append(rows, row)
		sizes = append(sizes, size)
	}

	if err := c.write(rows); err != nil {
		return err
	}

	for _, key := range keys {
		c.cache.Remove(key)
	}
	for _, size := range sizes {
		c.evictedBytes.Add(size)
		c.valueSize.Update(float64(size))
	}
	c.evictedEntries.Add(n)
	c.evictionBatches.Inc()
	log.Debugf("evicted %d entries from %s", n, c.cfg.TableName)
	return nil
}

// row serializes a value and computes all extra columns. The size of the
// serialized value is returned as well.
func (c *Collection[V]) row(key string, value V) ([]any, int, error) {
	data, err := c.cfg.Serializer.Serialize(value)
	if err != nil {
		return nil, 0, store.WrapError(store.ErrCInternal, "serialize "+key, err)
	}

	row := make([]any, 0, 2+len(c.extractors))
	row = append(row, key, data)
	for _, extract := range c.extractors {
		row = append(row, extract(value))
	}
	return row, len(data), nil
}

// write inserts or replaces all rows in one transaction
func (c *Collection[V]) write(rows [][]any) error {
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(c.stmts.insert)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.Exec(row...); err != nil {
			return fmt.Errorf("insert %v: %w", row[0], err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit eviction: %w", err)
	}
	return nil
}

// checkOpen returns ErrClosed after Close
func (c *Collection[V]) checkOpen() error {
	if c.db == nil {
		return store.NewError(store.ErrCClosed, c.leak.name)
	}
	return nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (c *Collection[V]) Get(key string) (V, error) {
	var zero V
	if err := c.checkOpen(); err != nil {
		return zero, err
	}

	if value, ok := c.cache.Get(key); ok {
		c.hits.Inc()
		return value, nil
	}
	c.misses.Inc()

	var data []byte
	err := c.db.QueryRow(c.stmts.selectValue, key).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return zero, store.NewError(store.ErrCNotFound, key)
		}
		return zero, fmt.Errorf("get %s: %w", key, err)
	}

	value, err := c.cfg.Serializer.Deserialize(data)
	if err != nil {
		return zero, store.WrapError(store.ErrCInternal, "deserialize "+key, err)
	}

	// a read may push colder entries out of the cache
	if err := c.add(key, value); err != nil {
		return zero, err
	}
	return value, nil
}

func (c *Collection[V]) Set(key string, value V) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	return c.add(key, value)
}

func (c *Collection[V]) Delete(key string) error {
	if err := c.checkOpen(); err != nil {
		return err
	}

	inCache := c.cache.Remove(key)

	result, err := c.db.Exec(c.stmts.remove, key)
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if !inCache && rows == 0 {
		return store.NewError(store.ErrCNotFound, key)
	}
	return nil
}

func (c *Collection[V]) Keys() iter.Seq2[string, error] {
	var cached []string
	var shadowed map[string]struct{}
	if c.db != nil {
		cached = c.cache.Keys()
		shadowed = make(map[string]struct{}, len(cached))
		for _, key := range cached {
			shadowed[key] = struct{}{}
		}
	}

	used := false
	return func(yield func(string, error) bool) {
		if used {
			return
		}
		used = true

		// closed at call time implies closed now
		if err := c.checkOpen(); err != nil {
			yield("", err)
			return
		}

		// persisted keys first, skipping the ones the cache shadows.
		// keys are paged so no query is open while the loop body runs.
		last, first := "", true
		for {
			page, err := c.keyPage(last, first)
			if err != nil {
				yield("", err)
				return
			}
			for _, key := range page {
				if _, ok := shadowed[key]; ok {
					continue
				}
				if !yield(key, nil) {
					return
				}
			}
			if len(page) < keyPageSize {
				break
			}
			last, first = page[len(page)-1], false
		}

		for _, key := range cached {
			if !yield(key, nil) {
				return
			}
		}
	}
}

// keyPage reads the next page of persisted keys in key order
func (c *Collection[V]) keyPage(after string, first bool) ([]string, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}

	var rows *sql.Rows
	var err error
	if first {
		rows, err = c.db.Query(c.stmts.firstKeys, keyPageSize)
	} else {
		rows, err = c.db.Query(c.stmts.nextKeys, after, keyPageSize)
	}
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	defer rows.Close()

	page := make([]string, 0, keyPageSize)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		page = append(page, key)
	}
	return page, rows.Err()
}

// Len counts the persisted keys that are not cached and adds the cache size.
// The cached keys are bound as one NOT IN parameter list, so a cache larger
// than SQLite's host parameter limit (32766) makes Len fail.
func (c *Collection[V]) Len() (int, error) {
	if err := c.checkOpen(); err != nil {
		return 0, err
	}

	keys := c.cache.Keys()
	query := c.stmts.count
	args := make([]any, len(keys))
	if len(keys) > 0 {
		query += " WHERE key NOT IN (" + strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",") + ")"
		for i, key := range keys {
			args[i] = key
		}
	}

	var n int
	if err := c.db.QueryRow(query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", c.cfg.TableName, err)
	}
	return n + len(keys), nil
}

func (c *Collection[V]) Flush() error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	return c.evict(c.cache.Len())
}

// Query flushes the collection and every ref first, because extra columns are
// only computed when an entry is written: a cached entry is invisible to
// queries until it is flushed.
func (c *Collection[V]) Query(query string, params []any, refs ...store.Flusher) ([][]any, error) {
	if err := c.Flush(); err != nil {
		return nil, err
	}
	for _, ref := range refs {
		if err := ref.Flush(); err != nil {
			return nil, err
		}
	}

	rows, err := c.db.Query(query, params...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}

	var result [][]any
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		result = append(result, values)
	}
	return result, rows.Err()
}

func (c *Collection[V]) TableName() string {
	return c.cfg.TableName
}

// Close flushes the cache and releases the connection. Every later operation
// fails with ErrClosed; calling Close again is a no-op.
func (c *Collection[V]) Close() error {
	if c.db == nil {
		return nil
	}

	flushErr := c.Flush()
	releaseErr := c.registry.Release(c.filename)

	c.db = nil
	c.cacheMaxSize = 0
	c.cache.Purge()
	c.leak.closed.Store(true)

	return errors.Join(flushErr, releaseErr)
}

// --------------------------------------------------------------------------
// Introspection
// --------------------------------------------------------------------------

// Filename returns the absolute path of the database file.
func (c *Collection[V]) Filename() string {
	return c.filename
}

// CacheLen returns the number of cached entries.
func (c *Collection[V]) CacheLen() int {
	return c.cache.Len()
}

// Cached reports whether key is in the cache without touching its recency.
func (c *Collection[V]) Cached(key string) bool {
	return c.cache.Contains(key)
}

// Stats returns a snapshot of the cache counters.
func (c *Collection[V]) Stats() Stats {
	return Stats{
		Hits:            c.hits.Get(),
		Misses:          c.misses.Get(),
		EvictedEntries:  c.evictedEntries.Get(),
		EvictionBatches: c.evictionBatches.Get(),
		EvictedBytes:    c.evictedBytes.Get(),
		CacheSize:       c.cache.Len(),
	}
}

// Metrics returns the metrics set of the collection, e.g. for
// metrics.Set.WritePrometheus.
func (c *Collection[V]) Metrics() *metrics.Set {
	return c.metrics
}

// initMetrics creates the counters of the collection in its own set
func (c *Collection[V]) initMetrics() {
	c.metrics = metrics.NewSet()
	name := func(metric string) string {
		return fmt.Sprintf(`%s{table=%q}`, metric, c.cfg.TableName)
	}
	c.hits = c.metrics.NewCounter(name("spillkv_cache_hits_total"))
	c.misses = c.metrics.NewCounter(name("spillkv_cache_misses_total"))
	c.evictedEntries = c.metrics.NewCounter(name("spillkv_evicted_entries_total"))
	c.evictionBatches = c.metrics.NewCounter(name("spillkv_eviction_batches_total"))
	c.evictedBytes = c.metrics.NewCounter(name("spillkv_evicted_bytes_total"))
	c.valueSize = c.metrics.NewHistogram(name("spillkv_evicted_value_bytes"))
}
