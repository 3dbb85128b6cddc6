package store

import (
	"iter"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// Flusher is implemented by everything that buffers writes in memory.
// IDict.Query flushes all passed Flushers before running the query.
type Flusher interface {
	// Flush writes all buffered entries to the database.
	Flush() error
}

// IDict is the interface of a dict-like, file-backed collection.
// The in-memory cache is authoritative for every key it holds; for all other
// keys the database is. Implementations are not safe for concurrent use.
type IDict[V any] interface {
	Flusher
	// Get returns the value for a key. ErrNotFound is returned if the key
	// neither is cached nor persisted.
	Get(key string) (value V, err error)
	// Set inserts or updates a key–value pair. The write lands in the cache and
	// may evict older entries to the database.
	Set(key string, value V) (err error)
	// Delete removes a key from the cache and the database. ErrNotFound is
	// returned only if the key was in neither.
	Delete(key string) (err error)
	// Keys returns every live key exactly once: persisted keys not shadowed by
	// the cache first, then the cached keys. The sequence is single use.
	Keys() iter.Seq2[string, error]
	// Len returns the number of live keys.
	Len() (n int, err error)
	// Query flushes the collection and all refs, then runs the SQL statement on
	// the shared connection and returns every result row.
	Query(query string, params []any, refs ...Flusher) (rows [][]any, err error)
	// TableName returns the name of the table backing the collection.
	TableName() string
	// Close flushes all pending entries and releases the connection.
	Close() (err error)
}

// IList is the interface of an append-only, list-like, file-backed sequence.
// The length is tracked in memory only.
type IList[V any] interface {
	Flusher
	// Get returns the element at index i. ErrOutOfRange is returned unless 0 <= i < Len().
	Get(i int) (value V, err error)
	// Set replaces the element at index i. ErrOutOfRange is returned unless 0 <= i < Len().
	Set(i int, value V) (err error)
	// Append adds a value at index Len().
	Append(value V) (err error)
	// Len returns the number of appended elements.
	Len() int
	// All returns a restartable sequence over all elements in index order.
	// Every element is read at the moment it is produced.
	All() iter.Seq2[V, error]
	// Query works like IDict.Query on the table backing the sequence.
	Query(query string, params []any, refs ...Flusher) (rows [][]any, err error)
	// TableName returns the name of the table backing the sequence.
	TableName() string
	// Close flushes all pending entries and releases the connection.
	Close() (err error)
}
