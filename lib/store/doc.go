// Package store provides the shared types of the file-backed collections:
// the IDict and IList interfaces, the construction Config and the unified
// error type.
//
// A file-backed collection keeps hot entries in an in-memory LRU cache and
// spills cold entries to a table of an embedded SQLite file. It is meant for
// pipelines that handle more data than comfortably fits in memory, but still
// need dict- and list-like random access with low latency for hot keys.
//
// The package focuses on:
//   - A unified interface for the dict-like Collection and the list-like Sequence
//   - Configuration with validated defaults (see DefaultConfig)
//   - Standardized error reporting with typed codes
//
// Key Components:
//
//   - IDict Interface: dict-like access (Get, Set, Delete, Keys, Len) plus
//     Flush and the Query escape hatch for plain SQL against the backing table.
//
//   - IList Interface: append-only, list-like access with bounds-checked
//     indices. The length lives in memory only.
//
//   - Config: filename, table name, serializer, extra columns, cache size and
//     eviction batch size. Extra columns are computed from a value when the
//     value is written to the database and are indexed, which makes them the
//     way to filter values with Query.
//
//   - Error System: every failure is an *Error with an ErrCode. The sentinel
//     values (ErrNotFound, ErrOutOfRange, ...) only carry a code, so
//     errors.Is(err, store.ErrNotFound) matches any not-found error.
//
// Implementations:
//
//	- Collection: "github.com/ValentinKolb/spillkv/lib/store/collection"
//	- Sequence: "github.com/ValentinKolb/spillkv/lib/store/sequence"
//
//	Both borrow their connection from a conn.Registry
//	("github.com/ValentinKolb/spillkv/lib/store/conn"), so all collections of a
//	file share one connection and can be queried together.
//
// Thread Safety:
//
//	Collections and sequences are not safe for concurrent use. Only the
//	conn.Registry may be shared between goroutines.
package store
