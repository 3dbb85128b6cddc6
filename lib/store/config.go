package store

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/ValentinKolb/spillkv/lib/serializer"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	DefaultTableName              = "data"
	DefaultCacheMaxSize           = 2000
	DefaultCacheEvictionBatchSize = 200
)

// reserved column names of every collection table
const (
	KeyColumn   = "key"
	ValueColumn = "value"
)

var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// --------------------------------------------------------------------------
// Configuration
// --------------------------------------------------------------------------

// ColumnFunc computes the value of an extra column from a collection value.
// The result must be storable by SQLite: []byte, string, a sized or unsized
// integer, a float, a bool or nil. It is only called when an entry is
// written to the database.
type ColumnFunc[V any] func(value V) any

// Config holds all construction parameters of a collection or sequence.
type Config[V any] struct {
	// Filename is the database file. Collections with the same (absolute)
	// filename share one connection.
	Filename string
	// TableName must be unique within the file.
	TableName string
	// Serializer converts values to the bytes of the value column.
	Serializer serializer.ISerializer[V]
	// ExtraColumns maps column names to the functions computing them.
	// Every extra column gets its own index.
	ExtraColumns map[string]ColumnFunc[V]
	// CacheMaxSize is the number of entries kept in memory. Zero sends every
	// write straight to the database.
	CacheMaxSize int
	// CacheEvictionBatchSize is the number of entries written per eviction.
	CacheEvictionBatchSize int
}

// DefaultConfig returns the default configuration for a collection stored in filename.
func DefaultConfig[V any](filename string) Config[V] {
	return Config[V]{
		Filename:               filename,
		TableName:              DefaultTableName,
		Serializer:             serializer.NewGOBSerializer[V](),
		CacheMaxSize:           DefaultCacheMaxSize,
		CacheEvictionBatchSize: DefaultCacheEvictionBatchSize,
	}
}

// WithDefaults fills the table name and the serializer if they are unset.
func (c Config[V]) WithDefaults() Config[V] {
	if c.TableName == "" {
		c.TableName = DefaultTableName
	}
	if c.Serializer == nil {
		c.Serializer = serializer.NewGOBSerializer[V]()
	}
	return c
}

// Validate checks the configuration and returns an ErrConfiguration error
// describing the first problem found.
func (c Config[V]) Validate() error {
	if c.Filename == "" {
		return NewError(ErrCConfiguration, "filename must not be empty")
	}
	if c.CacheEvictionBatchSize <= 0 {
		return NewError(ErrCConfiguration, "cache eviction batch size must be positive")
	}
	if c.CacheMaxSize < 0 {
		return NewError(ErrCConfiguration, "cache max size must not be negative")
	}
	if !identifierRe.MatchString(c.TableName) {
		return NewError(ErrCConfiguration, fmt.Sprintf("invalid table name %q", c.TableName))
	}
	for name := range c.ExtraColumns {
		if name == KeyColumn || name == ValueColumn {
			return NewError(ErrCConfiguration, fmt.Sprintf("%q is a reserved column name", name))
		}
		if !identifierRe.MatchString(name) {
			return NewError(ErrCConfiguration, fmt.Sprintf("invalid column name %q", name))
		}
		if c.ExtraColumns[name] == nil {
			return NewError(ErrCConfiguration, fmt.Sprintf("column %q has no function", name))
		}
	}
	return nil
}

// ColumnNames returns the extra column names in sorted order. This is the
// column order used for the table schema and for every insert.
func (c Config[V]) ColumnNames() []string {
	names := make([]string, 0, len(c.ExtraColumns))
	for name := range c.ExtraColumns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
