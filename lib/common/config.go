package common

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ValentinKolb/spillkv/lib/serializer"
	"github.com/ValentinKolb/spillkv/lib/store"
)

// --------------------------------------------------------------------------
// CLI configuration struct
// --------------------------------------------------------------------------

// SpillConfig holds the configuration the CLI commands build their
// collections from.
type SpillConfig struct {
	// database settings
	Filename  string
	TableName string

	// cache settings
	CacheMaxSize           int
	CacheEvictionBatchSize int

	// value encoding (json, gob, yaml, binary)
	Serializer string

	// Logging configuration
	LogLevel string

	// print the collection metrics after the command finished
	Metrics bool
}

// ToStoreConfig converts the CLI configuration into a collection configuration
// for values of type V.
func ToStoreConfig[V any](c SpillConfig) (store.Config[V], error) {
	s, err := serializer.ByName[V](c.Serializer)
	if err != nil {
		return store.Config[V]{}, store.WrapError(store.ErrCConfiguration, "serializer", err)
	}
	cfg := store.Config[V]{
		Filename:               c.Filename,
		TableName:              c.TableName,
		Serializer:             s,
		CacheMaxSize:           c.CacheMaxSize,
		CacheEvictionBatchSize: c.CacheEvictionBatchSize,
	}.WithDefaults()
	return cfg, cfg.Validate()
}

// String returns a formatted string representation of the configuration
func (c *SpillConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Database")
	addField("File", c.Filename)
	addField("Table", c.TableName)

	addSection("Cache")
	addField("Max Size", strconv.Itoa(c.CacheMaxSize))
	addField("Eviction Batch Size", strconv.Itoa(c.CacheEvictionBatchSize))
	addField("Serializer", c.Serializer)

	addSection("Logging")
	addField("Log Level", c.LogLevel)
	addField("Print Metrics", strconv.FormatBool(c.Metrics))

	return sb.String()
}
