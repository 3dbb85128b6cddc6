package store

import (
	"errors"
	"reflect"
	"testing"
)

func validConfig() Config[string] {
	return DefaultConfig[string]("/tmp/spill.db")
}

func TestDefaultConfig(t *testing.T) {
	c := validConfig()
	if c.TableName != DefaultTableName {
		t.Errorf("Expected table name %s, got %s", DefaultTableName, c.TableName)
	}
	if c.CacheMaxSize != DefaultCacheMaxSize || c.CacheEvictionBatchSize != DefaultCacheEvictionBatchSize {
		t.Errorf("Unexpected cache defaults: %d/%d", c.CacheMaxSize, c.CacheEvictionBatchSize)
	}
	if c.Serializer == nil {
		t.Errorf("Expected a default serializer")
	}
	if err := c.Validate(); err != nil {
		t.Errorf("Expected default config to be valid: %v", err)
	}
}

func TestWithDefaults(t *testing.T) {
	c := Config[int64]{Filename: "x.db", CacheEvictionBatchSize: 1}.WithDefaults()
	if c.TableName != DefaultTableName {
		t.Errorf("Expected table name %s, got %s", DefaultTableName, c.TableName)
	}
	if c.Serializer == nil {
		t.Errorf("Expected a default serializer")
	}
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name   string
		modify func(c *Config[string])
	}{
		{"empty filename", func(c *Config[string]) { c.Filename = "" }},
		{"zero batch size", func(c *Config[string]) { c.CacheEvictionBatchSize = 0 }},
		{"negative batch size", func(c *Config[string]) { c.CacheEvictionBatchSize = -3 }},
		{"negative cache size", func(c *Config[string]) { c.CacheMaxSize = -1 }},
		{"reserved key column", func(c *Config[string]) {
			c.ExtraColumns = map[string]ColumnFunc[string]{"key": func(string) any { return nil }}
		}},
		{"reserved value column", func(c *Config[string]) {
			c.ExtraColumns = map[string]ColumnFunc[string]{"value": func(string) any { return nil }}
		}},
		{"invalid column name", func(c *Config[string]) {
			c.ExtraColumns = map[string]ColumnFunc[string]{"a b": func(string) any { return nil }}
		}},
		{"nil column function", func(c *Config[string]) {
			c.ExtraColumns = map[string]ColumnFunc[string]{"size": nil}
		}},
		{"invalid table name", func(c *Config[string]) { c.TableName = "data; DROP TABLE x" }},
		{"empty table name", func(c *Config[string]) { c.TableName = "" }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := validConfig()
			tc.modify(&c)
			err := c.Validate()
			if !errors.Is(err, ErrConfiguration) {
				t.Errorf("Expected a configuration error, got %v", err)
			}
		})
	}

	t.Run("zero cache size is valid", func(t *testing.T) {
		c := validConfig()
		c.CacheMaxSize = 0
		if err := c.Validate(); err != nil {
			t.Errorf("Expected zero cache size to be valid: %v", err)
		}
	})
}

func TestColumnNames(t *testing.T) {
	c := validConfig()
	c.ExtraColumns = map[string]ColumnFunc[string]{
		"size":     func(v string) any { return len(v) },
		"platform": func(v string) any { return v },
		"env":      func(v string) any { return v },
	}
	expected := []string{"env", "platform", "size"}
	for i := 0; i < 10; i++ {
		if names := c.ColumnNames(); !reflect.DeepEqual(names, expected) {
			t.Fatalf("Expected %v, got %v", expected, names)
		}
	}
}

func TestErrorIs(t *testing.T) {
	cause := errors.New("table data already exists")
	err := WrapError(ErrCSchemaConflict, "create table data", cause)

	if !errors.Is(err, ErrSchemaConflict) {
		t.Errorf("Expected error to match ErrSchemaConflict")
	}
	if errors.Is(err, ErrNotFound) {
		t.Errorf("Expected error not to match ErrNotFound")
	}
	if !errors.Is(err, cause) {
		t.Errorf("Expected error to wrap its cause")
	}

	var storeErr *Error
	if !errors.As(err, &storeErr) || storeErr.Code != ErrCSchemaConflict {
		t.Errorf("Expected errors.As to extract the store error")
	}
	if got := NewError(ErrCNotFound, "key").Error(); got != "StoreError (code NotFound): key" {
		t.Errorf("Unexpected error message %q", got)
	}
}
