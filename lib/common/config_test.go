package common

import (
	"errors"
	"strings"
	"testing"

	"github.com/ValentinKolb/spillkv/lib/store"
)

func TestToStoreConfig(t *testing.T) {
	c := SpillConfig{
		Filename:               "spill.db",
		CacheMaxSize:           10,
		CacheEvictionBatchSize: 5,
		Serializer:             "json",
	}
	cfg, err := ToStoreConfig[int64](c)
	if err != nil {
		t.Fatalf("Expected valid config: %v", err)
	}
	if cfg.TableName != store.DefaultTableName {
		t.Errorf("Expected default table name, got %s", cfg.TableName)
	}
	if cfg.CacheMaxSize != 10 || cfg.CacheEvictionBatchSize != 5 {
		t.Errorf("Cache settings not copied: %+v", cfg)
	}

	c.Serializer = "msgpack"
	if _, err := ToStoreConfig[int64](c); !errors.Is(err, store.ErrConfiguration) {
		t.Errorf("Expected configuration error for unknown serializer, got %v", err)
	}

	c.Serializer = "gob"
	c.CacheEvictionBatchSize = 0
	if _, err := ToStoreConfig[int64](c); !errors.Is(err, store.ErrConfiguration) {
		t.Errorf("Expected configuration error for zero batch size, got %v", err)
	}
}

func TestSpillConfigString(t *testing.T) {
	c := SpillConfig{Filename: "spill.db", TableName: "lines", Serializer: "gob", LogLevel: "info"}
	s := c.String()
	for _, want := range []string{"DATABASE", "CACHE", "LOGGING", "spill.db", "lines"} {
		if !strings.Contains(s, want) {
			t.Errorf("Expected %q in config output:\n%s", want, s)
		}
	}
}

func TestParseLogLevel(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "warning", "error", "INFO"} {
		if _, err := ParseLogLevel(level); err != nil {
			t.Errorf("Expected %s to be valid: %v", level, err)
		}
	}
	if _, err := ParseLogLevel("verbose"); err == nil {
		t.Errorf("Expected an error for an invalid level")
	}
}
