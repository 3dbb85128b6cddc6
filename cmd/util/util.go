package util

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ValentinKolb/spillkv/lib/common"
	"github.com/ValentinKolb/spillkv/lib/store"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupStoreFlags adds the collection flags shared by all commands
func SetupStoreFlags(cmd *cobra.Command) {
	key := "db"
	cmd.PersistentFlags().String(key, "", WrapString("The SQLite file to spill to. If empty, a temporary file is used and removed afterwards"))

	key = "table"
	cmd.PersistentFlags().String(key, store.DefaultTableName, WrapString("The table to create in the database file. The table must not exist yet"))

	key = "cache-size"
	cmd.PersistentFlags().Int(key, store.DefaultCacheMaxSize, WrapString("How many entries are kept in memory before the coldest ones are written to the database (0 disables the cache)"))

	key = "batch-size"
	cmd.PersistentFlags().Int(key, store.DefaultCacheEvictionBatchSize, WrapString("How many entries are written per eviction"))

	key = "serializer"
	cmd.PersistentFlags().String(key, "gob", WrapString("serializer to use for the values (json, gob, yaml, binary)"))

	key = "log-level"
	cmd.PersistentFlags().String(key, "warn", WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))

	key = "metrics"
	cmd.PersistentFlags().Bool(key, false, WrapString("Print the cache metrics in the Prometheus text format after the command finished"))
}

// InitConfig initializes configuration from environment variables
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("spillkv")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// GetSpillConfig reads the collection configuration from viper
func GetSpillConfig() common.SpillConfig {
	return common.SpillConfig{
		Filename:               viper.GetString("db"),
		TableName:              viper.GetString("table"),
		CacheMaxSize:           viper.GetInt("cache-size"),
		CacheEvictionBatchSize: viper.GetInt("batch-size"),
		Serializer:             viper.GetString("serializer"),
		LogLevel:               viper.GetString("log-level"),
		Metrics:                viper.GetBool("metrics"),
	}
}

// PrepareRun binds the flags, sets up the loggers and returns the
// configuration. An empty database path is replaced by a file in a fresh
// temporary directory; cleanup removes it again and must always be called.
func PrepareRun(cmd *cobra.Command) (conf common.SpillConfig, cleanup func(), err error) {
	cleanup = func() {}

	if err := BindCommandFlags(cmd); err != nil {
		return conf, cleanup, err
	}
	conf = GetSpillConfig()

	if err := common.InitLoggers(conf.LogLevel); err != nil {
		return conf, cleanup, err
	}

	if conf.Filename == "" {
		dir, err := os.MkdirTemp("", "spillkv-*")
		if err != nil {
			return conf, cleanup, fmt.Errorf("create temporary directory: %w", err)
		}
		conf.Filename = filepath.Join(dir, "spill.db")
		cleanup = func() {
			_ = os.RemoveAll(dir)
		}
	}

	return conf, cleanup, nil
}

// Lines calls fn for every line of the named files, or of stdin if no file is
// given. Reading stops at the first error returned by fn.
func Lines(stdin io.Reader, files []string, fn func(line string) error) error {
	if len(files) == 0 {
		return scanLines(stdin, fn)
	}

	for _, name := range files {
		f, err := os.Open(name)
		if err != nil {
			return err
		}
		err = scanLines(f, fn)
		f.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

func scanLines(r io.Reader, fn func(line string) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		if err := fn(scanner.Text()); err != nil {
			return err
		}
	}
	return scanner.Err()
}
