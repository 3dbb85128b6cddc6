// Package cmd implements the command-line interface of spillkv. The commands
// are small tools built on the collection and sequence packages and double as
// their end-to-end exercise.
//
// The package is organized into several subpackages:
//
//   - count: Count duplicate lines of inputs larger than memory (collection + extra column)
//   - stage: Stage lines in a sequence and select them with SQL (sequence + indexed columns)
//   - perf: Benchmarks with latency percentiles for a given cache configuration
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See spillkv -help for a list of all commands.
package cmd
