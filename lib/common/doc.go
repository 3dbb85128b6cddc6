// Package common provides utilities shared by the library packages and the
// command-line interface.
//
// Key Components:
//
//   - Logger: Custom logging implementation for Dragonboat's logger facade
//     (github.com/lni/dragonboat/v4/logger). The library packages obtain their
//     loggers with logger.GetLogger; InitLoggers installs the factory and sets
//     the level for all of them.
//
//   - SpillConfig: The configuration the CLI assembles from flags and
//     environment variables, with a String method for printing it and
//     ToStoreConfig for turning it into a store.Config.
package common
