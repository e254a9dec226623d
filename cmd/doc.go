// Package cmd implements the command-line interface for the previewcache
// artifact cache. It provides a hierarchical command structure for storing,
// retrieving, and managing cached preview artifacts in a local cache
// directory.
//
// The package is organized into several subpackages:
//
//   - artifact: Commands for cache operations (put, get, has, clear, stats, ...)
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// All flags can also be set through PREVIEWCACHE_-prefixed environment
// variables or an .env file in the working directory.
//
// See previewcache -help for a list of all commands.
package cmd
