// Package storage provides the backends of the engine's Storage port.
//
// Backends:
//   - Memory: slice and map in process memory
//   - File: memory plus a JSON document rewritten after every change
//   - Redis: grid as a list, players as hashes, ids from INCR
//   - Gorm: cells and players tables through GORM (MySQL in production)
//
// None of the backends serializes concurrent callers; the engine's owner does.
// Open builds a backend from command line options.
package storage
