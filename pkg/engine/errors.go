package engine

import "errors"

var (
	// ErrFileNotFound is returned when a file does not exist or belongs to a
	// different user.
	ErrFileNotFound = errors.New("file not found")
	// ErrNoChunks is returned when a file record exists but no chunk
	// placements are recorded for it.
	ErrNoChunks = errors.New("no chunks recorded for file")
	// ErrChunkUnavailable is returned when a chunk cannot be fetched from its
	// recorded provider or any of its fallbacks.
	ErrChunkUnavailable = errors.New("chunk unavailable on all providers")
)
