package models

import "time"

// Chunk records where one contiguous byte range of a file was placed.
// Chunks of a file concatenated in insertion order reproduce the original
// byte stream exactly.
type Chunk struct {
	ID        int64    `json:"id"`
	FileID    int64    `json:"file_id"`
	ChunkID   string   `json:"chunk_id"`
	Provider  Provider `json:"provider"`
	AccountID int64    `json:"account_id"`

	// Fallbacks is the ordered list of provider types to probe with the same
	// chunk id when the recorded provider can no longer locate it. It is
	// decided at upload time, never inferred during download.
	Fallbacks []Provider `json:"fallbacks,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
