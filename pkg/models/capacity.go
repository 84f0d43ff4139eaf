package models

// Candidate is one placement candidate in a capacity snapshot: a linked
// account together with the bytes it can still hold. Snapshots are ephemeral
// and recomputed per planning operation.
type Candidate struct {
	AccountID int64    `json:"account_id"`
	Provider  Provider `json:"provider"`
	Available int64    `json:"available_bytes"`
}

// StorageInfoResponse reports the current capacity snapshot for a user.
type StorageInfoResponse struct {
	Accounts       []Candidate `json:"accounts"`
	TotalAvailable int64       `json:"total_available_bytes"`
}

// UploadResponse is returned after a successful upload.
type UploadResponse struct {
	FileID int64 `json:"file_id"`
}

// FileInfoResponse reports file metadata together with chunk placements.
type FileInfoResponse struct {
	File   *File   `json:"file"`
	Chunks []Chunk `json:"chunks"`
}
