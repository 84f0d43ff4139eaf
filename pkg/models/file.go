package models

import "time"

// File is the metadata record for one stored file. The bytes themselves live
// as chunks on the linked provider accounts.
type File struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Extension string    `json:"extension,omitempty"`
	Size      int64     `json:"size"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Name returns the display name the file was uploaded under.
func (f *File) Name() string {
	if f.Extension == "" {
		return f.Title
	}
	return f.Title + "." + f.Extension
}
