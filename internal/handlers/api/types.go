package api

import (
	"filedrop/server/internal/filestore"
	"filedrop/server/internal/upload"
)

// FileHandlers manages HTTP endpoints for file operations
// It coordinates uploads through the pipeline and listings and
// downloads through the underlying filestore.
type FileHandlers struct {
	pipeline  *upload.Pipeline
	fileStore *filestore.FileStore
}

// FileEntry is the listing shape returned by the file listing
// endpoints.
type FileEntry struct {
	UserID         string `json:"user_id"`
	Filename       string `json:"filename"`
	StoredFilename string `json:"stored_filename"`
	URL            string `json:"url"`
}
