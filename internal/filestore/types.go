package filestore

import "errors"

// FileStore handles owner-partitioned file storage for the application.
// Each owner gets one subdirectory under the storage root, created lazily
// on first upload; stored files are named {uuid}_{original_name}.
type FileStore struct {
	baseDir string
	// baseDir with symlinks resolved, used as the reference for
	// containment checks on download paths.
	canonicalBase string
}

// StoredFile describes one file persisted in the store.
type StoredFile struct {
	OwnerID    string `json:"user_id"`
	FileID     string `json:"file_id"`
	Name       string `json:"filename"`
	StoredName string `json:"stored_filename"`
	Size       int64  `json:"-"`
}

var (
	// ErrPathEscape indicates a requested path would resolve outside the
	// storage root.
	ErrPathEscape = errors.New("path escapes storage root")

	// ErrNotFound indicates the requested file does not exist in the store.
	ErrNotFound = errors.New("file not found")
)
