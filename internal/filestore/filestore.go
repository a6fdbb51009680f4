package filestore

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// New creates a new FileStore instance rooted at baseDir
//
// Pre-conditions:
//   - baseDir is a writable location (created if absent)
//
// Post-conditions:
//   - The storage root exists on disk
//   - Returned FileStore resolves all paths relative to the canonical root
func New(baseDir string) (*FileStore, error) {
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, err
	}
	canonical, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, err
	}
	return &FileStore{baseDir: abs, canonicalBase: canonical}, nil
}

// BaseDir returns the absolute storage root.
func (fs *FileStore) BaseDir() string {
	return fs.baseDir
}

// Save persists the contents of src as a new file owned by ownerID.
// The owner's partition directory is created on first use; concurrent
// creation is safe because MkdirAll treats an existing directory as
// success. The stored name is {uuid}_{originalName}, so concurrent
// saves of the same name never overwrite each other.
//
// If the copy fails midway the partial file is removed best-effort and
// the error is returned.
func (fs *FileStore) Save(ownerID, originalName string, src io.Reader) (*StoredFile, error) {
	partition := filepath.Join(fs.baseDir, ownerID)
	if !within(fs.baseDir, partition) {
		return nil, ErrPathEscape
	}

	fileID := uuid.NewString()
	storedName := fileID + "_" + originalName
	path := filepath.Join(partition, storedName)
	if !within(partition, path) {
		return nil, ErrPathEscape
	}

	if err := os.MkdirAll(partition, 0755); err != nil {
		return nil, fmt.Errorf("failed to create partition for %s: %w", ownerID, err)
	}

	dst, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create destination file: %w", err)
	}

	written, err := io.Copy(dst, src)
	if err != nil {
		dst.Close()
		os.Remove(path)
		return nil, fmt.Errorf("failed to write file: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to finalize file: %w", err)
	}

	return &StoredFile{
		OwnerID:    ownerID,
		FileID:     fileID,
		Name:       originalName,
		StoredName: storedName,
		Size:       written,
	}, nil
}

// ListOwner returns the files stored for one owner. An unknown owner
// yields an empty slice, not an error.
func (fs *FileStore) ListOwner(ownerID string) ([]StoredFile, error) {
	files := make([]StoredFile, 0)

	partition := filepath.Join(fs.baseDir, ownerID)
	if !within(fs.baseDir, partition) {
		return nil, ErrPathEscape
	}

	entries, err := os.ReadDir(partition)
	if err != nil {
		if os.IsNotExist(err) {
			return files, nil
		}
		return nil, err
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		files = append(files, describe(ownerID, entry.Name()))
	}

	return files, nil
}

// ListAll returns every stored file across all owner partitions, in
// directory-discovery order.
func (fs *FileStore) ListAll() ([]StoredFile, error) {
	files := make([]StoredFile, 0)

	partitions, err := os.ReadDir(fs.baseDir)
	if err != nil {
		return nil, err
	}

	for _, partition := range partitions {
		if !partition.IsDir() {
			continue
		}
		ownerFiles, err := fs.ListOwner(partition.Name())
		if err != nil {
			continue
		}
		files = append(files, ownerFiles...)
	}

	return files, nil
}

// Resolve computes the on-disk path for a stored file and verifies it
// lies strictly inside the storage root. The check runs lexically first,
// then again on the symlink-resolved path, so traversal payloads in
// either ownerID or storedName are rejected before any existence
// information leaks.
//
// Returns ErrPathEscape on containment violation and ErrNotFound when
// the path is safe but absent.
func (fs *FileStore) Resolve(ownerID, storedName string) (string, error) {
	path := filepath.Join(fs.baseDir, ownerID, storedName)
	if !within(fs.baseDir, path) {
		return "", ErrPathEscape
	}

	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", err
	}
	if !within(fs.canonicalBase, resolved) {
		return "", ErrPathEscape
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return "", ErrNotFound
	}
	if info.IsDir() {
		return "", ErrNotFound
	}

	return resolved, nil
}

// ServeFile streams a stored file to the client with standard content
// headers, after the containment check in Resolve.
func (fs *FileStore) ServeFile(w http.ResponseWriter, r *http.Request, ownerID, storedName string) error {
	path, err := fs.Resolve(ownerID, storedName)
	if err != nil {
		return err
	}
	http.ServeFile(w, r, path)
	return nil
}

// OriginalName recovers the user-supplied display name from a stored
// name by stripping the generated id segment.
func OriginalName(storedName string) string {
	if _, rest, ok := strings.Cut(storedName, "_"); ok {
		return rest
	}
	return storedName
}

func describe(ownerID, storedName string) StoredFile {
	fileID := storedName
	if id, _, ok := strings.Cut(storedName, "_"); ok {
		fileID = id
	}
	return StoredFile{
		OwnerID:    ownerID,
		FileID:     fileID,
		Name:       OriginalName(storedName),
		StoredName: storedName,
	}
}

// within reports whether path sits strictly inside root. Both arguments
// must already be clean absolute paths (filepath.Join cleans).
func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	if rel == "." || rel == ".." {
		return false
	}
	return !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
