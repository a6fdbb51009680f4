package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"filedrop/server/internal/filestore"
	"filedrop/server/internal/upload"
)

// In-memory threshold for multipart parsing; larger payloads spill to
// the OS temp directory automatically.
const multipartMemory = 32 << 20

// NewFileHandlers creates a new file handlers instance
//
// Pre-conditions:
//   - pipeline and fileStore are properly initialized
//
// Post-conditions:
//   - Returns a configured FileHandlers instance ready to handle HTTP requests
func NewFileHandlers(pipeline *upload.Pipeline, fileStore *filestore.FileStore) *FileHandlers {
	return &FileHandlers{
		pipeline:  pipeline,
		fileStore: fileStore,
	}
}

// HandleUpload processes file upload requests
//
// Pre-conditions:
//   - Request is a POST multipart/form-data request
//   - Request carries one "file" part and one "user_id" field
//
// Post-conditions:
//   - On success the file is persisted, listeners are notified and the
//     response carries {file_id, filename, user_id, url}
//   - Missing identity or disallowed type returns 400, oversized
//     payloads return 413, storage failures return 500
func (h *FileHandlers) HandleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		errorJSON(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	ownerID := r.FormValue("user_id")

	file, header, err := r.FormFile("file")
	if err != nil {
		errorJSON(w, http.StatusBadRequest, "missing 'file' field")
		return
	}
	defer file.Close()

	// Strip any client-side path components from the display name.
	result, err := h.pipeline.Process(ownerID, filepath.Base(header.Filename), file)
	if err != nil {
		switch {
		case errors.Is(err, upload.ErrMissingOwner):
			errorJSON(w, http.StatusBadRequest, upload.ErrMissingOwner.Error())
		case errors.Is(err, upload.ErrDisallowedType):
			errorJSON(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, upload.ErrTooLarge):
			errorJSON(w, http.StatusRequestEntityTooLarge, err.Error())
		case errors.Is(err, filestore.ErrPathEscape):
			errorJSON(w, http.StatusBadRequest, "invalid user_id or filename")
		default:
			log.Printf("[UPLOAD] failed to store %s: %v", header.Filename, err)
			errorJSON(w, http.StatusInternalServerError, "failed to store file")
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// HandleListAll returns every stored file across all owners.
func (h *FileHandlers) HandleListAll(w http.ResponseWriter, r *http.Request) {
	files, err := h.fileStore.ListAll()
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "failed to list files")
		return
	}
	writeJSON(w, http.StatusOK, h.entries(files))
}

// HandleListOwner returns the files stored for one owner. An unknown
// owner yields an empty list.
func (h *FileHandlers) HandleListOwner(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "userID")

	files, err := h.fileStore.ListOwner(ownerID)
	if err != nil {
		if errors.Is(err, filestore.ErrPathEscape) {
			errorJSON(w, http.StatusForbidden, "access denied")
			return
		}
		errorJSON(w, http.StatusInternalServerError, "failed to list files")
		return
	}
	writeJSON(w, http.StatusOK, h.entries(files))
}

// HandleDownload streams a stored file
//
// Pre-conditions:
//   - Request URL carries userID and filename path parameters
//
// Post-conditions:
//   - File bytes are served with standard content headers
//   - Paths escaping the storage root return 403 without disclosing
//     the real path; absent files return 404
func (h *FileHandlers) HandleDownload(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "userID")
	storedName := chi.URLParam(r, "filename")

	err := h.fileStore.ServeFile(w, r, ownerID, storedName)
	if err != nil {
		switch {
		case errors.Is(err, filestore.ErrPathEscape):
			errorJSON(w, http.StatusForbidden, "access denied")
		case errors.Is(err, filestore.ErrNotFound):
			errorJSON(w, http.StatusNotFound, "file not found")
		default:
			errorJSON(w, http.StatusInternalServerError, "failed to serve file")
		}
	}
}

func (h *FileHandlers) entries(files []filestore.StoredFile) []FileEntry {
	entries := make([]FileEntry, 0, len(files))
	for _, f := range files {
		entries = append(entries, FileEntry{
			UserID:         f.OwnerID,
			Filename:       f.Name,
			StoredFilename: f.StoredName,
			URL:            h.pipeline.FileURL(f.OwnerID, f.StoredName),
		})
	}
	return entries
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func errorJSON(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
