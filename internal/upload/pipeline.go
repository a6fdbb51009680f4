package upload

import (
	"io"
	"log"
	"net/url"
	"strings"

	"filedrop/server/internal/filestore"
	"filedrop/server/internal/metrics"
)

// Notifier receives the new-file signal after a successful upload.
type Notifier interface {
	NotifyNewFile()
}

// Result is returned to the uploader on success.
type Result struct {
	FileID   string `json:"file_id"`
	Filename string `json:"filename"`
	UserID   string `json:"user_id"`
	URL      string `json:"url"`
}

// Pipeline orchestrates an upload: validation, persistence, then
// notification. Validation failures leave the filesystem untouched;
// notification failures never affect an already-persisted file.
type Pipeline struct {
	validator *Validator
	store     *filestore.FileStore
	notifier  Notifier
	baseURL   string
}

// NewPipeline wires the upload pipeline. notifier may be nil, in which
// case uploads are persisted without any fan-out.
func NewPipeline(validator *Validator, store *filestore.FileStore, notifier Notifier, baseURL string) *Pipeline {
	return &Pipeline{
		validator: validator,
		store:     store,
		notifier:  notifier,
		baseURL:   strings.TrimRight(baseURL, "/"),
	}
}

// Process runs one upload through the pipeline
//
// Pre-conditions:
//   - src is positioned at the start of the payload and supports seeking
//
// Post-conditions:
//   - On success the file is persisted under the owner's partition,
//     every connected listener has been offered a new_file event, and
//     the returned Result carries the retrieval URL
//   - On validation failure nothing was written and no partition
//     directory was created
func (p *Pipeline) Process(ownerID, filename string, src io.ReadSeeker) (*Result, error) {
	if err := p.validator.Validate(ownerID, filename, src); err != nil {
		metrics.UploadsTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}

	stored, err := p.store.Save(ownerID, filename, src)
	if err != nil {
		metrics.UploadsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	metrics.UploadsTotal.WithLabelValues("accepted").Inc()
	metrics.UploadBytesTotal.Add(float64(stored.Size))
	log.Printf("[UPLOAD] stored %s for %s (%d bytes)", stored.StoredName, ownerID, stored.Size)

	// Best-effort fan-out; a dead listener must not fail the upload.
	if p.notifier != nil {
		p.notifier.NotifyNewFile()
	}

	return &Result{
		FileID:   stored.FileID,
		Filename: stored.Name,
		UserID:   ownerID,
		URL:      p.FileURL(ownerID, stored.StoredName),
	}, nil
}

// FileURL builds the retrieval URL for a stored file.
func (p *Pipeline) FileURL(ownerID, storedName string) string {
	return p.baseURL + "/files/" + url.PathEscape(ownerID) + "/" + url.PathEscape(storedName)
}
