package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"regexp"
	"testing"

	"github.com/go-chi/chi/v5"

	"filedrop/server/internal/filestore"
	"filedrop/server/internal/upload"
)

const testBaseURL = "http://127.0.0.1:8000"

func newTestRouter(t *testing.T, maxSize int64) (chi.Router, *filestore.FileStore) {
	t.Helper()
	store, err := filestore.New(t.TempDir())
	if err != nil {
		t.Fatalf("filestore.New failed: %v", err)
	}

	validator := upload.NewValidator(maxSize, []string{"pdf", "txt", "png"})
	pipeline := upload.NewPipeline(validator, store, nil, testBaseURL)
	h := NewFileHandlers(pipeline, store)

	r := chi.NewRouter()
	r.Post("/upload", h.HandleUpload)
	r.Get("/files/all", h.HandleListAll)
	r.Get("/files/{userID}", h.HandleListOwner)
	r.Get("/files/{userID}/{filename}", h.HandleDownload)
	return r, store
}

func multipartBody(t *testing.T, userID, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	if userID != "" {
		if err := mw.WriteField("user_id", userID); err != nil {
			t.Fatalf("write field failed: %v", err)
		}
	}
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file failed: %v", err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatalf("write file part failed: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer failed: %v", err)
	}
	return body, mw.FormDataContentType()
}

func postUpload(t *testing.T, ts *httptest.Server, userID, filename string, content []byte) *http.Response {
	t.Helper()
	body, contentType := multipartBody(t, userID, filename, content)
	resp, err := ts.Client().Post(ts.URL+"/upload", contentType, body)
	if err != nil {
		t.Fatalf("POST /upload failed: %v", err)
	}
	return resp
}

func TestUploadRoundTrip(t *testing.T) {
	r, _ := newTestRouter(t, 1024)
	ts := httptest.NewServer(r)
	defer ts.Close()

	content := []byte("hello upload")
	resp := postUpload(t, ts, "alice", "report.pdf", content)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected 200, got %d body=%s", resp.StatusCode, string(b))
	}

	var result upload.Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode response failed: %v", err)
	}
	if result.UserID != "alice" || result.Filename != "report.pdf" || result.FileID == "" {
		t.Fatalf("unexpected result: %+v", result)
	}

	// The returned URL must resolve to the stored bytes.
	u, err := url.Parse(result.URL)
	if err != nil {
		t.Fatalf("parse result url failed: %v", err)
	}
	dl, err := ts.Client().Get(ts.URL + u.Path)
	if err != nil {
		t.Fatalf("GET %s failed: %v", u.Path, err)
	}
	defer dl.Body.Close()
	if dl.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 downloading %s, got %d", u.Path, dl.StatusCode)
	}
	got, err := io.ReadAll(dl.Body)
	if err != nil {
		t.Fatalf("read download failed: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Fatalf("downloaded content differs from upload")
	}
}

func TestUploadMissingUserID(t *testing.T) {
	r, store := newTestRouter(t, 1024)
	ts := httptest.NewServer(r)
	defer ts.Close()

	resp := postUpload(t, ts, "", "report.pdf", []byte("x"))
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	assertStorageEmpty(t, store)
}

func TestUploadDisallowedExtension(t *testing.T) {
	r, store := newTestRouter(t, 1024)
	ts := httptest.NewServer(r)
	defer ts.Close()

	resp := postUpload(t, ts, "alice", "malware.exe", []byte("MZ"))
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	assertStorageEmpty(t, store)
}

func TestUploadTooLarge(t *testing.T) {
	r, store := newTestRouter(t, 16)
	ts := httptest.NewServer(r)
	defer ts.Close()

	resp := postUpload(t, ts, "alice", "big.txt", make([]byte, 64))
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", resp.StatusCode)
	}
	assertStorageEmpty(t, store)
}

func TestUploadMissingFilePart(t *testing.T) {
	r, _ := newTestRouter(t, 1024)
	ts := httptest.NewServer(r)
	defer ts.Close()

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	if err := mw.WriteField("user_id", "alice"); err != nil {
		t.Fatalf("write field failed: %v", err)
	}
	mw.Close()

	resp, err := ts.Client().Post(ts.URL+"/upload", mw.FormDataContentType(), body)
	if err != nil {
		t.Fatalf("POST /upload failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

// TestDownloadTraversalDenied invokes the download handler directly
// with injected route parameters, bypassing URL parsing so traversal
// payloads arrive exactly as written.
func TestDownloadTraversalDenied(t *testing.T) {
	store, err := filestore.New(t.TempDir())
	if err != nil {
		t.Fatalf("filestore.New failed: %v", err)
	}
	pipeline := upload.NewPipeline(upload.NewValidator(1024, []string{"txt"}), store, nil, testBaseURL)
	h := NewFileHandlers(pipeline, store)

	cases := []struct{ userID, filename string }{
		{"alice", "../../etc/passwd"},
		{"..", "passwd"},
		{"alice", ".."},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/files/x/y", nil)
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("userID", tc.userID)
		rctx.URLParams.Add("filename", tc.filename)
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

		rec := httptest.NewRecorder()
		h.HandleDownload(rec, req)

		if rec.Code != http.StatusForbidden {
			t.Errorf("(%q, %q): expected 403, got %d", tc.userID, tc.filename, rec.Code)
		}
		if bytes.Contains(rec.Body.Bytes(), []byte("passwd")) {
			t.Errorf("(%q, %q): response leaks path details: %s", tc.userID, tc.filename, rec.Body.String())
		}
	}
}

func TestDownloadNotFound(t *testing.T) {
	r, _ := newTestRouter(t, 1024)
	ts := httptest.NewServer(r)
	defer ts.Close()

	resp, err := ts.Client().Get(ts.URL + "/files/alice/missing.txt")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestListings(t *testing.T) {
	r, _ := newTestRouter(t, 1024)
	ts := httptest.NewServer(r)
	defer ts.Close()

	resp := postUpload(t, ts, "alice", "report.pdf", []byte("a"))
	resp.Body.Close()
	resp = postUpload(t, ts, "bob", "notes.txt", []byte("b"))
	resp.Body.Close()

	var aliceFiles []FileEntry
	getJSON(t, ts, "/files/alice", &aliceFiles)
	if len(aliceFiles) != 1 {
		t.Fatalf("expected 1 file for alice, got %d", len(aliceFiles))
	}
	entry := aliceFiles[0]
	if entry.Filename != "report.pdf" || entry.UserID != "alice" {
		t.Errorf("unexpected entry: %+v", entry)
	}
	if ok, _ := regexp.MatchString(`^[0-9a-f-]{36}_report\.pdf$`, entry.StoredFilename); !ok {
		t.Errorf("stored filename %q does not match {id}_report.pdf", entry.StoredFilename)
	}
	if entry.URL == "" {
		t.Errorf("expected a retrieval URL")
	}

	var all []FileEntry
	getJSON(t, ts, "/files/all", &all)
	if len(all) != 2 {
		t.Fatalf("expected 2 files in total, got %d", len(all))
	}

	var ghost []FileEntry
	getJSON(t, ts, "/files/ghost", &ghost)
	if len(ghost) != 0 {
		t.Fatalf("expected empty list for unknown owner, got %v", ghost)
	}
}

func getJSON(t *testing.T, ts *httptest.Server, path string, v any) {
	t.Helper()
	resp, err := ts.Client().Get(ts.URL + path)
	if err != nil {
		t.Fatalf("GET %s failed: %v", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s: expected 200, got %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode %s failed: %v", path, err)
	}
}

func assertStorageEmpty(t *testing.T, store *filestore.FileStore) {
	t.Helper()
	entries, err := os.ReadDir(store.BaseDir())
	if err != nil {
		t.Fatalf("read storage root failed: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected untouched storage root, found %d entries", len(entries))
	}
}
