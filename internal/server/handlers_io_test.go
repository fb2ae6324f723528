package server

import (
	"bytes"
	"net/http"
	"strings"
	"testing"

	"docstore/internal/api"
	"docstore/internal/models"
)

func TestUploadContentAndDownload(t *testing.T) {
	env := newTestEnv(t, nil, Options{})
	doc := env.createDocument(t, "report")
	data := validODT()

	w := env.upload(t, doc.ID, "Report.ODT", data)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", w.Code, w.Body.String())
	}
	var resp api.UploadResponse
	decodeBody(t, w, &resp)
	if !resp.Loaded || resp.Content == nil {
		t.Fatalf("unexpected upload response: %+v", resp)
	}
	c := resp.Content
	if c.Format.Extension != "odt" || c.Kind != models.ContentKindOriginal || c.SizeBytes != int64(len(data)) {
		t.Fatalf("unexpected content: %+v", c)
	}

	w = env.do(t, http.MethodGet, "/v1/contents/"+c.ID+"/raw", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	if !bytes.Equal(w.Body.Bytes(), data) {
		t.Fatal("downloaded bytes differ from upload")
	}
	if got := w.Header().Get("Content-Type"); got != "application/vnd.oasis.opendocument.text" {
		t.Fatalf("unexpected content type %q", got)
	}
	if !strings.Contains(w.Header().Get("Content-Disposition"), c.Name) {
		t.Fatalf("expected filename in disposition, got %q", w.Header().Get("Content-Disposition"))
	}

	w = env.do(t, http.MethodGet, "/v1/documents/"+doc.ID+"/contents", nil)
	var contents []models.Content
	decodeBody(t, w, &contents)
	if len(contents) != 1 || contents[0].ID != c.ID {
		t.Fatalf("unexpected contents: %+v", contents)
	}
}

func TestUploadContentSecondTimeIsIgnored(t *testing.T) {
	env := newTestEnv(t, nil, Options{})
	doc := env.createDocument(t, "report")

	first := env.upload(t, doc.ID, "report.odt", validODT())
	if first.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", first.Code, first.Body.String())
	}
	var firstResp api.UploadResponse
	decodeBody(t, first, &firstResp)

	second := env.upload(t, doc.ID, "other.txt", []byte("plain text"))
	if second.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", second.Code, second.Body.String())
	}
	var secondResp api.UploadResponse
	decodeBody(t, second, &secondResp)
	if secondResp.Loaded {
		t.Fatal("second upload must not load")
	}
	if secondResp.Content == nil || secondResp.Content.ID != firstResp.Content.ID {
		t.Fatalf("expected existing original, got %+v", secondResp.Content)
	}

	blobs, err := env.blobs.List(t.Context())
	if err != nil {
		t.Fatalf("list blobs: %v", err)
	}
	if len(blobs) != 1 {
		t.Fatalf("expected exactly one blob, got %d", len(blobs))
	}
}

func TestUploadContentErrors(t *testing.T) {
	env := newTestEnv(t, nil, Options{AllowedExtensions: []string{"odt", "txt", "xyz"}})
	doc := env.createDocument(t, "report")

	expectError(t, env.upload(t, doc.ID, "noext", []byte("x")), http.StatusBadRequest, ErrCodeInvalidExtension)
	expectError(t, env.upload(t, doc.ID, "sheet.ods", []byte("x")), http.StatusBadRequest, ErrCodeExtensionRejected)
	expectError(t, env.upload(t, doc.ID, "weird.xyz", []byte("x")), http.StatusUnsupportedMediaType, ErrCodeFormatNotFound)
	expectError(t, env.upload(t, models.NewID(), "report.odt", validODT()), http.StatusNotFound, ErrCodeDocumentNotFound)

	empty, err := env.blobs.IsEmpty()
	if err != nil {
		t.Fatalf("is empty: %v", err)
	}
	if !empty {
		t.Fatal("rejected uploads must not leave blobs")
	}
}

func TestUploadContentTooLarge(t *testing.T) {
	env := newTestEnv(t, nil, Options{MaxUploadBytes: 1024, MultipartMaxMemory: 512})
	doc := env.createDocument(t, "report")

	expectError(t, env.upload(t, doc.ID, "big.txt", bytes.Repeat([]byte("a"), 4096)), http.StatusRequestEntityTooLarge, ErrCodeRequestTooLarge)
}

func TestDownloadMissingBlobIsCorruption(t *testing.T) {
	env := newTestEnv(t, nil, Options{})
	doc := env.createDocument(t, "report")
	w := env.upload(t, doc.ID, "report.txt", []byte("hello"))
	var resp api.UploadResponse
	decodeBody(t, w, &resp)

	if err := env.blobs.Delete(t.Context(), resp.Content.Location); err != nil {
		t.Fatalf("delete blob: %v", err)
	}
	expectError(t, env.do(t, http.MethodGet, "/v1/contents/"+resp.Content.ID+"/raw", nil), http.StatusInternalServerError, ErrCodeRepositoryCorruption)
	expectError(t, env.do(t, http.MethodGet, "/v1/contents/"+models.NewID(), nil), http.StatusNotFound, ErrCodeContentNotFound)
}
