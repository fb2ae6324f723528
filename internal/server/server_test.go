package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"docstore/internal/api"
	"docstore/internal/auth"
	"docstore/internal/blobstore"
	"docstore/internal/content"
	"docstore/internal/converter"
	"docstore/internal/formats"
	"docstore/internal/rendition"
	"docstore/internal/store"
)

type testEnv struct {
	srv     *Server
	store   *store.Store
	blobs   *blobstore.LocalStore
	content *content.Service
	engine  *rendition.Engine
}

// fakeOffice renders ODF input that starts with the zip magic and rejects
// anything else as unreadable.
func fakeOffice(_ context.Context, in io.Reader, out io.Writer, source, _ string) error {
	data, err := io.ReadAll(in)
	if err != nil {
		return err
	}
	if source == "odt" && !bytes.HasPrefix(data, []byte("PK")) {
		return &converter.ConversionError{Source: source, Target: "pdf", Reason: "source file could not be loaded"}
	}
	_, err = fmt.Fprintf(out, "%%PDF-1.4\n%% %d bytes of %s\n%%%%EOF\n", len(data), source)
	return err
}

func newTestEnv(t testing.TB, conv converter.Converter, opts Options) testEnv {
	t.Helper()
	dir := t.TempDir()

	st, err := store.Open(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	blobs, err := blobstore.NewLocalStore(filepath.Join(dir, "blobs"))
	if err != nil {
		t.Fatalf("open blob store: %v", err)
	}
	reg, err := formats.Load(context.Background(), st)
	if err != nil {
		t.Fatalf("load formats: %v", err)
	}
	contentSvc := content.NewService(st, blobs, reg, nil)

	if conv == nil {
		conv = converter.NewFunc(fakeOffice,
			converter.Pair{Source: "odt", Target: "pdf"},
			converter.Pair{Source: "txt", Target: "pdf"},
		)
	}
	engine, err := rendition.New(rendition.Deps{
		Store:     st,
		Blobs:     blobs,
		Formats:   reg,
		Content:   contentSvc,
		Converter: conv,
	}, rendition.Options{Workers: 1, QueueSize: 4})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	engine.Start()
	t.Cleanup(engine.Close)

	opts.Converter = conv
	if opts.ConverterName == "" {
		opts.ConverterName = "fake"
	}
	srv := New("127.0.0.1:0", st, contentSvc, engine, opts, nil)
	return testEnv{srv: srv, store: st, blobs: blobs, content: contentSvc, engine: engine}
}

func (e testEnv) do(t testing.TB, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(w, req)
	return w
}

func (e testEnv) upload(t testing.TB, docID, filename string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	part, err := mw.CreateFormFile("content", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/v1/documents/"+docID+"/content", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(w, req)
	return w
}

func (e testEnv) createDocument(t testing.TB, name string) api.DocumentResponse {
	t.Helper()
	w := e.do(t, http.MethodPost, "/v1/documents", api.DocumentCreateRequest{Name: name})
	if w.Code != http.StatusCreated {
		t.Fatalf("create document: expected 201, got %d (%s)", w.Code, w.Body.String())
	}
	var doc api.DocumentResponse
	decodeBody(t, w, &doc)
	return doc
}

func decodeBody(t testing.TB, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
}

func expectError(t testing.TB, w *httptest.ResponseRecorder, status, errorCode int) api.ErrorResponse {
	t.Helper()
	if w.Code != status {
		t.Fatalf("expected %d, got %d (%s)", status, w.Code, w.Body.String())
	}
	var errResp api.ErrorResponse
	decodeBody(t, w, &errResp)
	if errResp.ErrorCode != errorCode {
		t.Fatalf("expected error_code %d, got %d (%s)", errorCode, errResp.ErrorCode, errResp.Error)
	}
	return errResp
}

func validODT() []byte {
	return append([]byte("PK\x03\x04"), bytes.Repeat([]byte("x"), 64)...)
}

func TestListenAddrRemoteGuard(t *testing.T) {
	t.Run("allows loopback", func(t *testing.T) {
		t.Setenv(allowRemoteEnvKey, "")
		addr, err := ListenAddr("http://127.0.0.1:7341")
		if err != nil {
			t.Fatalf("expected loopback to be allowed, got error: %v", err)
		}
		if addr != "127.0.0.1:7341" {
			t.Fatalf("unexpected addr: %s", addr)
		}
	})

	t.Run("blocks non-loopback by default", func(t *testing.T) {
		t.Setenv(allowRemoteEnvKey, "")
		if _, err := ListenAddr("http://0.0.0.0:7341"); err == nil {
			t.Fatal("expected error for non-loopback listen host")
		}
	})

	t.Run("allows non-loopback when explicitly enabled", func(t *testing.T) {
		t.Setenv(allowRemoteEnvKey, "true")
		addr, err := ListenAddr("http://0.0.0.0:7341")
		if err != nil {
			t.Fatalf("expected allow-remote to permit host, got error: %v", err)
		}
		if addr != "0.0.0.0:7341" {
			t.Fatalf("unexpected addr: %s", addr)
		}
	})
}

func TestWithAuth(t *testing.T) {
	newHandler := func(called *bool) http.Handler {
		verifier, err := auth.NewVerifier("token", "")
		if err != nil {
			t.Fatalf("new verifier: %v", err)
		}
		srv := &Server{auth: verifier}
		return srv.withAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			*called = true
			w.WriteHeader(http.StatusNoContent)
		}))
	}

	tests := []struct {
		name       string
		path       string
		header     string
		wantStatus int
	}{
		{name: "denies missing auth", path: "/v1/documents", wantStatus: http.StatusUnauthorized},
		{name: "denies wrong token", path: "/v1/documents", header: "Bearer nope", wantStatus: http.StatusUnauthorized},
		{name: "denies wrong scheme", path: "/v1/documents", header: "Basic token", wantStatus: http.StatusUnauthorized},
		{name: "allows valid auth", path: "/v1/documents", header: "Bearer token", wantStatus: http.StatusNoContent},
		{name: "scheme is case insensitive", path: "/v1/documents", header: "bearer token", wantStatus: http.StatusNoContent},
		{name: "health is open", path: "/health", wantStatus: http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			newHandler(&called).ServeHTTP(w, req)
			if w.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, w.Code)
			}
			if called != (tt.wantStatus == http.StatusNoContent) {
				t.Fatalf("unexpected next call state: %v", called)
			}
			if tt.wantStatus == http.StatusUnauthorized {
				var errResp api.ErrorResponse
				decodeBody(t, w, &errResp)
				if errResp.ErrorCode != ErrCodeUnauthorized {
					t.Fatalf("expected error_code %d, got %d", ErrCodeUnauthorized, errResp.ErrorCode)
				}
			}
		})
	}
}

func TestWithAuthAcceptsHashedToken(t *testing.T) {
	token := "hashed-token-0123456789"
	hash, err := auth.HashToken(token)
	if err != nil {
		t.Fatalf("hash token: %v", err)
	}
	verifier, err := auth.NewVerifier("", hash)
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	env := newTestEnv(t, nil, Options{Auth: verifier})

	req := httptest.NewRequest(http.MethodGet, "/v1/formats", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	env.srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodGet, "/v1/formats", nil)
	expectError(t, w, http.StatusUnauthorized, ErrCodeUnauthorized)
	if w.Header().Get("WWW-Authenticate") == "" {
		t.Fatal("expected WWW-Authenticate challenge")
	}
}

func TestRequestLoggingSetsRequestID(t *testing.T) {
	env := newTestEnv(t, nil, Options{})

	w := env.do(t, http.MethodGet, "/v1/formats", nil)
	if w.Header().Get(requestIDHeader) == "" {
		t.Fatal("expected generated request id")
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/formats", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	env.srv.Handler().ServeHTTP(w, req)
	if got := w.Header().Get(requestIDHeader); got != "abc-123" {
		t.Fatalf("expected propagated request id, got %q", got)
	}
}

func TestInfoAndFormats(t *testing.T) {
	env := newTestEnv(t, nil, Options{DBPath: "/data/docs.db", BlobRoot: "/data/blobs"})
	env.createDocument(t, "report")

	w := env.do(t, http.MethodGet, "/v1/info", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	var info api.InfoResponse
	decodeBody(t, w, &info)
	if info.Documents != 1 || info.Contents != 0 {
		t.Fatalf("unexpected counts: %+v", info)
	}
	if info.DBPath != "/data/docs.db" || info.BlobRoot != "/data/blobs" || info.Converter != "fake" {
		t.Fatalf("unexpected info: %+v", info)
	}
	if !info.ConverterAvailable || info.SchemaVersion == 0 || info.Formats == 0 {
		t.Fatalf("unexpected info: %+v", info)
	}
	if info.Rendition.Workers != 1 {
		t.Fatalf("expected 1 worker, got %d", info.Rendition.Workers)
	}

	w = env.do(t, http.MethodGet, "/v1/formats", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"extension":"pdf"`) {
		t.Fatalf("expected pdf in formats: %s", w.Body.String())
	}
}

func TestErrorResponsesHideInternalDetail(t *testing.T) {
	srv := &Server{}
	w := httptest.NewRecorder()
	srv.writeErrorReq(w, nil, http.StatusInternalServerError, storeFailure(fmt.Errorf("disk on fire at /var/lib")))

	var errResp api.ErrorResponse
	decodeBody(t, w, &errResp)
	if errResp.Error != "internal error" || errResp.ErrorCode != ErrCodeStoreFailure {
		t.Fatalf("unexpected error response: %+v", errResp)
	}
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	env := newTestEnv(t, nil, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- env.srv.ListenAndServe(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
