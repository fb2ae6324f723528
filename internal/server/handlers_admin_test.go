package server

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"docstore/internal/api"
	"docstore/internal/apperr"
	"docstore/internal/rendition"
)

func TestAdminVerifyHealthy(t *testing.T) {
	env := newTestEnv(t, nil, Options{})
	uploadOriginal(t, env, "report.odt", validODT())

	w := env.do(t, http.MethodPost, "/v1/admin/verify", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	var resp api.VerifyResponse
	decodeBody(t, w, &resp)
	if !resp.Healthy || resp.Checked != 1 || !resp.DryRun {
		t.Fatalf("unexpected verify response: %+v", resp)
	}
	if resp.Problems == nil || resp.Orphans == nil {
		t.Fatal("expected empty lists rather than null")
	}
}

func TestAdminVerifyReportsAndSweepsOrphans(t *testing.T) {
	env := newTestEnv(t, nil, Options{})
	_, original := uploadOriginal(t, env, "report.odt", validODT())

	orphan := env.blobs.Allocate()
	if _, err := env.blobs.Write(t.Context(), orphan, bytes.NewBufferString("stray")); err != nil {
		t.Fatalf("write orphan: %v", err)
	}
	old := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(filepath.Join(env.blobs.Root(), filepath.FromSlash(orphan)), old, old); err != nil {
		t.Fatalf("age orphan: %v", err)
	}
	if err := os.WriteFile(filepath.Join(env.blobs.Root(), filepath.FromSlash(original.Location)), []byte("tampered"), 0o644); err != nil {
		t.Fatalf("tamper original: %v", err)
	}

	w := env.do(t, http.MethodPost, "/v1/admin/verify", api.VerifyRequest{})
	var report api.VerifyResponse
	decodeBody(t, w, &report)
	if report.Healthy || len(report.Orphans) != 1 || report.Orphans[0] != orphan || report.SweptCount != 0 {
		t.Fatalf("unexpected dry run report: %+v", report)
	}
	if len(report.Problems) != 1 || report.Problems[0].ContentID != original.ID || report.Problems[0].Issue != "size_mismatch" {
		t.Fatalf("unexpected problems: %+v", report.Problems)
	}

	w = env.do(t, http.MethodPost, "/v1/admin/verify", api.VerifyRequest{Sweep: true, OrphanGrace: "1m"})
	decodeBody(t, w, &report)
	if report.DryRun || report.SweptCount != 1 {
		t.Fatalf("expected orphan swept, got %+v", report)
	}
	if exists, err := env.blobs.Exists(t.Context(), orphan); err != nil || exists {
		t.Fatalf("expected orphan removed: exists=%v err=%v", exists, err)
	}

	expectError(t, env.do(t, http.MethodPost, "/v1/admin/verify", api.VerifyRequest{OrphanGrace: "soon"}), http.StatusBadRequest, ErrCodeInvalidDuration)
}

func TestClassifiedError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   int
	}{
		{name: "not found", err: apperr.Errorf(apperr.KindNotFound, "get", "missing"), wantStatus: http.StatusNotFound, wantCode: ErrCodeContentNotFound},
		{name: "invalid", err: apperr.Errorf(apperr.KindInvalid, "load", "bad"), wantStatus: http.StatusBadRequest, wantCode: ErrCodeInvalidArgument},
		{name: "format not found", err: apperr.Errorf(apperr.KindFormatNotFound, "find", "xyz"), wantStatus: http.StatusUnsupportedMediaType, wantCode: ErrCodeFormatNotFound},
		{name: "conversion failure", err: &rendition.Error{State: rendition.StateConverting, Err: apperr.E(apperr.KindConversionFailure, "convert", errors.New("boom"))}, wantStatus: http.StatusUnprocessableEntity, wantCode: ErrCodeConversionFailed},
		{name: "constraint", err: apperr.Errorf(apperr.KindConstraintFailure, "record", "owner gone"), wantStatus: http.StatusConflict, wantCode: ErrCodeConstraintFailure},
		{name: "corruption", err: apperr.Errorf(apperr.KindRepositoryCorruption, "pdf", "missing"), wantStatus: http.StatusInternalServerError, wantCode: ErrCodeRepositoryCorruption},
		{name: "storage", err: apperr.E(apperr.KindStorageFailure, "write", errors.New("disk full")), wantStatus: http.StatusInternalServerError, wantCode: ErrCodeStoreFailure},
		{name: "unclassified rendition", err: &rendition.Error{State: rendition.StateWriting, Err: errors.New("?")}, wantStatus: http.StatusInternalServerError, wantCode: ErrCodeInternal},
		{name: "plain", err: fmt.Errorf("boom"), wantStatus: http.StatusInternalServerError, wantCode: ErrCodeInternal},
		{name: "already api error", err: conflictCode(errors.New("stale"), ErrCodeStaleVersion), wantStatus: http.StatusConflict, wantCode: ErrCodeStaleVersion},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifiedError(tt.err, ErrCodeContentNotFound)
			if status := httpStatusFromError(got); status != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, status)
			}
			if code := errorNumericCode(tt.wantStatus, got); code != tt.wantCode {
				t.Fatalf("expected code %d, got %d", tt.wantCode, code)
			}
		})
	}
}
