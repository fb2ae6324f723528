package main

import (
	"context"
	"fmt"
	"net"
	"testing"

	"docstore/internal/api"
)

func TestFormatCLIError_NetworkGuidance(t *testing.T) {
	err := &net.DNSError{Err: "dial tcp: connection refused", Name: "127.0.0.1", IsTemporary: true}
	lines := formatCLIError(err)
	if !containsLine(lines, "hint: ensure a docstore server is running at DOCSTORE_API_URL.") {
		t.Fatalf("expected connectivity guidance, got %v", lines)
	}
	if !containsLine(lines, "hint: start local server manually with: docstore srv") {
		t.Fatalf("expected manual-start guidance, got %v", lines)
	}
}

func TestFormatCLIError_APIUnknownServiceGuidance(t *testing.T) {
	err := &api.APIError{Status: 404, Message: "api error: 404 Not Found"}
	lines := formatCLIError(err)
	if !containsLine(lines, "hint: verify DOCSTORE_API_URL points to a docstore server.") {
		t.Fatalf("expected api-url guidance, got %v", lines)
	}
}

func TestFormatCLIError_APIAuthGuidance(t *testing.T) {
	err := &api.APIError{Status: 401, Code: "unauthorized", Message: "unauthorized"}
	lines := formatCLIError(err)
	if !containsLine(lines, "hint: verify DOCSTORE_API_TOKEN matches the server's api_token or api_token_hash.") {
		t.Fatalf("expected auth guidance, got %v", lines)
	}
}

func TestFormatCLIError_DomainGuidance(t *testing.T) {
	tests := []struct {
		code string
		hint string
	}{
		{code: "format_not_found", hint: "hint: list known formats with: docstore formats"},
		{code: "repository_corruption", hint: "hint: run docstore verify to audit the database against the blob store."},
		{code: "resource_exhausted", hint: "hint: retry shortly; the rendition queue or upload slots are busy."},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			lines := formatCLIError(&api.APIError{Status: 400, Code: tt.code, Message: "x"})
			if !containsLine(lines, tt.hint) {
				t.Fatalf("expected %q, got %v", tt.hint, lines)
			}
		})
	}
}

func TestFormatCLIError_APIInternalGuidance(t *testing.T) {
	err := &api.APIError{Status: 500, Code: "internal", Message: "internal error"}
	lines := formatCLIError(err)
	if !containsLine(lines, "hint: server returned an internal error; check server logs for details.") {
		t.Fatalf("expected internal-error guidance, got %v", lines)
	}
}

func TestFormatCLIError_Timeout(t *testing.T) {
	lines := formatCLIError(fmt.Errorf("get info: %w", context.DeadlineExceeded))
	if !containsLine(lines, "hint: request timed out; check server health or increase DOCSTORE_HTTP_TIMEOUT.") {
		t.Fatalf("expected timeout guidance, got %v", lines)
	}
}

func TestFormatCLIError_Nil(t *testing.T) {
	if lines := formatCLIError(nil); lines != nil {
		t.Fatalf("expected nil, got %v", lines)
	}
}

func containsLine(lines []string, expected string) bool {
	for _, line := range lines {
		if line == expected {
			return true
		}
	}
	return false
}
