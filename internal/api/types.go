package api

import (
	"time"

	"docstore/internal/models"
)

// ErrorResponse is a generic JSON error wrapper.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// InfoResponse describes the running server and its stores.
type InfoResponse struct {
	DBPath             string         `json:"db_path" yaml:"db_path"`
	BlobRoot           string         `json:"blob_root" yaml:"blob_root"`
	SchemaVersion      int            `json:"schema_version" yaml:"schema_version"`
	Documents          int            `json:"documents" yaml:"documents"`
	Contents           int            `json:"contents" yaml:"contents"`
	Formats            int            `json:"formats" yaml:"formats"`
	Converter          string         `json:"converter" yaml:"converter"`
	ConverterAvailable bool           `json:"converter_available" yaml:"converter_available"`
	Rendition          RenditionStats `json:"rendition" yaml:"rendition"`
}

// RenditionStats mirrors the engine counters.
type RenditionStats struct {
	Submitted  int64 `json:"submitted" yaml:"submitted"`
	Rejected   int64 `json:"rejected" yaml:"rejected"`
	Committed  int64 `json:"committed" yaml:"committed"`
	RolledBack int64 `json:"rolled_back" yaml:"rolled_back"`
	Skipped    int64 `json:"skipped" yaml:"skipped"`
	Queued     int   `json:"queued" yaml:"queued"`
	Workers    int   `json:"workers" yaml:"workers"`
}

// DocumentCreateRequest is the payload for creating a document.
type DocumentCreateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// DocumentUpdateRequest is the payload for updating a document. Version
// must match the stored version.
type DocumentUpdateRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Version     *int64  `json:"version"`
}

// DocumentResponse is a document with its contents.
type DocumentResponse struct {
	models.Document
	Contents []models.Content `json:"contents"`
}

// UploadResponse reports the outcome of loading initial content. Loaded is
// false when the document already had content and nothing was written.
type UploadResponse struct {
	Loaded  bool            `json:"loaded"`
	Content *models.Content `json:"content,omitempty"`
}

// JobResponse describes a rendition attempt.
type JobResponse struct {
	ID          string          `json:"id"`
	SourceID    string          `json:"source_id"`
	DocumentID  string          `json:"document_id"`
	State       string          `json:"state"`
	FailedIn    string          `json:"failed_in,omitempty"`
	Skipped     bool            `json:"skipped,omitempty"`
	Content     *models.Content `json:"content,omitempty"`
	Error       string          `json:"error,omitempty"`
	ErrorKind   string          `json:"error_kind,omitempty"`
	SubmittedAt time.Time       `json:"submitted_at"`
	FinishedAt  *time.Time      `json:"finished_at,omitempty"`
}

// Finished reports whether the attempt reached a terminal state.
func (j JobResponse) Finished() bool {
	return j.State == "committed" || j.State == "rolled_back"
}

// VerifyRequest configures an integrity audit.
type VerifyRequest struct {
	Sweep       bool   `json:"sweep,omitempty"`
	OrphanGrace string `json:"orphan_grace,omitempty"`
}

// VerifyProblem is one content whose blob is inconsistent with its row.
type VerifyProblem struct {
	ContentID string `json:"content_id" yaml:"content_id"`
	OwnerID   string `json:"owner_id" yaml:"owner_id"`
	Location  string `json:"location" yaml:"location"`
	Issue     string `json:"issue" yaml:"issue"`
}

// VerifyResponse is the integrity audit report.
type VerifyResponse struct {
	Checked       int             `json:"checked" yaml:"checked"`
	Healthy       bool            `json:"healthy" yaml:"healthy"`
	Problems      []VerifyProblem `json:"problems" yaml:"problems"`
	Orphans       []string        `json:"orphans" yaml:"orphans"`
	SweptCount    int             `json:"swept_count" yaml:"swept_count"`
	SweepFailures int             `json:"sweep_failures" yaml:"sweep_failures"`
	DryRun        bool            `json:"dry_run" yaml:"dry_run"`
}
