package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"docstore/internal/api"
	"docstore/internal/models"
	"docstore/internal/output"
)

var (
	outputFormatter output.Formatter = output.JSONFormatter{}
	stdout          io.Writer        = os.Stdout
)

func writeStructured(payload any) error {
	return outputFormatter.Write(stdout, payload)
}

func writePlain(format string, args ...any) error {
	_, err := fmt.Fprintf(stdout, format, args...)
	return err
}

func writeLines(lines []string) error {
	return writePlain("%s\n", strings.Join(lines, "\n"))
}

func writeDocumentList(docs []models.Document) error {
	for _, doc := range docs {
		if err := writePlain("%s\n", formatDocumentLine(doc)); err != nil {
			return err
		}
	}
	return nil
}

func writeDocumentDetail(doc api.DocumentResponse) error {
	lines := []string{
		fmt.Sprintf("id: %s", doc.ID),
		fmt.Sprintf("name: %s", doc.Name),
		fmt.Sprintf("version: %d", doc.Version),
		fmt.Sprintf("created_at: %s", formatTime(doc.CreatedAt)),
		fmt.Sprintf("updated_at: %s", formatTime(doc.UpdatedAt)),
	}
	if doc.Description != "" {
		lines = append(lines, fmt.Sprintf("description: %s", doc.Description))
	}
	if len(doc.Contents) > 0 {
		lines = append(lines, "contents:")
		for _, c := range doc.Contents {
			lines = append(lines, "  - "+formatContentLine(c))
		}
	}
	return writeLines(lines)
}

func writeContentList(contents []models.Content) error {
	for _, c := range contents {
		if err := writePlain("%s\n", formatContentLine(c)); err != nil {
			return err
		}
	}
	return nil
}

func writeContentDetail(c models.Content) error {
	lines := []string{
		fmt.Sprintf("id: %s", c.ID),
		fmt.Sprintf("name: %s", c.Name),
		fmt.Sprintf("document_id: %s", c.OwnerID),
		fmt.Sprintf("kind: %s", c.Kind),
		fmt.Sprintf("format: %s", c.Format.Extension),
		fmt.Sprintf("size_bytes: %d", c.SizeBytes),
		fmt.Sprintf("created_at: %s", formatTime(c.CreatedAt)),
	}
	if c.Checksum != "" {
		lines = append(lines, fmt.Sprintf("checksum: %s", c.Checksum))
	}
	return writeLines(lines)
}

func writeJob(job api.JobResponse) error {
	lines := []string{
		fmt.Sprintf("job: %s", job.ID),
		fmt.Sprintf("document_id: %s", job.DocumentID),
		fmt.Sprintf("source_id: %s", job.SourceID),
		fmt.Sprintf("state: %s", job.State),
	}
	switch {
	case job.Skipped:
		lines = append(lines, "result: skipped (source is already pdf)")
	case job.Content != nil:
		lines = append(lines, "rendition: "+formatContentLine(*job.Content))
	}
	if job.Error != "" {
		lines = append(lines,
			fmt.Sprintf("failed_in: %s", job.FailedIn),
			fmt.Sprintf("error_kind: %s", job.ErrorKind),
			fmt.Sprintf("error: %s", job.Error),
		)
	}
	if job.FinishedAt != nil {
		lines = append(lines, fmt.Sprintf("finished_at: %s", formatTime(*job.FinishedAt)))
	}
	return writeLines(lines)
}

func writeFormats(list []models.Format) error {
	for _, f := range list {
		marker := " "
		if f.IsPDF {
			marker = "*"
		}
		if err := writePlain("%s %-5s %-40s %s\n", marker, f.Extension, f.MimeType, f.Description); err != nil {
			return err
		}
	}
	return nil
}

func writeVerify(report api.VerifyResponse) error {
	status := "healthy"
	if !report.Healthy {
		status = "unhealthy"
	}
	lines := []string{
		fmt.Sprintf("status: %s", status),
		fmt.Sprintf("checked: %d", report.Checked),
		fmt.Sprintf("problems: %d", len(report.Problems)),
	}
	for _, p := range report.Problems {
		lines = append(lines, fmt.Sprintf("  - %s %s (document %s, location %s)", p.Issue, p.ContentID, p.OwnerID, p.Location))
	}
	lines = append(lines, fmt.Sprintf("orphans: %d", len(report.Orphans)))
	for _, o := range report.Orphans {
		lines = append(lines, "  - "+o)
	}
	if report.DryRun {
		if len(report.Orphans) > 0 {
			lines = append(lines, "dry run: rerun with --sweep to delete orphans")
		}
	} else {
		lines = append(lines, fmt.Sprintf("swept: %d", report.SweptCount))
		if report.SweepFailures > 0 {
			lines = append(lines, fmt.Sprintf("sweep_failures: %d", report.SweepFailures))
		}
	}
	return writeLines(lines)
}

func writeInfo(info api.InfoResponse) error {
	converter := info.Converter
	if !info.ConverterAvailable {
		converter += " (not found)"
	}
	return writeLines([]string{
		fmt.Sprintf("db_path: %s", info.DBPath),
		fmt.Sprintf("blob_root: %s", info.BlobRoot),
		fmt.Sprintf("schema_version: %d", info.SchemaVersion),
		fmt.Sprintf("documents: %d", info.Documents),
		fmt.Sprintf("contents: %d", info.Contents),
		fmt.Sprintf("formats: %d", info.Formats),
		fmt.Sprintf("converter: %s", converter),
		"rendition:",
		fmt.Sprintf("  workers: %d", info.Rendition.Workers),
		fmt.Sprintf("  queued: %d", info.Rendition.Queued),
		fmt.Sprintf("  submitted: %d", info.Rendition.Submitted),
		fmt.Sprintf("  committed: %d", info.Rendition.Committed),
		fmt.Sprintf("  rolled_back: %d", info.Rendition.RolledBack),
		fmt.Sprintf("  skipped: %d", info.Rendition.Skipped),
		fmt.Sprintf("  rejected: %d", info.Rendition.Rejected),
	})
}

func formatDocumentLine(doc models.Document) string {
	return fmt.Sprintf("%s v%d %s - %s", doc.ID, doc.Version, formatTime(doc.UpdatedAt), doc.Name)
}

func formatContentLine(c models.Content) string {
	return fmt.Sprintf("%s [%s] %s %s (%s)", c.ID, c.Kind, c.Format.Extension, c.Name, formatBytes(c.SizeBytes))
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatBytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}
