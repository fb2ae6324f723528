package content

import (
	"context"
	"errors"
	"time"

	"docstore/internal/apperr"
	"docstore/internal/blobstore"
)

// DefaultOrphanGrace keeps fresh unreferenced blobs out of orphan reports;
// an in-flight write is unreferenced until its transaction commits.
const DefaultOrphanGrace = time.Hour

// VerifyOptions controls an integrity audit.
type VerifyOptions struct {
	// Sweep deletes orphan blobs older than OrphanGrace.
	Sweep       bool
	OrphanGrace time.Duration
}

// Problem is one recorded content whose bytes do not match its row.
type Problem struct {
	ContentID string `json:"content_id" yaml:"content_id"`
	OwnerID   string `json:"owner_id" yaml:"owner_id"`
	Location  string `json:"location" yaml:"location"`
	Issue     string `json:"issue" yaml:"issue"`
}

// VerifyReport summarises an integrity audit of both stores.
type VerifyReport struct {
	Checked       int       `json:"checked" yaml:"checked"`
	Problems      []Problem `json:"problems" yaml:"problems"`
	Orphans       []string  `json:"orphans" yaml:"orphans"`
	SweptCount    int       `json:"swept_count" yaml:"swept_count"`
	SweepFailures int       `json:"sweep_failures" yaml:"sweep_failures"`
	DryRun        bool      `json:"dry_run" yaml:"dry_run"`
}

// Healthy reports whether the audit found nothing wrong.
func (r VerifyReport) Healthy() bool {
	return len(r.Problems) == 0 && len(r.Orphans)-r.SweptCount == 0
}

const (
	IssueMissingBlob      = "missing_blob"
	IssueSizeMismatch     = "size_mismatch"
	IssueChecksumMismatch = "checksum_mismatch"
)

// Verify checks that every content row has intact bytes and that no blob
// exists without a row.
func (s *Service) Verify(ctx context.Context, opts VerifyOptions) (VerifyReport, error) {
	report := VerifyReport{Problems: []Problem{}, Orphans: []string{}, DryRun: !opts.Sweep}
	grace := opts.OrphanGrace
	if grace <= 0 {
		grace = DefaultOrphanGrace
	}

	contents, err := s.store.ListContents(ctx)
	if err != nil {
		return report, apperr.E(apperr.KindStorageFailure, "list contents", err)
	}
	referenced := make(map[string]bool, len(contents))
	for _, c := range contents {
		referenced[c.Location] = true
		report.Checked++

		issue, err := s.checkBlob(ctx, c.Location, c.SizeBytes, c.Checksum)
		if err != nil {
			return report, err
		}
		if issue != "" {
			report.Problems = append(report.Problems, Problem{ContentID: c.ID, OwnerID: c.OwnerID, Location: c.Location, Issue: issue})
		}
	}

	blobs, err := s.blobs.List(ctx)
	if err != nil {
		return report, apperr.E(apperr.KindStorageFailure, "list blobs", err)
	}
	cutoff := time.Now().Add(-grace)
	for _, blob := range blobs {
		if referenced[blob.Location] || blob.ModTime.After(cutoff) {
			continue
		}
		report.Orphans = append(report.Orphans, blob.Location)
		if !opts.Sweep {
			continue
		}
		if err := s.blobs.Delete(ctx, blob.Location); err != nil {
			s.logger.Warn("orphan sweep failed", "location", blob.Location, "error", err)
			report.SweepFailures++
			continue
		}
		report.SweptCount++
	}

	s.logger.Info("verify finished", "checked", report.Checked, "problems", len(report.Problems), "orphans", len(report.Orphans), "swept", report.SweptCount)
	return report, nil
}

func (s *Service) checkBlob(ctx context.Context, location string, size int64, checksum string) (string, error) {
	rc, err := s.blobs.Open(ctx, location)
	if errors.Is(err, blobstore.ErrNotFound) {
		return IssueMissingBlob, nil
	}
	if err != nil {
		return "", apperr.E(apperr.KindStorageFailure, "open blob", err)
	}
	defer rc.Close()

	gotSize, gotSum, err := blobstore.Checksum(rc)
	if err != nil {
		return "", apperr.E(apperr.KindStorageFailure, "read blob", err)
	}
	if gotSize != size {
		return IssueSizeMismatch, nil
	}
	if checksum != "" && gotSum != checksum {
		return IssueChecksumMismatch, nil
	}
	return "", nil
}
