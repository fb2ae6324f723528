// Package content records artifacts in the metadata store and keeps their
// blobs consistent with the recorded rows.
package content

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"docstore/internal/apperr"
	"docstore/internal/blobstore"
	"docstore/internal/formats"
	"docstore/internal/models"
	"docstore/internal/store"
)

// Service orchestrates content metadata and blob bytes.
type Service struct {
	store   *store.Store
	blobs   blobstore.BlobStore
	formats *formats.Registry
	logger  *slog.Logger
}

// NewService constructs a Service.
func NewService(st *store.Store, blobs blobstore.BlobStore, reg *formats.Registry, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: st, blobs: blobs, formats: reg, logger: logger.With("component", "content")}
}

// Formats returns the registry the service resolves extensions against.
func (s *Service) Formats() *formats.Registry {
	return s.formats
}

// CreateInput describes a content row for bytes already in the blob store.
type CreateInput struct {
	Extension string
	Owner     models.Document
	Kind      models.ContentKind
	Blob      blobstore.WriteResult
}

// CreateContent records a content inside the caller's transaction and
// touches the owner. It never commits; the caller owns the boundary.
func (s *Service) CreateContent(ctx context.Context, tx *store.Tx, in CreateInput) (models.Content, error) {
	var zero models.Content
	if tx == nil {
		return zero, apperr.Errorf(apperr.KindInternal, "create content", "transaction is required")
	}
	format, err := s.formats.FindByExtension(in.Extension)
	if err != nil {
		return zero, err
	}
	if strings.TrimSpace(in.Blob.Location) == "" {
		return zero, apperr.Errorf(apperr.KindInvalid, "create content", "blob location is required")
	}
	kind := in.Kind
	if kind == "" {
		kind = models.ContentKindOriginal
	}

	c := models.Content{
		Entity:    models.Entity{Name: models.ContentName(in.Owner.Name, format.Extension)},
		OwnerID:   in.Owner.ID,
		Format:    format,
		Kind:      kind,
		Location:  in.Blob.Location,
		SizeBytes: in.Blob.SizeBytes,
		Checksum:  in.Blob.Checksum,
	}
	if err := tx.InsertContent(ctx, &c); err != nil {
		if store.IsConstraint(err) {
			return zero, apperr.E(apperr.KindConstraintFailure, "record content", err)
		}
		return zero, apperr.E(apperr.KindStorageFailure, "record content", err)
	}
	if err := tx.TouchDocument(ctx, in.Owner.ID, c.UpdatedAt); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return zero, apperr.E(apperr.KindConstraintFailure, "touch owner", err)
		}
		return zero, apperr.E(apperr.KindStorageFailure, "touch owner", err)
	}
	return c, nil
}

// LoadInitialContent stores the first content of a document. When the
// document already has content the call logs an error and does nothing;
// the boolean reports whether anything was stored.
func (s *Service) LoadInitialContent(ctx context.Context, ownerID string, r io.Reader, filename string) (models.Content, bool, error) {
	var zero models.Content
	if r == nil {
		return zero, false, apperr.Errorf(apperr.KindInvalid, "load content", "content is required")
	}
	ext := models.ExtensionOf(filename)
	if ext == "" {
		return zero, false, apperr.Errorf(apperr.KindInvalid, "load content", "filename %q has no extension", filename)
	}
	if _, err := s.formats.FindByExtension(ext); err != nil {
		return zero, false, err
	}

	owner, err := s.store.GetDocument(ctx, ownerID)
	if err != nil {
		return zero, false, apperr.E(apperr.KindStorageFailure, "load owner", err)
	}
	if owner == nil {
		return zero, false, apperr.Errorf(apperr.KindNotFound, "load owner", "document %s not found", ownerID)
	}
	exists, err := s.store.ContentExistsByOwner(ctx, owner.ID)
	if err != nil {
		return zero, false, apperr.E(apperr.KindStorageFailure, "check content", err)
	}
	if exists {
		s.logger.Error("document already has content; upload ignored", "document_id", owner.ID, "filename", filename)
		return zero, false, nil
	}

	location := s.blobs.Allocate()
	written, err := s.blobs.Write(ctx, location, r)
	if err != nil {
		s.releaseBlob(location)
		return zero, false, apperr.E(apperr.KindStorageFailure, "write blob", err)
	}

	var created models.Content
	alreadyLoaded := false
	err = s.store.WithTx(ctx, func(tx *store.Tx) error {
		has, err := tx.ContentExistsByOwner(ctx, owner.ID)
		if err != nil {
			return apperr.E(apperr.KindStorageFailure, "check content", err)
		}
		if has {
			alreadyLoaded = true
			return errAlreadyLoaded
		}
		created, err = s.CreateContent(ctx, tx, CreateInput{Extension: ext, Owner: *owner, Kind: models.ContentKindOriginal, Blob: written})
		return err
	})
	if err != nil {
		s.releaseBlob(location)
		if alreadyLoaded {
			s.logger.Error("document already has content; upload ignored", "document_id", owner.ID, "filename", filename)
			return zero, false, nil
		}
		return zero, false, apperr.Classify(apperr.KindStorageFailure, "record content", err)
	}

	s.logger.Info("content loaded", "document_id", owner.ID, "content_id", created.ID, "format", created.Format.Extension, "bytes", created.SizeBytes)
	return created, true, nil
}

var errAlreadyLoaded = errors.New("document already has content")

// Get returns one content.
func (s *Service) Get(ctx context.Context, id string) (models.Content, error) {
	c, err := s.store.GetContent(ctx, id)
	if err != nil {
		return models.Content{}, apperr.E(apperr.KindStorageFailure, "get content", err)
	}
	if c == nil {
		return models.Content{}, apperr.Errorf(apperr.KindNotFound, "get content", "content %s not found", id)
	}
	return *c, nil
}

// ListByOwner lists a document's contents, oldest first.
func (s *Service) ListByOwner(ctx context.Context, ownerID string) ([]models.Content, error) {
	list, err := s.store.ListContentsByOwner(ctx, ownerID)
	if err != nil {
		return nil, apperr.E(apperr.KindStorageFailure, "list contents", err)
	}
	return list, nil
}

// FindOriginal returns the document's original content, or nil.
func (s *Service) FindOriginal(ctx context.Context, ownerID string) (*models.Content, error) {
	c, err := s.store.FindOriginalByOwner(ctx, ownerID)
	if err != nil {
		return nil, apperr.E(apperr.KindStorageFailure, "find original", err)
	}
	return c, nil
}

// FindPDFRendition returns the newest PDF content of a document, or nil.
func (s *Service) FindPDFRendition(ctx context.Context, ownerID string) (*models.Content, error) {
	pdf, err := s.formats.PDF()
	if err != nil {
		return nil, err
	}
	c, err := s.store.FindContentByOwnerAndFormat(ctx, ownerID, pdf.Extension)
	if err != nil {
		return nil, apperr.E(apperr.KindStorageFailure, "find pdf rendition", err)
	}
	return c, nil
}

// Open returns a content and a reader over its bytes. The caller closes it.
func (s *Service) Open(ctx context.Context, id string) (models.Content, io.ReadCloser, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return models.Content{}, nil, err
	}
	rc, err := s.blobs.Open(ctx, c.Location)
	if errors.Is(err, blobstore.ErrNotFound) {
		return models.Content{}, nil, apperr.E(apperr.KindRepositoryCorruption, "open content", err)
	}
	if err != nil {
		return models.Content{}, nil, apperr.E(apperr.KindStorageFailure, "open content", err)
	}
	return c, rc, nil
}

// DeleteDocument removes a document and its contents, then releases the
// blobs. Blob removal is best effort; leftovers show up in Verify.
func (s *Service) DeleteDocument(ctx context.Context, id string) (bool, error) {
	var locations []string
	deleted := false
	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		locations, err = tx.DeleteContentsByOwner(ctx, id)
		if err != nil {
			return err
		}
		deleted, err = tx.DeleteDocument(ctx, id)
		return err
	})
	if err != nil {
		return false, apperr.E(apperr.KindStorageFailure, "delete document", err)
	}
	for _, loc := range locations {
		s.releaseBlob(loc)
	}
	if deleted {
		s.logger.Info("document deleted", "document_id", id, "contents", len(locations))
	}
	return deleted, nil
}

// releaseBlob deletes a blob, logging instead of failing.
func (s *Service) releaseBlob(location string) {
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()
	if err := s.blobs.Delete(ctx, location); err != nil {
		s.logger.Warn("blob delete failed", "location", location, "error", err)
	}
}

const releaseTimeout = 30 * time.Second
