package server

import (
	"context"
	"errors"
	"fmt"

	"docstore/internal/api"
	"docstore/internal/content"
	"docstore/internal/models"
	"docstore/internal/store"
)

// DocumentService centralizes document validation and lifecycle.
type DocumentService struct {
	store   store.DocumentStore
	content *content.Service
}

// NewDocumentService constructs a DocumentService.
func NewDocumentService(st store.DocumentStore, contentSvc *content.Service) *DocumentService {
	return &DocumentService{store: st, content: contentSvc}
}

// Create creates a document from a request.
func (s *DocumentService) Create(ctx context.Context, req api.DocumentCreateRequest) (api.DocumentResponse, error) {
	var resp api.DocumentResponse

	name, err := normalizeDocumentName(req.Name)
	if err != nil {
		return resp, err
	}
	description, err := normalizeDescription(req.Description)
	if err != nil {
		return resp, err
	}

	doc := models.NewDocument(name)
	doc.Description = description
	if err := s.store.CreateDocument(ctx, &doc); err != nil {
		if store.IsUniqueConstraint(err) {
			return resp, conflictCode(fmt.Errorf("document id already exists"), ErrCodeConflict)
		}
		return resp, storeFailure(err)
	}

	return api.DocumentResponse{Document: doc, Contents: []models.Content{}}, nil
}

// Require returns a document or a not-found error.
func (s *DocumentService) Require(ctx context.Context, id string) (models.Document, error) {
	doc, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return models.Document{}, storeFailure(err)
	}
	if doc == nil {
		return models.Document{}, notFoundCode(fmt.Errorf("document %s not found", id), ErrCodeDocumentNotFound)
	}
	return *doc, nil
}

// Get returns a document with its contents.
func (s *DocumentService) Get(ctx context.Context, id string) (api.DocumentResponse, error) {
	var resp api.DocumentResponse

	doc, err := s.Require(ctx, id)
	if err != nil {
		return resp, err
	}

	contents, err := s.content.ListByOwner(ctx, id)
	if err != nil {
		return resp, classifiedError(err, ErrCodeContentNotFound)
	}
	return api.DocumentResponse{Document: doc, Contents: nonNilContents(contents)}, nil
}

// List lists documents, most recently updated first.
func (s *DocumentService) List(ctx context.Context, limit int) ([]models.Document, error) {
	if limit > maxListLimit {
		return nil, badRequestCode(fmt.Errorf("limit must be <= %d", maxListLimit), ErrCodeInvalidQuery)
	}
	docs, err := s.store.ListDocuments(ctx, limit)
	if err != nil {
		return nil, storeFailure(err)
	}
	if docs == nil {
		docs = []models.Document{}
	}
	return docs, nil
}

// Update applies a partial update guarded by the caller's version.
func (s *DocumentService) Update(ctx context.Context, id string, req api.DocumentUpdateRequest) (api.DocumentResponse, error) {
	var resp api.DocumentResponse

	if req.Version == nil {
		return resp, badRequestCode(fmt.Errorf("version is required"), ErrCodeMissingRequired)
	}
	if req.Name == nil && req.Description == nil {
		return resp, badRequestCode(fmt.Errorf("nothing to update"), ErrCodeMissingRequired)
	}

	doc, err := s.Require(ctx, id)
	if err != nil {
		return resp, err
	}

	if req.Name != nil {
		name, err := normalizeDocumentName(*req.Name)
		if err != nil {
			return resp, err
		}
		doc.Name = name
	}
	if req.Description != nil {
		description, err := normalizeDescription(*req.Description)
		if err != nil {
			return resp, err
		}
		doc.Description = description
	}
	doc.Version = *req.Version

	if err := s.store.UpdateDocument(ctx, &doc); err != nil {
		switch {
		case errors.Is(err, store.ErrStaleVersion):
			return resp, conflictCode(fmt.Errorf("document %s was modified; reload and retry", id), ErrCodeStaleVersion)
		case errors.Is(err, store.ErrNotFound):
			return resp, notFoundCode(fmt.Errorf("document %s not found", id), ErrCodeDocumentNotFound)
		default:
			return resp, storeFailure(err)
		}
	}

	return s.Get(ctx, id)
}

// Delete removes a document, its contents and their blobs.
func (s *DocumentService) Delete(ctx context.Context, id string) error {
	deleted, err := s.content.DeleteDocument(ctx, id)
	if err != nil {
		return classifiedError(err, ErrCodeDocumentNotFound)
	}
	if !deleted {
		return notFoundCode(fmt.Errorf("document %s not found", id), ErrCodeDocumentNotFound)
	}
	return nil
}
