package store

import (
	"context"

	"docstore/internal/models"
)

// DocumentStore abstracts document persistence outside transactions.
type DocumentStore interface {
	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	DocumentExists(ctx context.Context, id string) (bool, error)
	ListDocuments(ctx context.Context, limit int) ([]models.Document, error)
	UpdateDocument(ctx context.Context, doc *models.Document) error
	DeleteDocument(ctx context.Context, id string) (bool, error)
}

// ContentStore abstracts read access to content metadata. Writes go through Tx.
type ContentStore interface {
	GetContent(ctx context.Context, id string) (*models.Content, error)
	ContentExistsByOwner(ctx context.Context, ownerID string) (bool, error)
	ListContentsByOwner(ctx context.Context, ownerID string) ([]models.Content, error)
	FindContentByOwnerAndFormat(ctx context.Context, ownerID, ext string) (*models.Content, error)
	FindOriginalByOwner(ctx context.Context, ownerID string) (*models.Content, error)
	ListContents(ctx context.Context) ([]models.Content, error)
}

// FormatStore abstracts the formats reference table.
type FormatStore interface {
	ListFormats(ctx context.Context) ([]models.Format, error)
	GetFormat(ctx context.Context, ext string) (*models.Format, error)
	UpsertFormat(ctx context.Context, f models.Format) error
}

var (
	_ DocumentStore = (*Store)(nil)
	_ ContentStore  = (*Store)(nil)
	_ FormatStore   = (*Store)(nil)
)
