package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"docstore/internal/models"
)

const documentColumns = "id, name, description, created_at, updated_at, version"

const defaultDocumentListLimit = 100

// CreateDocument inserts a document. A missing ID is generated; timestamps
// are stamped and the version starts at zero.
func (s *Store) CreateDocument(ctx context.Context, doc *models.Document) error {
	return insertDocument(ctx, s.db, doc)
}

// GetDocument returns one document, or nil when absent.
func (s *Store) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	return getDocument(ctx, s.db, id)
}

// DocumentExists checks whether a document exists by id.
func (s *Store) DocumentExists(ctx context.Context, id string) (bool, error) {
	return rowExists(ctx, s.db, "SELECT 1 FROM documents WHERE id = ? LIMIT 1", id)
}

// ListDocuments lists documents, most recently updated first.
func (s *Store) ListDocuments(ctx context.Context, limit int) ([]models.Document, error) {
	if limit <= 0 {
		limit = defaultDocumentListLimit
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+documentColumns+` FROM documents ORDER BY updated_at DESC, id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := []models.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		if doc != nil {
			docs = append(docs, *doc)
		}
	}
	return docs, rows.Err()
}

// CountDocuments returns the number of documents.
func (s *Store) CountDocuments(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents").Scan(&n)
	return n, err
}

// UpdateDocument writes name and description if doc.Version still matches
// the stored version. On success doc.Version and doc.UpdatedAt advance.
func (s *Store) UpdateDocument(ctx context.Context, doc *models.Document) error {
	return updateDocument(ctx, s.db, doc)
}

// DeleteDocument removes a document; its contents cascade.
func (s *Store) DeleteDocument(ctx context.Context, id string) (bool, error) {
	return deleteDocument(ctx, s.db, id)
}

// CreateDocument inserts a document inside the transaction.
func (t *Tx) CreateDocument(ctx context.Context, doc *models.Document) error {
	return insertDocument(ctx, t.tx, doc)
}

// GetDocument returns one document inside the transaction, or nil.
func (t *Tx) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	return getDocument(ctx, t.tx, id)
}

// UpdateDocument is the transactional form of Store.UpdateDocument.
func (t *Tx) UpdateDocument(ctx context.Context, doc *models.Document) error {
	return updateDocument(ctx, t.tx, doc)
}

// DeleteDocument is the transactional form of Store.DeleteDocument.
func (t *Tx) DeleteDocument(ctx context.Context, id string) (bool, error) {
	return deleteDocument(ctx, t.tx, id)
}

// TouchDocument records a mutation of the document's content set: it bumps
// updated_at and the version without checking the expected version.
func (t *Tx) TouchDocument(ctx context.Context, id string, now time.Time) error {
	res, err := t.tx.ExecContext(ctx, "UPDATE documents SET updated_at = ?, version = version + 1 WHERE id = ?", formatTime(now), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	return nil
}

func insertDocument(ctx context.Context, q querier, doc *models.Document) error {
	if doc == nil {
		return fmt.Errorf("document is required")
	}
	doc.Name = strings.TrimSpace(doc.Name)
	if doc.Name == "" {
		return fmt.Errorf("document name is required")
	}
	if strings.TrimSpace(doc.ID) == "" {
		doc.ID = models.NewID()
	}
	doc.Stamp(time.Now())
	doc.Version = 0

	_, err := q.ExecContext(ctx, `
		INSERT INTO documents (id, name, description, created_at, updated_at, version)
		VALUES (?, ?, ?, ?, ?, ?)
	`, doc.ID, doc.Name, nullIfEmpty(strings.TrimSpace(doc.Description)), formatTime(doc.CreatedAt), formatTime(doc.UpdatedAt), doc.Version)
	return err
}

func getDocument(ctx context.Context, q querier, id string) (*models.Document, error) {
	row := q.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = ?`, id)
	return scanDocument(row)
}

func updateDocument(ctx context.Context, q querier, doc *models.Document) error {
	if doc == nil {
		return fmt.Errorf("document is required")
	}
	name := strings.TrimSpace(doc.Name)
	if name == "" {
		return fmt.Errorf("document name is required")
	}
	now := time.Now().UTC()
	res, err := q.ExecContext(ctx, `
		UPDATE documents SET name = ?, description = ?, updated_at = ?, version = version + 1
		WHERE id = ? AND version = ?
	`, name, nullIfEmpty(strings.TrimSpace(doc.Description)), formatTime(now), doc.ID, doc.Version)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		exists, err := rowExists(ctx, q, "SELECT 1 FROM documents WHERE id = ? LIMIT 1", doc.ID)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("document %s: %w", doc.ID, ErrNotFound)
		}
		return fmt.Errorf("document %s at version %d: %w", doc.ID, doc.Version, ErrStaleVersion)
	}
	doc.Name = name
	doc.UpdatedAt = now
	doc.Version++
	return nil
}

func deleteDocument(ctx context.Context, q querier, id string) (bool, error) {
	res, err := q.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func scanDocument(scanner interface {
	Scan(dest ...any) error
}) (*models.Document, error) {
	doc := models.Document{}
	var description sql.NullString
	var createdAt, updatedAt string

	err := scanner.Scan(&doc.ID, &doc.Name, &description, &createdAt, &updatedAt, &doc.Version)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	doc.Description = description.String

	if doc.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if doc.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &doc, nil
}

func rowExists(ctx context.Context, q querier, query string, args ...any) (bool, error) {
	var exists int
	err := q.QueryRowContext(ctx, query, args...).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
