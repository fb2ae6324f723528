package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"docstore/internal/models"
)

const contentSelect = `
SELECT c.id, c.name, c.owner_id, c.kind, c.location, c.size_bytes, c.checksum,
       c.created_at, c.updated_at, c.version,
       f.extension, f.mime_type, f.description, f.is_pdf
FROM contents c
JOIN formats f ON f.extension = c.format_ext`

// InsertContent records a content row inside the transaction. A missing
// owner or format surfaces as a constraint error (see IsConstraint).
func (t *Tx) InsertContent(ctx context.Context, c *models.Content) error {
	if c == nil {
		return fmt.Errorf("content is required")
	}
	if strings.TrimSpace(c.ID) == "" {
		c.ID = models.NewID()
	}
	if strings.TrimSpace(c.Location) == "" {
		return fmt.Errorf("content location is required")
	}
	c.Stamp(time.Now())
	c.Version = 0

	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO contents (id, name, owner_id, format_ext, kind, location, size_bytes, checksum, created_at, updated_at, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.Name, c.OwnerID, c.Format.Extension, string(c.Kind), c.Location, c.SizeBytes,
		nullIfEmpty(c.Checksum), formatTime(c.CreatedAt), formatTime(c.UpdatedAt), c.Version)
	return err
}

// ContentExistsByOwner reports whether the owner has any content inside the transaction.
func (t *Tx) ContentExistsByOwner(ctx context.Context, ownerID string) (bool, error) {
	return rowExists(ctx, t.tx, "SELECT 1 FROM contents WHERE owner_id = ? LIMIT 1", ownerID)
}

// DeleteContentsByOwner removes the owner's content rows and returns their
// blob locations so the caller can release them after commit.
func (t *Tx) DeleteContentsByOwner(ctx context.Context, ownerID string) ([]string, error) {
	locations, err := queryStrings(ctx, t.tx, "SELECT location FROM contents WHERE owner_id = ? ORDER BY created_at ASC", ownerID)
	if err != nil {
		return nil, err
	}
	if _, err := t.tx.ExecContext(ctx, "DELETE FROM contents WHERE owner_id = ?", ownerID); err != nil {
		return nil, err
	}
	return locations, nil
}

// GetContent returns one content, or nil when absent.
func (s *Store) GetContent(ctx context.Context, id string) (*models.Content, error) {
	row := s.db.QueryRowContext(ctx, contentSelect+` WHERE c.id = ?`, id)
	return scanContent(row)
}

// ContentExistsByOwner reports whether the owner has any content.
func (s *Store) ContentExistsByOwner(ctx context.Context, ownerID string) (bool, error) {
	return rowExists(ctx, s.db, "SELECT 1 FROM contents WHERE owner_id = ? LIMIT 1", ownerID)
}

// ListContentsByOwner lists an owner's contents, oldest first.
func (s *Store) ListContentsByOwner(ctx context.Context, ownerID string) ([]models.Content, error) {
	return queryContents(ctx, s.db, contentSelect+` WHERE c.owner_id = ? ORDER BY c.created_at ASC, c.id ASC`, ownerID)
}

// FindContentByOwnerAndFormat returns the newest content of the owner in the
// given format, or nil.
func (s *Store) FindContentByOwnerAndFormat(ctx context.Context, ownerID, ext string) (*models.Content, error) {
	row := s.db.QueryRowContext(ctx, contentSelect+`
		WHERE c.owner_id = ? AND c.format_ext = ?
		ORDER BY c.created_at DESC, c.id DESC
		LIMIT 1`, ownerID, models.NormalizeExtension(ext))
	return scanContent(row)
}

// FindOriginalByOwner returns the owner's original content, or nil.
func (s *Store) FindOriginalByOwner(ctx context.Context, ownerID string) (*models.Content, error) {
	row := s.db.QueryRowContext(ctx, contentSelect+` WHERE c.owner_id = ? AND c.kind = ? LIMIT 1`, ownerID, string(models.ContentKindOriginal))
	return scanContent(row)
}

// ListContents lists every content row, oldest first.
func (s *Store) ListContents(ctx context.Context) ([]models.Content, error) {
	return queryContents(ctx, s.db, contentSelect+` ORDER BY c.created_at ASC, c.id ASC`)
}

// CountContents returns the number of content rows.
func (s *Store) CountContents(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM contents").Scan(&n)
	return n, err
}

func queryContents(ctx context.Context, q querier, query string, args ...any) ([]models.Content, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contents := []models.Content{}
	for rows.Next() {
		c, err := scanContent(rows)
		if err != nil {
			return nil, err
		}
		if c != nil {
			contents = append(contents, *c)
		}
	}
	return contents, rows.Err()
}

func queryStrings(ctx context.Context, q querier, query string, args ...any) ([]string, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	values := []string{}
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, err
		}
		values = append(values, value)
	}
	return values, rows.Err()
}

func scanContent(scanner interface {
	Scan(dest ...any) error
}) (*models.Content, error) {
	c := models.Content{}
	var kind, createdAt, updatedAt string
	var checksum, mimeType, description sql.NullString
	var isPDF int

	err := scanner.Scan(
		&c.ID, &c.Name, &c.OwnerID, &kind, &c.Location, &c.SizeBytes, &checksum,
		&createdAt, &updatedAt, &c.Version,
		&c.Format.Extension, &mimeType, &description, &isPDF,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	c.Kind = models.ContentKind(kind)
	c.Checksum = checksum.String
	c.Format.MimeType = mimeType.String
	c.Format.Description = description.String
	c.Format.IsPDF = isPDF != 0

	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}
