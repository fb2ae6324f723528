package store

import (
	"context"
	"database/sql"
	"fmt"

	"docstore/internal/models"
)

// ListFormats returns every registered format ordered by extension.
func (s *Store) ListFormats(ctx context.Context) ([]models.Format, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT extension, mime_type, description, is_pdf FROM formats ORDER BY extension ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	formats := []models.Format{}
	for rows.Next() {
		f, err := scanFormat(rows)
		if err != nil {
			return nil, err
		}
		formats = append(formats, f)
	}
	return formats, rows.Err()
}

// GetFormat returns one format, or nil when the extension is unknown.
func (s *Store) GetFormat(ctx context.Context, ext string) (*models.Format, error) {
	row := s.db.QueryRowContext(ctx, "SELECT extension, mime_type, description, is_pdf FROM formats WHERE extension = ?", models.NormalizeExtension(ext))
	f, err := scanFormat(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// UpsertFormat inserts or replaces a format's descriptive fields.
func (s *Store) UpsertFormat(ctx context.Context, f models.Format) error {
	ext := models.NormalizeExtension(f.Extension)
	if ext == "" {
		return fmt.Errorf("format extension is required")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO formats (extension, mime_type, description, is_pdf) VALUES (?, ?, ?, ?)
		ON CONFLICT(extension) DO UPDATE SET
		  mime_type = excluded.mime_type,
		  description = excluded.description,
		  is_pdf = excluded.is_pdf
	`, ext, nullIfEmpty(f.MimeType), nullIfEmpty(f.Description), boolToInt(f.IsPDF))
	return err
}

func scanFormat(scanner interface {
	Scan(dest ...any) error
}) (models.Format, error) {
	f := models.Format{}
	var mimeType, description sql.NullString
	var isPDF int
	if err := scanner.Scan(&f.Extension, &mimeType, &description, &isPDF); err != nil {
		return models.Format{}, err
	}
	f.MimeType = mimeType.String
	f.Description = description.String
	f.IsPDF = isPDF != 0
	return f, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
