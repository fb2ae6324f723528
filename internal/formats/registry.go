// Package formats holds the in-memory registry of known file formats. The
// registry is loaded once from the metadata store and injected wherever a
// format lookup is needed.
package formats

import (
	"context"
	"fmt"
	"sort"

	"docstore/internal/apperr"
	"docstore/internal/models"
)

// Source provides the persisted format rows.
type Source interface {
	ListFormats(ctx context.Context) ([]models.Format, error)
}

// Registry is an immutable extension-keyed format map.
type Registry struct {
	byExt map[string]models.Format
}

// Load reads all formats from src into a new registry.
func Load(ctx context.Context, src Source) (*Registry, error) {
	list, err := src.ListFormats(ctx)
	if err != nil {
		return nil, apperr.E(apperr.KindStorageFailure, "load formats", err)
	}
	return New(list...), nil
}

// New builds a registry from explicit formats. Later duplicates win.
func New(list ...models.Format) *Registry {
	r := &Registry{byExt: make(map[string]models.Format, len(list))}
	for _, f := range list {
		f.Extension = models.NormalizeExtension(f.Extension)
		if f.Extension == "" {
			continue
		}
		r.byExt[f.Extension] = f
	}
	return r
}

// FindByExtension looks up a format supplied by a caller. An unknown
// extension is a FormatNotFound error.
func (r *Registry) FindByExtension(ext string) (models.Format, error) {
	key := models.NormalizeExtension(ext)
	if f, ok := r.byExt[key]; ok {
		return f, nil
	}
	return models.Format{}, apperr.Errorf(apperr.KindFormatNotFound, "find format", "unknown extension %q", key)
}

// RequireByExtension looks up a format the system itself depends on. Its
// absence means the reference data is broken.
func (r *Registry) RequireByExtension(ext string) (models.Format, error) {
	key := models.NormalizeExtension(ext)
	if f, ok := r.byExt[key]; ok {
		return f, nil
	}
	return models.Format{}, apperr.Errorf(apperr.KindRepositoryCorruption, "require format", "well-known format %q is missing", key)
}

// PDF returns the canonical rendition target format.
func (r *Registry) PDF() (models.Format, error) {
	f, err := r.RequireByExtension(models.ExtPDF)
	if err != nil {
		return models.Format{}, err
	}
	if !f.IsPDF {
		return models.Format{}, apperr.Errorf(apperr.KindRepositoryCorruption, "require format", "format %q is not flagged as pdf", f.Extension)
	}
	return f, nil
}

// List returns all formats sorted by extension.
func (r *Registry) List() []models.Format {
	out := make([]models.Format, 0, len(r.byExt))
	for _, f := range r.byExt {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Extension < out[j].Extension })
	return out
}

// Len returns the number of registered formats.
func (r *Registry) Len() int {
	return len(r.byExt)
}

func (r *Registry) String() string {
	return fmt.Sprintf("formats.Registry(%d)", len(r.byExt))
}
