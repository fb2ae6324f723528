package formats

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"docstore/internal/models"
)

// SeedFile is the YAML document accepted by LoadSeedFile:
//
//	formats:
//	  - extension: md
//	    mime_type: text/markdown
//	    description: Markdown
type SeedFile struct {
	Formats []models.Format `yaml:"formats"`
}

// Writer persists formats.
type Writer interface {
	UpsertFormat(ctx context.Context, f models.Format) error
}

// LoadSeedFile parses a YAML seed file.
func LoadSeedFile(path string) ([]models.Format, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read formats file: %w", err)
	}
	return ParseSeed(data)
}

// ParseSeed parses and validates seed YAML.
func ParseSeed(data []byte) ([]models.Format, error) {
	var seed SeedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse formats file: %w", err)
	}

	seen := map[string]bool{}
	out := make([]models.Format, 0, len(seed.Formats))
	for i, f := range seed.Formats {
		f.Extension = models.NormalizeExtension(f.Extension)
		if f.Extension == "" {
			return nil, fmt.Errorf("formats[%d]: extension is required", i)
		}
		if strings.ContainsAny(f.Extension, "/\\. ") {
			return nil, fmt.Errorf("formats[%d]: invalid extension %q", i, f.Extension)
		}
		if seen[f.Extension] {
			return nil, fmt.Errorf("formats[%d]: duplicate extension %q", i, f.Extension)
		}
		if f.IsPDF && f.Extension != models.ExtPDF {
			return nil, fmt.Errorf("formats[%d]: only %q may be flagged as pdf", i, models.ExtPDF)
		}
		seen[f.Extension] = true
		out = append(out, f)
	}
	return out, nil
}

// Seed upserts formats through w.
func Seed(ctx context.Context, w Writer, list []models.Format) error {
	for _, f := range list {
		if err := w.UpsertFormat(ctx, f); err != nil {
			return fmt.Errorf("seed format %q: %w", f.Extension, err)
		}
	}
	return nil
}
