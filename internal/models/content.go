package models

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// ContentKind distinguishes uploaded originals from derived renditions.
type ContentKind string

const (
	ContentKindOriginal  ContentKind = "original"
	ContentKindRendition ContentKind = "rendition"
)

const defaultContentBaseName = "content"

// Content is one stored artifact. Location is opaque to everything except
// the blob store; Checksum is integrity metadata and never used for addressing.
type Content struct {
	Entity
	OwnerID   string      `json:"owner_id"`
	Format    Format      `json:"format"`
	Kind      ContentKind `json:"kind"`
	Location  string      `json:"location"`
	SizeBytes int64       `json:"size_bytes"`
	Checksum  string      `json:"checksum,omitempty"`
}

// IsPDF reports whether the content is stored in the canonical target format.
func (c Content) IsPDF() bool {
	return c.Format.IsPDF
}

func ParseContentKind(raw string) (ContentKind, error) {
	value := ContentKind(strings.ToLower(strings.TrimSpace(raw)))
	switch value {
	case ContentKindOriginal, ContentKindRendition:
		return value, nil
	case "":
		return "", fmt.Errorf("content kind is required")
	default:
		return "", fmt.Errorf("invalid content kind: %s", value)
	}
}

// ContentName derives a content name from its owner's name and extension.
// Path-unsafe characters become underscores.
func ContentName(ownerName, ext string) string {
	base := sanitizeName(ownerName)
	if base == "" {
		base = defaultContentBaseName
	}
	ext = NormalizeExtension(ext)
	if ext == "" {
		return base
	}
	return base + "." + ext
}

func sanitizeName(name string) string {
	name = norm.NFC.String(strings.TrimSpace(name))
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		if unicode.IsControl(r) {
			return '_'
		}
		return r
	}, name)
}
