package models

import (
	"path/filepath"
	"strings"
)

// Well-known extensions.
const (
	ExtPDF  = "pdf"
	ExtODT  = "odt"
	ExtDOCX = "docx"
	ExtTXT  = "txt"
	ExtZIP  = "zip"
)

// Format describes a file type known to the repository.
type Format struct {
	Extension   string `json:"extension" yaml:"extension"`
	MimeType    string `json:"mime_type,omitempty" yaml:"mime_type"`
	Description string `json:"description,omitempty" yaml:"description"`
	IsPDF       bool   `json:"is_pdf" yaml:"is_pdf"`
}

// NormalizeExtension lowercases ext and strips surrounding space and a leading dot.
func NormalizeExtension(ext string) string {
	ext = strings.TrimSpace(ext)
	ext = strings.TrimPrefix(ext, ".")
	return strings.ToLower(ext)
}

// ExtensionOf returns the normalized extension of filename, or "".
func ExtensionOf(filename string) string {
	return NormalizeExtension(filepath.Ext(strings.TrimSpace(filename)))
}
