package server

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"docstore/internal/models"
)

const (
	maxDocumentNameLength        = 255
	maxDocumentDescriptionLength = 4096
)

func validateID(id string) bool {
	return models.IsValidID(id)
}

func normalizeDocumentName(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", badRequestCode(fmt.Errorf("name is required"), ErrCodeMissingRequired)
	}
	if utf8.RuneCountInString(value) > maxDocumentNameLength {
		return "", badRequestCode(fmt.Errorf("name must be at most %d characters", maxDocumentNameLength), ErrCodeInvalidArgument)
	}
	for _, r := range value {
		if unicode.IsControl(r) {
			return "", badRequestCode(fmt.Errorf("name must not contain control characters"), ErrCodeInvalidArgument)
		}
	}
	return value, nil
}

func normalizeDescription(value string) (string, error) {
	value = strings.TrimSpace(value)
	if utf8.RuneCountInString(value) > maxDocumentDescriptionLength {
		return "", badRequestCode(fmt.Errorf("description must be at most %d characters", maxDocumentDescriptionLength), ErrCodeInvalidArgument)
	}
	return value, nil
}

// uploadExtension derives the format extension of an uploaded file and
// checks it against the allow list. An empty allow list accepts any
// extension the format registry knows.
func uploadExtension(filename string, allowed []string) (string, error) {
	ext := models.ExtensionOf(filename)
	if ext == "" {
		return "", badRequestCode(fmt.Errorf("filename %q has no extension", filename), ErrCodeInvalidExtension)
	}
	if len(allowed) == 0 {
		return ext, nil
	}
	for _, candidate := range allowed {
		if candidate == ext {
			return ext, nil
		}
	}
	return "", badRequestCode(fmt.Errorf("extension %q is not accepted for upload", ext), ErrCodeExtensionRejected)
}
