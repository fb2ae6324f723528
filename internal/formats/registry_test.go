package formats

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docstore/internal/apperr"
	"docstore/internal/models"
)

type staticSource struct {
	formats []models.Format
	err     error
}

func (s staticSource) ListFormats(context.Context) ([]models.Format, error) {
	return s.formats, s.err
}

func TestRegistryLookups(t *testing.T) {
	reg, err := Load(context.Background(), staticSource{formats: []models.Format{
		{Extension: "pdf", MimeType: "application/pdf", IsPDF: true},
		{Extension: "ODT", MimeType: "application/vnd.oasis.opendocument.text"},
	}})
	require.NoError(t, err)
	assert.Equal(t, 2, reg.Len())

	odt, err := reg.FindByExtension(".odt")
	require.NoError(t, err)
	assert.Equal(t, "odt", odt.Extension)

	_, err = reg.FindByExtension("xyz")
	require.Error(t, err)
	assert.Equal(t, apperr.KindFormatNotFound, apperr.KindOf(err))

	_, err = reg.RequireByExtension("docx")
	require.Error(t, err)
	assert.Equal(t, apperr.KindRepositoryCorruption, apperr.KindOf(err))

	pdf, err := reg.PDF()
	require.NoError(t, err)
	assert.True(t, pdf.IsPDF)

	list := reg.List()
	require.Len(t, list, 2)
	assert.Equal(t, "odt", list[0].Extension)
	assert.Equal(t, "pdf", list[1].Extension)
}

func TestRegistryMissingPDFIsCorruption(t *testing.T) {
	reg := New(models.Format{Extension: "odt"})
	_, err := reg.PDF()
	assert.True(t, errors.Is(err, apperr.ErrRepositoryCorruption))

	unflagged := New(models.Format{Extension: "pdf"})
	_, err = unflagged.PDF()
	assert.True(t, errors.Is(err, apperr.ErrRepositoryCorruption))
}

func TestLoadPropagatesSourceError(t *testing.T) {
	_, err := Load(context.Background(), staticSource{err: errors.New("db closed")})
	require.Error(t, err)
	assert.Equal(t, apperr.KindStorageFailure, apperr.KindOf(err))
}
