package converter

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func upperCase(_ context.Context, in io.Reader, out io.Writer, _, _ string) error {
	data, err := io.ReadAll(in)
	if err != nil {
		return err
	}
	_, err = out.Write(bytes.ToUpper(data))
	return err
}

func TestFuncConverter(t *testing.T) {
	conv := NewFunc(upperCase, Pair{Source: "TXT", Target: ".pdf"})

	assert.True(t, conv.Supports("txt", "pdf"))
	assert.True(t, conv.Supports(".TXT", "PDF"))
	assert.False(t, conv.Supports("pdf", "txt"))

	var out bytes.Buffer
	require.NoError(t, conv.Convert(context.Background(), strings.NewReader("hello"), &out, "txt", "pdf"))
	assert.Equal(t, "HELLO", out.String())

	err := conv.Convert(context.Background(), strings.NewReader("x"), io.Discard, "zip", "pdf")
	require.Error(t, err)
	assert.True(t, IsUnsupported(err))
	assert.Contains(t, err.Error(), "zip->pdf")
}

func TestConversionErrorUnwraps(t *testing.T) {
	cause := errors.New("exit status 1")
	err := error(&ConversionError{Source: "odt", Target: "pdf", Reason: "engine failed", Err: cause})

	assert.True(t, IsConversionError(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "convert odt to pdf: engine failed: exit status 1", err.Error())

	bare := &ConversionError{Source: "odt", Target: "pdf", Reason: "engine produced no output"}
	assert.Equal(t, "convert odt to pdf: engine produced no output", bare.Error())
	assert.False(t, IsConversionError(errors.New("other")))
}

func TestSOfficeSupports(t *testing.T) {
	conv := NewSOffice(SOfficeOptions{})
	tests := []struct {
		source string
		target string
		want   bool
	}{
		{"odt", "pdf", true},
		{"docx", "pdf", true},
		{"XLSX", "pdf", true},
		{"pptx", ".pdf", true},
		{"txt", "pdf", true},
		{"pdf", "pdf", false},
		{"zip", "pdf", false},
		{"odt", "docx", false},
		{"", "pdf", false},
	}
	for _, tt := range tests {
		t.Run(tt.source+"_"+tt.target, func(t *testing.T) {
			assert.Equal(t, tt.want, conv.Supports(tt.source, tt.target))
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("  abc \n", 10))
	assert.Equal(t, "ab...", truncate("abcdef", 2))
}
