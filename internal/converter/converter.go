// Package converter turns a source document into a target format using an
// external engine. Converters are stateless between calls and safe for
// concurrent use.
package converter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"docstore/internal/models"
)

// ErrUnsupported is returned when no conversion exists for a format pair.
var ErrUnsupported = errors.New("conversion not supported")

// Converter converts bytes from one format to another.
type Converter interface {
	Supports(source, target string) bool
	Convert(ctx context.Context, in io.Reader, out io.Writer, source, target string) error
}

// ConversionError reports an engine failure: unreadable input, a crashed
// or timed out engine, or missing output.
type ConversionError struct {
	Source string
	Target string
	Reason string
	Err    error
}

func (e *ConversionError) Error() string {
	msg := fmt.Sprintf("convert %s to %s: %s", e.Source, e.Target, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

// Pair is a source/target extension pair.
type Pair struct {
	Source string
	Target string
}

func newPair(source, target string) Pair {
	return Pair{Source: models.NormalizeExtension(source), Target: models.NormalizeExtension(target)}
}

func (p Pair) String() string {
	return p.Source + "->" + p.Target
}

// ConvertFunc is the signature of a single conversion.
type ConvertFunc func(ctx context.Context, in io.Reader, out io.Writer, source, target string) error

// Func adapts a ConvertFunc into a Converter for a fixed set of pairs.
type Func struct {
	fn    ConvertFunc
	pairs map[Pair]bool
}

// NewFunc returns a Converter that runs fn for the listed pairs.
func NewFunc(fn ConvertFunc, pairs ...Pair) *Func {
	f := &Func{fn: fn, pairs: make(map[Pair]bool, len(pairs))}
	for _, p := range pairs {
		f.pairs[newPair(p.Source, p.Target)] = true
	}
	return f
}

func (f *Func) Supports(source, target string) bool {
	return f.pairs[newPair(source, target)]
}

func (f *Func) Convert(ctx context.Context, in io.Reader, out io.Writer, source, target string) error {
	if !f.Supports(source, target) {
		return unsupported(source, target)
	}
	return f.fn(ctx, in, out, models.NormalizeExtension(source), models.NormalizeExtension(target))
}

func unsupported(source, target string) error {
	return fmt.Errorf("%w: %s", ErrUnsupported, newPair(source, target))
}

// IsUnsupported reports whether err means the format pair has no conversion.
func IsUnsupported(err error) bool {
	return errors.Is(err, ErrUnsupported)
}

// IsConversionError reports whether err carries a *ConversionError.
func IsConversionError(err error) bool {
	var convErr *ConversionError
	return errors.As(err, &convErr)
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
