// Package apperr defines the error kinds shared by the storage, content and
// rendition layers. Callers branch on Kind rather than on message text.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind string

const (
	KindFormatNotFound       Kind = "format_not_found"
	KindRepositoryCorruption Kind = "repository_corruption"
	KindConversionFailure    Kind = "conversion_failure"
	KindStorageFailure       Kind = "storage_failure"
	KindConstraintFailure    Kind = "constraint_failure"
	KindNotFound             Kind = "not_found"
	KindInvalid              Kind = "invalid"
	KindInternal             Kind = "internal"
)

// Sentinels usable with errors.Is. They match any *Error of the same kind.
var (
	ErrFormatNotFound       = &Error{Kind: KindFormatNotFound}
	ErrRepositoryCorruption = &Error{Kind: KindRepositoryCorruption}
	ErrConversionFailure    = &Error{Kind: KindConversionFailure}
	ErrStorageFailure       = &Error{Kind: KindStorageFailure}
	ErrConstraintFailure    = &Error{Kind: KindConstraintFailure}
	ErrNotFound             = &Error{Kind: KindNotFound}
	ErrInvalid              = &Error{Kind: KindInvalid}
)

// Error is a classified failure with the operation that produced it.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// E builds a classified error. A nil err yields a bare kind error.
func E(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf is shorthand for E with a formatted cause.
func Errorf(kind Kind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Err != nil:
		return e.Err.Error()
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports kind equality against sentinel-shaped targets (no op, no cause).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return t.Op == "" && t.Err == nil && t.Kind == e.Kind
}

// KindOf returns the kind of the outermost classified error in err's chain,
// or "" when err carries no classification.
func KindOf(err error) Kind {
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Kind
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Classify attaches kind to err unless err is already classified.
func Classify(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != "" {
		if op == "" {
			return err
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return E(kind, op, err)
}
