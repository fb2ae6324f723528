package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOfFollowsWrapChain(t *testing.T) {
	base := E(KindFormatNotFound, "find format", fmt.Errorf("extension %q", "xyz"))
	wrapped := fmt.Errorf("create content: %w", base)

	if got := KindOf(wrapped); got != KindFormatNotFound {
		t.Fatalf("expected %s, got %q", KindFormatNotFound, got)
	}
	if !errors.Is(wrapped, ErrFormatNotFound) {
		t.Fatal("expected errors.Is to match format-not-found sentinel")
	}
	if errors.Is(wrapped, ErrRepositoryCorruption) {
		t.Fatal("format-not-found must not match repository corruption")
	}
	if KindOf(errors.New("plain")) != "" {
		t.Fatal("expected unclassified error to have no kind")
	}
}

func TestClassifyKeepsExistingKind(t *testing.T) {
	original := E(KindRepositoryCorruption, "pdf format", nil)

	got := Classify(KindStorageFailure, "record", original)
	if KindOf(got) != KindRepositoryCorruption {
		t.Fatalf("expected existing kind to win, got %q", KindOf(got))
	}

	plain := Classify(KindStorageFailure, "write blob", errors.New("disk full"))
	if KindOf(plain) != KindStorageFailure {
		t.Fatalf("expected storage failure, got %q", KindOf(plain))
	}
	if plain.Error() != "write blob: disk full" {
		t.Fatalf("unexpected message: %q", plain.Error())
	}

	if Classify(KindInternal, "noop", nil) != nil {
		t.Fatal("expected nil passthrough")
	}
}

func TestErrorMessageShapes(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{name: "kind only", err: &Error{Kind: KindNotFound}, want: "not_found"},
		{name: "op only", err: &Error{Kind: KindInvalid, Op: "parse"}, want: "parse: invalid"},
		{name: "cause only", err: &Error{Kind: KindInternal, Err: errors.New("boom")}, want: "boom"},
		{name: "op and cause", err: &Error{Kind: KindInternal, Op: "run", Err: errors.New("boom")}, want: "run: boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
