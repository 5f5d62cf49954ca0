package core

import (
	"errors"
	"strings"
	"testing"
)

func TestKindOfExtractsKindThroughWrap(t *testing.T) {
	base := newErr(KindNotFound, "sheet missing")
	wrapped := wrapErr(KindPersistenceFailed, "save sheet", base)
	if kind, ok := KindOf(wrapped); !ok || kind != KindPersistenceFailed {
		t.Fatalf("expected outer kind persistence_failed, got %v ok=%v", kind, ok)
	}
}

func TestKindOfFalseForPlainError(t *testing.T) {
	if _, ok := KindOf(errors.New("boom")); ok {
		t.Fatalf("expected ok=false for a non-core error")
	}
}

func TestErrorIsComparesKindOnly(t *testing.T) {
	err := newErr(KindQualityRejected, "too damaged")
	if !errors.Is(err, ErrKind(KindQualityRejected)) {
		t.Fatalf("expected errors.Is to match on Kind")
	}
	if errors.Is(err, ErrKind(KindNotFound)) {
		t.Fatalf("expected errors.Is to not match a different Kind")
	}
}

func TestErrorUnwrap(t *testing.T) {
	inner := errors.New("driver failure")
	err := wrapErr(KindExternalFailed, "call provider", inner)
	if !errors.Is(err, inner) {
		t.Fatalf("expected errors.Is to reach the wrapped cause")
	}
}

func TestErrorMessageIncludesWrappedCause(t *testing.T) {
	inner := errors.New("timeout")
	err := wrapErr(KindExternalFailed, "fetch image", inner)
	msg := err.Error()
	if !strings.Contains(msg, "timeout") {
		t.Fatalf("expected error message to include the wrapped cause, got %q", msg)
	}
}
