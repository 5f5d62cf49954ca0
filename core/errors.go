package core

import (
	"errors"
	"fmt"
)

// Kind enumerates the domain-level error taxonomy. Callers should branch on
// Kind rather than comparing error strings.
type Kind string

const (
	KindNotFound             Kind = "not_found"
	KindAlreadyExists        Kind = "already_exists"
	KindInvalidState         Kind = "invalid_state"
	KindHashMismatch         Kind = "hash_mismatch"
	KindSignaturesIncomplete Kind = "signatures_incomplete"
	KindQualityRejected      Kind = "quality_rejected"
	KindMiningBudgetExceeded Kind = "mining_budget_exceeded"
	KindExternalFailed       Kind = "external_failed"
	KindPersistenceFailed    Kind = "persistence_failed"
	KindIntegrityViolation   Kind = "integrity_violation"
)

// Error is the concrete type returned by every core operation that fails for
// a reason a caller is expected to branch on.
type Error struct {
	Kind    Kind
	Message string
	// Missing carries the signer types still outstanding for a
	// signatures_incomplete error.
	Missing []SignerType
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is allows errors.Is(err, ErrKind(KindNotFound)) style checks by comparing
// Kind whenever the target is also a *Error; the target's message is ignored.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func newErr(k Kind, msg string) *Error { return &Error{Kind: k, Message: msg} }

func wrapErr(k Kind, msg string, err error) *Error {
	return &Error{Kind: k, Message: msg, Err: err}
}

// NewError and WrapError are the exported equivalents of newErr/wrapErr,
// for collaborator packages (store, audit, httpapi) that need to surface
// the same typed error taxonomy without reaching into core internals.
func NewError(k Kind, msg string) error { return newErr(k, msg) }

func WrapError(k Kind, msg string, err error) error { return wrapErr(k, msg, err) }

// KindOf extracts the Kind from err, walking the unwrap chain. The second
// return is false if no *Error is found anywhere in the chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// ErrKind constructs a sentinel usable with errors.Is to test only the Kind
// of an error, ignoring message and wrapped cause.
func ErrKind(k Kind) error { return &Error{Kind: k} }
