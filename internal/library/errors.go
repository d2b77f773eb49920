package library

import (
	"errors"

	"github.com/vmunix/anitrack/internal/catalog"
)

var (
	// ErrNotAuthenticated indicates an operation that needs a signed-in user.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrDuplicate indicates the catalog entry is already tracked.
	ErrDuplicate = errors.New("already in library")

	// ErrNotFound indicates the title is not in the library.
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates a rejected input. Nothing was written.
	ErrValidation = errors.New("validation failed")

	// ErrRemoteUnavailable indicates the store or catalog could not be reached
	// or refused the request.
	ErrRemoteUnavailable = errors.New("remote unavailable")
)

// Kind classifies an error for presentation.
type Kind int

const (
	KindNone Kind = iota
	KindNotAuthenticated
	KindDuplicate
	KindNotFound
	KindValidation
	KindRemoteUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "ok"
	case KindNotAuthenticated:
		return "not_authenticated"
	case KindDuplicate:
		return "duplicate_entry"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation_failed"
	default:
		return "remote_unavailable"
	}
}

// Transient reports whether the failure is worth a passing notice and a retry
// by the user, rather than a blocking message.
func (k Kind) Transient() bool {
	return k == KindRemoteUnavailable
}

// KindOf maps err to exactly one kind. Unrecognized errors are treated as
// remote failures.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrNotAuthenticated):
		return KindNotAuthenticated
	case errors.Is(err, ErrDuplicate):
		return KindDuplicate
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrRemoteUnavailable), errors.Is(err, catalog.ErrUnavailable):
		return KindRemoteUnavailable
	case errors.Is(err, ErrNotFound), errors.Is(err, catalog.ErrNotFound):
		return KindNotFound
	default:
		return KindRemoteUnavailable
	}
}
