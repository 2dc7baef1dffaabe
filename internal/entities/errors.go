package entities

import "errors"

var (
	// ErrTicketNotFound means the ticket (or order) does not exist.
	// Callers surface it as not-found; it is never a system fault.
	ErrTicketNotFound = errors.New("ticket not found")

	// ErrDuplicateTicketID means a create raced an earlier generation
	// of the same ticket id. The orchestrator recovers by fetching the
	// existing ticket; it never reaches an end user.
	ErrDuplicateTicketID = errors.New("duplicate ticket id")

	// ErrStorageUnavailable wraps store I/O failures. Callers retry
	// with backoff; it must never be interpreted as not-found.
	ErrStorageUnavailable = errors.New("storage unavailable")
)
