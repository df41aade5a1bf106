package scheduling

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Failure kinds. Callers classify a scheduling error with errors.Is against
// one of these and read detail from the *Error carrying it.
var (
	ErrValidation       = errors.New("validation failed")
	ErrScheduleConflict = errors.New("schedule conflict")
	ErrClientExists     = errors.New("client already exists")
	ErrNotFound         = errors.New("not found")
	ErrStoreUnavailable = errors.New("store unavailable")
)

// Error is a scheduling failure: a kind for classification plus a message fit
// for the API response. ConflictIDs is populated for schedule conflicts.
type Error struct {
	kind        error
	Message     string
	ConflictIDs []uuid.UUID
}

func (e *Error) Error() string { return e.Message }

// Unwrap exposes the kind so errors.Is(err, ErrScheduleConflict) works.
func (e *Error) Unwrap() error { return e.kind }

// ValidationError reports malformed or missing input.
func ValidationError(msg string) *Error {
	return &Error{kind: ErrValidation, Message: msg}
}

// NotFoundError reports a missing appointment, doctor, or client.
func NotFoundError(msg string) *Error {
	return &Error{kind: ErrNotFound, Message: msg}
}

// ConflictError reports that the requested interval is already occupied,
// naming the appointments holding it.
func ConflictError(ids []uuid.UUID) *Error {
	noun := "appointment"
	if len(ids) > 1 {
		noun = "appointments"
	}
	return &Error{
		kind:        ErrScheduleConflict,
		Message:     fmt.Sprintf("the requested interval conflicts with %s %s", noun, joinIDs(ids)),
		ConflictIDs: ids,
	}
}

// ClientExistsError reports a national-id collision while registering a
// client.
func ClientExistsError(nationalID string) *Error {
	return &Error{
		kind:    ErrClientExists,
		Message: fmt.Sprintf("a client with national id %s already exists", nationalID),
	}
}

// StoreError reports that the data store could not serve the operation.
func StoreError(err error) *Error {
	return &Error{kind: ErrStoreUnavailable, Message: fmt.Sprintf("appointment store unavailable: %v", err)}
}

func joinIDs(ids []uuid.UUID) string {
	ss := make([]string, len(ids))
	for i, id := range ids {
		ss[i] = id.String()
	}
	return strings.Join(ss, ", ")
}
