package shared

import "errors"

// Sentinel errors shared across modules. Typed errors in the ledger and
// sequence packages unwrap to these so transport code can map them
// without importing every domain package.
var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates malformed or missing input.
	ErrValidation = errors.New("validation failed")
	// ErrDuplicate indicates a unique constraint violation.
	ErrDuplicate = errors.New("duplicate entry")
	// ErrForbidden indicates an access policy denial.
	ErrForbidden = errors.New("forbidden")
	// ErrUnauthorized indicates a missing or invalid session.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrBusy indicates a bounded lock wait expired; callers may retry.
	ErrBusy = errors.New("resource busy")
	// ErrInsufficientStock indicates a movement would drive a balance negative.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrInvalidTransfer indicates a self-transfer or non-positive quantity.
	ErrInvalidTransfer = errors.New("invalid transfer")
	// ErrSequenceConflict indicates a concurrent writer claimed the same
	// document number; the whole operation is safe to retry.
	ErrSequenceConflict = errors.New("document number conflict")
	// ErrSequenceOverflow indicates the yearly sequence exceeded its width.
	ErrSequenceOverflow = errors.New("document sequence exhausted")
)
