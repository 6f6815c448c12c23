package httpx

import (
	"errors"
	"net/http"

	"github.com/stockkeep/stockkeep/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrDuplicate):
		Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, shared.ErrInsufficientStock):
		Problem(w, http.StatusConflict, "Insufficient Stock", err.Error())
	case errors.Is(err, shared.ErrInvalidTransfer):
		Problem(w, http.StatusBadRequest, "Invalid Transfer", err.Error())
	case errors.Is(err, shared.ErrSequenceConflict):
		Problem(w, http.StatusConflict, "Number Conflict", err.Error())
	case errors.Is(err, shared.ErrSequenceOverflow):
		Problem(w, http.StatusConflict, "Sequence Exhausted", err.Error())
	case errors.Is(err, shared.ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", "")
	case errors.Is(err, shared.ErrUnauthorized), errors.Is(err, shared.ErrInvalidCredentials):
		Problem(w, http.StatusUnauthorized, "Unauthorized", "")
	case errors.Is(err, shared.ErrBusy):
		w.Header().Set("Retry-After", "1")
		Problem(w, http.StatusServiceUnavailable, "Busy", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
