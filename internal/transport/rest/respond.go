package rest

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/taskmaster-io/backend/internal/domain"
)

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// handleDomainError maps domain errors onto the REST status vocabulary.
// Expired links get their own status (410) so clients can tell "never had
// access" from "had access, the link ran out".
func handleDomainError(w http.ResponseWriter, log *slog.Logger, err error) {
	var lockErr *domain.ShareLockError
	if errors.As(err, &lockErr) {
		writeJSON(w, http.StatusConflict, map[string]string{
			"error":           "canvas already has an indefinite view link",
			"existingShareId": lockErr.ExistingID,
		})
		return
	}

	switch {
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrLinkExpired):
		writeError(w, http.StatusGone, "share link expired")
	case errors.Is(err, domain.ErrTooManyNodes):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrReadOnly):
		writeError(w, http.StatusForbidden, "read-only access")
	case errors.Is(err, domain.ErrAlreadyExists), errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	default:
		log.Error("internal error", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
