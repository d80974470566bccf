package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/egovauthenticator/api/internal/application/verification"
	"github.com/egovauthenticator/api/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message        string `json:"message,omitempty"`
	Error          string `json:"error,omitempty"`
	ErrorCode      int    `json:"error_code,omitempty"`
	VerificationID string `json:"verification_id,omitempty"`
}

// AuthEnvelope wraps login responses.
type AuthEnvelope struct {
	Bearer string       `json:"Bearer,omitempty"`
	User   *domain.User `json:"user,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg, ErrorCode: status})
}

// statusFor maps a service error onto an HTTP status and a caller-safe message.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrDuplicateUser):
		return http.StatusConflict, "email already in use by another account"
	case errors.Is(err, domain.ErrBadRequest):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "invalid credentials"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, domain.ErrUnrecognizedDocumentType):
		return http.StatusUnprocessableEntity, "document type is not supported"
	case errors.Is(err, domain.ErrNoModelAvailable), errors.Is(err, domain.ErrVerifierUnavailable):
		return http.StatusServiceUnavailable, "verification service temporarily unavailable"
	case errors.Is(err, domain.ErrExtractionFailed):
		return http.StatusBadGateway, "could not read the document"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// writeServiceError writes err with the mapped status. A failed verification
// attempt also reports the id of the ERROR record it produced.
func writeServiceError(w http.ResponseWriter, err error) {
	status, msg := statusFor(err)
	env := MessageEnvelope{Error: msg, ErrorCode: status}
	var recErr *verification.RecordedError
	if errors.As(err, &recErr) {
		env.VerificationID = recErr.VerificationID
	}
	writeJSON(w, status, env)
}
