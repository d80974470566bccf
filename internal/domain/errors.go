package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")
)

// Verification pipeline failures. Each one ends in an ERROR verification record.
var (
	// ErrExtractionFailed means the provider returned unusable output after all retries.
	ErrExtractionFailed = errors.New("extraction failed")
	// ErrNoModelAvailable means every configured model was rejected as unsupported.
	ErrNoModelAvailable = errors.New("no extraction model available")
	// ErrVerifierUnavailable covers network and timeout failures talking to the
	// remote verifier or its cookie issuer.
	ErrVerifierUnavailable = errors.New("remote verifier unavailable")
	// ErrUnrecognizedDocumentType means extraction succeeded but the document
	// could not be classified.
	ErrUnrecognizedDocumentType = errors.New("unrecognized document type")
)

// ErrDuplicateUser is returned when a user update collides with another account.
// It wraps ErrConflict so generic conflict handling still applies.
var ErrDuplicateUser = fmt.Errorf("email already in use: %w", ErrConflict)
