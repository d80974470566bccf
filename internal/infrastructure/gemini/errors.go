package gemini

import (
	"errors"
	"fmt"
)

// Kind classifies a failed generateContent call.
type Kind string

const (
	// KindBlocked means the prompt or the answer was stopped by a safety policy.
	KindBlocked Kind = "blocked"
	// KindTruncated means the output hit the token cap before a JSON object closed.
	KindTruncated Kind = "truncated"
	// KindModelUnavailable means the model id is unknown or does not support the call.
	KindModelUnavailable Kind = "model_unavailable"
	// KindMalformed means the model answered but no JSON object could be recovered.
	KindMalformed Kind = "malformed"
	// KindRequest covers transport failures, auth problems and other non-2xx replies.
	KindRequest Kind = "request"
)

// Error is returned by Client.Generate for every failure.
type Error struct {
	Kind   Kind
	Model  string
	Status int
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("gemini %s (%s)", e.Kind, e.Model)
	if e.Status != 0 {
		msg += fmt.Sprintf(" status %d", e.Status)
	}
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind carried by err, or "" if err is not a gemini error.
func KindOf(err error) Kind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return ""
}

// IsKind reports whether err carries kind k.
func IsKind(err error, k Kind) bool {
	return KindOf(err) == k
}
