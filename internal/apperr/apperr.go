// Package apperr defines the failure taxonomy shared by the price client,
// the request coordinator and the session, and maps failures to the single
// status line shown to the user.
package apperr

import "errors"

var (
	ErrNotFound  = errors.New("location unsupported")
	ErrTimeout   = errors.New("request timed out")
	ErrOffline   = errors.New("network unavailable")
	ErrService   = errors.New("service error")
	ErrCancelled = errors.New("request superseded")
	ErrMalformed = errors.New("malformed response")
)

// Message returns the user-facing status text for err. Cancelled requests
// produce an empty message: they are never surfaced.
func Message(err error) string {
	switch {
	case err == nil, errors.Is(err, ErrCancelled):
		return ""
	case errors.Is(err, ErrNotFound):
		return "City not supported yet"
	case errors.Is(err, ErrTimeout):
		return "Server timeout. Try again."
	case errors.Is(err, ErrOffline):
		return "You're offline"
	default:
		// ErrService, ErrMalformed and anything unclassified.
		return "Service temporarily unavailable"
	}
}

// Silent reports whether err must be swallowed without a status change.
func Silent(err error) bool {
	return errors.Is(err, ErrCancelled)
}
