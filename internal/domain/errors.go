package domain

import (
	"errors"
	"fmt"
)

// Fetch failures fall into exactly three categories. All of them are
// non-fatal: the controller records the message in PollState.Error and waits
// for the next trigger.

// NetworkError wraps a transport-level failure where no response arrived.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("weather request failed: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// StatusError is a non-2xx response from the forecast provider.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("weather API returned status %d", e.Code)
}

// MalformedError is a response body that could not be parsed or is missing
// mandatory fields.
type MalformedError struct {
	Reason string
	Err    error
}

func (e *MalformedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed weather response: %s: %v", e.Reason, e.Err)
	}
	return "malformed weather response: " + e.Reason
}

func (e *MalformedError) Unwrap() error { return e.Err }

// ClassifyFetchError buckets a fetch error for logging and metrics labels.
func ClassifyFetchError(err error) string {
	var (
		netErr *NetworkError
		stErr  *StatusError
		malErr *MalformedError
	)
	switch {
	case errors.As(err, &netErr):
		return "network_error"
	case errors.As(err, &stErr):
		return "status_error"
	case errors.As(err, &malErr):
		return "malformed_response"
	default:
		return "error"
	}
}
