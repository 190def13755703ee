package backend

import (
	"strings"

	"github.com/pkg/errors"
)

// NetworkErrorMessage is shown for any transport-level failure
const NetworkErrorMessage = "Network error, please try again later"

// ServerError is an envelope with success=false. Message and Errors are shown verbatim.
type ServerError struct {
	Status  int
	Message string
	Errors  []string
}

func (e *ServerError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "request failed"
	}
	if len(e.Errors) > 0 {
		msg += ": " + strings.Join(e.Errors, ", ")
	}
	return msg
}

// NetworkError covers fetch failures, non-OK statuses without an envelope,
// and bodies that do not decode
type NetworkError struct {
	Op     string
	Status int
	Err    error
}

func (e *NetworkError) Error() string {
	if e.Err != nil {
		return e.Op + ": " + e.Err.Error()
	}
	return e.Op + ": network error"
}

func (e *NetworkError) Unwrap() error { return e.Err }

// UserMessage returns the text a toast should display for err
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var serverErr *ServerError
	if errors.As(err, &serverErr) {
		return serverErr.Error()
	}
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return NetworkErrorMessage
	}
	return errors.Cause(err).Error()
}

// IsNetwork reports whether err came from the transport rather than the API
func IsNetwork(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}
