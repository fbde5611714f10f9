package client

import (
	"errors"
	"fmt"
)

// Messages shown to the user when the service gives nothing better.
const (
	MsgGeneric        = "An error occurred. Please try again."
	MsgAnalysisFailed = "Analysis failed. Please try again."
)

// APIError is a response the analysis service rejected or that could not be
// understood. Message is safe to show to the user.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("analysis API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// TransportError is a request that never produced a response.
type TransportError struct {
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("failed to reach analysis service %s: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// UserMessage maps any submission error to the text the status area shows.
func UserMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return MsgGeneric
}
