package charge

import (
	"errors"
	"fmt"
)

// The taxonomy is closed: every failure a synchronization can produce
// matches exactly one of these sentinels via errors.Is. A 404 matches
// both ErrChargeNotFound and ErrClientRequest, so callers can check
// "does this charge exist" without string-matching messages.
var (
	ErrConnection         = errors.New("connection failure")
	ErrClientRequest      = errors.New("client request rejected")
	ErrChargeNotFound     = errors.New("charge not found")
	ErrServer             = errors.New("server error")
	ErrUnexpectedResponse = errors.New("unexpected response")
)

// RequestError is a remote-reported failure, built from the error shape
// of a response body. Message carries the service's text verbatim.
type RequestError struct {
	Code    int
	Message string
}

func (e *RequestError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("strike: request failed with code %d", e.Code)
	}
	return fmt.Sprintf("strike: request failed with code %d: %s", e.Code, e.Message)
}

func (e *RequestError) Unwrap() []error {
	switch {
	case e.Code == 404:
		return []error{ErrChargeNotFound, ErrClientRequest}
	case e.Code >= 400 && e.Code < 500:
		return []error{ErrClientRequest}
	case e.Code >= 500 && e.Code < 600:
		return []error{ErrServer}
	}
	return nil
}

// UnexpectedResponseError is raised when a response parses but matches
// neither the success shape nor the error shape. Body holds the raw
// payload so callers can log unknown service behavior.
type UnexpectedResponseError struct {
	StatusCode int
	Body       []byte
}

func (e *UnexpectedResponseError) Error() string {
	body := e.Body
	if len(body) > 256 {
		body = body[:256]
	}
	return fmt.Sprintf("strike: unexpected response (http %d): %s", e.StatusCode, body)
}

func (e *UnexpectedResponseError) Unwrap() error {
	return ErrUnexpectedResponse
}
