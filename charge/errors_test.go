package charge

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestError_Unwrap(t *testing.T) {
	t.Run("404 matches both not-found and client-request", func(t *testing.T) {
		err := &RequestError{Code: 404, Message: "charge not found"}
		assert.ErrorIs(t, err, ErrChargeNotFound)
		assert.ErrorIs(t, err, ErrClientRequest)
		assert.NotErrorIs(t, err, ErrServer)
	})

	t.Run("4xx matches client-request only", func(t *testing.T) {
		err := &RequestError{Code: 422, Message: "bad amount"}
		assert.ErrorIs(t, err, ErrClientRequest)
		assert.NotErrorIs(t, err, ErrChargeNotFound)
	})

	t.Run("5xx matches server", func(t *testing.T) {
		err := &RequestError{Code: 503}
		assert.ErrorIs(t, err, ErrServer)
		assert.NotErrorIs(t, err, ErrClientRequest)
	})
}

func TestRequestError_Message(t *testing.T) {
	withMessage := &RequestError{Code: 400, Message: "unsupported currency"}
	assert.Contains(t, withMessage.Error(), "unsupported currency")
	assert.Contains(t, withMessage.Error(), "400")

	withoutMessage := &RequestError{Code: 500}
	assert.Contains(t, withoutMessage.Error(), "500")
}

func TestUnexpectedResponseError(t *testing.T) {
	t.Run("carries the raw body", func(t *testing.T) {
		err := &UnexpectedResponseError{StatusCode: 200, Body: []byte(`{"weird":true}`)}
		assert.ErrorIs(t, err, ErrUnexpectedResponse)
		assert.Contains(t, err.Error(), `{"weird":true}`)
	})

	t.Run("long bodies are truncated in the message", func(t *testing.T) {
		err := &UnexpectedResponseError{StatusCode: 502, Body: []byte(strings.Repeat("x", 4096))}
		assert.Less(t, len(err.Error()), 512)
	})
}
