package transport

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Do(t *testing.T) {
	var gotMethod, gotPath, gotAuth, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		buf, _ := io.ReadAll(r.Body)
		gotBody = string(buf)

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	client := New(Config{BaseURL: srv.URL, Timeout: 2 * time.Second})

	resp, err := client.Do(context.Background(), &Request{
		Method:  "POST",
		Path:    "/api/v1/charges",
		Body:    []byte("amount=100"),
		Headers: map[string]string{"Authorization": "Basic abc"},
	})
	require.NoError(t, err)

	assert.Equal(t, "POST", gotMethod)
	assert.Equal(t, "/api/v1/charges", gotPath)
	assert.Equal(t, "Basic abc", gotAuth)
	assert.Equal(t, "amount=100", gotBody)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []byte(`{"ok":true}`), resp.Body)
}

func TestClient_Do_StatusIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"code":404,"message":"charge not found"}`))
	}))
	defer srv.Close()

	client := New(Config{BaseURL: srv.URL, Timeout: 2 * time.Second})

	resp, err := client.Do(context.Background(), &Request{Method: "GET", Path: "/api/v1/charges/ch_x"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(resp.Body), "charge not found")
}

func TestClient_Do_PrematureDisconnect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, _, err := w.(http.Hijacker).Hijack()
		require.NoError(t, err)
		conn.Close()
	}))
	defer srv.Close()

	client := New(Config{BaseURL: srv.URL, Timeout: 2 * time.Second})

	resp, err := client.Do(context.Background(), &Request{Method: "GET", Path: "/api/v1/charges/ch_x"})
	assert.Nil(t, resp)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPrematureDisconnect)
	assert.NotErrorIs(t, err, ErrUnreachable)
}

func TestClient_Do_Unreachable(t *testing.T) {
	// nothing listens here
	client := New(Config{BaseURL: "http://127.0.0.1:1", Timeout: 500 * time.Millisecond})

	resp, err := client.Do(context.Background(), &Request{Method: "GET", Path: "/api/v1/charges"})
	assert.Nil(t, resp)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnreachable)
}

func TestClient_Defaults(t *testing.T) {
	client := New(Config{BaseURL: "http://localhost"})
	assert.Equal(t, 30*time.Second, client.config.Timeout)
	assert.Equal(t, 100, client.config.MaxConns)
}
