package helpers

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nimasrn/strike-client/charge"
	"github.com/nimasrn/strike-client/internal/mockstrike"
	"github.com/nimasrn/strike-client/pkg/transport"
	"github.com/stretchr/testify/require"
)

// SetupMockStrike starts an in-process simulated Strike API and
// returns it together with a charge client talking to it over a real
// fasthttp transport.
func SetupMockStrike(t *testing.T) (*mockstrike.Service, *charge.Client) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	service := mockstrike.New(0)
	srv := httptest.NewServer(service.Router())
	t.Cleanup(srv.Close)

	tr := transport.New(transport.Config{
		BaseURL: srv.URL,
		Timeout: 2 * time.Second,
	})

	client, err := charge.NewClient(charge.Config{APIKey: "test-key"}, charge.WithTransport(tr))
	require.NoError(t, err)

	return service, client
}
