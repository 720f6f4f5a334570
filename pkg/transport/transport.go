package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/valyala/fasthttp"
)

var (
	// ErrUnreachable covers every connectivity-level failure: the host
	// cannot be resolved or reached, or the request could not be sent.
	ErrUnreachable = errors.New("host unreachable")

	// ErrPrematureDisconnect means the request was sent but the peer
	// closed the connection before a response was read.
	ErrPrematureDisconnect = errors.New("connection closed before response")
)

// Request is a single outbound HTTP exchange. Path is resolved against
// the client's base URL.
type Request struct {
	Method  string
	Path    string
	Body    []byte
	Headers map[string]string
}

type Response struct {
	StatusCode int
	Body       []byte
}

// Doer sends one request and reads one response. Non-2xx status codes
// are returned as responses, not errors; callers own classification.
type Doer interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

type Config struct {
	// BaseURL is the scheme and host of the remote service,
	// e.g. "https://api.strike.acinq.co".
	BaseURL string

	Timeout         time.Duration
	MaxConns        int
	ReadBufferSize  int
	WriteBufferSize int
}

type Client struct {
	config Config
	client *fasthttp.Client
}

func New(config Config) *Client {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.MaxConns == 0 {
		config.MaxConns = 100
	}
	if config.ReadBufferSize == 0 {
		config.ReadBufferSize = 4096
	}
	if config.WriteBufferSize == 0 {
		config.WriteBufferSize = 4096
	}

	return &Client{
		config: config,
		client: &fasthttp.Client{
			// fasthttp retries idempotent requests on its own; retry
			// policy belongs to the caller, so keep it at one attempt.
			MaxIdemponentCallAttempts: 1,

			MaxConnsPerHost:     config.MaxConns,
			ReadTimeout:         config.Timeout,
			WriteTimeout:        config.Timeout,
			MaxIdleConnDuration: 60 * time.Second,
			ReadBufferSize:      config.ReadBufferSize,
			WriteBufferSize:     config.WriteBufferSize,
		},
	}
}

func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	freq := fasthttp.AcquireRequest()
	fresp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(freq)
	defer fasthttp.ReleaseResponse(fresp)

	freq.SetRequestURI(c.config.BaseURL + req.Path)
	freq.Header.SetMethod(req.Method)
	for k, v := range req.Headers {
		freq.Header.Set(k, v)
	}
	if req.Body != nil {
		freq.SetBody(req.Body)
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.config.Timeout)
	}

	if err := c.client.DoDeadline(freq, fresp, deadline); err != nil {
		return nil, classifyNetError(err)
	}

	body := make([]byte, len(fresp.Body()))
	copy(body, fresp.Body())

	return &Response{
		StatusCode: fresp.StatusCode(),
		Body:       body,
	}, nil
}

// classifyNetError separates "the peer hung up before answering" from
// every other connectivity failure. fasthttp reports the former as
// ErrConnectionClosed, or as a bare EOF when the close races the read.
func classifyNetError(err error) error {
	if errors.Is(err, fasthttp.ErrConnectionClosed) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %v", ErrPrematureDisconnect, err)
	}
	return fmt.Errorf("%w: %v", ErrUnreachable, err)
}
