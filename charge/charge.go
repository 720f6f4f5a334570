// Package charge is a client for the Strike web service. Use it to
// create, retrieve, and update lightning network charges.
//
// Each Charge is a lazy mirror of a single charge on the Strike
// servers: it talks to Strike implicitly through its getters, but only
// as needed. A charge built with NewCharge is not registered remotely
// until the first getter for a server-assigned field runs; reading
// Paid polls the server until the payment has been seen to clear, and
// never again after that.
package charge

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/nimasrn/strike-client/pkg/logger"
	"github.com/nimasrn/strike-client/pkg/prom"
	"github.com/nimasrn/strike-client/pkg/transport"
)

const CurrencyBTC = "btc"

const userAgent = "strike-client"

// Config identifies the Strike tenant: credential, host, and the API
// path prefix, e.g. "/api/v1/".
type Config struct {
	APIKey  string
	APIHost string
	APIBase string

	// Timeout bounds each round trip when no context deadline is set.
	// Zero means the transport default.
	Timeout time.Duration
}

type Option func(*Client)

// WithTransport replaces the default fasthttp transport. Tests use it
// to script responses or to point the client at a local fake.
func WithTransport(d transport.Doer) Option {
	return func(c *Client) {
		c.transport = d
	}
}

// Client produces Charge instances bound to one Strike tenant.
type Client struct {
	config        Config
	transport     transport.Doer
	authorization string
}

func NewClient(config Config, opts ...Option) (*Client, error) {
	if config.APIBase == "" {
		config.APIBase = "/api/v1/"
	}

	c := &Client{config: config}
	for _, opt := range opts {
		opt(c)
	}

	if c.transport == nil {
		if config.APIHost == "" {
			return nil, errors.New("charge: api host is required")
		}
		c.transport = transport.New(transport.Config{
			BaseURL: "https://" + config.APIHost,
			Timeout: config.Timeout,
		})
	}

	auth := base64.StdEncoding.EncodeToString([]byte(config.APIKey + ":"))
	c.authorization = "Basic " + auth

	return c, nil
}

// CreateRequest holds the caller-supplied terms of a new charge.
// Amount is denominated in Currency.
type CreateRequest struct {
	Amount      int64
	Currency    string
	Description string
	CustomerID  string
}

// NewCharge builds a local charge without registering it remotely.
// The first read of a server-assigned field performs the registration.
func (c *Client) NewCharge(req CreateRequest) *Charge {
	return &Charge{
		client:      c,
		amount:      req.Amount,
		currency:    req.Currency,
		description: req.Description,
		customerID:  req.CustomerID,
	}
}

// Create registers a new charge on the Strike server before returning.
func (c *Client) Create(ctx context.Context, req CreateRequest) (*Charge, error) {
	ch := c.NewCharge(req)
	if err := ch.Synchronize(ctx); err != nil {
		return nil, err
	}
	return ch, nil
}

// Get fills a charge from the server by its remote id.
func (c *Client) Get(ctx context.Context, chargeID string) (*Charge, error) {
	ch := &Charge{
		client:   c,
		currency: CurrencyBTC,
		id:       chargeID,
	}
	if err := ch.Synchronize(ctx); err != nil {
		return nil, err
	}
	return ch, nil
}

// Charge mirrors a single charge on the Strike servers.
//
// A Charge is not safe for concurrent use; callers running getters or
// Synchronize from multiple goroutines must serialize access.
type Charge struct {
	client *Client

	amount      int64
	currency    string
	description string
	customerID  string

	// Server-assigned. A non-empty id is the discriminator between
	// "not yet created remotely" and "exists remotely"; once set it
	// never reverts. Nil pointers mean "not yet retrieved".
	id             string
	amountSatoshi  *int64
	paymentRequest string
	paymentHash    string
	paid           bool
	created        *int64
	updated        *int64
}

type syncMode int

const (
	modeCreate syncMode = iota
	modeRefresh
)

func (m syncMode) String() string {
	if m == modeCreate {
		return "create"
	}
	return "refresh"
}

// Synchronize performs exactly one round trip with the Strike server:
// a POST creating the charge when it has no id yet, a GET refreshing it
// otherwise. On success every server-assigned field is overwritten
// together; on failure the previous snapshot is preserved and a
// taxonomy error is returned.
//
// A refresh whose connection is closed by the peer before the response
// is read is resent once. Strike has been observed to drop the first
// GET after a payment clears; the create path is never resent because
// it is not idempotent.
func (ch *Charge) Synchronize(ctx context.Context) error {
	req, mode := ch.buildRequest()

	start := time.Now()
	resp, err := ch.client.transport.Do(ctx, req)
	if err != nil {
		if mode == modeRefresh && errors.Is(err, transport.ErrPrematureDisconnect) {
			logger.Debug("resending refresh after premature disconnect", "charge_id", ch.id)
			prom.IncChargeSyncRetry()
			resp, err = ch.client.transport.Do(ctx, req)
		}
		if err != nil {
			prom.IncChargeSync(mode.String(), "connection_error")
			return fmt.Errorf("%w: %v", ErrConnection, err)
		}
	}
	prom.AddChargeSyncDuration(mode.String(), time.Since(start).Seconds())

	payload, err := classify(resp)
	if err != nil {
		prom.IncChargeSync(mode.String(), "remote_error")
		logger.Warn("charge sync failed", "mode", mode.String(), "status", resp.StatusCode, "error", err)
		return err
	}

	ch.apply(payload)
	prom.IncChargeSync(mode.String(), "ok")
	logger.Debug("charge synchronized", "mode", mode.String(), "charge_id", ch.id, "paid", ch.paid)

	return nil
}

func (ch *Charge) buildRequest() (*transport.Request, syncMode) {
	headers := map[string]string{
		"Authorization": ch.client.authorization,
		"Accept":        "*/*",
		"User-Agent":    userAgent,
	}

	if ch.id == "" {
		form := url.Values{}
		form.Set("amount", strconv.FormatInt(ch.amount, 10))
		form.Set("currency", ch.currency)
		form.Set("description", ch.description)
		form.Set("customer_id", ch.customerID)
		headers["Content-Type"] = "application/x-www-form-urlencoded"

		return &transport.Request{
			Method:  "POST",
			Path:    ch.client.config.APIBase + "charges",
			Body:    []byte(form.Encode()),
			Headers: headers,
		}, modeCreate
	}

	return &transport.Request{
		Method:  "GET",
		Path:    ch.client.config.APIBase + "charges/" + ch.id,
		Headers: headers,
	}, modeRefresh
}

// chargePayload is the success shape of a response body.
type chargePayload struct {
	ID             string `json:"id"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	AmountSatoshi  int64  `json:"amount_satoshi"`
	PaymentHash    string `json:"payment_hash"`
	PaymentRequest string `json:"payment_request"`
	Description    string `json:"description"`
	Paid           bool   `json:"paid"`
	Created        int64  `json:"created"`
	Updated        int64  `json:"updated"`
}

var successKeys = []string{
	"id", "amount", "currency", "amount_satoshi", "payment_hash",
	"payment_request", "description", "paid", "created", "updated",
}

// classify turns a response into either a complete payload or a
// taxonomy error. A body carrying every success key is a payload; a
// body carrying a numeric "code" is a remote-reported failure; anything
// else is unrecognized and kept raw for diagnostics.
func classify(resp *transport.Response) (*chargePayload, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(resp.Body, &raw); err != nil {
		return nil, &UnexpectedResponseError{StatusCode: resp.StatusCode, Body: resp.Body}
	}

	complete := true
	for _, key := range successKeys {
		if _, ok := raw[key]; !ok {
			complete = false
			break
		}
	}
	if complete {
		var p chargePayload
		if err := json.Unmarshal(resp.Body, &p); err != nil {
			return nil, &UnexpectedResponseError{StatusCode: resp.StatusCode, Body: resp.Body}
		}
		return &p, nil
	}

	codeRaw, ok := raw["code"]
	if !ok {
		return nil, &UnexpectedResponseError{StatusCode: resp.StatusCode, Body: resp.Body}
	}
	var code int
	if err := json.Unmarshal(codeRaw, &code); err != nil {
		return nil, &UnexpectedResponseError{StatusCode: resp.StatusCode, Body: resp.Body}
	}
	var message string
	if messageRaw, ok := raw["message"]; ok {
		_ = json.Unmarshal(messageRaw, &message)
	}

	if code >= 400 && code < 600 {
		return nil, &RequestError{Code: code, Message: message}
	}
	return nil, &UnexpectedResponseError{StatusCode: resp.StatusCode, Body: resp.Body}
}

func (ch *Charge) apply(p *chargePayload) {
	if p.ID != "" {
		ch.id = p.ID
	}
	ch.amount = p.Amount
	ch.currency = p.Currency
	ch.description = p.Description
	ch.amountSatoshi = &p.AmountSatoshi
	ch.paymentHash = p.PaymentHash
	ch.paymentRequest = p.PaymentRequest
	ch.created = &p.Created
	ch.updated = &p.Updated

	// paid is monotonic: a cleared payment never unclears.
	if p.Paid {
		ch.paid = true
	}
}

// ID returns the charge's remote id, synchronizing first if the charge
// has not been created on the server yet.
func (ch *Charge) ID(ctx context.Context) (string, error) {
	if ch.id == "" {
		if err := ch.Synchronize(ctx); err != nil {
			return "", err
		}
	}
	return ch.id, nil
}

// AmountSatoshi returns the server-normalized amount in satoshi.
func (ch *Charge) AmountSatoshi(ctx context.Context) (int64, error) {
	if ch.amountSatoshi == nil {
		if err := ch.Synchronize(ctx); err != nil {
			return 0, err
		}
	}
	return *ch.amountSatoshi, nil
}

// PaymentRequest returns the lightning payment request string.
func (ch *Charge) PaymentRequest(ctx context.Context) (string, error) {
	if ch.paymentRequest == "" {
		if err := ch.Synchronize(ctx); err != nil {
			return "", err
		}
	}
	return ch.paymentRequest, nil
}

// Paid reports whether the payment has cleared. While false it polls
// the server once per call; once true it answers locally forever.
func (ch *Charge) Paid(ctx context.Context) (bool, error) {
	if !ch.paid {
		if err := ch.Synchronize(ctx); err != nil {
			return false, err
		}
	}
	return ch.paid, nil
}

// Created returns the creation time as epoch seconds.
func (ch *Charge) Created(ctx context.Context) (int64, error) {
	if ch.created == nil {
		if err := ch.Synchronize(ctx); err != nil {
			return 0, err
		}
	}
	return *ch.created, nil
}

// Updated returns the last-update time as epoch seconds.
func (ch *Charge) Updated(ctx context.Context) (int64, error) {
	if ch.updated == nil {
		if err := ch.Synchronize(ctx); err != nil {
			return 0, err
		}
	}
	return *ch.updated, nil
}

// The remaining getters never touch the network. After a successful
// synchronization they reflect the server's canonical values.

func (ch *Charge) Amount() int64 {
	return ch.amount
}

func (ch *Charge) Currency() string {
	return ch.currency
}

func (ch *Charge) Description() string {
	return ch.description
}

func (ch *Charge) CustomerID() string {
	return ch.customerID
}

func (ch *Charge) PaymentHash() string {
	return ch.paymentHash
}
