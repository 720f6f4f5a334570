// Package mockstrike simulates the Strike charge API for local
// development and e2e tests: in-memory charges, the documented error
// body shape, and knobs for fault injection.
package mockstrike

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Charge is the success shape of the Strike API.
type Charge struct {
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

	customerID string
}

type forcedError struct {
	status  int
	code    int
	message string
}

// Service holds the simulated charge store and fault-injection state.
type Service struct {
	mu      sync.Mutex
	charges map[string]*Charge

	// settleDelay > 0 marks each new charge paid after the delay.
	settleDelay time.Duration

	dropNext int
	failNext *forcedError
}

func New(settleDelay time.Duration) *Service {
	return &Service{
		charges:     make(map[string]*Charge),
		settleDelay: settleDelay,
	}
}

// DropNextConnection makes the service close the next connection
// before writing a response, simulating the premature-disconnect quirk
// of the real servers.
func (s *Service) DropNextConnection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropNext++
}

// FailNext forces the next request to answer with the given HTTP
// status and error body.
func (s *Service) FailNext(status, code int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = &forcedError{status: status, code: code, message: message}
}

// MarkPaid settles a charge. Returns false if the id is unknown.
func (s *Service) MarkPaid(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.charges[id]
	if !ok {
		return false
	}
	ch.Paid = true
	ch.Updated = time.Now().Unix()
	return true
}

// Router builds the gin engine serving the simulated API.
func (s *Service) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("Request processed")
	})
	router.Use(s.faultMiddleware)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/charges", s.createCharge)
		v1.GET("/charges/:id", s.getCharge)
		v1.POST("/charges/:id/pay", s.payCharge)
	}

	return router
}

func (s *Service) faultMiddleware(c *gin.Context) {
	s.mu.Lock()
	if s.dropNext > 0 {
		s.dropNext--
		s.mu.Unlock()

		conn, _, err := c.Writer.Hijack()
		if err == nil {
			conn.Close()
		}
		log.Warn().Str("path", c.Request.URL.Path).Msg("Dropped connection before response")
		c.Abort()
		return
	}
	if s.failNext != nil {
		fe := s.failNext
		s.failNext = nil
		s.mu.Unlock()

		c.AbortWithStatusJSON(fe.status, gin.H{"code": fe.code, "message": fe.message})
		return
	}
	s.mu.Unlock()
	c.Next()
}

func (s *Service) createCharge(c *gin.Context) {
	if !authorized(c) {
		return
	}

	amount, err := strconv.ParseInt(c.PostForm("amount"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": "amount must be an integer"})
		return
	}

	currency := c.PostForm("currency")
	if currency != "btc" {
		c.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": "unsupported currency: " + currency})
		return
	}

	now := time.Now().Unix()
	ch := &Charge{
		ID:             "ch_" + uuid.New().String(),
		Amount:         amount,
		Currency:       currency,
		AmountSatoshi:  amount,
		PaymentHash:    randomHex(),
		PaymentRequest: "lntb1" + randomHex() + randomHex(),
		Description:    c.PostForm("description"),
		Created:        now,
		Updated:        now,
		customerID:     c.PostForm("customer_id"),
	}

	s.mu.Lock()
	s.charges[ch.ID] = ch
	s.mu.Unlock()

	if s.settleDelay > 0 {
		go func(id string) {
			time.Sleep(s.settleDelay)
			if s.MarkPaid(id) {
				log.Info().Str("charge_id", id).Msg("Charge settled")
			}
		}(ch.ID)
	}

	log.Info().
		Str("charge_id", ch.ID).
		Int64("amount", ch.Amount).
		Str("customer_id", ch.customerID).
		Msg("Charge created")

	c.JSON(http.StatusOK, ch)
}

func (s *Service) getCharge(c *gin.Context) {
	if !authorized(c) {
		return
	}

	s.mu.Lock()
	ch, ok := s.charges[c.Param("id")]
	var snapshot Charge
	if ok {
		snapshot = *ch
	}
	s.mu.Unlock()

	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"code": 404, "message": "charge not found"})
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func (s *Service) payCharge(c *gin.Context) {
	if !authorized(c) {
		return
	}

	id := c.Param("id")
	if !s.MarkPaid(id) {
		c.JSON(http.StatusNotFound, gin.H{"code": 404, "message": "charge not found"})
		return
	}

	s.mu.Lock()
	snapshot := *s.charges[id]
	s.mu.Unlock()

	log.Info().Str("charge_id", id).Msg("Charge paid")
	c.JSON(http.StatusOK, snapshot)
}

func authorized(c *gin.Context) bool {
	if !strings.HasPrefix(c.GetHeader("Authorization"), "Basic ") {
		c.JSON(http.StatusUnauthorized, gin.H{"code": 401, "message": "missing credentials"})
		return false
	}
	return true
}

func randomHex() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}
