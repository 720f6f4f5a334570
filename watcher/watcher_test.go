package watcher

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/nimasrn/strike-client/charge"
	"github.com/nimasrn/strike-client/pkg/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// paidAfter answers every request with the same charge, reporting
// paid=true once the configured number of polls has been served.
type paidAfter struct {
	mu    sync.Mutex
	calls int
	after int
}

func (f *paidAfter) Do(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	f.mu.Lock()
	f.calls++
	paid := f.calls > f.after
	f.mu.Unlock()

	body, _ := json.Marshal(map[string]interface{}{
		"id":              "ch_watchedcharge01",
		"amount":          100,
		"currency":        "btc",
		"amount_satoshi":  100,
		"payment_hash":    "aa11",
		"payment_request": "lntb1watchedcharge01",
		"description":     "",
		"paid":            paid,
		"created":         1540000000,
		"updated":         1540000000,
	})
	return &transport.Response{StatusCode: 200, Body: body}, nil
}

func newWatchedCharge(t *testing.T, doer transport.Doer) *charge.Charge {
	t.Helper()
	client, err := charge.NewClient(charge.Config{APIKey: "k3y"}, charge.WithTransport(doer))
	require.NoError(t, err)
	return client.NewCharge(charge.CreateRequest{Amount: 100, Currency: charge.CurrencyBTC})
}

func TestWatcher_PaidEvent(t *testing.T) {
	w := New(Config{PollInterval: 10 * time.Millisecond, Workers: 2, Buffer: 8})
	defer w.Close()

	ch := newWatchedCharge(t, &paidAfter{after: 3})
	id := w.Watch(context.Background(), ch)

	select {
	case ev := <-w.Events():
		assert.Equal(t, id, ev.WatchID)
		assert.True(t, ev.Paid)
		assert.NoError(t, ev.Err)
		assert.Same(t, ch, ev.Charge)
	case <-time.After(2 * time.Second):
		t.Fatal("no event before timeout")
	}

	t.Run("paid charge answers locally afterwards", func(t *testing.T) {
		paid, err := ch.Paid(context.Background())
		require.NoError(t, err)
		assert.True(t, paid)
	})
}

func TestWatcher_ContextCancellation(t *testing.T) {
	w := New(Config{PollInterval: 10 * time.Millisecond, Workers: 1, Buffer: 8})
	defer w.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	// never pays
	ch := newWatchedCharge(t, &paidAfter{after: 1 << 30})
	w.Watch(ctx, ch)

	select {
	case ev := <-w.Events():
		assert.False(t, ev.Paid)
		assert.Error(t, ev.Err)
	case <-time.After(2 * time.Second):
		t.Fatal("no event before timeout")
	}
}

func TestWatcher_Defaults(t *testing.T) {
	w := New(Config{})
	defer w.Close()

	assert.Equal(t, 5*time.Second, w.config.PollInterval)
	assert.Equal(t, 4, w.config.Workers)
}
