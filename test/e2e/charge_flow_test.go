package e2e

import (
	"context"
	"testing"
	"time"

	"github.com/nimasrn/strike-client/charge"
	"github.com/nimasrn/strike-client/test/helpers"
	"github.com/nimasrn/strike-client/watcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChargeCreation(t *testing.T) {
	_, client := helpers.SetupMockStrike(t)
	ctx := context.Background()

	ch, err := client.Create(ctx, charge.CreateRequest{
		Amount:      100,
		Currency:    charge.CurrencyBTC,
		Description: "Charge creation note",
	})
	require.NoError(t, err)

	id, err := ch.ID(ctx)
	require.NoError(t, err)
	assert.Greater(t, len(id), 10)

	paid, err := ch.Paid(ctx)
	require.NoError(t, err)
	assert.False(t, paid)
}

func TestChargeRetrieve(t *testing.T) {
	_, client := helpers.SetupMockStrike(t)
	ctx := context.Background()

	created, err := client.Create(ctx, charge.CreateRequest{Amount: 100, Currency: charge.CurrencyBTC})
	require.NoError(t, err)
	id, err := created.ID(ctx)
	require.NoError(t, err)

	retrieved, err := client.Get(ctx, id)
	require.NoError(t, err)

	payReq, err := retrieved.PaymentRequest(ctx)
	require.NoError(t, err)
	assert.Greater(t, len(payReq), 10)
}

func TestChargeNotFound(t *testing.T) {
	_, client := helpers.SetupMockStrike(t)

	_, err := client.Get(context.Background(), "ch_madeupchargeid")
	require.Error(t, err)
	assert.ErrorIs(t, err, charge.ErrChargeNotFound)
	assert.ErrorIs(t, err, charge.ErrClientRequest)
}

func TestChargeInvalidCurrency(t *testing.T) {
	_, client := helpers.SetupMockStrike(t)

	_, err := client.Create(context.Background(), charge.CreateRequest{
		Amount:   100,
		Currency: "non-existent-currency",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, charge.ErrClientRequest)
	assert.NotErrorIs(t, err, charge.ErrChargeNotFound)

	var reqErr *charge.RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Contains(t, reqErr.Message, "non-existent-currency")
}

func TestChargeServerError(t *testing.T) {
	service, client := helpers.SetupMockStrike(t)

	service.FailNext(500, 500, "simulated outage")
	_, err := client.Create(context.Background(), charge.CreateRequest{Amount: 100, Currency: charge.CurrencyBTC})
	require.Error(t, err)
	assert.ErrorIs(t, err, charge.ErrServer)
}

func TestRefreshSurvivesPrematureDisconnect(t *testing.T) {
	service, client := helpers.SetupMockStrike(t)
	ctx := context.Background()

	ch, err := client.Create(ctx, charge.CreateRequest{Amount: 100, Currency: charge.CurrencyBTC})
	require.NoError(t, err)
	id, err := ch.ID(ctx)
	require.NoError(t, err)

	service.DropNextConnection()
	require.NoError(t, ch.Synchronize(ctx))

	after, err := ch.ID(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, after)
}

func TestCreateIsNotRetriedOnDisconnect(t *testing.T) {
	service, client := helpers.SetupMockStrike(t)

	service.DropNextConnection()
	_, err := client.Create(context.Background(), charge.CreateRequest{Amount: 100, Currency: charge.CurrencyBTC})
	require.Error(t, err)
	assert.ErrorIs(t, err, charge.ErrConnection)
}

func TestRepeatedSynchronizeIsIdempotent(t *testing.T) {
	_, client := helpers.SetupMockStrike(t)
	ctx := context.Background()

	ch, err := client.Create(ctx, charge.CreateRequest{Amount: 100, Currency: charge.CurrencyBTC})
	require.NoError(t, err)

	firstID, err := ch.ID(ctx)
	require.NoError(t, err)
	firstReq, err := ch.PaymentRequest(ctx)
	require.NoError(t, err)

	require.NoError(t, ch.Synchronize(ctx))
	require.NoError(t, ch.Synchronize(ctx))

	id, err := ch.ID(ctx)
	require.NoError(t, err)
	payReq, err := ch.PaymentRequest(ctx)
	require.NoError(t, err)
	assert.Equal(t, firstID, id)
	assert.Equal(t, firstReq, payReq)
}

func TestPaidFlow(t *testing.T) {
	service, client := helpers.SetupMockStrike(t)
	ctx := context.Background()

	ch, err := client.Create(ctx, charge.CreateRequest{Amount: 100, Currency: charge.CurrencyBTC})
	require.NoError(t, err)
	id, err := ch.ID(ctx)
	require.NoError(t, err)

	paid, err := ch.Paid(ctx)
	require.NoError(t, err)
	require.False(t, paid)

	require.True(t, service.MarkPaid(id))

	paid, err = ch.Paid(ctx)
	require.NoError(t, err)
	assert.True(t, paid)
}

func TestWatcherObservesSettlement(t *testing.T) {
	service, client := helpers.SetupMockStrike(t)
	ctx := context.Background()

	ch, err := client.Create(ctx, charge.CreateRequest{Amount: 100, Currency: charge.CurrencyBTC})
	require.NoError(t, err)
	id, err := ch.ID(ctx)
	require.NoError(t, err)

	w := watcher.New(watcher.Config{PollInterval: 20 * time.Millisecond, Workers: 1})
	defer w.Close()

	watchID := w.Watch(ctx, ch)

	go func() {
		time.Sleep(100 * time.Millisecond)
		service.MarkPaid(id)
	}()

	select {
	case ev := <-w.Events():
		assert.Equal(t, watchID, ev.WatchID)
		assert.True(t, ev.Paid)
		assert.NoError(t, ev.Err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not observe settlement")
	}
}
