package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trading_bridge/internal/feature/broker/usecase"
	platformhttp "trading_bridge/internal/platform/http"
)

func ptr(v float64) *float64 { return &v }

func TestPlaceOrder(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/brokers/accounts/acc-1/discretionary/orders", r.URL.Path)
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "NQH6", body["symbol"])
		assert.Equal(t, "BUY", body["side"])
		assert.Equal(t, float64(2), body["quantity"])
		assert.Equal(t, "LIMIT", body["type"])
		assert.Equal(t, 21500.25, body["price"])
		assert.NotContains(t, body, "stop_price", "unused price fields must be omitted")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"order_id":"ord-42"}`))
	}))
	defer srv.Close()

	api := NewRestOrderAPI(srv.URL, func() string { return "tok-1" })
	orderID, err := api.PlaceOrder(context.Background(), "acc-1", usecase.PlaceOrderRequest{
		Symbol:   "NQH6",
		Side:     "BUY",
		Quantity: 2,
		Type:     "LIMIT",
		Price:    ptr(21500.25),
	})
	require.NoError(t, err)
	assert.Equal(t, "ord-42", orderID)
}

func TestModifyOrder_AlwaysSendsOrderType(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/v1/brokers/accounts/acc-1/orders/ord-42", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "STOP", body["orderType"])
		assert.Equal(t, false, body["isAutomated"])
		assert.Equal(t, 21400.0, body["stopPrice"])
		assert.NotContains(t, body, "qty")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	api := NewRestOrderAPI(srv.URL, func() string { return "tok" })
	err := api.ModifyOrder(context.Background(), "acc-1", "ord-42", usecase.ModifyOrderRequest{
		OrderType: "STOP",
		StopPrice: ptr(21400),
	})
	require.NoError(t, err)
}

func TestCancelAndPositionCommands(t *testing.T) {
	t.Parallel()

	type call struct{ method, path string }
	var calls []call
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, call{r.Method, r.URL.Path})
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	api := NewRestOrderAPI(srv.URL, func() string { return "tok" })
	ctx := context.Background()
	require.NoError(t, api.CancelOrder(ctx, "acc-1", "ord-42"))
	require.NoError(t, api.ClosePosition(ctx, "acc-1", "pos-7"))
	require.NoError(t, api.ReversePosition(ctx, "acc-1", "pos-7"))

	assert.Equal(t, []call{
		{http.MethodDelete, "/api/v1/brokers/accounts/acc-1/orders/ord-42"},
		{http.MethodPost, "/api/v1/brokers/accounts/acc-1/positions/pos-7/close"},
		{http.MethodPost, "/api/v1/brokers/accounts/acc-1/positions/pos-7/reverse"},
	}, calls)
}

func TestPlaceOrder_ServerDetailSurfaces(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"detail":"insufficient buying power"}`))
	}))
	defer srv.Close()

	api := NewRestOrderAPI(srv.URL, func() string { return "tok" })
	_, err := api.PlaceOrder(context.Background(), "acc-1", usecase.PlaceOrderRequest{
		Symbol: "ESH6", Side: "BUY", Quantity: 1, Type: "MARKET",
	})
	require.Error(t, err)

	var apiErr *platformhttp.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Equal(t, "insufficient buying power", apiErr.Detail)
}
