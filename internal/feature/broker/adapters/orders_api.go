// Package adapters implements the broker feature's outbound
// dependencies against the backend's discretionary trading endpoints.
package adapters

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"trading_bridge/internal/feature/broker/usecase"
	platformhttp "trading_bridge/internal/platform/http"
)

const requestTimeout = 15 * time.Second

// TokenGetter supplies the bearer token for backend calls.
type TokenGetter func() string

// RestOrderAPI talks to the backend's discretionary order endpoints
// under /api/v1/brokers/accounts/{accountID}.
type RestOrderAPI struct {
	client   *resty.Client
	getToken TokenGetter
}

// Compile-time check that RestOrderAPI satisfies the usecase port.
var _ usecase.OrderAPI = (*RestOrderAPI)(nil)

// NewRestOrderAPI creates a client for the given backend base URL.
func NewRestOrderAPI(baseURL string, getToken TokenGetter) *RestOrderAPI {
	client := resty.NewWithClient(platformhttp.NewHTTPClient(requestTimeout)).
		SetBaseURL(baseURL)
	return &RestOrderAPI{client: client, getToken: getToken}
}

func (a *RestOrderAPI) request(ctx context.Context) *resty.Request {
	return a.client.R().
		SetContext(ctx).
		SetAuthToken(a.getToken()).
		SetError(&platformhttp.APIError{})
}

type placeOrderResponse struct {
	OrderID string `json:"order_id"`
	ID      string `json:"id"`
}

// PlaceOrder submits a discretionary order and returns its backend id.
func (a *RestOrderAPI) PlaceOrder(ctx context.Context, accountID string, req usecase.PlaceOrderRequest) (string, error) {
	var result placeOrderResponse
	resp, err := a.request(ctx).
		SetBody(req).
		SetResult(&result).
		Post(accountBase(accountID) + "/discretionary/orders")
	if err != nil {
		return "", fmt.Errorf("place order: %w", err)
	}
	if err := platformhttp.ErrorFromResponse(resp); err != nil {
		return "", err
	}
	if result.OrderID != "" {
		return result.OrderID, nil
	}
	return result.ID, nil
}

// ModifyOrder updates an open order.
func (a *RestOrderAPI) ModifyOrder(ctx context.Context, accountID, orderID string, req usecase.ModifyOrderRequest) error {
	resp, err := a.request(ctx).
		SetBody(req).
		Put(accountBase(accountID) + "/orders/" + orderID)
	if err != nil {
		return fmt.Errorf("modify order: %w", err)
	}
	return platformhttp.ErrorFromResponse(resp)
}

// CancelOrder cancels an open order.
func (a *RestOrderAPI) CancelOrder(ctx context.Context, accountID, orderID string) error {
	resp, err := a.request(ctx).
		Delete(accountBase(accountID) + "/orders/" + orderID)
	if err != nil {
		return fmt.Errorf("cancel order: %w", err)
	}
	return platformhttp.ErrorFromResponse(resp)
}

// ClosePosition flattens a position at market.
func (a *RestOrderAPI) ClosePosition(ctx context.Context, accountID, positionID string) error {
	resp, err := a.request(ctx).
		Post(accountBase(accountID) + "/positions/" + positionID + "/close")
	if err != nil {
		return fmt.Errorf("close position: %w", err)
	}
	return platformhttp.ErrorFromResponse(resp)
}

// ReversePosition flips a position to the opposite side at market.
func (a *RestOrderAPI) ReversePosition(ctx context.Context, accountID, positionID string) error {
	resp, err := a.request(ctx).
		Post(accountBase(accountID) + "/positions/" + positionID + "/reverse")
	if err != nil {
		return fmt.Errorf("reverse position: %w", err)
	}
	return platformhttp.ErrorFromResponse(resp)
}

func accountBase(accountID string) string {
	return "/api/v1/brokers/accounts/" + accountID
}
