// Package adapters implements the accounts feature's outbound
// dependencies against the backend brokers REST API.
package adapters

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"trading_bridge/internal/feature/accounts/domain/entity"
	"trading_bridge/internal/feature/accounts/usecase"
	platformhttp "trading_bridge/internal/platform/http"
)

const requestTimeout = 15 * time.Second

// TokenGetter supplies the bearer token for backend calls. Token
// acquisition and refresh are owned by the caller.
type TokenGetter func() string

// RestBrokerAPI talks to the backend's /api/v1/brokers endpoints.
type RestBrokerAPI struct {
	client   *resty.Client
	getToken TokenGetter
}

// Compile-time check that RestBrokerAPI satisfies the usecase port.
var _ usecase.BrokerAPI = (*RestBrokerAPI)(nil)

// NewRestBrokerAPI creates a client for the given backend base URL.
func NewRestBrokerAPI(baseURL string, getToken TokenGetter) *RestBrokerAPI {
	client := resty.NewWithClient(platformhttp.NewHTTPClient(requestTimeout)).
		SetBaseURL(baseURL)
	return &RestBrokerAPI{client: client, getToken: getToken}
}

func (a *RestBrokerAPI) request(ctx context.Context) *resty.Request {
	return a.client.R().
		SetContext(ctx).
		SetAuthToken(a.getToken()).
		SetError(&platformhttp.APIError{})
}

// ListAccounts fetches the connected accounts for the current user.
func (a *RestBrokerAPI) ListAccounts(ctx context.Context) ([]entity.Account, error) {
	var accounts []entity.Account
	resp, err := a.request(ctx).
		SetResult(&accounts).
		Get("/api/v1/brokers/accounts")
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	if err := apiError(resp); err != nil {
		return nil, err
	}
	return accounts, nil
}

// RemoveAccount deletes an account through the generic path.
func (a *RestBrokerAPI) RemoveAccount(ctx context.Context, accountID string) error {
	resp, err := a.request(ctx).
		Delete("/api/v1/brokers/accounts/" + accountID)
	if err != nil {
		return fmt.Errorf("remove account: %w", err)
	}
	return apiError(resp)
}

// DeprovisionIBAccount removes an Interactive Brokers account. IB
// accounts run on dedicated gateway servers, so removal goes through
// the deprovisioning endpoint rather than the generic DELETE.
func (a *RestBrokerAPI) DeprovisionIBAccount(ctx context.Context, accountID string) error {
	resp, err := a.request(ctx).
		Delete("/api/v1/brokers/interactivebrokers/accounts/" + accountID)
	if err != nil {
		return fmt.Errorf("deprovision account: %w", err)
	}
	return apiError(resp)
}

// UpdateNickname patches an account's nickname.
func (a *RestBrokerAPI) UpdateNickname(ctx context.Context, accountID, nickname string) error {
	resp, err := a.request(ctx).
		SetBody(map[string]string{"nickname": nickname}).
		Patch("/api/v1/brokers/accounts/" + accountID)
	if err != nil {
		return fmt.Errorf("update nickname: %w", err)
	}
	return apiError(resp)
}

func apiError(resp *resty.Response) error {
	return platformhttp.ErrorFromResponse(resp)
}
