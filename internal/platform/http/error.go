package http

import (
	"fmt"

	"github.com/go-resty/resty/v2"
)

// APIError is a non-2xx backend response. Detail carries the server's
// own "detail" message when the body had one.
type APIError struct {
	StatusCode int    `json:"-"`
	Detail     string `json:"detail"`
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("api error %d", e.StatusCode)
}

// ErrorFromResponse converts a non-2xx resty response into *APIError,
// assuming the request was built with SetError(&APIError{}). Returns
// nil for success responses.
func ErrorFromResponse(resp *resty.Response) error {
	if !resp.IsError() {
		return nil
	}
	apiErr, ok := resp.Error().(*APIError)
	if !ok || apiErr == nil {
		apiErr = &APIError{}
	}
	apiErr.StatusCode = resp.StatusCode()
	if apiErr.Detail == "" {
		apiErr.Detail = resp.Status()
	}
	return apiErr
}
