// Package http provides the configured HTTP client shared by every
// outbound REST call.
package http

import (
	"net"
	"net/http"
	"time"
)

// NewHTTPClient creates an HTTP client for backend API calls.
//
// http.DefaultClient has no timeout, so always use this one. The
// transport is set explicitly to keep connection reuse and handshake
// limits predictable under load.
func NewHTTPClient(timeout time.Duration) *http.Client {
	t := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &http.Client{Timeout: timeout, Transport: t}
}
