package trakt

import (
	"net"
	"net/http"
	"time"
)

// Connection pool sizing. One client, and so one pool, exists per process.
const (
	maxIdleConns        = 100
	maxIdleConnsPerHost = 20
	idleConnTimeout     = 30 * time.Second
	dialTimeout         = 5 * time.Second
	tlsHandshakeTimeout = 10 * time.Second
)

func newTransport() *http.Transport {
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: dialTimeout, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          maxIdleConns,
		MaxIdleConnsPerHost:   maxIdleConnsPerHost,
		IdleConnTimeout:       idleConnTimeout,
		TLSHandshakeTimeout:   tlsHandshakeTimeout,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

// newHTTPClient returns the shared client. Redirects use the net/http default
// policy, which follows them.
func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: newTransport(),
	}
}
