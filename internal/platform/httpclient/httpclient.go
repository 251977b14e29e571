// Package httpclient builds the outbound HTTP clients used by integrations.
// Each collaborator gets its own client; none is shared process-wide.
package httpclient

import (
	"net"
	"net/http"
	"time"
)

// Timeouts bounds one outbound call.
type Timeouts struct {
	Connect time.Duration
	Read    time.Duration
	Total   time.Duration
}

// TimeoutsFor derives connect and read timeouts from a total request budget:
// connect is total-10s clamped to [5s, 20s], read is total-5s clamped to [10s, 120s].
func TimeoutsFor(totalSeconds int) Timeouts {
	connect := min(20, max(5, totalSeconds-10))
	read := min(120, max(10, totalSeconds-5))
	return Timeouts{
		Connect: time.Duration(connect) * time.Second,
		Read:    time.Duration(read) * time.Second,
		Total:   time.Duration(totalSeconds) * time.Second,
	}
}

// Middleware decorates a transport.
type Middleware func(http.RoundTripper) http.RoundTripper

// New builds a client honouring t. Middlewares wrap the base transport in order.
func New(t Timeouts, mw ...Middleware) *http.Client {
	dialer := &net.Dialer{Timeout: t.Connect, KeepAlive: 30 * time.Second}
	var rt http.RoundTripper = &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   t.Connect,
		ResponseHeaderTimeout: t.Read,
		ExpectContinueTimeout: time.Second,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	for _, m := range mw {
		rt = m(rt)
	}
	return &http.Client{Timeout: t.Total, Transport: rt}
}

// WithHeaders sets fixed headers on every request that does not already carry them.
func WithHeaders(headers map[string]string) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			req = req.Clone(req.Context())
			for k, v := range headers {
				if v != "" && req.Header.Get(k) == "" {
					req.Header.Set(k, v)
				}
			}
			return next.RoundTrip(req)
		})
	}
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}
