// Package transport issues the network call for a request descriptor.
package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Sternrassler/reqstate/pkg/descriptor"
)

// Prometheus metrics for transport calls.
var (
	transportCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reqstate_transport_calls_total",
		Help: "Total transport calls by outcome",
	}, []string{"outcome"}) // "ok", "http_error", "network_error", "canceled"

	transportDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "reqstate_transport_duration_seconds",
		Help:    "Transport call duration in seconds",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10},
	})
)

// Response is the result of a successful transport call.
type Response struct {
	StatusCode int
	Header     http.Header
	Data       []byte
}

// Transport performs one network call for a descriptor.
//
// Implementations must return promptly with an error satisfying IsCanceled
// once ctx is cancelled.
type Transport interface {
	Do(ctx context.Context, d *descriptor.Descriptor) (*Response, error)
}

// Func adapts a plain function to the Transport interface.
type Func func(ctx context.Context, d *descriptor.Descriptor) (*Response, error)

// Do implements Transport.
func (f Func) Do(ctx context.Context, d *descriptor.Descriptor) (*Response, error) {
	return f(ctx, d)
}

// Config holds the HTTP transport configuration.
type Config struct {
	// UserAgent is sent with every request.
	UserAgent string

	// Client is the HTTP client to use (default: a client without timeout;
	// cancellation is driven by the caller).
	Client *http.Client
}

// HTTPTransport is a Transport over net/http.
type HTTPTransport struct {
	client    *http.Client
	userAgent string
}

// NewHTTP creates an HTTP transport.
func NewHTTP(cfg Config) *HTTPTransport {
	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPTransport{
		client:    client,
		userAgent: cfg.UserAgent,
	}
}

// Do implements Transport.
func (t *HTTPTransport) Do(ctx context.Context, d *descriptor.Descriptor) (*Response, error) {
	if d == nil {
		return nil, fmt.Errorf("descriptor cannot be nil")
	}

	startTime := time.Now()
	defer func() {
		transportDuration.Observe(time.Since(startTime).Seconds())
	}()

	var body io.Reader
	if len(d.Body) > 0 {
		body = bytes.NewReader(d.Body)
	}

	req, err := http.NewRequestWithContext(ctx, d.EffectiveMethod(), d.BuildURL(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	for key, values := range d.Header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	if t.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", t.userAgent)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	resp, err := t.client.Do(req)
	if err != nil {
		if IsCanceled(err) || ctx.Err() != nil {
			transportCallsTotal.WithLabelValues("canceled").Inc()
			return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL, context.Canceled)
		}
		transportCallsTotal.WithLabelValues("network_error").Inc()
		return nil, &HTTPError{
			ErrorClass: ErrorClassNetwork,
			Message:    "request failed",
			Err:        err,
		}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			transportCallsTotal.WithLabelValues("canceled").Inc()
			return nil, fmt.Errorf("read body: %w", context.Canceled)
		}
		transportCallsTotal.WithLabelValues("network_error").Inc()
		return nil, &HTTPError{
			StatusCode: resp.StatusCode,
			ErrorClass: ErrorClassNetwork,
			Message:    "read response body",
			Err:        err,
		}
	}

	if resp.StatusCode >= 400 {
		transportCallsTotal.WithLabelValues("http_error").Inc()
		return nil, &HTTPError{
			StatusCode: resp.StatusCode,
			ErrorClass: classifyStatus(resp.StatusCode),
			Message:    resp.Status,
			Body:       data,
		}
	}

	transportCallsTotal.WithLabelValues("ok").Inc()
	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Data:       data,
	}, nil
}
