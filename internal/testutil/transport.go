package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Sternrassler/reqstate/pkg/descriptor"
	"github.com/Sternrassler/reqstate/pkg/transport"
)

// ErrorURL makes MockTransport fail with ErrMock.
const ErrorURL = "mock://error"

// ErrMock is the failure returned for ErrorURL.
var ErrMock = errors.New("Error message")

// MockTransport is an in-process transport that echoes the canonical URL of
// each descriptor as the payload. It records every call and can hold calls
// in flight until released.
type MockTransport struct {
	mu       sync.Mutex
	calls    []*descriptor.Descriptor
	canceled int
	hold     chan struct{}
}

// NewMockTransport creates a transport that answers immediately.
func NewMockTransport() *MockTransport {
	return &MockTransport{}
}

// Do implements transport.Transport.
func (m *MockTransport) Do(ctx context.Context, d *descriptor.Descriptor) (*transport.Response, error) {
	m.mu.Lock()
	m.calls = append(m.calls, d)
	hold := m.hold
	m.mu.Unlock()

	if hold != nil {
		select {
		case <-hold:
		case <-ctx.Done():
			m.mu.Lock()
			m.canceled++
			m.mu.Unlock()
			return nil, fmt.Errorf("%s: %w", d.URL, context.Canceled)
		}
	}

	if d.URL == ErrorURL {
		return nil, ErrMock
	}
	return &transport.Response{
		StatusCode: 200,
		Data:       []byte(d.BuildURL()),
	}, nil
}

// Hold makes calls started from now on block until Release or cancellation.
func (m *MockTransport) Hold() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.hold == nil {
		m.hold = make(chan struct{})
	}
}

// Release lets every held call complete and stops holding new ones.
func (m *MockTransport) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.hold != nil {
		close(m.hold)
		m.hold = nil
	}
}

// CallCount returns the number of calls issued.
func (m *MockTransport) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Calls returns the descriptors of every call issued, in order.
func (m *MockTransport) Calls() []*descriptor.Descriptor {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*descriptor.Descriptor, len(m.calls))
	copy(out, m.calls)
	return out
}

// CanceledCount returns the number of held calls aborted by their context.
func (m *MockTransport) CanceledCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.canceled
}
