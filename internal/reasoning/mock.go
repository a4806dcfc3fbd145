package reasoning

import (
	"context"
	"sync"
)

// MockClient implements Client for tests. Responses are returned in the
// order queued; once the queue is empty the last response repeats.
type MockClient struct {
	mu sync.Mutex

	responses []string
	errs      []error
	available bool

	Calls []Request
}

// NewMockClient creates an available MockClient with no responses.
func NewMockClient() *MockClient {
	return &MockClient{available: true}
}

// WithResponses queues responses.
func (m *MockClient) WithResponses(responses ...string) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, responses...)
	return m
}

// WithErrors queues errors. Call i returns errs[i] when it is non-nil,
// before consulting the response queue.
func (m *MockClient) WithErrors(errs ...error) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs = append(m.errs, errs...)
	return m
}

// WithAvailable sets what Available returns.
func (m *MockClient) WithAvailable(available bool) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.available = available
	return m
}

// Complete records req and returns the next queued error or response.
func (m *MockClient) Complete(ctx context.Context, req Request) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	call := len(m.Calls)
	m.Calls = append(m.Calls, req)

	if call < len(m.errs) && m.errs[call] != nil {
		return "", m.errs[call]
	}
	if len(m.responses) == 0 {
		return "", nil
	}
	if call < len(m.responses) {
		return m.responses[call], nil
	}
	return m.responses[len(m.responses)-1], nil
}

// Available implements Client.
func (m *MockClient) Available() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.available
}

// CallCount returns how many times Complete was called.
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
