package hardware

import (
	"fmt"
	"log"
	"sync"
)

// MockActuator implements Actuator for testing. It records every byte
// written and can be told to fail.
type MockActuator struct {
	mu       sync.Mutex
	url      string
	writes   []byte
	closed   bool
	failWith error
}

// NewMockActuator creates a recording actuator for url.
func NewMockActuator(url string) *MockActuator {
	return &MockActuator{url: url}
}

// FailWith makes every subsequent write return err.
func (a *MockActuator) FailWith(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failWith = err
}

// WriteByte records b, or fails if a failure was injected.
func (a *MockActuator) WriteByte(b byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.failWith != nil {
		return a.failWith
	}
	a.writes = append(a.writes, b)
	log.Printf("MockActuator: %s wrote 0x%02X", a.url, b)
	return nil
}

// Close marks the actuator closed.
func (a *MockActuator) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	return nil
}

// Writes returns a copy of everything written so far.
func (a *MockActuator) Writes() []byte {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]byte, len(a.writes))
	copy(out, a.writes)
	return out
}

// Closed reports whether Close was called.
func (a *MockActuator) Closed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closed
}

// MockEnumerator implements Enumerator over a fixed set of mock
// actuators, with optional per-URL configuration failures.
type MockEnumerator struct {
	URLs          []string
	ConfigureFail map[string]error
	DiscoverErr   error

	mu        sync.Mutex
	actuators map[string]*MockActuator
}

// NewMockEnumerator creates an enumerator presenting the given URLs.
func NewMockEnumerator(urls ...string) *MockEnumerator {
	return &MockEnumerator{
		URLs:          urls,
		ConfigureFail: make(map[string]error),
		actuators:     make(map[string]*MockActuator),
	}
}

// Discover returns the configured URL list.
func (e *MockEnumerator) Discover() ([]string, error) {
	if e.DiscoverErr != nil {
		return nil, e.DiscoverErr
	}
	return append([]string(nil), e.URLs...), nil
}

// Configure hands out a mock actuator for url, or the injected error.
func (e *MockEnumerator) Configure(url string) (Actuator, error) {
	if err := e.ConfigureFail[url]; err != nil {
		return nil, fmt.Errorf("configure %s: %w", url, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	a := NewMockActuator(url)
	e.actuators[url] = a
	return a, nil
}

// Actuator returns the mock actuator handed out for url, if any.
func (e *MockEnumerator) Actuator(url string) *MockActuator {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.actuators[url]
}
