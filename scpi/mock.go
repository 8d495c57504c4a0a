package scpi

import (
	"fmt"
	"strings"
	"sync"
)

// Mock is an in-memory Adapter which behaves like a forgiving instrument.
// Queries are answered from a response table; a written setting
// "HEADER value" becomes the response to "HEADER?".  Every command is
// recorded.  Mock is safe for concurrent use.
type Mock struct {
	mu        sync.Mutex
	responses map[string]string
	writes    []string
	queries   []string
	configs   []FramingConfig
	err       error
}

// NewMock creates a new Mock answering the common SCPI queries
func NewMock() *Mock {
	return &Mock{responses: map[string]string{
		"*IDN?":     "MOCK,SCPI INSTRUMENT,0,0.0",
		"*OPC?":     "1",
		"SYST:ERR?": `+0,"No error"`,
	}}
}

// SetResponse sets the response to a query
func (m *Mock) SetResponse(query, resp string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[query] = resp
}

// SetError makes every subsequent Write and Query fail with err, nil restores
func (m *Mock) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Write records cmd and remembers its argument as the answer to its query form
func (m *Mock) Write(cmd string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.writes = append(m.writes, cmd)
	if idx := strings.IndexByte(cmd, ' '); idx > 0 {
		m.responses[cmd[:idx]+"?"] = strings.TrimSpace(cmd[idx+1:])
	}
	return nil
}

// Query records cmd and returns the response for it
func (m *Mock) Query(cmd string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	m.queries = append(m.queries, cmd)
	resp, ok := m.responses[cmd]
	if !ok {
		return "", fmt.Errorf("mock: no response for %q", cmd)
	}
	return resp + "\n", nil
}

// Configure records the framing configuration
func (m *Mock) Configure(f FramingConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.configs = append(m.configs, f)
	return nil
}

// Written returns the commands written so far
func (m *Mock) Written() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.writes...)
}

// Queried returns the queries sent so far
func (m *Mock) Queried() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.queries...)
}

// Configs returns the framing configurations received so far
func (m *Mock) Configs() []FramingConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]FramingConfig(nil), m.configs...)
}

// ClearLog forgets the recorded commands and configurations, responses are kept
func (m *Mock) ClearLog() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes = nil
	m.queries = nil
	m.configs = nil
}
