package shell

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// MockCommand answers every command whose rendered form contains Pattern,
// or matches it as a regular expression.
type MockCommand struct {
	Pattern string
	Output  string
	Error   error
}

// MockExecutor replays canned results and records what was run.
type MockExecutor struct {
	mu       sync.Mutex
	commands []MockCommand
	missing  map[string]bool
	calls    []Cmd

	// Strict makes unmatched commands fail instead of succeeding silently.
	Strict bool
}

// NewMockExecutor returns an executor answering with cmds, first match wins.
func NewMockExecutor(cmds []MockCommand) *MockExecutor {
	return &MockExecutor{commands: cmds, missing: map[string]bool{}}
}

// SetMissing makes LookPath report the given commands as absent.
func (m *MockExecutor) SetMissing(names ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range names {
		m.missing[n] = true
	}
}

func matches(pattern, rendered string) bool {
	if strings.Contains(rendered, pattern) {
		return true
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false
	}
	return re.MatchString(rendered)
}

// Exec records c and returns the first matching canned result.
func (m *MockExecutor) Exec(ctx context.Context, c Cmd) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, c)

	if err := ctx.Err(); err != nil {
		return "", err
	}
	rendered := c.String()
	for _, mc := range m.commands {
		if matches(mc.Pattern, rendered) {
			return mc.Output, mc.Error
		}
	}
	if m.Strict {
		return "", fmt.Errorf("mock: unexpected command %s", rendered)
	}
	return "", nil
}

// LookPath succeeds unless the command was marked missing.
func (m *MockExecutor) LookPath(name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.missing[name] {
		return "", fmt.Errorf("mock: %s not found", name)
	}
	return "/usr/bin/" + name, nil
}

// Calls returns the commands run so far.
func (m *MockExecutor) Calls() []Cmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Cmd(nil), m.calls...)
}

// CallsMatching returns the rendered commands that match pattern.
func (m *MockExecutor) CallsMatching(pattern string) []string {
	var out []string
	for _, c := range m.Calls() {
		if s := c.String(); matches(pattern, s) {
			out = append(out, s)
		}
	}
	return out
}
