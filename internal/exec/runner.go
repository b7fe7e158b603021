// Package exec runs external commands behind an interface so callers can be
// tested without spawning processes.
package exec

import (
	"context"
	osexec "os/exec"
	"strings"
	"sync"
)

// Runner executes one command to completion
type Runner interface {
	// RunInDir runs name in dir and returns combined stdout and stderr.
	RunInDir(ctx context.Context, dir, name string, args ...string) ([]byte, error)
}

// OSRunner implements Runner with os/exec
type OSRunner struct {
	// Env replaces the environment when non-nil
	Env []string
}

func NewOSRunner() *OSRunner {
	return &OSRunner{}
}

func (r *OSRunner) RunInDir(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := osexec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	if r.Env != nil {
		cmd.Env = r.Env
	}
	return cmd.CombinedOutput()
}

// MockRunner records invocations and replays canned responses. Safe for
// concurrent use.
type MockRunner struct {
	mu        sync.Mutex
	calls     []MockCall
	responses map[string]MockResponse
}

type MockCall struct {
	Name string
	Args []string
	Dir  string
}

type MockResponse struct {
	Output []byte
	Err    error
}

func NewMockRunner() *MockRunner {
	return &MockRunner{responses: make(map[string]MockResponse)}
}

// AddResponse sets the response for a command name, or for "name arg0 ..."
// when a specific argument list must be matched.
func (m *MockRunner) AddResponse(key string, resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[key] = resp
}

// Calls returns the recorded invocations in order
func (m *MockRunner) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockCall(nil), m.calls...)
}

func (m *MockRunner) RunInDir(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MockCall{Name: name, Args: args, Dir: dir})

	if resp, ok := m.responses[strings.Join(append([]string{name}, args...), " ")]; ok {
		return resp.Output, resp.Err
	}
	resp := m.responses[name]
	return resp.Output, resp.Err
}

// Default is the runner used when none is injected
var Default Runner = NewOSRunner()
