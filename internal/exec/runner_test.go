package exec

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOSRunnerRunsInDir(t *testing.T) {
	dir := t.TempDir()
	out, err := NewOSRunner().RunInDir(context.Background(), dir, "pwd")
	require.NoError(t, err)
	assert.Contains(t, string(out), dir)
}

func TestOSRunnerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewOSRunner().RunInDir(ctx, "", "sleep", "5")
	assert.Error(t, err)
}

func TestMockRunner(t *testing.T) {
	m := NewMockRunner()
	boom := errors.New("boom")
	m.AddResponse("xed", MockResponse{Output: []byte("ok")})
	m.AddResponse("xed --line 3", MockResponse{Err: boom})

	out, err := m.RunInDir(context.Background(), "/ws", "xed", "a.swift")
	require.NoError(t, err)
	assert.Equal(t, "ok", string(out))

	_, err = m.RunInDir(context.Background(), "/ws", "xed", "--line", "3")
	assert.ErrorIs(t, err, boom)

	out, err = m.RunInDir(context.Background(), "", "other")
	assert.NoError(t, err)
	assert.Empty(t, out)

	calls := m.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, MockCall{Name: "xed", Args: []string{"a.swift"}, Dir: "/ws"}, calls[0])
}
