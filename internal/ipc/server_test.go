package ipc

import (
	"context"
	"encoding/json"
	"net"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shellboot/internal/supervisor"
)

func testServer(port int) *Server {
	status := func() ShellStatus {
		return ShellStatus{Phase: "revealed", BootCount: 7, CleanStart: true, UptimeMillis: 1234}
	}
	services := func() []supervisor.ProcessStatus {
		return []supervisor.ProcessStatus{
			{Name: "model", Port: 7101, PID: 4242, Running: true},
			{Name: "memory", Port: 7102, PID: 0, Running: false},
		}
	}
	return NewServer(Config{Port: port}, status, services)
}

func textOf(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", result.Content[0])
	return text.Text
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestHandleStatus(t *testing.T) {
	s := testServer(7100)

	result, err := s.handleStatus(context.Background(), mcp.CallToolRequest{})
	require.NoError(t, err)

	var status ShellStatus
	require.NoError(t, json.Unmarshal([]byte(textOf(t, result)), &status))
	assert.Equal(t, "revealed", status.Phase)
	assert.Equal(t, 7, status.BootCount)
	assert.True(t, status.CleanStart)
	assert.Equal(t, int64(1234), status.UptimeMillis)
}

func TestHandleServices(t *testing.T) {
	s := testServer(7100)

	result, err := s.handleServices(context.Background(), mcp.CallToolRequest{})
	require.NoError(t, err)

	var rows []map[string]any
	require.NoError(t, json.Unmarshal([]byte(textOf(t, result)), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "model", rows[0]["name"])
	assert.Equal(t, float64(7101), rows[0]["port"])
	assert.Equal(t, true, rows[0]["running"])
	assert.Equal(t, false, rows[1]["running"])
}

func TestServer_StartRequiresPort(t *testing.T) {
	s := testServer(0)
	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no port")
}

func TestServer_DoubleStartRejected(t *testing.T) {
	s := testServer(freePort(t))
	require.NoError(t, s.Start(context.Background()))
	defer func() { _ = s.Stop(context.Background()) }()

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already started")
}

func TestServer_StopWithoutStart(t *testing.T) {
	s := testServer(7100)
	err := s.Stop(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not started")
}

func TestServer_Endpoint(t *testing.T) {
	s := testServer(7100)
	assert.Equal(t, "http://localhost:7100/sse", s.Endpoint())
}
