// Package ipc exposes the shell's runtime state to other local processes
// over MCP. The server is one of the startup stages: it binds a port
// reserved by the allocator and registers its request handlers before the
// main surface appears.
package ipc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"shellboot/internal/supervisor"
	"shellboot/pkg/logging"
)

// ShellStatus is the snapshot the shell_status tool returns.
type ShellStatus struct {
	Phase        string `json:"phase"`
	BootCount    int    `json:"bootCount"`
	CleanStart   bool   `json:"cleanStart"`
	UptimeMillis int64  `json:"uptimeMillis"`
}

// StatusFunc returns the current shell status snapshot.
type StatusFunc func() ShellStatus

// ServicesFunc returns the current supervised-process table.
type ServicesFunc func() []supervisor.ProcessStatus

// Config holds the listen address for the IPC server.
type Config struct {
	Host string
	Port int
}

// Server serves shell state over MCP with an SSE transport.
type Server struct {
	config   Config
	status   StatusFunc
	services ServicesFunc

	mu        sync.Mutex
	mcpServer *server.MCPServer
	sseServer *server.SSEServer
}

// NewServer builds the server without binding anything.
func NewServer(config Config, status StatusFunc, services ServicesFunc) *Server {
	if config.Host == "" {
		config.Host = "localhost"
	}
	return &Server{config: config, status: status, services: services}
}

// Start registers the request handlers and begins serving. Returns once the
// listener goroutine is launched.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mcpServer != nil {
		return fmt.Errorf("ipc server already started")
	}
	if s.config.Port == 0 {
		return fmt.Errorf("ipc server has no port")
	}

	mcpServer := server.NewMCPServer(
		"shellboot",
		"1.0.0",
		server.WithToolCapabilities(true),
	)
	mcpServer.AddTools(
		server.ServerTool{Tool: s.statusTool(), Handler: s.handleStatus},
		server.ServerTool{Tool: s.servicesTool(), Handler: s.handleServices},
	)

	baseURL := fmt.Sprintf("http://%s:%d", s.config.Host, s.config.Port)
	sseServer := server.NewSSEServer(
		mcpServer,
		server.WithBaseURL(baseURL),
		server.WithSSEEndpoint("/sse"),
		server.WithMessageEndpoint("/message"),
		server.WithKeepAlive(true),
		server.WithKeepAliveInterval(30*time.Second),
	)

	s.mcpServer = mcpServer
	s.sseServer = sseServer

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	logging.Info("IPC", "Starting request-handler server on %s", addr)
	go func() {
		if err := sseServer.Start(addr); err != nil && err != http.ErrServerClosed {
			logging.Error("IPC", err, "SSE server error")
		}
	}()

	return nil
}

// Stop shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	sseServer := s.sseServer
	s.mcpServer = nil
	s.sseServer = nil
	s.mu.Unlock()

	if sseServer == nil {
		return fmt.Errorf("ipc server not started")
	}

	logging.Info("IPC", "Stopping request-handler server")
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return sseServer.Shutdown(shutdownCtx)
}

// Endpoint returns the SSE endpoint URL clients connect to.
func (s *Server) Endpoint() string {
	return fmt.Sprintf("http://%s:%d/sse", s.config.Host, s.config.Port)
}

func (s *Server) statusTool() mcp.Tool {
	return mcp.NewTool("shell_status",
		mcp.WithDescription("Current shell lifecycle phase, boot counter and uptime"),
	)
}

func (s *Server) servicesTool() mcp.Tool {
	return mcp.NewTool("shell_services",
		mcp.WithDescription("Supervised services with their ports, PIDs and run state"),
	)
}

func (s *Server) handleStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.status())
}

func (s *Server) handleServices(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	services := s.services()
	type row struct {
		Name    string `json:"name"`
		Port    int    `json:"port"`
		PID     int    `json:"pid"`
		Running bool   `json:"running"`
	}
	rows := make([]row, 0, len(services))
	for _, svc := range services {
		rows = append(rows, row{Name: svc.Name, Port: svc.Port, PID: svc.PID, Running: svc.Running})
	}
	return jsonResult(rows)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}
