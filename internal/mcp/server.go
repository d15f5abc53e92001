// Package mcp binds the onboarding tools and the widget resource to the
// Model Context Protocol, served over stdio or the HTTP surface in http.go.
package mcp

import (
	"bizonboard/internal/config"
	"bizonboard/internal/logging"
	"bizonboard/internal/onboarding"

	"github.com/mark3labs/mcp-go/server"
)

// Server owns the MCP server and its HTTP transports.
type Server struct {
	svc *onboarding.Service
	cfg *config.Config
	mcp *server.MCPServer

	streamable *server.StreamableHTTPServer
	sse        *server.SSEServer
}

// NewServer registers the three tools and the widget resource.
func NewServer(svc *onboarding.Service, cfg *config.Config) *Server {
	s := &Server{svc: svc, cfg: cfg}
	s.mcp = server.NewMCPServer(
		cfg.Name,
		cfg.Version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)

	s.mcp.AddTool(loadTool(), s.handleLoad)
	s.mcp.AddTool(updateTool(), s.handleUpdate)
	s.mcp.AddTool(resetTool(), s.handleReset)
	s.mcp.AddResource(widgetResource(cfg.Widget), s.handleWidget)

	path := cfg.Server.EndpointPath
	s.streamable = server.NewStreamableHTTPServer(s.mcp, server.WithEndpointPath(path))
	s.sse = server.NewSSEServer(s.mcp,
		server.WithSSEEndpoint(path+"/sse"),
		server.WithMessageEndpoint(path+"/messages"),
	)

	logging.Tools("registered %d tools and widget resource %s on %s backend",
		3, WidgetURI, svc.Store().Backend())
	return s
}

// MCPServer returns the underlying mcp-go server, for in-process clients.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// ServeStdio serves MCP on stdin/stdout until EOF or a signal.
func (s *Server) ServeStdio() error {
	logging.Boot("serving MCP over stdio")
	return server.ServeStdio(s.mcp)
}

const instructions = `Business profile onboarding. Call load_business_profile first; omit accountId to start a new account and reuse the returned accountId afterwards. Save one field per update_business_profile_field call. Completion figures in each result are authoritative.`
