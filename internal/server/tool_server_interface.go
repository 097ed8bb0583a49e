// Package server exposes the traktmcp tool dispatch table over MCP.
package server

import "context"

// ToolServer defines the interface for the MCP server that handles
// Trakt tool calls from MCP clients.
type ToolServer interface {
	// Initialize registers every tool with the MCP server.
	Initialize() error

	// Start serves MCP requests until the transport closes or ctx is done.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the MCP server.
	Stop() error
}
