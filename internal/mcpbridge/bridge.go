// Package mcpbridge connects swarmgate to external MCP servers. The planner
// reads news and mention resources through it; the judge publishes approved
// content through its tools.
package mcpbridge

import "context"

// ResourceReader reads a resource from a named MCP server and returns its
// text content.
type ResourceReader interface {
	ReadResource(ctx context.Context, server, uri string) (string, error)
}

// ToolCaller invokes a tool on a named MCP server and returns the text of
// the tool result.
type ToolCaller interface {
	CallTool(ctx context.Context, server, tool string, args map[string]any) (string, error)
}

// Bridge is the full capability surface the pipeline needs from MCP.
type Bridge interface {
	ResourceReader
	ToolCaller
}

// ReaderFunc adapts a function to the ResourceReader interface.
type ReaderFunc func(ctx context.Context, server, uri string) (string, error)

// ReadResource implements ResourceReader.
func (f ReaderFunc) ReadResource(ctx context.Context, server, uri string) (string, error) {
	return f(ctx, server, uri)
}

// CallerFunc adapts a function to the ToolCaller interface.
type CallerFunc func(ctx context.Context, server, tool string, args map[string]any) (string, error)

// CallTool implements ToolCaller.
func (f CallerFunc) CallTool(ctx context.Context, server, tool string, args map[string]any) (string, error) {
	return f(ctx, server, tool, args)
}
