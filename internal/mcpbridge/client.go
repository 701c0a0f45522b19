package mcpbridge

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/outpost-labs/swarmgate/internal/config"
	"github.com/outpost-labs/swarmgate/internal/errors"
	"github.com/outpost-labs/swarmgate/internal/logging"
)

// Client multiplexes stdio MCP connections by server name. Connections are
// established lazily on first use and reused afterward. Safe for concurrent
// use.
type Client struct {
	specs  map[string]config.ServerSpec
	logger *logging.Logger

	mu    sync.Mutex
	conns map[string]*client.Client
}

// NewClient creates a Client over the configured server specs. No
// connections are opened until a server is first used.
func NewClient(specs map[string]config.ServerSpec, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Client{
		specs:  specs,
		logger: logger,
		conns:  make(map[string]*client.Client),
	}
}

// conn returns the live connection for server, dialing and initializing it
// if needed.
func (c *Client) conn(ctx context.Context, server string) (*client.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if conn, ok := c.conns[server]; ok {
		return conn, nil
	}

	spec, ok := c.specs[server]
	if !ok {
		return nil, errors.NewTransportError("connect", fmt.Errorf("unknown server %q", server))
	}

	conn, err := client.NewStdioMCPClient(spec.Command, spec.Env, spec.Args...)
	if err != nil {
		return nil, errors.NewTransportError("connect", err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{
		Name:    "swarmgate",
		Version: "1.0.0",
	}
	if _, err := conn.Initialize(ctx, initReq); err != nil {
		_ = conn.Close()
		return nil, errors.NewTransportError("initialize", err)
	}

	c.logger.Info("mcp server connected", "server", server, "command", spec.Command)
	c.conns[server] = conn
	return conn, nil
}

// ReadResource implements ResourceReader. The text segments of the resource
// are concatenated in order.
func (c *Client) ReadResource(ctx context.Context, server, uri string) (string, error) {
	conn, err := c.conn(ctx, server)
	if err != nil {
		return "", err
	}

	req := mcp.ReadResourceRequest{}
	req.Params.URI = uri

	res, err := conn.ReadResource(ctx, req)
	if err != nil {
		return "", errors.NewTransportError("read_resource", err)
	}

	var sb strings.Builder
	for _, content := range res.Contents {
		if text, ok := content.(mcp.TextResourceContents); ok {
			sb.WriteString(text.Text)
		}
	}
	return sb.String(), nil
}

// CallTool implements ToolCaller. A tool-level error result is returned as
// a transport error carrying the tool's message.
func (c *Client) CallTool(ctx context.Context, server, tool string, args map[string]any) (string, error) {
	conn, err := c.conn(ctx, server)
	if err != nil {
		return "", err
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = tool
	req.Params.Arguments = args

	res, err := conn.CallTool(ctx, req)
	if err != nil {
		return "", errors.NewTransportError("call_tool", err)
	}

	text := textContent(res)
	if res.IsError {
		return "", errors.NewTransportError("call_tool", fmt.Errorf("tool %s failed: %s", tool, text))
	}
	return text, nil
}

// Close shuts down every open connection. Later calls will redial.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for name, conn := range c.conns {
		if err := conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", name, err))
		}
		delete(c.conns, name)
	}
	return errors.Join(errs...)
}

// textContent flattens the text segments of a tool result.
func textContent(res *mcp.CallToolResult) string {
	var sb strings.Builder
	for _, content := range res.Content {
		if text, ok := content.(mcp.TextContent); ok {
			sb.WriteString(text.Text)
		}
	}
	return sb.String()
}
