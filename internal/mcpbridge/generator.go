package mcpbridge

import (
	"context"

	"github.com/outpost-labs/swarmgate/internal/errors"
)

// ToolGenerator adapts a generation tool on an MCP server to the
// text-generation capability the content engine consumes. The tool takes a
// single "prompt" argument and returns the generated text.
type ToolGenerator struct {
	caller ToolCaller
	server string
	tool   string
}

// NewToolGenerator creates a ToolGenerator for the named server and tool.
func NewToolGenerator(caller ToolCaller, server, tool string) *ToolGenerator {
	return &ToolGenerator{caller: caller, server: server, tool: tool}
}

// GenerateText invokes the generation tool with the prompt. Failures are
// generation errors so callers can default gracefully instead of retrying.
func (g *ToolGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	out, err := g.caller.CallTool(ctx, g.server, g.tool, map[string]any{
		"prompt": prompt,
	})
	if err != nil {
		return "", errors.NewGenerationError(err)
	}
	return out, nil
}
