// Package publish executes approved content against the configured
// platform tools. It is the only package with externally visible side
// effects, so dry-run handling lives here.
package publish

import (
	"context"
	"fmt"

	"github.com/outpost-labs/swarmgate/internal/config"
	"github.com/outpost-labs/swarmgate/internal/errors"
	"github.com/outpost-labs/swarmgate/internal/logging"
	"github.com/outpost-labs/swarmgate/internal/mcpbridge"
	"github.com/outpost-labs/swarmgate/internal/task"
)

// Publisher posts content to a platform through its configured MCP tool.
type Publisher struct {
	caller    mcpbridge.ToolCaller
	platforms map[string]config.PlatformSpec
	dryRun    bool
	logger    *logging.Logger
}

// New creates a Publisher. With dryRun set, Publish logs the action and
// performs no tool call.
func New(caller mcpbridge.ToolCaller, platforms map[string]config.PlatformSpec, dryRun bool, logger *logging.Logger) *Publisher {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Publisher{
		caller:    caller,
		platforms: platforms,
		dryRun:    dryRun,
		logger:    logger,
	}
}

// Publish posts content to the named platform. Unknown platforms are an
// error; the judge treats any error here as a failed publish and logs it
// without retrying.
func (p *Publisher) Publish(ctx context.Context, platform task.Platform, content string) error {
	spec, ok := p.platforms[string(platform)]
	if !ok || spec.ToolServer == "" || spec.ToolName == "" {
		return fmt.Errorf("publish: no tool configured for platform %q", platform)
	}

	if p.dryRun {
		p.logger.Info("dry run, skipping publish",
			"platform", platform,
			"content", preview(content))
		return nil
	}

	_, err := p.caller.CallTool(ctx, spec.ToolServer, spec.ToolName, map[string]any{
		"text": content,
	})
	if err != nil {
		return errors.NewTransportError("publish", err)
	}

	p.logger.Info("published",
		"platform", platform,
		"tool", spec.ToolName,
		"content", preview(content))
	return nil
}

// preview shortens content for log lines.
func preview(content string) string {
	const max = 50
	runes := []rune(content)
	if len(runes) <= max {
		return content
	}
	return string(runes[:max]) + "..."
}
