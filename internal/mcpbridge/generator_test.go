package mcpbridge

import (
	"context"
	"testing"

	"github.com/outpost-labs/swarmgate/internal/errors"
)

func TestToolGeneratorPassesPrompt(t *testing.T) {
	var gotServer, gotTool string
	var gotArgs map[string]any
	caller := CallerFunc(func(_ context.Context, server, tool string, args map[string]any) (string, error) {
		gotServer, gotTool, gotArgs = server, tool, args
		return "generated text", nil
	})

	g := NewToolGenerator(caller, "llm", "generate_text")
	out, err := g.GenerateText(context.Background(), "write a haiku")
	if err != nil {
		t.Fatalf("GenerateText: %v", err)
	}
	if out != "generated text" {
		t.Errorf("out = %q", out)
	}
	if gotServer != "llm" || gotTool != "generate_text" {
		t.Errorf("called %s/%s", gotServer, gotTool)
	}
	if gotArgs["prompt"] != "write a haiku" {
		t.Errorf("prompt arg = %v", gotArgs["prompt"])
	}
}

func TestToolGeneratorWrapsFailures(t *testing.T) {
	caller := CallerFunc(func(_ context.Context, _, _ string, _ map[string]any) (string, error) {
		return "", errors.NewTransportError("call_tool", errors.New("server gone"))
	})

	g := NewToolGenerator(caller, "llm", "generate_text")
	_, err := g.GenerateText(context.Background(), "p")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.IsGeneration(err) {
		t.Errorf("failure should classify as generation error, got %v", err)
	}
}
