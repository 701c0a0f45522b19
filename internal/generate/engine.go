// Package generate wraps the external text-generation capability with the
// platform-aware prompting the workers and judge need: post and reply
// templates, persona alignment rating, and character-limit enforcement.
package generate

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/outpost-labs/swarmgate/internal/errors"
	"github.com/outpost-labs/swarmgate/internal/task"
)

// Generator is the external generation capability. Implementations fail
// with a GenerationError on provider failure; callers must tolerate that
// and default gracefully.
type Generator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

// GenerateText implements Generator.
func (f GeneratorFunc) GenerateText(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Ellipsis is appended when output is truncated to a platform limit.
const Ellipsis = "..."

// Truncate enforces a character limit, replacing the overflow with a
// trailing ellipsis marker. Limits of zero or less disable truncation.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	if limit <= len(Ellipsis) {
		return string(runes[:limit])
	}
	return string(runes[:limit-len(Ellipsis)]) + Ellipsis
}

// platform style guides injected into post prompts.
const (
	xStyleGuide = `Style for X:
- Short and punchy (max %d characters)
- Witty, engaging, scroll-stopping
- Use emojis strategically (1-2 max)
- Hashtags optional but minimal
- Hook readers in the first five words`

	linkedinStyleGuide = `Style for LinkedIn:
- Professional yet conversational (max %d characters)
- Insightful, thought-provoking
- Minimal or no emojis
- Start with a strong statement or question
- Provide value and insights`
)

// Engine produces persona-aligned, platform-shaped content through a
// Generator. It holds no mutable state and is safe for concurrent use.
type Engine struct {
	gen Generator
}

// NewEngine creates an Engine over the given Generator.
func NewEngine(gen Generator) *Engine {
	return &Engine{gen: gen}
}

// styleGuide returns the prompt style section for the platform.
func styleGuide(platform task.Platform, charLimit int) string {
	switch platform {
	case task.PlatformLinkedIn:
		return fmt.Sprintf(linkedinStyleGuide, charLimit)
	default:
		return fmt.Sprintf(xStyleGuide, charLimit)
	}
}

// Post generates a platform-specific post about topic. The context string
// carries the assembled persona and memories. Output never exceeds
// charLimit.
func (e *Engine) Post(ctx context.Context, topic string, platform task.Platform, promptCtx string, charLimit int) (string, error) {
	prompt := fmt.Sprintf(`%s

%s

Topic: %s

Create a %s post that matches your persona. Be authentic, engaging, and provide value.`,
		promptCtx, styleGuide(platform, charLimit), topic, platform)

	out, err := e.gen.GenerateText(ctx, prompt)
	if err != nil {
		return "", err
	}
	return Truncate(strings.TrimSpace(out), charLimit), nil
}

// Reply generates a reply to a mention. Output never exceeds charLimit.
func (e *Engine) Reply(ctx context.Context, author, mentionText string, platform task.Platform, promptCtx string, charLimit int) (string, error) {
	prompt := fmt.Sprintf(`%s

Someone mentioned you on %s:
@%s: %q

Reply guidelines:
- Be friendly and engaging
- Acknowledge their point
- Add value to the conversation
- Stay true to your persona
- Keep it under %d characters

Your reply:`, promptCtx, platform, author, mentionText, charLimit)

	out, err := e.gen.GenerateText(ctx, prompt)
	if err != nil {
		return "", err
	}
	return Truncate(strings.TrimSpace(out), charLimit), nil
}

// AnalyzeTrend summarizes a cluster of related articles into a theme, key
// insights, and a content angle.
func (e *Engine) AnalyzeTrend(ctx context.Context, articles []task.Article) (string, error) {
	if len(articles) == 0 {
		return "No articles to analyze", nil
	}

	var sb strings.Builder
	for i, a := range articles {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "Title: %s\nSummary: %s", a.Title, a.Summary)
	}

	prompt := fmt.Sprintf(`Analyze these related articles and provide:
1. Main theme/topic
2. Key insights
3. Content opportunity (angle for a post)

Articles:
%s

Provide concise analysis.`, sb.String())

	out, err := e.gen.GenerateText(ctx, prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// RateAlignment asks the generator to rate how well content matches the
// persona description, returning a score clamped to [0,1]. Any provider or
// parse failure returns an error; the judge defaults to neutral rather than
// failing its pipeline.
func (e *Engine) RateAlignment(ctx context.Context, content, personaDesc string) (float64, error) {
	prompt := fmt.Sprintf(`%s

Does this content match the persona's voice, values, and style?
Content: %q

Rate alignment from 0.0 (completely off-brand) to 1.0 (perfect match).
Respond with ONLY a number.`, personaDesc, content)

	out, err := e.gen.GenerateText(ctx, prompt)
	if err != nil {
		return 0, err
	}

	score, err := strconv.ParseFloat(strings.TrimSpace(out), 64)
	if err != nil {
		return 0, errors.NewGenerationError(fmt.Errorf("unparseable alignment rating %q", strings.TrimSpace(out)))
	}
	return clamp01(score), nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
