// Package persona loads the agent's persona definition and assembles the
// context string handed to the generation capability. A persona file is a
// markdown document with YAML frontmatter describing the agent's voice,
// followed by free-text backstory.
package persona

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Persona is the parsed persona definition: the immutable identity the
// worker writes as and the judge scores against.
type Persona struct {
	Name             string            `yaml:"name"`
	Niche            string            `yaml:"niche"`
	Platforms        []string          `yaml:"platforms"`
	VoiceTraits      []string          `yaml:"voice_traits"`
	HumorStyle       string            `yaml:"humor_style"`
	Audience         map[string]string `yaml:"audience"`
	HardRules        []string          `yaml:"hard_rules"`
	DisclosurePolicy string            `yaml:"disclosure_policy"`

	// Backstory is the free text following the frontmatter.
	Backstory string `yaml:"-"`
}

// Parse parses a persona document: YAML frontmatter delimited by "---"
// lines, followed by the backstory.
func Parse(content []byte) (*Persona, error) {
	text := string(content)
	if !strings.HasPrefix(text, "---") {
		return nil, fmt.Errorf("persona file must start with YAML frontmatter (---)")
	}

	parts := strings.SplitN(text, "---", 3)
	if len(parts) < 3 {
		return nil, fmt.Errorf("persona file must have closing frontmatter delimiter")
	}

	var p Persona
	if err := yaml.Unmarshal([]byte(parts[1]), &p); err != nil {
		return nil, fmt.Errorf("parse persona frontmatter: %w", err)
	}
	if p.Name == "" {
		return nil, fmt.Errorf("persona frontmatter missing required field: name")
	}
	p.Backstory = strings.TrimSpace(parts[2])

	return &p, nil
}

// Load reads and parses the persona file at path.
func Load(path string) (*Persona, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read persona file: %w", err)
	}
	return Parse(content)
}

// SystemPrompt renders the persona as the identity section of a generation
// prompt.
func (p *Persona) SystemPrompt() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# WHO YOU ARE\n\n")
	fmt.Fprintf(&sb, "You are **%s**, focused on %s.\n\n", p.Name, p.Niche)

	sb.WriteString("## Your Voice\n")
	sb.WriteString(strings.Join(p.VoiceTraits, ", "))
	sb.WriteString("\n")
	if p.HumorStyle != "" {
		fmt.Fprintf(&sb, "\nYour humor style: %s\n", p.HumorStyle)
	}

	if p.Backstory != "" {
		fmt.Fprintf(&sb, "\n## Your Backstory\n%s\n", p.Backstory)
	}

	if len(p.Audience) > 0 {
		sb.WriteString("\n## Platform Adaptation\n")
		// Stable iteration order for deterministic prompts.
		for _, platform := range sortedKeys(p.Audience) {
			fmt.Fprintf(&sb, "- **%s**: target audience is %s\n", platform, p.Audience[platform])
		}
	}

	if len(p.HardRules) > 0 {
		sb.WriteString("\n## Hard Rules (NEVER VIOLATE)\n")
		for _, rule := range p.HardRules {
			fmt.Fprintf(&sb, "- %s\n", rule)
		}
	}

	if p.DisclosurePolicy != "" {
		fmt.Fprintf(&sb, "\n## Disclosure Policy\n%s\n", p.DisclosurePolicy)
	}

	return sb.String()
}

// Constraints returns the persona's hard rules plus voice constraints, for
// use in validation prompts.
func (p *Persona) Constraints() []string {
	out := make([]string, 0, len(p.HardRules)+2)
	out = append(out, p.HardRules...)
	if len(p.VoiceTraits) > 0 {
		out = append(out, "Voice must be: "+strings.Join(p.VoiceTraits, ", "))
	}
	if p.HumorStyle != "" {
		out = append(out, "Humor style: "+p.HumorStyle)
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
