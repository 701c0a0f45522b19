package persona

import (
	"fmt"
	"strings"
	"sync"
)

// MemorySource supplies recent interaction summaries for context assembly.
// The short-term memory ring implements it; long-term semantic recall is an
// external collaborator behind the same interface.
type MemorySource interface {
	// Recent returns up to n summaries, newest last.
	Recent(n int) []string
}

// recentMemoryCount bounds how many memory lines go into one prompt.
const recentMemoryCount = 10

// Manager holds the current persona and builds generation context. The
// persona can be swapped at runtime (see Watcher); reads and swaps are safe
// from any goroutine.
type Manager struct {
	mu      sync.RWMutex
	path    string
	persona *Persona
}

// NewManager loads the persona file at path and returns a Manager for it.
func NewManager(path string) (*Manager, error) {
	p, err := Load(path)
	if err != nil {
		return nil, err
	}
	return &Manager{path: path, persona: p}, nil
}

// NewManagerWith creates a Manager around an already-parsed persona.
// Used by tests and by callers that source the persona elsewhere.
func NewManagerWith(p *Persona) *Manager {
	return &Manager{persona: p}
}

// Persona returns the current persona.
func (m *Manager) Persona() *Persona {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.persona
}

// Path returns the persona file path, or "" if the persona was injected.
func (m *Manager) Path() string { return m.path }

// Reload re-reads the persona file, swapping in the new definition on
// success. On failure the previous persona stays active.
func (m *Manager) Reload() error {
	if m.path == "" {
		return fmt.Errorf("persona manager has no backing file")
	}
	p, err := Load(m.path)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.persona = p
	m.mu.Unlock()
	return nil
}

// AssembleContext combines the persona identity, recent memories, and the
// current task into the full context string for one generation call.
func (m *Manager) AssembleContext(inputQuery string, memory MemorySource) string {
	var sb strings.Builder

	sb.WriteString(m.Persona().SystemPrompt())

	if memory != nil {
		if recent := memory.Recent(recentMemoryCount); len(recent) > 0 {
			sb.WriteString("\n# RECENT CONTEXT\n")
			for _, line := range recent {
				fmt.Fprintf(&sb, "- %s\n", line)
			}
		}
	}

	fmt.Fprintf(&sb, "\n# CURRENT TASK\n%s\n", inputQuery)
	return sb.String()
}
