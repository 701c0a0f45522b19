package queue

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const stateFileName = "queues-state.json"

// persistedState is the serializable representation of the broker's queues.
// Items are base64-encoded so arbitrary serialized records survive the JSON
// round trip unchanged.
type persistedState struct {
	Queues map[string][]string `json:"queues"`
}

// SaveState writes a snapshot of every queue to a JSON file in the given
// directory. The write is atomic: data goes to a temporary file first, then
// is renamed into place. A file lock is held for cross-process safety.
func (b *Broker) SaveState(dir string) error {
	fl := NewFileLock(dir)
	if err := fl.Lock(); err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	defer func() { _ = fl.Unlock() }()

	b.mu.Lock()
	state := persistedState{Queues: make(map[string][]string, len(b.queues))}
	for name, q := range b.queues {
		encoded := make([]string, len(q.items))
		for i, item := range q.items {
			encoded[i] = base64.StdEncoding.EncodeToString(item)
		}
		state.Queues[name] = encoded
	}
	b.mu.Unlock()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal queue state: %w", err)
	}

	target := filepath.Join(dir, stateFileName)
	tmp := target + ".tmp"

	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// LoadState restores a Broker from a previously saved state file in the
// given directory. Missing file is not an error: it returns an empty broker,
// matching a first boot.
func LoadState(dir string) (*Broker, error) {
	fl := NewFileLock(dir)
	if err := fl.Lock(); err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	defer func() { _ = fl.Unlock() }()

	target := filepath.Join(dir, stateFileName)
	data, err := os.ReadFile(target)
	if os.IsNotExist(err) {
		return NewBroker(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}

	var state persistedState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("unmarshal queue state: %w", err)
	}

	b := NewBroker()
	for name, encoded := range state.Queues {
		q := b.get(name)
		for _, e := range encoded {
			item, err := base64.StdEncoding.DecodeString(e)
			if err != nil {
				return nil, fmt.Errorf("decode item in queue %q: %w", name, err)
			}
			q.items = append(q.items, item)
		}
	}
	return b, nil
}
