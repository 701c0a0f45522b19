package task

import (
	"encoding/json"
	"fmt"
)

// Payload is the closed union of kind-specific task inputs. Each payload
// type reports its own kind, which doubles as the wire discriminator, so a
// single queue can carry every task kind while handlers still get typed
// fields.
type Payload interface {
	Kind() Type
}

// Article is a news item referenced by post and trend payloads.
type Article struct {
	Title   string `json:"title"`
	Summary string `json:"summary,omitempty"`
	URL     string `json:"url,omitempty"`
}

// PostPayload carries the inputs for an original post.
type PostPayload struct {
	Topic    string    `json:"topic"`
	Articles []Article `json:"articles,omitempty"`
	Urgency  string    `json:"urgency,omitempty"`
}

// Kind implements Payload.
func (PostPayload) Kind() Type { return TypeGeneratePost }

// ReplyPayload carries the mention a reply should answer.
type ReplyPayload struct {
	MentionID   string `json:"mention_id,omitempty"`
	Author      string `json:"author"`
	MentionText string `json:"mention_text"`
}

// Kind implements Payload.
func (ReplyPayload) Kind() Type { return TypeGenerateReply }

// TrendPayload carries the article cluster to analyze.
type TrendPayload struct {
	Articles []Article `json:"articles"`
}

// Kind implements Payload.
func (TrendPayload) Kind() Type { return TypeAnalyzeTrend }

// taskWire is the on-queue representation of a Task. The payload travels as
// raw JSON next to the type discriminator.
type taskWire struct {
	ID           string          `json:"id"`
	Type         Type            `json:"type"`
	Platform     Platform        `json:"platform"`
	Payload      json.RawMessage `json:"payload"`
	StateVersion int64           `json:"state_version"`
	CreatedAt    string          `json:"created_at"`
	RetryCount   int             `json:"retry_count"`
	MaxRetries   int             `json:"max_retries"`
}

// MarshalJSON encodes the task with its payload under the type discriminator.
func (t Task) MarshalJSON() ([]byte, error) {
	if t.Payload == nil {
		return nil, fmt.Errorf("task %s has no payload", t.ID)
	}
	if t.Payload.Kind() != t.Type {
		return nil, fmt.Errorf("task %s: payload kind %s does not match type %s",
			t.ID, t.Payload.Kind(), t.Type)
	}

	raw, err := json.Marshal(t.Payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	return json.Marshal(taskWire{
		ID:           t.ID.String(),
		Type:         t.Type,
		Platform:     t.Platform,
		Payload:      raw,
		StateVersion: t.StateVersion,
		CreatedAt:    t.CreatedAt.Format(timeLayout),
		RetryCount:   t.RetryCount,
		MaxRetries:   t.MaxRetries,
	})
}

// UnmarshalJSON decodes the task, selecting the payload type from the
// discriminator. An unrecognized type is an error: the payload union is
// closed.
func (t *Task) UnmarshalJSON(data []byte) error {
	var w taskWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	id, err := parseUUID(w.ID)
	if err != nil {
		return fmt.Errorf("task id: %w", err)
	}

	payload, err := decodePayload(w.Type, w.Payload)
	if err != nil {
		return err
	}

	createdAt, err := parseTime(w.CreatedAt)
	if err != nil {
		return fmt.Errorf("task created_at: %w", err)
	}

	t.ID = id
	t.Type = w.Type
	t.Platform = w.Platform
	t.Payload = payload
	t.StateVersion = w.StateVersion
	t.CreatedAt = createdAt
	t.RetryCount = w.RetryCount
	t.MaxRetries = w.MaxRetries
	return nil
}

// decodePayload instantiates the concrete payload for the given kind.
func decodePayload(kind Type, raw json.RawMessage) (Payload, error) {
	switch kind {
	case TypeGeneratePost:
		var p PostPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode post payload: %w", err)
		}
		return p, nil
	case TypeGenerateReply:
		var p ReplyPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode reply payload: %w", err)
		}
		return p, nil
	case TypeAnalyzeTrend:
		var p TrendPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode trend payload: %w", err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("%q: unrecognized task type", kind)
	}
}
