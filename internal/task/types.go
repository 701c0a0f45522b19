// Package task defines the data model passed between the planner, worker,
// and judge: tasks, task results, and validation outcomes. Items cross the
// queue substrate as JSON, so every type here round-trips through
// encoding/json.
package task

import (
	"time"

	"github.com/google/uuid"
)

// Type enumerates the kinds of work a worker can execute.
type Type string

const (
	// TypeGeneratePost asks a worker to produce an original post.
	TypeGeneratePost Type = "generate_post"

	// TypeGenerateReply asks a worker to answer a mention or comment.
	TypeGenerateReply Type = "generate_reply"

	// TypeAnalyzeTrend asks a worker to summarize a cluster of articles.
	TypeAnalyzeTrend Type = "analyze_trend"
)

// String returns the string representation of the task type.
func (t Type) String() string { return string(t) }

// Valid reports whether the type is one a worker can dispatch on.
func (t Type) Valid() bool {
	switch t {
	case TypeGeneratePost, TypeGenerateReply, TypeAnalyzeTrend:
		return true
	}
	return false
}

// Platform identifies a publishing target.
type Platform string

const (
	// PlatformX is X (formerly Twitter).
	PlatformX Platform = "x"

	// PlatformLinkedIn is LinkedIn.
	PlatformLinkedIn Platform = "linkedin"
)

// String returns the string representation of the platform.
func (p Platform) String() string { return string(p) }

// Task is a single atomic unit of work created by the planner and consumed
// exactly once by whichever worker pops it. The StateVersion stamp is
// immutable after creation: it records the global state the planner observed,
// and the judge later compares it against the current version to detect
// stale results.
type Task struct {
	// ID uniquely identifies the task.
	ID uuid.UUID `json:"id"`

	// Type selects the worker handler.
	Type Type `json:"type"`

	// Platform is the eventual publishing target.
	Platform Platform `json:"platform"`

	// Payload carries the kind-specific inputs. See payload.go for the
	// closed set of payload types and their wire encoding.
	Payload Payload `json:"-"`

	// StateVersion is the global state version observed at creation time.
	StateVersion int64 `json:"state_version"`

	// CreatedAt is when the planner produced the task.
	CreatedAt time.Time `json:"created_at"`

	// RetryCount and MaxRetries exist as hooks for an external supervisor.
	// The core pipeline never re-enqueues a failed task itself.
	RetryCount int `json:"retry_count"`
	MaxRetries int `json:"max_retries"`
}

// New creates a Task of the payload's kind, stamped with the given state
// version. The platform records where approved output will eventually land.
func New(platform Platform, payload Payload, stateVersion int64) Task {
	return Task{
		ID:           uuid.New(),
		Type:         payload.Kind(),
		Platform:     platform,
		Payload:      payload,
		StateVersion: stateVersion,
		CreatedAt:    time.Now().UTC(),
		MaxRetries:   3,
	}
}
