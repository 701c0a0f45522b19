// Package event provides a synchronous pub/sub bus carrying pipeline
// milestones. The planner, workers, and judge publish onto it so operators
// can observe the swarm without coupling any role to another.
package event

import (
	"time"

	"github.com/google/uuid"
)

// Event type identifiers.
const (
	TypeTaskEnqueued  = "task_enqueued"
	TypeResultQueued  = "result_queued"
	TypeDecisionMade  = "decision_made"
	TypeStateUpdated  = "state_updated"
	TypeQueueDepth    = "queue_depth"
	TypeHITLEscalated = "hitl_escalated"
)

// Event is implemented by every published event.
type Event interface {
	// EventType returns the type identifier used for subscription routing.
	EventType() string
	// OccurredAt returns when the event was created.
	OccurredAt() time.Time
}

// base carries the fields common to all events.
type base struct {
	at time.Time
}

func newBase() base { return base{at: time.Now().UTC()} }

func (b base) OccurredAt() time.Time { return b.at }

// TaskEnqueuedEvent signals that the planner pushed a task onto the task
// queue.
type TaskEnqueuedEvent struct {
	base
	TaskID       uuid.UUID
	TaskType     string
	Platform     string
	StateVersion int64
}

// NewTaskEnqueuedEvent creates a TaskEnqueuedEvent.
func NewTaskEnqueuedEvent(taskID uuid.UUID, taskType, platform string, stateVersion int64) TaskEnqueuedEvent {
	return TaskEnqueuedEvent{
		base:         newBase(),
		TaskID:       taskID,
		TaskType:     taskType,
		Platform:     platform,
		StateVersion: stateVersion,
	}
}

// EventType implements Event.
func (TaskEnqueuedEvent) EventType() string { return TypeTaskEnqueued }

// ResultQueuedEvent signals that a worker pushed a result onto the review
// queue. Failed is true when the result carries an error instead of output.
type ResultQueuedEvent struct {
	base
	TaskID   uuid.UUID
	WorkerID string
	Failed   bool
}

// NewResultQueuedEvent creates a ResultQueuedEvent.
func NewResultQueuedEvent(taskID uuid.UUID, workerID string, failed bool) ResultQueuedEvent {
	return ResultQueuedEvent{base: newBase(), TaskID: taskID, WorkerID: workerID, Failed: failed}
}

// EventType implements Event.
func (ResultQueuedEvent) EventType() string { return TypeResultQueued }

// DecisionMadeEvent signals that the judge reached a terminal decision for
// a result.
type DecisionMadeEvent struct {
	base
	TaskID     uuid.UUID
	Decision   string
	Confidence float64
	Reason     string
}

// NewDecisionMadeEvent creates a DecisionMadeEvent.
func NewDecisionMadeEvent(taskID uuid.UUID, decision string, confidence float64, reason string) DecisionMadeEvent {
	return DecisionMadeEvent{
		base:       newBase(),
		TaskID:     taskID,
		Decision:   decision,
		Confidence: confidence,
		Reason:     reason,
	}
}

// EventType implements Event.
func (DecisionMadeEvent) EventType() string { return TypeDecisionMade }

// StateUpdatedEvent signals that the planner bumped the global state version.
type StateUpdatedEvent struct {
	base
	NewVersion int64
}

// NewStateUpdatedEvent creates a StateUpdatedEvent.
func NewStateUpdatedEvent(newVersion int64) StateUpdatedEvent {
	return StateUpdatedEvent{base: newBase(), NewVersion: newVersion}
}

// EventType implements Event.
func (StateUpdatedEvent) EventType() string { return TypeStateUpdated }

// QueueDepthEvent reports a snapshot of queue lengths.
type QueueDepthEvent struct {
	base
	Depths map[string]int
}

// NewQueueDepthEvent creates a QueueDepthEvent.
func NewQueueDepthEvent(depths map[string]int) QueueDepthEvent {
	return QueueDepthEvent{base: newBase(), Depths: depths}
}

// EventType implements Event.
func (QueueDepthEvent) EventType() string { return TypeQueueDepth }

// HITLEscalatedEvent signals that a result was handed to human review.
type HITLEscalatedEvent struct {
	base
	TaskID uuid.UUID
	Reason string
}

// NewHITLEscalatedEvent creates a HITLEscalatedEvent.
func NewHITLEscalatedEvent(taskID uuid.UUID, reason string) HITLEscalatedEvent {
	return HITLEscalatedEvent{base: newBase(), TaskID: taskID, Reason: reason}
}

// EventType implements Event.
func (HITLEscalatedEvent) EventType() string { return TypeHITLEscalated }
