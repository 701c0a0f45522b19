package task

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// timeLayout is the wire format for timestamps on queue items.
const timeLayout = time.RFC3339Nano

func parseUUID(s string) (uuid.UUID, error) {
	return uuid.Parse(s)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(timeLayout, s)
}

// MetaPlatform is the result metadata key carrying the target platform.
const MetaPlatform = "platform"

// Result is the outcome of executing exactly one Task, produced by a worker
// and consumed by the judge. Exactly one of Output and Error is meaningful:
// success carries non-empty output and an empty error, failure carries an
// empty output and a non-empty error.
type Result struct {
	// TaskID references the originating task.
	TaskID uuid.UUID `json:"task_id"`

	// WorkerID identifies the worker that executed the task.
	WorkerID string `json:"worker_id"`

	// Output is the produced content on success.
	Output string `json:"output"`

	// Error describes the failure, if any. A non-empty error short-circuits
	// validation: the judge rejects without running further checks.
	Error string `json:"error,omitempty"`

	// StateVersion is copied from the task for the judge's conflict check.
	StateVersion int64 `json:"state_version"`

	// Metadata echoes task fields the judge needs downstream, keyed by the
	// Meta* constants. At minimum it carries the target platform.
	Metadata map[string]string `json:"metadata,omitempty"`

	// CreatedAt is when the worker produced the result.
	CreatedAt time.Time `json:"created_at"`
}

// NewResult builds a successful Result for the given task.
func NewResult(t Task, workerID, output string) Result {
	return Result{
		TaskID:       t.ID,
		WorkerID:     workerID,
		Output:       output,
		StateVersion: t.StateVersion,
		Metadata:     map[string]string{MetaPlatform: t.Platform.String()},
		CreatedAt:    time.Now().UTC(),
	}
}

// NewErrorResult builds a failed Result for the given task. The state
// version still comes from the task so the judge sees the fate of every
// dispatched task, conflict check included.
func NewErrorResult(t Task, workerID string, err error) Result {
	return Result{
		TaskID:       t.ID,
		WorkerID:     workerID,
		Error:        err.Error(),
		StateVersion: t.StateVersion,
		Metadata:     map[string]string{MetaPlatform: t.Platform.String()},
		CreatedAt:    time.Now().UTC(),
	}
}

// Platform returns the target platform echoed in the result metadata,
// defaulting to X when absent.
func (r Result) Platform() Platform {
	if p, ok := r.Metadata[MetaPlatform]; ok && p != "" {
		return Platform(p)
	}
	return PlatformX
}

// Decision is the terminal state the judge assigns to a result.
type Decision string

const (
	// DecisionApprove publishes the output.
	DecisionApprove Decision = "approve"

	// DecisionEscalate hands the result to a human reviewer.
	DecisionEscalate Decision = "escalate"

	// DecisionReject drops the result with a reason.
	DecisionReject Decision = "reject"
)

// String returns the string representation of the decision.
func (d Decision) String() string { return string(d) }

// Validation is the judge's transient verdict on one result. It exists only
// for the span between validation and decision execution and is never
// persisted.
type Validation struct {
	// Decision is the terminal outcome.
	Decision Decision `json:"decision"`

	// Confidence is the weighted score in [0,1] that drove the decision.
	Confidence float64 `json:"confidence"`

	// Reason explains the decision in human-readable form.
	Reason string `json:"reason"`

	// Checks records the named sub-check outcomes that fed the score.
	Checks map[string]any `json:"checks,omitempty"`
}

func (v Validation) String() string {
	return fmt.Sprintf("%s (confidence %.2f): %s", v.Decision, v.Confidence, v.Reason)
}
