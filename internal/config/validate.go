package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure.
type ValidationError struct {
	Field   string // The config field path (e.g., "judge.auto_approve")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError.
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels.
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation
// errors found.
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateAgent()...)
	errors = append(errors, c.validatePlanner()...)
	errors = append(errors, c.validateWorker()...)
	errors = append(errors, c.validateJudge()...)
	errors = append(errors, c.validatePlatforms()...)
	errors = append(errors, c.validateServers()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

func (c *Config) validateAgent() []ValidationError {
	var errors []ValidationError
	if c.Agent.ID == "" {
		errors = append(errors, ValidationError{
			Field:   "agent.id",
			Value:   c.Agent.ID,
			Message: "must not be empty",
		})
	}
	return errors
}

func (c *Config) validatePlanner() []ValidationError {
	var errors []ValidationError
	if c.Planner.IntervalSeconds <= 0 {
		errors = append(errors, ValidationError{
			Field:   "planner.interval_seconds",
			Value:   c.Planner.IntervalSeconds,
			Message: "must be positive",
		})
	}
	if c.Planner.ScheduledPostHourUTC < 0 || c.Planner.ScheduledPostHourUTC > 23 {
		errors = append(errors, ValidationError{
			Field:   "planner.scheduled_post_hour_utc",
			Value:   c.Planner.ScheduledPostHourUTC,
			Message: "must be between 0 and 23",
		})
	}
	return errors
}

func (c *Config) validateWorker() []ValidationError {
	var errors []ValidationError
	if c.Worker.Count < 1 {
		errors = append(errors, ValidationError{
			Field:   "worker.count",
			Value:   c.Worker.Count,
			Message: "must be at least 1",
		})
	}
	if c.Worker.PopTimeoutSeconds <= 0 {
		errors = append(errors, ValidationError{
			Field:   "worker.pop_timeout_seconds",
			Value:   c.Worker.PopTimeoutSeconds,
			Message: "must be positive",
		})
	}
	if c.Worker.TaskDeadlineSeconds <= 0 {
		errors = append(errors, ValidationError{
			Field:   "worker.task_deadline_seconds",
			Value:   c.Worker.TaskDeadlineSeconds,
			Message: "must be positive",
		})
	}
	return errors
}

func (c *Config) validateJudge() []ValidationError {
	var errors []ValidationError
	if c.Judge.AutoApprove < 0 || c.Judge.AutoApprove > 1 {
		errors = append(errors, ValidationError{
			Field:   "judge.auto_approve",
			Value:   c.Judge.AutoApprove,
			Message: "must be between 0.0 and 1.0",
		})
	}
	if c.Judge.HITLReview < 0 || c.Judge.HITLReview > 1 {
		errors = append(errors, ValidationError{
			Field:   "judge.hitl_review",
			Value:   c.Judge.HITLReview,
			Message: "must be between 0.0 and 1.0",
		})
	}
	if c.Judge.AutoApprove < c.Judge.HITLReview {
		errors = append(errors, ValidationError{
			Field:   "judge.auto_approve",
			Value:   c.Judge.AutoApprove,
			Message: fmt.Sprintf("must be >= judge.hitl_review (%v)", c.Judge.HITLReview),
		})
	}
	if c.Judge.PopTimeoutSeconds <= 0 {
		errors = append(errors, ValidationError{
			Field:   "judge.pop_timeout_seconds",
			Value:   c.Judge.PopTimeoutSeconds,
			Message: "must be positive",
		})
	}
	return errors
}

func (c *Config) validatePlatforms() []ValidationError {
	var errors []ValidationError
	for name, spec := range c.Platforms {
		if spec.CharacterLimit < 0 {
			errors = append(errors, ValidationError{
				Field:   "platforms." + name + ".character_limit",
				Value:   spec.CharacterLimit,
				Message: "must not be negative",
			})
		}
	}
	return errors
}

func (c *Config) validateServers() []ValidationError {
	var errors []ValidationError
	for name, spec := range c.Servers {
		if spec.Command == "" {
			errors = append(errors, ValidationError{
				Field:   "servers." + name + ".command",
				Value:   spec.Command,
				Message: "must not be empty",
			})
		}
	}
	return errors
}

func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError
	if !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}
	return errors
}
