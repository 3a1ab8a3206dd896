package engine

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrExecutionNotFound = errors.New("execution not found")
	ErrNoWorkflow        = errors.New("no workflow registered")
	ErrClosed            = errors.New("engine closed")
)

// Status is the engine's own view of an execution. It says nothing about
// whether the analysis succeeded: a workflow may finish cleanly after
// recording a failed stage.
type Status string

const (
	StatusRunning   Status = "RUNNING"
	StatusSucceeded Status = "SUCCEEDED"
	StatusFailed    Status = "FAILED"
	StatusAborted   Status = "ABORTED"
)

type Description struct {
	Ref        string     `json:"ref"`
	WorkflowID string     `json:"workflow_id"`
	Status     Status     `json:"status"`
	StartedAt  time.Time  `json:"started_at"`
	StoppedAt  *time.Time `json:"stopped_at,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// Workflow is the step function an execution runs. The input is the JSON
// document passed to Start.
type Workflow func(ctx context.Context, input []byte) error

// Engine starts and inspects durable workflow executions.
type Engine interface {
	// Start launches workflowID with input. Starting an id that already has
	// an execution returns that execution's reference.
	Start(ctx context.Context, workflowID string, input []byte) (string, error)
	Describe(ctx context.Context, ref string) (*Description, error)
	Abort(ctx context.Context, ref string) error
}

// PanicError wraps a panic recovered from a workflow.
type PanicError struct {
	WorkflowID string
	Value      any
}

func (e PanicError) Error() string {
	return fmt.Sprintf("panic in workflow %s: %v", e.WorkflowID, e.Value)
}
