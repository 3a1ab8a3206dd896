package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"call-insights-go/internal/logger"
)

// now is overridden in tests to provide deterministic timings.
var now = time.Now

type execution struct {
	desc   Description
	cancel context.CancelFunc
	done   chan struct{}
}

// Local runs each execution on its own goroutine inside the process.
// Executions survive the request that started them but not a restart.
type Local struct {
	log *logger.Logger

	mu         sync.Mutex
	workflow   Workflow
	byRef      map[string]*execution
	byWorkflow map[string]string
	closed     bool

	base     context.Context
	shutdown context.CancelFunc
	wg       sync.WaitGroup
}

func NewLocal(log *logger.Logger) *Local {
	base, cancel := context.WithCancel(context.Background())
	return &Local{
		log:        log.With(map[string]any{"component": "engine"}),
		byRef:      make(map[string]*execution),
		byWorkflow: make(map[string]string),
		base:       base,
		shutdown:   cancel,
	}
}

// Register sets the workflow run by every execution started afterwards.
func (l *Local) Register(wf Workflow) {
	l.mu.Lock()
	l.workflow = wf
	l.mu.Unlock()
}

func (l *Local) Start(_ context.Context, workflowID string, input []byte) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return "", ErrClosed
	}
	if l.workflow == nil {
		return "", ErrNoWorkflow
	}
	if ref, ok := l.byWorkflow[workflowID]; ok {
		return ref, nil
	}

	ctx, cancel := context.WithCancel(l.base)
	exec := &execution{
		desc: Description{
			Ref:        uuid.NewString(),
			WorkflowID: workflowID,
			Status:     StatusRunning,
			StartedAt:  now().UTC(),
		},
		cancel: cancel,
		done:   make(chan struct{}),
	}
	l.byRef[exec.desc.Ref] = exec
	l.byWorkflow[workflowID] = exec.desc.Ref

	payload := append([]byte(nil), input...)
	wf := l.workflow
	l.wg.Add(1)
	go l.run(ctx, exec, wf, payload)

	return exec.desc.Ref, nil
}

func (l *Local) run(ctx context.Context, exec *execution, wf Workflow, input []byte) {
	defer l.wg.Done()
	defer close(exec.done)
	defer exec.cancel()

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = PanicError{WorkflowID: exec.desc.WorkflowID, Value: r}
			}
		}()
		return wf(ctx, input)
	}()

	l.mu.Lock()
	defer l.mu.Unlock()

	stopped := now().UTC()
	exec.desc.StoppedAt = &stopped
	if exec.desc.Status == StatusAborted {
		return
	}
	switch {
	case err == nil:
		exec.desc.Status = StatusSucceeded
	case errors.Is(err, context.Canceled) && l.closed:
		exec.desc.Status = StatusAborted
		exec.desc.Error = "engine shut down"
	default:
		exec.desc.Status = StatusFailed
		exec.desc.Error = err.Error()
		l.log.WithError(err).WithField("workflow_id", exec.desc.WorkflowID).Warn("execution failed")
	}
}

func (l *Local) Describe(_ context.Context, ref string) (*Description, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	exec, ok := l.byRef[ref]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrExecutionNotFound, ref)
	}
	d := exec.desc
	return &d, nil
}

// Abort cancels a running execution. Aborting a finished one is a no-op.
func (l *Local) Abort(_ context.Context, ref string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	exec, ok := l.byRef[ref]
	if !ok {
		return fmt.Errorf("%w: %s", ErrExecutionNotFound, ref)
	}
	if exec.desc.Status != StatusRunning {
		return nil
	}
	exec.desc.Status = StatusAborted
	stopped := now().UTC()
	exec.desc.StoppedAt = &stopped
	exec.cancel()
	return nil
}

// Wait blocks until the execution behind ref finishes or ctx is done.
func (l *Local) Wait(ctx context.Context, ref string) error {
	l.mu.Lock()
	exec, ok := l.byRef[ref]
	l.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrExecutionNotFound, ref)
	}
	select {
	case <-exec.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting executions, cancels the running ones and waits for
// them to return or ctx to expire.
func (l *Local) Close(ctx context.Context) error {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	l.shutdown()

	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
