package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"call-insights-go/internal/logger"
)

func waitFor(t *testing.T, l *Local, ref string) *Description {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, l.Wait(ctx, ref))
	d, err := l.Describe(ctx, ref)
	require.NoError(t, err)
	return d
}

func TestLocalRequiresWorkflow(t *testing.T) {
	l := NewLocal(logger.Discard())
	_, err := l.Start(context.Background(), "c/a.wav", nil)
	assert.ErrorIs(t, err, ErrNoWorkflow)
}

func TestLocalSucceeded(t *testing.T) {
	l := NewLocal(logger.Discard())
	var got []byte
	l.Register(func(_ context.Context, input []byte) error {
		got = input
		return nil
	})

	ref, err := l.Start(context.Background(), "c/a.wav", []byte(`{"x":1}`))
	require.NoError(t, err)

	d := waitFor(t, l, ref)
	assert.Equal(t, StatusSucceeded, d.Status)
	assert.Equal(t, "c/a.wav", d.WorkflowID)
	assert.NotNil(t, d.StoppedAt)
	assert.JSONEq(t, `{"x":1}`, string(got))
}

func TestLocalSameWorkflowIDReturnsSameRef(t *testing.T) {
	l := NewLocal(logger.Discard())
	release := make(chan struct{})
	calls := 0
	l.Register(func(context.Context, []byte) error {
		calls++
		<-release
		return nil
	})

	ref1, err := l.Start(context.Background(), "c/a.wav", nil)
	require.NoError(t, err)
	ref2, err := l.Start(context.Background(), "c/a.wav", nil)
	require.NoError(t, err)
	assert.Equal(t, ref1, ref2)

	close(release)
	waitFor(t, l, ref1)
	assert.Equal(t, 1, calls)
}

func TestLocalFailedAndPanic(t *testing.T) {
	l := NewLocal(logger.Discard())
	l.Register(func(_ context.Context, input []byte) error {
		if string(input) == "panic" {
			panic("kaboom")
		}
		return errors.New("transcription unavailable")
	})

	ref, err := l.Start(context.Background(), "c/fail.wav", []byte("err"))
	require.NoError(t, err)
	d := waitFor(t, l, ref)
	assert.Equal(t, StatusFailed, d.Status)
	assert.Contains(t, d.Error, "transcription unavailable")

	ref, err = l.Start(context.Background(), "c/panic.wav", []byte("panic"))
	require.NoError(t, err)
	d = waitFor(t, l, ref)
	assert.Equal(t, StatusFailed, d.Status)
	assert.Contains(t, d.Error, "kaboom")
}

func TestLocalAbort(t *testing.T) {
	l := NewLocal(logger.Discard())
	l.Register(func(ctx context.Context, _ []byte) error {
		<-ctx.Done()
		return ctx.Err()
	})

	ref, err := l.Start(context.Background(), "c/a.wav", nil)
	require.NoError(t, err)
	require.NoError(t, l.Abort(context.Background(), ref))

	d := waitFor(t, l, ref)
	assert.Equal(t, StatusAborted, d.Status)

	// aborting again is a no-op
	require.NoError(t, l.Abort(context.Background(), ref))
	assert.ErrorIs(t, l.Abort(context.Background(), "missing"), ErrExecutionNotFound)
}

func TestLocalDescribeUnknown(t *testing.T) {
	l := NewLocal(logger.Discard())
	_, err := l.Describe(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrExecutionNotFound)
}

func TestLocalClose(t *testing.T) {
	l := NewLocal(logger.Discard())
	l.Register(func(ctx context.Context, _ []byte) error {
		<-ctx.Done()
		return ctx.Err()
	})
	ref, err := l.Start(context.Background(), "c/a.wav", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, l.Close(ctx))

	d, err := l.Describe(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, StatusAborted, d.Status)

	_, err = l.Start(ctx, "c/b.wav", nil)
	assert.ErrorIs(t, err, ErrClosed)
}
