package transcoder

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout is returned when a job runs longer than its allotted time.
var ErrTimeout = errors.New("transcoder operation timed out")

// Job is a handle to an operation running in its own goroutine.
type Job struct {
	done   chan struct{}
	cancel context.CancelFunc
	err    error
}

// Go runs fn in a new goroutine bounded by timeout and returns its handle.
// A timeout of zero or less means the job is bounded only by ctx.
// If fn fails because the deadline passed, the job error wraps ErrTimeout.
func Go(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) error) *Job {
	var jobCtx context.Context
	var cancel context.CancelFunc
	if timeout > 0 {
		jobCtx, cancel = context.WithTimeout(ctx, timeout)
	} else {
		jobCtx, cancel = context.WithCancel(ctx)
	}

	j := &Job{
		done:   make(chan struct{}),
		cancel: cancel,
	}

	go func() {
		defer close(j.done)
		defer cancel()

		err := fn(jobCtx)
		if err != nil && errors.Is(jobCtx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		j.err = err
	}()

	return j
}

// Done is closed once the job has finished.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Err returns the job result. It is only meaningful after Done is closed.
func (j *Job) Err() error {
	select {
	case <-j.done:
		return j.err
	default:
		return nil
	}
}

// Wait blocks until the job finishes or ctx is done, whichever is first.
// Returning early because of ctx does not stop the job; use Cancel.
func (j *Job) Wait(ctx context.Context) error {
	select {
	case <-j.done:
		return j.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Cancel stops the job. Any process it started is killed.
func (j *Job) Cancel() {
	j.cancel()
}

// ProbeJob is a Job that yields stream information.
type ProbeJob struct {
	*Job
	info *VideoInfo
}

// GoProbe runs fn like Go and keeps the returned VideoInfo.
func GoProbe(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (*VideoInfo, error)) *ProbeJob {
	p := &ProbeJob{}
	p.Job = Go(ctx, timeout, func(ctx context.Context) error {
		info, err := fn(ctx)
		if err != nil {
			return err
		}
		p.info = info
		return nil
	})
	return p
}

// Result waits for the probe and returns its information.
func (p *ProbeJob) Result(ctx context.Context) (*VideoInfo, error) {
	if err := p.Wait(ctx); err != nil {
		return nil, err
	}
	return p.info, nil
}

// FrameJob is a Job that yields an encoded image.
type FrameJob struct {
	*Job
	data []byte
}

// GoFrame runs fn like Go and keeps the returned image bytes.
func GoFrame(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) ([]byte, error)) *FrameJob {
	f := &FrameJob{}
	f.Job = Go(ctx, timeout, func(ctx context.Context) error {
		data, err := fn(ctx)
		if err != nil {
			return err
		}
		f.data = data
		return nil
	})
	return f
}

// Result waits for the extraction and returns the image bytes.
func (f *FrameJob) Result(ctx context.Context) ([]byte, error) {
	if err := f.Wait(ctx); err != nil {
		return nil, err
	}
	return f.data, nil
}
