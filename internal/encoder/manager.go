// Package encoder launches and supervises the external ffmpeg process for
// one compiled graph. The process is a black box behind this package: the
// compiler and resolver never see an exec.Cmd, and a different encoder binary
// could be swapped in here without touching them.
package encoder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/JJublanc/virtual-ai-coach/internal/filtergraph"
)

// ErrBusy is returned when every encode slot is taken. Callers should treat
// it as retryable.
var ErrBusy = errors.New("encoder: all encode slots busy")

// ErrTimedOut is returned by Wait when the wall-clock deadline expired and
// the process was forcibly terminated.
var ErrTimedOut = errors.New("encoder: generation deadline exceeded")

// EncodingError reports a non-zero encoder exit, with the tail of its
// diagnostic output.
type EncodingError struct {
	ExitCode int
	Detail   string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encoder exited with code %d: %s", e.ExitCode, e.Detail)
}

// Manager owns the encode worker slots and the scratch area. One Manager is
// shared by inline requests and deferred-job workers.
type Manager struct {
	ffmpegPath  string
	scratchBase string
	timeout     time.Duration
	slots       chan struct{}
}

func NewManager(ffmpegPath, scratchBase string, maxJobs int, timeout time.Duration) *Manager {
	if maxJobs < 1 {
		maxJobs = 1
	}
	return &Manager{
		ffmpegPath:  ffmpegPath,
		scratchBase: scratchBase,
		timeout:     timeout,
		slots:       make(chan struct{}, maxJobs),
	}
}

// Job is the runtime handle to one encoder invocation. Output is the
// encoder's stdout; it must be drained and Wait must be called on every
// path. Wait converges success, failure, timeout, and cancellation onto the
// same cleanup routine.
type Job struct {
	ID      string
	Output  io.ReadCloser
	Started time.Time

	manager *Manager
	cmd     *exec.Cmd
	ctx     context.Context
	cancel  context.CancelFunc
	scratch string
	stderr  *tailWriter
	done    chan struct{}
	doneErr error
}

// Start renders the graph, stages the filter script in a per-job scratch
// directory, and launches the encoder with its stdout piped. The job context
// carries the hard deadline; cancelling ctx kills the process.
func (m *Manager) Start(ctx context.Context, spec *filtergraph.GraphSpec) (*Job, error) {
	select {
	case m.slots <- struct{}{}:
	default:
		return nil, ErrBusy
	}

	release := func() { <-m.slots }

	id := uuid.New().String()
	scratch := filepath.Join(m.scratchBase, id)
	if err := os.MkdirAll(scratch, 0755); err != nil {
		release()
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}

	scriptPath := filepath.Join(scratch, "filtergraph.txt")
	rendered, err := filtergraph.Render(spec, scriptPath)
	if err != nil {
		os.RemoveAll(scratch)
		release()
		return nil, err
	}
	if err := os.WriteFile(scriptPath, []byte(rendered.FilterScript), 0644); err != nil {
		os.RemoveAll(scratch)
		release()
		return nil, fmt.Errorf("write filter script: %w", err)
	}

	jctx, cancel := context.WithTimeout(ctx, m.timeout)
	cmd := exec.CommandContext(jctx, m.ffmpegPath, rendered.Args...)
	stderr := newTailWriter(40)
	cmd.Stderr = stderr

	// Kill the whole process group on cancellation, not just the direct
	// child: an encoder helper process inheriting stdout would otherwise
	// keep the pipe open and block Wait past the deadline. WaitDelay bounds
	// Wait even if something survives the group kill.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = 5 * time.Second

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		os.RemoveAll(scratch)
		release()
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		cancel()
		os.RemoveAll(scratch)
		release()
		return nil, fmt.Errorf("start encoder: %w", err)
	}

	log.Printf("Encoder: job %s started (%d segments, %.1fs total, timeout %s)",
		id, len(spec.Segments), spec.Total, m.timeout)

	return &Job{
		ID:      id,
		Output:  stdout,
		Started: time.Now(),
		manager: m,
		cmd:     cmd,
		ctx:     jctx,
		cancel:  cancel,
		scratch: scratch,
		stderr:  stderr,
		done:    make(chan struct{}),
	}, nil
}

// Wait reaps the encoder process, removes the job's temporary files, and
// frees the encode slot. It is idempotent and classifies the outcome:
// nil, ErrTimedOut, context.Canceled (caller-initiated), or *EncodingError.
func (j *Job) Wait() error {
	select {
	case <-j.done:
		return j.doneErr
	default:
	}

	waitErr := j.cmd.Wait()

	// Snapshot the context state before releasing it: after j.cancel() the
	// context always reads as canceled, which would mask real encoder
	// failures as cancellations.
	ctxErr := j.ctx.Err()

	j.cancel()
	if err := os.RemoveAll(j.scratch); err != nil {
		log.Printf("Encoder: job %s: failed to remove scratch dir: %v", j.ID, err)
	}
	<-j.manager.slots

	switch {
	case waitErr == nil:
		log.Printf("Encoder: job %s finished in %s", j.ID, time.Since(j.Started).Round(time.Millisecond))
	case errors.Is(ctxErr, context.DeadlineExceeded):
		log.Printf("Encoder: job %s timed out after %s", j.ID, time.Since(j.Started).Round(time.Second))
		j.doneErr = ErrTimedOut
	case errors.Is(ctxErr, context.Canceled):
		j.doneErr = context.Canceled
	default:
		code := -1
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			code = exitErr.ExitCode()
		}
		j.doneErr = &EncodingError{ExitCode: code, Detail: j.stderr.Tail()}
	}

	close(j.done)
	return j.doneErr
}

// Cancel kills the encoder process. Wait must still be called to reap it and
// clean up.
func (j *Job) Cancel() {
	j.cancel()
}

// Close cancels and reaps the job, for abandon-on-error paths.
func (j *Job) Close() {
	j.cancel()
	j.Output.Close()
	j.Wait()
}

// StderrTail returns the captured tail of the encoder's diagnostic output.
func (j *Job) StderrTail() string { return j.stderr.Tail() }

// ScratchDir exposes the job's temp directory for cleanup verification.
func (j *Job) ScratchDir() string { return j.scratch }
