package process

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	apperrors "github.com/kbukum/procinvoke/errors"
)

// State is the lifecycle state of a Wrapper.
type State int32

const (
	// StateCreated indicates the process has been configured but not started.
	StateCreated State = iota
	// StateStarted indicates the process is running.
	StateStarted
	// StateExited indicates the process has exited; its exit code is final.
	StateExited
	// StateDisposed indicates the wrapper released its OS resources.
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateStarted:
		return "started"
	case StateExited:
		return "exited"
	case StateDisposed:
		return "disposed"
	default:
		return fmt.Sprintf("unknown(%d)", s)
	}
}

// StreamOptions selects which standard streams are piped to the parent.
// Streams that are not piped are inherited from the current process.
type StreamOptions struct {
	Stdin  bool
	Stdout bool
	Stderr bool
}

// Wrapper owns one OS process from creation to disposal.
//
// Wrapper is safe for concurrent use. Exit is observed by a single wait
// goroutine; Done is closed once the exit code and time are final.
type Wrapper struct {
	cfg     *Configuration
	streams StreamOptions
	cmd     *exec.Cmd

	stdin  *os.File
	stdout *os.File
	stderr *os.File
	// childEnds are the pipe ends handed to the child, closed after start.
	childEnds []*os.File
	cleanup   func()

	state     atomic.Int32
	pid       int
	startTime time.Time

	mu       sync.RWMutex
	exitCode int
	exitTime time.Time
	exitErr  error

	done        chan struct{}
	waitOnce    sync.Once
	disposeOnce sync.Once
	stdinOnce   sync.Once
}

// NewWrapper prepares (but does not start) a process for cfg.
func NewWrapper(cfg *Configuration, streams StreamOptions) (*Wrapper, error) {
	if cfg == nil {
		return nil, apperrors.InvalidInput("configuration", "configuration is required")
	}
	cmd, err := buildCommand(cfg)
	if err != nil {
		return nil, err
	}
	cmd.Dir = cfg.WorkingDirectory
	cmd.Env = cfg.environ()

	w := &Wrapper{
		cfg:      cfg,
		streams:  streams,
		cmd:      cmd,
		exitCode: -1,
		done:     make(chan struct{}),
	}
	w.state.Store(int32(StateCreated))
	return w, nil
}

// State returns the current lifecycle state.
func (w *Wrapper) State() State {
	return State(w.state.Load())
}

// Configuration returns the configuration the wrapper was built from.
func (w *Wrapper) Configuration() *Configuration {
	return w.cfg
}

// Start launches the process. It may be called once; a failed start leaves
// nothing to release.
func (w *Wrapper) Start() (err error) {
	if !w.state.CompareAndSwap(int32(StateCreated), int32(StateStarted)) {
		return apperrors.InvalidState("start", w.State().String())
	}
	defer func() {
		if err != nil {
			w.releaseOnFailedStart()
		}
	}()

	if w.cfg.RequiresAdministrator {
		if err := checkElevated(); err != nil {
			return err
		}
	}
	if w.cfg.Credential != nil {
		cleanup, err := applyCredential(w.cmd, w.cfg.Credential)
		if err != nil {
			return err
		}
		w.cleanup = cleanup
	}
	if err := w.setupStreams(); err != nil {
		return err
	}

	if err := w.cmd.Start(); err != nil {
		return apperrors.StartFailed(w.cmd.Path, err).WithRetryable(isTransientStartError(err))
	}
	w.startTime = time.Now()
	w.pid = w.cmd.Process.Pid

	for _, f := range w.childEnds {
		_ = f.Close()
	}
	w.childEnds = nil
	if w.cleanup != nil {
		w.cleanup()
		w.cleanup = nil
	}

	go w.waitLoop()
	return nil
}

// setupStreams wires pipes as *os.File so cmd.Wait never waits on copying.
func (w *Wrapper) setupStreams() error {
	w.cmd.Stdin, w.cmd.Stdout, w.cmd.Stderr = os.Stdin, os.Stdout, os.Stderr

	if w.streams.Stdin {
		r, pw, err := os.Pipe()
		if err != nil {
			return apperrors.IO("input", err)
		}
		w.cmd.Stdin, w.stdin = r, pw
		w.childEnds = append(w.childEnds, r)
	}
	if w.streams.Stdout {
		pr, pw, err := os.Pipe()
		if err != nil {
			return apperrors.IO("output", err)
		}
		w.cmd.Stdout, w.stdout = pw, pr
		w.childEnds = append(w.childEnds, pw)
	}
	if w.streams.Stderr {
		pr, pw, err := os.Pipe()
		if err != nil {
			return apperrors.IO("error", err)
		}
		w.cmd.Stderr, w.stderr = pw, pr
		w.childEnds = append(w.childEnds, pw)
	}
	return nil
}

func (w *Wrapper) releaseOnFailedStart() {
	for _, f := range append(w.childEnds, w.stdin, w.stdout, w.stderr) {
		if f != nil {
			_ = f.Close()
		}
	}
	w.childEnds = nil
	if w.cleanup != nil {
		w.cleanup()
		w.cleanup = nil
	}
	w.state.Store(int32(StateDisposed))
	w.disposeOnce.Do(func() {})
}

// waitLoop reaps the process and publishes its exit code.
func (w *Wrapper) waitLoop() {
	w.waitOnce.Do(func() {
		err := w.cmd.Wait()
		exitTime := time.Now()

		code := -1
		if w.cmd.ProcessState != nil {
			code = exitCodeOf(w.cmd.ProcessState)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			err = nil
		}

		w.mu.Lock()
		w.exitCode = code
		w.exitTime = exitTime
		w.exitErr = err
		w.mu.Unlock()

		w.state.CompareAndSwap(int32(StateStarted), int32(StateExited))
		close(w.done)
	})
}

// ID returns the process id, or -1 before start.
func (w *Wrapper) ID() int {
	if w.startTime.IsZero() {
		return -1
	}
	return w.pid
}

// Done is closed when the process has exited.
func (w *Wrapper) Done() <-chan struct{} {
	return w.done
}

// HasExited reports whether the process has exited.
func (w *Wrapper) HasExited() bool {
	select {
	case <-w.done:
		return true
	default:
		return false
	}
}

// ExitCode returns the exit code, or -1 while the process is running.
func (w *Wrapper) ExitCode() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.exitCode
}

// ExitErr returns a wait failure other than a non-zero exit.
func (w *Wrapper) ExitErr() error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.exitErr
}

// StartTime returns when the process was started.
func (w *Wrapper) StartTime() time.Time {
	return w.startTime
}

// ExitTime returns when the exit was observed, or the zero time.
func (w *Wrapper) ExitTime() time.Time {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.exitTime
}

// Stdin returns the write end of the child's standard input, or nil.
func (w *Wrapper) Stdin() io.WriteCloser {
	if w.stdin == nil {
		return nil
	}
	return stdinCloser{w}
}

// Stdout returns the read end of the child's standard output, or nil.
func (w *Wrapper) Stdout() io.Reader {
	if w.stdout == nil {
		return nil
	}
	return w.stdout
}

// Stderr returns the read end of the child's standard error, or nil.
func (w *Wrapper) Stderr() io.Reader {
	if w.stderr == nil {
		return nil
	}
	return w.stderr
}

type stdinCloser struct{ w *Wrapper }

func (s stdinCloser) Write(p []byte) (int, error) { return s.w.stdin.Write(p) }
func (s stdinCloser) Close() error                { return s.w.closeStdin() }

// closeStdin signals EOF to the child exactly once.
func (w *Wrapper) closeStdin() error {
	var err error
	w.stdinOnce.Do(func() {
		if w.stdin != nil {
			err = w.stdin.Close()
		}
	})
	return err
}

// requireRunning returns ErrNotStarted before Start and InvalidState after exit.
func (w *Wrapper) requireRunning(op string) error {
	switch s := w.State(); s {
	case StateCreated:
		return ErrNotStarted
	case StateStarted:
		return nil
	default:
		return apperrors.InvalidState(op, s.String())
	}
}

// SetResourcePolicy applies p to the running process. A process that has
// already exited has nothing left to constrain, so the call is a no-op.
func (w *Wrapper) SetResourcePolicy(p *ResourcePolicy) error {
	switch s := w.State(); s {
	case StateCreated:
		return ErrNotStarted
	case StateExited:
		return nil
	case StateDisposed:
		return apperrors.InvalidState("set resource policy", s.String())
	}
	if p.IsEmpty() {
		return nil
	}
	if err := p.Validate(); err != nil {
		return err
	}
	if err := applyResourcePolicy(w.pid, p); err != nil {
		// The process may have been reaped while the policy was applied.
		if w.HasExited() && !errors.Is(err, ErrUnsupportedPlatform) {
			return nil
		}
		return err
	}
	return nil
}

// Signal sends sig to the process group (Unix). On Windows only os.Kill
// is supported.
func (w *Wrapper) Signal(sig os.Signal) error {
	if err := w.requireRunning("signal"); err != nil {
		return err
	}
	return signalTree(w.pid, sig)
}

// KillTree forcefully terminates the process and its descendants. Killing
// an exited process is a no-op.
func (w *Wrapper) KillTree() error {
	switch w.State() {
	case StateCreated:
		return ErrNotStarted
	case StateStarted:
		return killTree(w.pid, w.cmd.Process)
	default:
		return nil
	}
}

// releaseOutput kills descendants left in the process group and closes the
// parent's output read ends, so copies blocked on them return.
func (w *Wrapper) releaseOutput() {
	if w.State() == StateCreated {
		return
	}
	if w.HasExited() {
		killOrphans(w.pid)
	} else {
		_ = w.KillTree()
	}
	for _, f := range []*os.File{w.stdout, w.stderr} {
		if f != nil {
			_ = f.Close()
		}
	}
}

// disposeWait bounds how long Dispose waits for a killed process to be reaped.
const disposeWait = 5 * time.Second

// Dispose kills a still-running process tree and closes the parent's pipe
// ends. Only the first call has an effect.
func (w *Wrapper) Dispose() error {
	var errs []error
	w.disposeOnce.Do(func() {
		if w.State() == StateStarted {
			if err := w.KillTree(); err != nil {
				errs = append(errs, fmt.Errorf("kill process tree: %w", err))
			}
			select {
			case <-w.done:
			case <-time.After(disposeWait):
				errs = append(errs, fmt.Errorf("process %d was not reaped after kill", w.pid))
			}
		}
		if err := w.closeStdin(); err != nil && !errors.Is(err, os.ErrClosed) {
			errs = append(errs, fmt.Errorf("close stdin: %w", err))
		}
		for name, f := range map[string]*os.File{"stdout": w.stdout, "stderr": w.stderr} {
			if f == nil {
				continue
			}
			if err := f.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
				errs = append(errs, fmt.Errorf("close %s: %w", name, err))
			}
		}
		w.state.Store(int32(StateDisposed))
	})
	return errors.Join(errs...)
}

// requireStarted returns ErrNotStarted until Start has succeeded.
func (w *Wrapper) requireStarted() error {
	if w.State() == StateCreated || w.startTime.IsZero() {
		return ErrNotStarted
	}
	return nil
}
