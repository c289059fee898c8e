package process

import (
	"io"
	"time"
)

// Result is a snapshot of a process taken after it exited.
type Result struct {
	ExecutablePath string    `json:"executable_path"`
	ExitCode       int       `json:"exit_code"`
	ProcessID      int       `json:"process_id"`
	StartTime      time.Time `json:"start_time"`
	ExitTime       time.Time `json:"exit_time"`
	Outcome        Outcome   `json:"outcome"`
}

// Duration is the time between start and exit.
func (r Result) Duration() time.Duration {
	if r.StartTime.IsZero() || r.ExitTime.IsZero() {
		return 0
	}
	return r.ExitTime.Sub(r.StartTime)
}

// BufferedResult carries the complete decoded standard output and error.
type BufferedResult struct {
	Result
	StandardOutput string `json:"standard_output"`
	StandardError  string `json:"standard_error"`
}

// PipedResult carries standard output and error as readers. Both are fully
// captured before the result is returned; the caller closes them.
type PipedResult struct {
	Result
	StandardOutput io.ReadCloser `json:"-"`
	StandardError  io.ReadCloser `json:"-"`
}

// Close releases both streams.
func (r *PipedResult) Close() error {
	var err error
	for _, rc := range []io.ReadCloser{r.StandardOutput, r.StandardError} {
		if rc == nil {
			continue
		}
		if cerr := rc.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
