//go:build unix

package process

import (
	"errors"
	"io/fs"
	"os"
	"os/exec"
	"strings"
	"syscall"

	"github.com/kballard/go-shellquote"
	"golang.org/x/sys/unix"

	apperrors "github.com/kbukum/procinvoke/errors"
)

// buildCommand splits Arguments with POSIX shell rules and starts the child
// in its own process group so the whole tree can be signalled.
func buildCommand(c *Configuration) (*exec.Cmd, error) {
	var cmd *exec.Cmd
	if c.UseShellExecution {
		line := shellquote.Join(c.TargetFilePath)
		if strings.TrimSpace(c.Arguments) != "" {
			line += " " + c.Arguments
		}
		cmd = exec.Command("/bin/sh", "-c", line)
	} else {
		args, err := shellquote.Split(c.Arguments)
		if err != nil {
			return nil, apperrors.InvalidInput("arguments", err.Error()).WithCause(err)
		}
		cmd = exec.Command(c.TargetFilePath, args...) //nolint:gosec // running arbitrary commands is the point
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	return cmd, nil
}

// joinArguments quotes args into a single Arguments string.
func joinArguments(args []string) string {
	return shellquote.Join(args...)
}

func signalTree(pid int, sig os.Signal) error {
	s, ok := sig.(syscall.Signal)
	if !ok {
		return unsupported("signal "+sig.String(), "unix")
	}
	if err := unix.Kill(-pid, s); err != nil && !errors.Is(err, unix.ESRCH) {
		return err
	}
	return nil
}

// killTree kills the child's process group, falling back to the child alone.
func killTree(pid int, proc *os.Process) error {
	err := unix.Kill(-pid, unix.SIGKILL)
	if err == nil || errors.Is(err, unix.ESRCH) {
		return nil
	}
	if kerr := proc.Kill(); kerr != nil && !errors.Is(kerr, os.ErrProcessDone) {
		return errors.Join(err, kerr)
	}
	return nil
}

// killOrphans kills what remains of the group after its leader was reaped.
func killOrphans(pid int) {
	_ = unix.Kill(-pid, unix.SIGKILL)
}

// exitCodeOf reports 128+signal for signalled processes, like a shell.
func exitCodeOf(state *os.ProcessState) int {
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	return state.ExitCode()
}

func isTransientStartError(err error) bool {
	return errors.Is(err, unix.ETXTBSY) || errors.Is(err, unix.EAGAIN)
}

func checkElevated() error {
	if os.Geteuid() != 0 {
		return apperrors.PermissionDenied("the process requires root privileges")
	}
	return nil
}

func envKey(k string) string { return k }

func isBrokenPipe(err error) bool {
	return errors.Is(err, unix.EPIPE)
}

// isExecutable requires a regular file with an execute bit set.
func isExecutable(path string) error {
	info, err := statRegular(path)
	if err != nil {
		return err
	}
	if info.Mode().Perm()&0o111 == 0 {
		return fs.ErrPermission
	}
	return nil
}

func executableSuffixPattern(string) string { return "" }
