//go:build windows

package process

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/sys/windows"

	apperrors "github.com/kbukum/procinvoke/errors"
)

// buildCommand passes Arguments through verbatim as the command line tail.
func buildCommand(c *Configuration) (*exec.Cmd, error) {
	attr := &syscall.SysProcAttr{}
	var cmd *exec.Cmd
	if c.UseShellExecution {
		comspec := os.Getenv("ComSpec")
		if comspec == "" {
			comspec = `C:\Windows\System32\cmd.exe`
		}
		cmd = exec.Command(comspec)
		attr.CmdLine = fmt.Sprintf(`%s /S /C ""%s" %s"`, syscall.EscapeArg(comspec), c.TargetFilePath, c.Arguments)
	} else {
		cmd = exec.Command(c.TargetFilePath) //nolint:gosec // running arbitrary commands is the point
		line := syscall.EscapeArg(c.TargetFilePath)
		if strings.TrimSpace(c.Arguments) != "" {
			line += " " + c.Arguments
		}
		attr.CmdLine = line
	}
	if !c.WindowCreation {
		attr.CreationFlags |= windows.CREATE_NO_WINDOW
		attr.HideWindow = true
	}
	cmd.SysProcAttr = attr
	return cmd, nil
}

// joinArguments quotes args with the MSVCRT rules.
func joinArguments(args []string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = syscall.EscapeArg(a)
	}
	return strings.Join(quoted, " ")
}

// signalTree supports only os.Kill; console interrupts go through interrupt.
func signalTree(pid int, sig os.Signal) error {
	if sig != os.Kill {
		return unsupported("signal "+sig.String(), "windows")
	}
	p, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return killTree(pid, p)
}

// killTree runs taskkill /T so descendants die with the child.
func killTree(pid int, proc *os.Process) error {
	err := exec.Command("taskkill", "/T", "/F", "/PID", strconv.Itoa(pid)).Run()
	if err == nil {
		return nil
	}
	if kerr := proc.Kill(); kerr != nil && !errors.Is(kerr, os.ErrProcessDone) {
		return errors.Join(err, kerr)
	}
	return nil
}

// killOrphans is a no-op: without the parent, taskkill cannot find the tree.
func killOrphans(int) {}

func exitCodeOf(state *os.ProcessState) int {
	return state.ExitCode()
}

func isTransientStartError(err error) bool {
	return errors.Is(err, windows.ERROR_SHARING_VIOLATION)
}

func checkElevated() error {
	if !windows.GetCurrentProcessToken().IsElevated() {
		return apperrors.PermissionDenied("the process requires an elevated administrator token")
	}
	return nil
}

// envKey folds case; Windows environment names are case-insensitive.
func envKey(k string) string { return strings.ToUpper(k) }

func isBrokenPipe(err error) bool {
	return errors.Is(err, windows.ERROR_BROKEN_PIPE) || errors.Is(err, windows.ERROR_NO_DATA)
}

// isExecutable requires a regular file whose extension is listed in PATHEXT.
func isExecutable(path string) error {
	if _, err := statRegular(path); err != nil {
		return err
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range executableExtensions() {
		if ext == e {
			return nil
		}
	}
	return fmt.Errorf("%s: extension %q is not executable", path, ext)
}

func executableExtensions() []string {
	pathext := os.Getenv("PATHEXT")
	if pathext == "" {
		return []string{".com", ".exe", ".bat", ".cmd"}
	}
	var exts []string
	for _, e := range strings.Split(strings.ToLower(pathext), ";") {
		if e != "" {
			exts = append(exts, e)
		}
	}
	return exts
}

// executableSuffixPattern matches the usual extensions when name has none.
func executableSuffixPattern(name string) string {
	if filepath.Ext(name) != "" {
		return ""
	}
	return "{.exe,.cmd,.bat,.com}"
}
