//go:build windows

package process

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sys/windows"
)

var (
	procFreeConsole           = kernel32.NewProc("FreeConsole")
	procAttachConsole         = kernel32.NewProc("AttachConsole")
	procSetConsoleCtrlHandler = kernel32.NewProc("SetConsoleCtrlHandler")

	// consoleMu serializes console attachment; a process has one console.
	consoleMu sync.Mutex
)

const attachParentProcess = ^uint32(0)

// interruptGracefully attaches to the child's console and raises Ctrl-C,
// ignoring it in this process, then waits up to the grace period.
func interruptGracefully(ctx context.Context, w *Wrapper, opts WaitOptions) error {
	consoleMu.Lock()
	defer consoleMu.Unlock()

	_, _, _ = procFreeConsole.Call()
	if r, _, err := procAttachConsole.Call(uintptr(w.pid)); r == 0 {
		reattachParentConsole()
		return fmt.Errorf("attach console of process %d: %w", w.pid, err)
	}
	_, _, _ = procSetConsoleCtrlHandler.Call(0, 1)
	defer func() {
		_, _, _ = procSetConsoleCtrlHandler.Call(0, 0)
		reattachParentConsole()
	}()

	opts.notify(StageCtrlC)
	if err := windows.GenerateConsoleCtrlEvent(windows.CTRL_C_EVENT, 0); err != nil {
		return fmt.Errorf("send ctrl-c to process %d: %w", w.pid, err)
	}
	sleepOrExit(ctx, w, opts.InterruptGrace)
	return nil
}

func reattachParentConsole() {
	_, _, _ = procFreeConsole.Call()
	_, _, _ = procAttachConsole.Call(uintptr(attachParentProcess))
}
