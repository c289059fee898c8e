//go:build windows

package process

import (
	"os/exec"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"

	apperrors "github.com/kbukum/procinvoke/errors"
)

const (
	logon32LogonInteractive = 2
	logon32ProviderDefault  = 0
)

var (
	advapi32      = windows.NewLazySystemDLL("advapi32.dll")
	procLogonUser = advapi32.NewProc("LogonUserW")
)

// applyCredential logs the user on and starts the child with its token.
// The returned func closes the token once the process has started.
func applyCredential(cmd *exec.Cmd, c *Credential) (func(), error) {
	password, err := c.password()
	if err != nil {
		return nil, err
	}
	user, err := windows.UTF16PtrFromString(c.Username)
	if err != nil {
		return nil, apperrors.InvalidInput("credential", "invalid user name")
	}
	domain, err := windows.UTF16PtrFromString(c.Domain)
	if err != nil {
		return nil, apperrors.InvalidInput("credential", "invalid domain")
	}
	pass, err := windows.UTF16PtrFromString(password)
	if err != nil {
		return nil, apperrors.InvalidInput("credential", "invalid password")
	}

	var token windows.Token
	r, _, callErr := procLogonUser.Call(
		uintptr(unsafe.Pointer(user)),
		uintptr(unsafe.Pointer(domain)),
		uintptr(unsafe.Pointer(pass)),
		logon32LogonInteractive,
		logon32ProviderDefault,
		uintptr(unsafe.Pointer(&token)),
	)
	if r == 0 {
		return nil, apperrors.PermissionDenied("logon failed for " + c.account()).WithCause(callErr)
	}

	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Token = syscall.Token(token)
	return func() { _ = token.Close() }, nil
}
