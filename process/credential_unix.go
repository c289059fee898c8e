//go:build unix

package process

import (
	"os/exec"
	"os/user"
	"strconv"
	"syscall"

	apperrors "github.com/kbukum/procinvoke/errors"
)

// applyCredential switches the child to the credential's uid/gid.
func applyCredential(cmd *exec.Cmd, c *Credential) (func(), error) {
	u, err := user.Lookup(c.Username)
	if err != nil {
		return nil, apperrors.NotFound("user", c.Username).WithCause(err)
	}
	uid, err := strconv.ParseUint(u.Uid, 10, 32)
	if err != nil {
		return nil, apperrors.InvalidInput("credential", "non-numeric uid "+u.Uid)
	}
	gid, err := strconv.ParseUint(u.Gid, 10, 32)
	if err != nil {
		return nil, apperrors.InvalidInput("credential", "non-numeric gid "+u.Gid)
	}
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Credential = &syscall.Credential{Uid: uint32(uid), Gid: uint32(gid)}
	return func() {}, nil
}
