//go:build unix && !linux

package process

import (
	"runtime"

	"golang.org/x/sys/unix"

	apperrors "github.com/kbukum/procinvoke/errors"
)

// applyResourcePolicy applies priority to pid. Affinity and working-set
// bounds have no per-process API on these systems.
func applyResourcePolicy(pid int, p *ResourcePolicy) error {
	if p.ProcessorAffinity != nil {
		return unsupported("processor affinity", runtime.GOOS)
	}
	if p.MinWorkingSet != nil || p.MaxWorkingSet != nil {
		return unsupported("working set limits", runtime.GOOS)
	}
	if p.PriorityClass == PriorityInherit {
		return nil
	}
	if err := unix.Setpriority(unix.PRIO_PROCESS, pid, niceValues[p.PriorityClass]); err != nil {
		if err == unix.EPERM || err == unix.EACCES {
			return apperrors.PermissionDenied("not permitted to set priority_class").WithCause(err)
		}
		return apperrors.InvalidInput("priority_class", err.Error()).WithCause(err)
	}
	return nil
}
