//go:build linux

package process

import (
	"golang.org/x/sys/unix"

	apperrors "github.com/kbukum/procinvoke/errors"
)

// applyResourcePolicy applies affinity and priority to pid. Linux exposes no
// per-process working-set bounds.
func applyResourcePolicy(pid int, p *ResourcePolicy) error {
	if p.ProcessorAffinity != nil {
		var set unix.CPUSet
		set.Zero()
		for cpu := 0; cpu < 64; cpu++ {
			if *p.ProcessorAffinity&(1<<uint(cpu)) != 0 {
				set.Set(cpu)
			}
		}
		if err := unix.SchedSetaffinity(pid, &set); err != nil {
			return resourceError("processor_affinity", err)
		}
	}
	if p.MinWorkingSet != nil || p.MaxWorkingSet != nil {
		return unsupported("working set limits", "linux")
	}
	return setNice(pid, p.PriorityClass)
}

func setNice(pid int, class PriorityClass) error {
	if class == PriorityInherit {
		return nil
	}
	if err := unix.Setpriority(unix.PRIO_PROCESS, pid, niceValues[class]); err != nil {
		return resourceError("priority_class", err)
	}
	return nil
}

func resourceError(field string, err error) error {
	if err == unix.EPERM || err == unix.EACCES {
		return apperrors.PermissionDenied("not permitted to set " + field).WithCause(err)
	}
	return apperrors.InvalidInput(field, err.Error()).WithCause(err)
}
