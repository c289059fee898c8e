//go:build windows

package process

import (
	"unsafe"

	"golang.org/x/sys/windows"

	apperrors "github.com/kbukum/procinvoke/errors"
	"github.com/kbukum/procinvoke/util"
)

var (
	kernel32                     = windows.NewLazySystemDLL("kernel32.dll")
	procSetProcessAffinityMask   = kernel32.NewProc("SetProcessAffinityMask")
	procGetProcessWorkingSetSize = kernel32.NewProc("GetProcessWorkingSetSize")
)

var priorityClasses = map[PriorityClass]uint32{
	PriorityIdle:        windows.IDLE_PRIORITY_CLASS,
	PriorityBelowNormal: windows.BELOW_NORMAL_PRIORITY_CLASS,
	PriorityNormal:      windows.NORMAL_PRIORITY_CLASS,
	PriorityAboveNormal: windows.ABOVE_NORMAL_PRIORITY_CLASS,
	PriorityHigh:        windows.HIGH_PRIORITY_CLASS,
	PriorityRealTime:    windows.REALTIME_PRIORITY_CLASS,
}

// applyResourcePolicy opens pid and applies affinity, working set,
// priority class and boost, in that order.
func applyResourcePolicy(pid int, p *ResourcePolicy) error {
	access := uint32(windows.PROCESS_SET_INFORMATION | windows.PROCESS_SET_QUOTA | windows.PROCESS_QUERY_INFORMATION)
	h, err := windows.OpenProcess(access, false, uint32(pid))
	if err != nil {
		return resourceError("process handle", err)
	}
	defer func() { _ = windows.CloseHandle(h) }()

	if p.ProcessorAffinity != nil {
		r, _, callErr := procSetProcessAffinityMask.Call(uintptr(h), uintptr(*p.ProcessorAffinity))
		if r == 0 {
			return resourceError("processor_affinity", callErr)
		}
	}

	if p.MinWorkingSet != nil || p.MaxWorkingSet != nil {
		if err := setWorkingSet(h, p.MinWorkingSet, p.MaxWorkingSet); err != nil {
			return err
		}
	}

	if p.PriorityClass != PriorityInherit {
		if err := windows.SetPriorityClass(h, priorityClasses[p.PriorityClass]); err != nil {
			return resourceError("priority_class", err)
		}
	}

	if p.PriorityBoost != nil {
		if err := windows.SetProcessPriorityBoost(h, !*p.PriorityBoost); err != nil {
			return resourceError("priority_boost", err)
		}
	}
	return nil
}

// setWorkingSet fills an unset bound from the current value.
func setWorkingSet(h windows.Handle, minSize, maxSize *int64) error {
	var curMin, curMax uintptr
	r, _, callErr := procGetProcessWorkingSetSize.Call(uintptr(h),
		uintptr(unsafe.Pointer(&curMin)), uintptr(unsafe.Pointer(&curMax)))
	if r == 0 {
		return resourceError("working_set", callErr)
	}
	curMin = uintptr(util.ValueOr(minSize, int64(curMin)))
	curMax = uintptr(util.ValueOr(maxSize, int64(curMax)))
	flags := uint32(windows.QUOTA_LIMITS_HARDWS_MIN_DISABLE | windows.QUOTA_LIMITS_HARDWS_MAX_DISABLE)
	if err := windows.SetProcessWorkingSetSizeEx(h, curMin, curMax, flags); err != nil {
		return resourceError("working_set", err)
	}
	return nil
}

func resourceError(field string, err error) error {
	if err == windows.ERROR_ACCESS_DENIED {
		return apperrors.PermissionDenied("not permitted to set " + field).WithCause(err)
	}
	return apperrors.InvalidInput(field, err.Error()).WithCause(err)
}
