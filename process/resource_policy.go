package process

import (
	"fmt"
	"strings"

	apperrors "github.com/kbukum/procinvoke/errors"
	"github.com/kbukum/procinvoke/validation"
)

// PriorityClass is a scheduling priority. The zero value leaves the
// inherited priority untouched.
type PriorityClass string

const (
	PriorityInherit     PriorityClass = ""
	PriorityIdle        PriorityClass = "idle"
	PriorityBelowNormal PriorityClass = "below_normal"
	PriorityNormal      PriorityClass = "normal"
	PriorityAboveNormal PriorityClass = "above_normal"
	PriorityHigh        PriorityClass = "high"
	PriorityRealTime    PriorityClass = "realtime"
)

// niceValues maps priority classes onto Unix nice levels.
var niceValues = map[PriorityClass]int{
	PriorityIdle:        19,
	PriorityBelowNormal: 10,
	PriorityNormal:      0,
	PriorityAboveNormal: -5,
	PriorityHigh:        -11,
	PriorityRealTime:    -19,
}

// ParsePriorityClass accepts the names above, case-insensitively.
func ParsePriorityClass(s string) (PriorityClass, error) {
	p := PriorityClass(strings.ToLower(strings.TrimSpace(s)))
	if p == PriorityInherit {
		return p, nil
	}
	if _, ok := niceValues[p]; !ok {
		return PriorityInherit, apperrors.InvalidInput("priority_class", fmt.Sprintf("unknown priority class %q", s))
	}
	return p, nil
}

// ResourcePolicy constrains a started process. Nil fields are left alone.
type ResourcePolicy struct {
	// ProcessorAffinity is a CPU bitmask (Windows and Linux only).
	ProcessorAffinity *uint64 `mapstructure:"processor_affinity"`
	// MinWorkingSet and MaxWorkingSet are byte bounds (Windows only).
	MinWorkingSet *int64        `mapstructure:"min_working_set" validate:"omitempty,gte=0"`
	MaxWorkingSet *int64        `mapstructure:"max_working_set" validate:"omitempty,gte=0"`
	PriorityClass PriorityClass `mapstructure:"priority_class" validate:"omitempty,oneof=idle below_normal normal above_normal high realtime"`
	// PriorityBoost toggles dynamic priority boosting (Windows only; ignored elsewhere).
	PriorityBoost *bool `mapstructure:"priority_boost"`
}

// Validate checks field ranges and that MinWorkingSet <= MaxWorkingSet.
func (p *ResourcePolicy) Validate() error {
	if p == nil {
		return nil
	}
	if err := validation.Validate(p); err != nil {
		return err
	}
	v := validation.New()
	if p.MinWorkingSet != nil && p.MaxWorkingSet != nil {
		v.Custom(*p.MinWorkingSet <= *p.MaxWorkingSet, "min_working_set", "must not exceed max_working_set")
	}
	if p.ProcessorAffinity != nil {
		v.Custom(*p.ProcessorAffinity != 0, "processor_affinity", "must select at least one processor")
	}
	return v.Err()
}

// IsEmpty reports whether the policy changes nothing.
func (p *ResourcePolicy) IsEmpty() bool {
	return p == nil || (p.ProcessorAffinity == nil && p.MinWorkingSet == nil &&
		p.MaxWorkingSet == nil && p.PriorityClass == PriorityInherit && p.PriorityBoost == nil)
}

func (p *ResourcePolicy) clone() *ResourcePolicy {
	if p == nil {
		return nil
	}
	cp := *p
	return &cp
}
