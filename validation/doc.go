// Package validation provides input validation for procinvoke value objects.
//
// It supports both struct tag validation (using the validator library) and
// programmatic validation with error collection for cross-field rules such
// as working-set bounds. Both produce an *errors.AppError with code
// INVALID_INPUT and the offending fields in its details.
//
// # Struct Tag Validation
//
//	type Config struct {
//	    Timeout time.Duration `validate:"gte=0"`
//	    Mode    string        `validate:"omitempty,oneof=none graceful forceful"`
//	}
//	err := validation.Validate(cfg)
//
// # Programmatic Validation
//
//	v := validation.New()
//	v.Custom(min <= max, "min_working_set", "must not exceed max_working_set")
//	err := v.Validate()
package validation
