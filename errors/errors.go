package errors

import (
	"fmt"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithRetryable overrides the retryable flag and returns the receiver.
func (e *AppError) WithRetryable(retryable bool) *AppError {
	e.Retryable = retryable
	return e
}

// WithDetails merges the provided details into the error and returns the receiver.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Retryable: IsRetryableCode(code),
	}
}

// --- Common Error Constructors ---

// NotFound creates a new AppError for a resource that could not be located.
func NotFound(resource, name string) *AppError {
	details := map[string]any{"resource": resource}
	if name != "" {
		details["name"] = name
	}
	msg := fmt.Sprintf("The requested %s was not found.", resource)
	if name != "" {
		msg = fmt.Sprintf("The requested %s %q was not found.", resource, name)
	}
	return &AppError{Code: ErrCodeNotFound, Message: msg, Details: details}
}

// InvalidInput creates a new AppError for an invalid configuration field.
func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code: ErrCodeInvalidInput, Message: fmt.Sprintf("Invalid input: %s", reason),
		Details: details,
	}
}

// Validation creates a new AppError for validation errors.
func Validation(message string) *AppError {
	return &AppError{Code: ErrCodeInvalidInput, Message: message}
}

// Conflict creates a new AppError for mutually exclusive options.
func Conflict(reason string) *AppError {
	return &AppError{Code: ErrCodeConflict, Message: reason}
}

// StartFailed creates a new AppError for a process the OS refused to create.
func StartFailed(executable string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeStartFailed, Message: fmt.Sprintf("Failed to start %s.", executable),
		Retryable: false, Details: map[string]any{"executable": executable}, Cause: cause,
	}
}

// NotSuccessful creates a new AppError for a process that failed result validation.
func NotSuccessful(executable string, exitCode int) *AppError {
	return &AppError{
		Code:    ErrCodeNotSuccessful,
		Message: fmt.Sprintf("Process %s exited with code %d and did not satisfy its validation rules.", executable, exitCode),
		Details: map[string]any{"executable": executable, "exit_code": exitCode},
	}
}

// Timeout creates a new AppError for a process terminated by its timeout policy.
func Timeout(executable string) *AppError {
	return &AppError{
		Code: ErrCodeTimeout, Message: fmt.Sprintf("Process %s did not exit before its timeout.", executable),
		Retryable: true, Details: map[string]any{"executable": executable},
	}
}

// Canceled creates a new AppError for an invocation canceled by the caller.
func Canceled(executable string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeCanceled, Message: fmt.Sprintf("Invocation of %s was canceled.", executable),
		Details: map[string]any{"executable": executable}, Cause: cause,
	}
}

// InvalidState creates a new AppError for an operation attempted in the wrong lifecycle state.
func InvalidState(operation, state string) *AppError {
	return &AppError{
		Code:    ErrCodeInvalidState,
		Message: fmt.Sprintf("Cannot %s while the process is %s.", operation, state),
		Details: map[string]any{"operation": operation, "state": state},
	}
}

// Unsupported creates a new AppError for a feature the platform does not expose.
func Unsupported(feature, platform string) *AppError {
	return &AppError{
		Code:    ErrCodeUnsupported,
		Message: fmt.Sprintf("%s is not supported on %s.", feature, platform),
		Details: map[string]any{"feature": feature, "platform": platform},
	}
}

// PermissionDenied creates a new AppError for missing privileges.
func PermissionDenied(reason string) *AppError {
	if reason == "" {
		reason = "The process requires privileges the caller does not hold."
	}
	return &AppError{Code: ErrCodePermissionDenied, Message: reason}
}

// IO creates a new AppError for a failure while piping a standard stream.
func IO(stream string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeIO, Message: fmt.Sprintf("Failed to pipe standard %s.", stream),
		Retryable: true, Details: map[string]any{"stream": stream}, Cause: cause,
	}
}

// Internal creates a new AppError for an unexpected internal error.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "An unexpected error occurred.",
		Retryable: false, Cause: cause,
	}
}
