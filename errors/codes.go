package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Resolution and configuration errors
const (
	// ErrCodeNotFound indicates an executable or file could not be located.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeInvalidInput indicates a configuration value is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeConflict indicates mutually exclusive options were requested together.
	ErrCodeConflict ErrorCode = "CONFLICT"
)

// Lifecycle errors
const (
	// ErrCodeStartFailed indicates the operating system refused to create the process.
	ErrCodeStartFailed ErrorCode = "START_FAILED"
	// ErrCodeNotSuccessful indicates the process exited but failed result validation.
	ErrCodeNotSuccessful ErrorCode = "NOT_SUCCESSFUL"
	// ErrCodeTimeout indicates the process was terminated by its timeout policy.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeCanceled indicates the invocation was canceled by the caller.
	ErrCodeCanceled ErrorCode = "CANCELED"
	// ErrCodeInvalidState indicates an operation was attempted in the wrong lifecycle state.
	ErrCodeInvalidState ErrorCode = "INVALID_STATE"
)

// Platform errors
const (
	// ErrCodeUnsupported indicates the platform does not expose the requested feature.
	ErrCodeUnsupported ErrorCode = "UNSUPPORTED"
	// ErrCodePermissionDenied indicates missing privileges or credentials.
	ErrCodePermissionDenied ErrorCode = "PERMISSION_DENIED"
	// ErrCodeIO indicates a failure while piping standard streams.
	ErrCodeIO ErrorCode = "IO_ERROR"
	// ErrCodeInternal indicates an unexpected internal error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeStartFailed: true,
	ErrCodeTimeout:     true,
	ErrCodeIO:          true,
	ErrCodeInternal:    false,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
