package cli

import (
	"errors"
	"fmt"
	"io"

	apperrors "github.com/kbukum/procinvoke/errors"
	"github.com/kbukum/procinvoke/process"
)

// Exit codes of the procinvoke command itself. A child that ran and failed
// validation passes its own exit code through instead.
const (
	ExitSuccess      = 0
	ExitFailed       = 1
	ExitInvalidInput = 2
	ExitTimedOut     = 124
	ExitStartFailed  = 126
	ExitNotFound     = 127
	ExitCanceled     = 130
)

// ExitCode maps err onto the exit code of the procinvoke command.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var notSuccessful *process.NotSuccessfulError
	if errors.As(err, &notSuccessful) {
		if code := notSuccessful.ExitCode(); code > 0 && code < 256 {
			return code
		}
		return ExitFailed
	}
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		return ExitFailed
	}
	switch appErr.Code {
	case apperrors.ErrCodeNotFound:
		return ExitNotFound
	case apperrors.ErrCodeInvalidInput, apperrors.ErrCodeConflict:
		return ExitInvalidInput
	case apperrors.ErrCodeStartFailed, apperrors.ErrCodePermissionDenied:
		return ExitStartFailed
	case apperrors.ErrCodeTimeout:
		return ExitTimedOut
	case apperrors.ErrCodeCanceled:
		return ExitCanceled
	default:
		return ExitFailed
	}
}

// PrintError writes err to w, as an error response body when asJSON is set.
func PrintError(w io.Writer, err error, asJSON bool) {
	if !asJSON {
		fmt.Fprintln(w, "Error:", err)
		return
	}
	_ = writeJSON(w, apperrors.Wrap(err).ToResponse())
}
