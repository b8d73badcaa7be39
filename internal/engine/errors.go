package engine

import (
	"errors"
	"fmt"
)

// VerificationError reports the first task unit that failed pre-flight
// verification. When it is returned no task has been invoked.
type VerificationError struct {
	// Code identifies the failure category.
	Code VerificationErrorCode

	// Task is the task name as written in the expression.
	Task string

	// Path is the task unit directory that was checked.
	Path string

	// Expected is the registry fingerprint (mismatch only).
	Expected string

	// Actual is the computed fingerprint (mismatch only). Empty when the
	// directory holds no content.
	Actual string

	// Err is the underlying cause, if any.
	Err error
}

// VerificationErrorCode categorizes verification failures.
type VerificationErrorCode string

const (
	// ErrCodeMissingDirectory indicates the task unit directory does not exist.
	ErrCodeMissingDirectory VerificationErrorCode = "MISSING_DIRECTORY"

	// ErrCodeMissingFingerprint indicates the registry has no entry for the task.
	ErrCodeMissingFingerprint VerificationErrorCode = "MISSING_FINGERPRINT"

	// ErrCodeFingerprintMismatch indicates the contents changed since registration.
	ErrCodeFingerprintMismatch VerificationErrorCode = "FINGERPRINT_MISMATCH"

	// ErrCodeFingerprintFailed indicates the fingerprint could not be computed.
	ErrCodeFingerprintFailed VerificationErrorCode = "FINGERPRINT_FAILED"
)

// Error implements the error interface.
func (e *VerificationError) Error() string {
	switch e.Code {
	case ErrCodeMissingDirectory:
		return fmt.Sprintf("%s: task %q: directory %s not found", e.Code, e.Task, e.Path)
	case ErrCodeMissingFingerprint:
		return fmt.Sprintf("%s: task %q: no registered fingerprint", e.Code, e.Task)
	case ErrCodeFingerprintMismatch:
		actual := e.Actual
		if actual == "" {
			actual = "<no content>"
		}
		return fmt.Sprintf("%s: task %q: expected %s, got %s", e.Code, e.Task, e.Expected, actual)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: task %q: %v", e.Code, e.Task, e.Err)
	}
	return fmt.Sprintf("%s: task %q", e.Code, e.Task)
}

// Unwrap returns the underlying cause.
func (e *VerificationError) Unwrap() error {
	return e.Err
}

// IsVerificationError returns true if err is or wraps a VerificationError.
func IsVerificationError(err error) bool {
	var ve *VerificationError
	return errors.As(err, &ve)
}

// VerificationCode extracts the code of a wrapped VerificationError.
func VerificationCode(err error) (VerificationErrorCode, bool) {
	var ve *VerificationError
	if errors.As(err, &ve) {
		return ve.Code, true
	}
	return "", false
}
