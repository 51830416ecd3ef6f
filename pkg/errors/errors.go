package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code for stable testing
type ErrorCode string

// Error codes for different error categories
const (
	// General errors
	ErrUnknown        ErrorCode = "UNKNOWN"
	ErrInternal       ErrorCode = "INTERNAL"
	ErrInvalidInput   ErrorCode = "INVALID_INPUT"
	ErrNotImplemented ErrorCode = "NOT_IMPLEMENTED"

	// Engine errors
	ErrUnitFailure        ErrorCode = "UNIT_FAILURE"
	ErrAggregatedFailures ErrorCode = "AGGREGATED_FAILURES"
	ErrGroupTimeout       ErrorCode = "GROUP_TIMEOUT"
	ErrGroupPolicy        ErrorCode = "GROUP_POLICY"
	ErrPipelineReused     ErrorCode = "PIPELINE_REUSED"
	ErrPipelineEmpty      ErrorCode = "PIPELINE_EMPTY"

	// Plan errors
	ErrPlanLoad    ErrorCode = "PLAN_LOAD"
	ErrPlanParse   ErrorCode = "PLAN_PARSE"
	ErrPlanInvalid ErrorCode = "PLAN_INVALID"

	// Command unit errors
	ErrCommandStart ErrorCode = "COMMAND_START"
	ErrCommandExit  ErrorCode = "COMMAND_EXIT"

	// Report errors
	ErrReportWrite ErrorCode = "REPORT_WRITE"
)

// StagehandError represents a structured error with code and details
type StagehandError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Wrapped error
}

// Error implements the error interface
func (e *StagehandError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *StagehandError) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is interface
func (e *StagehandError) Is(target error) bool {
	var targetErr *StagehandError
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

// New creates a new StagehandError with the given code and message
func New(code ErrorCode, message string) *StagehandError {
	return &StagehandError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Newf creates a new StagehandError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *StagehandError {
	return &StagehandError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error with a StagehandError
func Wrap(err error, code ErrorCode, message string) *StagehandError {
	if err == nil {
		return nil
	}
	return &StagehandError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *StagehandError {
	if err == nil {
		return nil
	}
	return &StagehandError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// WithDetail adds a detail to the error
func (e *StagehandError) WithDetail(key string, value interface{}) *StagehandError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithDetails adds multiple details to the error
func (e *StagehandError) WithDetails(details map[string]interface{}) *StagehandError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// IsErrorCode checks if an error has a specific error code
func IsErrorCode(err error, code ErrorCode) bool {
	var shErr *StagehandError
	if errors.As(err, &shErr) {
		return shErr.Code == code
	}
	return false
}

// GetErrorCode returns the error code from an error, or ErrUnknown if not a StagehandError
func GetErrorCode(err error) ErrorCode {
	var shErr *StagehandError
	if errors.As(err, &shErr) {
		return shErr.Code
	}
	return ErrUnknown
}

// GetErrorDetails returns the details from an error, or nil if not a StagehandError
func GetErrorDetails(err error) map[string]interface{} {
	var shErr *StagehandError
	if errors.As(err, &shErr) {
		return shErr.Details
	}
	return nil
}
