package trigger

import (
	"errors"
	"fmt"
)

// RequestError represents a trigger request rejected at submission time.
//
// Rejected requests never enter the pending queue; the caller is
// responsible for resubmission with a well-formed target.
type RequestError struct {
	// Code identifies the rejection category.
	Code RequestErrorCode

	// Message is a human-readable description.
	Message string

	// Raw is the offending submission payload.
	Raw any
}

// RequestErrorCode categorizes submission rejections.
type RequestErrorCode string

const (
	// ErrCodeUnrecognizedTarget indicates the target form is not one of
	// sample index, absolute seconds, or (seconds, fraction) pair.
	ErrCodeUnrecognizedTarget RequestErrorCode = "UNRECOGNIZED_TARGET"

	// ErrCodeNegativeTarget indicates a numeric target below zero.
	ErrCodeNegativeTarget RequestErrorCode = "NEGATIVE_TARGET"
)

// Error implements the error interface.
func (e *RequestError) Error() string {
	return fmt.Sprintf("%s: %s (raw=%v)", e.Code, e.Message, e.Raw)
}

// IsUnrecognizedTarget returns true if the error is an unrecognized-target
// rejection. Uses errors.As to handle wrapped errors.
func IsUnrecognizedTarget(err error) bool {
	var re *RequestError
	if errors.As(err, &re) {
		return re.Code == ErrCodeUnrecognizedTarget
	}
	return false
}

// NewUnrecognizedTargetError creates a RequestError for a target form the
// parser does not accept.
func NewUnrecognizedTargetError(raw any) *RequestError {
	return &RequestError{
		Code:    ErrCodeUnrecognizedTarget,
		Message: fmt.Sprintf("target form %T is not a sample index, seconds value, or (sec, frac) pair", raw),
		Raw:     raw,
	}
}

// NewNegativeTargetError creates a RequestError for a negative numeric target.
func NewNegativeTargetError(raw any) *RequestError {
	return &RequestError{
		Code:    ErrCodeNegativeTarget,
		Message: "target must not be negative",
		Raw:     raw,
	}
}
