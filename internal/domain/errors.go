package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEntityNotFound    = errors.New("entity not found")
	ErrNotSupported      = errors.New("entity does not support this action")
	ErrUnknownRangeToken = errors.New("unknown range token")
)

// ValidationRule identifies which range-validation rule a request
// violated. The string value doubles as the machine-readable error
// code reported at the transport boundary.
type ValidationRule string

const (
	RuleAtMostOneGroup       ValidationRule = "at_most_one_group"
	RuleAtLeastOneGroup      ValidationRule = "at_least_one_group"
	RuleIncompletePair       ValidationRule = "incomplete_pair"
	RuleNonPositiveDuration  ValidationRule = "non_positive_duration"
	RuleInconsistentTimezone ValidationRule = "inconsistent_timezone"
	RuleNonPositiveRange     ValidationRule = "non_positive_range"
	RuleMalformedValue       ValidationRule = "malformed_value"
)

// ValidationError is a caller-input defect in a range request. It is
// raised before any store is consulted and is never fatal.
type ValidationError struct {
	Rule   ValidationRule
	Fields []string
	Detail string
}

func NewValidationError(rule ValidationRule, detail string, fields ...string) *ValidationError {
	return &ValidationError{Rule: rule, Fields: fields, Detail: detail}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Detail
	}
	return fmt.Sprintf("%s (%s)", e.Detail, strings.Join(e.Fields, ", "))
}

// AsValidationError unwraps err into a *ValidationError if it is one.
func AsValidationError(err error) (*ValidationError, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}

// StoreError scopes an event-store failure to a single entity so the
// caller can report it without aborting sibling lookups.
type StoreError struct {
	EntityID string
	Err      error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("reading events for %s: %v", e.EntityID, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
