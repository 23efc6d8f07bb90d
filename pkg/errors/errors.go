package errors

import (
	"fmt"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeMapping represents attribute/value mapping errors
	ErrorTypeMapping ErrorType = "mapping"
	// ErrorTypeIntegrity represents integrity constraint violations
	ErrorTypeIntegrity ErrorType = "integrity"
	// ErrorTypeStorage represents store connector failures
	ErrorTypeStorage ErrorType = "storage"
	// ErrorTypeList represents malformed list chains
	ErrorTypeList ErrorType = "list"
	// ErrorTypeUnpersisted represents references to instances that never reached the store
	ErrorTypeUnpersisted ErrorType = "unpersisted"
	// ErrorTypeState represents API misuse (calls made in the wrong state)
	ErrorTypeState ErrorType = "state"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
)

// BaseError is the base error type with common fields
type BaseError struct {
	Type      ErrorType
	Message   string
	Timestamp time.Time
	Err       error // Wrapped error
}

// Error implements the error interface
func (e *BaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error for error unwrapping
func (e *BaseError) Unwrap() error {
	return e.Err
}

// Kind returns the error category. It lets IsErrorType see through the typed
// errors below, which embed *BaseError.
func (e *BaseError) Kind() ErrorType {
	return e.Type
}

// NewBaseError creates a new base error
func NewBaseError(errType ErrorType, message string, err error) *BaseError {
	return &BaseError{
		Type:      errType,
		Message:   message,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// Mapping Errors

// ErrInvalidFieldMapping is returned when a field declaration cannot be mapped
type ErrInvalidFieldMapping struct {
	*BaseError
	EntityType string
	Field      string
}

func NewInvalidFieldMapping(entityType, field, reason string) *ErrInvalidFieldMapping {
	return &ErrInvalidFieldMapping{
		BaseError:  NewBaseError(ErrorTypeMapping, fmt.Sprintf("invalid mapping of %s.%s: %s", entityType, field, reason), nil),
		EntityType: entityType,
		Field:      field,
	}
}

// ErrEntityReconstruction is returned when an entity cannot be built from axioms
type ErrEntityReconstruction struct {
	*BaseError
	Identifier string
	Attribute  string
}

func NewEntityReconstruction(identifier, attribute, reason string, err error) *ErrEntityReconstruction {
	msg := fmt.Sprintf("unable to reconstruct entity %s", identifier)
	if attribute != "" {
		msg = fmt.Sprintf("unable to reconstruct attribute %s of entity %s", attribute, identifier)
	}
	if reason != "" {
		msg += ": " + reason
	}
	return &ErrEntityReconstruction{
		BaseError:  NewBaseError(ErrorTypeMapping, msg, err),
		Identifier: identifier,
		Attribute:  attribute,
	}
}

// ErrEntityDeconstruction is returned when an entity cannot be turned into axioms
type ErrEntityDeconstruction struct {
	*BaseError
	Identifier string
	Attribute  string
}

func NewEntityDeconstruction(identifier, attribute, reason string, err error) *ErrEntityDeconstruction {
	msg := fmt.Sprintf("unable to deconstruct entity %s", identifier)
	if attribute != "" {
		msg = fmt.Sprintf("unable to deconstruct attribute %s of entity %s", attribute, identifier)
	}
	if reason != "" {
		msg += ": " + reason
	}
	return &ErrEntityDeconstruction{
		BaseError:  NewBaseError(ErrorTypeMapping, msg, err),
		Identifier: identifier,
		Attribute:  attribute,
	}
}

// Integrity Errors

// ErrIntegrityConstraintViolated is returned when a required value is missing
type ErrIntegrityConstraintViolated struct {
	*BaseError
	Identifier string
	Attribute  string
}

func NewIntegrityConstraintViolated(identifier, attribute string) *ErrIntegrityConstraintViolated {
	return &ErrIntegrityConstraintViolated{
		BaseError:  NewBaseError(ErrorTypeIntegrity, fmt.Sprintf("missing value of required attribute %s of instance %s", attribute, identifier), nil),
		Identifier: identifier,
		Attribute:  attribute,
	}
}

// ErrCardinalityConstraintViolated is returned when a plural attribute's size is out of bounds
type ErrCardinalityConstraintViolated struct {
	*BaseError
	Identifier string
	Attribute  string
	Min        int
	Max        int
	Actual     int
}

func NewCardinalityConstraintViolated(identifier, attribute string, min, max, actual int) *ErrCardinalityConstraintViolated {
	bound := fmt.Sprintf("at least %d", min)
	if max >= 0 {
		bound = fmt.Sprintf("between %d and %d", min, max)
	}
	return &ErrCardinalityConstraintViolated{
		BaseError:  NewBaseError(ErrorTypeIntegrity, fmt.Sprintf("attribute %s of instance %s has %d values, expected %s", attribute, identifier, actual, bound), nil),
		Identifier: identifier,
		Attribute:  attribute,
		Min:        min,
		Max:        max,
		Actual:     actual,
	}
}

// Storage Errors

// ErrStorageAccess is returned when the store connector fails
type ErrStorageAccess struct {
	*BaseError
	Operation string
}

func NewStorageAccess(operation string, err error) *ErrStorageAccess {
	return &ErrStorageAccess{
		BaseError: NewBaseError(ErrorTypeStorage, fmt.Sprintf("store operation failed: %s", operation), err),
		Operation: operation,
	}
}

// List Errors

// ErrListProcessing is returned when a list chain in the store is malformed
type ErrListProcessing struct {
	*BaseError
	Node string
}

func NewListProcessing(node, reason string) *ErrListProcessing {
	return &ErrListProcessing{
		BaseError: NewBaseError(ErrorTypeList, reason, nil),
		Node:      node,
	}
}

// Unpersisted Errors

// ErrUnpersistedChange is returned when a referenced instance was neither persisted nor cascaded
type ErrUnpersistedChange struct {
	*BaseError
	Identifier string
	Context    string
}

func NewUnpersistedChange(identifier, context string) *ErrUnpersistedChange {
	return &ErrUnpersistedChange{
		BaseError:  NewBaseError(ErrorTypeUnpersisted, fmt.Sprintf("encountered an instance that was neither persisted nor marked as cascade for persist: %s", identifier), nil),
		Identifier: identifier,
		Context:    context,
	}
}

// State Errors

// ErrIllegalState is returned when an operation is called in the wrong state
type ErrIllegalState struct {
	*BaseError
	Operation string
}

func NewIllegalState(operation, reason string) *ErrIllegalState {
	return &ErrIllegalState{
		BaseError: NewBaseError(ErrorTypeState, reason, nil),
		Operation: operation,
	}
}

// Config Errors

// ErrConfigValidationFailed is returned when configuration validation fails
type ErrConfigValidationFailed struct {
	*BaseError
	Field  string
	Reason string
}

func NewConfigValidationFailed(field, reason string) *ErrConfigValidationFailed {
	return &ErrConfigValidationFailed{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("config validation failed: %s - %s", field, reason), nil),
		Field:     field,
		Reason:    reason,
	}
}

// ErrConfigMissingRequired is returned when a required config value is missing
type ErrConfigMissingRequired struct {
	*BaseError
	Field string
}

func NewConfigMissingRequired(field string) *ErrConfigMissingRequired {
	return &ErrConfigMissingRequired{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("missing required config: %s", field), nil),
		Field:     field,
	}
}

// Helper functions

// IsErrorType checks if an error is of a specific type
func IsErrorType(err error, errType ErrorType) bool {
	if err == nil {
		return false
	}
	if kinded, ok := err.(interface{ Kind() ErrorType }); ok && kinded.Kind() == errType {
		return true
	}
	// Check wrapped errors
	if wrapped, ok := err.(interface{ Unwrap() error }); ok {
		return IsErrorType(wrapped.Unwrap(), errType)
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			if IsErrorType(e, errType) {
				return true
			}
		}
	}
	if group, ok := err.(interface{ Errors() []error }); ok {
		for _, e := range group.Errors() {
			if IsErrorType(e, errType) {
				return true
			}
		}
	}
	return false
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	// Only connector failures may succeed on a second attempt; callers decide.
	return IsErrorType(err, ErrorTypeStorage)
}
