package jsonapi

import (
	"errors"
	"fmt"
)

// Error types
var (
	// ErrUnauthorized indicates the caller lacks a required permission
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotImplemented indicates a data manager operation is missing
	ErrNotImplemented = errors.New("not implemented")

	// ErrNoDataManager indicates no data manager is registered for an object
	ErrNoDataManager = errors.New("no data manager for object")

	// ErrObjectNotFound indicates an object was not found
	ErrObjectNotFound = errors.New("object not found")

	// ErrFieldRequired indicates a required field was set to an empty value
	ErrFieldRequired = errors.New("field is required")

	// ErrInvalidValue indicates a value could not be converted for a field
	ErrInvalidValue = errors.New("invalid field value")

	// ErrReadOnly indicates a write to a read-only field
	ErrReadOnly = errors.New("field is read-only")
)

// AccessError is returned when a permission check fails
type AccessError struct {
	Permission Permission
	ObjectID   string
	Op         string
	Reason     string
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("%s on %s denied (%s): %s", e.Op, e.ObjectID, e.Permission, e.Reason)
}

func (e *AccessError) Unwrap() error {
	return ErrUnauthorized
}

// FieldError represents an error raised by a field manager
type FieldError struct {
	Field string
	Op    string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field operation %s failed for field %s: %v", e.Op, e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// ObjectError represents an error related to loading or storing an object
type ObjectError struct {
	UID string
	Op  string
	Err error
}

func (e *ObjectError) Error() string {
	return fmt.Sprintf("object operation %s failed for object %s: %v", e.Op, e.UID, e.Err)
}

func (e *ObjectError) Unwrap() error {
	return e.Err
}
