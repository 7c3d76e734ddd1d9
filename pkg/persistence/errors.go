// Package persistence provides standardized error types for storage operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrWorkflowNotFound indicates a workflow was not found by the given identifier.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrTaskNotFound indicates a task was not found by the given identifier.
	ErrTaskNotFound = errors.New("task not found")

	// ErrTriggerNotFound indicates a trigger was not found by the given identifier.
	ErrTriggerNotFound = errors.New("trigger not found")

	// ErrApprovalNotFound indicates an approval request was not found.
	ErrApprovalNotFound = errors.New("approval request not found")

	// ErrSuspensionNotFound indicates no suspension snapshot exists for the approval id.
	ErrSuspensionNotFound = errors.New("suspension not found")

	// ErrInvalidTaskTransition indicates a conditional task update found an
	// unexpected current status.
	ErrInvalidTaskTransition = errors.New("invalid task status transition")

	// ErrAlreadyExists indicates a create collided with an existing entity.
	ErrAlreadyExists = errors.New("entity already exists")
)

// StoreError wraps storage errors with operation and entity context.
type StoreError struct {
	Op     string // Operation being performed (e.g., "GetByID", "Transition")
	Entity string // Entity kind (e.g., "task", "trigger")
	ID     string // Entity ID if applicable
	Err    error  // Underlying error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s operation failed for %s %s: %v", e.Op, e.Entity, e.ID, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewStoreError creates a storage error with context.
func NewStoreError(op, entity, id string, err error) *StoreError {
	return &StoreError{Op: op, Entity: entity, ID: id, Err: err}
}

// IsWorkflowNotFound checks if an error indicates a workflow was not found.
func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

// IsTaskNotFound checks if an error indicates a task was not found.
func IsTaskNotFound(err error) bool {
	return errors.Is(err, ErrTaskNotFound)
}

// IsTriggerNotFound checks if an error indicates a trigger was not found.
func IsTriggerNotFound(err error) bool {
	return errors.Is(err, ErrTriggerNotFound)
}

// IsApprovalNotFound checks if an error indicates an approval request was not found.
func IsApprovalNotFound(err error) bool {
	return errors.Is(err, ErrApprovalNotFound)
}

// IsSuspensionNotFound checks if an error indicates a suspension snapshot was not found.
func IsSuspensionNotFound(err error) bool {
	return errors.Is(err, ErrSuspensionNotFound)
}

// IsInvalidTaskTransition checks if an error indicates a rejected status transition.
func IsInvalidTaskTransition(err error) bool {
	return errors.Is(err, ErrInvalidTaskTransition)
}
