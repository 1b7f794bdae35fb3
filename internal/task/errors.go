package task

import "errors"

var (
	// ErrServerNotFound is returned by create/update when the referenced
	// server id does not resolve in the catalog.
	ErrServerNotFound = errors.New("server not found")

	// ErrTaskNotFound is returned by update when no task has the given id.
	// Delete deliberately signals a missing id with (false, nil) instead:
	// deleting something already gone is a benign no-op for the caller.
	ErrTaskNotFound = errors.New("reboot task not found")

	// ErrCannotDeleteCompleted is returned by delete for completed tasks.
	ErrCannotDeleteCompleted = errors.New("cannot delete completed tasks")

	// ErrTaskCompleted is returned by update for completed tasks. Completed
	// tasks are historical records and stay immutable at the store boundary,
	// independent of any caller-side form state.
	ErrTaskCompleted = errors.New("cannot modify completed tasks")
)
