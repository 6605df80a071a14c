package ledger

import "errors"

var (
	// ErrNodeNotFound is returned when a migration or dependency is not in the graph.
	ErrNodeNotFound = errors.New("migration not found")
	// ErrCircularDependency is returned when dependencies form a cycle.
	ErrCircularDependency = errors.New("circular dependency")
	// ErrInvalidGraph covers structural problems such as duplicate keys or multiple roots.
	ErrInvalidGraph = errors.New("invalid migration graph")
	// ErrConflictingLeaves is returned when an app has more than one leaf migration.
	ErrConflictingLeaves = errors.New("conflicting migrations detected")
	// ErrInconsistentHistory is returned when a recorded migration has unapplied dependencies.
	ErrInconsistentHistory = errors.New("inconsistent migration history")
	// ErrIrreversible is returned when a backwards plan contains an irreversible operation.
	ErrIrreversible = errors.New("migration is not reversible")
	// ErrInvalidOperation is returned when an operation cannot be applied to the current state.
	ErrInvalidOperation = errors.New("invalid operation")
)
