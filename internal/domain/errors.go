package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across the domain. Services wrap these with
// additional context via fmt.Errorf("...: %w", err); callers match with
// errors.Is.
var (
	// ErrInvalidState means a status literal outside the legal value set
	// was supplied. Checked before any adjacency lookup.
	ErrInvalidState = errors.New("invalid state")

	// ErrIllegalTransition means both states are well-formed but the edge
	// between them is not in the transition table.
	ErrIllegalTransition = errors.New("illegal status transition")

	// ErrNotFound means a referenced entity does not exist.
	ErrNotFound = errors.New("not found")
)

// InvariantViolation reports a metrics record whose counters are negative
// or break the funnel ordering. Rule names the first offending pair, e.g.
// "opened > delivered".
type InvariantViolation struct {
	Rule string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("metrics invariant violated: %s", e.Rule)
}

// IsInvariantViolation reports whether err is (or wraps) an InvariantViolation.
func IsInvariantViolation(err error) bool {
	var iv *InvariantViolation
	return errors.As(err, &iv)
}

// AggregationError wraps a repository or cache failure encountered while
// computing statistics. The underlying cause is preserved for errors.Is/As.
type AggregationError struct {
	Op  string
	Err error
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("aggregation failed in %s: %v", e.Op, e.Err)
}

func (e *AggregationError) Unwrap() error { return e.Err }
