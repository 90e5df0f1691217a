package domain

import (
	"fmt"
	"sort"
)

// Transitions is the adjacency table of a status state machine: each known
// state maps to the set of states it may legally move to. A state present
// with an empty set is terminal. Capability predicates (CanBeSent,
// CanBePaused, ...) are derived from this table so the two cannot drift.
//
// Tables are built once at package init and never mutated afterwards, so
// they are safe for concurrent reads.
type Transitions[S ~string] struct {
	entity string
	edges  map[S]map[S]bool
}

// NewTransitions builds a transition table for the named entity kind.
// Every state that appears only as a target is registered as terminal.
func NewTransitions[S ~string](entity string, edges map[S][]S) Transitions[S] {
	t := Transitions[S]{entity: entity, edges: make(map[S]map[S]bool, len(edges))}
	for from, tos := range edges {
		set := make(map[S]bool, len(tos))
		for _, to := range tos {
			set[to] = true
		}
		t.edges[from] = set
	}
	for _, tos := range edges {
		for _, to := range tos {
			if _, ok := t.edges[to]; !ok {
				t.edges[to] = map[S]bool{}
			}
		}
	}
	return t
}

// Known reports whether s is a legal value for this state machine.
func (t Transitions[S]) Known(s S) bool {
	_, ok := t.edges[s]
	return ok
}

// IsTerminal reports whether s is a known state with no outgoing edges.
func (t Transitions[S]) IsTerminal(s S) bool {
	set, ok := t.edges[s]
	return ok && len(set) == 0
}

// CanTransition reports whether from may legally move to to. Unknown states
// on either side yield false.
func (t Transitions[S]) CanTransition(from, to S) bool {
	set, ok := t.edges[from]
	if !ok || !t.Known(to) {
		return false
	}
	return set[to]
}

// Transition validates the requested move and returns the new state.
// An unknown state on either side fails with ErrInvalidState, independent
// of the adjacency check; a known but disallowed edge fails with
// ErrIllegalTransition. The call itself is side-effect-free: persisting the
// new state and appending a StatusHistoryEntry is the caller's job.
func (t Transitions[S]) Transition(from, to S) (S, error) {
	if !t.Known(from) {
		return from, fmt.Errorf("%s status %q: %w", t.entity, string(from), ErrInvalidState)
	}
	if !t.Known(to) {
		return from, fmt.Errorf("%s status %q: %w", t.entity, string(to), ErrInvalidState)
	}
	if !t.edges[from][to] {
		return from, fmt.Errorf("%s %q -> %q: %w", t.entity, string(from), string(to), ErrIllegalTransition)
	}
	return to, nil
}

// AllowedFrom returns the sorted set of states reachable from s in one step.
func (t Transitions[S]) AllowedFrom(s S) []S {
	set := t.edges[s]
	out := make([]S, 0, len(set))
	for to := range set {
		out = append(out, to)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// States returns all known states, sorted.
func (t Transitions[S]) States() []S {
	out := make([]S, 0, len(t.edges))
	for s := range t.edges {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
