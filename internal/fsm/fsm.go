// Package fsm declares the transition tables for every tracked entity.
// Guards and side effects live in the engine services; the tables only
// answer "may transition T fire from state S, and where does it land".
package fsm

import (
	"fmt"
)

// InvalidTransitionError reports a transition attempted from a state that is
// not one of its declared sources. It always names the transition and the
// current state so callers never see a bare "invalid state".
type InvalidTransitionError struct {
	Entity     string
	Transition string
	State      string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition %q for %s in state %q", e.Transition, e.Entity, e.State)
}

// Rule declares the source states and target of one named transition.
type Rule struct {
	Sources []string
	Target  string
}

// Machine is the transition table for one entity kind.
type Machine struct {
	Entity string
	Rules  map[string]Rule
}

// Target resolves the target state for a named transition fired from the
// given state, or an InvalidTransitionError when the transition is unknown
// or the state is not a declared source. Firing a transition twice therefore
// fails on the second call instead of silently re-applying.
func (m Machine) Target(transition, from string) (string, error) {
	rule, ok := m.Rules[transition]
	if !ok {
		return "", &InvalidTransitionError{Entity: m.Entity, Transition: transition, State: from}
	}
	for _, src := range rule.Sources {
		if src == from {
			return rule.Target, nil
		}
	}
	return "", &InvalidTransitionError{Entity: m.Entity, Transition: transition, State: from}
}

// Can reports whether the transition may fire from the given state.
func (m Machine) Can(transition, from string) bool {
	_, err := m.Target(transition, from)
	return err == nil
}
