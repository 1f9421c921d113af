package automaton

import "errors"

var (
	IllegalStateMutation   = errors.New("mutating state is not allowed here")
	MultipleStateMutations = errors.New("mutating the state more than once is illegal")
	UnexpectedMutatedState = errors.New("did not expect a mutated state")
	NonTriggeringState     = errors.New("state is not a state which could have triggered the transition")
)

// State represents the state of an automaton.
// New automatons should use this type to represent their states.
// A state should not have the value 0. Define states starting from iota + 1.
// The zero value is reserved for detecting an invalid state.
type State int

// NoState represents an invalid, unset state.
var NoState = State(0)

func (s State) Is(state State) bool {
	return s == state
}

func (s State) IsAny(states ...State) bool {
	for _, other := range states {
		if s.Is(other) {
			return true
		}
	}
	return false
}

type States []State

func (s States) Contains(state State) bool {
	return state.IsAny(s...)
}

// StateHandle is a handle for transitioning to a new state from within a Do handler.
// Changing the state more than once is an error and will trigger a panic.
// The new state must be one of the states in the Ok field of the transition.
type StateHandle struct {
	state    *State
	original State
	at       States
	target   States
	mutated  bool
}

func newStateHandle(state *State, at States, target States) *StateHandle {
	return &StateHandle{
		state:    state,
		original: *state,
		at:       at,
		target:   target,
	}
}

// Set sets the new state.
func (h *StateHandle) Set(newState State) {
	if !h.target.Contains(newState) {
		panic(IllegalStateMutation)
	}
	if h.mutated {
		panic(MultipleStateMutations)
	}
	h.mutated = true
	*h.state = newState
}

// IsMutated returns if the underlying state was mutated by Set.
func (h *StateHandle) IsMutated() bool {
	return h.mutated
}

// Is checks if the transition was triggered in the given state.
// The state must be one of the states in the At field of the transition
// and it is an error to call this method after mutating the state.
func (h *StateHandle) Is(state State) bool {
	if h.mutated {
		panic(UnexpectedMutatedState)
	}
	if !h.at.Contains(state) {
		panic(NonTriggeringState)
	}
	return h.original.Is(state)
}
