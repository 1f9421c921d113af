package automaton

import "errors"

var (
	OkWithTo          = errors.New("cannot have Ok and To within the same transition")
	OkWithoutDo       = errors.New("cannot have Ok without a Do handler")
	EmptyTransition   = errors.New("cannot have an empty transition")
	MissingAt         = errors.New("missing definition of triggering states in At")
	OkWithoutMutation = errors.New("specified Ok but did not mutate state in Do")
	NewStateWithError = errors.New("it is illegal to mutate the state when an error occurred")
)

// Handler runs the side effects of a transition.
// The value passed to CompiledAutomaton.Transition is handed through as in.
type Handler func(state *StateHandle, in interface{}) error

// Transition describes what happens when an event occurs in one of the states At.
// To moves to a fixed state once Do succeeded.
// Ok lists the states Do may choose from with StateHandle.Set,
// in which case Do must choose one unless it fails.
// A transition without To and Ok keeps the current state.
type Transition struct {
	At States
	Ok States
	To State
	Do Handler
}

func (transition Transition) compile(state *State) func(in interface{}) error {
	mustMutateState := transition.Ok != nil
	if transition.Ok != nil && transition.To != NoState {
		panic(OkWithTo)
	}
	if transition.Ok != nil && transition.Do == nil {
		panic(OkWithoutDo)
	}
	if transition.Do == nil && transition.To == NoState {
		panic(EmptyTransition)
	}
	if len(transition.At) == 0 {
		panic(MissingAt)
	}

	return func(in interface{}) (err error) {
		handle := newStateHandle(state, transition.At, transition.Ok)
		if transition.Do != nil {
			err = transition.Do(handle, in)
		}
		if err != nil {
			if handle.IsMutated() {
				panic(NewStateWithError)
			}
			return
		}
		if mustMutateState && !handle.IsMutated() {
			panic(OkWithoutMutation)
		}
		if transition.To != NoState {
			*state = transition.To
		}
		return
	}
}
