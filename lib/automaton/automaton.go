// Package automaton declares finite-state machines as tables of transitions.
//
// An Automaton is compiled against a pointer to its state.
// Definition mistakes panic at compile time,
// so a table that compiles can only fail at runtime
// by being asked for a transition it does not define.
package automaton

import "errors"

var (
	AmbiguousTransitions = errors.New("ambiguous definition, cannot determine correct transition path")
	ErrBadEvent          = errors.New("event not defined in automaton")
	ErrBadState          = errors.New("event not defined for the current state")
)

// Event triggers a transition.
type Event string

// Transitions maps each event to the transitions it may trigger.
type Transitions map[Event][]Transition

type Automaton struct {
	Transitions Transitions
}

type CompiledAutomaton struct {
	state       *State
	transitions map[Event]map[State]func(interface{}) error
}

func NewAutomaton(transitions Transitions) Automaton {
	return Automaton{Transitions: transitions}
}

// Compile binds the automaton to a state.
// The automaton does not synchronize access to the state,
// callers must serialize calls to Transition and reads of the state.
func (automaton Automaton) Compile(state *State) *CompiledAutomaton {
	compiled := make(map[Event]map[State]func(interface{}) error, len(automaton.Transitions))
	for event, transitions := range automaton.Transitions {
		handlers := map[State]func(interface{}) error{}
		for _, transition := range transitions {
			invoke := transition.compile(state)
			for _, at := range transition.At {
				if _, has := handlers[at]; has {
					panic(AmbiguousTransitions)
				}
				handlers[at] = invoke
			}
		}
		compiled[event] = handlers
	}
	return &CompiledAutomaton{
		state:       state,
		transitions: compiled,
	}
}

// Transition applies the transition for event in the current state.
// It returns ErrBadEvent or ErrBadState when there is none,
// otherwise the error of the transition's Do handler.
func (automaton *CompiledAutomaton) Transition(event Event, in interface{}) error {
	sub, ok := automaton.transitions[event]
	if !ok {
		return ErrBadEvent
	}
	handler, ok := sub[*automaton.state]
	if !ok {
		return ErrBadState
	}
	return handler(in)
}
