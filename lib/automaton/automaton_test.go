package automaton

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

const (
	initial State = iota + 1
	foo
	bar
)

const (
	next Event = "next"
	back Event = "back"
)

var emptyHandler Handler = func(state *StateHandle, in interface{}) error { return nil }

func newState() *State {
	state := new(State)
	*state = initial
	return state
}

func compilationPanics(t *testing.T, err error, cases ...Transitions) {
	for _, transitions := range cases {
		assert.PanicsWithError(t, err.Error(), func() {
			NewAutomaton(transitions).Compile(newState())
		})
	}
}

func transitionPanics(t *testing.T, err error, cases ...Transitions) {
	for _, transitions := range cases {
		c := NewAutomaton(transitions).Compile(newState())
		assert.PanicsWithError(t, err.Error(), func() {
			_ = c.Transition(next, nil)
		})
	}
}

func TestAutomaton_MissingAt(t *testing.T) {
	compilationPanics(t,
		MissingAt,
		Transitions{next: {{To: foo}}},
	)
}

func TestAutomaton_AmbiguousTransitions(t *testing.T) {
	compilationPanics(t,
		AmbiguousTransitions,
		Transitions{
			next: {
				{At: States{foo, initial}, To: bar},
				{At: States{bar, initial}, To: foo},
			},
		},
	)
}

func TestAutomaton_OkWithoutDo(t *testing.T) {
	compilationPanics(t,
		OkWithoutDo,
		Transitions{next: {{At: States{initial}, Ok: States{foo}}}},
	)
}

func TestAutomaton_OkWithTo(t *testing.T) {
	compilationPanics(t,
		OkWithTo,
		Transitions{next: {{At: States{initial}, To: foo, Ok: States{foo}, Do: emptyHandler}}},
	)
}

func TestAutomaton_EmptyTransition(t *testing.T) {
	compilationPanics(t,
		EmptyTransition,
		Transitions{next: {{At: States{initial}}}},
	)
}

func TestAutomaton_IllegalStateMutation(t *testing.T) {
	transitionPanics(t,
		IllegalStateMutation,
		Transitions{next: {{
			At: States{initial},
			Do: func(state *StateHandle, in interface{}) error {
				state.Set(foo)
				return nil
			},
		}}},
		Transitions{next: {{
			At: States{initial},
			Ok: States{foo},
			Do: func(state *StateHandle, in interface{}) error {
				state.Set(bar)
				return nil
			},
		}}},
	)
}

func TestAutomaton_MultipleStateMutations(t *testing.T) {
	transitionPanics(t,
		MultipleStateMutations,
		Transitions{next: {{
			At: States{initial},
			Ok: States{foo, bar},
			Do: func(state *StateHandle, in interface{}) error {
				state.Set(foo)
				state.Set(bar)
				return nil
			},
		}}},
	)
}

func TestAutomaton_UnexpectedMutatedState(t *testing.T) {
	transitionPanics(t,
		UnexpectedMutatedState,
		Transitions{next: {{
			At: States{initial},
			Ok: States{foo},
			Do: func(state *StateHandle, in interface{}) error {
				state.Set(foo)
				state.Is(initial)
				return nil
			},
		}}},
	)
}

func TestAutomaton_NonTriggeringState(t *testing.T) {
	transitionPanics(t,
		NonTriggeringState,
		Transitions{next: {{
			At: States{initial},
			Do: func(state *StateHandle, in interface{}) error {
				state.Is(foo)
				return nil
			},
		}}},
	)
}

func TestAutomaton_OkWithoutMutation(t *testing.T) {
	transitionPanics(t,
		OkWithoutMutation,
		Transitions{next: {{At: States{initial}, Ok: States{foo}, Do: emptyHandler}}},
	)
}

func TestAutomaton_NewStateWithError(t *testing.T) {
	transitionPanics(t,
		NewStateWithError,
		Transitions{next: {{
			At: States{initial},
			Ok: States{foo},
			Do: func(state *StateHandle, in interface{}) error {
				state.Set(foo)
				return errors.New("fail")
			},
		}}},
	)
}

func TestCompiledAutomaton_ErrorKeepsState(t *testing.T) {
	fail := errors.New("fail")
	state := newState()
	c := NewAutomaton(Transitions{next: {{
		At: States{initial},
		To: foo,
		Do: func(state *StateHandle, in interface{}) error { return fail },
	}}}).Compile(state)
	assert.ErrorIs(t, c.Transition(next, nil), fail)
	assert.Equal(t, initial, *state)
}

func TestCompiledAutomaton_BadEventAndState(t *testing.T) {
	state := newState()
	c := NewAutomaton(Transitions{next: {{At: States{foo}, To: bar}}}).Compile(state)
	assert.ErrorIs(t, c.Transition(back, nil), ErrBadEvent)
	assert.ErrorIs(t, c.Transition(next, nil), ErrBadState)
	assert.Equal(t, initial, *state)
}

func TestCompiledAutomaton_Transition(t *testing.T) {
	var path []int
	step := func(breadcrumb int) { path = append(path, breadcrumb) }
	flag := false

	current := newState()
	c := NewAutomaton(Transitions{
		next: {
			{
				At: States{initial},
				To: foo,
				Do: func(state *StateHandle, in interface{}) error {
					step(in.(int))
					return nil
				},
			},
			{
				At: States{foo},
				Ok: States{initial, bar},
				Do: func(state *StateHandle, in interface{}) error {
					if !flag {
						step(2)
						state.Set(initial)
						flag = true
					} else {
						step(3)
						state.Set(bar)
					}
					return nil
				},
			},
		},
		back: {
			{
				At: States{bar},
				Do: func(state *StateHandle, in interface{}) error {
					assert.True(t, state.Is(bar))
					step(4)
					return nil
				},
			},
		},
	}).Compile(current)

	assert.Nil(t, c.Transition(next, 1))
	assert.Nil(t, c.Transition(next, nil))
	assert.Nil(t, c.Transition(next, 1))
	assert.Nil(t, c.Transition(next, nil))
	assert.Nil(t, c.Transition(back, nil))

	assert.EqualValues(t, []int{1, 2, 1, 3, 4}, path)
	assert.Equal(t, bar, *current)
}
