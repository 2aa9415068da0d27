package statemachine

import (
	"context"
	"fmt"
	"sync"
)

// SimpleStateMachine is a thread-safe in-memory StateMachine.
// Transitions are indexed as [from][event][]Transition.
type SimpleStateMachine struct {
	mu          sync.RWMutex
	initial     State
	current     State
	known       map[string]State
	transitions map[string]map[string][]Transition
}

func newSimpleStateMachine(initial State) *SimpleStateMachine {
	return &SimpleStateMachine{
		initial:     initial,
		current:     initial,
		known:       map[string]State{initial.Name(): initial},
		transitions: make(map[string]map[string][]Transition),
	}
}

func (sm *SimpleStateMachine) Current() State {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.current
}

func (sm *SimpleStateMachine) AddTransition(from, to State, event Event, guards []Guard, actions []Action) error {
	if from == nil || to == nil || event == nil {
		return ErrInvalidTransition
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()

	byEvent, ok := sm.transitions[from.Name()]
	if !ok {
		byEvent = make(map[string][]Transition)
		sm.transitions[from.Name()] = byEvent
	}
	byEvent[event.Name()] = append(byEvent[event.Name()], Transition{
		From:    from,
		To:      to,
		Event:   event,
		Guards:  guards,
		Actions: actions,
	})
	sm.known[from.Name()] = from
	sm.known[to.Name()] = to

	return nil
}

func (sm *SimpleStateMachine) Fire(ctx context.Context, event Event, data any) error {
	if event == nil {
		return ErrInvalidEvent
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()

	t, err := sm.match(ctx, event, data)
	if err != nil {
		return err
	}

	for _, action := range t.Actions {
		if action == nil {
			continue
		}
		if err := action(ctx, sm.current, t.To, event, data); err != nil {
			return fmt.Errorf("statemachine: %s -> %s on %s: %w", sm.current.Name(), t.To.Name(), event.Name(), err)
		}
	}

	sm.current = t.To
	return nil
}

func (sm *SimpleStateMachine) CanFire(ctx context.Context, event Event, data any) bool {
	if event == nil {
		return false
	}

	sm.mu.RLock()
	defer sm.mu.RUnlock()

	_, err := sm.match(ctx, event, data)
	return err == nil
}

// Reset returns the machine to its initial state.
func (sm *SimpleStateMachine) Reset() error {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.current = sm.initial
	return nil
}

// Restore moves the machine to state without running guards or actions.
// The state must be the initial state or appear in a registered transition.
func (sm *SimpleStateMachine) Restore(state State) error {
	if state == nil {
		return ErrInvalidState
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()

	known, ok := sm.known[state.Name()]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownState, state.Name())
	}
	sm.current = known
	return nil
}

// match returns the first transition out of the current state whose guards
// all pass. Callers hold the lock.
func (sm *SimpleStateMachine) match(ctx context.Context, event Event, data any) (*Transition, error) {
	from, name := sm.current.Name(), event.Name()

	candidates := sm.transitions[from][name]
	if len(candidates) == 0 {
		return nil, NewErrNoTransitionAvailable(from, name)
	}

	for i := range candidates {
		if guardsPass(ctx, candidates[i].Guards, sm.current, event, data) {
			return &candidates[i], nil
		}
	}
	return nil, NewErrTransitionRejected(from, name)
}

func guardsPass(ctx context.Context, guards []Guard, from State, event Event, data any) bool {
	for _, g := range guards {
		if g != nil && !g(ctx, from, event, data) {
			return false
		}
	}
	return true
}
