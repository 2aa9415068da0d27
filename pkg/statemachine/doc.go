// Package statemachine implements a small, guarded finite state machine.
//
// States and events are anything with a Name. Transitions are registered per
// (from, event) pair; when several share a pair, the first one whose guards
// all pass wins, which lets callers express priority by registration order.
// Actions run in order before the state changes and any action error aborts
// the transition.
//
//	sm := statemachine.MustNew(stepPlan,
//	    statemachine.WithTransition(stepPlan, stepCheckout, eventCheckout,
//	        statemachine.WithGuards(hasPlan),
//	    ),
//	    statemachine.WithTransition(stepCheckout, stepPlan, eventBack,
//	        statemachine.WithActions(clearCheckout),
//	    ),
//	)
//
//	if err := sm.Fire(ctx, eventCheckout, candidate); err != nil {
//	    // statemachine.IsTransitionRejectedError(err) when a guard said no
//	}
//
// Guards and actions receive the data value passed to Fire untouched, so a
// caller can hand them a pointer to a draft it commits only after Fire
// succeeds.
//
// Restore moves the machine to any registered state without firing an event.
// It is meant for rehydrating a machine from persisted or externally supplied
// state.
package statemachine
