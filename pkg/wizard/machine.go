package wizard

import (
	"context"
	"sync"

	"github.com/dmitrymomot/checkoutkit/pkg/catalog"
	"github.com/dmitrymomot/checkoutkit/pkg/statemachine"
	"github.com/dmitrymomot/checkoutkit/pkg/transition"
)

// Event requests a step change.
type Event string

const (
	EventSelectProject Event = "select_project"
	EventCheckout      Event = "checkout"
	EventBack          Event = "back"
)

func (e Event) String() string {
	return string(e)
}

// Name implements statemachine.Event.
func (e Event) Name() string {
	return string(e)
}

// Payload carries the values an event brings with it. Nil fields are left untouched.
type Payload struct {
	ProjectID    string
	Plan         *catalog.Plan
	BillingCycle catalog.BillingCycle
	Transition   *transition.Verdict
	Coupon       *Coupon
}

// draft is what guards and actions see: the environment and the candidate
// snapshot with the payload already applied.
type draft struct {
	env  Env
	snap *Snapshot
}

// Machine holds the current Snapshot and applies guarded step transitions.
// Transitions are only ever requested explicitly.
type Machine struct {
	mu   sync.RWMutex
	env  Env
	snap Snapshot
	sm   statemachine.StateMachine
}

// NewMachine creates a machine starting at snap with the standard wizard transitions.
func NewMachine(env Env, snap Snapshot) *Machine {
	sm := statemachine.MustNew(snap.Step,
		statemachine.WithTransition(StepProject, StepPlan, EventSelectProject,
			statemachine.WithGuards(guard(hasProject)),
		),
		statemachine.WithTransition(StepPlan, StepCheckout, EventCheckout,
			statemachine.WithGuards(guard(hasPlan), guard(hasAllowedTransition)),
		),
		statemachine.WithTransition(StepCheckout, StepPlan, EventBack,
			statemachine.WithActions(action(clearCheckout)),
		),
		statemachine.WithTransition(StepPlan, StepProject, EventBack,
			statemachine.WithGuards(guard(canPickProject)),
			statemachine.WithActions(action(clearProject)),
		),
	)

	return &Machine{env: env, snap: snap.Clone(), sm: sm}
}

// Snapshot returns a copy of the current snapshot.
func (m *Machine) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snap.Clone()
}

// Step returns the current step.
func (m *Machine) Step() Step {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snap.Step
}

// Env returns the environment the machine evaluates guards against.
func (m *Machine) Env() Env {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.env
}

// SetEnv replaces the environment, e.g. after a project was created.
func (m *Machine) SetEnv(env Env) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.env = env
}

// Fire applies payload to a candidate snapshot and fires event. The
// candidate replaces the snapshot only when a transition accepted it, so a
// rejected payload never leaks into the wizard.
func (m *Machine) Fire(ctx context.Context, event Event, payload Payload) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	candidate := m.snap.Clone()
	payload.apply(&candidate)

	if err := m.sm.Fire(ctx, event, &draft{env: m.env, snap: &candidate}); err != nil {
		return err
	}

	candidate.Step = Step(m.sm.Current().Name())
	m.snap = candidate
	return nil
}

// CanFire reports whether Fire would succeed with the given payload.
func (m *Machine) CanFire(ctx context.Context, event Event, payload Payload) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	candidate := m.snap.Clone()
	payload.apply(&candidate)

	return m.sm.CanFire(ctx, event, &draft{env: m.env, snap: &candidate})
}

// Update mutates the snapshot without changing the step.
func (m *Machine) Update(fn func(s *Snapshot)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	step := m.snap.Step
	fn(&m.snap)
	m.snap.Step = step
}

// Reset replaces the snapshot entirely. A snapshot on a step the wizard does
// not have is refused and the machine is left as it was.
func (m *Machine) Reset(snap Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.sm.Restore(snap.Step); err != nil {
		return err
	}
	m.snap = snap.Clone()
	return nil
}

func (p Payload) apply(s *Snapshot) {
	if p.ProjectID != "" {
		s.ProjectID = p.ProjectID
	}
	if p.Plan != nil {
		plan := *p.Plan
		s.Plan = &plan
		s.PlanType = plan.Token()
	}
	if p.BillingCycle.Valid() {
		s.BillingCycle = p.BillingCycle
	}
	if p.Transition != nil {
		v := *p.Transition
		s.Transition = &v
	}
	if p.Coupon != nil {
		c := *p.Coupon
		s.Coupon = &c
	}
}

func guard(fn func(env Env, candidate Snapshot) bool) statemachine.Guard {
	return func(_ context.Context, _ statemachine.State, _ statemachine.Event, data any) bool {
		d, ok := data.(*draft)
		return ok && fn(d.env, *d.snap)
	}
}

func action(fn func(candidate *Snapshot)) statemachine.Action {
	return func(_ context.Context, _, _ statemachine.State, _ statemachine.Event, data any) error {
		if d, ok := data.(*draft); ok {
			fn(d.snap)
		}
		return nil
	}
}

func hasProject(_ Env, s Snapshot) bool { return s.HasProject() }

func hasPlan(_ Env, s Snapshot) bool { return s.HasPlan() }

func hasAllowedTransition(_ Env, s Snapshot) bool {
	return s.Transition != nil && !s.Transition.IsBlocked() && !s.Transition.IsZero()
}

// An unauthenticated user can never see project selection.
func canPickProject(env Env, _ Snapshot) bool {
	return env.Authenticated && env.ProjectCount > 0
}

func clearCheckout(s *Snapshot) {
	s.Transition = nil
	s.Coupon = nil
	s.Loading = false
}

func clearProject(s *Snapshot) {
	s.ProjectID = ""
}
