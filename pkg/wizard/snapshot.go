package wizard

import (
	"fmt"

	"github.com/dmitrymomot/checkoutkit/pkg/catalog"
	"github.com/dmitrymomot/checkoutkit/pkg/transition"
)

// Step is a wizard screen.
type Step string

const (
	StepProject  Step = "project"
	StepPlan     Step = "plan"
	StepCheckout Step = "checkout"
)

// ParseStep parses a step token. The empty string means "no hint".
func ParseStep(s string) (Step, error) {
	switch Step(s) {
	case "":
		return "", nil
	case StepProject, StepPlan, StepCheckout:
		return Step(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStep, s)
	}
}

func (s Step) String() string {
	return string(s)
}

// Name implements statemachine.State.
func (s Step) Name() string {
	return string(s)
}

// Env is what the wizard knows about the user when it (re)materializes.
type Env struct {
	Authenticated   bool
	ProjectCount    int
	ActiveProjectID string // project the user is working in, if any
}

// Hint is the externally supplied starting point, e.g. from a deep link.
type Hint struct {
	Step         Step
	ProjectID    string
	PlanType     string
	BillingCycle catalog.BillingCycle
}

// Coupon is a server-validated activation code. PlanName is the plan the
// coupon activates, which may differ from the displayed plan.
type Coupon struct {
	Code     string `json:"code"`
	PlanName string `json:"plan_name,omitempty"`
}

// Snapshot is the single source of truth for where the user is.
type Snapshot struct {
	Step         Step                 `json:"step"`
	ProjectID    string               `json:"project_id,omitempty"`
	Plan         *catalog.Plan        `json:"plan,omitempty"`
	PlanType     string               `json:"plan_type,omitempty"` // unresolved plan token
	BillingCycle catalog.BillingCycle `json:"billing_cycle"`
	Transition   *transition.Verdict  `json:"transition,omitempty"`
	Coupon       *Coupon              `json:"coupon,omitempty"`
	Loading      bool                 `json:"loading,omitempty"`
}

// HasProject reports whether a project is selected.
func (s Snapshot) HasProject() bool {
	return s.ProjectID != ""
}

// HasPlan reports whether a plan is resolved.
func (s Snapshot) HasPlan() bool {
	return s.Plan != nil
}

// Clone returns a deep copy.
func (s Snapshot) Clone() Snapshot {
	out := s
	if s.Plan != nil {
		p := *s.Plan
		out.Plan = &p
	}
	if s.Transition != nil {
		v := *s.Transition
		out.Transition = &v
	}
	if s.Coupon != nil {
		c := *s.Coupon
		out.Coupon = &c
	}
	return out
}

// PlanToken returns the plan-type token of the resolved plan, or the
// unresolved token from the hint.
func (s Snapshot) PlanToken() string {
	if s.Plan != nil {
		return s.Plan.Token()
	}
	return s.PlanType
}
