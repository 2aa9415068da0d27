package checkout

import (
	"fmt"

	"github.com/dmitrymomot/checkoutkit/pkg/catalog"
	"github.com/dmitrymomot/checkoutkit/pkg/pricing"
	"github.com/dmitrymomot/checkoutkit/pkg/transition"
	"github.com/dmitrymomot/checkoutkit/pkg/wizard"
)

// PromptKind tells the presentation layer which dialog to render.
type PromptKind string

const (
	PromptAuthRequired    PromptKind = "auth_required"
	PromptCreateProject   PromptKind = "create_project"
	PromptSelectProject   PromptKind = "select_project"
	PromptBlocked         PromptKind = "blocked"
	PromptConfirmDeferred PromptKind = "confirm_deferred"
)

// UserPrompt is a declarative request for user attention. Resolve is set only
// for prompts that need an answer; presentation calls it with the user's choice.
type UserPrompt struct {
	Kind    PromptKind           `json:"kind"`
	Message string               `json:"message"`
	Reason  transition.Reason    `json:"reason,omitempty"`
	Resolve func(confirmed bool) `json:"-"`
}

// NeedsAnswer reports whether the prompt waits for confirm or cancel.
func (p *UserPrompt) NeedsAnswer() bool {
	return p != nil && p.Resolve != nil
}

// Outcome is the result of a subscribe request.
type Outcome struct {
	Snapshot wizard.Snapshot    `json:"snapshot"`
	Verdict  transition.Verdict `json:"verdict"`
	Prompt   *UserPrompt        `json:"prompt,omitempty"`
	Advanced bool               `json:"advanced"`
}

// Completion reports a committed checkout.
type Completion struct {
	Kind         transition.Kind      `json:"kind"`
	ProjectID    string               `json:"project_id"`
	PlanName     string               `json:"plan_name"`
	BillingCycle catalog.BillingCycle `json:"billing_cycle"`
	CheckoutURL  string               `json:"checkout_url,omitempty"`
}

// State is a read-only view of a wizard session for rendering.
type State struct {
	Snapshot        wizard.Snapshot     `json:"snapshot"`
	Query           string              `json:"query"`
	Authenticated   bool                `json:"authenticated"`
	Projects        []catalog.Project   `json:"projects,omitempty"`
	Plans           []catalog.Plan      `json:"plans,omitempty"`
	Quote           *pricing.PriceQuote `json:"quote,omitempty"`
	EstimatePending bool                `json:"estimate_pending"`
	EstimateError   string              `json:"estimate_error,omitempty"`
	CanCommit       bool                `json:"can_commit"`
	Committing      bool                `json:"committing"`
	Prompt          *UserPrompt         `json:"prompt,omitempty"`
}

const (
	msgAuthRequired  = "Sign in to subscribe to a plan."
	msgCreateProject = "Create a project first. Your plan selection is saved."
	msgSelectProject = "Select the project this subscription is for."
)

func deferredMessage(plan catalog.Plan, cycle catalog.BillingCycle) string {
	return fmt.Sprintf(
		"Switching to %s (%s, %s) takes effect at your next renewal. Your current plan stays active until then.",
		plan.Name, cycle, plan.Price(cycle),
	)
}
