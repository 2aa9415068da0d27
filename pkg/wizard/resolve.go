package wizard

import (
	"github.com/dmitrymomot/checkoutkit/pkg/catalog"
	"github.com/dmitrymomot/checkoutkit/pkg/transition"
)

// Resolve materializes a Snapshot from the environment and an external hint.
// A checkout snapshot without a resolved plan is returned with Loading set;
// complete it with ResolveDeepLink.
func Resolve(env Env, hint Hint) Snapshot {
	snap := Snapshot{
		Step:         resolveStep(env, hint),
		ProjectID:    hint.ProjectID,
		PlanType:     hint.PlanType,
		BillingCycle: hint.BillingCycle,
	}

	if !snap.BillingCycle.Valid() {
		snap.BillingCycle = catalog.Monthly
	}

	// An unauthenticated user has no project context at all.
	if !env.Authenticated {
		snap.ProjectID = ""
	} else if snap.ProjectID == "" && snap.Step != StepProject {
		snap.ProjectID = env.ActiveProjectID
	}

	if snap.Step == StepCheckout {
		snap.Loading = true
	}

	return snap
}

func resolveStep(env Env, hint Hint) Step {
	if hint.Step != "" {
		if !env.Authenticated && hint.Step == StepProject {
			return StepPlan
		}
		return hint.Step
	}

	switch {
	case !env.Authenticated:
		return StepPlan
	case env.ProjectCount == 0:
		return StepPlan
	case hint.ProjectID == "":
		return StepProject
	case hint.PlanType == "":
		return StepProject
	case hint.BillingCycle.Valid():
		return StepCheckout
	default:
		return StepPlan
	}
}

// ResolveDeepLink completes a Loading snapshot by matching its plan-type token
// against the catalog. Deep-link entries always represent an upgrade-intent
// change, so the transition context is set to Upgrade unconditionally.
//
// When the token matches no plan the snapshot falls back to the plan step and
// ErrUnknownPlanType is returned.
func ResolveDeepLink(snap Snapshot, cat *catalog.Catalog) (Snapshot, error) {
	if !snap.Loading {
		return snap, ErrNothingToLoad
	}

	out := snap.Clone()
	out.Loading = false

	plan, ok := cat.ByToken(snap.PlanType)
	if !ok {
		out.Step = StepPlan
		out.Plan = nil
		out.Transition = nil
		return out, ErrUnknownPlanType
	}

	upgrade := transition.Upgrade()
	out.Plan = &plan
	out.PlanType = plan.Token()
	out.Transition = &upgrade
	return out, nil
}
