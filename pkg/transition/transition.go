// Package transition classifies a requested plan or billing-cycle change
// against a project's current subscription.
//
// Classify is a pure, total function: the same inputs always produce the same
// Verdict. A blocked change is a normal return value, not an error, because
// it is an expected business outcome that the checkout flow shows to the user.
package transition

import (
	"github.com/dmitrymomot/checkoutkit/pkg/catalog"
)

// Kind identifies the variant of a Verdict.
type Kind string

const (
	KindNewSubscription    Kind = "new_subscription"
	KindBlocked            Kind = "blocked"
	KindUpgrade            Kind = "upgrade"
	KindLateralOrDowngrade Kind = "lateral_or_downgrade"
	KindCouponActivation   Kind = "coupon_activation"
)

// Reason explains why a change is blocked.
type Reason string

const (
	SamePlanSameCycle                    Reason = "same_plan_same_cycle"
	ShortenCycleOnUpgrade                Reason = "shorten_cycle_on_upgrade"
	QuarterlyToMonthlyDowngradeOrLateral Reason = "quarterly_to_monthly_downgrade_or_lateral"
)

var reasonMessages = map[Reason]string{
	SamePlanSameCycle:                    "You are already subscribed to this plan with this billing cycle.",
	ShortenCycleOnUpgrade:                "Upgrades cannot shorten your current term. Keep the quarterly cycle to upgrade.",
	QuarterlyToMonthlyDowngradeOrLateral: "A prepaid quarterly term cannot be switched to a monthly cycle on a different plan.",
}

// Message returns the user-facing text for the reason.
func (r Reason) Message() string {
	if msg, ok := reasonMessages[r]; ok {
		return msg
	}
	return string(r)
}

// CurrentSubscription is the project's existing subscription, if any.
type CurrentSubscription struct {
	PlanRank     int
	PlanName     string
	BillingCycle catalog.BillingCycle
	Status       string
}

// Request is the change the user asked for.
type Request struct {
	TargetPlanRank     int
	TargetBillingCycle catalog.BillingCycle
}

// Verdict is the classified outcome of a Request. Exactly one Kind is set;
// Reason is populated only for KindBlocked.
type Verdict struct {
	Kind     Kind   `json:"kind"`
	Reason   Reason `json:"reason,omitempty"`
	Prorated bool   `json:"prorated,omitempty"` // upgrades are charged the server-computed proration
	Deferred bool   `json:"deferred,omitempty"` // lateral moves and downgrades apply at next renewal
}

// NewSubscription is the verdict for a project that never subscribed.
func NewSubscription() Verdict { return Verdict{Kind: KindNewSubscription} }

// Blocked is the verdict for a disallowed change.
func Blocked(reason Reason) Verdict { return Verdict{Kind: KindBlocked, Reason: reason} }

// Upgrade is the verdict for a move to a higher tier.
func Upgrade() Verdict { return Verdict{Kind: KindUpgrade, Prorated: true} }

// LateralOrDowngrade is the verdict for a change applied at next renewal.
func LateralOrDowngrade() Verdict { return Verdict{Kind: KindLateralOrDowngrade, Deferred: true} }

// CouponActivation is the verdict for a coupon-gated zero-cost activation.
// Coupon usability is decided by the coupon service, not here.
func CouponActivation() Verdict { return Verdict{Kind: KindCouponActivation} }

// IsBlocked reports whether the change is disallowed.
func (v Verdict) IsBlocked() bool { return v.Kind == KindBlocked }

// IsZero reports whether the verdict is unset.
func (v Verdict) IsZero() bool { return v.Kind == "" }

// RequiresConfirmation reports whether the user must explicitly confirm
// before the change proceeds.
func (v Verdict) RequiresConfirmation() bool { return v.Kind == KindLateralOrDowngrade }

// AdvancesToCheckout reports whether the change goes straight to checkout.
func (v Verdict) AdvancesToCheckout() bool {
	switch v.Kind {
	case KindUpgrade, KindNewSubscription, KindCouponActivation:
		return true
	default:
		return false
	}
}

func (v Verdict) String() string {
	if v.Kind == KindBlocked {
		return string(v.Kind) + ":" + string(v.Reason)
	}
	return string(v.Kind)
}

// Classify evaluates the decision table in precedence order; first match wins.
func Classify(current *CurrentSubscription, req Request) Verdict {
	if current == nil {
		return NewSubscription()
	}

	sameRank := req.TargetPlanRank == current.PlanRank
	shortensTerm := current.BillingCycle == catalog.Quarterly && req.TargetBillingCycle == catalog.Monthly

	if sameRank && req.TargetBillingCycle == current.BillingCycle {
		return Blocked(SamePlanSameCycle)
	}

	if shortensTerm && !sameRank {
		return Blocked(QuarterlyToMonthlyDowngradeOrLateral)
	}

	// Shadowed by the rule above; kept for its distinct message.
	if req.TargetPlanRank > current.PlanRank && shortensTerm {
		return Blocked(ShortenCycleOnUpgrade)
	}

	if req.TargetPlanRank > current.PlanRank {
		return Upgrade()
	}

	return LateralOrDowngrade()
}
