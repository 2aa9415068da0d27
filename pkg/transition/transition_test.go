package transition_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/checkoutkit/pkg/catalog"
	"github.com/dmitrymomot/checkoutkit/pkg/transition"
)

var cycles = []catalog.BillingCycle{catalog.Monthly, catalog.Quarterly}

func current(rank int, cycle catalog.BillingCycle) *transition.CurrentSubscription {
	return &transition.CurrentSubscription{PlanRank: rank, BillingCycle: cycle, Status: "active"}
}

func TestClassify_DecisionTable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		current *transition.CurrentSubscription
		req     transition.Request
		want    transition.Verdict
	}{
		{
			name:    "no current subscription",
			current: nil,
			req:     transition.Request{TargetPlanRank: 2, TargetBillingCycle: catalog.Monthly},
			want:    transition.NewSubscription(),
		},
		{
			name:    "same plan same monthly cycle",
			current: current(2, catalog.Monthly),
			req:     transition.Request{TargetPlanRank: 2, TargetBillingCycle: catalog.Monthly},
			want:    transition.Blocked(transition.SamePlanSameCycle),
		},
		{
			name:    "same plan same quarterly cycle",
			current: current(2, catalog.Quarterly),
			req:     transition.Request{TargetPlanRank: 2, TargetBillingCycle: catalog.Quarterly},
			want:    transition.Blocked(transition.SamePlanSameCycle),
		},
		{
			name:    "quarterly to monthly upgrade",
			current: current(1, catalog.Quarterly),
			req:     transition.Request{TargetPlanRank: 3, TargetBillingCycle: catalog.Monthly},
			want:    transition.Blocked(transition.QuarterlyToMonthlyDowngradeOrLateral),
		},
		{
			name:    "quarterly to monthly downgrade",
			current: current(3, catalog.Quarterly),
			req:     transition.Request{TargetPlanRank: 1, TargetBillingCycle: catalog.Monthly},
			want:    transition.Blocked(transition.QuarterlyToMonthlyDowngradeOrLateral),
		},
		{
			name:    "quarterly to monthly on the same plan is deferred",
			current: current(2, catalog.Quarterly),
			req:     transition.Request{TargetPlanRank: 2, TargetBillingCycle: catalog.Monthly},
			want:    transition.LateralOrDowngrade(),
		},
		{
			name:    "monthly upgrade",
			current: current(1, catalog.Monthly),
			req:     transition.Request{TargetPlanRank: 2, TargetBillingCycle: catalog.Monthly},
			want:    transition.Upgrade(),
		},
		{
			name:    "upgrade lengthening the cycle",
			current: current(1, catalog.Monthly),
			req:     transition.Request{TargetPlanRank: 2, TargetBillingCycle: catalog.Quarterly},
			want:    transition.Upgrade(),
		},
		{
			name:    "quarterly upgrade keeping the cycle",
			current: current(1, catalog.Quarterly),
			req:     transition.Request{TargetPlanRank: 3, TargetBillingCycle: catalog.Quarterly},
			want:    transition.Upgrade(),
		},
		{
			name:    "monthly downgrade",
			current: current(3, catalog.Monthly),
			req:     transition.Request{TargetPlanRank: 1, TargetBillingCycle: catalog.Monthly},
			want:    transition.LateralOrDowngrade(),
		},
		{
			name:    "same plan monthly to quarterly",
			current: current(2, catalog.Monthly),
			req:     transition.Request{TargetPlanRank: 2, TargetBillingCycle: catalog.Quarterly},
			want:    transition.LateralOrDowngrade(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, transition.Classify(tt.current, tt.req))
		})
	}
}

func TestClassify_Properties(t *testing.T) {
	t.Parallel()

	for curRank := 1; curRank <= 4; curRank++ {
		for _, curCycle := range cycles {
			for targetRank := 1; targetRank <= 4; targetRank++ {
				for _, targetCycle := range cycles {
					cur := current(curRank, curCycle)
					req := transition.Request{TargetPlanRank: targetRank, TargetBillingCycle: targetCycle}
					got := transition.Classify(cur, req)

					assert.Equal(t, got, transition.Classify(cur, req), "classify must be deterministic")
					assert.False(t, got.IsZero())

					switch {
					case targetRank == curRank && targetCycle == curCycle:
						assert.Equal(t, transition.Blocked(transition.SamePlanSameCycle), got)
					case curCycle == catalog.Quarterly && targetCycle == catalog.Monthly && targetRank != curRank:
						assert.True(t, got.IsBlocked(), "%d/%s -> %d/%s", curRank, curCycle, targetRank, targetCycle)
					case curCycle == catalog.Quarterly && targetCycle == catalog.Monthly:
						assert.Equal(t, transition.KindLateralOrDowngrade, got.Kind)
					case targetRank > curRank:
						assert.Equal(t, transition.Upgrade(), got)
					default:
						assert.Equal(t, transition.LateralOrDowngrade(), got)
					}
				}
			}
		}
	}
}

func TestVerdict_Helpers(t *testing.T) {
	t.Parallel()

	assert.True(t, transition.Upgrade().Prorated)
	assert.True(t, transition.LateralOrDowngrade().Deferred)
	assert.True(t, transition.LateralOrDowngrade().RequiresConfirmation())
	assert.False(t, transition.Upgrade().RequiresConfirmation())

	assert.True(t, transition.Upgrade().AdvancesToCheckout())
	assert.True(t, transition.NewSubscription().AdvancesToCheckout())
	assert.True(t, transition.CouponActivation().AdvancesToCheckout())
	assert.False(t, transition.LateralOrDowngrade().AdvancesToCheckout())
	assert.False(t, transition.Blocked(transition.SamePlanSameCycle).AdvancesToCheckout())

	assert.Equal(t, "blocked:same_plan_same_cycle", transition.Blocked(transition.SamePlanSameCycle).String())
	assert.Equal(t, "upgrade", transition.Upgrade().String())
}

func TestReason_MessagesAreDistinct(t *testing.T) {
	t.Parallel()

	reasons := []transition.Reason{
		transition.SamePlanSameCycle,
		transition.ShortenCycleOnUpgrade,
		transition.QuarterlyToMonthlyDowngradeOrLateral,
	}
	seen := make(map[string]bool)
	for _, r := range reasons {
		msg := r.Message()
		assert.NotEqual(t, string(r), msg)
		assert.False(t, seen[msg], "duplicate message for %s", r)
		seen[msg] = true
	}
}
