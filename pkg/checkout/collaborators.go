package checkout

import (
	"context"

	"github.com/dmitrymomot/checkoutkit/pkg/catalog"
	"github.com/dmitrymomot/checkoutkit/pkg/transition"
)

// SubscriptionAPI is the remote subscription service of record.
type SubscriptionAPI interface {
	// FetchCurrentSubscription returns nil without error when the project never subscribed.
	// PlanRank may be zero; it is resolved against the catalog by plan name.
	FetchCurrentSubscription(ctx context.Context, projectID string) (*transition.CurrentSubscription, error)
	EstimateUpgradeCost(ctx context.Context, projectID, planID string, cycle catalog.BillingCycle) (catalog.Money, error)
	// StartSubscription may return a hosted checkout URL the user must visit to pay.
	StartSubscription(ctx context.Context, projectID, planID string, cycle catalog.BillingCycle) (string, error)
	ChangePlan(ctx context.Context, projectID, planID string, cycle catalog.BillingCycle) error
	ApplyCoupon(ctx context.Context, projectID, code string) error
}

// ProjectAPI lists and creates the user's projects.
type ProjectAPI interface {
	ListProjects(ctx context.Context) ([]catalog.Project, error)
	CreateProject(ctx context.Context, name, logoURL string) (catalog.Project, error)
}

// AuthChecker answers whether the user is signed in.
// Authenticated is a cheap local probe; Revalidate asks the server.
type AuthChecker interface {
	Authenticated(ctx context.Context) bool
	Revalidate(ctx context.Context) (bool, error)
}
