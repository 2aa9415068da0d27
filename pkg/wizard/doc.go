// Package wizard models the three-step checkout wizard (project, plan,
// checkout) as an explicit Snapshot value and a guarded transition table.
//
// The package is environment-agnostic: it never reads cookies or URLs itself.
// Resolve derives the starting step from the authentication status, the
// project count and an optional external Hint (typically decoded from query
// parameters with Decode), and Machine enforces the legal moves between steps.
//
// # Step resolution
//
//   - A hinted step is honored, except that an unauthenticated user asking for
//     the project step is sent to the plan step.
//   - Without a hint: unauthenticated or zero projects go to plan; projects but
//     none selected go to project; otherwise project, unless a plan was already
//     selected (plan, or checkout when a billing cycle is also known).
//   - Entering checkout without a resolved plan yields a Loading snapshot until
//     ResolveDeepLink matches the plan-type token against the catalog.
//
// # Transitions
//
//	project --select-project--> plan
//	plan    --checkout-------> checkout
//	checkout --back----------> plan     (clears transition context and coupon)
//	plan    --back-----------> project  (clears the project only)
//
// # URL representation
//
// Encode and Decode round-trip the four externally visible fields (step,
// projectId, planType, billingCycle) so reloading or sharing a link
// reproduces the same screen.
package wizard
