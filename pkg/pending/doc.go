// Package pending holds a plan selection that cannot be committed yet because
// the user has no project.
//
// A Queue has a single slot: Enqueue overwrites whatever was there, and Drain
// returns the selection and clears the slot atomically, so a selection is
// consumed exactly once. If project creation fails the caller simply does not
// drain, leaving the selection in place for a retry.
//
// Queues are bound to a wizard session key and persist through a Store.
// MemoryStore suits single-instance deployments and tests; RedisStore shares
// pending selections between instances behind a load balancer.
//
//	q := pending.NewQueue(pending.NewMemoryStore(), sessionID)
//	_ = q.Enqueue(ctx, pending.Selection{PlanName: "Pro", BillingCycle: catalog.Monthly})
//
//	// after createProject succeeds
//	sel, ok, err := q.Drain(ctx)
package pending
