// Package checkout coordinates one checkout wizard session: it loads the plan
// catalog and the project's current subscription, classifies the requested
// change, gates upgrades on the server's proration estimate and commits the
// result to the subscription service of record.
//
// An Orchestrator is created per wizard session with its collaborators
// (plan source, SubscriptionAPI, ProjectAPI, AuthChecker) and the session's
// pending selection queue:
//
//	orch := checkout.New(plans, api, api, auth, queue,
//	    checkout.WithLogger(log),
//	    checkout.WithSessionID(sessionID),
//	)
//	defer orch.Close(ctx)
//
//	snap, err := orch.Enter(ctx, hint)
//	out, err := orch.RequestSubscribe(ctx, "Pro", catalog.Quarterly)
//	if out.Prompt != nil {
//	    // render the prompt; call out.Prompt.Resolve for confirmations
//	}
//	done, err := orch.Commit(ctx, agreedToTerms)
//
// Expected business outcomes (sign in first, create a project first, a
// blocked change, a deferred change awaiting confirmation) are reported as
// UserPrompt values, never as errors. Failures are translated into
// FetchError, EstimateError, APIError, ValidationError or ErrUnauthenticated.
//
// Work started for a step (the upgrade estimate, an in-flight commit) is
// cancelled when the wizard leaves that step, and a result that arrives late
// is discarded with ErrStaleResult.
package checkout
