package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/dmitrymomot/checkoutkit/pkg/async"
	"github.com/dmitrymomot/checkoutkit/pkg/catalog"
	"github.com/dmitrymomot/checkoutkit/pkg/logger"
	"github.com/dmitrymomot/checkoutkit/pkg/pending"
	"github.com/dmitrymomot/checkoutkit/pkg/pricing"
	"github.com/dmitrymomot/checkoutkit/pkg/transition"
	"github.com/dmitrymomot/checkoutkit/pkg/wizard"
)

// Orchestrator drives one wizard session. All mutations are serialized;
// only the commit call itself runs without holding the session lock.
type Orchestrator struct {
	plans    catalog.Source
	api      SubscriptionAPI
	projects ProjectAPI
	auth     AuthChecker
	queue    *pending.Queue
	calc     *pricing.Calculator
	log      *slog.Logger

	sessionID       string
	activeProjectID string

	base   context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	closed      bool
	env         wizard.Env
	machine     *wizard.Machine
	projectList []catalog.Project
	cat         *catalog.Catalog

	current    *transition.CurrentSubscription
	currentFor string
	currentSet bool

	// gen changes with every step change; results captured under an older
	// generation are discarded.
	gen        uint64
	stepCtx    context.Context
	stepCancel context.CancelFunc
	estimate   *async.Future[catalog.Money]
	committing bool
	prompt     *UserPrompt
	deferred   *deferredChange
}

type deferredChange struct {
	prompt  *UserPrompt
	plan    catalog.Plan
	cycle   catalog.BillingCycle
	verdict transition.Verdict
	gen     uint64
}

// New creates an orchestrator for a single wizard session.
// Panics if any collaborator is nil.
func New(plans catalog.Source, api SubscriptionAPI, projects ProjectAPI, auth AuthChecker, queue *pending.Queue, opts ...Option) *Orchestrator {
	if plans == nil {
		panic("checkout: plan source is required")
	}
	if api == nil {
		panic("checkout: SubscriptionAPI is required")
	}
	if projects == nil {
		panic("checkout: ProjectAPI is required")
	}
	if auth == nil {
		panic("checkout: AuthChecker is required")
	}
	if queue == nil {
		panic("checkout: pending queue is required")
	}

	o := &Orchestrator{
		plans:    plans,
		api:      api,
		projects: projects,
		auth:     auth,
		queue:    queue,
		calc:     pricing.Default,
		log:      slog.Default(),
	}

	for _, opt := range opts {
		opt(o)
	}

	o.log = o.log.With(logger.Component("checkout"))
	o.base, o.cancel = context.WithCancel(logger.WithSessionID(context.Background(), o.sessionID))
	o.machine = wizard.NewMachine(o.env, wizard.Snapshot{Step: wizard.StepPlan, BillingCycle: catalog.Monthly})
	o.newStepLocked()

	return o
}

// Enter materializes the wizard from an external hint. It determines the
// auth state and the user's projects, resolves the step, loads the catalog
// and the current subscription concurrently, and completes deep-link entry
// into checkout.
func (o *Orchestrator) Enter(ctx context.Context, hint wizard.Hint) (wizard.Snapshot, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return wizard.Snapshot{}, ErrClosed
	}
	ctx = o.logCtx(ctx)

	authed := o.auth.Authenticated(ctx)
	var projects []catalog.Project
	if authed {
		list, err := o.projects.ListProjects(ctx)
		switch {
		case errors.Is(err, ErrUnauthenticated):
			authed = false
		case err != nil:
			return o.machine.Snapshot(), &FetchError{Op: "list_projects", Err: err}
		default:
			projects = list
		}
	}
	o.projectList = projects

	if !o.hasProjectLocked(hint.ProjectID) {
		hint.ProjectID = ""
	}
	active := o.activeProjectID
	if !o.hasProjectLocked(active) {
		active = ""
	}

	o.env = wizard.Env{Authenticated: authed, ProjectCount: len(projects), ActiveProjectID: active}
	snap := wizard.Resolve(o.env, hint)
	o.machine = wizard.NewMachine(o.env, snap)
	o.cat = nil
	o.current, o.currentFor, o.currentSet = nil, "", false
	o.prompt = nil
	o.newStepLocked()

	if err := o.loadContextLocked(ctx, snap.ProjectID); err != nil {
		return o.machine.Snapshot(), err
	}

	if snap.Loading {
		resolved, err := wizard.ResolveDeepLink(snap, o.cat)
		if err != nil {
			o.log.WarnContext(ctx, "deep link plan type not resolved",
				slog.String("plan_type", snap.PlanType),
				logger.Error(err),
			)
		}
		if err := o.machine.Reset(resolved); err != nil {
			return o.machine.Snapshot(), err
		}
		if resolved.Transition != nil && resolved.Transition.Kind == transition.KindUpgrade {
			o.startEstimateLocked()
		}
	}

	snap = o.machine.Snapshot()
	o.log.InfoContext(ctx, "wizard entered",
		logger.Step(snap.Step),
		logger.ProjectID(snap.ProjectID),
		slog.Bool("authenticated", authed),
		slog.Int("projects", len(projects)),
	)

	return snap, nil
}

// SelectProject moves from the project step to the plan step.
func (o *Orchestrator) SelectProject(ctx context.Context, projectID string) (wizard.Snapshot, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return wizard.Snapshot{}, ErrClosed
	}
	ctx = o.logCtx(ctx)

	if !o.env.Authenticated {
		return o.machine.Snapshot(), ErrUnauthenticated
	}
	if projectID == "" || !o.hasProjectLocked(projectID) {
		return o.machine.Snapshot(), fmt.Errorf("%w: %q", ErrProjectNotFound, projectID)
	}

	if err := o.machine.Fire(ctx, wizard.EventSelectProject, wizard.Payload{ProjectID: projectID}); err != nil {
		return o.machine.Snapshot(), err
	}
	o.newStepLocked()

	if err := o.loadContextLocked(ctx, projectID); err != nil {
		return o.machine.Snapshot(), err
	}

	return o.machine.Snapshot(), nil
}

// CreateResult is the outcome of CreateProject.
type CreateResult struct {
	Project  catalog.Project `json:"project"`
	Snapshot wizard.Snapshot `json:"snapshot"`
	Resumed  bool            `json:"resumed"` // a pending plan selection moved the wizard to checkout
}

// CreateProject creates a project and drains the pending selection. When a
// selection was waiting, the wizard moves straight to checkout with it. A
// failed creation leaves the pending selection in place for a retry.
func (o *Orchestrator) CreateProject(ctx context.Context, name, logoURL string) (CreateResult, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	var res CreateResult
	if o.closed {
		return res, ErrClosed
	}
	ctx = o.logCtx(ctx)
	res.Snapshot = o.machine.Snapshot()

	if !o.env.Authenticated {
		return res, ErrUnauthenticated
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return res, &ValidationError{Field: "name", Message: "project name is required"}
	}

	project, err := o.projects.CreateProject(ctx, name, strings.TrimSpace(logoURL))
	if err != nil {
		if errors.Is(err, ErrUnauthenticated) {
			o.markSignedOutLocked()
			return res, ErrUnauthenticated
		}
		o.log.ErrorContext(ctx, "project creation failed", logger.Error(err))
		return res, asAPIError(err)
	}

	o.projectList = append(o.projectList, project)
	o.env.ProjectCount = len(o.projectList)
	o.env.ActiveProjectID = project.ID
	o.machine.SetEnv(o.env)

	// A project that did not exist a moment ago has no subscription.
	o.current, o.currentFor, o.currentSet = nil, project.ID, true
	res.Project = project

	if o.machine.Step() == wizard.StepProject {
		if err := o.machine.Fire(ctx, wizard.EventSelectProject, wizard.Payload{ProjectID: project.ID}); err != nil {
			return res, err
		}
	} else {
		o.machine.Update(func(s *wizard.Snapshot) { s.ProjectID = project.ID })
	}
	o.newStepLocked()

	sel, ok, err := o.queue.Drain(ctx)
	if err != nil {
		o.log.ErrorContext(ctx, "drain pending selection", logger.Error(err))
		ok = false
	}

	o.log.InfoContext(ctx, "project created",
		logger.ProjectID(project.ID),
		slog.Bool("pending_selection", ok),
	)

	if ok {
		if err := o.loadContextLocked(ctx, project.ID); err != nil {
			res.Snapshot = o.machine.Snapshot()
			return res, err
		}
		plan, found := o.cat.Lookup(sel.PlanName)
		if !found {
			o.log.WarnContext(ctx, "pending selection refers to unknown plan", logger.Plan(sel.PlanName))
		} else {
			if err := o.advanceLocked(ctx, plan, sel.BillingCycle, verdictFor(sel.TransitionContext), nil); err != nil {
				res.Snapshot = o.machine.Snapshot()
				return res, err
			}
			res.Resumed = true
		}
	}

	res.Snapshot = o.machine.Snapshot()
	return res, nil
}

// RequestSubscribe handles the user choosing a plan and billing cycle.
//
// Prompts, not errors, report expected outcomes: signing in, creating or
// selecting a project first, a blocked change, or a deferred change that the
// user must explicitly confirm. Upgrades, new subscriptions and coupon
// activations advance to checkout immediately.
func (o *Orchestrator) RequestSubscribe(ctx context.Context, planName string, cycle catalog.BillingCycle) (Outcome, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return Outcome{}, ErrClosed
	}
	ctx = o.logCtx(ctx)

	snap := o.machine.Snapshot()
	out := Outcome{Snapshot: snap}

	if !o.env.Authenticated {
		out.Prompt = &UserPrompt{Kind: PromptAuthRequired, Message: msgAuthRequired}
		return out, nil
	}
	if !cycle.Valid() {
		return out, &ValidationError{Field: "billing_cycle", Message: fmt.Sprintf("unknown billing cycle %q", cycle)}
	}
	if err := o.loadContextLocked(ctx, ""); err != nil {
		return out, err
	}
	plan, ok := o.cat.Lookup(planName)
	if !ok {
		return out, &ValidationError{Field: "plan", Message: fmt.Sprintf("unknown plan %q", planName)}
	}

	o.prompt, o.deferred = nil, nil

	if o.env.ProjectCount == 0 && !snap.HasProject() {
		sel := pending.Selection{
			PlanName:          plan.Name,
			BillingCycle:      cycle,
			TransitionContext: transition.KindNewSubscription,
		}
		if err := o.queue.Enqueue(ctx, sel); err != nil {
			return out, err
		}
		o.log.InfoContext(ctx, "plan selection queued until a project exists",
			logger.Plan(plan.Name),
			logger.BillingCycle(cycle),
		)
		out.Prompt = &UserPrompt{Kind: PromptCreateProject, Message: msgCreateProject}
		o.prompt = out.Prompt
		return out, nil
	}

	if !snap.HasProject() {
		out.Prompt = &UserPrompt{Kind: PromptSelectProject, Message: msgSelectProject}
		o.prompt = out.Prompt
		return out, nil
	}

	if err := o.loadContextLocked(ctx, snap.ProjectID); err != nil {
		return out, err
	}

	verdict := transition.Classify(o.current, transition.Request{
		TargetPlanRank:     plan.Rank,
		TargetBillingCycle: cycle,
	})
	out.Verdict = verdict

	o.log.InfoContext(ctx, "transition classified",
		logger.ProjectID(snap.ProjectID),
		logger.Plan(plan.Name),
		logger.BillingCycle(cycle),
		logger.Verdict(verdict),
	)

	switch {
	case verdict.IsBlocked():
		out.Prompt = &UserPrompt{Kind: PromptBlocked, Message: verdict.Reason.Message(), Reason: verdict.Reason}
		o.prompt = out.Prompt

	case verdict.RequiresConfirmation():
		p := &UserPrompt{Kind: PromptConfirmDeferred, Message: deferredMessage(plan, cycle)}
		p.Resolve = func(confirmed bool) {
			if err := o.resolvePrompt(o.base, p, confirmed); err != nil {
				o.log.WarnContext(o.base, "deferred change not applied", logger.Error(err))
			}
		}
		o.deferred = &deferredChange{prompt: p, plan: plan, cycle: cycle, verdict: verdict, gen: o.gen}
		o.prompt = p
		out.Prompt = p

	default:
		if err := o.advanceLocked(ctx, plan, cycle, verdict, nil); err != nil {
			return out, err
		}
		out.Advanced = true
	}

	out.Snapshot = o.machine.Snapshot()
	return out, nil
}

// Confirm answers the pending confirmation prompt.
func (o *Orchestrator) Confirm(ctx context.Context, confirmed bool) (wizard.Snapshot, error) {
	o.mu.Lock()
	p := o.prompt
	o.mu.Unlock()

	if !p.NeedsAnswer() {
		return o.Snapshot(), ErrNoPendingPrompt
	}
	ctx = o.logCtx(ctx)
	if err := o.resolvePrompt(ctx, p, confirmed); err != nil {
		return o.Snapshot(), err
	}

	o.log.InfoContext(ctx, "deferred change answered", slog.Bool("confirmed", confirmed))
	return o.Snapshot(), nil
}

func (o *Orchestrator) resolvePrompt(ctx context.Context, p *UserPrompt, confirmed bool) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return ErrClosed
	}
	d := o.deferred
	if d == nil || d.prompt != p {
		return ErrNoPendingPrompt
	}
	o.deferred, o.prompt = nil, nil

	if d.gen != o.gen {
		return ErrStaleResult
	}
	if !confirmed {
		return nil
	}
	return o.advanceLocked(ctx, d.plan, d.cycle, d.verdict, nil)
}

// ApplyCoupon moves to checkout as a coupon activation. The quote anchors on
// the plan currently displayed; the coupon's own plan is used only when no
// plan is displayed.
func (o *Orchestrator) ApplyCoupon(ctx context.Context, coupon wizard.Coupon) (wizard.Snapshot, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return wizard.Snapshot{}, ErrClosed
	}
	ctx = o.logCtx(ctx)
	snap := o.machine.Snapshot()

	if !o.env.Authenticated {
		return snap, ErrUnauthenticated
	}
	coupon.Code = strings.TrimSpace(coupon.Code)
	if coupon.Code == "" {
		return snap, &ValidationError{Field: "coupon", Message: "coupon code is required"}
	}
	if !snap.HasProject() {
		return snap, ErrProjectRequired
	}
	if err := o.loadContextLocked(ctx, ""); err != nil {
		return snap, err
	}

	displayed := snap.Plan
	if coupon.PlanName != "" {
		couponPlan, ok := o.cat.Lookup(coupon.PlanName)
		if !ok {
			return snap, &ValidationError{Field: "coupon", Message: fmt.Sprintf("coupon plan %q is not offered", coupon.PlanName)}
		}
		coupon.PlanName = couponPlan.Name
		if displayed == nil {
			displayed = &couponPlan
		}
	}
	if displayed == nil {
		return snap, &ValidationError{Field: "plan", Message: "select a plan before applying a coupon"}
	}

	if err := o.advanceLocked(ctx, *displayed, snap.BillingCycle, transition.CouponActivation(), &coupon); err != nil {
		return o.machine.Snapshot(), err
	}

	o.log.InfoContext(ctx, "coupon applied", logger.Plan(displayed.Name), logger.ProjectID(snap.ProjectID))
	return o.machine.Snapshot(), nil
}

// Quote prices the current checkout.
func (o *Orchestrator) Quote() (pricing.PriceQuote, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.quoteLocked()
}

// AwaitEstimate blocks until the in-flight upgrade estimate resolves.
// It returns nil when no estimate is in flight.
func (o *Orchestrator) AwaitEstimate(ctx context.Context) error {
	o.mu.Lock()
	f := o.estimate
	o.mu.Unlock()

	if f == nil {
		return nil
	}
	if _, err := f.AwaitContext(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &EstimateError{Err: err}
	}
	return nil
}

// Commit submits the checkout. The call dispatched depends on the verdict
// that produced the checkout: a new subscription, a plan change, or a coupon
// activation. On success every piece of wizard state is cleared; on failure
// the wizard stays on checkout for a retry.
func (o *Orchestrator) Commit(ctx context.Context, agreedToTerms bool) (Completion, error) {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return Completion{}, ErrClosed
	}
	if o.committing {
		o.mu.Unlock()
		return Completion{}, ErrBusy
	}

	snap := o.machine.Snapshot()
	if err := o.commitReadyLocked(snap, agreedToTerms); err != nil {
		if errors.Is(err, pricing.ErrEstimateRequired) {
			o.startEstimateLocked()
			err = ErrEstimatePending
		}
		o.mu.Unlock()
		return Completion{}, err
	}

	o.committing = true
	gen := o.gen
	stepCtx := o.stepCtx
	o.mu.Unlock()

	callCtx, cancel := context.WithCancel(stepCtx)
	stop := context.AfterFunc(ctx, cancel)
	checkoutURL, err := o.dispatch(callCtx, snap)
	stop()
	cancel()

	o.mu.Lock()
	defer o.mu.Unlock()
	o.committing = false
	ctx = o.logCtx(ctx)

	if gen != o.gen || o.closed {
		o.log.WarnContext(ctx, "commit result discarded", logger.Step(o.machine.Step()), logger.Error(err))
		return Completion{}, ErrStaleResult
	}

	if err != nil {
		if errors.Is(err, ErrUnauthenticated) {
			o.markSignedOutLocked()
			return Completion{}, ErrUnauthenticated
		}
		o.log.ErrorContext(ctx, "commit failed",
			logger.ProjectID(snap.ProjectID),
			logger.Plan(snap.Plan.Name),
			logger.Verdict(snap.Transition),
			logger.Error(err),
		)
		return Completion{}, asAPIError(err)
	}

	done := Completion{
		Kind:         snap.Transition.Kind,
		ProjectID:    snap.ProjectID,
		PlanName:     snap.Plan.Name,
		BillingCycle: snap.BillingCycle,
		CheckoutURL:  checkoutURL,
	}

	if err := o.queue.Discard(ctx); err != nil {
		o.log.WarnContext(ctx, "discard pending selection", logger.Error(err))
	}
	// The server of record changed; the next read must refetch.
	o.current, o.currentFor, o.currentSet = nil, "", false
	o.prompt, o.deferred = nil, nil
	if err := o.machine.Reset(wizard.Resolve(o.env, wizard.Hint{})); err != nil {
		o.log.ErrorContext(ctx, "reset wizard after commit", logger.Error(err))
	}
	o.newStepLocked()

	o.log.InfoContext(ctx, "checkout committed",
		logger.ProjectID(done.ProjectID),
		logger.Plan(done.PlanName),
		logger.BillingCycle(done.BillingCycle),
		logger.Verdict(done.Kind),
	)

	return done, nil
}

// Back moves checkout to plan or plan to project and cancels in-flight work
// tied to the step being left.
func (o *Orchestrator) Back(ctx context.Context) (wizard.Snapshot, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return wizard.Snapshot{}, ErrClosed
	}

	from := o.machine.Step()
	ctx = o.logCtx(ctx)
	if err := o.machine.Fire(ctx, wizard.EventBack, wizard.Payload{}); err != nil {
		return o.machine.Snapshot(), err
	}
	o.newStepLocked()

	snap := o.machine.Snapshot()
	o.log.DebugContext(ctx, "wizard stepped back", slog.String("from", from.String()), logger.Step(snap.Step))
	return snap, nil
}

// Revalidate asks the server whether the session is still signed in.
func (o *Orchestrator) Revalidate(ctx context.Context) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	ok, err := o.auth.Revalidate(o.logCtx(ctx))
	if err != nil {
		return o.env.Authenticated, &FetchError{Op: "revalidate", Err: err}
	}
	if !ok {
		o.markSignedOutLocked()
		return false, nil
	}
	o.env.Authenticated = true
	o.machine.SetEnv(o.env)
	return true, nil
}

// Pending returns the plan selection waiting for a project, if any.
func (o *Orchestrator) Pending(ctx context.Context) (pending.Selection, bool, error) {
	return o.queue.Peek(ctx)
}

// Snapshot returns the current wizard snapshot.
func (o *Orchestrator) Snapshot() wizard.Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.machine.Snapshot()
}

// State returns a rendering view of the session.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()

	snap := o.machine.Snapshot()
	st := State{
		Snapshot:      snap,
		Query:         wizard.EncodeString(snap),
		Authenticated: o.env.Authenticated,
		Projects:      slices.Clone(o.projectList),
		Committing:    o.committing,
		Prompt:        o.prompt,
	}
	if o.cat != nil {
		st.Plans = o.cat.Plans()
	}
	if q, err := o.quoteLocked(); err == nil {
		st.Quote = &q
	}
	if o.estimate != nil {
		if !o.estimate.IsComplete() {
			st.EstimatePending = true
		} else if _, err := o.estimate.Await(); err != nil {
			st.EstimateError = err.Error()
		}
	}
	st.CanCommit = !o.committing && o.commitReadyLocked(snap, true) == nil

	return st
}

// Close cancels in-flight work and discards the pending selection.
func (o *Orchestrator) Close(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return nil
	}
	o.closed = true
	o.stepCancel()
	o.cancel()
	o.prompt, o.deferred, o.estimate = nil, nil, nil

	return o.queue.Discard(ctx)
}

func (o *Orchestrator) dispatch(ctx context.Context, snap wizard.Snapshot) (string, error) {
	switch snap.Transition.Kind {
	case transition.KindNewSubscription:
		return o.api.StartSubscription(ctx, snap.ProjectID, snap.Plan.ID, snap.BillingCycle)
	case transition.KindUpgrade, transition.KindLateralOrDowngrade:
		return "", o.api.ChangePlan(ctx, snap.ProjectID, snap.Plan.ID, snap.BillingCycle)
	case transition.KindCouponActivation:
		return "", o.api.ApplyCoupon(ctx, snap.ProjectID, snap.Coupon.Code)
	default:
		return "", ErrNotAtCheckout
	}
}

func (o *Orchestrator) commitReadyLocked(snap wizard.Snapshot, agreedToTerms bool) error {
	if snap.Step != wizard.StepCheckout || snap.Loading || snap.Plan == nil || snap.Transition == nil {
		return ErrNotAtCheckout
	}
	if !agreedToTerms {
		return &ValidationError{Field: "terms", Message: "you must agree to the terms of service"}
	}
	if !o.env.Authenticated {
		return ErrUnauthenticated
	}
	if !snap.HasProject() {
		return &ValidationError{Field: "project", Message: ErrProjectRequired.Error()}
	}

	switch snap.Transition.Kind {
	case transition.KindUpgrade:
		if _, err := o.estimateLocked(); err != nil {
			return err
		}
	case transition.KindCouponActivation:
		if snap.Coupon == nil || snap.Coupon.Code == "" {
			return &ValidationError{Field: "coupon", Message: "coupon code is required"}
		}
	}
	return nil
}

func (o *Orchestrator) quoteLocked() (pricing.PriceQuote, error) {
	snap := o.machine.Snapshot()
	if snap.Step != wizard.StepCheckout || snap.Plan == nil || snap.Transition == nil {
		return pricing.PriceQuote{}, ErrNotAtCheckout
	}

	var opts []pricing.Option
	if snap.Coupon != nil {
		opts = append(opts, pricing.WithCoupon())
	}
	if snap.Transition.Kind == transition.KindUpgrade {
		amount, err := o.estimateLocked()
		if err != nil {
			return pricing.PriceQuote{}, err
		}
		opts = append(opts, pricing.WithProration(amount))
	}

	return o.calc.Quote(*snap.Plan, snap.BillingCycle, *snap.Transition, opts...)
}

// estimateLocked reports the resolved upgrade estimate. A missing estimate is
// pricing.ErrEstimateRequired; one still in flight is ErrEstimatePending.
func (o *Orchestrator) estimateLocked() (catalog.Money, error) {
	if o.estimate == nil {
		return catalog.Money{}, pricing.ErrEstimateRequired
	}
	if !o.estimate.IsComplete() {
		return catalog.Money{}, ErrEstimatePending
	}
	amount, err := o.estimate.Await()
	if err != nil {
		return catalog.Money{}, &EstimateError{Err: err}
	}
	return amount, nil
}

func (o *Orchestrator) startEstimateLocked() {
	snap := o.machine.Snapshot()
	if !o.env.Authenticated || !snap.HasProject() || snap.Plan == nil {
		o.estimate = nil
		return
	}

	req := estimateRequest{projectID: snap.ProjectID, planID: snap.Plan.ID, cycle: snap.BillingCycle}
	o.estimate = async.Async(o.stepCtx, req, o.fetchEstimate)
}

type estimateRequest struct {
	projectID string
	planID    string
	cycle     catalog.BillingCycle
}

func (o *Orchestrator) fetchEstimate(ctx context.Context, req estimateRequest) (catalog.Money, error) {
	amount, err := o.api.EstimateUpgradeCost(ctx, req.projectID, req.planID, req.cycle)
	if err != nil && ctx.Err() == nil {
		o.log.WarnContext(ctx, "upgrade estimate failed",
			logger.ProjectID(req.projectID),
			logger.BillingCycle(req.cycle),
			logger.Error(err),
		)
	}
	return amount, err
}

// advanceLocked moves the wizard to checkout with the given selection,
// passing through the plan step when needed.
func (o *Orchestrator) advanceLocked(ctx context.Context, plan catalog.Plan, cycle catalog.BillingCycle, verdict transition.Verdict, coupon *wizard.Coupon) error {
	switch o.machine.Step() {
	case wizard.StepProject:
		if err := o.machine.Fire(ctx, wizard.EventSelectProject, wizard.Payload{}); err != nil {
			return err
		}
	case wizard.StepCheckout:
		if err := o.machine.Fire(ctx, wizard.EventBack, wizard.Payload{}); err != nil {
			return err
		}
	}

	err := o.machine.Fire(ctx, wizard.EventCheckout, wizard.Payload{
		Plan:         &plan,
		BillingCycle: cycle,
		Transition:   &verdict,
		Coupon:       coupon,
	})
	o.newStepLocked()
	if err != nil {
		return err
	}

	if verdict.Kind == transition.KindUpgrade {
		o.startEstimateLocked()
	}
	return nil
}

// loadContextLocked loads the catalog (once per entry) and, when projectID
// is set, the project's current subscription. Both run concurrently and both
// must resolve before classification.
func (o *Orchestrator) loadContextLocked(ctx context.Context, projectID string) error {
	catF := async.Completed(o.cat)
	if o.cat == nil {
		catF = async.Async(ctx, o.plans, catalog.Load)
	}

	var subF *async.Future[*transition.CurrentSubscription]
	if projectID != "" && o.env.Authenticated && (!o.currentSet || o.currentFor != projectID) {
		subF = async.Async(ctx, projectID, o.api.FetchCurrentSubscription)
	}

	cat, catErr := catF.AwaitContext(ctx)
	var (
		sub    *transition.CurrentSubscription
		subErr error
	)
	if subF != nil {
		sub, subErr = subF.AwaitContext(ctx)
	}

	if catErr != nil {
		o.log.ErrorContext(ctx, "plan catalog fetch failed", logger.Error(catErr))
		return &FetchError{Op: "fetch_plans", Err: catErr}
	}
	o.cat = cat

	if subF == nil {
		return nil
	}
	if subErr != nil {
		if errors.Is(subErr, ErrUnauthenticated) {
			o.markSignedOutLocked()
			return ErrUnauthenticated
		}
		o.log.ErrorContext(ctx, "current subscription fetch failed", logger.ProjectID(projectID), logger.Error(subErr))
		return &FetchError{Op: "fetch_current_subscription", Err: subErr}
	}

	o.current = o.rankedLocked(ctx, sub)
	o.currentFor, o.currentSet = projectID, true
	return nil
}

// rankedLocked resolves the subscription's plan rank against the catalog.
// A plan the catalog does not know means "no current plan", whatever rank
// the server reported for it.
func (o *Orchestrator) rankedLocked(ctx context.Context, sub *transition.CurrentSubscription) *transition.CurrentSubscription {
	if sub == nil {
		return nil
	}
	rank, ok := o.cat.RankOf(sub.PlanName)
	if !ok {
		o.log.WarnContext(ctx, "current plan is not in the catalog",
			logger.Plan(sub.PlanName),
			slog.Int("reported_rank", sub.PlanRank),
		)
		return nil
	}
	out := *sub
	out.PlanRank = rank
	return &out
}

// newStepLocked cancels work tied to the previous step and starts a new generation.
func (o *Orchestrator) newStepLocked() {
	if o.stepCancel != nil {
		o.stepCancel()
	}
	o.gen++
	o.stepCtx, o.stepCancel = context.WithCancel(o.base)
	o.estimate = nil
	o.deferred = nil
	if o.prompt.NeedsAnswer() {
		o.prompt = nil
	}
}

func (o *Orchestrator) markSignedOutLocked() {
	o.env.Authenticated = false
	o.machine.SetEnv(o.env)
	o.prompt, o.deferred = nil, nil
	o.log.InfoContext(o.base, "session is no longer authenticated")
}

func (o *Orchestrator) hasProjectLocked(id string) bool {
	if id == "" {
		return false
	}
	return slices.ContainsFunc(o.projectList, func(p catalog.Project) bool { return p.ID == id })
}

func (o *Orchestrator) logCtx(ctx context.Context) context.Context {
	if o.sessionID == "" {
		return ctx
	}
	return logger.WithSessionID(ctx, o.sessionID)
}

func verdictFor(kind transition.Kind) transition.Verdict {
	switch kind {
	case transition.KindUpgrade:
		return transition.Upgrade()
	case transition.KindLateralOrDowngrade:
		return transition.LateralOrDowngrade()
	case transition.KindCouponActivation:
		return transition.CouponActivation()
	default:
		return transition.NewSubscription()
	}
}
