package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/checkoutkit/pkg/catalog"
	"github.com/dmitrymomot/checkoutkit/pkg/checkout"
	"github.com/dmitrymomot/checkoutkit/pkg/logger"
	"github.com/dmitrymomot/checkoutkit/pkg/pending"
	"github.com/dmitrymomot/checkoutkit/pkg/ratelimiter"
	"github.com/dmitrymomot/checkoutkit/pkg/wizard"
)

// Handler exposes checkout wizard sessions over HTTP.
type Handler struct {
	cfg      Config
	sessions *Registry
	log      *slog.Logger
	attempts ratelimiter.Limiter
}

// Option configures a Handler.
type Option func(*Handler)

// WithAttemptLimiter throttles coupon and commit attempts per wizard
// session. Without it attempts are unlimited.
func WithAttemptLimiter(l ratelimiter.Limiter) Option {
	return func(h *Handler) {
		h.attempts = l
	}
}

// New creates a Handler.
func New(cfg Config, sessions *Registry, log *slog.Logger, opts ...Option) *Handler {
	if sessions == nil {
		panic("handler: session registry cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	h := &Handler{
		cfg:      cfg.withDefaults(),
		sessions: sessions,
		log:      log.With(logger.Component("handler")),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes mounts the checkout endpoints.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		_ = JSONError(ErrNotFound).Render(w, req)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		_ = JSONError(ErrMethodNotAllowed).Render(w, req)
	})

	r.Route("/checkout", func(r chi.Router) {
		r.Get("/", h.serve(h.enter))
		r.Delete("/", h.abandon)
		r.Get("/state", h.serve(h.state))
		r.Get("/pending", h.serve(h.pending))
		r.Post("/project", h.serve(h.selectProject))
		r.Post("/projects", h.serve(h.createProject))
		r.Post("/subscribe", h.serve(h.subscribe))
		r.Post("/confirm", h.serve(h.confirm))
		r.With(h.limitAttempts).Post("/coupon", h.serve(h.applyCoupon))
		r.With(h.limitAttempts).Post("/commit", h.serve(h.commit))
		r.Post("/back", h.serve(h.back))
		r.Post("/revalidate", h.serve(h.revalidate))
	})

	return r
}

func (h *Handler) limitAttempts(next http.Handler) http.Handler {
	if h.attempts == nil {
		return next
	}
	return ratelimiter.Middleware(h.attempts, h.attemptKey, h.denyAttempt)(next)
}

// attemptKey buckets attempts by wizard session and endpoint. Requests
// without a session cookie are not limited since they start a fresh wizard.
func (h *Handler) attemptKey(r *http.Request) string {
	ck, err := r.Cookie(h.cfg.CookieName)
	if err != nil || ck.Value == "" {
		return ""
	}
	return ck.Value + ":" + r.URL.Path
}

func (h *Handler) denyAttempt(w http.ResponseWriter, r *http.Request, _ *ratelimiter.Result, err error) {
	if err != nil {
		h.render(w, r, h.fail(r.Context(), "rate limit", err))
		return
	}
	h.log.WarnContext(r.Context(), "too many checkout attempts", slog.String("path", r.URL.Path))
	h.render(w, r, JSONError(ErrTooManyAttempts))
}

type action func(ctx context.Context, s *Session, r *http.Request) Response

// serve resolves the caller's wizard session, runs the action, and relays
// refreshed upstream cookies before rendering.
func (h *Handler) serve(fn action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := h.session(w, r)
		if err != nil {
			h.render(w, r, JSONError(err))
			return
		}

		ctx := logger.WithSessionID(r.Context(), s.ID)
		s.Cookies.SetCookies(upstreamCookies(r, h.cfg.CookieName))

		resp := fn(ctx, s, r)

		for _, ck := range s.Cookies.TakeUpdated() {
			http.SetCookie(w, ck)
		}
		h.render(w, r.WithContext(ctx), resp)
	}
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, resp Response) {
	if err := resp.Render(w, r); err != nil {
		h.log.ErrorContext(r.Context(), "failed to render response",
			slog.String("path", r.URL.Path),
			logger.Error(err),
		)
	}
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*Session, error) {
	if ck, err := r.Cookie(h.cfg.CookieName); err == nil {
		if s, ok := h.sessions.Get(ck.Value); ok {
			return s, nil
		}
	}

	s, err := h.sessions.Create(r)
	if err != nil {
		return nil, err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.CookieName,
		Value:    s.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return s, nil
}

func upstreamCookies(r *http.Request, own string) []*http.Cookie {
	all := r.Cookies()
	out := all[:0]
	for _, ck := range all {
		if ck.Name != own {
			out = append(out, ck)
		}
	}
	return out
}

// fail logs server-side failures and renders the error envelope.
func (h *Handler) fail(ctx context.Context, op string, err error) Response {
	resp := JSONError(err)
	if jr, ok := resp.(*jsonResponse); ok && jr.status >= http.StatusInternalServerError {
		h.log.ErrorContext(ctx, "checkout action failed", slog.String("op", op), logger.Error(err))
	}
	return resp
}

func (h *Handler) enter(ctx context.Context, s *Session, r *http.Request) Response {
	hint, err := wizard.Decode(r.URL.Query())
	if err != nil {
		return h.fail(ctx, "enter", err)
	}
	if _, err := s.Orchestrator.Enter(ctx, hint); err != nil {
		return h.fail(ctx, "enter", err)
	}
	return JSON(s.Orchestrator.State())
}

func (h *Handler) state(ctx context.Context, s *Session, r *http.Request) Response {
	return JSON(s.Orchestrator.State())
}

func (h *Handler) pending(ctx context.Context, s *Session, r *http.Request) Response {
	sel, ok, err := s.Orchestrator.Pending(ctx)
	if err != nil {
		return h.fail(ctx, "pending", err)
	}
	if !ok {
		return JSON(pendingResponse{})
	}
	return JSON(pendingResponse{Selection: &sel})
}

type pendingResponse struct {
	Selection *pending.Selection `json:"selection"`
}

type selectProjectRequest struct {
	ProjectID string `json:"project_id"`
}

func (h *Handler) selectProject(ctx context.Context, s *Session, r *http.Request) Response {
	var req selectProjectRequest
	if err := bindJSON(r, &req); err != nil {
		return h.fail(ctx, "select_project", err)
	}
	if _, err := s.Orchestrator.SelectProject(ctx, req.ProjectID); err != nil {
		return h.fail(ctx, "select_project", err)
	}
	return JSON(s.Orchestrator.State())
}

type createProjectRequest struct {
	Name    string `json:"name"`
	LogoURL string `json:"logo_url"`
}

func (h *Handler) createProject(ctx context.Context, s *Session, r *http.Request) Response {
	var req createProjectRequest
	if err := bindJSON(r, &req); err != nil {
		return h.fail(ctx, "create_project", err)
	}
	res, err := s.Orchestrator.CreateProject(ctx, req.Name, req.LogoURL)
	if err != nil {
		return h.fail(ctx, "create_project", err)
	}
	return JSON(res, WithJSONStatus(http.StatusCreated), WithJSONMeta(map[string]any{
		"state": s.Orchestrator.State(),
	}))
}

type subscribeRequest struct {
	Plan         string `json:"plan"`
	BillingCycle string `json:"billing_cycle"`
}

func (h *Handler) subscribe(ctx context.Context, s *Session, r *http.Request) Response {
	var req subscribeRequest
	if err := bindJSON(r, &req); err != nil {
		return h.fail(ctx, "subscribe", err)
	}
	cycle, err := catalog.ParseBillingCycle(req.BillingCycle)
	if err != nil {
		return h.fail(ctx, "subscribe", &checkout.ValidationError{Field: "billing_cycle", Message: err.Error()})
	}
	out, err := s.Orchestrator.RequestSubscribe(ctx, strings.TrimSpace(req.Plan), cycle)
	if err != nil {
		return h.fail(ctx, "subscribe", err)
	}
	return JSON(out)
}

type confirmRequest struct {
	Confirmed bool `json:"confirmed"`
}

func (h *Handler) confirm(ctx context.Context, s *Session, r *http.Request) Response {
	var req confirmRequest
	if err := bindJSON(r, &req); err != nil {
		return h.fail(ctx, "confirm", err)
	}
	if _, err := s.Orchestrator.Confirm(ctx, req.Confirmed); err != nil {
		return h.fail(ctx, "confirm", err)
	}
	return JSON(s.Orchestrator.State())
}

func (h *Handler) applyCoupon(ctx context.Context, s *Session, r *http.Request) Response {
	var req wizard.Coupon
	if err := bindJSON(r, &req); err != nil {
		return h.fail(ctx, "apply_coupon", err)
	}
	if _, err := s.Orchestrator.ApplyCoupon(ctx, req); err != nil {
		return h.fail(ctx, "apply_coupon", err)
	}
	return JSON(s.Orchestrator.State())
}

type commitRequest struct {
	AgreeToTerms bool `json:"agree_to_terms"`
}

func (h *Handler) commit(ctx context.Context, s *Session, r *http.Request) Response {
	var req commitRequest
	if err := bindJSON(r, &req); err != nil {
		return h.fail(ctx, "commit", err)
	}
	done, err := s.Orchestrator.Commit(ctx, req.AgreeToTerms)
	if err != nil {
		return h.fail(ctx, "commit", err)
	}
	return JSON(done, WithJSONMeta(map[string]any{"state": s.Orchestrator.State()}))
}

func (h *Handler) back(ctx context.Context, s *Session, r *http.Request) Response {
	if _, err := s.Orchestrator.Back(ctx); err != nil {
		return h.fail(ctx, "back", err)
	}
	return JSON(s.Orchestrator.State())
}

func (h *Handler) revalidate(ctx context.Context, s *Session, r *http.Request) Response {
	if _, err := s.Orchestrator.Revalidate(ctx); err != nil {
		return h.fail(ctx, "revalidate", err)
	}
	return JSON(s.Orchestrator.State())
}

// abandon closes the caller's session and clears its cookie.
func (h *Handler) abandon(w http.ResponseWriter, r *http.Request) {
	ck, err := r.Cookie(h.cfg.CookieName)
	if err != nil {
		h.render(w, r, JSONError(ErrSessionNotFound))
		return
	}
	if err := h.sessions.Remove(r.Context(), ck.Value); err != nil && !errors.Is(err, context.Canceled) {
		h.log.WarnContext(r.Context(), "failed to close session", logger.SessionID(ck.Value), logger.Error(err))
	}
	http.SetCookie(w, &http.Cookie{Name: h.cfg.CookieName, Value: "", Path: "/", MaxAge: -1})
	w.WriteHeader(http.StatusNoContent)
}
