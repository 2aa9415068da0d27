package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/checkoutkit/pkg/authstate"
	"github.com/dmitrymomot/checkoutkit/pkg/billingapi"
	"github.com/dmitrymomot/checkoutkit/pkg/catalog"
	"github.com/dmitrymomot/checkoutkit/pkg/checkout"
	"github.com/dmitrymomot/checkoutkit/pkg/config"
	"github.com/dmitrymomot/checkoutkit/pkg/handler"
	"github.com/dmitrymomot/checkoutkit/pkg/httpserver"
	"github.com/dmitrymomot/checkoutkit/pkg/logger"
	"github.com/dmitrymomot/checkoutkit/pkg/pending"
	"github.com/dmitrymomot/checkoutkit/pkg/pricing"
	"github.com/dmitrymomot/checkoutkit/pkg/ratelimiter"
	"github.com/dmitrymomot/checkoutkit/pkg/redis"
)

// activeProjectHeader carries the project the user is working in, if the
// embedding app knows it.
const activeProjectHeader = "X-Active-Project-ID"

type appConfig struct {
	Log      logger.Config
	HTTP     httpserver.Config
	Billing  billingapi.Config
	Paddle   billingapi.PaddleConfig
	Redis    redis.Config
	Pending  pending.Config
	Pricing  pricing.Config
	Attempts ratelimiter.Config
	Auth     authstate.Config
	Sessions handler.Config

	// CatalogFile points to a YAML plan catalog. When empty, plans are
	// fetched from the billing API.
	CatalogFile string `env:"CATALOG_FILE"`
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "checkoutd: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load[appConfig]()
	if err != nil {
		return err
	}

	log, err := logger.NewFromConfig(cfg.Log, logger.WithContextExtractors(requestIDExtractor))
	if err != nil {
		return err
	}
	logger.SetAsDefault(log)

	api, err := billingapi.New(cfg.Billing, billingapi.WithLogger(log))
	if err != nil {
		return err
	}

	var static catalog.Source
	if cfg.CatalogFile != "" {
		if static, err = loadCatalog(cfg.CatalogFile); err != nil {
			return err
		}
	}

	var starter *billingapi.PaddleStarter
	if cfg.Paddle.Enabled() {
		if starter, err = billingapi.NewPaddleStarter(cfg.Paddle); err != nil {
			return err
		}
	}

	var (
		store  pending.Store
		checks []httpserver.Check
	)
	if cfg.Redis.Enabled() {
		client, err := redis.Connect(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer client.Close()
		store = pending.NewRedisStore(client, cfg.Pending)
		checks = append(checks, httpserver.Check{Name: "redis", Fn: redis.Healthcheck(client, cfg.Pending.KeyPrefix+"healthcheck")})
	} else {
		log.WarnContext(ctx, "REDIS_URL not set, pending selections are kept in memory")
		store = pending.NewMemoryStore(cfg.Pending.TTL)
	}

	calc := pricing.NewFromConfig(cfg.Pricing)

	factory := func(id string, r *http.Request) (*checkout.Orchestrator, handler.CookieRelay, error) {
		session := api.Session(r.Cookies())

		var plans catalog.Source = session
		if static != nil {
			plans = static
		}

		var subs checkout.SubscriptionAPI = session
		if starter != nil {
			subs = starter.Wrap(session, plans)
		}

		o := checkout.New(
			plans,
			subs,
			session,
			authstate.New(cfg.Auth, session, session),
			pending.NewQueue(store, id),
			checkout.WithLogger(log),
			checkout.WithCalculator(calc),
			checkout.WithSessionID(id),
			checkout.WithActiveProject(r.Header.Get(activeProjectHeader)),
		)
		return o, session, nil
	}

	attemptStore := ratelimiter.NewMemoryStore()
	defer attemptStore.Close()
	attempts, err := ratelimiter.NewBucket(attemptStore, cfg.Attempts)
	if err != nil {
		return err
	}

	sessions := handler.NewRegistry(factory, cfg.Sessions.IdleTimeout, log)
	h := handler.New(cfg.Sessions, sessions, log, handler.WithAttemptLimiter(attempts))

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP)
	r.Get("/healthz", httpserver.Liveness())
	r.Get("/readyz", httpserver.Readiness(log, 2*time.Second, checks...))
	r.Mount("/", h.Routes())

	srv := httpserver.New(cfg.HTTP, r, httpserver.WithLogger(log))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx) })
	g.Go(func() error { return sessions.Run(gctx, cfg.Sessions.SweepEvery) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.InfoContext(ctx, "checkoutd stopped", slog.Int("open_sessions", sessions.Len()))
	return nil
}

func requestIDExtractor(ctx context.Context) (slog.Attr, bool) {
	if id := middleware.GetReqID(ctx); id != "" {
		return slog.String("request_id", id), true
	}
	return slog.Attr{}, false
}

func loadCatalog(path string) (catalog.Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return catalog.NewYAMLSource(f)
}
