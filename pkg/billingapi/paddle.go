package billingapi

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	paddle "github.com/PaddleHQ/paddle-go-sdk/v4"

	"github.com/dmitrymomot/checkoutkit/pkg/catalog"
	"github.com/dmitrymomot/checkoutkit/pkg/checkout"
	"github.com/dmitrymomot/checkoutkit/pkg/logger"
)

// TransactionCreator is the slice of the Paddle SDK the starter needs.
type TransactionCreator interface {
	CreateTransaction(ctx context.Context, req *paddle.CreateTransactionRequest) (*paddle.Transaction, error)
}

// PaddleStarter opens a Paddle hosted checkout for new subscriptions. One
// starter is shared by all sessions.
type PaddleStarter struct {
	txns       TransactionCreator
	successURL string
	log        *slog.Logger
}

// NewPaddleStarter creates a starter backed by the Paddle API.
func NewPaddleStarter(cfg PaddleConfig) (*PaddleStarter, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	var client *paddle.SDK
	var err error

	switch strings.ToLower(cfg.Environment) {
	case "sandbox":
		client, err = paddle.NewSandbox(cfg.APIKey)
	case "production", "":
		client, err = paddle.New(cfg.APIKey)
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidProviderEnvironment, cfg.Environment)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create paddle client: %w", err)
	}

	return NewPaddleStarterWithClient(client.TransactionsClient, cfg), nil
}

// NewPaddleStarterWithClient creates a starter around an existing transaction client.
func NewPaddleStarterWithClient(txns TransactionCreator, cfg PaddleConfig) *PaddleStarter {
	if txns == nil {
		panic("billingapi: transaction client cannot be nil")
	}
	return &PaddleStarter{
		txns:       txns,
		successURL: cfg.SuccessURL,
		log:        slog.Default().With(logger.Component("paddle")),
	}
}

// StartCheckout creates a Paddle transaction for the plan's price in the
// given cycle and returns its hosted checkout URL. Price IDs come from plans.
func (p *PaddleStarter) StartCheckout(ctx context.Context, plans catalog.Source, projectID, planID string, cycle catalog.BillingCycle) (string, error) {
	cat, err := catalog.Load(ctx, plans)
	if err != nil {
		return "", err
	}
	plan, ok := cat.Lookup(planID)
	if !ok {
		return "", fmt.Errorf("%w: %s", catalog.ErrPlanNotFound, planID)
	}
	priceID := plan.PriceID(cycle)
	if priceID == "" {
		return "", fmt.Errorf("%w: %s/%s", ErrMissingPriceID, plan.ID, cycle)
	}

	item := paddle.NewCreateTransactionItemsTransactionItemFromCatalog(&paddle.TransactionItemFromCatalog{
		PriceID:  priceID,
		Quantity: 1,
	})

	req := &paddle.CreateTransactionRequest{
		Items: []paddle.CreateTransactionItems{*item},
		CustomData: paddle.CustomData{
			"project_id":    projectID,
			"plan_id":       plan.ID,
			"billing_cycle": string(cycle),
		},
	}
	if p.successURL != "" {
		req.Checkout = &paddle.TransactionCheckout{
			URL: paddle.PtrTo(p.successURL),
		}
	}

	txn, err := p.txns.CreateTransaction(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to create paddle transaction: %w", err)
	}
	if txn == nil || txn.Checkout == nil || txn.Checkout.URL == nil {
		return "", ErrNoCheckoutURL
	}

	p.log.InfoContext(ctx, "paddle checkout created",
		logger.ProjectID(projectID),
		logger.Plan(plan.ID),
		slog.String("transaction_id", txn.ID),
	)

	return *txn.Checkout.URL, nil
}

// Wrap returns api with StartSubscription routed through Paddle whenever
// the product API does not hand back its own checkout URL.
func (p *PaddleStarter) Wrap(api checkout.SubscriptionAPI, plans catalog.Source) checkout.SubscriptionAPI {
	if api == nil || plans == nil {
		panic("billingapi: subscription API and plan source are required")
	}
	return &hostedCheckout{SubscriptionAPI: api, plans: plans, starter: p}
}

type hostedCheckout struct {
	checkout.SubscriptionAPI
	plans   catalog.Source
	starter *PaddleStarter
}

func (h *hostedCheckout) StartSubscription(ctx context.Context, projectID, planID string, cycle catalog.BillingCycle) (string, error) {
	url, err := h.SubscriptionAPI.StartSubscription(ctx, projectID, planID, cycle)
	if err != nil || url != "" {
		return url, err
	}

	url, err = h.starter.StartCheckout(ctx, h.plans, projectID, planID, cycle)
	if err != nil {
		return "", &checkout.APIError{Message: err.Error(), Err: err}
	}
	return url, nil
}
