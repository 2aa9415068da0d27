package billingapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/dmitrymomot/checkoutkit/pkg/catalog"
	"github.com/dmitrymomot/checkoutkit/pkg/checkout"
	"github.com/dmitrymomot/checkoutkit/pkg/transition"
)

type plansResponse struct {
	Plans []catalog.Plan `json:"plans"`
}

type projectsResponse struct {
	Projects []catalog.Project `json:"projects"`
}

type createProjectRequest struct {
	Name    string `json:"name"`
	LogoURL string `json:"logo_url,omitempty"`
}

type subscriptionResponse struct {
	PlanName     string `json:"plan_name"`
	PlanRank     int    `json:"plan_rank"`
	BillingCycle string `json:"billing_cycle"`
	Status       string `json:"status"`
}

type planChangeRequest struct {
	PlanID       string               `json:"plan_id"`
	BillingCycle catalog.BillingCycle `json:"billing_cycle"`
}

type estimateResponse struct {
	AdditionalCost catalog.Money `json:"additional_cost"`
}

type startResponse struct {
	CheckoutURL string `json:"checkout_url"`
}

type couponRequest struct {
	Code string `json:"code"`
}

func projectPath(projectID, suffix string) string {
	return "/projects/" + url.PathEscape(projectID) + suffix
}

// FetchPlans implements catalog.Source.
func (s *Session) FetchPlans(ctx context.Context) ([]catalog.Plan, error) {
	var out plansResponse
	if err := s.do(ctx, http.MethodGet, "/plans", nil, &out); err != nil {
		return nil, err
	}
	return out.Plans, nil
}

// FetchCurrentSubscription returns nil without error when the project has
// never subscribed (the API answers 404).
func (s *Session) FetchCurrentSubscription(ctx context.Context, projectID string) (*transition.CurrentSubscription, error) {
	var out subscriptionResponse
	err := s.do(ctx, http.MethodGet, projectPath(projectID, "/subscription"), nil, &out)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	cycle, err := catalog.ParseBillingCycle(out.BillingCycle)
	if err != nil {
		return nil, errors.Join(ErrUnexpectedResponse, err)
	}

	return &transition.CurrentSubscription{
		PlanRank:     out.PlanRank,
		PlanName:     out.PlanName,
		BillingCycle: cycle,
		Status:       out.Status,
	}, nil
}

func (s *Session) EstimateUpgradeCost(ctx context.Context, projectID, planID string, cycle catalog.BillingCycle) (catalog.Money, error) {
	var out estimateResponse
	req := planChangeRequest{PlanID: planID, BillingCycle: cycle}
	if err := s.do(ctx, http.MethodPost, projectPath(projectID, "/subscription/estimate"), req, &out); err != nil {
		return catalog.Money{}, err
	}
	return out.AdditionalCost, nil
}

func (s *Session) StartSubscription(ctx context.Context, projectID, planID string, cycle catalog.BillingCycle) (string, error) {
	var out startResponse
	req := planChangeRequest{PlanID: planID, BillingCycle: cycle}
	if err := s.do(ctx, http.MethodPost, projectPath(projectID, "/subscription"), req, &out); err != nil {
		return "", err
	}
	return out.CheckoutURL, nil
}

func (s *Session) ChangePlan(ctx context.Context, projectID, planID string, cycle catalog.BillingCycle) error {
	req := planChangeRequest{PlanID: planID, BillingCycle: cycle}
	return s.do(ctx, http.MethodPut, projectPath(projectID, "/subscription"), req, nil)
}

func (s *Session) ApplyCoupon(ctx context.Context, projectID, code string) error {
	return s.do(ctx, http.MethodPost, projectPath(projectID, "/coupons"), couponRequest{Code: code}, nil)
}

func (s *Session) ListProjects(ctx context.Context) ([]catalog.Project, error) {
	var out projectsResponse
	if err := s.do(ctx, http.MethodGet, "/projects", nil, &out); err != nil {
		return nil, err
	}
	return out.Projects, nil
}

func (s *Session) CreateProject(ctx context.Context, name, logoURL string) (catalog.Project, error) {
	var out catalog.Project
	req := createProjectRequest{Name: name, LogoURL: logoURL}
	if err := s.do(ctx, http.MethodPost, "/projects", req, &out); err != nil {
		return catalog.Project{}, err
	}
	if out.ID == "" {
		return catalog.Project{}, fmt.Errorf("%w: created project has no id", ErrUnexpectedResponse)
	}
	return out, nil
}

// Me asks the API whether the session is signed in. An unauthenticated
// answer is (false, nil), not an error.
func (s *Session) Me(ctx context.Context) (bool, error) {
	err := s.do(ctx, http.MethodGet, "/me", nil, nil)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, checkout.ErrUnauthenticated):
		return false, nil
	default:
		return false, err
	}
}
