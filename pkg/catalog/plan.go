package catalog

import (
	"fmt"
	"strings"
)

// Money represents a monetary amount in the smallest currency unit.
// For example, ₩9,900 would be Amount: 9900, Currency: "KRW".
type Money struct {
	Amount   int64  `json:"amount" yaml:"amount"`
	Currency string `json:"currency" yaml:"currency"`
}

// Add returns the sum of two amounts. The currency of m wins when o has none.
func (m Money) Add(o Money) Money {
	return Money{Amount: m.Amount + o.Amount, Currency: m.Currency}
}

// Times multiplies the amount by n.
func (m Money) Times(n int64) Money {
	return Money{Amount: m.Amount * n, Currency: m.Currency}
}

// Zero returns a zero amount in the same currency.
func (m Money) Zero() Money {
	return Money{Currency: m.Currency}
}

// BillingCycle is the billing frequency of a subscription.
// Cycles are compared, never coerced into one another.
type BillingCycle string

const (
	Monthly   BillingCycle = "monthly"
	Quarterly BillingCycle = "quarterly"
)

// quarterlyAlias is how the checkout UI names the quarterly cycle in links.
const quarterlyAlias = "yearly"

// ParseBillingCycle parses a cycle token. The UI alias "yearly" maps to Quarterly.
func ParseBillingCycle(s string) (BillingCycle, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(Monthly):
		return Monthly, nil
	case string(Quarterly), quarterlyAlias:
		return Quarterly, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownBillingCycle, s)
	}
}

// Valid reports whether c is one of the known cycles.
func (c BillingCycle) Valid() bool {
	return c == Monthly || c == Quarterly
}

// Token returns the token used for the cycle in external links.
func (c BillingCycle) Token() string {
	if c == Quarterly {
		return quarterlyAlias
	}
	return string(c)
}

func (c BillingCycle) String() string {
	return string(c)
}

// Plan describes a subscription tier. Plans are immutable once loaded.
type Plan struct {
	ID               string `json:"id" yaml:"id"`
	Name             string `json:"name" yaml:"name"`
	Rank             int    `json:"rank" yaml:"rank"` // strictly increasing with tier
	MonthlyPrice     Money  `json:"monthly_price" yaml:"monthly_price"`
	QuarterlyPrice   Money  `json:"quarterly_price" yaml:"quarterly_price"`
	MemberLimit      int64  `json:"member_limit" yaml:"member_limit"`
	AIUsageLimit     int64  `json:"ai_usage_limit" yaml:"ai_usage_limit"`
	SMSUsageLimit    int64  `json:"sms_usage_limit" yaml:"sms_usage_limit"`
	MonthlyPriceID   string `json:"monthly_price_id,omitempty" yaml:"monthly_price_id"`     // provider price ID
	QuarterlyPriceID string `json:"quarterly_price_id,omitempty" yaml:"quarterly_price_id"` // provider price ID
}

// Price returns the listed price for the given cycle.
func (p Plan) Price(cycle BillingCycle) Money {
	if cycle == Quarterly {
		return p.QuarterlyPrice
	}
	return p.MonthlyPrice
}

// PriceID returns the provider price identifier for the given cycle.
func (p Plan) PriceID(cycle BillingCycle) string {
	if cycle == Quarterly {
		return p.QuarterlyPriceID
	}
	return p.MonthlyPriceID
}

// Token returns the lowercase plan-type token used in deep links.
func (p Plan) Token() string {
	return strings.ToLower(p.Name)
}

// Project is the minimal identity of a customer project.
type Project struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
