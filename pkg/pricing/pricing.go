// Package pricing computes the amount due for a checkout.
//
// Tax is always floor(subtotal × rate), applied once on the tax component
// only; the subtotal is never rounded. Upgrades are charged the server-computed
// proration instead of the listed price, and a quote for an upgrade cannot be
// produced until that estimate is known.
package pricing

import (
	"errors"

	"github.com/dmitrymomot/checkoutkit/pkg/catalog"
	"github.com/dmitrymomot/checkoutkit/pkg/transition"
)

// DefaultTaxRateBasisPoints is 10%.
const DefaultTaxRateBasisPoints int64 = 1000

const basisPoints int64 = 10000

var (
	ErrEstimateRequired = errors.New("upgrade quote requires a proration estimate")
	ErrNotQuotable      = errors.New("blocked transitions cannot be quoted")
	ErrInvalidCycle     = errors.New("invalid billing cycle for quote")
)

// PriceQuote is the price breakdown shown at checkout.
type PriceQuote struct {
	Subtotal catalog.Money  `json:"subtotal"`
	Tax      catalog.Money  `json:"tax"`
	Total    catalog.Money  `json:"total"`
	Strike   *catalog.Money `json:"strikethrough_total,omitempty"` // "was X" anchor
}

// Option adjusts a single quote.
type Option func(*quoteConfig)

type quoteConfig struct {
	proration *catalog.Money
	coupon    bool
}

// WithProration supplies the server-computed upgrade cost.
func WithProration(amount catalog.Money) Option {
	return func(c *quoteConfig) {
		c.proration = &amount
	}
}

// WithCoupon marks the quote as a coupon activation: the total is zero and the
// strikethrough shows what the displayed plan would have cost.
func WithCoupon() Option {
	return func(c *quoteConfig) {
		c.coupon = true
	}
}

// Config holds the tax rate in basis points.
type Config struct {
	TaxRateBasisPoints int64 `env:"PRICING_TAX_RATE_BPS" envDefault:"1000"`
}

// NewFromConfig returns a calculator for cfg.
func NewFromConfig(cfg Config) *Calculator {
	return NewCalculator(cfg.TaxRateBasisPoints)
}

// Calculator produces quotes with a fixed tax rate.
type Calculator struct {
	taxRate int64 // basis points
}

// NewCalculator returns a calculator using the given tax rate in basis points.
// Panics on a rate outside 0..100%.
func NewCalculator(taxRateBasisPoints int64) *Calculator {
	if taxRateBasisPoints < 0 || taxRateBasisPoints > basisPoints {
		panic("pricing: tax rate must be between 0 and 10000 basis points")
	}
	return &Calculator{taxRate: taxRateBasisPoints}
}

// Default is the calculator with the standard 10% tax rate.
var Default = NewCalculator(DefaultTaxRateBasisPoints)

// Quote uses the Default calculator.
func Quote(plan catalog.Plan, cycle catalog.BillingCycle, verdict transition.Verdict, opts ...Option) (PriceQuote, error) {
	return Default.Quote(plan, cycle, verdict, opts...)
}

// Tax returns floor(subtotal × rate). The subtotal is split into whole
// basis-point units and a remainder so no intermediate product exceeds the
// tax itself.
func (c *Calculator) Tax(subtotal catalog.Money) catalog.Money {
	units, rest := subtotal.Amount/basisPoints, subtotal.Amount%basisPoints
	tax := units*c.taxRate + floorDiv(rest*c.taxRate, basisPoints)
	return catalog.Money{Amount: tax, Currency: subtotal.Currency}
}

// floorDiv divides rounding toward negative infinity, so credits round the
// same way as charges.
func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

// Quote computes the price for plan and cycle under the given verdict.
func (c *Calculator) Quote(plan catalog.Plan, cycle catalog.BillingCycle, verdict transition.Verdict, opts ...Option) (PriceQuote, error) {
	if !cycle.Valid() {
		return PriceQuote{}, ErrInvalidCycle
	}
	if verdict.IsBlocked() {
		return PriceQuote{}, ErrNotQuotable
	}

	cfg := &quoteConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.coupon || verdict.Kind == transition.KindCouponActivation {
		// Anchor on the displayed plan's listed price, not the coupon's plan.
		listed := plan.Price(cycle)
		tax := c.Tax(listed)
		strike := listed.Add(tax)
		return PriceQuote{
			Subtotal: listed,
			Tax:      tax,
			Total:    listed.Zero(),
			Strike:   &strike,
		}, nil
	}

	subtotal := plan.Price(cycle)
	if verdict.Kind == transition.KindUpgrade {
		if cfg.proration == nil {
			return PriceQuote{}, ErrEstimateRequired
		}
		subtotal = *cfg.proration
		if subtotal.Currency == "" {
			subtotal.Currency = plan.Price(cycle).Currency
		}
	}

	tax := c.Tax(subtotal)
	q := PriceQuote{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal.Add(tax),
	}

	if cycle == catalog.Quarterly {
		threeMonths := plan.MonthlyPrice.Times(3)
		strike := threeMonths.Add(c.Tax(threeMonths))
		q.Strike = &strike
	}

	return q, nil
}
