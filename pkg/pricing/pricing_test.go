package pricing_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/checkoutkit/pkg/catalog"
	"github.com/dmitrymomot/checkoutkit/pkg/pricing"
	"github.com/dmitrymomot/checkoutkit/pkg/transition"
)

func krw(amount int64) catalog.Money {
	return catalog.Money{Amount: amount, Currency: "KRW"}
}

var pro = catalog.Plan{
	ID:             "2",
	Name:           "Pro",
	Rank:           2,
	MonthlyPrice:   krw(29900),
	QuarterlyPrice: krw(80700),
}

func TestQuote_TaxFloor(t *testing.T) {
	t.Parallel()

	plan := catalog.Plan{Name: "Odd", Rank: 1, MonthlyPrice: krw(12345)}
	q, err := pricing.Quote(plan, catalog.Monthly, transition.NewSubscription())
	require.NoError(t, err)

	assert.Equal(t, krw(12345), q.Subtotal)
	assert.Equal(t, krw(1234), q.Tax)
	assert.Equal(t, krw(13579), q.Total)
	assert.Nil(t, q.Strike)
}

func TestQuote_MonthlyListPrice(t *testing.T) {
	t.Parallel()

	q, err := pricing.Quote(pro, catalog.Monthly, transition.LateralOrDowngrade())
	require.NoError(t, err)

	assert.Equal(t, krw(29900), q.Subtotal)
	assert.Equal(t, krw(2990), q.Tax)
	assert.Equal(t, krw(32890), q.Total)
	assert.Nil(t, q.Strike)
}

func TestQuote_QuarterlyStrikethrough(t *testing.T) {
	t.Parallel()

	q, err := pricing.Quote(pro, catalog.Quarterly, transition.NewSubscription())
	require.NoError(t, err)

	assert.Equal(t, krw(80700), q.Subtotal)
	assert.Equal(t, krw(8070), q.Tax)
	assert.Equal(t, krw(88770), q.Total)
	require.NotNil(t, q.Strike)
	// 3 × 29900 = 89700, +8970 tax
	assert.Equal(t, krw(98670), *q.Strike)
}

func TestQuote_Upgrade(t *testing.T) {
	t.Parallel()

	t.Run("uses the proration estimate", func(t *testing.T) {
		t.Parallel()
		q, err := pricing.Quote(pro, catalog.Monthly, transition.Upgrade(), pricing.WithProration(krw(15000)))
		require.NoError(t, err)
		assert.Equal(t, krw(15000), q.Subtotal)
		assert.Equal(t, krw(1500), q.Tax)
		assert.Equal(t, krw(16500), q.Total)
	})

	t.Run("fills in missing currency", func(t *testing.T) {
		t.Parallel()
		q, err := pricing.Quote(pro, catalog.Monthly, transition.Upgrade(),
			pricing.WithProration(catalog.Money{Amount: 100}))
		require.NoError(t, err)
		assert.Equal(t, "KRW", q.Total.Currency)
	})

	t.Run("refuses to fall back to the list price", func(t *testing.T) {
		t.Parallel()
		_, err := pricing.Quote(pro, catalog.Monthly, transition.Upgrade())
		assert.ErrorIs(t, err, pricing.ErrEstimateRequired)
	})
}

func TestQuote_Coupon(t *testing.T) {
	t.Parallel()

	for _, cycle := range []catalog.BillingCycle{catalog.Monthly, catalog.Quarterly} {
		for _, verdict := range []transition.Verdict{transition.CouponActivation(), transition.NewSubscription()} {
			q, err := pricing.Quote(pro, cycle, verdict, pricing.WithCoupon())
			require.NoError(t, err)

			assert.Zero(t, q.Total.Amount)
			require.NotNil(t, q.Strike)
			assert.Equal(t, q.Subtotal.Amount+q.Subtotal.Amount*1000/10000, q.Strike.Amount)
			assert.Equal(t, pro.Price(cycle), q.Subtotal)
		}
	}
}

func TestQuote_Rejections(t *testing.T) {
	t.Parallel()

	_, err := pricing.Quote(pro, catalog.Monthly, transition.Blocked(transition.SamePlanSameCycle))
	assert.ErrorIs(t, err, pricing.ErrNotQuotable)

	_, err = pricing.Quote(pro, catalog.BillingCycle("weekly"), transition.NewSubscription())
	assert.ErrorIs(t, err, pricing.ErrInvalidCycle)
}

func TestCalculator_Tax(t *testing.T) {
	t.Parallel()

	calc := pricing.NewCalculator(pricing.DefaultTaxRateBasisPoints)

	tests := []struct {
		subtotal int64
		want     int64
	}{
		{0, 0},
		{9, 0},
		{10, 1},
		{12345, 1234},
		{-15, -2},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, calc.Tax(krw(tt.subtotal)).Amount, "subtotal %d", tt.subtotal)
	}

	zero := pricing.NewCalculator(0)
	assert.Zero(t, zero.Tax(krw(12345)).Amount)

	assert.Panics(t, func() { pricing.NewCalculator(-1) })
	assert.Panics(t, func() { pricing.NewCalculator(10001) })
	assert.NotPanics(t, func() { pricing.NewCalculator(10000) })
}

func TestCalculator_TaxLargeAmounts(t *testing.T) {
	t.Parallel()

	calc := pricing.NewCalculator(pricing.DefaultTaxRateBasisPoints)

	tests := []struct {
		name     string
		subtotal int64
		want     int64
	}{
		{"product would exceed int64", 10_000_000_000_000_000, 1_000_000_000_000_000},
		{"remainder is floored", 10_000_000_000_000_007, 1_000_000_000_000_000},
		{"credit is floored", -10_000_000_000_000_007, -1_000_000_000_000_001},
		{"largest int64", math.MaxInt64, math.MaxInt64 / 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, calc.Tax(krw(tt.subtotal)).Amount)
		})
	}

	full := pricing.NewCalculator(10000)
	assert.Equal(t, int64(math.MaxInt64), full.Tax(krw(math.MaxInt64)).Amount)
}

func TestNewFromConfig(t *testing.T) {
	t.Parallel()

	calc := pricing.NewFromConfig(pricing.Config{TaxRateBasisPoints: 500})
	q, err := calc.Quote(pro, catalog.Monthly, transition.NewSubscription())
	require.NoError(t, err)
	assert.Equal(t, krw(1495), q.Tax)
	assert.Equal(t, krw(31395), q.Total)
}
