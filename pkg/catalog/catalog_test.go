package catalog_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/checkoutkit/pkg/catalog"
)

func krw(amount int64) catalog.Money {
	return catalog.Money{Amount: amount, Currency: "KRW"}
}

func testPlans() []catalog.Plan {
	return []catalog.Plan{
		{ID: "3", Name: "Enterprise", Rank: 3, MonthlyPrice: krw(99000), QuarterlyPrice: krw(267300)},
		{ID: "1", Name: "Basic", Rank: 1, MonthlyPrice: krw(9900), QuarterlyPrice: krw(26700)},
		{ID: "2", Name: "Pro", Rank: 2, MonthlyPrice: krw(29900), QuarterlyPrice: krw(80700)},
	}
}

func TestLoad_SortsByRank(t *testing.T) {
	t.Parallel()

	cat, err := catalog.Load(context.Background(), catalog.NewInMemSource(testPlans()...))
	require.NoError(t, err)

	plans := cat.Plans()
	require.Len(t, plans, 3)
	assert.Equal(t, "Basic", plans[0].Name)
	assert.Equal(t, "Pro", plans[1].Name)
	assert.Equal(t, "Enterprise", plans[2].Name)
}

func TestLoad_FetchFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("connection refused")
	src := catalog.SourceFunc(func(context.Context) ([]catalog.Plan, error) {
		return nil, boom
	})

	cat, err := catalog.Load(context.Background(), src)
	assert.Nil(t, cat)
	assert.ErrorIs(t, err, catalog.ErrFetchFailed)
	assert.ErrorIs(t, err, boom)
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		plans []catalog.Plan
		want  error
	}{
		{name: "empty", plans: nil, want: catalog.ErrEmptyCatalog},
		{
			name: "duplicate rank",
			plans: []catalog.Plan{
				{Name: "Basic", Rank: 1},
				{Name: "Pro", Rank: 1},
			},
			want: catalog.ErrInvalidPlanConfiguration,
		},
		{
			name: "duplicate name ignoring case",
			plans: []catalog.Plan{
				{Name: "Pro", Rank: 1},
				{Name: "PRO", Rank: 2},
			},
			want: catalog.ErrInvalidPlanConfiguration,
		},
		{
			name:  "negative price",
			plans: []catalog.Plan{{Name: "Basic", Rank: 1, MonthlyPrice: krw(-1)}},
			want:  catalog.ErrInvalidPlanConfiguration,
		},
		{
			name:  "price too large",
			plans: []catalog.Plan{{Name: "Basic", Rank: 1, QuarterlyPrice: krw(catalog.MaxPriceAmount + 1)}},
			want:  catalog.ErrInvalidPlanConfiguration,
		},
		{
			name:  "missing name",
			plans: []catalog.Plan{{Rank: 1}},
			want:  catalog.ErrInvalidPlanConfiguration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := catalog.New(tt.plans)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCatalog_RankOf(t *testing.T) {
	t.Parallel()

	cat, err := catalog.New(testPlans())
	require.NoError(t, err)

	t.Run("resolves names case-insensitively", func(t *testing.T) {
		t.Parallel()
		for _, name := range []string{"pro", "Pro", "PRO", "  pro "} {
			rank, ok := cat.RankOf(name)
			assert.True(t, ok, name)
			assert.Equal(t, 2, rank, name)
		}
	})

	t.Run("falls back to id", func(t *testing.T) {
		t.Parallel()
		rank, ok := cat.RankOf("3")
		assert.True(t, ok)
		assert.Equal(t, 3, rank)
	})

	t.Run("unknown name is no current plan", func(t *testing.T) {
		t.Parallel()
		rank, ok := cat.RankOf("Legacy Gold")
		assert.False(t, ok)
		assert.Zero(t, rank)
	})
}

func TestCatalog_ByToken(t *testing.T) {
	t.Parallel()

	cat, err := catalog.New(testPlans())
	require.NoError(t, err)

	p, ok := cat.ByToken("pro")
	require.True(t, ok)
	assert.Equal(t, "Pro", p.Name)

	_, ok = cat.ByToken("")
	assert.False(t, ok)

	_, ok = cat.ByToken("platinum")
	assert.False(t, ok)
}

func TestCatalog_ByRank(t *testing.T) {
	t.Parallel()

	cat, err := catalog.New(testPlans())
	require.NoError(t, err)

	p, ok := cat.ByRank(3)
	require.True(t, ok)
	assert.Equal(t, "Enterprise", p.Name)

	_, ok = cat.ByRank(7)
	assert.False(t, ok)
}

func TestCatalog_PlansReturnsCopy(t *testing.T) {
	t.Parallel()

	cat, err := catalog.New(testPlans())
	require.NoError(t, err)

	plans := cat.Plans()
	plans[0].Name = "Mutated"

	assert.Equal(t, "Basic", cat.Plans()[0].Name)
}

func TestParseBillingCycle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want catalog.BillingCycle
	}{
		{"monthly", catalog.Monthly},
		{"MONTHLY", catalog.Monthly},
		{"quarterly", catalog.Quarterly},
		{"yearly", catalog.Quarterly},
	}
	for _, tt := range tests {
		got, err := catalog.ParseBillingCycle(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := catalog.ParseBillingCycle("weekly")
	assert.ErrorIs(t, err, catalog.ErrUnknownBillingCycle)

	assert.Equal(t, "yearly", catalog.Quarterly.Token())
	assert.Equal(t, "monthly", catalog.Monthly.Token())
}

func TestPlan_Price(t *testing.T) {
	t.Parallel()

	p := catalog.Plan{
		Name:             "Pro",
		MonthlyPrice:     krw(29900),
		QuarterlyPrice:   krw(80700),
		MonthlyPriceID:   "pri_m",
		QuarterlyPriceID: "pri_q",
	}

	assert.Equal(t, krw(29900), p.Price(catalog.Monthly))
	assert.Equal(t, krw(80700), p.Price(catalog.Quarterly))
	assert.Equal(t, "pri_m", p.PriceID(catalog.Monthly))
	assert.Equal(t, "pri_q", p.PriceID(catalog.Quarterly))
}

func TestNewYAMLSource(t *testing.T) {
	t.Parallel()

	doc := `
plans:
  - id: plan_pro
    name: Pro
    rank: 2
    monthly_price: {amount: 29900, currency: KRW}
    quarterly_price: {amount: 80700, currency: KRW}
    member_limit: 20
  - id: plan_basic
    name: Basic
    rank: 1
    monthly_price: {amount: 9900, currency: KRW}
    quarterly_price: {amount: 26700, currency: KRW}
    member_limit: 5
`
	src, err := catalog.NewYAMLSource(strings.NewReader(doc))
	require.NoError(t, err)

	cat, err := catalog.Load(context.Background(), src)
	require.NoError(t, err)

	plans := cat.Plans()
	require.Len(t, plans, 2)
	assert.Equal(t, "Basic", plans[0].Name)
	assert.Equal(t, int64(20), plans[1].MemberLimit)
	assert.Equal(t, krw(80700), plans[1].QuarterlyPrice)

	_, err = catalog.NewYAMLSource(strings.NewReader("plans: ["))
	assert.ErrorIs(t, err, catalog.ErrFailedToParseYAML)

	_, err = catalog.NewYAMLSource(strings.NewReader("plans: []"))
	assert.ErrorIs(t, err, catalog.ErrEmptyCatalog)
}

func TestMoney_String(t *testing.T) {
	t.Parallel()

	assert.NotEmpty(t, krw(9900).String())
	assert.Contains(t, catalog.Money{Amount: 5, Currency: "???"}.String(), "5")
}
