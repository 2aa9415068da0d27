package catalog

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Source defines how plans are loaded into a catalog.
type Source interface {
	FetchPlans(ctx context.Context) ([]Plan, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context) ([]Plan, error)

func (f SourceFunc) FetchPlans(ctx context.Context) ([]Plan, error) {
	return f(ctx)
}

// Catalog is a rank-ordered, read-only set of plans.
type Catalog struct {
	plans  []Plan
	byName map[string]int
	byID   map[string]int
}

// Load fetches plans from src and builds a catalog sorted by rank ascending.
// Remote failures are reported as ErrFetchFailed.
func Load(ctx context.Context, src Source) (*Catalog, error) {
	if src == nil {
		panic("catalog: Source is required")
	}

	plans, err := src.FetchPlans(ctx)
	if err != nil {
		return nil, errors.Join(ErrFetchFailed, err)
	}

	return New(plans)
}

// New builds a catalog from an already fetched list of plans.
func New(plans []Plan) (*Catalog, error) {
	if len(plans) == 0 {
		return nil, ErrEmptyCatalog
	}

	sorted := slices.Clone(plans)
	slices.SortStableFunc(sorted, func(a, b Plan) int {
		return a.Rank - b.Rank
	})

	if err := validatePlans(sorted); err != nil {
		return nil, err
	}

	c := &Catalog{
		plans:  sorted,
		byName: make(map[string]int, len(sorted)),
		byID:   make(map[string]int, len(sorted)),
	}
	for i, p := range sorted {
		c.byName[normalize(p.Name)] = i
		if p.ID != "" {
			c.byID[p.ID] = i
		}
	}

	return c, nil
}

// Plans returns a copy of the plans ordered by rank, lowest tier first.
func (c *Catalog) Plans() []Plan {
	return slices.Clone(c.plans)
}

// Len returns the number of plans.
func (c *Catalog) Len() int {
	return len(c.plans)
}

// Lookup resolves a plan by name (case-insensitive) or, failing that, by ID.
func (c *Catalog) Lookup(nameOrID string) (Plan, bool) {
	if i, ok := c.byName[normalize(nameOrID)]; ok {
		return c.plans[i], true
	}
	if i, ok := c.byID[strings.TrimSpace(nameOrID)]; ok {
		return c.plans[i], true
	}
	return Plan{}, false
}

// RankOf returns the rank of the named plan.
// Unresolved names report false and mean "no current plan".
func (c *Catalog) RankOf(nameOrID string) (int, bool) {
	p, ok := c.Lookup(nameOrID)
	if !ok {
		return 0, false
	}
	return p.Rank, true
}

// ByToken resolves a deep-link plan-type token such as "pro".
func (c *Catalog) ByToken(token string) (Plan, bool) {
	token = normalize(token)
	if token == "" {
		return Plan{}, false
	}
	for _, p := range c.plans {
		if p.Token() == token || strings.EqualFold(p.ID, token) {
			return p, true
		}
	}
	return Plan{}, false
}

// ByRank returns the plan with the given rank.
func (c *Catalog) ByRank(rank int) (Plan, bool) {
	i, found := slices.BinarySearchFunc(c.plans, rank, func(p Plan, r int) int {
		return p.Rank - r
	})
	if !found {
		return Plan{}, false
	}
	return c.plans[i], true
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// validatePlans ensures plan configurations are internally consistent.
// Expects plans already sorted by rank.
// MaxPriceAmount bounds listed prices in minor units. Three months of the
// largest monthly price plus tax stays far inside int64.
const MaxPriceAmount int64 = 1_000_000_000_000_000

func validatePlans(plans []Plan) error {
	names := make(map[string]struct{}, len(plans))
	for i, p := range plans {
		if strings.TrimSpace(p.Name) == "" {
			return errors.Join(ErrInvalidPlanConfiguration,
				fmt.Errorf("plan at position %d has no name", i))
		}
		if _, dup := names[normalize(p.Name)]; dup {
			return errors.Join(ErrInvalidPlanConfiguration,
				fmt.Errorf("duplicate plan name %q", p.Name))
		}
		names[normalize(p.Name)] = struct{}{}

		if i > 0 && plans[i-1].Rank == p.Rank {
			return errors.Join(ErrInvalidPlanConfiguration,
				fmt.Errorf("plans %q and %q share rank %d", plans[i-1].Name, p.Name, p.Rank))
		}
		if p.MonthlyPrice.Amount < 0 || p.QuarterlyPrice.Amount < 0 {
			return errors.Join(ErrInvalidPlanConfiguration,
				fmt.Errorf("plan %q has a negative price", p.Name))
		}
		if p.MonthlyPrice.Amount > MaxPriceAmount || p.QuarterlyPrice.Amount > MaxPriceAmount {
			return errors.Join(ErrInvalidPlanConfiguration,
				fmt.Errorf("plan %q has a price above %d", p.Name, MaxPriceAmount))
		}
	}
	return nil
}
