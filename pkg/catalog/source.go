package catalog

import (
	"context"
	"errors"
	"io"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"
)

type inMemSource struct {
	mu    sync.RWMutex
	plans []Plan
}

// NewInMemSource returns an in-memory Source holding a copy of the given plans.
// Panics if no plans are provided.
func NewInMemSource(plans ...Plan) Source {
	if len(plans) < 1 {
		panic("catalog: at least one plan is required")
	}
	return &inMemSource{plans: slices.Clone(plans)}
}

// FetchPlans returns a copy so callers cannot modify the source's state.
func (s *inMemSource) FetchPlans(ctx context.Context) ([]Plan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.plans), nil
}

type yamlDocument struct {
	Plans []Plan `yaml:"plans"`
}

// NewYAMLSource parses a YAML document of the form
//
//	plans:
//	  - id: plan_basic
//	    name: Basic
//	    rank: 1
//	    monthly_price: {amount: 9900, currency: KRW}
//	    quarterly_price: {amount: 26700, currency: KRW}
//
// and returns an in-memory Source with its plans.
func NewYAMLSource(r io.Reader) (Source, error) {
	var doc yamlDocument
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errors.Join(ErrFailedToParseYAML, err)
	}
	if len(doc.Plans) == 0 {
		return nil, errors.Join(ErrFailedToParseYAML, ErrEmptyCatalog)
	}
	return &inMemSource{plans: doc.Plans}, nil
}
