package pending

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrymomot/checkoutkit/pkg/catalog"
	"github.com/dmitrymomot/checkoutkit/pkg/transition"
)

// Selection is a plan choice waiting for a project to exist.
type Selection struct {
	PlanName          string               `json:"plan_name"`
	BillingCycle      catalog.BillingCycle `json:"billing_cycle"`
	TransitionContext transition.Kind      `json:"transition_context,omitempty"`
	CreatedAt         time.Time            `json:"created_at"`
}

// Validate reports whether the selection can be stored.
func (s Selection) Validate() error {
	if strings.TrimSpace(s.PlanName) == "" {
		return fmt.Errorf("%w: plan name is empty", ErrInvalidSelection)
	}
	if !s.BillingCycle.Valid() {
		return fmt.Errorf("%w: billing cycle %q", ErrInvalidSelection, s.BillingCycle)
	}
	return nil
}

// Store persists at most one selection per key.
type Store interface {
	// Save stores sel under key, replacing any previous selection.
	Save(ctx context.Context, key string, sel Selection) error
	// Load returns the selection without removing it.
	Load(ctx context.Context, key string) (Selection, bool, error)
	// Take returns the selection and removes it in one step.
	Take(ctx context.Context, key string) (Selection, bool, error)
	// Delete removes the selection if present.
	Delete(ctx context.Context, key string) error
}

// Config holds pending selection settings.
type Config struct {
	TTL       time.Duration `env:"PENDING_SELECTION_TTL" envDefault:"1h"`
	KeyPrefix string        `env:"PENDING_SELECTION_KEY_PREFIX" envDefault:"checkout:pending:"`
}

// Queue is the single-slot pending selection queue of one wizard session.
type Queue struct {
	store Store
	key   string
	now   func() time.Time
}

// NewQueue binds a queue to the wizard session identified by key.
// Panics if store is nil or key is empty.
func NewQueue(store Store, key string) *Queue {
	if store == nil {
		panic("pending: Store is required")
	}
	if key == "" {
		panic("pending: " + ErrMissingKey.Error())
	}
	return &Queue{store: store, key: key, now: time.Now}
}

// Enqueue stores the selection; last write wins.
func (q *Queue) Enqueue(ctx context.Context, sel Selection) error {
	if err := sel.Validate(); err != nil {
		return err
	}
	if sel.CreatedAt.IsZero() {
		sel.CreatedAt = q.now().UTC()
	}
	return q.store.Save(ctx, q.key, sel)
}

// Drain returns the pending selection and clears the queue.
// A second Drain reports false.
func (q *Queue) Drain(ctx context.Context) (Selection, bool, error) {
	return q.store.Take(ctx, q.key)
}

// Peek returns the pending selection without consuming it.
func (q *Queue) Peek(ctx context.Context) (Selection, bool, error) {
	return q.store.Load(ctx, q.key)
}

// Discard drops the pending selection, e.g. when the wizard is abandoned.
func (q *Queue) Discard(ctx context.Context) error {
	return q.store.Delete(ctx, q.key)
}
