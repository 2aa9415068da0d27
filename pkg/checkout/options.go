package checkout

import (
	"log/slog"

	"github.com/dmitrymomot/checkoutkit/pkg/pricing"
)

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger. Nil is ignored.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.log = l
		}
	}
}

// WithCalculator overrides the price calculator, e.g. for a different tax rate.
func WithCalculator(c *pricing.Calculator) Option {
	return func(o *Orchestrator) {
		if c != nil {
			o.calc = c
		}
	}
}

// WithSessionID tags every log record of this orchestrator with the wizard session id.
func WithSessionID(id string) Option {
	return func(o *Orchestrator) {
		o.sessionID = id
	}
}

// WithActiveProject sets the project the user is currently working in.
// Deep links without a projectId fall back to it.
func WithActiveProject(id string) Option {
	return func(o *Orchestrator) {
		o.activeProjectID = id
	}
}
