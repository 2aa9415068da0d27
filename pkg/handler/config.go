package handler

import "time"

// Config holds the wizard session settings.
type Config struct {
	CookieName   string        `env:"CHECKOUT_SESSION_COOKIE" envDefault:"checkout_sid"`
	CookieSecure bool          `env:"CHECKOUT_SESSION_COOKIE_SECURE" envDefault:"true"`
	IdleTimeout  time.Duration `env:"CHECKOUT_SESSION_IDLE_TIMEOUT" envDefault:"30m"`
	SweepEvery   time.Duration `env:"CHECKOUT_SESSION_SWEEP_INTERVAL" envDefault:"1m"`
}

func (c Config) withDefaults() Config {
	if c.CookieName == "" {
		c.CookieName = "checkout_sid"
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 30 * time.Minute
	}
	if c.SweepEvery <= 0 {
		c.SweepEvery = time.Minute
	}
	return c
}
