package billingapi

import "time"

// Config holds product API client settings.
type Config struct {
	BaseURL     string        `env:"BILLING_API_URL,required"`
	Timeout     time.Duration `env:"BILLING_API_TIMEOUT" envDefault:"10s"`
	RefreshPath string        `env:"BILLING_API_REFRESH_PATH" envDefault:"/auth/refresh"`
}

// PaddleConfig holds Paddle hosted checkout settings. Hosted checkout is
// enabled only when APIKey is set.
type PaddleConfig struct {
	APIKey      string `env:"PADDLE_API_KEY"`
	Environment string `env:"PADDLE_ENVIRONMENT" envDefault:"production"`
	SuccessURL  string `env:"PADDLE_CHECKOUT_SUCCESS_URL"`
}

// Enabled reports whether hosted checkout is configured.
func (c PaddleConfig) Enabled() bool {
	return c.APIKey != ""
}
