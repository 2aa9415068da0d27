// Package config loads typed configuration from environment variables.
//
// It wraps `github.com/joho/godotenv` and `github.com/caarlos0/env/v11`:
// .env files are read first (never overriding variables already set), then
// the environment is parsed into a struct using `env` and `envDefault` tags.
// Structs implementing Validator are checked after parsing.
//
// # Usage
//
//	type ServiceConfig struct {
//		Addr    string        `env:"HTTP_ADDR" envDefault:":8080"`
//		Timeout time.Duration `env:"BILLING_API_TIMEOUT" envDefault:"10s"`
//	}
//
//	cfg, err := config.Load[ServiceConfig]()
//	if err != nil {
//		return err
//	}
//
// Nested structs are parsed in place, so a service can compose the configs
// of the packages it wires:
//
//	type App struct {
//		HTTP    httpserver.Config
//		Billing billingapi.Config
//	}
//
// Tests pass variables explicitly with WithEnvironment and never touch the
// process environment.
package config
