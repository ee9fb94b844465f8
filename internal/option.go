package internal

import "time"

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config           *Config
	progressThrottle time.Duration
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithProgressThrottle caps how often backup.progress events reach SSE
// clients. Zero keeps the broker default.
func WithProgressThrottle(d time.Duration) Option {
	return func(a *application) {
		a.progressThrottle = d
	}
}
