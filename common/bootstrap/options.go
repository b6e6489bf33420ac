package bootstrap

import (
	"github.com/xform-media/xform/common/config"
	"github.com/xform-media/xform/common/logger"
	"github.com/xform-media/xform/common/tenant"
)

// Option configures the bootstrap process
type Option func(*options)

type options struct {
	skipRegistry   bool
	customLogger   *logger.Logger
	customConfig   *config.Config
	customRegistry *tenant.Registry
}

// WithoutRegistry skips tenant registry loading
func WithoutRegistry() Option {
	return func(o *options) {
		o.skipRegistry = true
	}
}

// WithCustomLogger uses a custom logger instead of creating one
func WithCustomLogger(log *logger.Logger) Option {
	return func(o *options) {
		o.customLogger = log
	}
}

// WithCustomConfig uses a custom config instead of loading from env
func WithCustomConfig(cfg *config.Config) Option {
	return func(o *options) {
		o.customConfig = cfg
	}
}

// WithCustomRegistry uses an already-built tenant registry
// Useful for tests that don't want to touch the filesystem
func WithCustomRegistry(r *tenant.Registry) Option {
	return func(o *options) {
		o.customRegistry = r
	}
}

func defaultOptions() *options {
	return &options{}
}
