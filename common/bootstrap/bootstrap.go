package bootstrap

import (
	"context"
	"fmt"

	"github.com/xform-media/xform/common/config"
	"github.com/xform-media/xform/common/logger"
	"github.com/xform-media/xform/common/tenant"
)

// Setup initializes all service components
// This is the main entry point for all services
func Setup(ctx context.Context, serviceName string, opts ...Option) (*Components, error) {
	// Apply options
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	components := &Components{
		cleanupFuncs: make([]func() error, 0),
	}

	// 1. Load configuration
	var err error
	if options.customConfig != nil {
		components.Config = options.customConfig
	} else {
		components.Config, err = config.Load(serviceName)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	// 2. Initialize logger
	if options.customLogger != nil {
		components.Logger = options.customLogger
	} else {
		components.Logger = logger.New(
			components.Config.Service.LogLevel,
			components.Config.Service.LogFormat,
		)
	}

	components.Logger.Info("initializing service",
		"service", serviceName,
		"environment", components.Config.Service.Environment,
	)

	// 3. Load the tenant registry (if not skipped)
	if !options.skipRegistry {
		if options.customRegistry != nil {
			components.Registry = options.customRegistry
		} else {
			components.Logger.Info("loading tenant registry",
				"path", components.Config.Proxy.SourcesPath,
			)
			components.Registry, err = tenant.Load(components.Config.Proxy.SourcesPath)
			if err != nil {
				return nil, fmt.Errorf("failed to load tenant registry: %w", err)
			}
		}
	}

	components.Logger.Info("service initialized", "service", serviceName)

	return components, nil
}
