package bootstrap

import (
	"context"
	"fmt"

	"github.com/xform-media/xform/common/config"
	"github.com/xform-media/xform/common/logger"
	"github.com/xform-media/xform/common/tenant"
)

// Components holds all initialized service dependencies
type Components struct {
	Config   *config.Config
	Logger   *logger.Logger
	Registry *tenant.Registry

	// Internal
	cleanupFuncs []func() error
}

// Shutdown performs graceful shutdown of all components
// Should be called with defer after Setup()
func (c *Components) Shutdown(ctx context.Context) error {
	c.Logger.Info("shutting down components")

	var errors []error

	// Run cleanup functions in reverse order (LIFO)
	for i := len(c.cleanupFuncs) - 1; i >= 0; i-- {
		if err := c.cleanupFuncs[i](); err != nil {
			errors = append(errors, err)
			c.Logger.Error("cleanup error", "error", err)
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("shutdown errors: %v", errors)
	}

	c.Logger.Info("shutdown complete")
	return nil
}

// AddCleanup registers a cleanup function run during Shutdown
func (c *Components) AddCleanup(fn func() error) {
	c.cleanupFuncs = append(c.cleanupFuncs, fn)
}
