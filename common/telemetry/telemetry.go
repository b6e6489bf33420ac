// Package telemetry exposes the pprof debug server. It is bound to
// localhost and disabled unless a port is configured.
package telemetry

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"time"

	"github.com/xform-media/xform/common/logger"
)

// Debug serves the net/http/pprof handlers
type Debug struct {
	log    *logger.Logger
	addr   string
	server *http.Server
}

// New creates the debug server. A zero port disables it.
func New(pprofPort int, log *logger.Logger) *Debug {
	if pprofPort == 0 {
		return nil
	}
	return &Debug{
		log:  log,
		addr: fmt.Sprintf("localhost:%d", pprofPort),
	}
}

// Start serves pprof in the background
func (d *Debug) Start() {
	if d == nil {
		return
	}

	d.server = &http.Server{Addr: d.addr, Handler: http.DefaultServeMux}

	go func() {
		d.log.Info("pprof server starting", "addr", d.addr)
		if err := d.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			d.log.Error("pprof server error", "error", err)
		}
	}()
}

// Stop shuts the debug server down
func (d *Debug) Stop() error {
	if d == nil || d.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return d.server.Shutdown(ctx)
}
