// Package actuator exposes operational endpoints on the web module:
// health, build info, module states, metrics and the log level.
package actuator

import (
	"context"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/skekre98/zamt/config"
	"github.com/skekre98/zamt/core"
	"github.com/skekre98/zamt/logging"
	"github.com/skekre98/zamt/metrics"
	"github.com/skekre98/zamt/web"
)

const Name = "actuator"

const (
	StatusUp   = "UP"
	StatusDown = "DOWN"
)

type Module struct {
	core.Base

	started time.Time
}

func New() *Module { return &Module{} }

func (m *Module) Name() string        { return Name }
func (m *Module) DependsOn() []string { return []string{web.Name} }

func (m *Module) Initialize(_ context.Context, c core.Center) error {
	srv, err := core.Lookup[*web.Module](c, web.Name)
	if err != nil {
		return err
	}
	cfg, err := core.Get[config.Root](c)
	if err != nil {
		return err
	}
	insp, err := core.Get[core.Inspector](c)
	if err != nil {
		return err
	}
	m.started = time.Now()

	srv.Mount(func(r web.Router) {
		group := r.Group(cfg.Actuator.BasePath)
		group.GET("/health", health(insp))
		group.GET("/modules", func(ctx *gin.Context) {
			ctx.JSON(http.StatusOK, gin.H{"modules": insp.Statuses()})
		})
		group.GET("/info", m.info(cfg))

		if cfg.Observability.Metrics.Enabled {
			var g prometheus.Gatherer = prometheus.DefaultGatherer
			if reg, ok := core.Find[*prometheus.Registry](c); ok {
				g = reg
			}
			path := cfg.Observability.Metrics.Path
			if path == "" {
				path = "/metrics"
			}
			group.GET(path, gin.WrapH(metrics.Handler(g)))
		}

		if l, ok := core.Find[*logging.Logger](c); ok {
			level := l.Handler()
			group.GET("/loglevel", gin.WrapH(level))
			group.PUT("/loglevel", gin.WrapH(level))
		}
	})
	return nil
}

// health is UP while no module has failed. Modules still starting or
// already stopping count as up; only StateFailed brings the service down.
func health(insp core.Inspector) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		status := StatusUp
		checks := make([]gin.H, 0)
		for _, s := range insp.Statuses() {
			check := gin.H{"name": s.Name, "state": s.State, "status": StatusUp}
			if s.State == core.StateFailed {
				check["status"] = StatusDown
				check["error"] = s.Error
				status = StatusDown
			}
			checks = append(checks, check)
		}

		code := http.StatusOK
		if status == StatusDown {
			code = http.StatusServiceUnavailable
		}
		ctx.JSON(code, gin.H{"status": status, "checks": checks})
	}
}

func (m *Module) info(cfg config.Root) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{
			"app": gin.H{
				"name":    cfg.App.Name,
				"version": cfg.App.Version,
			},
			"runtime": gin.H{
				"go":           runtime.Version(),
				"numGoroutine": runtime.NumGoroutine(),
				"time":         time.Now().UTC().Format(time.RFC3339),
				"uptime":       time.Since(m.started).Round(time.Second).String(),
				"pid":          os.Getpid(),
			},
		})
	}
}
