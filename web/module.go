package web

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/skekre98/zamt/config"
	"github.com/skekre98/zamt/core"
)

const Name = "web"

// Module serves HTTP on the address from config.Root. Modules that depend on
// web add their routes with Mount during their own Initialize; the listener
// opens in Start, after every module is initialized.
type Module struct {
	core.Base

	opts   Options
	logger *zap.Logger

	mu     sync.Mutex // guards engine route registration and ln
	engine *gin.Engine
	server *http.Server
	ln     net.Listener
	done   chan struct{}
}

func New(opts ...Option) *Module {
	var options Options
	for _, o := range opts {
		o(&options)
	}
	return &Module{opts: options}
}

func (m *Module) Name() string { return Name }

func (m *Module) Initialize(_ context.Context, c core.Center) error {
	cfg, err := core.Get[config.Root](c)
	if err != nil {
		return err
	}
	m.logger = c.Logger().Named(Name)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(RequestID(), RecoveryProblem(m.logger), AccessLog(m.logger))
	if len(m.opts.Middlewares) > 0 {
		r.Use(m.opts.Middlewares...)
	}
	for _, reg := range m.opts.Routes {
		reg(r)
	}

	m.engine = r
	m.server = &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return nil
}

// Mount lets f register routes. Safe to call from modules initialized in
// parallel.
func (m *Module) Mount(f func(r Router)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f(m.engine)
}

// Handler is the engine with every mounted route, for in-process serving.
func (m *Module) Handler() http.Handler {
	return m.engine
}

// Addr is the bound listener address once started, the configured one
// after Initialize, and empty before that.
func (m *Module) Addr() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ln != nil {
		return m.ln.Addr().String()
	}
	if m.server == nil {
		return ""
	}
	return m.server.Addr
}

func (m *Module) Start(_ context.Context) error {
	ln, err := net.Listen("tcp", m.server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", m.server.Addr, err)
	}
	m.mu.Lock()
	m.ln = ln
	m.done = make(chan struct{})
	m.mu.Unlock()

	go func() {
		defer close(m.done)
		m.logger.Info("http server started", zap.String("addr", ln.Addr().String()))
		if err := m.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("http server error", zap.Error(err))
		}
	}()
	return nil
}

// Stop drains in-flight requests until ctx expires.
func (m *Module) Stop(ctx context.Context) error {
	m.mu.Lock()
	done := m.done
	m.mu.Unlock()
	if done == nil {
		return nil
	}

	err := m.server.Shutdown(ctx)
	<-done
	if err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	m.logger.Info("http server stopped")
	return nil
}
