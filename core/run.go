package core

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
)

// Run initializes and starts every module, blocks until ctx is done or the
// process receives SIGINT/SIGTERM, then stops the modules within the
// configured stop timeout.
func (mc *ModuleCenter) Run(ctx context.Context) error {
	if err := mc.Initialize(ctx); err != nil {
		return err
	}
	if err := mc.Start(ctx); err != nil {
		return err
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case <-ctx.Done():
		mc.logger.Info("context done, shutting down", zap.Error(ctx.Err()))
	case sig := <-stop:
		mc.logger.Info("received signal, shutting down", zap.Stringer("signal", sig))
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), mc.opts.StopTimeout)
	defer cancel()
	return mc.Stop(shutdownCtx)
}
