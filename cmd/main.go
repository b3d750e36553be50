package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"redwarm/pkg/logger"
)

func main() {
	app := NewApplication()

	if err := app.Initialize(); err != nil {
		logger.FatalCtx(nil, "warmup service initialization failed: %v", err)
	}

	if err := app.Start(); err != nil {
		logger.FatalCtx(app.ctx, "warmup service startup failed: %v", err)
	}

	// Wait for exit signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.InfoCtx(app.ctx, "received exit signal: %v, draining warmup jobs", sig)

	// Graceful shutdown, in-flight warmup steps get 30 seconds to finish
	if err := app.Shutdown(30 * time.Second); err != nil {
		logger.ErrorCtx(app.ctx, "warmup service shutdown failed: %v", err)
		os.Exit(1)
	}

	logger.InfoCtx(app.ctx, "warmup service exited")
}
