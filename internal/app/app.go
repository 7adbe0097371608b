package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Ayan-Alam-07/VELoop-Backend/internal/config"
	httpx "github.com/Ayan-Alam-07/VELoop-Backend/internal/http"
	"github.com/Ayan-Alam-07/VELoop-Backend/internal/http/handlers"
	"github.com/Ayan-Alam-07/VELoop-Backend/internal/http/middleware"
	"github.com/Ayan-Alam-07/VELoop-Backend/internal/infrastructure/verification"
	"github.com/gin-gonic/gin"
)

const (
	shutdownTimeout = 10 * time.Second
	sweepInterval   = time.Minute
)

// Run wires the service from cfg and serves until SIGINT or SIGTERM
func Run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := NewLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	gin.SetMode(cfg.GinMode)

	c, err := NewContainer(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	if mem, ok := c.Store.(*verification.MemoryStore); ok {
		go sweep(ctx, mem)
	}

	r := httpx.BuildRouter(
		handlers.NewAuthHandlers(c.Onboarding),
		middleware.NewAuthMW(c.Tokens, c.Sessions),
		httpx.RouterConfig{
			Logger:      logger,
			Observer:    c.Metrics,
			Metrics:     c.Metrics.Handler(),
			Limiter:     middleware.NewIPRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, 0),
			CORSOrigins: cfg.CORSOrigins,
		},
	)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", srv.Addr).Info("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// sweep drops expired codes, windows and locks from the in-memory store
func sweep(ctx context.Context, store *verification.MemoryStore) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			store.Sweep()
		}
	}
}
