package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/yanqian/dermaai/internal/domain/classifier"
	"github.com/yanqian/dermaai/internal/infra/config"
)

const shutdownTimeout = 10 * time.Second

// App encapsulates the HTTP server lifecycle and the loaded models.
type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	server     *http.Server
	classifier classifier.Service
}

// NewApp is used by Wire to build the runnable app.
func NewApp(cfg *config.Config, logger *slog.Logger, server *http.Server, classifierSvc classifier.Service) *App {
	return &App{
		cfg:        cfg,
		logger:     logger.With("component", "bootstrap"),
		server:     server,
		classifier: classifierSvc,
	}
}

// Run loads the models, starts the HTTP server and blocks until shutdown.
// Models are released once the server has drained.
func (a *App) Run(ctx context.Context) error {
	defer a.closeModels()

	a.classifier.Warmup(ctx)

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server starting", "address", a.cfg.HTTP.Address)
		if err := a.server.ListenAndServe(); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("shutdown signal received")
		return a.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (a *App) closeModels() {
	if err := a.classifier.Close(); err != nil {
		a.logger.Warn("failed to release models", "error", err)
	}
}
