package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/dermaai/internal/domain/auth"
	"github.com/yanqian/dermaai/internal/domain/chatbot"
	"github.com/yanqian/dermaai/internal/domain/classifier"
	"github.com/yanqian/dermaai/internal/domain/routine"
	"github.com/yanqian/dermaai/internal/domain/uploads"
	"github.com/yanqian/dermaai/internal/infra/config"
)

// ReadinessCheck checks one backing dependency for /readyz.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Readiness is the set of checks evaluated by /readyz.
type Readiness []ReadinessCheck

const readinessTimeout = 2 * time.Second

// Handler wires the HTTP transport to domain services.
type Handler struct {
	classifierSvc     classifier.Service
	chatSvc           chatbot.Service
	routineSvc        routine.Service
	authSvc           auth.Service
	uploadSvc         uploads.Service
	readiness         Readiness
	cookieName        string
	tokenTTL          time.Duration
	postLoginRedirect string
	logger            *slog.Logger
}

// NewHandler constructs the root HTTP handler.
func NewHandler(
	cfg *config.Config,
	classifierSvc classifier.Service,
	chatSvc chatbot.Service,
	routineSvc routine.Service,
	authSvc auth.Service,
	uploadSvc uploads.Service,
	readiness Readiness,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		classifierSvc:     classifierSvc,
		chatSvc:           chatSvc,
		routineSvc:        routineSvc,
		authSvc:           authSvc,
		uploadSvc:         uploadSvc,
		readiness:         readiness,
		cookieName:        cfg.Auth.CookieName,
		tokenTTL:          cfg.Auth.TokenTTL,
		postLoginRedirect: cfg.Auth.Google.PostLoginRedirectURL,
		logger:            logger.With("component", "http.handler"),
	}
}

// Healthz reports liveness.
func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readyz reports model state and checks the stores. Unloaded models do not
// fail readiness because requests fall back to demo output.
func (h *Handler) Readyz(c *gin.Context) {
	checks := make(map[string]string, len(h.readiness))
	ready := true
	for _, rc := range h.readiness {
		ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
		err := rc.Check(ctx)
		cancel()
		if err != nil {
			ready = false
			checks[rc.Name] = err.Error()
			h.logger.Warn("readiness check failed", "check", rc.Name, "error", err)
			continue
		}
		checks[rc.Name] = "ok"
	}

	status, code := "ready", http.StatusOK
	if !ready {
		status, code = "unavailable", http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status": status,
		"models": h.classifierSvc.Status(),
		"checks": checks,
	})
}

func (h *Handler) requireClaims(c *gin.Context) (auth.Claims, bool) {
	claims, ok := getClaims(c)
	if !ok {
		abortWithError(c, NewHTTPError(http.StatusUnauthorized, codeUnauthorized, "missing token", nil))
	}
	return claims, ok
}
