package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/dermaai/internal/domain/classifier"
	"github.com/yanqian/dermaai/internal/infra/config"
)

// NewRouter wires up the HTTP handlers and returns a configured server.
func NewRouter(cfg *config.Config, handler *Handler) *http.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.MaxMultipartMemory = cfg.HTTP.MaxBodyBytes
	router.Use(
		gin.Recovery(),
		requestLogger(handler.logger),
		corsMiddleware(cfg.HTTP.AllowedOrigins),
		errorHandlingMiddleware(handler.logger),
		limitBodySize(cfg.HTTP.MaxBodyBytes),
	)

	router.GET("/healthz", handler.Healthz)
	router.GET("/readyz", handler.Readyz)

	api := router.Group("/api/v1")
	api.Use(rateLimitMiddleware(cfg.HTTP.RateLimit, handler.logger))

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", handler.Register)
		authGroup.POST("/login", handler.Login)
		authGroup.POST("/refresh", handler.Refresh)
		authGroup.GET("/google/login", handler.GoogleLogin)
		authGroup.GET("/google/callback", handler.GoogleCallback)
	}

	protected := api.Group("")
	protected.Use(authMiddleware(handler.authSvc, cfg.Auth.CookieName))
	{
		protected.POST("/auth/logout", handler.Logout)
		protected.GET("/profile", handler.Profile)
		protected.PUT("/profile", handler.UpdateProfile)

		protected.POST("/skin/predict", handler.Predict(classifier.KindSkin))
		protected.POST("/nail/predict", handler.Predict(classifier.KindNail))
		protected.GET("/uploads/:kind/:name", handler.UploadedImage)

		protected.POST("/chat", handler.Chat)
		protected.GET("/chat/history", handler.ChatHistory)
		protected.DELETE("/chat/history", handler.ResetChat)

		protected.POST("/routine/generate", handler.GenerateRoutine)
		protected.GET("/routine", handler.CurrentRoutine)
		protected.GET("/routine/download", handler.DownloadRoutine)
	}

	return &http.Server{
		Addr:           cfg.HTTP.Address,
		Handler:        router,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}
}
