package http

import (
	"io"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/siwx/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterOptions holds the optional parts of the router.
type RouterOptions struct {
	Logger  *slog.Logger
	Limiter *ClientLimiter
	// Gatherer backs /metrics; the endpoint is not mounted when nil.
	Gatherer prometheus.Gatherer
}

// SetupRouter sets up the Gin router
func SetupRouter(svc *service.LoginService, opts RouterOptions) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(logger))

	handlers := NewHandlers(svc, logger)
	limited := RateLimitMiddleware(opts.Limiter)

	auth := router.Group("/auth")
	{
		auth.POST("/prepare", limited, handlers.Prepare)
		auth.POST("/login", limited, handlers.Login)
		auth.POST("/logout", AuthMiddleware(svc, handlers), handlers.Logout)
	}

	mapping := router.Group("/mapping")
	{
		mapping.POST("/address", handlers.AddressByPrincipal)
		mapping.GET("/principal/:address", handlers.PrincipalByAddress)
	}

	api := router.Group("/api")
	api.Use(AuthMiddleware(svc, handlers))
	{
		api.GET("/me", handlers.Me)
	}

	if opts.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	return router
}
