// Package router assembles the echo instance: global middleware, the
// public auth routes, authenticated routes and the admin namespace.
package router

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/ordermgmt/internal/config"
	"github.com/iliyamo/ordermgmt/internal/handler"
	"github.com/iliyamo/ordermgmt/internal/middleware"
	"github.com/iliyamo/ordermgmt/internal/model"
)

// Deps carries everything the routes need. Redis may be nil, which turns
// rate limiting and caching into pass-throughs.
type Deps struct {
	Auth      *handler.AuthHandler
	Inventory *handler.InventoryHandler
	Verifier  middleware.TokenVerifier
	DB        handler.Pinger
	Redis     *redis.Client
	RateLimit config.RateLimitConfig
	Cache     config.CacheConfig
	Log       *zap.Logger
}

// New returns a configured echo instance.
func New(d Deps) *echo.Echo {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(d.Log))
	e.Use(echomw.Recover())
	e.Use(middleware.Authenticate(d.Verifier))

	RegisterRoutes(e, d)
	RegisterAuth(e, d)
	RegisterAdmin(e, d)
	return e
}

// RegisterRoutes registers the operational endpoints.
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health(d.DB))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterAuth registers the public credential endpoints, throttled by
// the token bucket, and the authenticated profile endpoint.
func RegisterAuth(e *echo.Echo, d Deps) {
	g := e.Group("/api/auth", middleware.NewTokenBucket(d.RateLimit, d.Redis, d.Log))
	g.POST("/register", d.Auth.Register)
	g.POST("/login", d.Auth.Login)
	g.POST("/refresh", d.Auth.Refresh)
	g.POST("/logout", d.Auth.Logout)

	e.GET("/api/me", d.Auth.Me, middleware.RequireCapability(model.CapProfileRead))
}

// RegisterAdmin registers /api/admin/*. Every route requires a principal;
// each inventory route is then gated on the capability it exercises.
// The capability check runs before the cache lookup.
func RegisterAdmin(e *echo.Echo, d Deps) {
	admin := e.Group("/api/admin", middleware.RequireAuth())

	// reads are served from Redis when possible
	read := []echo.MiddlewareFunc{
		middleware.RequireCapability(model.CapInventoryRead),
		middleware.NewRedisCache(d.Cache, d.Redis),
	}
	// every successful write clears the cached reads
	write := []echo.MiddlewareFunc{
		middleware.RequireCapability(model.CapInventoryWrite),
		middleware.InvalidateCache(d.Cache, d.Redis, d.Log),
	}

	inv := admin.Group("/inventory")
	inv.GET("", d.Inventory.List, read...)
	inv.GET("/:itemId", d.Inventory.Get, read...)
	inv.POST("", d.Inventory.Create, write...)
	inv.PUT("/:itemId", d.Inventory.Update, write...)
	inv.DELETE("/:itemId", d.Inventory.Delete, write...)
}
