package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/ot-slot-booking/internal/config"
	"github.com/iliyamo/ot-slot-booking/internal/handler"    // import the handlers that implement business logic
	"github.com/iliyamo/ot-slot-booking/internal/middleware" // import middleware for JWT authentication and role enforcement
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// Map the GET request at path "/healthz" to the Health handler.  This
	// endpoint can be used by load balancers or monitoring systems to verify
	// that the service is up and running.
	e.GET("/healthz", handler.Health)
}

// RegisterAllocations registers the operating-theater allocation routes and
// applies the necessary middleware.  Every endpoint requires a valid access
// token carrying the ADMIN or SCHEDULER role; tokens are issued by the
// hospital's auth service and only verified here.  The counts endpoints sit
// behind the Redis response cache since dashboards poll them far more often
// than allocations change.
func RegisterAllocations(e *echo.Echo, h *handler.AllocationHandler, jwtSecret string, rdb *redis.Client) {
	// All allocation endpoints live under /v1 and execute the JWTAuth and
	// RequireRole middleware before the handler is invoked.
	g := e.Group("/v1")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole("ADMIN", "SCHEDULER"))
	// The token bucket shields the write endpoints from client retry storms;
	// reads pass through it too since the limiter keys per route.
	g.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	// List allocations with optional status/patient/theater/surgeon/date
	// filters and pagination.
	g.GET("/allocations", h.List)
	// Fetch a single allocation with display names and its bound slots.
	g.GET("/allocations/:id", h.Get)
	// Create an allocation and bind its slots atomically.
	g.POST("/allocations", h.Create)
	// Partially update an allocation and reconcile its slot bindings.
	g.PUT("/allocations/:id", h.Update)
	// Delete an allocation together with all of its bindings.
	g.DELETE("/allocations/:id", h.Delete)

	// Status roll-ups for the dashboard.  These are the only cached routes:
	// the response cache keys on route+query so today's counts and a given
	// date's counts get separate entries.
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
	g.GET("/allocations/today-counts", h.TodayCounts, cache)
	g.GET("/allocations/counts", h.Counts, cache)
}
