// Package router defines how HTTP routes are registered for the API.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/avelys/studio-scheduler/internal/config"
	"github.com/avelys/studio-scheduler/internal/handler"
	"github.com/avelys/studio-scheduler/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication.
// Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterSchedule registers the public schedule reads.  The Redis
// response cache and the token bucket limiter front these endpoints;
// both degrade to pass-throughs when Redis is unavailable.
func RegisterSchedule(e *echo.Echo, h *handler.RegistrationHandler, rdb *redis.Client) {
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
	limit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	e.GET("/v1/classes", h.ListUpcoming, limit, cache)
	e.GET("/v1/classes/:id/registrations", h.Roster, limit)
}

// RegisterCustomer registers the registration endpoints.  The identity
// middleware verifies the bearer token and exposes the pre-validated
// customer id consumed by the capacity controller.
func RegisterCustomer(e *echo.Echo, h *handler.RegistrationHandler, jwtSecret string) {
	g := e.Group("/v1/classes")
	g.Use(middleware.Identity(jwtSecret))
	g.POST("/:id/registrations", h.Register)
	g.DELETE("/:id/registrations/:customerID", h.Cancel)
}

// RegisterAdmin registers the admin surface: series creation and reads,
// occurrence exclusion, ad-hoc classes, check-in, attendance reversal
// and membership lookups.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, jwtSecret string) {
	g := e.Group("/v1")
	g.Use(middleware.Identity(jwtSecret))
	g.POST("/series", h.CreateSeries)
	g.GET("/series/:id", h.GetSeries)
	g.POST("/series/:id/exclusions", h.ExcludeOccurrence)
	g.POST("/classes", h.CreateClass)
	g.DELETE("/classes/:id", h.DeleteClass)
	g.POST("/classes/:id/checkins", h.RecordCheckIn)
	g.DELETE("/attendances/:id", h.ReverseAttendance)
	g.GET("/customers/:id/memberships", h.ListMemberships)
}
