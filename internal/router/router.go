package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/course-registration/internal/config"
	"github.com/iliyamo/course-registration/internal/handler"    // import the handlers that implement business logic
	"github.com/iliyamo/course-registration/internal/middleware" // import middleware for JWT authentication and role enforcement
)

// Handlers bundles the handler set the router wires up.  All fields must be
// non-nil.
type Handlers struct {
	Availability *handler.AvailabilityHandler
	Orders       *handler.OrderHandler
	Proofs       *handler.ProofHandler
	Waitlist     *handler.WaitlistHandler
	Admin        *handler.AdminOrderHandler
}

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// The /healthz endpoint can be used by load balancers or monitoring
	// systems to verify that the service is up and running.
	e.GET("/healthz", handler.Health)
}

// RegisterPublic registers the unauthenticated browse endpoints.  Availability
// responses are served through the Redis response cache when a client is
// available; capacity figures are advisory so a short TTL of staleness is
// acceptable.  The hard admission check happens at checkout.
func RegisterPublic(e *echo.Echo, h Handlers, rdb *redis.Client) {
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
	// Per-session availability across all active sessions.
	e.GET("/v1/sessions/availability", h.Availability.GetSessionAvailability, cache)
	// Character role availability for one session.
	e.GET("/v1/sessions/:id/roles", h.Availability.GetRoleAvailability, cache)
}

// RegisterAPI registers the authenticated surface.  Parent-facing endpoints
// live under /v1 and require a PARENT or ADMIN token; administrative
// lifecycle actions live under /v1/admin and additionally require the ADMIN
// role plus the X-Admin-Key header.  Checkout is rate limited with the Redis
// token bucket so a storefront stampede cannot saturate the row locks.
func RegisterAPI(e *echo.Echo, h Handlers, cfg config.Config, rdb *redis.Client) {
	limit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(cfg.JWTSecret))
	auth.Use(middleware.RequireRole("PARENT", "ADMIN"))

	// Checkout and order tracking.
	auth.POST("/orders", h.Orders.CreateOrder, limit)
	auth.GET("/orders", h.Orders.ListOrders)
	auth.GET("/orders/:id", h.Orders.GetOrder)
	auth.POST("/orders/:id/payment-proof", h.Proofs.SubmitProof, limit)

	// Waitlist entries and offer claims.
	auth.GET("/waitlist", h.Waitlist.ListEntries)
	auth.POST("/waitlist/:id/claim", h.Waitlist.ClaimOffer, limit)

	admin := e.Group("/v1/admin")
	admin.Use(middleware.JWTAuth(cfg.JWTSecret))
	admin.Use(middleware.RequireRole("ADMIN"))
	admin.Use(middleware.RequireAdminKey(cfg.AdminKeyHash))

	// Payment review and manual lifecycle control.
	admin.POST("/orders/:id/confirm", h.Admin.ConfirmOrder)
	admin.POST("/orders/:id/cancel", h.Admin.CancelOrder)
	// Override checkout; admission may dip into the hidden buffer.
	admin.POST("/orders", h.Admin.CreateOverrideOrder)
}
