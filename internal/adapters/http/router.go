package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/landledger/landledger/internal/pkg/metrics"
)

// APIVersion is reported in the X-API-Version header.
const APIVersion = "1.0.0"

// rateLimit allows max requests per minute per client IP.
func rateLimit(max int) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:          max,
		Expiration:   time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string { return c.IP() },
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
		},
	})
}

func securityHeaders(c *fiber.Ctx) error {
	c.Set("X-Content-Type-Options", "nosniff")
	c.Set("X-Frame-Options", "DENY")
	c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
	c.Set("X-API-Version", APIVersion)
	return c.Next()
}

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(compress.New(compress.Config{Level: compress.LevelBestSpeed}))
	app.Use(requestid.New())
	app.Use(RequestIDLogMiddleware())
	app.Use(AccessLogMiddleware())
	app.Use(rateLimit(120))
	app.Use(securityHeaders)
	app.Use(ETagMiddleware())
	app.Use(CachingMiddleware())

	// No timeout on health checks
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	// Writes wait for ledger confirmation, so they get a longer timeout and
	// a tighter rate limit.
	read := func(h fiber.Handler) fiber.Handler { return timeout.NewWithContext(h, 15*time.Second) }
	write := func(h fiber.Handler) fiber.Handler { return timeout.NewWithContext(h, 3*time.Minute) }

	v1 := app.Group("/v1")
	v1.Get("/owners/:address/lands", read(OwnerLandsHandler(deps)))
	v1.Get("/owners/:address/map", read(OwnerMapHandler(deps)))
	v1.Get("/owners/:address/geojson", read(OwnerGeoJSONHandler(deps)))
	v1.Get("/lands/near", read(NearLandsHandler(deps)))
	v1.Get("/lands/:id", read(GetLandHandler(deps)))
	v1.Get("/lands/:id/transfers", read(LandTransfersHandler(deps)))
	v1.Post("/lands", rateLimit(20), write(RegisterLandHandler(deps)))
	v1.Post("/lands/:id/transfer", rateLimit(20), write(TransferLandHandler(deps)))
	v1.Post("/geometry/draft", read(DraftHandler(deps)))
	v1.Post("/geometry/parse", read(ParseLocationHandler(deps)))
	v1.Post("/locations/suggest", rateLimit(30), timeout.NewWithContext(SuggestLocationHandler(deps), 30*time.Second))
	v1.Get("/ledger/status", read(LedgerStatusHandler(deps)))

	app.Post("/graphql", GraphQLHandler(deps))

	SetupDocs(app)

	if deps.NATS == nil {
		return
	}
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps.NATS)))
}
