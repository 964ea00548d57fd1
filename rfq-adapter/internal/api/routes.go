package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/portcall/adapters/rfq-adapter/internal/store"
)

// HealthChecker reports the state of the event sink. *publisher.Publisher satisfies it.
type HealthChecker interface {
	Healthy() error
	Backend() string
}

// RegisterRoutes mounts the watcher's operational endpoints.
func RegisterRoutes(app *fiber.App, st store.Store, events HealthChecker, feed string) {
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	app.Get("/health", func(c *fiber.Ctx) error {
		checks := map[string]string{
			"events": "ok",
			"store":  "ok",
		}
		status := "ok"
		code := fiber.StatusOK
		backend := "none"

		if events == nil {
			checks["events"] = "not configured"
		} else {
			backend = events.Backend()
			if err := events.Healthy(); err != nil {
				checks["events"] = err.Error()
				status = "degraded"
				code = fiber.StatusServiceUnavailable
			}
		}

		healthCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := st.HealthCheck(healthCtx); err != nil {
			checks["store"] = err.Error()
			status = "degraded"
			code = fiber.StatusServiceUnavailable
		}

		return c.Status(code).JSON(fiber.Map{
			"status":         status,
			"checks":         checks,
			"events_backend": backend,
		})
	})

	app.Get("/sync", func(c *fiber.Ctx) error {
		state, err := st.GetLastSync(c.Context(), feed)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		if state == nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no sync recorded", "feed": feed})
		}
		return c.JSON(fiber.Map{"feed": feed, "last_sync": state})
	})
}
