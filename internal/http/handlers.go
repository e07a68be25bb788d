// Package http registers the REST surface: station and plant CRUD, rain
// queries, and the admin/debug ingestion endpoints.
package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/hppeng/hpp-platform/internal/domain"
	"github.com/hppeng/hpp-platform/internal/service"
)

// Register mounts all routes on the fiber app.
func Register(app *fiber.App, svcs *service.Services) {
	registerStations(app, svcs)
	registerPlants(app, svcs)
	registerRain(app, svcs)
}

// fail maps a domain error onto an HTTP status and JSON body.
func fail(c *fiber.Ctx, err error) error {
	var vErr *domain.ValidationError
	switch {
	case errors.As(err, &vErr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": vErr.Msg})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, domain.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, domain.ErrMissingAPIKey):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
}
