package http

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/hppeng/hpp-platform/internal/domain"
	"github.com/hppeng/hpp-platform/internal/service"
)

type stationCreate struct {
	Code string `json:"weather_station_code"`
	Name string `json:"weather_station_name"`
}

type stationPatch struct {
	Name    *string `json:"weather_station_name"`
	NewCode *string `json:"new_weather_station_code"`
}

func registerStations(app *fiber.App, svcs *service.Services) {
	g := app.Group("/stations")

	g.Post("", func(c *fiber.Ctx) error {
		var body stationCreate
		if err := c.BodyParser(&body); err != nil {
			return fail(c, domain.Validationf("invalid body: %v", err))
		}
		code := strings.TrimSpace(body.Code)
		name := strings.TrimSpace(body.Name)
		if err := validateStationCode(code); err != nil {
			return fail(c, err)
		}
		if name == "" {
			return fail(c, domain.Validationf("weather_station_name cannot be empty"))
		}

		if existing, err := svcs.Repos.GetStationByCode(c.Context(), code); err == nil {
			// Idempotent create: still kick a yesterday-fetch so a
			// re-registered station gets seeded.
			kickstartFetch(svcs.Rain, code)
			return c.JSON(fiber.Map{"status": "exists", "id": existing.ID})
		} else if !errors.Is(err, domain.ErrNotFound) {
			return fail(c, err)
		}

		station, err := svcs.Repos.CreateStation(c.Context(), code, name)
		if err != nil {
			return fail(c, err)
		}
		kickstartFetch(svcs.Rain, station.Code)
		return c.JSON(fiber.Map{"status": "created", "id": station.ID})
	})

	g.Get("", func(c *fiber.Ctx) error {
		stations, err := svcs.Repos.ListStations(c.Context())
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(stations)
	})

	g.Get("/:code", func(c *fiber.Ctx) error {
		station, err := svcs.Repos.GetStationByCode(c.Context(), c.Params("code"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(station)
	})

	g.Patch("/:code", func(c *fiber.Ctx) error {
		station, err := svcs.Repos.GetStationByCode(c.Context(), c.Params("code"))
		if err != nil {
			return fail(c, err)
		}

		var body stationPatch
		if err := c.BodyParser(&body); err != nil {
			return fail(c, domain.Validationf("invalid body: %v", err))
		}

		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return fail(c, domain.Validationf("weather_station_name cannot be empty"))
			}
			if err := svcs.Repos.RenameStation(c.Context(), station.ID, name); err != nil {
				return fail(c, err)
			}
		}
		if body.NewCode != nil {
			newCode := strings.TrimSpace(*body.NewCode)
			if err := validateStationCode(newCode); err != nil {
				return fail(c, err)
			}
			if err := svcs.Repos.RecodeStation(c.Context(), station.ID, newCode); err != nil {
				return fail(c, err)
			}
		}

		updated, err := svcs.Repos.GetStationByID(c.Context(), station.ID)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"status": "updated", "station": updated})
	})

	g.Delete("/:code", func(c *fiber.Ctx) error {
		station, err := svcs.Repos.GetStationByCode(c.Context(), c.Params("code"))
		if err != nil {
			return fail(c, err)
		}
		if err := svcs.Repos.DeleteStation(c.Context(), station.ID); err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"status": "deleted"})
	})
}

// validateStationCode enforces the provider's numeric station id format.
func validateStationCode(code string) error {
	if len(code) < 5 || len(code) > 10 {
		return domain.Validationf("weather_station_code length looks wrong (expect 5-10 digits)")
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return domain.Validationf("weather_station_code must be numeric (e.g. 70473001)")
		}
	}
	return nil
}

// kickstartFetch seeds a station with yesterday's data in the background.
// Best effort: failures are logged, never surfaced to the create request.
func kickstartFetch(rain *service.RainService, stationCode string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if _, err := rain.FetchAndStoreForStation(ctx, stationCode, rain.Yesterday()); err != nil {
			log.Error().Err(err).Str("station", stationCode).Msg("initial rain fetch failed")
		}
	}()
}
