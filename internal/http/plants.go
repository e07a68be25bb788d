package http

import (
	"encoding/json"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/hppeng/hpp-platform/internal/domain"
	"github.com/hppeng/hpp-platform/internal/service"
)

type plantCreate struct {
	Code      string `json:"hpp_code"`
	Name      string `json:"hpp_name"`
	StationID *int64 `json:"weather_station_id"`
}

// plantPatch keeps weather_station_id raw so "present and null" (detach)
// is distinguishable from "absent" (leave alone).
type plantPatch struct {
	Name      *string         `json:"hpp_name"`
	StationID json.RawMessage `json:"weather_station_id"`
	NewCode   *string         `json:"new_hpp_code"`
}

func registerPlants(app *fiber.App, svcs *service.Services) {
	g := app.Group("/plants")

	g.Post("", func(c *fiber.Ctx) error {
		var body plantCreate
		if err := c.BodyParser(&body); err != nil {
			return fail(c, domain.Validationf("invalid body: %v", err))
		}
		code := strings.TrimSpace(body.Code)
		name := strings.TrimSpace(body.Name)
		if code == "" || name == "" {
			return fail(c, domain.Validationf("hpp_code and hpp_name are required"))
		}
		if body.StationID != nil {
			if _, err := svcs.Repos.GetStationByID(c.Context(), *body.StationID); err != nil {
				return fail(c, err)
			}
		}

		plant, err := svcs.Repos.CreatePlant(c.Context(), code, name, body.StationID)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"status": "created", "id": plant.ID})
	})

	g.Get("", func(c *fiber.Ctx) error {
		plants, err := svcs.Repos.ListPlants(c.Context())
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(plants)
	})

	g.Get("/:code", func(c *fiber.Ctx) error {
		plant, err := svcs.Repos.GetPlantByCode(c.Context(), c.Params("code"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(plant)
	})

	g.Patch("/:code", func(c *fiber.Ctx) error {
		plant, err := svcs.Repos.GetPlantByCode(c.Context(), c.Params("code"))
		if err != nil {
			return fail(c, err)
		}

		var body plantPatch
		if err := c.BodyParser(&body); err != nil {
			return fail(c, domain.Validationf("invalid body: %v", err))
		}

		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return fail(c, domain.Validationf("hpp_name cannot be empty"))
			}
			if err := svcs.Repos.RenamePlant(c.Context(), plant.ID, name); err != nil {
				return fail(c, err)
			}
		}

		if len(body.StationID) > 0 {
			var stationID *int64
			if string(body.StationID) != "null" {
				var id int64
				if err := json.Unmarshal(body.StationID, &id); err != nil {
					return fail(c, domain.Validationf("weather_station_id must be an integer or null"))
				}
				if _, err := svcs.Repos.GetStationByID(c.Context(), id); err != nil {
					return fail(c, err)
				}
				stationID = &id
			}
			if err := svcs.Repos.RelinkPlant(c.Context(), plant.ID, stationID); err != nil {
				return fail(c, err)
			}
		}

		if body.NewCode != nil {
			newCode := strings.TrimSpace(*body.NewCode)
			if newCode == "" {
				return fail(c, domain.Validationf("new_hpp_code cannot be empty"))
			}
			if err := svcs.Repos.RecodePlant(c.Context(), plant.ID, newCode); err != nil {
				return fail(c, err)
			}
		}

		updated, err := svcs.Repos.GetPlantByCode(c.Context(), firstNonEmpty(body.NewCode, plant.Code))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"status": "updated", "plant": updated})
	})

	g.Delete("/:code", func(c *fiber.Ctx) error {
		plant, err := svcs.Repos.GetPlantByCode(c.Context(), c.Params("code"))
		if err != nil {
			return fail(c, err)
		}
		if err := svcs.Repos.DeletePlant(c.Context(), plant.ID); err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"status": "deleted"})
	})
}

func firstNonEmpty(override *string, fallback string) string {
	if override != nil && strings.TrimSpace(*override) != "" {
		return strings.TrimSpace(*override)
	}
	return fallback
}
