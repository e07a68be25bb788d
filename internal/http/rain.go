package http

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/hppeng/hpp-platform/internal/domain"
	"github.com/hppeng/hpp-platform/internal/service"
)

func registerRain(app *fiber.App, svcs *service.Services) {
	admin := app.Group("/admin")

	admin.Get("/rain", func(c *fiber.Ctx) error {
		code := c.Query("weather_station_code")
		var stationID *int64
		if raw := c.Query("station_id"); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return fail(c, domain.Validationf("station_id must be an integer"))
			}
			stationID = &id
		}

		start, err := parseRFC3339(c.Query("start"), "start")
		if err != nil {
			return fail(c, err)
		}
		end, err := parseRFC3339(c.Query("end"), "end")
		if err != nil {
			return fail(c, err)
		}
		granularity, err := domain.ParseGranularity(c.Query("step", string(domain.GranularityNative)))
		if err != nil {
			return fail(c, err)
		}

		points, err := svcs.Rain.QueryRain(c.Context(), code, stationID, start, end, granularity)
		if err != nil {
			return fail(c, err)
		}
		if points == nil {
			points = []domain.RainPoint{}
		}
		return c.JSON(points)
	})

	admin.Post("/scheduler/run-now", func(c *fiber.Ctx) error {
		reports, err := svcs.Rain.FetchYesterdayForAllStations(c.Context())
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"ok": true, "details": reports})
	})

	rain := app.Group("/rain")

	rain.Get("/debug/:code", func(c *fiber.Ctx) error {
		stats, err := svcs.Rain.Stats(c.Context(), c.Params("code"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(stats)
	})

	rain.Post("/fetch_yesterday/:code", func(c *fiber.Ctx) error {
		outcome, err := svcs.Rain.FetchAndStoreForStation(c.Context(), c.Params("code"), svcs.Rain.Yesterday())
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"ok": true, "details": outcome})
	})

	rain.Post("/backfill/:code", func(c *fiber.Ctx) error {
		days := c.QueryInt("days", 7)
		if days < 1 || days > 365 {
			return fail(c, domain.Validationf("days must be between 1 and 365"))
		}

		code := c.Params("code")
		yesterday := svcs.Rain.Yesterday()
		runs := make([]service.RunReport, 0, days)
		for i := 0; i < days; i++ {
			day := yesterday.AddDate(0, 0, -i)
			outcome, err := svcs.Rain.FetchAndStoreForStation(c.Context(), code, day)
			if err != nil {
				runs = append(runs, service.RunReport{StationCode: code, Error: err.Error()})
				continue
			}
			runs = append(runs, service.RunReport{StationCode: code, Outcome: &outcome})
		}
		return c.JSON(fiber.Map{"ok": true, "runs": runs})
	})
}

func parseRFC3339(raw, name string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, domain.Validationf("%s is required (RFC3339, e.g. 2025-08-30T00:00:00Z)", name)
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, domain.Validationf("%s must be RFC3339: %v", name, err)
	}
	return ts.UTC(), nil
}
