package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hppeng/hpp-platform/internal/config"
	"github.com/hppeng/hpp-platform/internal/database"
	httpapi "github.com/hppeng/hpp-platform/internal/http"
	"github.com/hppeng/hpp-platform/internal/meteofrance"
	"github.com/hppeng/hpp-platform/internal/notify"
	"github.com/hppeng/hpp-platform/internal/observability"
	"github.com/hppeng/hpp-platform/internal/repository"
	"github.com/hppeng/hpp-platform/internal/scheduler"
	"github.com/hppeng/hpp-platform/internal/service"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if err := config.Load(); err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	db, err := database.Connect()
	if err != nil {
		log.Fatal().Err(err).Msg("db connect failed")
	}
	defer db.Close()

	if err := database.EnsureSchema(context.Background(), db); err != nil {
		log.Fatal().Err(err).Msg("schema bootstrap failed")
	}

	apiKey := config.MeteoFranceAPIKey()
	if apiKey == "" {
		// CRUD still works, but every ingestion attempt is refused.
		log.Warn().Msg("METEOFRANCE_APIKEY is not set; rain ingestion disabled")
	}

	client := meteofrance.NewClient(apiKey, meteofrance.Options{
		OrderURL:     config.OrderURL(),
		FileURL:      config.FileURL(),
		OrderTimeout: config.OrderTimeout(),
		FileTimeout:  config.FileTimeout(),
	})

	metrics := observability.NewMetrics()
	observability.Serve(config.MetricsAddr())

	publisher, err := notify.NewMQTTPublisher(config.MQTTBroker(), config.MQTTTopic())
	if err != nil {
		log.Fatal().Err(err).Msg("mqtt connect failed")
	}
	var notifier service.Notifier
	if publisher != nil {
		notifier = publisher
		defer publisher.Close()
	}

	repos := repository.New(db)
	svcs := service.New(repos, client, apiKey, metrics, notifier)

	sched, err := scheduler.New(svcs.Rain, config.FetchAt(), config.FetchGrace(), metrics)
	if err != nil {
		log.Fatal().Err(err).Msg("scheduler setup failed")
	}
	if err := sched.Start(); err != nil {
		log.Fatal().Err(err).Msg("scheduler start failed")
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "hpp-platform",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
	})
	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error { return c.SendString("ok") })
	httpapi.Register(app, svcs)

	go func() {
		addr := config.APIAddr()
		log.Info().Str("addr", addr).Msg("api listening")
		if err := app.Listen(addr); err != nil {
			log.Error().Err(err).Msg("server exit")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown failed")
	}
}
