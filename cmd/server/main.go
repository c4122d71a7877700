package main // Entry point package

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/ot-slot-booking/internal/config"
	"github.com/iliyamo/ot-slot-booking/internal/database"
	"github.com/iliyamo/ot-slot-booking/internal/handler"
	appmw "github.com/iliyamo/ot-slot-booking/internal/middleware"
	"github.com/iliyamo/ot-slot-booking/internal/queue"
	"github.com/iliyamo/ot-slot-booking/internal/repository"
	"github.com/iliyamo/ot-slot-booking/internal/router"
	"github.com/iliyamo/ot-slot-booking/internal/schedule"
)

func main() {
	// Load .env when present; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.Env == "dev" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis is optional: when unavailable the cache and rate limiter
	// middleware degrade to pass-through.
	rdb := config.NewRedisClient()
	if rdb == nil {
		logger.Warn().Msg("redis unavailable; cache and rate limiting disabled")
	}

	allocRepo := repository.NewAllocationRepo(db)
	bindingRepo := repository.NewSlotBindingRepo(db)
	lookups := repository.NewLookupRepo(db)
	store := repository.NewAllocationStore(db, allocRepo, bindingRepo)
	validator := schedule.NewValidator(lookups)
	allocations := handler.NewAllocationHandler(store, allocRepo, validator)

	e := echo.New()
	e.HideBanner = true
	e.Use(appmw.Logger(logger))

	router.RegisterRoutes(e)
	router.RegisterAllocations(e, allocations, cfg.JWTSecret, rdb)

	// The audit consumer tails the ot.allocation.audit queue and appends
	// every committed write to logs/ot-audit.log.  It runs its own
	// reconnect loop and never takes the server down.
	go func() {
		if err := queue.StartAuditConsumer(); err != nil {
			logger.Error().Err(err).Msg("audit consumer stopped")
		}
	}()

	addr := ":" + cfg.Port
	logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("listening")

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
