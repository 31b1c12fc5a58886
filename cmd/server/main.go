package main // Entry point package

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/phdplan/internal/config"
	"github.com/iliyamo/phdplan/internal/database"
	"github.com/iliyamo/phdplan/internal/handler"
	"github.com/iliyamo/phdplan/internal/importer"
	"github.com/iliyamo/phdplan/internal/middleware"
	"github.com/iliyamo/phdplan/internal/queue"
	"github.com/iliyamo/phdplan/internal/repository"
	"github.com/iliyamo/phdplan/internal/router"
	"github.com/iliyamo/phdplan/internal/service"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	if _, err := database.NewMigrator(db, database.Migrations()).Up(ctx); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	mapping, err := importer.LoadMapping(cfg.ImportMappingFile)
	if err != nil {
		log.Fatalf("import mapping: %v", err)
	}

	var events service.Publisher = service.NopPublisher{}
	if cfg.RabbitMQURL != "" {
		events = service.NewAMQPPublisher(cfg.RabbitMQURL)
		go func() {
			if err := queue.StartNotificationConsumer(ctx, cfg.RabbitMQURL, cfg.NotificationLog); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("notification-consumer: %v", err)
			}
		}()
	} else {
		log.Printf("rabbitmq: RABBITMQ_URL not set, domain events disabled")
	}

	planner := service.NewPlanner(db, events, mapping)
	accounts := service.NewAccounts(db, cfg.BcryptCost)

	if cfg.BootstrapEmail != "" {
		if err := accounts.EnsureAdmin(ctx, cfg.BootstrapEmail, cfg.BootstrapPassword); err != nil {
			log.Fatalf("bootstrap admin: %v", err)
		}
	}

	if cfg.BriefingCron != "" {
		sched := service.NewBriefingScheduler(planner, events, time.Local)
		if _, err := sched.Schedule(cfg.BriefingCron); err != nil {
			log.Fatalf("briefing: %v", err)
		}
		sched.Start()
		defer sched.Stop()
	}

	rdb := config.NewRedisClient()
	if rdb != nil {
		defer rdb.Close()
	}
	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())

	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, accounts, repository.NewTokenRepo(db)), cfg.JWTSecret, limiter)
	router.RegisterPlan(e, handler.NewPlanHandler(planner), cfg.JWTSecret, cache)
	router.RegisterAdmin(e, handler.NewUserHandler(accounts), cfg.JWTSecret, cache)

	addr := ":" + cfg.Port
	go func() {
		log.Printf("listening on %s (env=%s)", addr, cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
