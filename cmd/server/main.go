package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/online-library/internal/config"
	"github.com/iliyamo/online-library/internal/database"
	"github.com/iliyamo/online-library/internal/handler"
	"github.com/iliyamo/online-library/internal/lending"
	"github.com/iliyamo/online-library/internal/middleware"
	"github.com/iliyamo/online-library/internal/queue"
	"github.com/iliyamo/online-library/internal/repository"
	"github.com/iliyamo/online-library/internal/router"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.Migrate(ctx, db); err != nil {
		cancel()
		log.Fatalf("migrate: %v", err)
	}
	cancel()

	// Redis is optional; without it the catalog cache and the rate
	// limiter simply pass requests through.
	rdb := config.NewRedisClient()

	userRepo := repository.NewUserRepo(db)
	tokenRepo := repository.NewTokenRepo(db)
	bookRepo := repository.NewBookRepo(db)
	categoryRepo := repository.NewCategoryRepo(db)
	transactionRepo := repository.NewTransactionRepo(db)

	engine := lending.NewEngine(db, bookRepo, userRepo, transactionRepo, cfg.FinePerDay)

	authHandler := handler.NewAuthHandler(cfg, userRepo, tokenRepo)
	bookHandler := handler.NewBookHandler(bookRepo, categoryRepo, transactionRepo)
	categoryHandler := handler.NewCategoryHandler(categoryRepo)
	memberHandler := handler.NewMemberHandler(cfg, userRepo, transactionRepo)
	transactionHandler := handler.NewTransactionHandler(engine, transactionRepo, userRepo)
	dashboardHandler := handler.NewDashboardHandler(db)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authHandler, cfg.JWTSecret)
	router.RegisterCatalog(e, bookHandler, categoryHandler,
		middleware.NewCatalogCache(config.LoadCacheConfig(), rdb))
	router.RegisterLending(e, cfg.JWTSecret,
		bookHandler, categoryHandler, memberHandler, transactionHandler, dashboardHandler)

	// The lending event consumer runs for the lifetime of the process
	// and reconnects on broker failures.
	go func() {
		if err := queue.StartLendingConsumer(); err != nil {
			log.Printf("lending consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
