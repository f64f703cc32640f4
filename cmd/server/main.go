package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/okten/crm-api/internal/config"
	"github.com/okten/crm-api/internal/database"
	"github.com/okten/crm-api/internal/handler"
	"github.com/okten/crm-api/internal/middleware"
	"github.com/okten/crm-api/internal/queue"
	"github.com/okten/crm-api/internal/repository"
	"github.com/okten/crm-api/internal/router"
	"github.com/okten/crm-api/internal/token"
)

func main() {
	// .env is optional; real deployments set env vars directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	users := repository.NewUserRepo(db)
	sessions := repository.NewSessionRepo(db)
	orders := repository.NewOrderRepo(db)
	comments := repository.NewCommentRepo(db)
	groups := repository.NewGroupRepo(db)

	tokens := token.NewService(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	// Redis is optional: without it the API runs with rate limiting
	// and response caching disabled.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; rate limiting and caching disabled")
	}
	var rateLimit, cache echo.MiddlewareFunc
	if rdb != nil {
		rateLimit = middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
		cache = middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
	}

	// Background consumer records order.claimed events.
	go func() {
		if err := queue.StartClaimConsumer(); err != nil {
			log.Printf("claim consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	e.HideBanner = true
	router.Register(e, router.Deps{
		Auth:         handler.NewAuthHandler(cfg, users, sessions, tokens),
		Admin:        handler.NewAdminHandler(cfg, users, sessions, orders),
		Orders:       handler.NewOrderHandler(orders),
		Comments:     handler.NewCommentHandler(comments),
		Groups:       handler.NewGroupHandler(groups),
		Authenticate: middleware.Authenticate(tokens, users, sessions),
		RateLimit:    rateLimit,
		Cache:        cache,
	})

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
