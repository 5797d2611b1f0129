package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/stripe/stripe-go/v79/client"

	"github.com/trailhead-labs/tour-booking/internal/config"
	"github.com/trailhead-labs/tour-booking/internal/database"
	"github.com/trailhead-labs/tour-booking/internal/handler"
	"github.com/trailhead-labs/tour-booking/internal/httperr"
	"github.com/trailhead-labs/tour-booking/internal/mail"
	"github.com/trailhead-labs/tour-booking/internal/middleware"
	"github.com/trailhead-labs/tour-booking/internal/repository"
	"github.com/trailhead-labs/tour-booking/internal/router"
	"github.com/trailhead-labs/tour-booking/internal/token"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	users := repository.NewUserRepo(db)
	tours := repository.NewTourRepo(db)
	reviews := repository.NewReviewRepo(db)
	bookings := repository.NewBookingRepo(db)

	tokens := token.NewService(cfg.JWTSecret, cfg.JWTExpiresIn, cfg.CookieExpiresDays, cfg.IsProduction())
	mailer := mail.NewPublisher(cfg.RabbitURL)

	// Development transport: consume the mail queue into logs/mail.log.
	go func() {
		if err := mail.StartConsumer(cfg.RabbitURL); err != nil {
			log.Printf("mail consumer stopped: %v", err)
		}
	}()

	var payments *client.API
	if cfg.StripeSecretKey != "" {
		payments = &client.API{}
		payments.Init(cfg.StripeSecretKey, nil)
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable, rate limiting disabled")
	}

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = httperr.Handler(cfg.IsProduction())

	renderer, err := handler.NewRenderer("web/templates/*.html")
	if err != nil {
		log.Fatalf("templates: %v", err)
	}
	e.Renderer = renderer

	router.Register(e, router.Deps{
		Auth:      handler.NewAuthHandler(cfg, tokens, users, mailer),
		Users:     handler.NewUserHandler(users),
		Tours:     handler.NewTourHandler(tours),
		Reviews:   handler.NewReviewHandler(reviews),
		Bookings:  handler.NewBookingHandler(bookings, tours, payments),
		Views:     handler.NewViewHandler(tours, reviews, bookings),
		Tokens:    tokens,
		Resolver:  users,
		RateLimit: middleware.RateLimit(config.LoadRateLimitConfig(), rdb),
	})

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
