package main

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/dabada911/hakibavuong/internal/config"
	"github.com/dabada911/hakibavuong/internal/events"
	"github.com/dabada911/hakibavuong/internal/logging"
	"github.com/dabada911/hakibavuong/internal/mailer"
	"github.com/dabada911/hakibavuong/internal/otp"
	"github.com/dabada911/hakibavuong/internal/search"
	"github.com/dabada911/hakibavuong/internal/token"
	httpserver "github.com/dabada911/hakibavuong/internal/transport/http"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(cfg.LOG_LEVEL)

	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatalf("database init error: %v", err)
	}

	smtp, err := mailer.NewSMTP(cfg.SMTP_HOST, cfg.SMTP_PORT, cfg.SMTP_USER, cfg.SMTP_PASSWORD, cfg.SMTP_FROM)
	if err != nil {
		log.Fatalf("mailer init error: %v", err)
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	otpService := otp.NewService(db, smtp, rng, logger)

	producer := events.NewProducer(cfg.KAFKA_ADDRESS)

	var esClient *elasticsearch.Client
	if cfg.ES_URL != "" {
		esClient, err = search.NewClient(cfg.ES_URL, cfg.ES_USER, cfg.ES_PASSWORD)
		if err != nil {
			logger.Warn("elasticsearch_unavailable", "error", err)
			esClient = nil
		}
	}

	issuer := &token.Issuer{
		Secret:   []byte(cfg.JWT_SECRET),
		Issuer:   cfg.JWT_ISSUER,
		Audience: cfg.JWT_AUDIENCE,
	}

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID(), middleware.CORS())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := logging.IntoContext(c.Request().Context(), logger)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	})

	httpserver.Register(e, httpserver.Deps{
		DB:        db,
		Tokens:    issuer,
		OTP:       otpService,
		Producer:  producer,
		ES:        esClient,
		ImagesDir: cfg.IMAGES_DIR,
	})

	srv := &http.Server{
		Addr:         cfg.LISTEN_ADDR,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	}

	if err := producer.Close(); err != nil {
		log.Printf("kafka close error: %v", err)
	}

	log.Println("shutdown complete")
}
