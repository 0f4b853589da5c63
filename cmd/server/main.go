package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	apiecho "github.com/kalpintel/authd/api/echo"
	"github.com/kalpintel/authd/config"
	"github.com/kalpintel/authd/domain"
	"github.com/kalpintel/authd/internal/auth"
	"github.com/kalpintel/authd/internal/device"
	"github.com/kalpintel/authd/internal/memory"
	"github.com/kalpintel/authd/internal/metrics"
	"github.com/kalpintel/authd/internal/server"
	"github.com/kalpintel/authd/middleware"
	"github.com/kalpintel/authd/mongodb"
	redisrepo "github.com/kalpintel/authd/redis"
	"github.com/kalpintel/authd/services"
	"github.com/kalpintel/authd/tracing"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logLevel, parseErr := zerolog.ParseLevel(cfg.LogLevel)
	if parseErr != nil {
		logLevel = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(logLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	if parseErr != nil {
		log.Warn().Str("configured_log_level", cfg.LogLevel).Msg("Invalid LOG_LEVEL configured, defaulting to 'info'")
	}

	log.Info().
		Str("http_port", cfg.HTTPPort).
		Str("session_store", cfg.SessionStore).
		Str("environment", cfg.Environment).
		Msg("Starting authd server")

	tp, err := tracing.InitTracerProvider(cfg.OtelServiceName)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize TracerProvider")
	}
	mp, err := tracing.InitMeterProvider(prometheus.DefaultRegisterer)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize MeterProvider")
	}
	metrics.Register(prometheus.DefaultRegisterer)

	ctx := context.Background()

	tokenTTL := time.Duration(cfg.TokenTTLHours) * time.Hour

	// User records always live in Mongo except in full memory mode.
	var (
		userRepo    domain.UserRepository
		sessionRepo domain.SessionRepository
		storePing   func(ctx context.Context) error
	)

	if cfg.SessionStore == config.StoreMemory {
		log.Warn().Msg("Using in-memory stores; all data is lost on restart")
		userRepo = memory.NewUserRepository()
		sessionRepo = memory.NewSessionRepository()
	} else {
		if err := mongodb.InitMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName); err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize MongoDB")
		}
		defer mongodb.CloseMongoDB(ctx)
		storePing = mongodb.Ping

		userRepo, err = mongodb.NewUserRepositoryMongo(ctx, mongodb.GetDB())
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize user repository")
		}

		switch cfg.SessionStore {
		case config.StoreRedis:
			redisClient := goredis.NewClient(&goredis.Options{
				Addr:     cfg.RedisAddr,
				Password: cfg.RedisPassword,
				DB:       cfg.RedisDB,
			})
			if err := redisClient.Ping(ctx).Err(); err != nil {
				log.Fatal().Err(err).Msg("Failed to connect to Redis")
			}
			sessionRepo = redisrepo.NewSessionRepository(redisClient, "authd", tokenTTL)
		default:
			sessionRepo, err = mongodb.NewSessionRepositoryMongo(ctx, mongodb.GetDB())
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to initialize session repository")
			}
		}
	}

	tokens := services.NewTokenService([]byte(cfg.JWTSecretKey), cfg.OtelServiceName, tokenTTL)
	hasher := auth.NewBcryptPasswordHasher(0)
	sender := services.NewBrevoSender(cfg.BrevoAPIKey, cfg.BrevoSenderName, cfg.BrevoSenderEmail, nil)
	email := services.NewEmailService(sender, cfg.ClientURL)

	authService := services.NewAuthService(
		userRepo,
		sessionRepo,
		tokens,
		hasher,
		email,
		device.Parse,
		time.Duration(cfg.VerificationTokenTTLHours)*time.Hour,
		time.Duration(cfg.ResetTokenTTLMinutes)*time.Minute,
	)
	sessionService := services.NewSessionService(sessionRepo)

	cookie := middleware.CookieSettings{
		Name:   cfg.CookieName,
		Secure: cfg.IsProduction(),
		MaxAge: tokenTTL,
	}
	authenticator := middleware.NewAuthenticator(tokens, sessionRepo, cookie)

	api := apiecho.NewAPI(authService, sessionService, authenticator, cookie, storePing)
	httpServer := server.NewHTTPServer(cfg, api)

	go func() {
		log.Info().Str("addr", httpServer.Addr).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("TracerProvider shutdown failed")
	}
	if err := mp.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("MeterProvider shutdown failed")
	}
}
