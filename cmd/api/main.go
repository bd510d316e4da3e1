package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/dogfinder/internal/config"
	"github.com/jwalitptl/dogfinder/internal/datastore"
	"github.com/jwalitptl/dogfinder/internal/datastore/memory"
	"github.com/jwalitptl/dogfinder/internal/datastore/postgres"
	"github.com/jwalitptl/dogfinder/internal/datastore/rest"
	"github.com/jwalitptl/dogfinder/internal/email"
	adoptionHandler "github.com/jwalitptl/dogfinder/internal/handler/adoption"
	dashboardHandler "github.com/jwalitptl/dogfinder/internal/handler/dashboard"
	dogHandler "github.com/jwalitptl/dogfinder/internal/handler/dog"
	healthHandler "github.com/jwalitptl/dogfinder/internal/handler/health"
	notificationHandler "github.com/jwalitptl/dogfinder/internal/handler/notification"
	sessionHandler "github.com/jwalitptl/dogfinder/internal/handler/session"
	userHandler "github.com/jwalitptl/dogfinder/internal/handler/user"
	"github.com/jwalitptl/dogfinder/internal/middleware"
	"github.com/jwalitptl/dogfinder/internal/realtime"
	"github.com/jwalitptl/dogfinder/internal/repository/hosted"
	"github.com/jwalitptl/dogfinder/internal/router"
	adoptionService "github.com/jwalitptl/dogfinder/internal/service/adoption"
	dashboardService "github.com/jwalitptl/dogfinder/internal/service/dashboard"
	dogService "github.com/jwalitptl/dogfinder/internal/service/dog"
	notificationService "github.com/jwalitptl/dogfinder/internal/service/notification"
	userService "github.com/jwalitptl/dogfinder/internal/service/user"
	"github.com/jwalitptl/dogfinder/internal/session"
	"github.com/jwalitptl/dogfinder/pkg/logger"
	"github.com/jwalitptl/dogfinder/pkg/messaging"
	brokermem "github.com/jwalitptl/dogfinder/pkg/messaging/memory"
	brokerredis "github.com/jwalitptl/dogfinder/pkg/messaging/redis"
	"github.com/jwalitptl/dogfinder/pkg/metrics"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Logging.Level),
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
		Console:    cfg.Logging.Console,
	})
	zlog.Logger = *log.Zerolog()

	var registerer prometheus.Registerer
	if cfg.Monitoring.PrometheusEnabled {
		registerer = prometheus.DefaultRegisterer
	}
	m := metrics.New(cfg.Monitoring.Namespace, registerer)

	// Hosted data service
	db, auth, closeDB, err := newDatastore(cfg.Datastore)
	if err != nil {
		log.Fatal(err, "failed to connect to data service", "driver", cfg.Datastore.Driver)
	}
	defer closeDB()

	// Redis, shared by sessions and the change feed when either uses it
	var redisClient *goredis.Client
	if cfg.Session.Driver == "redis" || cfg.Realtime.Driver == "redis" {
		redisClient, err = brokerredis.NewClient(brokerredis.Config{
			URL:          cfg.Redis.URL,
			MaxRetries:   cfg.Redis.MaxRetries,
			RetryBackoff: cfg.Redis.RetryBackoff,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
		})
		if err != nil {
			log.Fatal(err, "failed to connect to Redis")
		}
		defer redisClient.Close()
	}

	var broker messaging.Broker
	if cfg.Realtime.Driver == "redis" {
		broker = brokerredis.NewWithClient(redisClient, log.Zerolog())
	} else {
		mem := brokermem.NewBroker()
		defer mem.Close()
		broker = mem
	}
	feed := realtime.NewFeed(broker, log)

	var sessions session.Manager
	if cfg.Session.Driver == "redis" {
		sessions = session.NewRedisManager(redisClient, cfg.Session.TTL)
	} else {
		sessions = session.NewMemoryManager(cfg.Session.TTL, 10*time.Minute)
	}

	client := realtime.Publishing(datastore.Instrument(db, m), feed)

	// Initialize repositories
	dogRepo := hosted.NewDogRepository(client)
	adoptionRepo := hosted.NewAdoptionRepository(client)
	notificationRepo := hosted.NewNotificationRepository(client)
	userRepo := hosted.NewUserRepository(client)

	// Initialize services
	var verifier *session.TokenVerifier
	if cfg.Datastore.JWTSecret != "" {
		verifier = session.NewTokenVerifier(cfg.Datastore.JWTSecret)
	}
	resolver := notificationService.NewResolver(auth, verifier, log)

	notificationSvc := notificationService.NewService(notificationService.Dependencies{
		Notifications: notificationRepo,
		Adoptions:     adoptionRepo,
		Dogs:          dogRepo,
		Resolver:      resolver,
		Feed:          feed,
		Mailer:        newMailer(cfg.Email, log),
		Logger:        log,
		Metrics:       m,
	}, notificationService.Config{
		Limit:            cfg.Notifications.Limit,
		PollInterval:     cfg.Notifications.PollInterval,
		Debounce:         cfg.Notifications.Debounce,
		CandidateColumns: cfg.Notifications.CandidateColumns,
		EmailTimeout:     cfg.Email.Timeout,
	})
	dogSvc := dogService.NewService(dogRepo, log)
	adoptionSvc := adoptionService.NewService(adoptionRepo, dogRepo, notificationSvc, log, m)
	userSvc := userService.NewService(userRepo, log)
	dashboardSvc := dashboardService.NewService(dogRepo, adoptionRepo)

	// Setup router
	gin.SetMode(gin.ReleaseMode)
	r := router.NewRouter(router.Handlers{
		Health:       healthHandler.NewHandler(db, prometheus.DefaultGatherer),
		Session:      sessionHandler.NewHandler(auth, resolver, log),
		Notification: notificationHandler.NewHandler(notificationSvc),
		Dog:          dogHandler.NewHandler(dogSvc),
		Adoption:     adoptionHandler.NewHandler(adoptionSvc),
		User:         userHandler.NewHandler(userSvc),
		Dashboard:    dashboardHandler.NewHandler(dashboardSvc),
	}, sessions, log, router.RouterConfig{
		RateLimitEnabled: cfg.RateLimit.Enabled,
		RateLimit:        rate.Limit(cfg.RateLimit.RequestsPerSecond),
		RateBurst:        cfg.RateLimit.Burst,
		RequestTimeout:   cfg.Server.RequestTimeout,
		CORSConfig:       middleware.DefaultCORSConfig(cfg.CORS.AllowedOrigins),
		Session: middleware.SessionConfig{
			CookieName: cfg.Session.CookieName,
			TTL:        cfg.Session.TTL,
			Secure:     cfg.Session.CookieSecure,
		},
		MetricsPrefix: cfg.Monitoring.Namespace + "_http",
		Registerer:    registerer,
	})
	r.Setup()

	// Create server. WriteTimeout stays 0 unless configured: notification streams are long lived.
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		log.Info("starting server", "port", cfg.Server.Port, "datastore", cfg.Datastore.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err, "failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error(err, "server forced to shutdown")
	}
	notificationSvc.Wait()

	log.Info("server exited properly")
}

// newDatastore opens the configured driver. The returned Authenticator is nil
// when the driver has no auth service behind it.
func newDatastore(cfg config.DatastoreConfig) (datastore.Client, datastore.Authenticator, func(), error) {
	switch cfg.Driver {
	case "postgres":
		db, err := postgres.NewDB(postgres.Config{
			Host:            cfg.Database.Host,
			Port:            cfg.Database.Port,
			User:            cfg.Database.User,
			Password:        cfg.Database.Password,
			Name:            cfg.Database.Name,
			SSLMode:         cfg.Database.SSLMode,
			Schema:          cfg.Database.Schema,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		var auth datastore.Authenticator
		if cfg.URL != "" && cfg.AnonKey != "" {
			rc, err := rest.New(rest.Config{URL: cfg.URL, AnonKey: cfg.AnonKey, Timeout: cfg.Timeout})
			if err != nil {
				db.Close()
				return nil, nil, nil, err
			}
			auth = rc
		}
		return postgres.New(db, cfg.Database.Schema), auth, func() { db.Close() }, nil
	case "memory":
		return memory.NewWithSchema(), memory.NewAuth(), func() {}, nil
	default:
		rc, err := rest.New(rest.Config{URL: cfg.URL, AnonKey: cfg.AnonKey, Timeout: cfg.Timeout})
		if err != nil {
			return nil, nil, nil, err
		}
		return rc, rc, func() {}, nil
	}
}

func newMailer(cfg config.EmailConfig, log *logger.Logger) email.Service {
	switch cfg.Driver {
	case "smtp":
		return email.NewSMTPSender(email.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
	case "noop":
		return email.NewNoopSender(log)
	default:
		return email.NewFunctionSender(email.FunctionConfig{
			Endpoint:       cfg.Function.Endpoint,
			Timeout:        cfg.Timeout,
			MaxFailures:    cfg.Function.MaxFailures,
			BreakerTimeout: cfg.Function.BreakerTimeout,
		})
	}
}
