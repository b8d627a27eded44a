package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/uptrace/bun"

	"ms-calendar/internal/access"
	"ms-calendar/internal/auth"
	"ms-calendar/internal/config"
	"ms-calendar/internal/database"
	"ms-calendar/internal/database/migrations"
	event_db "ms-calendar/internal/events/db"
	"ms-calendar/internal/events/event_api"
	"ms-calendar/internal/events/qr"
	"ms-calendar/internal/events/service"
	"ms-calendar/internal/kafka"
	"ms-calendar/internal/logger"
	member_db "ms-calendar/internal/members/db"
	"ms-calendar/internal/members/member_api"
	"ms-calendar/internal/metrics"
	"ms-calendar/internal/web"
)

const guildRoleCacheTTL = 5 * time.Minute

func verifyConnections(ctx context.Context, cfg *config.Config, logger *logger.Logger) (*bun.DB, *redis.Client) {
	bunDB, err := database.Open(ctx, cfg.Database, database.DefaultRetry, logger)
	if err != nil {
		logger.Fatal("DATABASE", err.Error())
	}

	if cfg.Database.AutoMigrate {
		if err := migrateSchema(ctx, cfg.Database.Driver, bunDB, logger); err != nil {
			logger.Fatal("DATABASE", fmt.Sprintf("Schema setup failed: %v", err))
		}
	}

	if !cfg.Redis.Enabled {
		logger.Warn("REDIS", "Redis disabled, OAuth state kept in memory and guild roles not cached")
		return bunDB, nil
	}
	redisClient, err := auth.InitializeRedis(cfg.Redis.Addr, logger)
	if err != nil {
		logger.Warn("REDIS", "Falling back to in-memory OAuth state store")
		return bunDB, nil
	}
	logger.Info("DATABASE", fmt.Sprintf("✅ Redis connection successful to %s (DB: %d)", cfg.Redis.Addr, redisClient.Options().DB))
	return bunDB, redisClient
}

func migrateSchema(ctx context.Context, driver string, bunDB *bun.DB, logger *logger.Logger) error {
	if !migrations.Supports(driver) {
		logger.Info("DATABASE", "Creating schema from models")
		return database.CreateSchema(ctx, bunDB)
	}
	// the runner is not closed: its driver shares bunDB's pool
	runner := migrations.NewRunner(bunDB, migrations.MigrateOptions{Driver: driver}, logger)
	return runner.RunMigrations()
}

func requestLogger(logger *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.LogAPI(r.Method, r.URL.Path, fmt.Sprintf("%d", ww.Status()), time.Since(start).String())
		})
	}
}

func main() {
	cfg, loaded, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logger.NewLogger(cfg.Log.Service, cfg.Log.Dir)
	defer logger.Close()
	logger.SetLevel(cfg.Log.Level)

	logger.Info("APP", "Starting Calendar Service initialization")
	if loaded {
		logger.Info("CONFIG", "Loaded environment variables from .env file")
	} else {
		logger.Warn("CONFIG", ".env file not found, using environment variables")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("CONFIG", err.Error())
	}
	if cfg.AllowInsecureDefaults {
		logger.LogSecurity("CONFIG", "ALLOW_INSECURE_DEFAULTS is set, do not run like this in production")
	}

	roleTable, err := auth.LoadRoleTable(cfg.Roles.ConfigPath)
	if err != nil {
		logger.Fatal("CONFIG", err.Error())
	}
	createPolicy, err := access.ParseCreatePolicy(cfg.Auth.EventCreatePolicy)
	if err != nil {
		logger.Fatal("CONFIG", err.Error())
	}
	logger.Info("CONFIG", fmt.Sprintf("Role flags %v, event creation policy %q", roleTable.Flags(), createPolicy))

	ctx := context.Background()

	logger.Info("APP", "Verifying database connections")
	bunDB, redisClient := verifyConnections(ctx, cfg, logger)
	defer bunDB.Close()
	if redisClient != nil {
		defer redisClient.Close()
	}

	registry := prometheus.NewRegistry()
	appMetrics := metrics.New(registry)

	eventStore := &event_db.DB{Bun: bunDB}
	memberStore := &member_db.DB{Bun: bunDB}

	eventService := service.NewEventService(eventStore, createPolicy, logger)
	eventService.Observer = appMetrics

	var producer *kafka.Producer
	if cfg.Kafka.Enabled {
		logger.Info("KAFKA", fmt.Sprintf("Using Kafka brokers %v", cfg.Kafka.Brokers))
		producer = kafka.NewProducer(cfg.Kafka.Brokers, logger)
		defer producer.Close()
		if err := kafka.EnsureTopicsExist(ctx, cfg.Kafka.Brokers, []string{cfg.Kafka.EventCreatedTopic}, logger); err != nil {
			logger.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		}
		eventService.WithPublisher(producer, cfg.Kafka.EventCreatedTopic)
		logger.Info("KAFKA", "Kafka producer initialized successfully")
	}

	sessions := auth.NewSessionManager(cfg.SessionSecret(), cfg.Auth.SessionTTL, roleTable, cfg.Auth.CookieName, cfg.Auth.CookieSecure)

	var verifier *auth.OIDCVerifier
	if cfg.Auth.OIDCIssuer != "" {
		verifier, err = auth.DiscoverOIDC(ctx, cfg.Auth.OIDCIssuer, cfg.Auth.OIDCClientID, roleTable)
		if err != nil {
			logger.Warn("AUTH", fmt.Sprintf("OIDC discovery failed, bearer id tokens disabled: %v", err))
		} else {
			logger.Info("AUTH", fmt.Sprintf("OIDC bearer tokens accepted from %s", cfg.Auth.OIDCIssuer))
		}
	}

	var states auth.StateStore = auth.NewMemoryStateStore()
	var roleCache *auth.GuildRoleCache
	if redisClient != nil {
		states = auth.NewRedisStateStore(redisClient)
		roleCache = auth.NewGuildRoleCache(redisClient, guildRoleCacheTTL)
	}

	discord := auth.NewDiscordClient(cfg.Discord.APIBase, cfg.Discord.BotToken, cfg.Discord.GuildID, roleCache, logger)
	oauthHandler := auth.NewDiscordOAuth(
		auth.DiscordOAuthConfig(cfg.Discord.ClientID, cfg.Discord.ClientSecret, cfg.Server.BaseURL),
		discord, states, cfg.Auth.StateTTL, sessions, memberStore, roleTable, logger,
	)
	authenticator := auth.NewAuthenticator(sessions, verifier, memberStore, logger).WithRoleRefresh(discord, roleTable)
	if roleCache == nil {
		logger.Warn("AUTH", "No guild profile cache, session roles are refreshed from Discord on every request")
	}

	eventHandler := event_api.NewHandler(eventService, qr.NewQRGenerator(cfg.Server.BaseURL), logger)
	memberHandler := member_api.NewHandler(memberStore, logger)
	pageHandler := web.NewHandler(eventService, logger)

	checks := []metrics.Check{{Name: "database", Required: true, Probe: bunDB.PingContext}}
	if redisClient != nil {
		checks = append(checks, metrics.Check{Name: "redis", Probe: func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}})
	}
	if cfg.Kafka.Enabled {
		checks = append(checks, metrics.Check{Name: "kafka", Probe: func(ctx context.Context) error {
			_, err := kafka.ListTopics(ctx, cfg.Kafka.Brokers)
			return err
		}})
	}
	health := metrics.NewHealth(checks...)

	logger.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(appMetrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// --- Public Routes ---
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)
	r.Handle("/metrics", appMetrics.Handler())
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, web.PagePath, http.StatusFound)
	})

	// --- Session-aware Routes ---
	r.Group(func(r chi.Router) {
		r.Use(authenticator.Middleware)

		oauthHandler.RegisterRoutes(r)
		logger.Info("ROUTER", "Auth routes registered under /api/auth")

		eventHandler.RegisterRoutes(r)
		logger.Info("ROUTER", "Event routes registered under /api/events")

		memberHandler.RegisterRoutes(r)
		logger.Info("ROUTER", "Member routes registered under /api/me")

		pageHandler.RegisterRoutes(r)
		logger.Info("ROUTER", "Calendar page registered at "+web.PagePath)
	})

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("HTTP", fmt.Sprintf("🚀 Calendar Service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	logger.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	logger.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		logger.Info("HTTP", "✅ Calendar Service shutdown complete")
	}
}
