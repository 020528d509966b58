package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/donaldtakou/huguesfront/internal/cache"
	"github.com/donaldtakou/huguesfront/internal/cart"
	"github.com/donaldtakou/huguesfront/internal/checkout"
	h "github.com/donaldtakou/huguesfront/internal/http"
	"github.com/donaldtakou/huguesfront/internal/payment"
	"github.com/donaldtakou/huguesfront/internal/repository"
)

type Config struct {
	HTTPPort         string
	MongoURI         string
	MongoDBName      string
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64
	RedisAddr        string
	RedisPassword    string
	DBHost           string
	DBPort           int
	DBUser           string
	DBPassword       string
	DBName           string
	MigrationsPath   string
	KafkaBrokers     []string
	Currency         string
	RequestTimeout   time.Duration
	ShutdownTimeout  time.Duration
}

func loadConfig() *Config {
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		log.Fatal().Err(err).Msg("invalid DB_PORT")
	}
	mongoMaxPool, err := strconv.ParseUint(getEnv("MONGO_MAX_POOL_SIZE", "100"), 10, 64)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid MONGO_MAX_POOL_SIZE")
	}
	mongoMinPool, err := strconv.ParseUint(getEnv("MONGO_MIN_POOL_SIZE", "10"), 10, 64)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid MONGO_MIN_POOL_SIZE")
	}
	return &Config{
		HTTPPort:         getEnv("HTTP_PORT", "8080"),
		MongoURI:         getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:      getEnv("MONGO_DB_NAME", "storefront"),
		MongoMaxPoolSize: mongoMaxPool,
		MongoMinPoolSize: mongoMinPool,
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		DBHost:           getEnv("DB_HOST", "localhost"),
		DBPort:           dbPort,
		DBUser:           getEnv("DB_USER", "postgres"),
		DBPassword:       getEnv("DB_PASSWORD", "postgres"),
		DBName:           getEnv("DB_NAME", "storefront"),
		MigrationsPath:   getEnv("MIGRATIONS_PATH", "./internal/checkout/migrations"),
		KafkaBrokers:     strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
		Currency:         getEnv("CURRENCY", "XAF"),
		RequestTimeout:   30 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})

	cfg := loadConfig()

	// Cart storage
	ctx := context.Background()
	mongoDB, err := repository.ConnectMongoDB(ctx, repository.MongoConfig{
		URI:         cfg.MongoURI,
		Database:    cfg.MongoDBName,
		MaxPoolSize: cfg.MongoMaxPoolSize,
		MinPoolSize: cfg.MongoMinPoolSize,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to MongoDB")
	}
	repo := repository.NewMongoRepository(mongoDB)
	log.Info().Str("uri", cfg.MongoURI).Msg("connected to MongoDB")

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}
	log.Info().Str("addr", cfg.RedisAddr).Msg("redis ping succeeded")

	cartCache := cache.NewRedisCache(redisClient)
	cartService := cart.NewService(repo, cartCache)

	// Orders storage
	creds := &checkout.Credentials{
		Host:              cfg.DBHost,
		Port:              cfg.DBPort,
		User:              cfg.DBUser,
		Password:          cfg.DBPassword,
		DBName:            cfg.DBName,
		MigrationsDirPath: cfg.MigrationsPath,
	}
	orderRepo, err := checkout.NewRepository(creds)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer orderRepo.Close()

	if err := orderRepo.RunMigrations(creds); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}
	log.Info().Msg("database migrations completed")

	// Payment stack
	registry := payment.DefaultRegistry()
	providers := payment.NewSimulatedSet(registry)
	checkoutService := checkout.NewService(cartService, registry, providers, orderRepo, cfg.Currency)

	// Outbox poller
	pollerCtx, pollerCancel := context.WithCancel(context.Background())
	defer pollerCancel()
	poller := checkout.NewOutboxPoller(orderRepo, cfg.KafkaBrokers...)
	go poller.Run(pollerCtx)

	cartHandler := h.NewCartHandler(cartService, cfg.RequestTimeout)
	checkoutHandler := h.NewCheckoutHandler(checkoutService, registry, cfg.RequestTimeout)
	paymentHandler := h.NewPaymentHandler(providers, cfg.RequestTimeout)

	// Setup router
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))
	r.Use(h.MockAuthMiddleware)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Delete("/", cartHandler.ClearCart)
			r.Post("/items", cartHandler.AddItem)
			r.Put("/items/{product_id}", cartHandler.UpdateQuantity)
			r.Delete("/items/{product_id}", cartHandler.RemoveItem)
			r.Post("/toggle", cartHandler.ToggleCart)
		})
		r.Route("/payment", func(r chi.Router) {
			r.Get("/methods", checkoutHandler.ListMethods)
			r.Post("/verify", paymentHandler.Verify)
			r.Post("/refund", paymentHandler.Refund)
		})
		r.Post("/checkout", checkoutHandler.Checkout)
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 35 * time.Second, // above the request timeout: provider simulations are slow
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("storefront server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")
	pollerCancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited")
}
