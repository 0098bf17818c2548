package main

import (
	"context"   // Shutdown deadlines
	"errors"    // Server closed check
	"net/http"  // HTTP server
	"os"        // Signals
	"os/signal" // Signal notification
	"syscall"   // SIGTERM
	"time"      // Timeouts

	"marketplace/internal/api"       // Custom package for API handlers
	"marketplace/internal/catalog"   // Product store
	"marketplace/internal/config"    // Custom package for configuration
	"marketplace/internal/db"        // Store connection and schema
	"marketplace/internal/inventory" // Stock ledger
	"marketplace/internal/notify"    // Order notifications
	"marketplace/internal/orders"    // Order lifecycle
	"marketplace/internal/roles"     // Role ledger
	"marketplace/internal/stats"     // Admin totals
	"marketplace/internal/telemetry" // Tracing and metrics

	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
)

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration

	// Setup logger
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if cfg.IsProd {
		log.SetFormatter(&logrus.JSONFormatter{}) // Machine-readable logs in production
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	ctx := context.Background() // Root context for setup

	// Setup tracing and metrics
	shutdownTracer, err := telemetry.InitTracerProvider(ctx, telemetry.TraceOptions{
		ServiceName:  cfg.ServiceName,  // Resource name
		OTLPEndpoint: cfg.OTLPEndpoint, // Collector, if any
		Stdout:       cfg.OTelStdout,   // Print spans locally
	})
	if err != nil {
		log.Fatalf("failed to init tracing: %v", err)
	}
	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider(cfg.ServiceName)
	if err != nil {
		log.Fatalf("failed to init metrics: %v", err)
	}

	// Connect to the database
	gdb, err := db.Open(cfg)
	if err != nil {
		log.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}
	if cfg.AutoMigrate {
		if err := db.Migrate(gdb); err != nil {
			log.Fatalf("failed to migrate: %v", err)
		}
	}

	// Setup Redis client, caching stays off without an address
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr, // Redis server address
			Password: cfg.RedisPass, // Redis password
			DB:       cfg.RedisDB,   // Redis database number
		})
		// Test Redis connection
		if _, err := redisClient.Ping(ctx).Result(); err != nil {
			log.Fatalf("failed to connect to Redis: %v", err)
		}
	}

	// Order notifications: always logged, published to Kafka when configured
	notifiers := notify.Multi{notify.NewLogNotifier(log)}
	var kafkaNotifier *notify.KafkaNotifier
	if len(cfg.KafkaBrokers) > 0 {
		kafkaNotifier = notify.NewKafkaNotifier(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.ServiceName, 1024, log)
		kafkaNotifier.Start()
		notifiers = append(notifiers, kafkaNotifier)
	}

	// Services
	roleLedger := roles.NewLedger(gdb, log)
	stock := inventory.NewLedger(gdb, log)
	router := api.NewRouter(api.Deps{
		Config:  cfg,
		Log:     log,
		DB:      gdb,
		Redis:   redisClient,
		Roles:   roleLedger,
		Stock:   stock,
		Orders:  orders.NewLifecycle(gdb, stock, notifiers, log),
		Views:   orders.NewViewBuilder(gdb),
		Catalog: catalog.New(gdb, stock, log),
		Stats:   stats.New(gdb),
		Metrics: metricsHandler,
	})

	// Set trusted proxies for Gin
	if err := router.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		log.Fatalf("failed to set trusted proxies: %v", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.WithField("port", cfg.AppPort).Info("Server running") // Log server start
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	// Wait for a shutdown signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("HTTP shutdown failed")
	}
	// Drain queued events before the store goes away
	if kafkaNotifier != nil {
		if err := kafkaNotifier.Close(); err != nil {
			log.WithError(err).Error("Kafka notifier close failed")
		}
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if err := db.Close(gdb); err != nil {
		log.WithError(err).Error("DB close failed")
	}
	_ = shutdownMeter(shutdownCtx)
	_ = shutdownTracer(shutdownCtx)
}
