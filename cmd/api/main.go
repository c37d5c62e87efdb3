package main

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"docvault/docs"
	"docvault/internal/auth"
	"docvault/internal/config"
	"docvault/internal/database"
	"docvault/internal/database/migration"
	"docvault/internal/event"
	handlers "docvault/internal/http/handler"
	"docvault/internal/http/middleware"
	"docvault/internal/metadata"
	"docvault/internal/otel"
	"docvault/internal/repository/postgres"
	"docvault/internal/service"
	"docvault/internal/storage"
)

// @title Document Vault API
// @version 1.0
// @BasePath /
func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()

	ctx := context.Background()

	// Initialize OpenTelemetry tracing (no-op when OTEL_SDK_DISABLED=true)
	shutdownTracing, err := otel.Init(ctx, time.UTC)
	if err != nil {
		log.Fatalf("failed to initialize tracing: %v", err)
	}
	defer shutdownTracing(ctx)

	// Initialize PostgreSQL connection (with pooling via database/sql)
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db, time.UTC, cfg.Database.Host); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	// Initialize reusable S3-compatible object storage client (MinIO-supported)
	objStore, err := storage.NewMinIO(cfg.MinIO)
	if err != nil {
		log.Fatalf("failed to initialize object storage: %v", err)
	}

	// Lifecycle events go out through a durable topic exchange
	publisher, err := event.NewRabbitMQ(cfg.RabbitMQ)
	if err != nil {
		log.Fatalf("failed to connect to message broker: %v", err)
	}
	defer publisher.Close()

	// External metadata service client
	metaClient, err := metadata.NewHTTPClient(cfg.Metadata)
	if err != nil {
		log.Fatalf("failed to initialize metadata client: %v", err)
	}

	verifier, err := auth.NewVerifier(cfg.Auth)
	if err != nil {
		log.Fatalf("failed to initialize token verifier: %v", err)
	}

	// Initialize repositories and the lifecycle orchestrator
	docRepo := postgres.NewDocumentPostgres(db)
	ledger := postgres.NewIdempotencyPostgres(db)
	retention := time.Duration(cfg.Idempotency.RetentionSec) * time.Second
	docSvc := service.NewDocumentService(objStore, docRepo, ledger, metaClient, publisher, retention)

	// Abandoned idempotency entries are swept on a fixed interval
	go evictLoop(ctx, docSvc, time.Duration(cfg.Idempotency.EvictIntervalSec)*time.Second)

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
	})

	// Register global middleware
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	// JSON Logger middleware for structured request logs
	app.Use(middleware.Logger())
	app.Use(otelfiber.Middleware())

	promMiddleware, err := middleware.NewPrometheusMiddleware(prometheus.DefaultRegisterer)
	if err != nil {
		log.Fatalf("failed to register metrics: %v", err)
	}
	app.Use(promMiddleware.Handler())
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Register HTTP routes with injected service; document routes require a
	// bearer token with the configured scope
	authn := middleware.Auth(verifier, cfg.Auth.RequiredScope)
	handlers.RegisterRoutes(app, db, docSvc, authn)

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	addr := ":" + cfg.Port

	if err := app.Listen(addr); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}

func evictLoop(ctx context.Context, svc service.DocumentService, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := svc.EvictExpired(ctx); err != nil {
				log.Printf("idempotency eviction failed: %v", err)
			}
		}
	}
}
