package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/upload"
	"github.com/xenking/storefront/internal/handler"
	"github.com/xenking/storefront/internal/storage/postgres"
	"github.com/xenking/storefront/internal/storage/s3"
	"github.com/xenking/storefront/pkg/health"
	"github.com/xenking/storefront/pkg/httpmiddleware"
)

// Run creates all dependencies of the catalog API, starts the HTTP server
// and handles graceful shutdown. It is the single wiring point for the API.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Image store. A missing bucket or half a key pair is not fatal: the
	// catalog keeps working and uploads answer with a configuration error.
	store, err := s3.New(ctx, cfg.S3)
	if err != nil {
		return errors.Wrap(err, "create image store")
	}
	if cfg.S3.Bucket == "" {
		lg.Warn("Image store bucket is not set, uploads will fail")
	}

	uploads, err := upload.NewService(upload.Config{
		Prefix:         cfg.Upload.Prefix,
		TempDir:        cfg.Upload.TempDir,
		TracerProvider: m.TracerProvider(),
		MeterProvider:  m.MeterProvider(),
	}, store)
	if err != nil {
		return errors.Wrap(err, "create upload service")
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(pool))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	productRepo := postgres.NewProductRepository(pool)
	server := newServer(cfg.Addr, newAPIHandler(ctx, lg, cfg, productRepo, uploads, healthSvc, m))

	return serve(ctx, lg, server, healthSvc, cfg.Graceful)
}

// newAPIHandler builds the catalog API routes wrapped in the middleware chain.
func newAPIHandler(
	ctx context.Context,
	lg *zap.Logger,
	cfg *Config,
	products product.Repository,
	uploads handler.Uploader,
	healthSvc *health.Health,
	t httpmiddleware.TelemetryProvider,
) http.Handler {
	h := handler.NewHandler(handler.HandlerConfig{
		MaxUploadBytes: cfg.Upload.MaxBytes,
	}, products, uploads)

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	h.Register(mux)
	routeFinder := httpmiddleware.MakeRouteFinder(mux)

	return httpmiddleware.Wrap(mux,
		httpmiddleware.Recovery(),
		httpmiddleware.CORS(httpmiddleware.CORSConfig{
			AllowOrigins:     cfg.CORS.Origins,
			AllowHeaders:     []string{"Content-Type", httpmiddleware.RequestIDHeader},
			AllowCredentials: cfg.CORS.AllowCredentials,
			MaxAge:           86400,
		}),
		httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
			Max:    cfg.RateLimit.Max,
			Window: cfg.RateLimit.Window,
			Skip:   httpmiddleware.SkipPaths("/livez", "/readyz"),
		}),
		httpmiddleware.InjectLogger(lg),
		httpmiddleware.RequestID(),
		httpmiddleware.Instrument("storefront-api", routeFinder, t),
		httpmiddleware.LogRequests(routeFinder),
		httpmiddleware.Labeler(routeFinder),
	)
}
