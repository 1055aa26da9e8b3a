package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/catalogclient"
	"github.com/xenking/storefront/internal/domain/catalog"
	"github.com/xenking/storefront/internal/handler"
	"github.com/xenking/storefront/pkg/health"
	"github.com/xenking/storefront/pkg/httpmiddleware"
)

// RunStorefront serves the shopper-facing catalog page, backed by the
// catalog API at cfg.CatalogURL.
func RunStorefront(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *StorefrontConfig) error {
	lg.Info("Initializing storefront",
		zap.String("addr", cfg.Addr),
		zap.String("catalog_url", cfg.CatalogURL),
	)

	client := catalogclient.New(catalogclient.Config{
		BaseURL:        cfg.CatalogURL,
		Timeout:        cfg.FetchTimeout,
		TracerProvider: m.TracerProvider(),
		MeterProvider:  m.MeterProvider(),
	})
	view := catalog.NewView(catalog.ViewConfig{
		Phone:  cfg.WhatsAppNumber,
		MaxAge: cfg.CacheMaxAge,
	}, client)

	healthSvc := health.New()
	healthSvc.AddReadinessCheck("catalog", 5*time.Second, health.PingCheck(client))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	server := newServer(cfg.Addr, newStorefrontHandler(lg, cfg, view, healthSvc, m))

	return serve(ctx, lg, server, healthSvc, cfg.Graceful)
}

// newStorefrontHandler builds the catalog page routes wrapped in the
// middleware chain.
func newStorefrontHandler(
	lg *zap.Logger,
	cfg *StorefrontConfig,
	view handler.CatalogView,
	healthSvc *health.Health,
	t httpmiddleware.TelemetryProvider,
) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/", handler.NewStorefront(handler.StorefrontConfig{Title: cfg.Title}, view))
	routeFinder := httpmiddleware.MakeRouteFinder(mux)

	return httpmiddleware.Wrap(mux,
		httpmiddleware.Recovery(),
		httpmiddleware.InjectLogger(lg),
		httpmiddleware.RequestID(),
		httpmiddleware.Instrument("storefront-web", routeFinder, t),
		httpmiddleware.LogRequests(routeFinder),
		httpmiddleware.Labeler(routeFinder),
	)
}
