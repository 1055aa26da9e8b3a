package handler

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"net/http"
	"strconv"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/catalog"
)

//go:embed templates/catalog.html
var templates embed.FS

var catalogPage = template.Must(template.ParseFS(templates, "templates/catalog.html"))

// CatalogView renders the catalog page model.
type CatalogView interface {
	Render(ctx context.Context, filter string) (catalog.Model, error)
	Refresh(ctx context.Context, filter string) (catalog.Model, error)
}

// StorefrontConfig holds non-dependency configuration for the Storefront.
type StorefrontConfig struct {
	Title string
}

// Storefront serves the shopper-facing catalog page.
type Storefront struct {
	view  CatalogView
	title string
}

// NewStorefront creates the catalog page handler.
func NewStorefront(cfg StorefrontConfig, view CatalogView) *Storefront {
	if cfg.Title == "" {
		cfg.Title = "Our Products"
	}
	return &Storefront{view: view, title: cfg.Title}
}

type pageData struct {
	Title string
	Model catalog.Model
}

// ServeHTTP renders the catalog for the category in ?category=. With
// ?refresh=1 the product list is fetched again first.
func (s *Storefront) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, msgMethodNotAllowed, http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	query := r.URL.Query()
	filter := query.Get("category")

	var (
		model catalog.Model
		err   error
	)
	if refresh, _ := strconv.ParseBool(query.Get("refresh")); refresh {
		model, err = s.view.Refresh(ctx, filter)
	} else {
		model, err = s.view.Render(ctx, filter)
	}
	if err != nil {
		zctx.From(ctx).Warn("Load catalog", zap.Error(err))
	}

	var buf bytes.Buffer
	if err := catalogPage.Execute(&buf, pageData{Title: s.title, Model: model}); err != nil {
		zctx.From(ctx).Error("Render catalog page", zap.Error(err))
		http.Error(w, msgInternal, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
