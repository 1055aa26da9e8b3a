package handler

import (
	"context"
	"net/http"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/api"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/upload"
)

const (
	msgMethodNotAllowed = "Method not allowed"
	msgInternal         = "Internal server error"
)

// Uploader stores a single uploaded file.
type Uploader interface {
	Upload(ctx context.Context, f upload.File) (*upload.Result, error)
}

// HandlerConfig holds non-dependency configuration for the Handler.
type HandlerConfig struct {
	// MaxUploadBytes bounds the size of an upload request body.
	MaxUploadBytes int64
	// MaxMemory is how much of a multipart body is kept in memory before
	// parts spill to temporary files.
	MaxMemory int64
}

// Handler serves the catalog and upload APIs.
type Handler struct {
	products       product.Repository
	uploads        Uploader
	maxUploadBytes int64
	maxMemory      int64
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(cfg HandlerConfig, products product.Repository, uploads Uploader) *Handler {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 10 << 20
	}
	if cfg.MaxMemory <= 0 {
		cfg.MaxMemory = 1 << 20
	}
	return &Handler{
		products:       products,
		uploads:        uploads,
		maxUploadBytes: cfg.MaxUploadBytes,
		maxMemory:      cfg.MaxMemory,
	}
}

// Register mounts the API routes on mux, both with and without the /api
// prefix.
func (h *Handler) Register(mux *http.ServeMux) {
	for _, prefix := range []string{"/api", ""} {
		mux.HandleFunc(prefix+"/products", h.Products)
		mux.HandleFunc(prefix+"/upload", h.Upload)
	}
}

// methodNotAllowed answers 405 advertising the allowed methods.
func methodNotAllowed(w http.ResponseWriter, allow string) {
	w.Header().Set("Allow", allow)
	writeError(w, http.StatusMethodNotAllowed, msgMethodNotAllowed)
}

// internalError logs err and answers with a generic 500.
func internalError(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	zctx.From(ctx).Error(msg, zap.Error(err))
	writeError(w, http.StatusInternalServerError, msgInternal)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, func(e *jx.Encoder) { api.EncodeError(e, msg) })
}

func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	encode(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// The status is already written; a failed write means the client left.
	_, _ = e.WriteTo(w)
}
