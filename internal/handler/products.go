package handler

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/api"
	"github.com/xenking/storefront/internal/domain/product"
)

// maxProductBody bounds create and delete request bodies.
const maxProductBody = 1 << 20

// Products dispatches /products by method.
func (h *Handler) Products(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listProducts(w, r)
	case http.MethodPost:
		h.createProduct(w, r)
	case http.MethodDelete:
		h.deleteProduct(w, r)
	default:
		methodNotAllowed(w, "GET, POST, DELETE")
	}
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		internalError(r.Context(), w, "List products", err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { api.EncodeProducts(e, products) })
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxProductBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Request body is too large or unreadable.")
		return
	}

	draft, err := api.DecodeDraft(body)
	if err != nil {
		var fieldErr *api.InvalidFieldError
		if errors.As(err, &fieldErr) {
			writeError(w, http.StatusBadRequest, "Invalid "+fieldErr.Field+".")
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid JSON body.")
		return
	}

	draft = draft.Normalize()
	if err := draft.Validate(); err != nil {
		var validationErr *product.ValidationError
		switch {
		case errors.As(err, &validationErr):
			writeError(w, http.StatusBadRequest, "All fields are required.")
		case errors.Is(err, product.ErrNegativePrice):
			writeError(w, http.StatusBadRequest, "Price must not be negative.")
		case errors.Is(err, product.ErrPriceOutOfRange):
			writeError(w, http.StatusBadRequest, "Price must be below 10,000,000,000 with at most two decimal places.")
		default:
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	p, err := h.products.Create(r.Context(), draft)
	if err != nil {
		internalError(r.Context(), w, "Create product", err)
		return
	}

	zctx.From(r.Context()).Info("Product created", zap.Int64("product_id", p.ID))
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("message", func(e *jx.Encoder) { e.Str("Product added successfully") })
			e.Field("product", func(e *jx.Encoder) { api.EncodeProduct(e, *p) })
		})
	})
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("id"))
	if raw == "" && r.Body != nil {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxProductBody))
		if err != nil {
			writeError(w, http.StatusBadRequest, "Request body is too large or unreadable.")
			return
		}
		if len(strings.TrimSpace(string(body))) > 0 {
			if raw, err = api.DecodeDeleteID(body); err != nil {
				writeError(w, http.StatusBadRequest, "Invalid JSON body.")
				return
			}
		}
	}
	if raw == "" {
		writeError(w, http.StatusBadRequest, "Product ID is required.")
		return
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid product ID.")
		return
	}

	if err := h.products.Delete(r.Context(), id); err != nil {
		if errors.Is(err, product.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Product not found.")
			return
		}
		internalError(r.Context(), w, "Delete product", err)
		return
	}

	zctx.From(r.Context()).Info("Product deleted", zap.Int64("product_id", id))
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		api.EncodeMessage(e, "Product ID "+strconv.FormatInt(id, 10)+" deleted successfully.")
	})
}
