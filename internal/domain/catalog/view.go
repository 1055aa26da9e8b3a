package catalog

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/domain/product"
)

// Source loads the full product list from the catalog service.
type Source interface {
	List(ctx context.Context) ([]product.Product, error)
}

// ViewConfig holds non-dependency configuration for the View.
type ViewConfig struct {
	// Phone is the WhatsApp number order links are addressed to.
	Phone string
	// MaxAge bounds how long a loaded list is reused before the next render
	// fetches again. Zero keeps it until Refresh is called.
	MaxAge time.Duration
}

// View is the catalog page state: the last successfully loaded product list.
// Changing the filter re-renders from that list; Refresh fetches it again.
type View struct {
	source Source
	phone  string
	maxAge time.Duration
	now    func() time.Time

	mu       sync.Mutex
	products []product.Product
	loadedAt time.Time
	loaded   bool
}

// NewView creates a View that loads products from source.
func NewView(cfg ViewConfig, source Source) *View {
	return &View{
		source: source,
		phone:  cfg.Phone,
		maxAge: cfg.MaxAge,
		now:    time.Now,
	}
}

// Render returns the model for filter, loading the catalog first if nothing
// usable is cached. A failed load yields the failure model together with the
// error; it is not retried within the call.
func (v *View) Render(ctx context.Context, filter string) (Model, error) {
	products, ok := v.cached()
	if !ok {
		var err error
		if products, err = v.load(ctx); err != nil {
			return Failure(filter), err
		}
	}
	return Build(products, filter, v.phone), nil
}

// Refresh re-fetches the catalog and renders it under filter.
func (v *View) Refresh(ctx context.Context, filter string) (Model, error) {
	products, err := v.load(ctx)
	if err != nil {
		return Failure(filter), err
	}
	return Build(products, filter, v.phone), nil
}

func (v *View) cached() ([]product.Product, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.loaded {
		return nil, false
	}
	if v.maxAge > 0 && v.now().Sub(v.loadedAt) >= v.maxAge {
		return nil, false
	}
	return v.products, true
}

// load fetches the list and replaces the cache. Concurrent loads are not
// coordinated: whichever finishes last wins.
func (v *View) load(ctx context.Context) ([]product.Product, error) {
	products, err := v.source.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load catalog")
	}

	v.mu.Lock()
	v.products = products
	v.loadedAt = v.now()
	v.loaded = true
	v.mu.Unlock()

	return products, nil
}
