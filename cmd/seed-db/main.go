package main

import (
	"bufio"
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"

	"github.com/xenking/storefront/internal/api"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/storage/postgres"
)

func main() {
	var (
		databaseURL  string
		productsFile string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file, optionally gzipped (.json.gz)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("STORE_DATABASE_URL")
	}
	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile string) error {
	drafts, err := readDrafts(productsFile)
	if err != nil {
		return errors.Wrap(err, "read products")
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, postgres.NewProductRepository(pool), drafts); err != nil {
		return errors.Wrap(err, "seed products")
	}
	return nil
}

// readDrafts parses a JSON array of products. Prices may be numbers or
// numeric strings.
func readDrafts(path string) ([]product.Draft, error) {
	slog.Info("reading products file", slog.String("path", path))

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open")
	}
	defer f.Close()

	var r io.Reader = bufio.NewReader(f)
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(r)
		if err != nil {
			return nil, errors.Wrap(err, "gzip reader")
		}
		defer gz.Close()
		r = gz
	}

	var drafts []product.Draft
	d := jx.Decode(r, 64*1024)
	if err := d.Arr(func(d *jx.Decoder) error {
		raw, err := d.Raw()
		if err != nil {
			return err
		}
		draft, err := api.DecodeDraft(raw)
		if err != nil {
			return errors.Wrapf(err, "product %d", len(drafts))
		}
		draft = draft.Normalize()
		if err := draft.Validate(); err != nil {
			return errors.Wrapf(err, "product %d", len(drafts))
		}
		drafts = append(drafts, draft)
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "parse products JSON")
	}
	return drafts, nil
}

// seedProducts inserts every draft not already in the catalog. Products are
// matched by name and category so reruns do not duplicate them.
func seedProducts(ctx context.Context, repo product.Repository, drafts []product.Draft) error {
	existing, err := repo.List(ctx)
	if err != nil {
		return errors.Wrap(err, "list products")
	}
	seen := make(map[[2]string]struct{}, len(existing))
	for _, p := range existing {
		seen[[2]string{p.Name, p.Category}] = struct{}{}
	}

	slog.Info("inserting products", slog.Int("count", len(drafts)), slog.Int("existing", len(existing)))

	for _, draft := range drafts {
		key := [2]string{draft.Name, draft.Category}
		if _, ok := seen[key]; ok {
			slog.Info("skipped existing product", slog.String("name", draft.Name))
			continue
		}
		p, err := repo.Create(ctx, draft)
		if err != nil {
			return errors.Wrapf(err, "create product %q", draft.Name)
		}
		seen[key] = struct{}{}

		slog.Info("inserted product", slog.Int64("id", p.ID), slog.String("name", p.Name))
	}
	return nil
}
