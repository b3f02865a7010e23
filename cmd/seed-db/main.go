// Command seed-db loads a products catalog into PostgreSQL or a products
// file for the file backend.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/storage/jsonfile"
	"github.com/xenking/storefront/internal/storage/postgres"
)

type options struct {
	databaseURL  string
	productsFile string
	outFile      string
	concurrency  int
}

func main() {
	var opts options
	flag.StringVar(&opts.databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&opts.productsFile, "products-file", "", "products JSON file, optionally .gz (default: embedded sample catalog)")
	flag.StringVar(&opts.outFile, "out", "", "write the catalog to this products file instead of, or as well as, PostgreSQL")
	flag.IntVar(&opts.concurrency, "concurrency", 4, "concurrent upserts")
	flag.Parse()

	if opts.databaseURL == "" {
		opts.databaseURL = os.Getenv("DATABASE_URL")
	}

	lg, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, opts); err != nil {
		lg.Error("Seed failed", zap.Error(err))
		os.Exit(1)
	}
	lg.Info("Seed completed")
}

func run(ctx context.Context, lg *zap.Logger, opts options) error {
	if opts.databaseURL == "" && opts.outFile == "" {
		return errors.New("nothing to do: set --database-url, DATABASE_URL or --out")
	}

	products, err := readCatalog(opts.productsFile)
	if err != nil {
		return errors.Wrap(err, "read catalog")
	}
	lg.Info("Catalog loaded", zap.Int("products", len(products)), zap.String("source", sourceName(opts.productsFile)))

	if opts.outFile != "" {
		if _, err := jsonfile.Create(ctx, opts.outFile, products); err != nil {
			return errors.Wrap(err, "write products file")
		}
		lg.Info("Products file written", zap.String("path", opts.outFile))
	}

	if opts.databaseURL != "" {
		if err := seedPostgres(ctx, lg, opts, products); err != nil {
			return err
		}
	}
	return nil
}

func seedPostgres(ctx context.Context, lg *zap.Logger, opts options, products []product.Product) error {
	lg.Info("Connecting to database")
	pool, err := postgres.NewPool(ctx, opts.databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	repo := postgres.NewProductRepository(pool)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.concurrency, 1))
	for i := range products {
		p := &products[i]
		g.Go(func() error {
			if err := repo.Upsert(gctx, p); err != nil {
				return errors.Wrapf(err, "upsert product %s", p.ID)
			}
			lg.Debug("Upserted product", zap.String("id", p.ID))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	lg.Info("Products upserted", zap.Int("count", len(products)))
	return nil
}
