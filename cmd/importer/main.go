package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/importer"
	brandrepo "storefront/internal/repository/brand"
	categoryrepo "storefront/internal/repository/category"
	productrepo "storefront/internal/repository/product"
	productsvc "storefront/internal/service/product"
)

func main() {
	var (
		filePath string
		workers  int
	)
	flag.StringVar(&filePath, "file", "", "Path to product CSV (sku,name,brand_id,category_ids,sale_price,original_price,stock,thumbnail)")
	flag.IntVar(&workers, "workers", 4, "Concurrent product inserts")
	flag.Parse()

	if filePath == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.FromEnv()
	logger := log.New(os.Stderr, "[importer] ", log.LstdFlags|log.LUTC)
	ctx := context.Background()

	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatalf("connect db: %v", err)
	}
	defer pool.Close()

	f, err := os.Open(filePath)
	if err != nil {
		logger.Fatalf("open file: %v", err)
	}
	defer f.Close()

	products := productsvc.New(
		productrepo.NewPostgres(pool, logger),
		brandrepo.NewPostgres(pool),
		categoryrepo.NewPostgres(pool),
		logger,
	)
	imp := importer.NewCSVImporter(f, products, workers)

	start := time.Now()
	count, err := imp.Run(ctx)
	var rowErrs *importer.ImportError
	switch {
	case errors.As(err, &rowErrs):
		logger.Printf("import finished with rejected rows: %v", rowErrs)
	case err != nil:
		logger.Fatalf("import failed after %d products: %v", count, err)
	}

	fmt.Printf("Imported %d products in %s\n", count, time.Since(start).Truncate(time.Millisecond))
	if rowErrs != nil {
		os.Exit(1)
	}
}
