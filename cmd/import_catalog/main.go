package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"pdv/internal/config"
	"pdv/internal/db"
	"pdv/internal/domain"
	"pdv/internal/excel"
	"pdv/internal/obs"
	"pdv/internal/repository"
	"pdv/internal/service"

	"go.uber.org/zap"
)

type options struct {
	filePath string
	ownerID  string
	dryRun   bool
}

func main() {
	opts := parseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	logger, err := obs.NewLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	rows, err := readCatalogRows(opts.filePath)
	if err != nil {
		logger.Fatal("read catalog file", zap.String("file", opts.filePath), zap.Error(err))
	}
	if opts.dryRun {
		for _, row := range rows {
			logger.Info("catalog row",
				zap.String("name", row.Name),
				zap.String("price", row.Price.StringFixed(2)),
				zap.Intp("stock", row.Stock),
			)
		}
		logger.Info("dry run complete", zap.Int("rows", len(rows)))
		return
	}

	if cfg.DatabaseURL == "" {
		logger.Fatal("DATABASE_URL is required for import")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("database error", zap.Error(err))
	}
	defer pool.Close()

	if err := db.RunMigrations(pool); err != nil {
		logger.Fatal("migration error", zap.Error(err))
	}

	svc := service.New(repository.New(pool), logger, service.Options{})
	created, updated, err := svc.ImportCatalog(ctx, domain.Session{OwnerID: opts.ownerID}, rows)
	if err != nil {
		logger.Fatal("import failed", zap.Error(err))
	}

	logger.Info("import complete",
		zap.String("owner_id", opts.ownerID),
		zap.Int("rows", len(rows)),
		zap.Int("created", created),
		zap.Int("updated", updated),
	)
}

func parseFlags() options {
	var opts options
	flag.StringVar(
		&opts.filePath,
		"file",
		"catalog.xlsx",
		"path to the catalog file (.xlsx or .csv)",
	)
	flag.StringVar(
		&opts.ownerID,
		"owner",
		"",
		"owner id the products belong to",
	)
	flag.BoolVar(
		&opts.dryRun,
		"dry-run",
		false,
		"parse and print the rows without touching the database",
	)
	flag.Parse()
	opts.ownerID = strings.TrimSpace(opts.ownerID)
	if opts.ownerID == "" && !opts.dryRun {
		fmt.Fprintln(os.Stderr, "--owner is required")
		os.Exit(2)
	}
	return opts
}

func readCatalogRows(path string) ([]domain.CatalogImportRow, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	rows, err := excel.ParseCatalogRows(path, file)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return rows, nil
}
