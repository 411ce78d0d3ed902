// Package main is the entry point for the Transcript Hub processor.
//
// The processor takes transcript documents from a directory, extracts their
// fields and subject rows, and reconciles each document into the normalized
// academic record store. It also exports assembled records and runs schema
// migrations.
//
// Usage:
//
//	processor migrate
//	processor process <dir>
//	processor export <regno> <out.xlsx>
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/acadhub/transcript-hub/config"
	"github.com/acadhub/transcript-hub/internal/application/command"
	"github.com/acadhub/transcript-hub/internal/application/query"
	"github.com/acadhub/transcript-hub/internal/domain/record"
	"github.com/acadhub/transcript-hub/internal/export"
	"github.com/acadhub/transcript-hub/internal/infrastructure/persistence/postgres"
	"github.com/acadhub/transcript-hub/internal/infrastructure/persistence/redis"
	"github.com/acadhub/transcript-hub/internal/infrastructure/persistence/sqlite"
	"github.com/acadhub/transcript-hub/internal/intake"
	"github.com/acadhub/transcript-hub/internal/refdata"
	"github.com/acadhub/transcript-hub/internal/resolve"
	"github.com/acadhub/transcript-hub/pkg/logger"
	"github.com/acadhub/transcript-hub/pkg/retry"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError()
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.New(logger.Options{
		Output: os.Stderr,
		Level:  logger.ParseLevel(cfg.Observability.LogLevel),
	})

	switch args[0] {
	case "migrate":
		return runMigrate(ctx, cfg, log)
	case "process":
		if len(args) != 2 {
			return fmt.Errorf("usage: processor process <dir>")
		}
		return runProcess(ctx, cfg, log, args[1])
	case "export":
		if len(args) != 3 {
			return fmt.Errorf("usage: processor export <regno> <out.xlsx>")
		}
		return runExport(ctx, cfg, log, args[1], args[2])
	default:
		return usageError()
	}
}

func usageError() error {
	return fmt.Errorf("usage: processor <migrate | process <dir> | export <regno> <out.xlsx>>")
}

// ─────────────────────────────────────────────────────────────────────────────
// Store wiring
// ─────────────────────────────────────────────────────────────────────────────

// openStore connects to the configured backend with retry, tolerating slow
// database startup.
func openStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (record.Store, error) {
	switch cfg.Store.Backend {
	case config.StorePostgres:
		pgCfg := postgres.DefaultConfig(cfg.Database.URL)
		pgCfg.MaxConns = int32(cfg.Database.MaxConns)
		pgCfg.MinConns = int32(cfg.Database.MinConns)
		pgCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime
		pgCfg.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime

		var conn *postgres.Connection
		err := retry.ConnectRetrier().Do(ctx, func(ctx context.Context) error {
			var cerr error
			conn, cerr = postgres.NewConnection(ctx, pgCfg)
			return cerr
		})
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		log.Info("connected to postgres store")
		return postgres.NewRecordStore(conn), nil

	case config.StoreSQLite:
		store, err := sqlite.Open(sqlite.Config{
			Path:        cfg.SQLite.Path,
			BusyTimeout: cfg.SQLite.BusyTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		log.Info("opened sqlite store", logger.String("path", store.Path()))
		return store, nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// openCache connects the record view cache, or returns nil when disabled.
func openCache(cfg *config.Config, log *logger.Logger) *redis.RecordViewCache {
	if cfg.Redis.Disabled {
		return nil
	}

	cache, err := redis.NewCache(redis.Config{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err != nil {
		// The cache is an optimization; run without it rather than fail.
		log.Warn("record view cache unavailable, continuing without it", logger.Err(err))
		return nil
	}
	return redis.NewRecordViewCache(cache)
}

// ─────────────────────────────────────────────────────────────────────────────
// Subcommands
// ─────────────────────────────────────────────────────────────────────────────

func runMigrate(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	switch cfg.Store.Backend {
	case config.StorePostgres:
		conn, err := postgres.NewConnection(ctx, postgres.DefaultConfig(cfg.Database.URL))
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer conn.Close()

		migrator := postgres.NewMigrator(conn)
		if err := migrator.Up(ctx); err != nil {
			return err
		}
		log.Info("migrations applied")
		return nil

	case config.StoreSQLite:
		// The sqlite store bootstraps its schema on open.
		store, err := sqlite.Open(sqlite.Config{
			Path:        cfg.SQLite.Path,
			BusyTimeout: cfg.SQLite.BusyTimeout,
		})
		if err != nil {
			return err
		}
		defer store.Close()

		log.Info("sqlite schema ready", logger.String("path", store.Path()))
		return nil

	default:
		return fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

func runProcess(ctx context.Context, cfg *config.Config, log *logger.Logger, dir string) error {
	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	periods, err := refdata.LoadExamPeriods(cfg.RefData.ExamPeriodsPath)
	if err != nil {
		return fmt.Errorf("load exam periods: %w", err)
	}
	catalog, err := refdata.LoadSubjectCatalog(cfg.RefData.SubjectCatalogPath, cfg.RefData.DefaultCredits)
	if err != nil {
		return fmt.Errorf("load subject catalog: %w", err)
	}
	resolver := resolve.New(periods)
	cache := openCache(cfg, log)

	// Batch runs fail fast when the store is not ready, before any document
	// is read.
	if err := retry.DatabaseRetrier().Do(ctx, store.Ping); err != nil {
		return fmt.Errorf("store not ready: %w", err)
	}

	reader := intake.NewReader(cfg.Intake.PdftotextPath, cfg.Intake.ExtractTimeout)
	docs, err := reader.ReadDir(ctx, dir)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return fmt.Errorf("no .pdf or .txt documents in %s", dir)
	}

	var invalidator command.RecordCacheInvalidator
	if cache != nil {
		invalidator = cache
	}
	documents := command.NewProcessDocumentHandler(store, resolver, catalog, invalidator, log)
	batch := command.NewProcessBatchHandler(documents, log)

	res, runErr := batch.Handle(ctx, command.ProcessBatchCommand{Documents: docs})
	if res != nil {
		for i, outcome := range res.Outcomes {
			line := fmt.Sprintf("%-40s %s", docs[i].Source, outcome.Status)
			if outcome.Regno != "" {
				line += fmt.Sprintf("  regno=%s semester=%d", outcome.Regno, outcome.ResolvedSemester)
			}
			if outcome.Status == command.StatusProcessed {
				line += fmt.Sprintf("  inserted=%d updated=%d", outcome.GradesInserted, outcome.GradesUpdated)
			}
			if outcome.Reason != "" {
				line += fmt.Sprintf("  reason=%q", outcome.Reason)
			}
			fmt.Println(line)
		}
		fmt.Printf("total: %d processed, %d skipped, %d failed\n", res.Processed, res.Skipped, res.Failed)
	}
	return runErr
}

func runExport(ctx context.Context, cfg *config.Config, log *logger.Logger, regno, outPath string) error {
	r := record.Regno(regno)
	if !r.IsValid() {
		return fmt.Errorf("invalid registration number %q", regno)
	}

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	var viewCache query.RecordViewCache
	if cache := openCache(cfg, log); cache != nil {
		viewCache = cache
	}

	records := query.NewGetStudentRecordHandler(store, viewCache, log)
	svc := export.NewService(records, log)

	data, err := svc.ExportRecordXLSX(ctx, r)
	if err != nil {
		return err
	}
	if err := os.WriteFile(outPath, data, 0644); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}

	fmt.Printf("exported %s to %s\n", regno, outPath)
	return nil
}
