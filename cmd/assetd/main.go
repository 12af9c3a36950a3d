package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/l1jgo/assetd/internal/asset"
	"github.com/l1jgo/assetd/internal/config"
	"github.com/l1jgo/assetd/internal/loader"
	"github.com/l1jgo/assetd/internal/persist"
	"github.com/l1jgo/assetd/internal/scripting"
	"github.com/l1jgo/assetd/internal/toc"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const version = "v0.1.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config
	cfgPath := "config/assetd.toml"
	if p := os.Getenv("ASSETD_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfgPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Build the resource loader
	printSection("loader")

	opts := []loader.Option{
		loader.WithLogger(log),
		loader.WithConcurrency(cfg.Loader.Concurrency),
		loader.WithTimeout(cfg.Loader.Timeout),
	}
	if cfg.Cache.Enabled {
		cache, err := loader.OpenCache(cfg.Cache.Dir, log)
		if err != nil {
			return fmt.Errorf("content cache: %w", err)
		}
		defer cache.Close()
		opts = append(opts, loader.WithCache(cache))
		printOK(fmt.Sprintf("content cache at %q", cfg.Cache.Dir))
	} else {
		printSkip("content cache disabled")
	}

	fetcher := loader.MuxFetcher{
		Local:  loader.FSFetcher{FS: os.DirFS(cfg.Loader.Root)},
		Remote: loader.HTTPFetcher{Client: &http.Client{Timeout: cfg.Loader.HTTPTimeout}},
	}
	ld, err := loader.New(fetcher, opts...)
	if err != nil {
		return fmt.Errorf("loader: %w", err)
	}
	printOK(fmt.Sprintf("serving relative urls from %q", cfg.Loader.Root))
	fmt.Println()

	// 4. Create the registry and seed it
	reg, err := asset.NewRegistry(ld, cfg.Registry.URLPrefix, asset.WithLogger(log))
	if err != nil {
		return fmt.Errorf("registry: %w", err)
	}

	printSection("table of contents")

	if cfg.Registry.TOC != "" {
		entries, err := toc.LoadFile(cfg.Registry.TOC)
		if err != nil {
			return fmt.Errorf("load toc: %w", err)
		}
		reg.Update(entries)
		printStat("toc file entries", len(entries))
	}

	if cfg.Database.Enabled {
		n, err := updateFromDB(ctx, reg, cfg.Database, log)
		if err != nil {
			return err
		}
		printStat("database entries", n)
	}
	printStat("assets", reg.Count())
	fmt.Println()

	// 5. Preload
	var preloaded []*asset.Asset
	if cfg.Registry.Preload {
		printSection("preload")
		preloaded, err = preload(ctx, reg)
		if err != nil {
			return fmt.Errorf("preload: %w", err)
		}
		printStat("preloaded", len(preloaded))
		fmt.Println()
	}

	// 6. Example scripts
	if cfg.Scripting.Dir != "" {
		printSection("scripts")
		eng := scripting.NewEngine(reg, log)
		defer eng.Close()

		n, err := eng.RunDir(cfg.Scripting.Dir)
		if err != nil {
			return fmt.Errorf("scripts: %w", err)
		}
		if err := eng.CallHook("on_preload", preloaded); err != nil {
			return fmt.Errorf("scripts: %w", err)
		}
		printStat("scripts run", n)
		fmt.Println()
	}

	log.Info("registry ready", zap.Int("assets", reg.Count()), zap.Int("preloaded", len(preloaded)))
	return nil
}

func updateFromDB(ctx context.Context, reg *asset.Registry, cfg config.DatabaseConfig, log *zap.Logger) (int, error) {
	dbCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	db, err := persist.NewDB(dbCtx, cfg, log)
	if err != nil {
		return 0, fmt.Errorf("database: %w", err)
	}
	defer db.Close()

	if err := persist.RunMigrations(dbCtx, db.Pool, log); err != nil {
		return 0, fmt.Errorf("migrations: %w", err)
	}
	entries, err := persist.NewAssetRepo(db).LoadTOC(dbCtx)
	if err != nil {
		return 0, fmt.Errorf("load toc from database: %w", err)
	}
	reg.Update(entries)
	return len(entries), nil
}

// preload loads every asset flagged for preloading as a single batch.
func preload(ctx context.Context, reg *asset.Registry) ([]*asset.Asset, error) {
	var batch []*asset.Asset
	for _, a := range reg.Assets() {
		if a.Preload {
			batch = append(batch, a)
		}
	}
	if len(batch) == 0 {
		return nil, nil
	}
	if _, err := reg.Load(ctx, batch).Wait(ctx); err != nil {
		return nil, err
	}
	return batch, nil
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
