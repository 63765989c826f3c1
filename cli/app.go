package cli

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/vnkhanh/erp-questionnaire/cache"
	"github.com/vnkhanh/erp-questionnaire/config"
	"github.com/vnkhanh/erp-questionnaire/repository"
	"github.com/vnkhanh/erp-questionnaire/services"
	"github.com/vnkhanh/erp-questionnaire/storage"
)

// app holds the wiring shared by the commands.
type app struct {
	cfg       config.Config
	log       *slog.Logger
	db        *gorm.DB
	redis     *redis.Client
	store     *repository.Store
	catalog   cache.Catalog
	blobs     storage.Blobs
	submitter *services.Submitter
	progress  *services.Progress
	exporter  *services.Exporter
	importer  *services.Importer
}

func newApp(path string) (*app, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	logger := config.InitLogger(cfg.Log)

	db, err := config.OpenDB(cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	store := repository.New(db, cfg.Paging)

	a := &app{cfg: cfg, log: logger, db: db, store: store}

	ttl := config.Duration(cfg.Redis.TTL, 10*time.Minute)
	if cfg.Redis.Addr != "" {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		a.catalog = cache.NewRedisCatalog(a.redis, store, ttl, logger)
	} else {
		a.catalog = cache.NewMemoryCatalog(store, ttl)
	}

	if cfg.Supabase.URL != "" && cfg.Supabase.Key != "" {
		a.blobs = storage.NewSupabase(cfg.Supabase.URL, cfg.Supabase.Key, cfg.Supabase.Bucket)
	} else {
		logger.Warn("supabase is not configured, uploads are kept in memory")
		a.blobs = storage.NewMemory("http://localhost:" + cfg.Server.Port + "/files")
	}

	a.submitter = services.NewSubmitter(store, a.catalog, a.blobs, logger)
	a.progress = services.NewProgress(store, a.catalog)
	a.exporter = services.NewExporter(store, a.blobs, services.ExporterConfig{
		Timeout: config.Duration(cfg.Export.Timeout, services.DefaultExportTimeout),
		Paging:  cfg.Paging,
		Dir:     cfg.Export.Dir,
	}, logger)
	a.importer = services.NewImporter(store, a.catalog, logger)
	return a, nil
}

func (a *app) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn("redis close failed", slog.Any("error", err))
		}
	}
	if sqlDB, err := a.db.DB(); err == nil {
		sqlDB.Close()
	}
}
