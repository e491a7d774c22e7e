package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"splitbill/internal/api"
	"splitbill/internal/config"
	"splitbill/internal/extractor"
	"splitbill/internal/imagestore"
	imagefs "splitbill/internal/imagestore/fs"
	images3 "splitbill/internal/imagestore/s3"
	"splitbill/internal/middleware"
	"splitbill/internal/ocr/tesseract"
	"splitbill/internal/service"
	"splitbill/internal/storage"
	"splitbill/internal/storage/postgres"
	"splitbill/internal/storage/sqlite"
	"splitbill/pkg/logging"
)

const defaultConfigPath = "./splitbill.toml"

func main() {
	logging.Setup()

	configPath := os.Getenv("SPLITBILL_CONFIG")
	if configPath == "" {
		configPath = defaultConfigPath
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("Failed to load config", "path", configPath, "error", err)
		os.Exit(1)
	}

	store, err := openStore(cfg)
	if err != nil {
		slog.Error("Failed to initialize storage", "driver", cfg.DB.Driver, "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Storage initialized", "driver", cfg.DB.Driver)

	images, err := openImageStore(context.Background(), cfg)
	if err != nil {
		slog.Error("Failed to initialize image store", "driver", cfg.Images.Driver, "error", err)
		os.Exit(1)
	}

	engine := tesseract.New(tesseract.Config{
		Languages:      cfg.OCR.Languages,
		PageSegMode:    cfg.OCR.PageSegMode,
		TessdataPrefix: cfg.OCR.TessdataPrefix,
	})

	svc := service.NewBillService(
		store,
		images,
		engine,
		extractor.WithKeywords(cfg.NoiseKeywords()),
		cfg.Split.TaxRate,
		cfg.Split.ServiceRate,
	)

	// Keyword list changes take effect without a restart.
	go func() {
		err := config.Watch(context.Background(), configPath, func(updated config.Config) {
			svc.SetExtractor(extractor.WithKeywords(updated.NoiseKeywords()))
			slog.Info("Noise keywords reloaded", "count", len(updated.NoiseKeywords()))
		})
		if err != nil {
			slog.Warn("Config watcher stopped", "error", err)
		}
	}()

	mux := http.NewServeMux()
	api.New(svc).Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	handler := middleware.Logging(middleware.Metrics(middleware.CORS(mux)))

	// h2c allows HTTP/2 without TLS behind a terminating proxy.
	h2cHandler := h2c.NewHandler(handler, &http2.Server{})

	slog.Info("Server starting", "address", cfg.ListenAddr)
	if err := http.ListenAndServe(cfg.ListenAddr, h2cHandler); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func openStore(cfg config.Config) (storage.Store, error) {
	if cfg.DB.Driver == "postgres" {
		return postgres.New(cfg.DB.DSN)
	}
	return sqlite.New(cfg.DB.Path)
}

func openImageStore(ctx context.Context, cfg config.Config) (imagestore.Store, error) {
	if cfg.Images.Driver == "s3" {
		return images3.New(ctx, images3.Config{
			Region:    cfg.Images.Region,
			Bucket:    cfg.Images.Bucket,
			Endpoint:  cfg.Images.Endpoint,
			PathStyle: cfg.Images.PathStyle,
		})
	}
	return imagefs.New(cfg.Images.Root)
}
