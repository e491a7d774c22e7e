// Package config loads server configuration from a TOML file with
// environment variable overrides for deployment knobs.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"splitbill/internal/calculator"
	"splitbill/internal/extractor"
)

// Config is the full server configuration.
type Config struct {
	// ListenAddr is the HTTP listen address, e.g. ":8080".
	ListenAddr string `toml:"listen_addr"`

	DB        DBConfig        `toml:"db"`
	Split     SplitConfig     `toml:"split"`
	Extractor ExtractorConfig `toml:"extractor"`
	OCR       OCRConfig       `toml:"ocr"`
	Images    ImagesConfig    `toml:"images"`
}

// DBConfig selects and configures the storage backend.
type DBConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver string `toml:"driver"`

	// Path is the sqlite database file.
	Path string `toml:"path"`

	// DSN is the postgres connection string.
	DSN string `toml:"dsn"`
}

// SplitConfig carries the default amortization rates.
type SplitConfig struct {
	TaxRate     float64 `toml:"tax_rate"`
	ServiceRate float64 `toml:"service_rate"`
}

// ExtractorConfig configures the receipt line extractor. The noise
// keyword list is versionable, locale-specific data; deployments extend
// it here without a code change.
type ExtractorConfig struct {
	// NoiseKeywords replaces the default deny list when non-empty.
	NoiseKeywords []string `toml:"noise_keywords"`

	// ExtraNoiseKeywords are appended to the effective list.
	ExtraNoiseKeywords []string `toml:"extra_noise_keywords"`
}

// OCRConfig configures the Tesseract engine.
type OCRConfig struct {
	Languages      []string `toml:"languages"`
	PageSegMode    int      `toml:"page_seg_mode"`
	TessdataPrefix string   `toml:"tessdata_prefix"`
}

// ImagesConfig selects and configures the receipt image store.
type ImagesConfig struct {
	// Driver is "fs" or "s3".
	Driver string `toml:"driver"`

	// Root is the fs store directory.
	Root string `toml:"root"`

	Bucket    string `toml:"bucket"`
	Region    string `toml:"region"`
	Endpoint  string `toml:"endpoint"`
	PathStyle bool   `toml:"path_style"`
}

// Default returns the configuration used when no file or overrides are
// present.
func Default() Config {
	return Config{
		ListenAddr: ":8080",
		DB: DBConfig{
			Driver: "sqlite",
			Path:   "./data/bills.db",
		},
		Split: SplitConfig{
			TaxRate:     calculator.DefaultTaxRate,
			ServiceRate: calculator.DefaultServiceRate,
		},
		OCR: OCRConfig{
			Languages:   []string{"ind", "eng"},
			PageSegMode: 6,
		},
		Images: ImagesConfig{
			Driver: "fs",
			Root:   "./uploads",
		},
	}
}

// Load reads the TOML file at path (missing files fall back to defaults),
// then applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// No file: defaults plus env.
		case err != nil:
			return Config{}, fmt.Errorf("read config: %w", err)
		default:
			if err := toml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

// NoiseKeywords resolves the effective extractor deny list.
func (c Config) NoiseKeywords() []string {
	base := c.Extractor.NoiseKeywords
	if len(base) == 0 {
		base = extractor.DefaultNoiseKeywords
	}
	out := make([]string, 0, len(base)+len(c.Extractor.ExtraNoiseKeywords))
	out = append(out, base...)
	out = append(out, c.Extractor.ExtraNoiseKeywords...)
	return out
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("SPLITBILL_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("DB_DRIVER"); v != "" {
		cfg.DB.Driver = strings.ToLower(v)
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		cfg.DB.Path = v
	}
	if v := os.Getenv("DB_DSN"); v != "" {
		cfg.DB.DSN = v
	}
	if v := os.Getenv("UPLOAD_DIR"); v != "" {
		cfg.Images.Root = v
	}
	if v := os.Getenv("TESSDATA_PREFIX"); v != "" {
		cfg.OCR.TessdataPrefix = v
	}
}
