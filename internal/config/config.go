package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Server
	Port        int    `envconfig:"PORT" default:"3000"`
	Environment string `envconfig:"ENV" default:"development"`

	// Matching
	Tolerance float64 `envconfig:"TOLERANCE" default:"0.6"`

	// Store
	Store        string `envconfig:"STORE" default:"file"`
	SnapshotPath string `envconfig:"SNAPSHOT_PATH" default:"face_data.json"`
	DatabaseURL  string `envconfig:"DATABASE_URL"`

	// Extractor
	Extractor    string `envconfig:"EXTRACTOR" default:"dlib"`
	DlibModelDir string `envconfig:"DLIB_MODEL_DIR" default:"models"`
	DeepFaceURL  string `envconfig:"DEEPFACE_URL" default:"http://localhost:5005"`
}

// Store backends.
const (
	StoreFile     = "file"
	StorePostgres = "postgres"
)

// Extractor backends.
const (
	ExtractorDlib     = "dlib"
	ExtractorDeepFace = "deepface"
	ExtractorMock     = "mock"
)

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Store {
	case StoreFile:
		if c.SnapshotPath == "" {
			return fmt.Errorf("SNAPSHOT_PATH is required for the file store")
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres store")
		}
	default:
		return fmt.Errorf("unknown store type: %s (supported: %s, %s)", c.Store, StoreFile, StorePostgres)
	}

	if c.Tolerance <= 0 {
		return fmt.Errorf("TOLERANCE must be positive, got %v", c.Tolerance)
	}

	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
