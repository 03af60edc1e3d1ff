// Package config centralizes runtime configuration for filegate. Values come
// from FILEGATE_* environment variables with defaults suitable for local use.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config represents runtime configuration for the service.
type Config struct {
	Address string `envconfig:"ADDRESS" default:":8080"`

	// MaxFileSize caps a single upload, in bytes.
	MaxFileSize int64 `envconfig:"MAX_FILE_BYTES" default:"10485760"` // 10 MiB

	// UploadDir is where accepted files are committed after scanning. TempDir
	// holds files between submission and commit; empty means the system temp
	// directory.
	UploadDir string `envconfig:"UPLOAD_DIR" default:"uploads"`
	TempDir   string `envconfig:"TEMP_DIR"`

	// SimulateScan enables the placeholder antivirus delay.
	SimulateScan bool          `envconfig:"SIMULATE_SCAN" default:"true"`
	ScanDelay    time.Duration `envconfig:"SCAN_DELAY" default:"2s"`

	// InspectPDF enables structural verification of .pdf uploads.
	InspectPDF bool `envconfig:"INSPECT_PDF" default:"true"`

	// Upload rate limit per client IP.
	UploadRateLimit  int           `envconfig:"UPLOAD_RATE_LIMIT" default:"5"`
	UploadRateWindow time.Duration `envconfig:"UPLOAD_RATE_WINDOW" default:"1m"`

	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"5s"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("filegate", &cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}
	if cfg.MaxFileSize <= 0 {
		return nil, fmt.Errorf("max file size must be positive, got %d", cfg.MaxFileSize)
	}
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	if cfg.UploadRateLimit <= 0 {
		cfg.UploadRateLimit = 5
	}
	if cfg.UploadRateWindow <= 0 {
		cfg.UploadRateWindow = time.Minute
	}
	return &cfg, nil
}
