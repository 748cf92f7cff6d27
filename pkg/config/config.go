// Package config loads the web viewer's runtime settings from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/df07/go-whitted-raytracer/pkg/framestore"
)

const (
	// DefaultAddr is the address the viewer listens on.
	DefaultAddr = ":8080"
	// DefaultLogLevel controls server log verbosity.
	DefaultLogLevel = "info"
	// DefaultStoreCodec compresses cached frames.
	DefaultStoreCodec = "zstd"
	// DefaultMaxPixels bounds width*height of a single requested render.
	DefaultMaxPixels = 1920 * 1080
)

// Config captures the tunables of the web viewer
type Config struct {
	Address        string
	LogLevel       slog.Level
	StoreDir       string // Empty disables the frame cache
	StoreCodec     framestore.Codec
	MaxPixels      int
	Workers        int // Zero uses every CPU
	ScenesDir      string
	AllowedOrigins []string
}

// Load reads the configuration from environment variables, applying defaults
// and reporting every invalid override in a single error.
func Load() (*Config, error) {
	cfg := &Config{
		Address:        getString("WHITTED_ADDR", DefaultAddr),
		StoreDir:       strings.TrimSpace(os.Getenv("WHITTED_STORE_DIR")),
		MaxPixels:      DefaultMaxPixels,
		ScenesDir:      strings.TrimSpace(os.Getenv("WHITTED_SCENES_DIR")),
		AllowedOrigins: parseList(os.Getenv("WHITTED_ALLOWED_ORIGINS")),
	}

	var problems []string

	level, err := ParseLogLevel(getString("WHITTED_LOG_LEVEL", DefaultLogLevel))
	if err != nil {
		problems = append(problems, fmt.Sprintf("WHITTED_LOG_LEVEL: %v", err))
	}
	cfg.LogLevel = level

	codec, err := framestore.CodecByName(getString("WHITTED_STORE_CODEC", DefaultStoreCodec))
	if err != nil {
		problems = append(problems, fmt.Sprintf("WHITTED_STORE_CODEC: %v", err))
	}
	cfg.StoreCodec = codec

	if raw := strings.TrimSpace(os.Getenv("WHITTED_MAX_PIXELS")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value <= 0 {
			problems = append(problems, fmt.Sprintf("WHITTED_MAX_PIXELS must be a positive integer, got %q", raw))
		} else {
			cfg.MaxPixels = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("WHITTED_WORKERS")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 0 {
			problems = append(problems, fmt.Sprintf("WHITTED_WORKERS must be a non-negative integer, got %q", raw))
		} else {
			cfg.Workers = value
		}
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}

	return cfg, nil
}

// ParseLogLevel accepts debug, info, warn or error in any case
func ParseLogLevel(raw string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(raw))); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", raw)
	}
	return level, nil
}

func getString(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func parseList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		if item := strings.TrimSpace(part); item != "" {
			values = append(values, item)
		}
	}
	return values
}
