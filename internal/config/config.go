// Package config provides runtime configuration for group-by execution.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Config tunes the aggregation engine.
type Config struct {
	// ParallelThreshold is the minimum input row count before aggregation
	// outputs are computed across the worker pool.
	ParallelThreshold int `json:"parallel_threshold" yaml:"parallel_threshold"`
	// WorkerPoolSize is the number of worker goroutines (0 = CPU count).
	WorkerPoolSize int `json:"worker_pool_size" yaml:"worker_pool_size"`
	// MaxParallelism caps concurrent aggregation operations.
	MaxParallelism int `json:"max_parallelism" yaml:"max_parallelism"`
	// VerboseLogging enables diagnostic output in debugging builds.
	VerboseLogging bool `json:"verbose_logging" yaml:"verbose_logging"`
}

// Default configuration values.
const (
	DefaultParallelThreshold = 1000
	DefaultMaxParallelism    = 16
)

// Global configuration instance.
var (
	globalConfig Config
	configMutex  sync.RWMutex
)

func init() {
	globalConfig = NewConfig()
}

// NewConfig creates a new configuration with default values.
func NewConfig() Config {
	return Config{
		ParallelThreshold: DefaultParallelThreshold,
		WorkerPoolSize:    0, // Auto-detect
		MaxParallelism:    DefaultMaxParallelism,
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.ParallelThreshold <= 0 {
		return fmt.Errorf("ParallelThreshold must be positive, got %d", c.ParallelThreshold)
	}
	if c.WorkerPoolSize < 0 {
		return fmt.Errorf("WorkerPoolSize must be non-negative, got %d", c.WorkerPoolSize)
	}
	if c.MaxParallelism <= 0 {
		return fmt.Errorf("MaxParallelism must be positive, got %d", c.MaxParallelism)
	}
	return nil
}

// WithDefaults returns a new configuration with default values filled in for
// zero values.
func (c Config) WithDefaults() Config {
	defaults := NewConfig()
	if c.ParallelThreshold == 0 {
		c.ParallelThreshold = defaults.ParallelThreshold
	}
	if c.MaxParallelism == 0 {
		c.MaxParallelism = defaults.MaxParallelism
	}
	return c
}

// SetGlobalConfig sets the global configuration.
func SetGlobalConfig(config Config) {
	configMutex.Lock()
	defer configMutex.Unlock()
	globalConfig = config
}

// GetGlobalConfig returns the current global configuration.
func GetGlobalConfig() Config {
	configMutex.RLock()
	defer configMutex.RUnlock()
	return globalConfig
}

// LoadFromFile loads configuration from a JSON or YAML file.
func LoadFromFile(filename string) (Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file %s: %w", filename, err)
	}

	var config Config
	ext := strings.ToLower(filepath.Ext(filename))

	switch ext {
	case ".json":
		err = json.Unmarshal(data, &config)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &config)
	default:
		return Config{}, fmt.Errorf("unsupported config file format: %s", ext)
	}

	if err != nil {
		return Config{}, fmt.Errorf("parsing config file %s: %w", filename, err)
	}

	return config.WithDefaults(), nil
}

// LoadFromEnv loads configuration from MARMOT_-prefixed environment
// variables, falling back to defaults for unset values.
func LoadFromEnv() Config {
	config := NewConfig()

	if val := os.Getenv("MARMOT_PARALLEL_THRESHOLD"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			config.ParallelThreshold = parsed
		}
	}

	if val := os.Getenv("MARMOT_WORKER_POOL_SIZE"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			config.WorkerPoolSize = parsed
		}
	}

	if val := os.Getenv("MARMOT_MAX_PARALLELISM"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			config.MaxParallelism = parsed
		}
	}

	if val := os.Getenv("MARMOT_VERBOSE_LOGGING"); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			config.VerboseLogging = parsed
		}
	}

	return config
}
