package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/shirou/gopsutil/cpu"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"containerCracker/internal/core/domain"
)

const DefaultPath = "cracker.yaml"

// Config holds the tunables of the cracker. Attack parameters themselves
// come from the command line or the saved session.
type Config struct {
	SessionFile string `yaml:"session_file"`
	Workers     int    `yaml:"workers"`

	BruteForceChunkSize int `yaml:"bruteforce_chunk_size"`
	SmallSpaceThreshold int `yaml:"small_space_threshold"`
	ChunksPerWorker     int `yaml:"chunks_per_worker"`

	// CheckpointInterval is the number of completed candidates between
	// session re-saves. Zero saves the session once at start.
	CheckpointInterval int64 `yaml:"checkpoint_interval"`

	LogLevel       string `yaml:"log_level"`
	LogDevelopment bool   `yaml:"log_development"`

	MetricsInterval string `yaml:"metrics_interval"`
	HistoryFile     string `yaml:"history_file"`
	Progress        bool   `yaml:"progress"`
}

func DefaultConfig() *Config {
	return &Config{
		SessionFile:         "session.json",
		Workers:             DefaultWorkers(),
		BruteForceChunkSize: 10000,
		SmallSpaceThreshold: 1000,
		ChunksPerWorker:     10,
		CheckpointInterval:  0,
		LogLevel:            "info",
		LogDevelopment:      false,
		MetricsInterval:     "1s",
		HistoryFile:         "",
		Progress:            true,
	}
}

// DefaultWorkers is the number of logical CPUs.
func DefaultWorkers() int {
	if n, err := cpu.Counts(true); err == nil && n > 0 {
		return n
	}
	return runtime.NumCPU()
}

// Load reads configuration from a YAML file. A missing file yields the
// defaults. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: failed to parse config %s: %v", domain.ErrInvalidSettings, path, err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("CRACKER_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: CRACKER_WORKERS=%q", domain.ErrInvalidSettings, v)
		}
		c.Workers = n
	}
	if v := os.Getenv("CRACKER_SESSION_FILE"); v != "" {
		c.SessionFile = v
	}
	if v := os.Getenv("CRACKER_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	return nil
}

func (c *Config) Validate() error {
	switch {
	case c.SessionFile == "":
		return fmt.Errorf("%w: session_file must not be empty", domain.ErrInvalidSettings)
	case c.Workers < 1:
		return fmt.Errorf("%w: workers must be positive, got %d", domain.ErrInvalidSettings, c.Workers)
	case c.BruteForceChunkSize < 1:
		return fmt.Errorf("%w: bruteforce_chunk_size must be positive", domain.ErrInvalidSettings)
	case c.SmallSpaceThreshold < 0:
		return fmt.Errorf("%w: small_space_threshold must not be negative", domain.ErrInvalidSettings)
	case c.ChunksPerWorker < 1:
		return fmt.Errorf("%w: chunks_per_worker must be positive", domain.ErrInvalidSettings)
	case c.CheckpointInterval < 0:
		return fmt.Errorf("%w: checkpoint_interval must not be negative", domain.ErrInvalidSettings)
	}

	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log_level: %v", domain.ErrInvalidSettings, err)
	}
	if d, err := time.ParseDuration(c.MetricsInterval); err != nil || d <= 0 {
		return fmt.Errorf("%w: metrics_interval %q", domain.ErrInvalidSettings, c.MetricsInterval)
	}
	return nil
}

// GetMetricsInterval returns the resource sampling interval as a duration.
func (c *Config) GetMetricsInterval() time.Duration {
	d, err := time.ParseDuration(c.MetricsInterval)
	if err != nil || d <= 0 {
		return time.Second
	}
	return d
}
