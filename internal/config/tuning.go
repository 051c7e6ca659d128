// Package config holds the tunable timing parameters of the locker bus.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/locker.defaults.json"

// Tuning represents the timing and retry parameters for bus exchanges.
// Fields are pointers so a partial JSON file overrides only what it names;
// the Get* accessors supply defaults for anything unset. Durations are
// duration strings like "500ms" so the JSON stays readable.
type Tuning struct {
	// ResponseTimeout bounds the whole await-response phase of one attempt.
	ResponseTimeout *string `json:"response_timeout,omitempty"`

	// PollInterval is the receive slice used while awaiting a response.
	PollInterval *string `json:"poll_interval,omitempty"`

	// RetryAttempts is the maximum number of send attempts per command.
	RetryAttempts *int `json:"retry_attempts,omitempty"`

	// RetryDelay is the base backoff between attempts; the delay grows
	// linearly with the attempt index.
	RetryDelay *string `json:"retry_delay,omitempty"`

	// InterCommandDelay paces sweep operations so the boards are not
	// saturated.
	InterCommandDelay *string `json:"inter_command_delay,omitempty"`

	// Station selects which controller board single-lock operations
	// address (DIP switch setting, 0-3).
	Station *int `json:"station,omitempty"`
}

// Defaults observed against the deployed boards.
const (
	defaultResponseTimeout   = 2 * time.Second
	defaultPollInterval      = 100 * time.Millisecond
	defaultRetryAttempts     = 3
	defaultRetryDelay        = 500 * time.Millisecond
	defaultInterCommandDelay = 100 * time.Millisecond
)

// EmptyTuning returns a Tuning with all fields unset, so every accessor
// falls back to its default.
func EmptyTuning() *Tuning {
	return &Tuning{}
}

// Load reads a Tuning from a JSON file. The file is validated to ensure it
// has a .json extension and is under the max file size. Fields omitted from
// the JSON retain their defaults, so partial configs are safe.
func Load(path string) (*Tuning, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuning()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are usable.
func (c *Tuning) Validate() error {
	for name, v := range map[string]*string{
		"response_timeout":    c.ResponseTimeout,
		"poll_interval":       c.PollInterval,
		"retry_delay":         c.RetryDelay,
		"inter_command_delay": c.InterCommandDelay,
	} {
		if v == nil || *v == "" {
			continue
		}
		d, err := time.ParseDuration(*v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, *v, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}

	if c.RetryAttempts != nil && *c.RetryAttempts < 1 {
		return fmt.Errorf("retry_attempts must be at least 1, got %d", *c.RetryAttempts)
	}

	if c.Station != nil && (*c.Station < 0 || *c.Station > 3) {
		return fmt.Errorf("station must be between 0 and 3, got %d", *c.Station)
	}

	return nil
}

func (c *Tuning) duration(v *string, fallback time.Duration) time.Duration {
	if v == nil || *v == "" {
		return fallback
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return fallback
	}
	return d
}

// GetResponseTimeout returns the response deadline for one attempt.
func (c *Tuning) GetResponseTimeout() time.Duration {
	return c.duration(c.ResponseTimeout, defaultResponseTimeout)
}

// GetPollInterval returns the receive polling granularity.
func (c *Tuning) GetPollInterval() time.Duration {
	return c.duration(c.PollInterval, defaultPollInterval)
}

// GetRetryAttempts returns the maximum attempts per command.
func (c *Tuning) GetRetryAttempts() int {
	if c.RetryAttempts == nil {
		return defaultRetryAttempts
	}
	return *c.RetryAttempts
}

// GetRetryDelay returns the base backoff between attempts.
func (c *Tuning) GetRetryDelay() time.Duration {
	return c.duration(c.RetryDelay, defaultRetryDelay)
}

// GetInterCommandDelay returns the pacing delay between sweep commands.
func (c *Tuning) GetInterCommandDelay() time.Duration {
	return c.duration(c.InterCommandDelay, defaultInterCommandDelay)
}

// GetStation returns the configured controller board address.
func (c *Tuning) GetStation() int {
	if c.Station == nil {
		return 0
	}
	return *c.Station
}
