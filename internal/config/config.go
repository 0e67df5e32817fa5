package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all settings for the pipeline and the server. Everything has a
// working default so the one-shot CLIs run without a config file.
type Config struct {
	Inputs        InputsConfig        `yaml:"inputs"`
	Output        OutputConfig        `yaml:"output"`
	Season        SeasonConfig        `yaml:"season"`
	Value         ValueConfig         `yaml:"value"`
	Server        ServerConfig        `yaml:"server"`
	Polling       PollingConfig       `yaml:"polling"`
	Notifications NotificationsConfig `yaml:"notifications"`

	// TeamsFile points at the name -> abbreviation YAML table; empty means
	// use the compiled-in table
	TeamsFile string `yaml:"teams_file"`
}

// InputsConfig names the two source documents. Each may be a local path or an
// http(s) URL.
type InputsConfig struct {
	Predictions string `yaml:"predictions"`
	Betting     string `yaml:"betting"`

	FetchTimeout time.Duration `yaml:"fetch_timeout"`
}

// OutputConfig controls the emitted CSV
type OutputConfig struct {
	Path string `yaml:"path"`
}

// SeasonConfig anchors the snapshot to a schedule week. Date is written to
// every output row, matching the source table's single-week scope.
type SeasonConfig struct {
	Date string `yaml:"date"`
}

// ValueConfig holds the detection thresholds
type ValueConfig struct {
	// SpreadThreshold is the minimum |predicted - market| spread difference,
	// in points
	SpreadThreshold float64 `yaml:"spread_threshold"`

	// ProbabilityThreshold is the minimum community-minus-implied win
	// probability difference (0.05 = 5%)
	ProbabilityThreshold float64 `yaml:"probability_threshold"`
}

// ServerConfig holds API server settings
type ServerConfig struct {
	Port           string `yaml:"port"`
	DatabasePath   string `yaml:"database_path"`
	MaxConnections int    `yaml:"max_connections"`
}

// PollingConfig controls the periodic re-scrape loop
type PollingConfig struct {
	Enabled              bool          `yaml:"enabled"`
	Interval             time.Duration `yaml:"interval"`
	MaxRetries           int           `yaml:"max_retries"`
	RetryBaseDelay       time.Duration `yaml:"retry_base_delay"`
	MaxConsecutiveErrors int           `yaml:"max_consecutive_errors"`
	RecoveryInterval     time.Duration `yaml:"recovery_interval"`
}

// NotificationsConfig controls web-push dispatch
type NotificationsConfig struct {
	Enabled         bool          `yaml:"enabled"`
	BatchInterval   time.Duration `yaml:"batch_interval"`
	VAPIDPublicKey  string        `yaml:"vapid_public_key"`
	VAPIDPrivateKey string        `yaml:"vapid_private_key"`
	VAPIDSubject    string        `yaml:"vapid_subject"`
}

// Default returns the configuration used when no file is given
func Default() Config {
	return Config{
		Inputs: InputsConfig{
			Predictions:  "predictions_table.html",
			Betting:      "betting_table.html",
			FetchTimeout: 30 * time.Second,
		},
		Output: OutputConfig{
			Path: "nfl_predictions.csv",
		},
		Season: SeasonConfig{
			Date: "2025-09-21",
		},
		Value: ValueConfig{
			SpreadThreshold:      2.0,
			ProbabilityThreshold: 0.05,
		},
		Server: ServerConfig{
			Port:           "8080",
			DatabasePath:   "valuefinder.db",
			MaxConnections: 1000,
		},
		Polling: PollingConfig{
			Enabled:              false,
			Interval:             10 * time.Minute,
			MaxRetries:           3,
			RetryBaseDelay:       2 * time.Second,
			MaxConsecutiveErrors: 5,
			RecoveryInterval:     30 * time.Minute,
		},
		Notifications: NotificationsConfig{
			Enabled:       true,
			BatchInterval: 60 * time.Second,
		},
	}
}

// Load reads a YAML config file, filling unset fields from Default
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}
