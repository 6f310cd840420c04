package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"ftnirs/internal/errors"
)

// Config represents the complete training configuration
type Config struct {
	Training TrainingConfig
	Ledger   LedgerConfig
}

// TrainingConfig holds fitting and search settings
type TrainingConfig struct {
	Seed            int64
	Epochs          int
	BatchSize       int
	Patience        int
	ValidationSplit float64
}

// LedgerConfig holds run ledger settings
type LedgerConfig struct {
	Path    string
	Enabled bool
}

// Defaults for training settings
const (
	DefaultSeed            = 42
	DefaultEpochs          = 50
	DefaultBatchSize       = 32
	DefaultPatience        = 7
	DefaultValidationSplit = 0.25
)

// Load reads configuration from environment variables and validates it.
// A .env file is honored when present but is never required.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Training: TrainingConfig{
			Seed:            envInt64("FTNIRS_SEED", DefaultSeed),
			Epochs:          envInt("FTNIRS_EPOCHS", DefaultEpochs),
			BatchSize:       envInt("FTNIRS_BATCH_SIZE", DefaultBatchSize),
			Patience:        envInt("FTNIRS_PATIENCE", DefaultPatience),
			ValidationSplit: DefaultValidationSplit,
		},
		Ledger: LedgerConfig{
			Path:    os.Getenv("FTNIRS_LEDGER_PATH"),
			Enabled: os.Getenv("FTNIRS_LEDGER_PATH") != "",
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return cfg, nil
}

// Validate checks the configuration for out-of-range values
func (c *Config) Validate() error {
	if c.Training.Epochs <= 0 {
		return errors.ConfigInvalid("FTNIRS_EPOCHS must be positive")
	}
	if c.Training.BatchSize <= 0 {
		return errors.ConfigInvalid("FTNIRS_BATCH_SIZE must be positive")
	}
	if c.Training.Patience <= 0 {
		return errors.ConfigInvalid("FTNIRS_PATIENCE must be positive")
	}
	if c.Training.ValidationSplit <= 0 || c.Training.ValidationSplit >= 1 {
		return errors.ConfigInvalid("validation split must be in (0,1)")
	}
	return nil
}

func envInt(key string, dflt int) int {
	if s := os.Getenv(key); s != "" {
		if v, err := strconv.Atoi(s); err == nil {
			return v
		}
	}
	return dflt
}

func envInt64(key string, dflt int64) int64 {
	if s := os.Getenv(key); s != "" {
		if v, err := strconv.ParseInt(s, 10, 64); err == nil {
			return v
		}
	}
	return dflt
}
