package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ftnirs/internal/errors"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, int64(DefaultSeed), cfg.Training.Seed)
	assert.Equal(t, DefaultEpochs, cfg.Training.Epochs)
	assert.Equal(t, DefaultBatchSize, cfg.Training.BatchSize)
	assert.Equal(t, DefaultPatience, cfg.Training.Patience)
	assert.Equal(t, DefaultValidationSplit, cfg.Training.ValidationSplit)
	assert.False(t, cfg.Ledger.Enabled)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("FTNIRS_SEED", "7")
	t.Setenv("FTNIRS_EPOCHS", "5")
	t.Setenv("FTNIRS_BATCH_SIZE", "16")
	t.Setenv("FTNIRS_LEDGER_PATH", "/tmp/runs.db")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, int64(7), cfg.Training.Seed)
	assert.Equal(t, 5, cfg.Training.Epochs)
	assert.Equal(t, 16, cfg.Training.BatchSize)
	assert.True(t, cfg.Ledger.Enabled)
	assert.Equal(t, "/tmp/runs.db", cfg.Ledger.Path)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	t.Setenv("FTNIRS_EPOCHS", "0")
	_, err := Load()
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeConfigInvalid))
}

func TestLoad_MalformedEnvFallsBackToDefault(t *testing.T) {
	t.Setenv("FTNIRS_BATCH_SIZE", "many")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultBatchSize, cfg.Training.BatchSize)
}
