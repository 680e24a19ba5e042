package config

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ballistic-intel/signalpipe/internal/runctx"
)

func TestLoadAppliesFlagsOverDefaults(t *testing.T) {
	cfg, err := Load([]string{"--mode", "backfill", "--start", "2026-01-01", "--end", "2026-01-31", "--p2-concurrency", "3"})
	require.NoError(t, err)
	require.Equal(t, runctx.ModeBackfill, cfg.Mode)
	require.Equal(t, "2026-01-01", cfg.StartDate)
	require.Equal(t, "2026-01-31", cfg.EndDate)
	require.Equal(t, 3, cfg.P2Concurrency)
}

func TestLoadRejectsInvalidMode(t *testing.T) {
	_, err := Load([]string{"--mode", "bogus"})
	require.Error(t, err)
}

func TestLoadRejectsBackfillWithoutDates(t *testing.T) {
	_, err := Load([]string{"--mode", "backfill"})
	require.Error(t, err)
}

func TestLoadRejectsMalformedBackfillDate(t *testing.T) {
	_, err := Load([]string{"--mode", "backfill", "--start", "not-a-date", "--end", "2026-01-31"})
	require.Error(t, err)
}

func TestLoadRejectsNonPositiveConcurrency(t *testing.T) {
	_, err := Load([]string{"--p2-concurrency", "0"})
	require.Error(t, err)
}

func TestLoadDefaultsToIncrementalMode(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)
	require.Equal(t, runctx.ModeIncremental, cfg.Mode)
	require.Equal(t, 7, cfg.LookbackDays)
	require.Equal(t, "./dlq", cfg.DLQDir)
}

func TestValidateToleratesMissingCredentialsWithoutLiveIntegration(t *testing.T) {
	cfg := defaults()
	cfg.LiveIntegration = false
	require.NoError(t, cfg.Validate())
}

func TestValidateRequiresCredentialsWithLiveIntegration(t *testing.T) {
	cfg := defaults()
	cfg.LiveIntegration = true
	require.Error(t, cfg.Validate())
}
