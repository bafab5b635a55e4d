package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"CHAIN_RPC", "ESCROW_CONTRACT_ADDRESS", "OPERATOR_PRIVATE_KEY",
		"PORT", "QUEUE_URL", "CORS_ORIGINS", "JITTER_MAX_DELAY_SECONDS",
		"PROCESSOR_TICK_SECONDS",
	} {
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoadFailsWithoutRequiredFields(t *testing.T) {
	clearEnv(t)
	_, err := Load()
	require.ErrorIs(t, err, ErrMissing)
}

func TestLoadAppliesDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("CHAIN_RPC", "http://localhost:8545")
	t.Setenv("ESCROW_CONTRACT_ADDRESS", "0xabc")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 3000, cfg.Port)
	require.Equal(t, "*", cfg.CORSOrigins)
	require.Equal(t, 10, cfg.JitterMaxDelaySeconds)
	require.Equal(t, 10, cfg.ProcessorTickSeconds)
}

func TestGasPrefundIsOneHundredthNativeUnit(t *testing.T) {
	require.Equal(t, "10000000000000000", GasPrefundWei.String())
}
