package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "file:raffle.db?_journal_mode=WAL")
	t.Setenv("RPC_URL", "https://rpc.testnet.arc.network")
	t.Setenv("CHAIN_ID", "5042002")
	t.Setenv("START_BLOCK", "100")
	t.Setenv("RAFFLE_FACTORY_ADDRESS", "0x1234567890123456789012345678901234567890")
}

func TestFromEnv_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := FromEnv()
	require.NoError(t, err)

	require.Equal(t, uint64(5042002), cfg.ChainID)
	require.Equal(t, uint64(100), cfg.StartBlock)
	require.Equal(t, DefaultBindAddr, cfg.BindAddr)
	require.Equal(t, uint64(DefaultBatchSize), cfg.BatchSize)
	require.Equal(t, 3*time.Second, cfg.PollInterval)
	require.Equal(t, 30*time.Second, cfg.RPCTimeout)
	require.Nil(t, cfg.RandomnessProviderAddress)
}

func TestFromEnv_MissingRequired(t *testing.T) {
	tests := []struct {
		name  string
		unset string
	}{
		{"missing database url", "DATABASE_URL"},
		{"missing rpc url", "RPC_URL"},
		{"missing chain id", "CHAIN_ID"},
		{"missing start block", "START_BLOCK"},
		{"missing factory address", "RAFFLE_FACTORY_ADDRESS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.unset, "")

			_, err := FromEnv()
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.unset)
		})
	}
}

func TestFromEnv_InvalidFactoryAddress(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("RAFFLE_FACTORY_ADDRESS", "not-an-address")

	_, err := FromEnv()
	require.Error(t, err)
	require.Contains(t, err.Error(), "RAFFLE_FACTORY_ADDRESS")
}

func TestFromEnv_OptionalProvider(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("RANDOMNESS_PROVIDER_ADDRESS", "0xAbCdEf0123456789012345678901234567890123")

	cfg, err := FromEnv()
	require.NoError(t, err)
	require.NotNil(t, cfg.RandomnessProviderAddress)

	t.Setenv("RANDOMNESS_PROVIDER_ADDRESS", "0xzz")
	_, err = FromEnv()
	require.Error(t, err)
}

func TestFromEnv_InvalidNumeric(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("INDEXER_BATCH_SIZE", "many")

	_, err := FromEnv()
	require.Error(t, err)
	require.Contains(t, err.Error(), "INDEXER_BATCH_SIZE")

	t.Setenv("INDEXER_BATCH_SIZE", "0")
	_, err = FromEnv()
	require.Error(t, err)
}

func TestString_RedactsDatabaseURL(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DATABASE_URL", "file:secret-credentials.db")

	cfg, err := FromEnv()
	require.NoError(t, err)

	rendered := cfg.String()
	require.NotContains(t, rendered, "secret-credentials")
	require.True(t, strings.Contains(rendered, "[REDACTED]"))
}
