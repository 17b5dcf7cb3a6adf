package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.Equal(t, DefaultRPC, cfg.Rpc)
	require.Equal(t, DefaultChainID, cfg.ChainID)
	require.Equal(t, DefaultExplorer, cfg.BlockExplorer)
	require.Equal(t, ".env", cfg.KeysFilePath)
	require.Equal(t, "wallets.txt", cfg.WalletsFilePath)
	require.Zero(t, cfg.WalletsPerKey)
	require.Equal(t, int64(10), cfg.MinAmountMicro)
	require.Equal(t, int64(99), cfg.MaxAmountMicro)
	require.Equal(t, 3, cfg.MinDelaySeconds)
	require.Equal(t, 17, cfg.MaxDelaySeconds)
	require.Equal(t, NonceAdvance, cfg.NoncePolicy)
	require.Equal(t, 10*time.Second, cfg.RequestTimeout)
	require.Equal(t, time.Second, cfg.ReceiptPollInterval)
	require.Zero(t, cfg.ReceiptTimeout)
}

func TestLoadConfigLayers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
rpc: http://127.0.0.1:8545
chainId: 1337
walletsPerKey: 4
noncePolicy: resync
receiptTimeout: 2m
`), 0o600))

	t.Setenv("SCATTER_WALLETSPERKEY", "6")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int64("chain-id", 0, "")
	flags.String("keys-file-path", "", "")
	require.NoError(t, flags.Parse([]string{"--keys-file-path", "keys.txt"}))

	cfg, err := LoadConfig(path, flags)
	require.NoError(t, err)
	require.Equal(t, "http://127.0.0.1:8545", cfg.Rpc)
	require.Equal(t, int64(1337), cfg.ChainID, "unchanged flag must not override the file")
	require.Equal(t, 6, cfg.WalletsPerKey, "env overrides the file")
	require.Equal(t, "keys.txt", cfg.KeysFilePath, "changed flag wins")
	require.Equal(t, NonceResync, cfg.NoncePolicy)
	require.Equal(t, 2*time.Minute, cfg.ReceiptTimeout)
	require.Equal(t, DefaultExplorer, cfg.BlockExplorer)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"), nil)
	require.True(t, IsKind(err, KindConfig))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*TransferConfig)
	}{
		{"empty rpc", func(c *TransferConfig) { c.Rpc = " " }},
		{"zero chain id", func(c *TransferConfig) { c.ChainID = 0 }},
		{"negative wallets", func(c *TransferConfig) { c.WalletsPerKey = -1 }},
		{"zero amount", func(c *TransferConfig) { c.MinAmountMicro = 0 }},
		{"inverted amount", func(c *TransferConfig) { c.MinAmountMicro, c.MaxAmountMicro = 50, 10 }},
		{"inverted delay", func(c *TransferConfig) { c.MinDelaySeconds, c.MaxDelaySeconds = 5, 1 }},
		{"unknown nonce policy", func(c *TransferConfig) { c.NoncePolicy = "skip" }},
		{"zero poll interval", func(c *TransferConfig) { c.ReceiptPollInterval = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			require.True(t, IsKind(err, KindConfig))
		})
	}

	require.NoError(t, DefaultConfig().Validate())
}
