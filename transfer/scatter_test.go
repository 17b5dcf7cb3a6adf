package transfer

import (
	"context"
	"errors"
	mathrand "math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/require"

	"github.com/okx/scatter/utils"
)

type fakePrompter struct {
	answer      int
	askCalls    int
	confirmErr  error
	onConfirm   func()
	confirmSeen bool
}

func (p *fakePrompter) AskPositiveInt(ctx context.Context, prompt string) (int, error) {
	p.askCalls++
	return p.answer, nil
}

func (p *fakePrompter) Confirm(ctx context.Context, prompt string) error {
	p.confirmSeen = true
	if p.onConfirm != nil {
		p.onConfirm()
	}
	return p.confirmErr
}

func scatterConfig(t *testing.T, keys string) *utils.TransferConfig {
	t.Helper()
	dir := t.TempDir()
	cfg := utils.DefaultConfig()
	cfg.KeysFilePath = filepath.Join(dir, ".env")
	cfg.WalletsFilePath = filepath.Join(dir, "wallets.txt")
	if keys != "" {
		require.NoError(t, os.WriteFile(cfg.KeysFilePath, []byte(keys), 0o600))
	}
	return cfg
}

func noSleep(ctx context.Context, d time.Duration) error { return nil }

func TestScatterMissingKeyFileNeverDials(t *testing.T) {
	cfg := scatterConfig(t, "")
	dialed := false

	_, err := Scatter(context.Background(), cfg, Deps{
		Dial: func(ctx context.Context, cfg utils.ChainConfig, logger log.Logger) (Chain, error) {
			dialed = true
			return &fakeChain{}, nil
		},
		Prompter: &fakePrompter{answer: 1},
		Logger:   log.NewLogger(log.DiscardHandler()),
	})
	require.Error(t, err)
	require.True(t, utils.IsKind(err, utils.KindConfig))
	require.False(t, dialed)
}

func TestScatterEmptyKeyFile(t *testing.T) {
	cfg := scatterConfig(t, "\n\n")
	_, err := Scatter(context.Background(), cfg, Deps{
		Dial: func(ctx context.Context, cfg utils.ChainConfig, logger log.Logger) (Chain, error) {
			t.Fatal("must not dial")
			return nil, nil
		},
		Logger: log.NewLogger(log.DiscardHandler()),
	})
	require.True(t, utils.IsKind(err, utils.KindConfig))
}

func TestScatterDialFailure(t *testing.T) {
	cred, _ := testCredential(t)
	cfg := scatterConfig(t, cred.Secret+"\n")
	prompter := &fakePrompter{answer: 3}

	_, err := Scatter(context.Background(), cfg, Deps{
		Dial: func(ctx context.Context, cfg utils.ChainConfig, logger log.Logger) (Chain, error) {
			return nil, utils.RPCError("query chain id", errors.New("connection refused"))
		},
		Prompter: prompter,
		Logger:   log.NewLogger(log.DiscardHandler()),
	})
	require.True(t, utils.IsKind(err, utils.KindRPC))
	require.Zero(t, prompter.askCalls)
	require.NoFileExists(t, cfg.WalletsFilePath)
}

func TestScatterEndToEnd(t *testing.T) {
	cred, _ := testCredential(t)
	cfg := scatterConfig(t, strings.TrimPrefix(cred.Secret, "0x")+"\n")
	chain := &fakeChain{
		nonces: []uint64{11},
		failAt: map[int]error{2: utils.BroadcastError("receipt", utils.ErrTransactionFailed)},
	}

	var dumped string
	prompter := &fakePrompter{answer: 3}
	prompter.onConfirm = func() {
		data, err := os.ReadFile(cfg.WalletsFilePath)
		require.NoError(t, err)
		dumped = string(data)
	}

	report, err := Scatter(context.Background(), cfg, Deps{
		Dial: func(ctx context.Context, cc utils.ChainConfig, logger log.Logger) (Chain, error) {
			require.Equal(t, cfg.Rpc, cc.RPC)
			require.Equal(t, cfg.ChainID, cc.ChainID)
			return chain, nil
		},
		Prompter: prompter,
		Rand:     mathrand.New(mathrand.NewSource(1)),
		Sleep:    noSleep,
		RunID:    "run-1",
		Logger:   log.NewLogger(log.DiscardHandler()),
	})
	require.NoError(t, err)

	require.Equal(t, 1, prompter.askCalls)
	require.Len(t, chain.sends, 3)
	require.Len(t, report.Wallets, 3)
	require.Equal(t, 2, report.Sent())
	require.Equal(t, 1, report.Failed())
	require.True(t, chain.closed)

	require.True(t, prompter.confirmSeen)
	require.Equal(t, 3, strings.Count(dumped, "Private Key: "))
	require.Contains(t, dumped, "Run: run-1")
	for _, w := range report.Wallets {
		require.Contains(t, dumped, "Address: "+w.Address.Hex())
		require.Contains(t, dumped, "Private Key: "+w.Secret())
	}
	require.NoFileExists(t, cfg.WalletsFilePath)
}

func TestScatterConfiguredWalletsSkipsPrompt(t *testing.T) {
	cred, _ := testCredential(t)
	cfg := scatterConfig(t, cred.Secret+"\n")
	cfg.WalletsPerKey = 2
	chain := &fakeChain{nonces: []uint64{0}}
	prompter := &fakePrompter{}

	report, err := Scatter(context.Background(), cfg, Deps{
		Dial: func(ctx context.Context, cc utils.ChainConfig, logger log.Logger) (Chain, error) {
			return chain, nil
		},
		Prompter: prompter,
		Sleep:    noSleep,
		Logger:   log.NewLogger(log.DiscardHandler()),
	})
	require.NoError(t, err)
	require.Zero(t, prompter.askCalls)
	require.Len(t, report.Wallets, 2)
}

func TestScatterKeepsFileWithoutConfirmation(t *testing.T) {
	cred, _ := testCredential(t)
	cfg := scatterConfig(t, cred.Secret+"\n")
	cfg.WalletsPerKey = 1

	_, err := Scatter(context.Background(), cfg, Deps{
		Dial: func(ctx context.Context, cc utils.ChainConfig, logger log.Logger) (Chain, error) {
			return &fakeChain{nonces: []uint64{0}}, nil
		},
		Prompter: &fakePrompter{confirmErr: errors.New("input closed before confirmation")},
		Sleep:    noSleep,
		Logger:   log.NewLogger(log.DiscardHandler()),
	})
	require.Error(t, err)
	require.FileExists(t, cfg.WalletsFilePath)
}
