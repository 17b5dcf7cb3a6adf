package transfer

import (
	"context"
	"errors"
	mathrand "math/rand"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"

	"github.com/okx/scatter/backup"
	"github.com/okx/scatter/utils"
)

const WalletsPrompt = "Enter the number of wallets to create per private key: "

// Prompter is the operator-facing side of a run.
type Prompter interface {
	AskPositiveInt(ctx context.Context, prompt string) (int, error)
	backup.Confirmer
}

// DialFunc opens the chain client.
type DialFunc func(ctx context.Context, cfg utils.ChainConfig, logger log.Logger) (Chain, error)

// DialEthClient is the production DialFunc.
func DialEthClient(ctx context.Context, cfg utils.ChainConfig, logger log.Logger) (Chain, error) {
	return utils.NewEthClient(ctx, cfg, logger)
}

type Deps struct {
	Dial     DialFunc
	Prompter Prompter
	Rand     *mathrand.Rand
	Sleep    SleepFunc
	RunID    string
	Logger   log.Logger
}

// Scatter runs the whole pipeline: load keys, connect, send, save the new
// wallets and delete them after confirmation. Keys are loaded before dialing,
// so a missing key file never touches the network.
func Scatter(ctx context.Context, cfg *utils.TransferConfig, deps Deps) (Report, error) {
	logger := deps.Logger
	if logger == nil {
		logger = log.Root()
	}
	runID := deps.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	logger = logger.New("run", runID)

	creds, err := utils.LoadCredentials(cfg.KeysFilePath)
	if err != nil {
		return Report{}, err
	}
	if len(creds) == 0 {
		return Report{}, utils.ConfigError("load credentials", errors.New("no private keys in "+cfg.KeysFilePath))
	}
	logger.Info("Loaded private keys", "count", len(creds), "path", cfg.KeysFilePath)

	jitter, err := NewJitter(deps.Rand, cfg.MinAmountMicro, cfg.MaxAmountMicro, cfg.MinDelaySeconds, cfg.MaxDelaySeconds)
	if err != nil {
		return Report{}, utils.ConfigError("jitter", err)
	}

	dial := deps.Dial
	if dial == nil {
		dial = DialEthClient
	}
	chain, err := dial(ctx, cfg.ChainConfig(), logger)
	if err != nil {
		return Report{}, err
	}
	defer chain.Close()
	logger.Info("Connected", "rpc", cfg.Rpc, "chainId", cfg.ChainID)

	perKey := cfg.WalletsPerKey
	if perKey == 0 {
		perKey, err = deps.Prompter.AskPositiveInt(ctx, WalletsPrompt)
		if err != nil {
			return Report{}, err
		}
	}

	opts := []Option{
		WithExplorer(cfg.BlockExplorer),
		WithNoncePolicy(cfg.NoncePolicy),
	}
	if deps.Sleep != nil {
		opts = append(opts, WithSleep(deps.Sleep))
	}
	report := NewRunner(chain, jitter, logger, opts...).Run(ctx, creds, perKey)
	logger.Info("Transfers finished", "sent", report.Sent(), "failed", report.Failed(), "wallets", len(report.Wallets))

	if err := backup.Persist(ctx, cfg.WalletsFilePath, runID, report.Wallets, deps.Prompter, logger); err != nil {
		return report, err
	}
	return report, nil
}
