package transfer

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	ethcmn "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"github.com/okx/scatter/utils"
)

var _ Chain = (*utils.EthClient)(nil)

// Chain is what the loop needs from the chain client.
type Chain interface {
	Balance(ctx context.Context, addr ethcmn.Address) (*big.Int, error)
	PendingNonce(ctx context.Context, addr ethcmn.Address) (uint64, error)
	SendTransfer(ctx context.Context, key *ecdsa.PrivateKey, req utils.TransferRequest) (ethcmn.Hash, error)
	Close()
}

type Status int

const (
	StatusPending Status = iota
	StatusSent
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "PENDING"
	case StatusSent:
		return "SENT"
	case StatusFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// TransferResult is the outcome of one attempted transfer.
type TransferResult struct {
	Index  int // 1-based within its credential
	From   ethcmn.Address
	To     ethcmn.Address
	Amount *big.Int
	Nonce  uint64
	Hash   ethcmn.Hash
	Status Status
	Err    error
}

// Report aggregates a whole run.
type Report struct {
	Wallets []utils.GeneratedAccount
	Results []TransferResult
}

func (r Report) Sent() int {
	n := 0
	for _, res := range r.Results {
		if res.Status == StatusSent {
			n++
		}
	}
	return n
}

func (r Report) Failed() int {
	n := 0
	for _, res := range r.Results {
		if res.Status == StatusFailed {
			n++
		}
	}
	return n
}

// SleepFunc pauses between sends. It returns early with ctx's error.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Runner sends one transfer to each freshly generated account, one credential
// at a time.
type Runner struct {
	chain       Chain
	jitter      *Jitter
	noncePolicy utils.NoncePolicy
	explorer    string
	sleep       SleepFunc
	generate    func(int) ([]utils.GeneratedAccount, error)
	logger      log.Logger
}

type Option func(*Runner)

func WithSleep(sleep SleepFunc) Option {
	return func(r *Runner) { r.sleep = sleep }
}

func WithExplorer(url string) Option {
	return func(r *Runner) { r.explorer = strings.TrimSuffix(url, "/") }
}

func WithNoncePolicy(policy utils.NoncePolicy) Option {
	return func(r *Runner) { r.noncePolicy = policy }
}

func WithAccountGenerator(generate func(int) ([]utils.GeneratedAccount, error)) Option {
	return func(r *Runner) { r.generate = generate }
}

func NewRunner(chain Chain, jitter *Jitter, logger log.Logger, opts ...Option) *Runner {
	if logger == nil {
		logger = log.Root()
	}
	r := &Runner{
		chain:       chain,
		jitter:      jitter,
		noncePolicy: utils.NonceAdvance,
		sleep:       sleepContext,
		generate:    GenerateAccounts,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run processes every credential in order. If ctx is cancelled it stops and
// returns what was generated so far, so those keys can still be saved.
func (r *Runner) Run(ctx context.Context, creds []utils.Credential, perKey int) Report {
	var report Report
	for i, cred := range creds {
		if ctx.Err() != nil {
			r.logger.Warn("Run interrupted", "processed", i, "total", len(creds))
			break
		}
		wallets, results, err := r.ProcessCredential(ctx, cred, perKey)
		if err != nil {
			r.logger.Error("Error processing credential", "index", i+1, "err", err)
		}
		report.Wallets = append(report.Wallets, wallets...)
		report.Results = append(report.Results, results...)
	}
	return report
}

// ProcessCredential generates perKey accounts and sends one transfer to each.
// The returned accounts include those whose transfer failed. An error is
// returned only when the credential could not be used at all, or when ctx
// ended the loop early.
func (r *Runner) ProcessCredential(ctx context.Context, cred utils.Credential, perKey int) ([]utils.GeneratedAccount, []TransferResult, error) {
	key, err := cred.PrivateKey()
	if err != nil {
		return nil, nil, err
	}
	from := utils.GetEthAddressFromPK(key)
	logger := r.logger.New("from", from)
	logger.Info("Processing transactions")

	balance, err := r.chain.Balance(ctx, from)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("Current balance", "eth", FormatEther(balance))

	nonce, err := r.chain.PendingNonce(ctx, from)
	if err != nil {
		return nil, nil, err
	}

	wallets, err := r.generate(perKey)
	if err != nil {
		return nil, nil, utils.SigningError("generate accounts", err)
	}
	logger.Info("Created wallets", "count", len(wallets), "nonce", nonce)

	results := make([]TransferResult, 0, len(wallets))
	for i, wallet := range wallets {
		res := TransferResult{
			Index:  i + 1,
			From:   from,
			To:     wallet.Address,
			Amount: r.jitter.Amount(),
			Nonce:  nonce,
			Status: StatusPending,
		}
		logger.Info(fmt.Sprintf("Processing transaction %d/%d", res.Index, len(wallets)), "to", res.To, "nonce", res.Nonce)

		res.Hash, res.Err = r.chain.SendTransfer(ctx, key, utils.TransferRequest{
			From:   from,
			To:     wallet.Address,
			Amount: res.Amount,
			Nonce:  res.Nonce,
		})
		if res.Err != nil {
			res.Status = StatusFailed
			logger.Error(fmt.Sprintf("Transaction %d failed", res.Index), "to", res.To, "kind", utils.KindOf(res.Err), "err", res.Err)
		} else {
			res.Status = StatusSent
			logger.Info("Transaction successful", "to", res.To, "amount", FormatEther(res.Amount)+" ETH",
				"hash", res.Hash, "explorer", r.txURL(res.Hash))
		}
		results = append(results, res)

		nonce = r.nextNonce(ctx, logger, from, res)

		if i == len(wallets)-1 {
			break
		}
		delay := r.jitter.Delay()
		logger.Info("Waiting before the next transaction", "delay", delay)
		if err := r.sleep(ctx, delay); err != nil {
			return wallets, results, err
		}
	}
	return wallets, results, nil
}

func (r *Runner) nextNonce(ctx context.Context, logger log.Logger, from ethcmn.Address, res TransferResult) uint64 {
	if res.Status == StatusSent || r.noncePolicy == utils.NonceAdvance {
		return res.Nonce + 1
	}
	nonce, err := r.chain.PendingNonce(ctx, from)
	if err != nil {
		logger.Warn("Failed to resync nonce, advancing locally", "err", err)
		return res.Nonce + 1
	}
	logger.Debug("Nonce resynced", "nonce", nonce)
	return nonce
}

func (r *Runner) txURL(hash ethcmn.Hash) string {
	if r.explorer == "" {
		return ""
	}
	return r.explorer + "/tx/" + hash.Hex()
}
