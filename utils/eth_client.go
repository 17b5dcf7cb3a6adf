package utils

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum"
	ethcmn "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/params"
	"github.com/ethereum/go-ethereum/rpc"
	"golang.org/x/time/rate"
)

var (
	_ Backend = (*ethclient.Client)(nil)

	// DefaultFeeCap is used when the base fee cannot be read.
	DefaultFeeCap = big.NewInt(params.GWei)
	// DefaultTipCap is a tenth of DefaultFeeCap.
	DefaultTipCap = big.NewInt(params.GWei / 10)
)

// receiptLogInterval bounds how often "still waiting" is logged while polling.
const receiptLogInterval = 15 * time.Second

// Backend is the part of ethclient.Client the chain client relies on.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	BalanceAt(ctx context.Context, account ethcmn.Address, blockNumber *big.Int) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	PendingNonceAt(ctx context.Context, account ethcmn.Address) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash ethcmn.Hash) (*types.Receipt, error)
	Close()
}

// EthClient is a thin handle to one JSON-RPC endpoint. It is used serially.
type EthClient struct {
	backend Backend
	cfg     ChainConfig
	chainID *big.Int
	signer  types.Signer
	logger  log.Logger
}

// createOptimizedHTTPClient creates an HTTP client that keeps the single
// endpoint connection alive between calls.
func createOptimizedHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		DisableKeepAlives:   false,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

// NewEthClient dials the endpoint and checks that it serves the configured chain.
func NewEthClient(ctx context.Context, cfg ChainConfig, logger log.Logger) (*EthClient, error) {
	httpClient := createOptimizedHTTPClient(cfg.RequestTimeout)
	rpcClient, err := rpc.DialOptions(ctx, cfg.RPC, rpc.WithHTTPClient(httpClient))
	if err != nil {
		return nil, RPCError("dial "+cfg.RPC, err)
	}

	cli, err := NewEthClientWithBackend(ctx, ethclient.NewClient(rpcClient), cfg, logger)
	if err != nil {
		rpcClient.Close()
		return nil, err
	}
	return cli, nil
}

// NewEthClientWithBackend wraps an existing backend. The backend's chain id
// must match cfg.ChainID.
func NewEthClientWithBackend(ctx context.Context, backend Backend, cfg ChainConfig, logger log.Logger) (*EthClient, error) {
	if logger == nil {
		logger = log.Root()
	}
	if cfg.ReceiptPollInterval <= 0 {
		cfg.ReceiptPollInterval = time.Second
	}

	c := &EthClient{
		backend: backend,
		cfg:     cfg,
		chainID: big.NewInt(cfg.ChainID),
		logger:  logger,
	}

	rctx, cancel := c.withTimeout(ctx)
	defer cancel()
	remote, err := backend.ChainID(rctx)
	if err != nil {
		return nil, RPCError("query chain id", err)
	}
	if remote.Cmp(c.chainID) != 0 {
		return nil, ConfigError("check chain id", fmt.Errorf("%w: endpoint %s reports %s, configured %s",
			ErrChainIDMismatch, cfg.RPC, remote, c.chainID))
	}
	c.signer = types.NewLondonSigner(c.chainID)
	return c, nil
}

func (c *EthClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.cfg.RequestTimeout > 0 {
		return context.WithTimeout(ctx, c.cfg.RequestTimeout)
	}
	return context.WithCancel(ctx)
}

func (c *EthClient) ChainID() *big.Int {
	return new(big.Int).Set(c.chainID)
}

// Balance returns the latest balance of addr in wei.
func (c *EthClient) Balance(ctx context.Context, addr ethcmn.Address) (*big.Int, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	balance, err := c.backend.BalanceAt(ctx, addr, nil)
	if err != nil {
		return nil, RPCError("balance of "+addr.Hex(), err)
	}
	return balance, nil
}

// PendingNonce returns the next nonce for addr, counting pool transactions.
func (c *EthClient) PendingNonce(ctx context.Context, addr ethcmn.Address) (uint64, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	nonce, err := c.backend.PendingNonceAt(ctx, addr)
	if err != nil {
		return 0, RPCError("nonce of "+addr.Hex(), err)
	}
	return nonce, nil
}

// FeeCaps returns the fee cap (1.2x the latest base fee) and the priority tip
// (a tenth of the fee cap), both rounded down. Lookup failures fall back to
// DefaultFeeCap and DefaultTipCap.
func (c *EthClient) FeeCaps(ctx context.Context) (feeCap, tip *big.Int) {
	baseFee, err := c.baseFee(ctx)
	if err != nil {
		c.logger.Warn("Failed to get base fee, using default", "feeCap", DefaultFeeCap, "err", err)
		return new(big.Int).Set(DefaultFeeCap), new(big.Int).Set(DefaultTipCap)
	}
	return ComputeFeeCaps(baseFee)
}

// ComputeFeeCaps applies the static safety margin to an observed base fee.
func ComputeFeeCaps(baseFee *big.Int) (feeCap, tip *big.Int) {
	feeCap = new(big.Int).Mul(baseFee, big.NewInt(12))
	feeCap.Div(feeCap, big.NewInt(10))
	tip = new(big.Int).Div(feeCap, big.NewInt(10))
	return feeCap, tip
}

func (c *EthClient) baseFee(ctx context.Context) (*big.Int, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	header, err := c.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, err
	}
	if header.BaseFee != nil {
		return header.BaseFee, nil
	}
	// pre-London chains have no base fee
	return c.backend.SuggestGasPrice(ctx)
}

// GasLimit estimates the transfer and adds 20%. On failure it falls back to
// the plain transfer cost.
func (c *EthClient) GasLimit(ctx context.Context, from, to ethcmn.Address, value *big.Int) uint64 {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	estimate, err := c.backend.EstimateGas(ctx, ethereum.CallMsg{
		From:  from,
		To:    &to,
		Value: value,
	})
	if err != nil {
		c.logger.Warn("Gas estimation failed, using default", "gas", params.TxGas, "err", err)
		return params.TxGas
	}
	return estimate * 12 / 10
}

// SignTransfer builds and signs a dynamic fee (type 2) transaction.
func (c *EthClient) SignTransfer(key *ecdsa.PrivateKey, req TransferRequest, gas uint64, feeCap, tip *big.Int) (*types.Transaction, error) {
	if key == nil {
		return nil, SigningError("sign transfer", errors.New("nil private key"))
	}
	to := req.To
	unsignedTx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   c.chainID,
		Nonce:     req.Nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        &to,
		Value:     req.Amount,
	})
	signedTx, err := types.SignTx(unsignedTx, c.signer, key)
	if err != nil {
		return nil, SigningError("sign transfer", err)
	}
	return signedTx, nil
}

// Broadcast submits a signed transaction.
func (c *EthClient) Broadcast(ctx context.Context, tx *types.Transaction) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	if err := c.backend.SendTransaction(ctx, tx); err != nil {
		return BroadcastError("send "+tx.Hash().Hex(), err)
	}
	return nil
}

// WaitReceipt polls until the transaction is mined. A receipt with a failed
// status is reported as a BroadcastError wrapping ErrTransactionFailed.
func (c *EthClient) WaitReceipt(ctx context.Context, hash ethcmn.Hash) (*types.Receipt, error) {
	if c.cfg.ReceiptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.ReceiptTimeout)
		defer cancel()
	}

	tick := time.NewTicker(c.cfg.ReceiptPollInterval)
	defer tick.Stop()
	waiting := rate.Sometimes{Interval: receiptLogInterval}

	for {
		rctx, cancel := c.withTimeout(ctx)
		receipt, err := c.backend.TransactionReceipt(rctx, hash)
		cancel()

		switch {
		case err == nil:
			if receipt.Status != types.ReceiptStatusSuccessful {
				return receipt, BroadcastError("receipt "+hash.Hex(),
					fmt.Errorf("%w: status %d in block %v", ErrTransactionFailed, receipt.Status, receipt.BlockNumber))
			}
			return receipt, nil
		case errors.Is(err, ethereum.NotFound):
			waiting.Do(func() {
				c.logger.Info("Waiting for transaction to be mined", "tx", hash)
			})
		default:
			return nil, RPCError("receipt "+hash.Hex(), err)
		}

		select {
		case <-ctx.Done():
			return nil, RPCError("wait receipt "+hash.Hex(), ctx.Err())
		case <-tick.C:
		}
	}
}

// SendTransfer prices, signs, broadcasts and waits for one transfer. The hash
// is returned whenever the transaction was signed, even if a later step failed.
func (c *EthClient) SendTransfer(ctx context.Context, key *ecdsa.PrivateKey, req TransferRequest) (ethcmn.Hash, error) {
	feeCap, tip := c.FeeCaps(ctx)
	gas := c.GasLimit(ctx, req.From, req.To, req.Amount)

	signedTx, err := c.SignTransfer(key, req, gas, feeCap, tip)
	if err != nil {
		return ethcmn.Hash{}, err
	}
	if err := c.Broadcast(ctx, signedTx); err != nil {
		return signedTx.Hash(), err
	}
	c.logger.Debug("Transfer broadcast", "tx", signedTx.Hash(), "nonce", req.Nonce,
		"gas", gas, "feeCap", feeCap, "tip", tip)

	if _, err := c.WaitReceipt(ctx, signedTx.Hash()); err != nil {
		return signedTx.Hash(), err
	}
	return signedTx.Hash(), nil
}

func (c *EthClient) Close() {
	c.backend.Close()
}
