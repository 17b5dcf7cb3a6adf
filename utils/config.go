package utils

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// NoncePolicy decides what happens to the local nonce after a failed transfer.
type NoncePolicy string

const (
	// NonceAdvance increments the local nonce after every attempt, failed or not.
	NonceAdvance NoncePolicy = "advance"
	// NonceResync re-reads the pending nonce from the chain after a failure.
	NonceResync NoncePolicy = "resync"
)

const envPrefix = "SCATTER"

// Config keys, shared by the config file, SCATTER_* environment variables and flags.
const (
	KeyRPC                 = "rpc"
	KeyChainID             = "chainId"
	KeyBlockExplorer       = "blockExplorer"
	KeyKeysFilePath        = "keysFilePath"
	KeyWalletsFilePath     = "walletsFilePath"
	KeyWalletsPerKey       = "walletsPerKey"
	KeyMinAmountMicro      = "minAmountMicro"
	KeyMaxAmountMicro      = "maxAmountMicro"
	KeyMinDelaySeconds     = "minDelaySeconds"
	KeyMaxDelaySeconds     = "maxDelaySeconds"
	KeyNoncePolicy         = "noncePolicy"
	KeyRequestTimeout      = "requestTimeout"
	KeyReceiptPollInterval = "receiptPollInterval"
	KeyReceiptTimeout      = "receiptTimeout"
)

// Abstract testnet, the network the tool was written against.
const (
	DefaultRPC           = "https://api.testnet.abs.xyz"
	DefaultChainID int64 = 11124
	DefaultExplorer      = "https://explorer.testnet.abs.xyz"
)

type TransferConfig struct {
	Rpc             string `mapstructure:"rpc"`
	ChainID         int64  `mapstructure:"chainId"`
	BlockExplorer   string `mapstructure:"blockExplorer"`
	KeysFilePath    string `mapstructure:"keysFilePath"`
	WalletsFilePath string `mapstructure:"walletsFilePath"`
	WalletsPerKey   int    `mapstructure:"walletsPerKey"` // 0 means ask on stdin

	MinAmountMicro  int64 `mapstructure:"minAmountMicro"` // 1 micro = 0.000001 ETH
	MaxAmountMicro  int64 `mapstructure:"maxAmountMicro"`
	MinDelaySeconds int   `mapstructure:"minDelaySeconds"`
	MaxDelaySeconds int   `mapstructure:"maxDelaySeconds"`

	NoncePolicy NoncePolicy `mapstructure:"noncePolicy"`

	RequestTimeout      time.Duration `mapstructure:"requestTimeout"`
	ReceiptPollInterval time.Duration `mapstructure:"receiptPollInterval"`
	ReceiptTimeout      time.Duration `mapstructure:"receiptTimeout"` // 0 waits until mined
}

// ChainConfig is the subset of settings the chain client needs.
type ChainConfig struct {
	RPC                 string
	ChainID             int64
	RequestTimeout      time.Duration
	ReceiptPollInterval time.Duration
	ReceiptTimeout      time.Duration
}

func (c *TransferConfig) ChainConfig() ChainConfig {
	return ChainConfig{
		RPC:                 c.Rpc,
		ChainID:             c.ChainID,
		RequestTimeout:      c.RequestTimeout,
		ReceiptPollInterval: c.ReceiptPollInterval,
		ReceiptTimeout:      c.ReceiptTimeout,
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyRPC, DefaultRPC)
	v.SetDefault(KeyChainID, DefaultChainID)
	v.SetDefault(KeyBlockExplorer, DefaultExplorer)
	v.SetDefault(KeyKeysFilePath, ".env")
	v.SetDefault(KeyWalletsFilePath, "wallets.txt")
	v.SetDefault(KeyWalletsPerKey, 0)
	v.SetDefault(KeyMinAmountMicro, 10)
	v.SetDefault(KeyMaxAmountMicro, 99)
	v.SetDefault(KeyMinDelaySeconds, 3)
	v.SetDefault(KeyMaxDelaySeconds, 17)
	v.SetDefault(KeyNoncePolicy, string(NonceAdvance))
	v.SetDefault(KeyRequestTimeout, 10*time.Second)
	v.SetDefault(KeyReceiptPollInterval, time.Second)
	v.SetDefault(KeyReceiptTimeout, time.Duration(0))
}

// DefaultConfig returns the built-in settings with no file, env or flag overrides.
func DefaultConfig() *TransferConfig {
	v := viper.New()
	setDefaults(v)
	cfg := &TransferConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		panic(fmt.Errorf("default config is invalid: %w", err))
	}
	return cfg
}

// LoadConfig layers defaults, the optional config file, SCATTER_* environment
// variables and any changed flags whose names match a config key.
func LoadConfig(configPath string, flags *pflag.FlagSet) (*TransferConfig, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, ConfigError("read config "+configPath, err)
		}
	}

	if flags != nil {
		for _, key := range v.AllKeys() {
			flag := flags.Lookup(flagName(key, flags))
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, ConfigError("bind flag "+flag.Name, err)
			}
		}
	}

	cfg := &TransferConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, ConfigError("decode config", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// flagName finds the kebab-case flag registered for a lower-cased viper key,
// e.g. "keys-file-path" for "keysfilepath".
func flagName(key string, flags *pflag.FlagSet) string {
	name := key
	flags.VisitAll(func(f *pflag.Flag) {
		if strings.EqualFold(strings.ReplaceAll(f.Name, "-", ""), key) {
			name = f.Name
		}
	})
	return name
}

// Validate checks ranges and required values.
func (c *TransferConfig) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Rpc) == "" {
		errs = append(errs, errors.New("rpc must not be empty"))
	}
	if c.ChainID <= 0 {
		errs = append(errs, fmt.Errorf("chainId must be positive, got %d", c.ChainID))
	}
	if c.KeysFilePath == "" {
		errs = append(errs, errors.New("keysFilePath must not be empty"))
	}
	if c.WalletsFilePath == "" {
		errs = append(errs, errors.New("walletsFilePath must not be empty"))
	}
	if c.WalletsPerKey < 0 {
		errs = append(errs, fmt.Errorf("walletsPerKey must not be negative, got %d", c.WalletsPerKey))
	}
	if c.MinAmountMicro <= 0 || c.MaxAmountMicro < c.MinAmountMicro {
		errs = append(errs, fmt.Errorf("amount range [%d, %d] is invalid", c.MinAmountMicro, c.MaxAmountMicro))
	}
	if c.MinDelaySeconds < 0 || c.MaxDelaySeconds < c.MinDelaySeconds {
		errs = append(errs, fmt.Errorf("delay range [%d, %d] is invalid", c.MinDelaySeconds, c.MaxDelaySeconds))
	}
	switch c.NoncePolicy {
	case NonceAdvance, NonceResync:
	default:
		errs = append(errs, fmt.Errorf("unknown noncePolicy %q", c.NoncePolicy))
	}
	if c.RequestTimeout < 0 || c.ReceiptTimeout < 0 {
		errs = append(errs, errors.New("timeouts must not be negative"))
	}
	if c.ReceiptPollInterval <= 0 {
		errs = append(errs, errors.New("receiptPollInterval must be positive"))
	}
	if len(errs) > 0 {
		return ConfigError("validate", errors.Join(errs...))
	}
	return nil
}
