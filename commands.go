package main

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/spf13/cobra"

	"github.com/okx/scatter/transfer"
	"github.com/okx/scatter/utils"
)

func addChainFlags(cmd *cobra.Command) {
	cmd.Flags().String("rpc", "", "JSON-RPC endpoint (default "+utils.DefaultRPC+")")
	cmd.Flags().Int64("chain-id", 0, fmt.Sprintf("Expected chain id (default %d)", utils.DefaultChainID))
	cmd.Flags().String("keys-file-path", "", "File with one funded private key per line (default .env)")
	cmd.Flags().Duration("request-timeout", 0, "Timeout for a single RPC request (default 10s)")
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Send transfers from every loaded key to newly generated wallets",
		Long: `Load funded keys, generate wallets for each of them, send each wallet a small
random amount with a random pause between sends, then write the generated
wallets to a file that is deleted once you confirm you have saved it.

Example:
  scatter run -n 5
  scatter run -f ./config.yaml --nonce-policy resync`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := utils.LoadConfig(configPath, cmd.Flags())
			if err != nil {
				return err
			}

			prompter := utils.NewPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
			report, err := transfer.Scatter(cmd.Context(), cfg, transfer.Deps{
				Prompter: prompter,
				Logger:   log.Root(),
			})
			if err != nil {
				return fmt.Errorf("scatter failed: %w", err)
			}
			log.Info("Done", "sent", report.Sent(), "failed", report.Failed(), "wallets", len(report.Wallets))
			return nil
		},
	}

	addChainFlags(cmd)
	cmd.Flags().String("block-explorer", "", "Block explorer base URL used in log links")
	cmd.Flags().String("wallets-file-path", "", "Where generated wallets are written before deletion (default wallets.txt)")
	cmd.Flags().IntP("wallets-per-key", "n", 0, "Wallets to create per key; asked interactively when 0")
	cmd.Flags().String("nonce-policy", "", "What to do with the nonce after a failed transfer: advance or resync")
	cmd.Flags().Duration("receipt-timeout", 0, "Give up waiting for a receipt after this long; 0 waits until mined")

	return cmd
}

func keygenCmd() *cobra.Command {
	var (
		count  int
		output string
		force  bool
	)
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a key file in the format run expects",
		Long: `Generate private keys and write them one per line.

Example:
  scatter keygen -n 3 -o .env`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if count <= 0 {
				return errors.New("count (-n) must be positive")
			}
			if _, err := os.Stat(output); err == nil && !force {
				return fmt.Errorf("%s already exists, use --force to overwrite", output)
			}

			accounts, err := transfer.GenerateAccounts(count)
			if err != nil {
				return err
			}
			keys := make([]*ecdsa.PrivateKey, len(accounts))
			for i, acc := range accounts {
				keys[i] = acc.PrivateKey
				log.Info("Generated account", "index", i+1, "address", acc.Address)
			}
			if err := utils.WriteKeysFile(output, keys); err != nil {
				return err
			}
			log.Info("Keys written", "path", output, "count", count)
			return nil
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 1, "Number of keys to generate")
	cmd.Flags().StringVarP(&output, "output", "o", ".env", "Output key file")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing output file")

	return cmd
}

func balanceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Show the balance of every loaded key without sending anything",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := utils.LoadConfig(configPath, cmd.Flags())
			if err != nil {
				return err
			}
			creds, err := utils.LoadCredentials(cfg.KeysFilePath)
			if err != nil {
				return err
			}

			cli, err := utils.NewEthClient(cmd.Context(), cfg.ChainConfig(), log.Root())
			if err != nil {
				return err
			}
			defer cli.Close()

			for i, cred := range creds {
				key, err := cred.PrivateKey()
				if err != nil {
					log.Error("Invalid key", "index", i+1, "err", err)
					continue
				}
				addr := utils.GetEthAddressFromPK(key)
				balance, err := cli.Balance(cmd.Context(), addr)
				if err != nil {
					log.Error("Failed to get balance", "address", addr, "err", err)
					continue
				}
				log.Info("Balance", "index", i+1, "address", addr, "eth", transfer.FormatEther(balance))
			}
			return nil
		},
	}

	addChainFlags(cmd)
	return cmd
}
