// Package backup writes generated wallet credentials to a plaintext file and
// removes it once the operator confirms the keys were copied elsewhere.
package backup

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/log"

	"github.com/okx/scatter/utils"
)

const (
	header       = "=== Generated Wallets ==="
	separatorLen = 50

	ConfirmPrompt = "Press Enter after you have saved the wallet information elsewhere..."
)

// Confirmer is the manual gate between writing and deleting the file.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) error
}

// Write creates (or truncates) path with one block per wallet.
func Write(path, runID string, wallets []utils.GeneratedAccount) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create wallet file %s: %w", path, err)
	}

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "%s\n", header)
	if runID != "" {
		fmt.Fprintf(w, "Run: %s\n", runID)
	}
	fmt.Fprintln(w)
	for i, wallet := range wallets {
		fmt.Fprintf(w, "Wallet %d:\n", i+1)
		fmt.Fprintf(w, "Address: %s\n", wallet.Address.Hex())
		fmt.Fprintf(w, "Private Key: %s\n", wallet.Secret())
		fmt.Fprintf(w, "%s\n\n", strings.Repeat("-", separatorLen))
	}

	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("failed to write wallet file %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close wallet file %s: %w", path, err)
	}
	return nil
}

// Persist writes the wallets, waits for confirmation, then deletes the file.
// When confirmation fails the file is left on disk so no key is lost.
func Persist(ctx context.Context, path, runID string, wallets []utils.GeneratedAccount, confirmer Confirmer, logger log.Logger) error {
	if logger == nil {
		logger = log.Root()
	}
	if len(wallets) == 0 {
		logger.Info("No wallets generated, nothing to save")
		return nil
	}

	if err := Write(path, runID, wallets); err != nil {
		return err
	}
	logger.Info("Wallet information saved", "path", path, "wallets", len(wallets))

	if err := confirmer.Confirm(ctx, "\n"+ConfirmPrompt); err != nil {
		logger.Warn("Confirmation not received, keeping wallet file", "path", path, "err", err)
		return fmt.Errorf("wallet file %s kept: %w", path, err)
	}

	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to delete wallet file %s: %w", path, err)
	}
	logger.Info("Wallet file has been deleted", "path", path)
	return nil
}
