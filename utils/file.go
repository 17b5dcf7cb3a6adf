package utils

import (
	"bufio"
	"crypto/ecdsa"
	"fmt"
	"os"
	"strings"

	ethcmm "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
)

// ReadDataFromFile reads the non-blank lines of a file, trimmed.
func ReadDataFromFile(filepath string) ([]string, error) {
	f, err := os.Open(filepath)
	if err != nil {
		return nil, ConfigError("open "+filepath, err)
	}
	defer func(f *os.File) {
		if err := f.Close(); err != nil {
			log.Warn("Failed to close file", "path", filepath, "err", err)
		}
	}(f)

	log.Debug("Loading data", "path", filepath)

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return nil, ConfigError("read "+filepath, err)
	}

	log.Debug("Records loaded", "path", filepath, "count", len(lines))
	return lines, nil
}

// LoadCredentials reads one hex secret per non-blank line. Key length and
// format are not checked here; a bad key fails later when it is parsed.
func LoadCredentials(filepath string) ([]Credential, error) {
	lines, err := ReadDataFromFile(filepath)
	if err != nil {
		return nil, err
	}
	creds := make([]Credential, len(lines))
	for i, line := range lines {
		creds[i] = NewCredential(line)
	}
	return creds, nil
}

// WriteKeysFile writes one 0x-prefixed secret per line, the format LoadCredentials reads.
func WriteKeysFile(filepath string, keys []*ecdsa.PrivateKey) error {
	var b strings.Builder
	for _, key := range keys {
		fmt.Fprintf(&b, "0x%x\n", crypto.FromECDSA(key))
	}
	if err := os.WriteFile(filepath, []byte(b.String()), 0o600); err != nil {
		return fmt.Errorf("failed to write keys file %s: %w", filepath, err)
	}
	return nil
}

// GetEthAddressFromPK converts an ECDSA private key to an Ethereum address
func GetEthAddressFromPK(privateKey *ecdsa.PrivateKey) ethcmm.Address {
	return crypto.PubkeyToAddress(privateKey.PublicKey)
}
