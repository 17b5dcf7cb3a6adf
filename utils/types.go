package utils

import (
	"crypto/ecdsa"
	"math/big"
	"strings"

	ethcmn "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// Credential is a funded sender key as read from the key file.
type Credential struct {
	Secret string // always 0x-prefixed
}

// NewCredential normalises the 0x prefix without validating the key itself.
func NewCredential(secret string) Credential {
	secret = strings.TrimSpace(secret)
	if !strings.HasPrefix(secret, "0x") {
		secret = "0x" + secret
	}
	return Credential{Secret: secret}
}

// PrivateKey parses the secret. Malformed secrets surface here as a SigningError.
func (c Credential) PrivateKey() (*ecdsa.PrivateKey, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(c.Secret, "0x"))
	if err != nil {
		return nil, SigningError("parse private key", err)
	}
	return key, nil
}

// GeneratedAccount is a fresh destination account with no on-chain history.
type GeneratedAccount struct {
	Address    ethcmn.Address
	PrivateKey *ecdsa.PrivateKey
}

// Secret returns the 0x-prefixed hex encoding of the private key.
func (a GeneratedAccount) Secret() string {
	return hexutil.Encode(crypto.FromECDSA(a.PrivateKey))
}

// TransferRequest is a single native transfer to be signed and sent.
type TransferRequest struct {
	From   ethcmn.Address
	To     ethcmn.Address
	Amount *big.Int // wei
	Nonce  uint64
}
