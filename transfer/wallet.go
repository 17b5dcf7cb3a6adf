package transfer

import (
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/okx/scatter/utils"
)

// GenerateAccounts creates count fresh destination accounts.
func GenerateAccounts(count int) ([]utils.GeneratedAccount, error) {
	accounts := make([]utils.GeneratedAccount, count)
	for i := 0; i < count; i++ {
		key, err := crypto.GenerateKey()
		if err != nil {
			return nil, fmt.Errorf("failed to generate key %d: %w", i, err)
		}
		accounts[i] = utils.GeneratedAccount{
			Address:    utils.GetEthAddressFromPK(key),
			PrivateKey: key,
		}
	}
	return accounts, nil
}
