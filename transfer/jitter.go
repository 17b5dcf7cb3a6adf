package transfer

import (
	"fmt"
	"math/big"
	mathrand "math/rand"
	"time"

	"github.com/shopspring/decimal"
)

// WeiPerMicro converts micro-ether (0.000001 ETH) to wei.
var WeiPerMicro = big.NewInt(1_000_000_000_000)

// Jitter draws transfer amounts and pauses uniformly from inclusive ranges.
type Jitter struct {
	rng       *mathrand.Rand
	minMicro  int64
	maxMicro  int64
	minDelayS int
	maxDelayS int
}

func NewJitter(rng *mathrand.Rand, minMicro, maxMicro int64, minDelayS, maxDelayS int) (*Jitter, error) {
	if minMicro <= 0 || maxMicro < minMicro {
		return nil, fmt.Errorf("invalid amount range [%d, %d]", minMicro, maxMicro)
	}
	if minDelayS < 0 || maxDelayS < minDelayS {
		return nil, fmt.Errorf("invalid delay range [%d, %d]", minDelayS, maxDelayS)
	}
	if rng == nil {
		rng = mathrand.New(mathrand.NewSource(time.Now().UnixNano()))
	}
	return &Jitter{
		rng:       rng,
		minMicro:  minMicro,
		maxMicro:  maxMicro,
		minDelayS: minDelayS,
		maxDelayS: maxDelayS,
	}, nil
}

// AmountMicro returns a value in [minMicro, maxMicro].
func (j *Jitter) AmountMicro() int64 {
	return j.minMicro + j.rng.Int63n(j.maxMicro-j.minMicro+1)
}

// Amount returns a random amount in wei.
func (j *Jitter) Amount() *big.Int {
	return new(big.Int).Mul(big.NewInt(j.AmountMicro()), WeiPerMicro)
}

// DelaySeconds returns a whole number of seconds in [minDelayS, maxDelayS].
func (j *Jitter) DelaySeconds() int {
	return j.minDelayS + j.rng.Intn(j.maxDelayS-j.minDelayS+1)
}

func (j *Jitter) Delay() time.Duration {
	return time.Duration(j.DelaySeconds()) * time.Second
}

// FormatEther renders wei as a decimal ETH amount, e.g. "0.000042".
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	return decimal.NewFromBigInt(wei, -18).String()
}
