package swap

import (
	"math/bits"

	"github.com/pkg/errors"
)

const feeBpsDenominator = 10_000

var (
	ErrZeroAmount     = errors.New("amount must be positive")
	ErrInvalidFeeRate = errors.New("fee rate exceeds 100%")
)

// SplitFee splits a gross input amount into the platform fee and the net
// amount available for the swap.
//
// The computation is floor(amountIn * feeBps / 10000), matching the on-chain
// program bit-for-bit. The program independently recomputes the fee and
// rejects any divergence, so this must never round differently. The 128-bit
// intermediate product avoids overflow for any u64 amount.
func SplitFee(amountIn uint64, feeBps uint16) (fee uint64, netAmount uint64, err error) {
	if amountIn == 0 {
		return 0, 0, ErrZeroAmount
	}
	if feeBps > feeBpsDenominator {
		return 0, 0, ErrInvalidFeeRate
	}

	hi, lo := bits.Mul64(amountIn, uint64(feeBps))
	fee, _ = bits.Div64(hi, lo, feeBpsDenominator)

	return fee, amountIn - fee, nil
}
