package swap

import (
	"time"

	"github.com/google/uuid"

	"github.com/stellalpha/stellalpha-server/pkg/solana"
	"github.com/stellalpha/stellalpha-server/pkg/stellalpha/common"
)

// SwapIntent is the ephemeral state of one orchestration pass. It is never
// persisted. Retries construct a fresh intent with a fresh quote rather than
// resuming one.
type SwapIntent struct {
	Id uuid.UUID

	Owner  *common.Account
	Trader *common.Account

	InputMint  *common.Account
	OutputMint *common.Account

	AmountIn    uint64
	FeeBps      uint16
	Fee         uint64
	NetAmount   uint64
	SlippageBps uint32

	// Populated after routing
	MinAmountOut   uint64
	ExpectedOutput uint64
	RouteLabel     string
	PriceImpactPct string

	// Populated by the rewriter: the aggregator instruction's raw data,
	// forwarded byte-for-byte, and its signer-stripped account list.
	RoutePayload      []byte
	RemainingAccounts []solana.AccountMeta

	CreatedAt time.Time
}

func newSwapIntent(
	owner, trader, inputMint, outputMint *common.Account,
	amountIn uint64,
	feeBps uint16,
	slippageBps uint32,
) (*SwapIntent, error) {
	fee, netAmount, err := SplitFee(amountIn, feeBps)
	if err != nil {
		return nil, err
	}

	return &SwapIntent{
		Id: uuid.New(),

		Owner:  owner,
		Trader: trader,

		InputMint:  inputMint,
		OutputMint: outputMint,

		AmountIn:    amountIn,
		FeeBps:      feeBps,
		Fee:         fee,
		NetAmount:   netAmount,
		SlippageBps: slippageBps,

		CreatedAt: time.Now(),
	}, nil
}
