package swap

import (
	"github.com/pkg/errors"

	"github.com/stellalpha/stellalpha-server/pkg/solana"
	compute_budget "github.com/stellalpha/stellalpha-server/pkg/solana/computebudget"
	"github.com/stellalpha/stellalpha-server/pkg/solana/memo"
	stellalpha_vault "github.com/stellalpha/stellalpha-server/pkg/solana/stellalphavault"
)

// assembleSwapTransaction builds the executeTraderSwap transaction the engine
// actually submits. The aggregator's container is discarded entirely at this
// point. Only the rewritten payload and signer-stripped account list survive,
// nested behind the vault program's own account contract.
//
// The fee payer is the sole transaction-level signer. The trade authority is
// a program derived address and cannot sign at this level.
//
// Aggregator routes are CPI-heavy, so an explicit compute unit limit is set
// rather than relying on the runtime default. A memo carrying the intent id
// ties the on-chain transaction back to this orchestration pass.
func assembleSwapTransaction(intent *SwapIntent, accounts *resolvedAccounts, computeUnitLimit uint32, computeUnitPrice uint64) (solana.Transaction, error) {
	if len(intent.RoutePayload) == 0 {
		return solana.Transaction{}, errors.New("intent has no rewritten payload")
	}

	remainingAccounts := make([]stellalpha_vault.AccountMeta, len(intent.RemainingAccounts))
	for i, account := range intent.RemainingAccounts {
		remainingAccounts[i] = stellalpha_vault.AccountMeta{
			PublicKey:  account.PublicKey,
			IsSigner:   account.IsSigner,
			IsWritable: account.IsWritable,
		}
	}

	instruction := stellalpha_vault.NewExecuteTraderSwapInstruction(
		&stellalpha_vault.ExecuteTraderSwapInstructionAccounts{
			Authority:          accounts.FeePayer.PublicKey().ToBytes(),
			Vault:              accounts.Vault.PublicKey().ToBytes(),
			TraderState:        accounts.TraderState.PublicKey().ToBytes(),
			InputTokenAccount:  accounts.InputTokenAccount.PublicKey().ToBytes(),
			OutputTokenAccount: accounts.OutputTokenAccount.PublicKey().ToBytes(),
			PlatformFeeAccount: accounts.PlatformFeeAccount.PublicKey().ToBytes(),
			GlobalConfig:       accounts.GlobalConfig.PublicKey().ToBytes(),
			RemainingAccounts:  remainingAccounts,
		},
		&stellalpha_vault.ExecuteTraderSwapInstructionArgs{
			AmountIn:     intent.AmountIn,
			MinAmountOut: intent.MinAmountOut,
			Data:         intent.RoutePayload,
		},
	)

	txn := solana.NewTransaction(
		accounts.FeePayer.PublicKey().ToBytes(),
		compute_budget.SetComputeUnitLimit(computeUnitLimit),
		compute_budget.SetComputeUnitPrice(computeUnitPrice),
		instruction.ToLegacyInstruction(),
		memo.Instruction(intent.Id.String()),
	)

	return txn, nil
}
