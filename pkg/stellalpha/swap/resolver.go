package swap

import (
	"context"

	"github.com/pkg/errors"

	"github.com/stellalpha/stellalpha-server/pkg/metrics"
	"github.com/stellalpha/stellalpha-server/pkg/solana"
	stellalpha_vault "github.com/stellalpha/stellalpha-server/pkg/solana/stellalphavault"
	"github.com/stellalpha/stellalpha-server/pkg/solana/token"
	"github.com/stellalpha/stellalpha-server/pkg/stellalpha/common"
)

// resolvedAccounts holds every address one orchestration pass needs. All
// program derived addresses are computed by the vault program's binding
// package, which is the single derivation authority.
type resolvedAccounts struct {
	FeePayer *common.Account

	Vault        *common.Account
	TraderState  *common.Account
	GlobalConfig *common.Account

	InputTokenAccount  *common.Account
	OutputTokenAccount *common.Account
	PlatformFeeAccount *common.Account
}

func resolveAccounts(intent *SwapIntent, feePayer *common.Account) (*resolvedAccounts, error) {
	traderAccounts, err := intent.Owner.GetTraderAccounts(intent.Trader)
	if err != nil {
		return nil, errors.Wrap(err, "error deriving trader accounts")
	}

	globalConfigAddress, _, err := stellalpha_vault.GetGlobalConfigAddress()
	if err != nil {
		return nil, errors.Wrap(err, "error deriving global config address")
	}
	globalConfig, err := common.NewAccountFromPublicKeyBytes(globalConfigAddress)
	if err != nil {
		return nil, errors.Wrap(err, "invalid global config address")
	}

	inputTokenAccount, err := traderAccounts.State.ToAssociatedTokenAccount(intent.InputMint)
	if err != nil {
		return nil, errors.Wrap(err, "error deriving input token account")
	}

	outputTokenAccount, err := traderAccounts.State.ToAssociatedTokenAccount(intent.OutputMint)
	if err != nil {
		return nil, errors.Wrap(err, "error deriving output token account")
	}

	// Platform fees are collected in the input asset by the backend's own
	// token account. The program asserts the destination matches policy.
	platformFeeAccount, err := feePayer.ToAssociatedTokenAccount(intent.InputMint)
	if err != nil {
		return nil, errors.Wrap(err, "error deriving platform fee account")
	}

	return &resolvedAccounts{
		FeePayer: feePayer,

		Vault:        traderAccounts.Vault,
		TraderState:  traderAccounts.State,
		GlobalConfig: globalConfig,

		InputTokenAccount:  inputTokenAccount,
		OutputTokenAccount: outputTokenAccount,
		PlatformFeeAccount: platformFeeAccount,
	}, nil
}

// ensureTokenAccountExists idempotently provisions the associated token
// account for the given owner and mint. Creation happens in its own small
// transaction, confirmed before the swap is submitted, so a provisioning
// failure can never be conflated with a swap failure.
func (s *Service) ensureTokenAccountExists(ctx context.Context, owner, mint *common.Account) (created bool, err error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "ensureTokenAccountExists")
	defer tracer.End()

	ata, err := token.GetAssociatedAccount(owner.PublicKey().ToBytes(), mint.PublicKey().ToBytes())
	if err != nil {
		return false, errors.Wrap(err, "error deriving associated token account")
	}

	_, err = s.client.GetAccountInfo(ata, solana.CommitmentConfirmed)
	if err == nil {
		return false, nil
	} else if err != solana.ErrNoAccountInfo {
		return false, errors.Wrap(err, "error checking token account existence")
	}

	feePayer := s.feePayer

	// Idempotent creation: a concurrent pass creating the same account
	// between the existence check and this send is not a failure
	instruction, _, err := token.CreateAssociatedTokenAccountIdempotent(
		feePayer.PublicKey().ToBytes(),
		owner.PublicKey().ToBytes(),
		mint.PublicKey().ToBytes(),
	)
	if err != nil {
		return false, errors.Wrap(err, "error building create instruction")
	}

	txn := solana.NewTransaction(feePayer.PublicKey().ToBytes(), instruction)

	blockhash, err := s.client.GetLatestBlockhash()
	if err != nil {
		return false, errors.Wrap(err, "error getting latest blockhash")
	}
	txn.SetBlockhash(blockhash)

	if err := txn.Sign(feePayer.PrivateKey().ToBytes()); err != nil {
		return false, errors.Wrap(err, "error signing transaction")
	}

	sig, err := s.client.SubmitTransaction(txn, solana.CommitmentConfirmed)
	if err != nil {
		return false, errors.Wrap(err, "error submitting transaction")
	}

	status, err := s.client.GetSignatureStatus(sig, solana.CommitmentConfirmed)
	if err != nil {
		return false, errors.Wrap(err, "error confirming transaction")
	}
	if status != nil && status.ErrorResult != nil {
		return false, errors.Wrap(status.ErrorResult, "create transaction failed")
	}

	return true, nil
}
