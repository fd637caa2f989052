package swap

import (
	"bytes"
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mr-tron/base58"

	"github.com/stellalpha/stellalpha-server/pkg/jupiter"
	"github.com/stellalpha/stellalpha-server/pkg/metrics"
	"github.com/stellalpha/stellalpha-server/pkg/pointer"
	"github.com/stellalpha/stellalpha-server/pkg/solana"
	stellalpha_vault "github.com/stellalpha/stellalpha-server/pkg/solana/stellalphavault"
	"github.com/stellalpha/stellalpha-server/pkg/stellalpha/common"
)

// RouteClient abstracts the swap aggregator's API.
type RouteClient interface {
	GetQuote(ctx context.Context, inputMint, outputMint string, quarksToSwap uint64, slippageBps uint32, dexes []string, forceDirectRoute bool) (*jupiter.Quote, error)
	GetSwapTransaction(ctx context.Context, quote *jupiter.Quote, userPublicKey string) (*jupiter.SwapTransaction, error)
}

// Service orchestrates copy-trade swaps end to end: preflight validation
// against chain state, routing, instruction rewriting, transaction assembly,
// bounded submission and post-swap reconciliation.
//
// The service is stateless between calls. Every pass re-derives addresses and
// re-reads chain state, so a crashed or retried pass can never act on stale
// ledger assumptions.
type Service struct {
	log            *logrus.Entry
	conf           *conf
	client         solana.Client
	fallbackClient solana.Client
	routeClient    RouteClient
	feePayer       *common.Account
}

func NewService(
	client solana.Client,
	fallbackClient solana.Client,
	routeClient RouteClient,
	configProvider ConfigProvider,
) *Service {
	return &Service{
		log:            logrus.StandardLogger().WithField("service", "swap"),
		conf:           configProvider(),
		client:         client,
		fallbackClient: fallbackClient,
		routeClient:    routeClient,
		feePayer:       common.GetFeePayer(),
	}
}

// Direction selects a swap pair relative to the vault's base asset, for
// callers that track positions rather than explicit mints.
type Direction uint8

const (
	DirectionUnknown Direction = iota

	// DirectionOpenPosition swaps the base asset into the position asset
	DirectionOpenPosition

	// DirectionClosePosition swaps the position asset back into the base
	// asset
	DirectionClosePosition
)

// ExecuteSwapRequest describes one requested swap. The pair is given either
// as an explicit InputMint/OutputMint, or as a Direction plus PositionMint
// resolved against the vault's configured base asset. A zero SlippageBps
// selects the configured default.
type ExecuteSwapRequest struct {
	Owner  *common.Account
	Trader *common.Account

	InputMint  *common.Account
	OutputMint *common.Account

	Direction    Direction
	PositionMint *common.Account

	AmountIn    uint64
	SlippageBps uint32
}

// NonCustodialAttestation is returned with every swap so callers can verify
// the backend never held custody. The trade authority is a program derived
// address, so token movement is only possible through the vault program's own
// signed invocation.
type NonCustodialAttestation struct {
	BackendWallet     string
	TradeAuthority    string
	FundsOwner        string
	BackendOwnsTokens bool
	UserSignedSwap    bool
}

type BalanceSnapshot struct {
	Input  uint64
	Output uint64
}

type ExecuteSwapResponse struct {
	Signature string

	AmountIn       uint64
	Fee            uint64
	NetAmount      uint64
	ExpectedOutput uint64
	MinAmountOut   uint64
	RouteLabel     string
	PriceImpactPct *string
	SlippageBps    uint32

	BalancesBefore BalanceSnapshot
	BalancesAfter  BalanceSnapshot

	Reconciliation ReconciliationResult
	Attestation    NonCustodialAttestation

	Duration time.Duration
}

// ExecuteSwap runs one full orchestration pass for the given request.
func (s *Service) ExecuteSwap(ctx context.Context, req *ExecuteSwapRequest) (*ExecuteSwapResponse, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "ExecuteSwap")
	defer tracer.End()

	start := time.Now()

	if req.Owner == nil || req.Trader == nil {
		err := newError(StageValidate, ErrorKindStructural, errors.New("owner and trader are required"))
		tracer.OnError(err)
		return nil, err
	}

	log := s.log.WithFields(logrus.Fields{
		"method": "ExecuteSwap",
		"owner":  req.Owner.PublicKey().ToBase58(),
		"trader": req.Trader.PublicKey().ToBase58(),
		"amount": req.AmountIn,
	})

	intent, vault, previousValue, err := s.validateRequest(ctx, req)
	if err != nil {
		tracer.OnError(err)
		return nil, err
	}

	log = log.WithField("intent", intent.Id.String())

	resp, err := s.executeValidatedSwap(ctx, log, intent, vault, previousValue, start)
	if err != nil {
		log.WithError(err).Warn("swap failed")
		recordSwapFailedEvent(ctx, intent, err, time.Since(start))
		tracer.OnError(err)
		return nil, err
	}

	return resp, nil
}

// validateRequest runs every preflight check against live chain state and
// produces the intent for this pass. No request proceeds past this point
// unless the vault and trader ledger allow it.
func (s *Service) validateRequest(ctx context.Context, req *ExecuteSwapRequest) (*SwapIntent, *stellalpha_vault.UserVaultAccount, uint64, error) {
	if req.AmountIn == 0 {
		return nil, nil, 0, newError(StageValidate, ErrorKindEconomic, ErrZeroAmount)
	}

	traderAccounts, err := req.Owner.GetTraderAccounts(req.Trader)
	if err != nil {
		return nil, nil, 0, newError(StageValidate, ErrorKindStructural, err)
	}

	// A missing account is a ledger condition; anything else is a transport
	// fault worth retrying.
	vault, err := s.getUserVault(traderAccounts.Vault)
	if err == ErrVaultNotFound {
		return nil, nil, 0, newError(StageValidate, ErrorKindBalance, err)
	} else if err != nil {
		return nil, nil, 0, newError(StageValidate, ErrorKindTransient, err)
	}
	if vault.IsPaused {
		return nil, nil, 0, newError(StageValidate, ErrorKindBalance, ErrVaultPaused)
	}

	inputMint, outputMint, err := resolveSwapPair(req, vault)
	if err != nil {
		return nil, nil, 0, newError(StageValidate, ErrorKindStructural, err)
	}

	if !vault.IsMintAllowed(inputMint.PublicKey().ToBytes()) {
		return nil, nil, 0, newError(StageValidate, ErrorKindStructural, ErrAssetNotAllowed)
	}
	if !vault.IsMintAllowed(outputMint.PublicKey().ToBytes()) {
		return nil, nil, 0, newError(StageValidate, ErrorKindStructural, ErrAssetNotAllowed)
	}

	traderState, err := s.getTraderState(traderAccounts.State)
	if err == ErrLedgerNotInitialized {
		return nil, nil, 0, newError(StageValidate, ErrorKindBalance, err)
	} else if err != nil {
		return nil, nil, 0, newError(StageValidate, ErrorKindTransient, err)
	}
	if !traderState.IsInitialized {
		return nil, nil, 0, newError(StageValidate, ErrorKindBalance, ErrLedgerNotInitialized)
	}
	if traderState.IsPaused {
		return nil, nil, 0, newError(StageValidate, ErrorKindBalance, ErrLedgerPaused)
	}
	if traderState.IsSettled {
		return nil, nil, 0, newError(StageValidate, ErrorKindBalance, ErrLedgerSettled)
	}

	// The fee rate is always the live on-chain value. The program recomputes
	// the fee with the same rate and rejects divergence.
	globalConfig, err := s.getGlobalConfig()
	if err != nil {
		return nil, nil, 0, newError(StageValidate, ErrorKindTransient, err)
	}

	slippageBps := req.SlippageBps
	if slippageBps == 0 {
		slippageBps = uint32(s.conf.defaultSlippageBps.Get(ctx))
	}

	intent, err := newSwapIntent(
		req.Owner,
		req.Trader,
		inputMint,
		outputMint,
		req.AmountIn,
		globalConfig.PlatformFeeBps,
		slippageBps,
	)
	if err != nil {
		return nil, nil, 0, newError(StageValidate, ErrorKindEconomic, err)
	}

	return intent, vault, traderState.CurrentValue, nil
}

func resolveSwapPair(req *ExecuteSwapRequest, vault *stellalpha_vault.UserVaultAccount) (inputMint, outputMint *common.Account, err error) {
	if req.InputMint != nil && req.OutputMint != nil {
		return req.InputMint, req.OutputMint, nil
	}

	if req.PositionMint == nil {
		return nil, nil, errors.New("swap pair not specified")
	}

	baseMint, err := common.NewAccountFromPublicKeyBytes(vault.BaseMint)
	if err != nil {
		return nil, nil, errors.Wrap(err, "invalid vault base mint")
	}

	switch req.Direction {
	case DirectionOpenPosition:
		return baseMint, req.PositionMint, nil
	case DirectionClosePosition:
		return req.PositionMint, baseMint, nil
	}

	return nil, nil, errors.New("swap direction not specified")
}

func (s *Service) executeValidatedSwap(
	ctx context.Context,
	log *logrus.Entry,
	intent *SwapIntent,
	vault *stellalpha_vault.UserVaultAccount,
	previousValue uint64,
	start time.Time,
) (*ExecuteSwapResponse, error) {
	accounts, err := resolveAccounts(intent, s.feePayer)
	if err != nil {
		return nil, newError(StageResolve, ErrorKindStructural, err)
	}

	// Token account provisioning happens before the swap in its own
	// confirmed transactions. The input account is never created here: an
	// absent input account means there is nothing to swap.
	if _, err := s.ensureTokenAccountExists(ctx, accounts.TraderState, intent.OutputMint); err != nil {
		return nil, newError(StageResolve, ErrorKindTransient, err)
	}
	if _, err := s.ensureTokenAccountExists(ctx, accounts.FeePayer, intent.InputMint); err != nil {
		return nil, newError(StageResolve, ErrorKindTransient, err)
	}

	inputBalance, _, err := s.client.GetTokenAccountBalance(accounts.InputTokenAccount.PublicKey().ToBytes(), solana.CommitmentConfirmed)
	if err != nil {
		return nil, newError(StageValidate, ErrorKindBalance, errors.Wrap(err, "error reading input balance"))
	}
	if inputBalance < intent.AmountIn {
		return nil, newError(StageValidate, ErrorKindBalance, ErrInsufficientBalance)
	}

	outputBalanceBefore, _, err := s.client.GetTokenAccountBalance(accounts.OutputTokenAccount.PublicKey().ToBytes(), solana.CommitmentConfirmed)
	if err != nil && err != solana.ErrNoBalance {
		return nil, newError(StageValidate, ErrorKindBalance, errors.Wrap(err, "error reading output balance"))
	}

	// Routing quotes the net amount. The platform fee never reaches the
	// aggregator, so quoting the gross amount would overstate the output
	// and trip the program's output check.
	quote, err := s.routeClient.GetQuote(
		ctx,
		intent.InputMint.PublicKey().ToBase58(),
		intent.OutputMint.PublicKey().ToBase58(),
		intent.NetAmount,
		intent.SlippageBps,
		[]string{s.conf.routeDex.Get(ctx)},
		s.conf.forceDirectRoutes.Get(ctx),
	)
	if err != nil {
		return nil, newError(StageRoute, ErrorKindEconomic, err)
	}

	intent.MinAmountOut = quote.GetOtherAmountThreshold()
	intent.ExpectedOutput = quote.GetOutAmount()
	intent.RouteLabel = quote.GetRouteLabel()
	intent.PriceImpactPct = quote.GetPriceImpactPct()

	log.WithFields(logrus.Fields{
		"route":           intent.RouteLabel,
		"expected_output": intent.ExpectedOutput,
		"min_amount_out":  intent.MinAmountOut,
	}).Debug("route selected")

	swapTxn, err := s.routeClient.GetSwapTransaction(ctx, quote, accounts.TraderState.PublicKey().ToBase58())
	if err != nil {
		return nil, newError(StageRoute, ErrorKindEconomic, err)
	}

	intent.RoutePayload, intent.RemainingAccounts, err = newRewriter(s.client, s.fallbackClient).Rewrite(ctx, swapTxn.Transaction)
	if err != nil {
		if err == ErrSwapInstructionAbsent {
			return nil, newError(StageRewrite, ErrorKindStructural, err)
		}
		return nil, newError(StageRewrite, ErrorKindTransient, err)
	}

	txn, err := assembleSwapTransaction(
		intent,
		accounts,
		uint32(s.conf.computeUnitLimit.Get(ctx)),
		s.conf.computeUnitPrice.Get(ctx),
	)
	if err != nil {
		return nil, newError(StageAssemble, ErrorKindStructural, err)
	}

	sig, err := s.submitAndConfirm(ctx, txn)
	if err != nil {
		return nil, err
	}

	log.WithField("signature", base58.Encode(sig[:])).Info("swap confirmed")

	resp := &ExecuteSwapResponse{
		Signature: base58.Encode(sig[:]),

		AmountIn:       intent.AmountIn,
		Fee:            intent.Fee,
		NetAmount:      intent.NetAmount,
		ExpectedOutput: intent.ExpectedOutput,
		MinAmountOut:   intent.MinAmountOut,
		RouteLabel:     intent.RouteLabel,
		PriceImpactPct: pointer.StringIfValid(len(intent.PriceImpactPct) > 0, intent.PriceImpactPct),
		SlippageBps:    intent.SlippageBps,

		BalancesBefore: BalanceSnapshot{
			Input:  inputBalance,
			Output: outputBalanceBefore,
		},

		Attestation: NonCustodialAttestation{
			BackendWallet:     s.feePayer.PublicKey().ToBase58(),
			TradeAuthority:    accounts.TraderState.PublicKey().ToBase58(),
			FundsOwner:        "trade authority program derived address",
			BackendOwnsTokens: false,
			UserSignedSwap:    false,
		},
	}

	// Reconciliation happens after a short settling delay so the read
	// reflects the confirmed swap. A failed read here never fails the swap;
	// the transaction is already confirmed.
	select {
	case <-ctx.Done():
	case <-time.After(s.conf.postSwapReadDelay.Get(ctx)):
	}

	if inputBalanceAfter, _, err := s.client.GetTokenAccountBalance(accounts.InputTokenAccount.PublicKey().ToBytes(), solana.CommitmentConfirmed); err == nil {
		resp.BalancesAfter.Input = inputBalanceAfter
	} else {
		log.WithError(err).Warn("failed to read post-swap input balance")
	}

	outputBalanceAfter, _, err := s.client.GetTokenAccountBalance(accounts.OutputTokenAccount.PublicKey().ToBytes(), solana.CommitmentConfirmed)
	if err != nil {
		// An unobserved balance never drives the recorded value
		log.WithError(err).Warn("failed to read post-swap output balance")
		resp.Reconciliation = reconcileRecordedValue(previousValue, 0, false)
	} else {
		resp.BalancesAfter.Output = outputBalanceAfter

		outputIsBase := bytes.Equal(intent.OutputMint.PublicKey().ToBytes(), vault.BaseMint)
		resp.Reconciliation = reconcileRecordedValue(previousValue, outputBalanceAfter, outputIsBase)
	}

	resp.Duration = time.Since(start)

	recordSwapExecutedEvent(ctx, intent, sig, resp.Duration)

	return resp, nil
}

func (s *Service) getUserVault(account *common.Account) (*stellalpha_vault.UserVaultAccount, error) {
	accountInfo, err := s.client.GetAccountInfo(account.PublicKey().ToBytes(), solana.CommitmentConfirmed)
	if err == solana.ErrNoAccountInfo {
		return nil, ErrVaultNotFound
	} else if err != nil {
		return nil, errors.Wrap(err, "error fetching vault account")
	}

	var vault stellalpha_vault.UserVaultAccount
	if err := vault.Unmarshal(accountInfo.Data); err != nil {
		return nil, errors.Wrap(err, "invalid vault account data")
	}

	return &vault, nil
}

func (s *Service) getTraderState(account *common.Account) (*stellalpha_vault.TraderStateAccount, error) {
	accountInfo, err := s.client.GetAccountInfo(account.PublicKey().ToBytes(), solana.CommitmentConfirmed)
	if err == solana.ErrNoAccountInfo {
		return nil, ErrLedgerNotInitialized
	} else if err != nil {
		return nil, errors.Wrap(err, "error fetching trader state account")
	}

	var traderState stellalpha_vault.TraderStateAccount
	if err := traderState.Unmarshal(accountInfo.Data); err != nil {
		return nil, errors.Wrap(err, "invalid trader state account data")
	}

	return &traderState, nil
}

func (s *Service) getGlobalConfig() (*stellalpha_vault.GlobalConfigAccount, error) {
	globalConfigAddress, _, err := stellalpha_vault.GetGlobalConfigAddress()
	if err != nil {
		return nil, errors.Wrap(err, "error deriving global config address")
	}

	accountInfo, err := s.client.GetAccountInfo(globalConfigAddress, solana.CommitmentConfirmed)
	if err != nil {
		return nil, errors.Wrap(err, "error fetching global config account")
	}

	var globalConfig stellalpha_vault.GlobalConfigAccount
	if err := globalConfig.Unmarshal(accountInfo.Data); err != nil {
		return nil, errors.Wrap(err, "invalid global config account data")
	}

	return &globalConfig, nil
}
