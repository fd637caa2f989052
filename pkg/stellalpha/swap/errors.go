package swap

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/stellalpha/stellalpha-server/pkg/solana"
)

// ErrorKind is a closed classification of swap failures, produced by the
// stage that detected the fault. Classification is driven by typed RPC and
// program errors, never by matching message text.
type ErrorKind uint8

const (
	ErrorKindUnknown ErrorKind = iota

	// ErrorKindEconomic failures (no route, slippage exceeded) are expected
	// and reported to the caller for retry with new parameters.
	ErrorKindEconomic

	// ErrorKindStructural failures (signer or privilege mismatch, account
	// ordering, malformed payload) indicate an engine defect and are never
	// retried.
	ErrorKindStructural

	// ErrorKindBalance failures (insufficient funds, missing or paused
	// accounts) are recoverable by caller action.
	ErrorKindBalance

	// ErrorKindTransient failures (stale blockhash, node lag, congestion)
	// are retried automatically within the submission pipeline's bound.
	ErrorKindTransient
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorKindEconomic:
		return "economic"
	case ErrorKindStructural:
		return "structural"
	case ErrorKindBalance:
		return "balance"
	case ErrorKindTransient:
		return "transient"
	}
	return "unknown"
}

// Stage identifies the pipeline stage that detected a failure.
type Stage uint8

const (
	StageUnknown Stage = iota
	StageValidate
	StageRoute
	StageRewrite
	StageResolve
	StageAssemble
	StageSimulate
	StageSubmit
	StageConfirm
	StageReconcile
)

func (s Stage) String() string {
	switch s {
	case StageValidate:
		return "validate"
	case StageRoute:
		return "route"
	case StageRewrite:
		return "rewrite"
	case StageResolve:
		return "resolve"
	case StageAssemble:
		return "assemble"
	case StageSimulate:
		return "simulate"
	case StageSubmit:
		return "submit"
	case StageConfirm:
		return "confirm"
	case StageReconcile:
		return "reconcile"
	}
	return "unknown"
}

var (
	ErrVaultNotFound         = errors.New("vault account not found")
	ErrVaultPaused           = errors.New("vault is paused")
	ErrLedgerNotInitialized  = errors.New("trader ledger is not initialized")
	ErrLedgerPaused          = errors.New("trader ledger is paused")
	ErrLedgerSettled         = errors.New("trader ledger is settled")
	ErrAssetNotAllowed       = errors.New("asset is not allowed in this vault")
	ErrInsufficientBalance   = errors.New("insufficient input balance")
	ErrSwapInstructionAbsent = errors.New("aggregator instruction not found in transaction")

	// ErrUnknownOutcome indicates a sent transaction whose confirmation
	// couldn't be observed in time. The outcome is resolved by re-reading
	// chain state, never by treating the swap as failed.
	ErrUnknownOutcome = errors.New("transaction outcome unknown")
)

// Error is the typed failure surfaced to callers. It carries the stage that
// failed, the closed error kind, and a best-effort log excerpt from the
// collaborator for debugging. The excerpt never drives control flow.
type Error struct {
	Stage Stage
	Kind  ErrorKind
	Logs  []string

	cause error
}

func newError(stage Stage, kind ErrorKind, cause error) *Error {
	return &Error{
		Stage: stage,
		Kind:  kind,
		cause: cause,
	}
}

func newErrorWithLogs(stage Stage, kind ErrorKind, cause error, logs []string) *Error {
	return &Error{
		Stage: stage,
		Kind:  kind,
		Logs:  logs,
		cause: cause,
	}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s failure at %s stage: %v", e.Kind, e.Stage, e.cause)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Vault program error codes, from the program's error enum
const (
	customErrorUnauthorized           = 6000
	customErrorPaused                 = 6001
	customErrorInvalidSwapOutput      = 6002
	customErrorTokenNotAllowed        = 6003
	customErrorInvalidSwapTopology    = 6004
	customErrorInvalidFeeDestination  = 6005
	customErrorSlippageExceeded       = 6006
	customErrorFeeEvasion             = 6007
	customErrorInvalidInstructionData = 6008
	customErrorTraderPaused           = 6010
	customErrorNotSettled             = 6011
	customErrorInsufficientFunds      = 6012
	customErrorMintMismatch           = 6013
	customErrorTraderNotInitialized   = 6017
)

func classifyCustomError(code solana.CustomError) ErrorKind {
	switch int(code) {
	case customErrorInvalidSwapOutput, customErrorSlippageExceeded:
		return ErrorKindEconomic
	case customErrorPaused, customErrorTraderPaused, customErrorNotSettled,
		customErrorInsufficientFunds, customErrorMintMismatch, customErrorTraderNotInitialized:
		return ErrorKindBalance
	case customErrorUnauthorized, customErrorTokenNotAllowed, customErrorInvalidSwapTopology,
		customErrorInvalidFeeDestination, customErrorFeeEvasion, customErrorInvalidInstructionData:
		return ErrorKindStructural
	}
	return ErrorKindUnknown
}

func classifyInstructionError(instructionErr *solana.InstructionError) ErrorKind {
	if customErr := instructionErr.CustomError(); customErr != nil {
		return classifyCustomError(*customErr)
	}

	switch instructionErr.ErrorKey() {
	case solana.InstructionErrorInsufficientFunds,
		solana.InstructionErrorMissingAccount,
		solana.InstructionErrorUninitializedAccount,
		solana.InstructionErrorAccountNotExecutable:
		return ErrorKindBalance
	case solana.InstructionErrorMissingRequiredSignature,
		solana.InstructionErrorPrivilegeEscalation,
		solana.InstructionErrorInvalidInstructionData,
		solana.InstructionErrorInvalidArgument,
		solana.InstructionErrorNotEnoughAccountKeys,
		solana.InstructionErrorIncorrectProgramID,
		solana.InstructionErrorInvalidAccountData:
		return ErrorKindStructural
	}
	return ErrorKindUnknown
}

func classifyTransactionError(txErr *solana.TransactionError) ErrorKind {
	if txErr == nil {
		return ErrorKindUnknown
	}

	if instructionErr := txErr.InstructionError(); instructionErr != nil {
		return classifyInstructionError(instructionErr)
	}

	switch txErr.ErrorKey() {
	case solana.TransactionErrorBlockhashNotFound,
		solana.TransactionErrorAccountInUse,
		solana.TransactionErrorAccountBorrowOutstanding,
		solana.TransactionErrorClusterMaintenance,
		solana.TransactionErrorWouldExceedMaxBlockCostLimit:
		return ErrorKindTransient
	case solana.TransactionErrorInsufficientFundsForFee,
		solana.TransactionErrorAccountNotFound:
		return ErrorKindBalance
	case solana.TransactionErrorSignatureFailure,
		solana.TransactionErrorMissingSignatureForFee,
		solana.TransactionErrorInvalidAccountIndex,
		solana.TransactionErrorSanitizeFailure,
		solana.TransactionErrorUnsupportedVersion,
		solana.TransactionErrorInvalidWritableAccount:
		return ErrorKindStructural
	}
	return ErrorKindUnknown
}
