package swap

import (
	"context"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/stellalpha/stellalpha-server/pkg/metrics"
	"github.com/stellalpha/stellalpha-server/pkg/retry"
	"github.com/stellalpha/stellalpha-server/pkg/retry/backoff"
	"github.com/stellalpha/stellalpha-server/pkg/solana"
)

// submissionState tracks a transaction through the submission pipeline. The
// state only moves forward. A failure at any state is terminal for that
// transaction; retries of economic failures happen a level up with a fresh
// quote and a fresh transaction.
type submissionState uint8

const (
	submissionStateBuilt submissionState = iota
	submissionStateSimulated
	submissionStateSigned
	submissionStateSent
	submissionStateConfirmed
	submissionStateFailed
)

func (s submissionState) String() string {
	switch s {
	case submissionStateBuilt:
		return "built"
	case submissionStateSimulated:
		return "simulated"
	case submissionStateSigned:
		return "signed"
	case submissionStateSent:
		return "sent"
	case submissionStateConfirmed:
		return "confirmed"
	case submissionStateFailed:
		return "failed"
	}
	return "unknown"
}

var errTransientSubmitFailure = errors.New("transient submit failure")

type submission struct {
	txn   solana.Transaction
	state submissionState
}

// submitAndConfirm drives a built transaction through simulation, signing,
// submission and confirmation.
//
// Simulation is mandatory. A transaction that fails its dry run is never
// signed, so a structurally broken or economically stale swap costs nothing
// on chain. Submission retries are bounded and reserved for transient RPC
// failures. Program errors are terminal immediately.
func (s *Service) submitAndConfirm(ctx context.Context, txn solana.Transaction) (solana.Signature, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "submitAndConfirm")
	defer tracer.End()

	sub := &submission{
		txn:   txn,
		state: submissionStateBuilt,
	}

	sig, err := s.driveSubmission(ctx, sub)
	if err != nil {
		sub.state = submissionStateFailed
		tracer.OnError(err)
		return sig, err
	}

	sub.state = submissionStateConfirmed
	tracer.AddAttribute("signature", base58.Encode(sig[:]))

	return sig, nil
}

func (s *Service) driveSubmission(ctx context.Context, sub *submission) (solana.Signature, error) {
	var sig solana.Signature

	simResult, err := s.client.SimulateTransaction(sub.txn)
	if err != nil {
		return sig, newError(StageSimulate, ErrorKindTransient, errors.Wrap(err, "error simulating transaction"))
	}
	if simResult.Err != nil {
		return sig, newErrorWithLogs(
			StageSimulate,
			classifyTransactionError(simResult.Err),
			simResult.Err,
			simResult.Logs,
		)
	}
	sub.state = submissionStateSimulated

	blockhash, err := s.client.GetLatestBlockhash()
	if err != nil {
		return sig, newError(StageSubmit, ErrorKindTransient, errors.Wrap(err, "error getting latest blockhash"))
	}
	sub.txn.SetBlockhash(blockhash)

	if err := sub.txn.Sign(s.feePayer.PrivateKey().ToBytes()); err != nil {
		return sig, newError(StageSubmit, ErrorKindStructural, errors.Wrap(err, "error signing transaction"))
	}
	sub.state = submissionStateSigned

	_, err = retry.Retry(
		func() error {
			sig, err = s.client.SubmitTransaction(sub.txn, solana.CommitmentConfirmed)
			if err == nil {
				return nil
			}

			if txErr, ok := err.(*solana.TransactionError); ok {
				kind := classifyTransactionError(txErr)
				if kind == ErrorKindTransient {
					return errors.Wrap(errTransientSubmitFailure, txErr.Error())
				}
				return newError(StageSubmit, kind, txErr)
			}
			if instructionErr, ok := err.(*solana.InstructionError); ok {
				return newError(StageSubmit, classifyInstructionError(instructionErr), instructionErr)
			}

			// RPC transport failures with no typed program error
			return errors.Wrap(errTransientSubmitFailure, err.Error())
		},
		retry.RetriableErrors(errTransientSubmitFailure),
		retry.Limit(uint(s.conf.maxSubmitAttempts.Get(ctx))),
		retry.BackoffWithJitter(
			backoff.BinaryExponential(s.conf.submitRetryDelay.Get(ctx)),
			s.conf.maxSubmitRetryDelay.Get(ctx),
			0.1,
		),
	)
	if err != nil {
		if typed, ok := err.(*Error); ok {
			return sig, typed
		}
		return sig, newError(StageSubmit, ErrorKindTransient, err)
	}
	sub.state = submissionStateSent

	status, err := s.client.GetSignatureStatus(sig, solana.CommitmentConfirmed)
	if err == solana.ErrSignatureNotFound {
		// The transaction was sent, so a missing status can't be treated
		// as a failure. The caller resolves the outcome from chain state.
		return sig, newError(StageConfirm, ErrorKindUnknown, ErrUnknownOutcome)
	} else if err != nil {
		if txErr, ok := err.(*solana.TransactionError); ok {
			return sig, newError(StageConfirm, classifyTransactionError(txErr), txErr)
		}
		return sig, newError(StageConfirm, ErrorKindUnknown, ErrUnknownOutcome)
	}

	if status != nil && status.ErrorResult != nil {
		return sig, newError(StageConfirm, classifyTransactionError(status.ErrorResult), status.ErrorResult)
	}

	return sig, nil
}
