package swap

import (
	"context"
	"time"

	"github.com/mr-tron/base58"

	"github.com/stellalpha/stellalpha-server/pkg/metrics"
	"github.com/stellalpha/stellalpha-server/pkg/solana"
)

const (
	metricsStructName = "swap.service"

	swapExecutedEventName = "SwapExecuted"
	swapFailedEventName   = "SwapFailed"
)

func recordSwapExecutedEvent(ctx context.Context, intent *SwapIntent, sig solana.Signature, duration time.Duration) {
	metrics.RecordEvent(ctx, swapExecutedEventName, map[string]interface{}{
		"intent":      intent.Id.String(),
		"owner":       intent.Owner.PublicKey().ToBase58(),
		"trader":      intent.Trader.PublicKey().ToBase58(),
		"input_mint":  intent.InputMint.PublicKey().ToBase58(),
		"output_mint": intent.OutputMint.PublicKey().ToBase58(),
		"amount_in":   intent.AmountIn,
		"fee":         intent.Fee,
		"route":       intent.RouteLabel,
		"signature":   base58.Encode(sig[:]),
		"duration_ms": duration.Milliseconds(),
	})
}

func recordSwapFailedEvent(ctx context.Context, intent *SwapIntent, err error, duration time.Duration) {
	kvPairs := map[string]interface{}{
		"intent":      intent.Id.String(),
		"owner":       intent.Owner.PublicKey().ToBase58(),
		"trader":      intent.Trader.PublicKey().ToBase58(),
		"amount_in":   intent.AmountIn,
		"error":       err.Error(),
		"duration_ms": duration.Milliseconds(),
	}

	if typed, ok := err.(*Error); ok {
		kvPairs["stage"] = typed.Stage.String()
		kvPairs["kind"] = typed.Kind.String()
	}

	metrics.RecordEvent(ctx, swapFailedEventName, kvPairs)
}
