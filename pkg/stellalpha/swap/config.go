package swap

import (
	"time"

	"github.com/stellalpha/stellalpha-server/pkg/config"
	"github.com/stellalpha/stellalpha-server/pkg/config/env"
	"github.com/stellalpha/stellalpha-server/pkg/jupiter"
	"github.com/stellalpha/stellalpha-server/pkg/solana"
)

const (
	envConfigPrefix = "SWAP_SERVICE_"

	JupiterApiBaseUrlConfigEnvName = envConfigPrefix + "JUPITER_API_BASE_URL"
	defaultJupiterApiBaseUrl       = jupiter.DefaultApiBaseUrl

	JupiterApiKeyConfigEnvName = envConfigPrefix + "JUPITER_API_KEY"
	defaultJupiterApiKey       = ""

	// Aggregator-published lookup tables may only exist on the aggregator's
	// primary network, so table resolution falls back to this endpoint.
	FallbackRpcUrlConfigEnvName = envConfigPrefix + "FALLBACK_RPC_URL"
	defaultFallbackRpcUrl       = string(solana.EnvironmentProd)

	RouteDexConfigEnvName = envConfigPrefix + "ROUTE_DEX"
	defaultRouteDex       = "Raydium"

	ForceDirectRoutesConfigEnvName = envConfigPrefix + "FORCE_DIRECT_ROUTES"
	defaultForceDirectRoutes       = true

	DefaultSlippageBpsConfigEnvName = envConfigPrefix + "DEFAULT_SLIPPAGE_BPS"
	defaultDefaultSlippageBps       = 100

	MaxSubmitAttemptsConfigEnvName = envConfigPrefix + "MAX_SUBMIT_ATTEMPTS"
	defaultMaxSubmitAttempts       = 3

	SubmitRetryDelayConfigEnvName = envConfigPrefix + "SUBMIT_RETRY_DELAY"
	defaultSubmitRetryDelay       = 200 * time.Millisecond

	MaxSubmitRetryDelayConfigEnvName = envConfigPrefix + "MAX_SUBMIT_RETRY_DELAY"
	defaultMaxSubmitRetryDelay       = 2 * time.Second

	PostSwapReadDelayConfigEnvName = envConfigPrefix + "POST_SWAP_READ_DELAY"
	defaultPostSwapReadDelay       = 2 * time.Second

	ComputeUnitLimitConfigEnvName = envConfigPrefix + "COMPUTE_UNIT_LIMIT"
	defaultComputeUnitLimit       = 1_400_000

	// Priority fee, in micro-lamports per compute unit
	ComputeUnitPriceConfigEnvName = envConfigPrefix + "COMPUTE_UNIT_PRICE"
	defaultComputeUnitPrice       = 10_000
)

type conf struct {
	jupiterApiBaseUrl   config.String
	jupiterApiKey       config.String
	fallbackRpcUrl      config.String
	routeDex            config.String
	forceDirectRoutes   config.Bool
	defaultSlippageBps  config.Uint64
	maxSubmitAttempts   config.Uint64
	submitRetryDelay    config.Duration
	maxSubmitRetryDelay config.Duration
	postSwapReadDelay   config.Duration
	computeUnitLimit    config.Uint64
	computeUnitPrice    config.Uint64
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			jupiterApiBaseUrl:   env.NewStringConfig(JupiterApiBaseUrlConfigEnvName, defaultJupiterApiBaseUrl),
			jupiterApiKey:       env.NewStringConfig(JupiterApiKeyConfigEnvName, defaultJupiterApiKey),
			fallbackRpcUrl:      env.NewStringConfig(FallbackRpcUrlConfigEnvName, defaultFallbackRpcUrl),
			routeDex:            env.NewStringConfig(RouteDexConfigEnvName, defaultRouteDex),
			forceDirectRoutes:   env.NewBoolConfig(ForceDirectRoutesConfigEnvName, defaultForceDirectRoutes),
			defaultSlippageBps:  env.NewUint64Config(DefaultSlippageBpsConfigEnvName, defaultDefaultSlippageBps),
			maxSubmitAttempts:   env.NewUint64Config(MaxSubmitAttemptsConfigEnvName, defaultMaxSubmitAttempts),
			submitRetryDelay:    env.NewDurationConfig(SubmitRetryDelayConfigEnvName, defaultSubmitRetryDelay),
			maxSubmitRetryDelay: env.NewDurationConfig(MaxSubmitRetryDelayConfigEnvName, defaultMaxSubmitRetryDelay),
			postSwapReadDelay:   env.NewDurationConfig(PostSwapReadDelayConfigEnvName, defaultPostSwapReadDelay),
			computeUnitLimit:    env.NewUint64Config(ComputeUnitLimitConfigEnvName, defaultComputeUnitLimit),
			computeUnitPrice:    env.NewUint64Config(ComputeUnitPriceConfigEnvName, defaultComputeUnitPrice),
		}
	}
}
