package swap

import (
	"context"
	"crypto/ed25519"
	"encoding/binary"
	"time"

	"github.com/mr-tron/base58"

	"github.com/stellalpha/stellalpha-server/pkg/config/memory"
	"github.com/stellalpha/stellalpha-server/pkg/config/wrapper"
	"github.com/stellalpha/stellalpha-server/pkg/jupiter"
	"github.com/stellalpha/stellalpha-server/pkg/solana"
)

func withTestConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			jupiterApiBaseUrl:   wrapper.NewStringConfig(memory.NewConfig(nil), defaultJupiterApiBaseUrl),
			jupiterApiKey:       wrapper.NewStringConfig(memory.NewConfig(nil), ""),
			fallbackRpcUrl:      wrapper.NewStringConfig(memory.NewConfig(nil), defaultFallbackRpcUrl),
			routeDex:            wrapper.NewStringConfig(memory.NewConfig(nil), defaultRouteDex),
			forceDirectRoutes:   wrapper.NewBoolConfig(memory.NewConfig(nil), true),
			defaultSlippageBps:  wrapper.NewUint64Config(memory.NewConfig(nil), defaultDefaultSlippageBps),
			maxSubmitAttempts:   wrapper.NewUint64Config(memory.NewConfig(nil), 3),
			submitRetryDelay:    wrapper.NewDurationConfig(memory.NewConfig(nil), time.Millisecond),
			maxSubmitRetryDelay: wrapper.NewDurationConfig(memory.NewConfig(nil), 5*time.Millisecond),
			postSwapReadDelay:   wrapper.NewDurationConfig(memory.NewConfig(nil), 0),
			computeUnitLimit:    wrapper.NewUint64Config(memory.NewConfig(nil), defaultComputeUnitLimit),
			computeUnitPrice:    wrapper.NewUint64Config(memory.NewConfig(nil), defaultComputeUnitPrice),
		}
	}
}

// fakeSolanaClient is an in-memory stand-in for a Solana RPC node. Accounts
// and balances are keyed by base58 address.
type fakeSolanaClient struct {
	accountInfos          map[string]solana.AccountInfo
	tokenBalances         map[string]uint64
	postSwapTokenBalances map[string]uint64

	simulationResult *solana.SimulationResult
	signatureStatus  *solana.SignatureStatus

	// submitErrs are returned in order, one per SubmitTransaction call,
	// before submissions start succeeding
	submitErrs []error

	accountInfoCalls   map[string]int
	accountInfoErrs    map[string]error
	balanceCommitments []solana.Commitment

	simulateCount int
	submitCount   int
	submitted     []solana.Transaction
	swapExecuted  bool
}

func newFakeSolanaClient() *fakeSolanaClient {
	return &fakeSolanaClient{
		accountInfos:          make(map[string]solana.AccountInfo),
		tokenBalances:         make(map[string]uint64),
		postSwapTokenBalances: make(map[string]uint64),
		accountInfoCalls:      make(map[string]int),
		accountInfoErrs:       make(map[string]error),
		simulationResult:      &solana.SimulationResult{},
	}
}

func (f *fakeSolanaClient) setAccount(address ed25519.PublicKey, data []byte) {
	f.accountInfos[base58.Encode(address)] = solana.AccountInfo{Data: data}
}

func (f *fakeSolanaClient) setTokenBalance(address ed25519.PublicKey, before, after uint64) {
	f.tokenBalances[base58.Encode(address)] = before
	f.postSwapTokenBalances[base58.Encode(address)] = after
}

func (f *fakeSolanaClient) GetAccountInfo(address ed25519.PublicKey, _ solana.Commitment) (solana.AccountInfo, error) {
	key := base58.Encode(address)
	f.accountInfoCalls[key]++

	if err, ok := f.accountInfoErrs[key]; ok {
		return solana.AccountInfo{}, err
	}

	accountInfo, ok := f.accountInfos[key]
	if !ok {
		return solana.AccountInfo{}, solana.ErrNoAccountInfo
	}
	return accountInfo, nil
}

func (f *fakeSolanaClient) GetBalance(_ ed25519.PublicKey) (uint64, error) {
	return 1_000_000_000, nil
}

func (f *fakeSolanaClient) GetLatestBlockhash() (solana.Blockhash, error) {
	var blockhash solana.Blockhash
	blockhash[0] = 1
	return blockhash, nil
}

func (f *fakeSolanaClient) GetSignatureStatus(_ solana.Signature, _ solana.Commitment) (*solana.SignatureStatus, error) {
	if f.signatureStatus == nil {
		return &solana.SignatureStatus{}, nil
	}
	return f.signatureStatus, nil
}

func (f *fakeSolanaClient) GetSignatureStatuses(sigs []solana.Signature) ([]*solana.SignatureStatus, error) {
	statuses := make([]*solana.SignatureStatus, len(sigs))
	for i := range sigs {
		statuses[i], _ = f.GetSignatureStatus(sigs[i], solana.CommitmentConfirmed)
	}
	return statuses, nil
}

func (f *fakeSolanaClient) GetTokenAccountBalance(address ed25519.PublicKey, commitment solana.Commitment) (uint64, uint64, error) {
	key := base58.Encode(address)
	f.balanceCommitments = append(f.balanceCommitments, commitment)
	if f.swapExecuted {
		if balance, ok := f.postSwapTokenBalances[key]; ok {
			return balance, 0, nil
		}
	}
	balance, ok := f.tokenBalances[key]
	if !ok {
		return 0, 0, solana.ErrNoBalance
	}
	return balance, 0, nil
}

func (f *fakeSolanaClient) SimulateTransaction(_ solana.Transaction) (*solana.SimulationResult, error) {
	f.simulateCount++
	return f.simulationResult, nil
}

func (f *fakeSolanaClient) SubmitTransaction(txn solana.Transaction, _ solana.Commitment) (solana.Signature, error) {
	f.submitCount++
	f.submitted = append(f.submitted, txn)

	if len(f.submitErrs) > 0 {
		err := f.submitErrs[0]
		f.submitErrs = f.submitErrs[1:]
		return txn.Signatures[0], err
	}

	f.swapExecuted = true
	return txn.Signatures[0], nil
}

// fakeRouteClient returns canned aggregator responses.
type fakeRouteClient struct {
	quote           *jupiter.Quote
	swapTransaction *jupiter.SwapTransaction

	quoteErr error
	swapErr  error

	quotedAmount      uint64
	quotedUserAccount string
}

func (f *fakeRouteClient) GetQuote(_ context.Context, _, _ string, quarksToSwap uint64, _ uint32, _ []string, _ bool) (*jupiter.Quote, error) {
	f.quotedAmount = quarksToSwap
	if f.quoteErr != nil {
		return nil, f.quoteErr
	}
	return f.quote, nil
}

func (f *fakeRouteClient) GetSwapTransaction(_ context.Context, _ *jupiter.Quote, userPublicKey string) (*jupiter.SwapTransaction, error) {
	f.quotedUserAccount = userPublicKey
	if f.swapErr != nil {
		return nil, f.swapErr
	}
	return f.swapTransaction, nil
}

var (
	globalConfigDiscriminator = []byte{149, 8, 156, 202, 160, 252, 176, 217}
	traderStateDiscriminator  = []byte{124, 33, 101, 17, 158, 79, 26, 140}
	userVaultDiscriminator    = []byte{23, 76, 96, 159, 210, 10, 5, 22}
)

func makeGlobalConfigData(admin ed25519.PublicKey, platformFeeBps, performanceFeeBps uint16) []byte {
	data := make([]byte, 0, 45)
	data = append(data, globalConfigDiscriminator...)
	data = append(data, admin...)
	data = binary.LittleEndian.AppendUint16(data, platformFeeBps)
	data = binary.LittleEndian.AppendUint16(data, performanceFeeBps)
	data = append(data, 0)
	return data
}

func makeTraderStateData(owner, trader, vault ed25519.PublicKey, currentValue uint64, isPaused, isSettled, isInitialized bool) []byte {
	data := make([]byte, 0, 132)
	data = append(data, traderStateDiscriminator...)
	data = append(data, owner...)
	data = append(data, trader...)
	data = append(data, vault...)
	data = append(data, 255)
	data = binary.LittleEndian.AppendUint64(data, currentValue)
	data = binary.LittleEndian.AppendUint64(data, currentValue)
	data = binary.LittleEndian.AppendUint64(data, 0)
	data = append(data, boolByte(isPaused), boolByte(isSettled), boolByte(isInitialized))
	return data
}

func makeUserVaultData(owner, authority ed25519.PublicKey, isPaused bool, baseMint ed25519.PublicKey, allowedMints ...ed25519.PublicKey) []byte {
	data := make([]byte, 0, 118+32*len(allowedMints))
	data = append(data, userVaultDiscriminator...)
	data = append(data, owner...)
	data = append(data, authority...)
	data = append(data, 254)
	data = append(data, boolByte(isPaused))
	data = binary.LittleEndian.AppendUint64(data, 0)
	data = append(data, baseMint...)
	data = binary.LittleEndian.AppendUint32(data, uint32(len(allowedMints)))
	for _, mint := range allowedMints {
		data = append(data, mint...)
	}
	return data
}

func makeLookupTableData(addresses ...ed25519.PublicKey) []byte {
	data := make([]byte, 56, 56+32*len(addresses))
	binary.LittleEndian.PutUint32(data[0:], 1)
	for _, address := range addresses {
		data = append(data, address...)
	}
	return data
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
