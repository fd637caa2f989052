package swap

import (
	"bytes"
	"context"
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/stellalpha/stellalpha-server/pkg/metrics"
	"github.com/stellalpha/stellalpha-server/pkg/solana"
	address_lookup_table "github.com/stellalpha/stellalpha-server/pkg/solana/addresslookuptable"
	stellalpha_vault "github.com/stellalpha/stellalpha-server/pkg/solana/stellalphavault"
)

// rewriter translates an aggregator-constructed transaction into the opaque
// payload and signer-stripped account list forwarded to the vault program.
//
// Nothing else from the container is trusted: the engine rebuilds its own
// transaction from scratch and only carries over the raw instruction bytes
// and the resolved account addresses.
type rewriter struct {
	client         solana.Client
	fallbackClient solana.Client

	// Resolved tables are cached for the lifetime of one rewriter, which is
	// bounded to one orchestration pass. Resolving the same table twice
	// within a pass always yields the same addresses.
	tableCache map[string][]ed25519.PublicKey
}

func newRewriter(client, fallbackClient solana.Client) *rewriter {
	return &rewriter{
		client:         client,
		fallbackClient: fallbackClient,
		tableCache:     make(map[string][]ed25519.PublicKey),
	}
}

// Rewrite extracts the aggregator program's instruction from the transaction
// container, expands every address table reference to a concrete address, and
// returns the instruction's raw data alongside its account list with every
// signer flag forced to false.
//
// The signer stripping is unconditional. The trade authority is a program
// derived address whose signature only the vault program can assert through
// its own invocation, so no externally-claimed signer flag may survive.
func (r *rewriter) Rewrite(ctx context.Context, txn solana.Transaction) (payload []byte, remainingAccounts []solana.AccountMeta, err error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Rewrite")
	defer tracer.End()

	allAccountKeys, err := r.resolveAccountKeys(ctx, txn.Message)
	if err != nil {
		tracer.OnError(err)
		return nil, nil, err
	}

	swapInstruction, err := findAggregatorInstruction(txn.Message)
	if err != nil {
		tracer.OnError(err)
		return nil, nil, err
	}

	remainingAccounts = make([]solana.AccountMeta, len(swapInstruction.Accounts))
	for i, index := range swapInstruction.Accounts {
		if int(index) >= len(allAccountKeys) {
			return nil, nil, errors.Errorf("account index %d outside resolved account list", index)
		}

		remainingAccounts[i] = solana.AccountMeta{
			PublicKey:  allAccountKeys[index],
			IsSigner:   false,
			IsWritable: true,
		}
	}

	payload = make([]byte, len(swapInstruction.Data))
	copy(payload, swapInstruction.Data)

	return payload, remainingAccounts, nil
}

// resolveAccountKeys flattens the message's account references into one
// ordered list: static accounts, then table-loaded writable accounts, then
// table-loaded readonly accounts. This ordering mirrors how the runtime
// numbers accounts in a versioned message.
func (r *rewriter) resolveAccountKeys(ctx context.Context, message solana.Message) ([]ed25519.PublicKey, error) {
	allAccountKeys := make([]ed25519.PublicKey, 0, len(message.Accounts))
	allAccountKeys = append(allAccountKeys, message.Accounts...)

	if len(message.AddressTableLookups) == 0 {
		return allAccountKeys, nil
	}

	var loadedWritable, loadedReadonly []ed25519.PublicKey
	for _, lookup := range message.AddressTableLookups {
		addresses, err := r.resolveTable(ctx, lookup.PublicKey)
		if err != nil {
			return nil, err
		}

		for _, index := range lookup.WritableIndexes {
			if int(index) >= len(addresses) {
				return nil, errors.Errorf("writable index %d outside table %s", index, base58.Encode(lookup.PublicKey))
			}
			loadedWritable = append(loadedWritable, addresses[index])
		}
		for _, index := range lookup.ReadonlyIndexes {
			if int(index) >= len(addresses) {
				return nil, errors.Errorf("readonly index %d outside table %s", index, base58.Encode(lookup.PublicKey))
			}
			loadedReadonly = append(loadedReadonly, addresses[index])
		}
	}

	allAccountKeys = append(allAccountKeys, loadedWritable...)
	allAccountKeys = append(allAccountKeys, loadedReadonly...)

	return allAccountKeys, nil
}

func (r *rewriter) resolveTable(ctx context.Context, tableKey ed25519.PublicKey) ([]ed25519.PublicKey, error) {
	cacheKey := base58.Encode(tableKey)
	if cached, ok := r.tableCache[cacheKey]; ok {
		return cached, nil
	}

	accountInfo, err := r.client.GetAccountInfo(tableKey, solana.CommitmentConfirmed)
	if err == solana.ErrNoAccountInfo && r.fallbackClient != nil {
		// Aggregator-published tables may only exist on its primary network
		accountInfo, err = r.fallbackClient.GetAccountInfo(tableKey, solana.CommitmentConfirmed)
	}
	if err == solana.ErrNoAccountInfo {
		return nil, errors.Errorf("address lookup table %s not found", cacheKey)
	} else if err != nil {
		return nil, errors.Wrapf(err, "error fetching address lookup table %s", cacheKey)
	}

	var table address_lookup_table.AddressLookupTableAccount
	if err := table.Unmarshal(accountInfo.Data); err != nil {
		return nil, errors.Wrapf(err, "invalid address lookup table %s", cacheKey)
	}

	r.tableCache[cacheKey] = table.Addresses

	return table.Addresses, nil
}

func findAggregatorInstruction(message solana.Message) (*solana.CompiledInstruction, error) {
	for i, instruction := range message.Instructions {
		// Program ids are always statically addressed
		if int(instruction.ProgramIndex) >= len(message.Accounts) {
			continue
		}

		if bytes.Equal(message.Accounts[instruction.ProgramIndex], stellalpha_vault.JUPITER_PROGRAM_ID) {
			return &message.Instructions[i], nil
		}
	}

	return nil, ErrSwapInstructionAbsent
}
