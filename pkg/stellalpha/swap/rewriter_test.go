package swap

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stellalpha/stellalpha-server/pkg/solana"
	stellalpha_vault "github.com/stellalpha/stellalpha-server/pkg/solana/stellalphavault"
)

func generateKey(t *testing.T) ed25519.PublicKey {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return pub
}

func TestRewriter_LegacyTransaction(t *testing.T) {
	ctx := context.Background()

	payer := generateKey(t)
	account1 := generateKey(t)
	account2 := generateKey(t)
	otherProgram := generateKey(t)

	payload := []byte{0xde, 0xad, 0xbe, 0xef}

	txn := solana.NewTransaction(
		payer,
		solana.NewInstruction(otherProgram, []byte{1, 2, 3}, solana.NewAccountMeta(account1, false)),
		solana.NewInstruction(
			stellalpha_vault.JUPITER_PROGRAM_ID,
			payload,
			solana.NewAccountMeta(account1, true),
			solana.NewReadonlyAccountMeta(account2, false),
		),
	)

	rewritten, remainingAccounts, err := newRewriter(newFakeSolanaClient(), nil).Rewrite(ctx, txn)
	require.NoError(t, err)

	assert.Equal(t, payload, rewritten)

	require.Len(t, remainingAccounts, 2)
	assert.EqualValues(t, account1, remainingAccounts[0].PublicKey)
	assert.EqualValues(t, account2, remainingAccounts[1].PublicKey)

	// Every signer flag must be stripped, and every account forwarded as
	// writable, regardless of how the container marked it
	for _, account := range remainingAccounts {
		assert.False(t, account.IsSigner)
		assert.True(t, account.IsWritable)
	}
}

func TestRewriter_AggregatorInstructionAbsent(t *testing.T) {
	ctx := context.Background()

	txn := solana.NewTransaction(
		generateKey(t),
		solana.NewInstruction(generateKey(t), []byte{1}, solana.NewAccountMeta(generateKey(t), false)),
	)

	_, _, err := newRewriter(newFakeSolanaClient(), nil).Rewrite(ctx, txn)
	assert.Equal(t, ErrSwapInstructionAbsent, err)
}

func TestRewriter_ResolvesLookupTables(t *testing.T) {
	ctx := context.Background()

	payer := generateKey(t)
	staticAccount := generateKey(t)
	tableKey := generateKey(t)

	loaded0 := generateKey(t)
	loaded1 := generateKey(t)
	loaded2 := generateKey(t)

	client := newFakeSolanaClient()
	client.setAccount(tableKey, makeLookupTableData(loaded0, loaded1, loaded2))

	// Static accounts: payer, jupiter program, staticAccount. Loaded
	// accounts follow: writable [2, 0], then readonly [1].
	txn := solana.Transaction{
		Message: solana.Message{
			Accounts: []ed25519.PublicKey{payer, stellalpha_vault.JUPITER_PROGRAM_ID, staticAccount},
			Instructions: []solana.CompiledInstruction{
				{
					ProgramIndex: 1,
					Accounts:     []byte{2, 3, 4, 5},
					Data:         []byte{7},
				},
			},
			AddressTableLookups: []solana.MessageAddressTableLookup{
				{
					PublicKey:       tableKey,
					WritableIndexes: []byte{2, 0},
					ReadonlyIndexes: []byte{1},
				},
			},
		},
	}

	_, remainingAccounts, err := newRewriter(client, nil).Rewrite(ctx, txn)
	require.NoError(t, err)

	require.Len(t, remainingAccounts, 4)
	assert.EqualValues(t, staticAccount, remainingAccounts[0].PublicKey)
	assert.EqualValues(t, loaded2, remainingAccounts[1].PublicKey)
	assert.EqualValues(t, loaded0, remainingAccounts[2].PublicKey)
	assert.EqualValues(t, loaded1, remainingAccounts[3].PublicKey)
}

func TestRewriter_LookupTableResolutionIsCached(t *testing.T) {
	ctx := context.Background()

	tableKey := generateKey(t)
	loaded := generateKey(t)

	client := newFakeSolanaClient()
	client.setAccount(tableKey, makeLookupTableData(loaded))

	txn := solana.Transaction{
		Message: solana.Message{
			Accounts: []ed25519.PublicKey{generateKey(t), stellalpha_vault.JUPITER_PROGRAM_ID},
			Instructions: []solana.CompiledInstruction{
				{
					ProgramIndex: 1,
					Accounts:     []byte{2, 3},
					Data:         []byte{7},
				},
			},
			AddressTableLookups: []solana.MessageAddressTableLookup{
				{PublicKey: tableKey, WritableIndexes: []byte{0}},
				{PublicKey: tableKey, ReadonlyIndexes: []byte{0}},
			},
		},
	}

	r := newRewriter(client, nil)

	first, firstAccounts, err := r.Rewrite(ctx, txn)
	require.NoError(t, err)

	second, secondAccounts, err := r.Rewrite(ctx, txn)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, firstAccounts, secondAccounts)

	// Both lookups and both passes hit the same table exactly once
	assert.Equal(t, 1, client.accountInfoCalls[base58.Encode(tableKey)])
}

func TestRewriter_FallsBackForUnknownTables(t *testing.T) {
	ctx := context.Background()

	tableKey := generateKey(t)
	loaded := generateKey(t)

	local := newFakeSolanaClient()
	fallback := newFakeSolanaClient()
	fallback.setAccount(tableKey, makeLookupTableData(loaded))

	txn := solana.Transaction{
		Message: solana.Message{
			Accounts: []ed25519.PublicKey{generateKey(t), stellalpha_vault.JUPITER_PROGRAM_ID},
			Instructions: []solana.CompiledInstruction{
				{
					ProgramIndex: 1,
					Accounts:     []byte{2},
					Data:         []byte{7},
				},
			},
			AddressTableLookups: []solana.MessageAddressTableLookup{
				{PublicKey: tableKey, WritableIndexes: []byte{0}},
			},
		},
	}

	_, remainingAccounts, err := newRewriter(local, fallback).Rewrite(ctx, txn)
	require.NoError(t, err)

	require.Len(t, remainingAccounts, 1)
	assert.EqualValues(t, loaded, remainingAccounts[0].PublicKey)

	// Without a fallback the unknown table is a hard failure
	_, _, err = newRewriter(local, nil).Rewrite(ctx, txn)
	assert.Error(t, err)
}
