package stellalpha_vault

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetTraderStateAddress(t *testing.T) {
	owner, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	trader, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	otherTrader, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	address, bump, err := GetTraderStateAddress(&GetTraderStateAddressArgs{
		Owner:  owner,
		Trader: trader,
	})
	require.NoError(t, err)
	assert.Len(t, address, ed25519.PublicKeySize)
	assert.True(t, bump <= 255)

	// Derivation is deterministic
	address2, bump2, err := GetTraderStateAddress(&GetTraderStateAddressArgs{
		Owner:  owner,
		Trader: trader,
	})
	require.NoError(t, err)
	assert.Equal(t, address, address2)
	assert.Equal(t, bump, bump2)

	// Different traders derive different ledgers
	address3, _, err := GetTraderStateAddress(&GetTraderStateAddressArgs{
		Owner:  owner,
		Trader: otherTrader,
	})
	require.NoError(t, err)
	assert.NotEqual(t, address, address3)
}

func TestGetUserVaultAddress(t *testing.T) {
	owner, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	otherOwner, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	address, _, err := GetUserVaultAddress(&GetUserVaultAddressArgs{Owner: owner})
	require.NoError(t, err)
	assert.Len(t, address, ed25519.PublicKeySize)

	address2, _, err := GetUserVaultAddress(&GetUserVaultAddressArgs{Owner: otherOwner})
	require.NoError(t, err)
	assert.NotEqual(t, address, address2)
}

func TestGetGlobalConfigAddress(t *testing.T) {
	address, _, err := GetGlobalConfigAddress()
	require.NoError(t, err)
	assert.Len(t, address, ed25519.PublicKeySize)

	address2, _, err := GetGlobalConfigAddress()
	require.NoError(t, err)
	assert.Equal(t, address, address2)
}
